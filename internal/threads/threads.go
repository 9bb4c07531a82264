// Package threads orders the replies of a thread.
package threads

import (
	"cmp"
	"slices"

	"github.com/dmitrijs2005/chatsync/internal/models"
)

// OrderedPosts returns a copy of the thread's posts sorted by date. Posts
// with equal dates keep their stored order.
func OrderedPosts(t models.Thread) []models.Post {
	posts := t.Clone().Posts
	slices.SortStableFunc(posts, func(a, b models.Post) int {
		return cmp.Compare(a.Date, b.Date)
	})
	return posts
}

// FirstPost returns the earliest post of the thread, if it has any.
func FirstPost(t models.Thread) (models.Post, bool) {
	posts := OrderedPosts(t)
	if len(posts) == 0 {
		return models.Post{}, false
	}
	return posts[0], true
}

// FirstPostsFor returns one slot per thread in input order. A slot is nil
// when the thread has no posts.
func FirstPostsFor(ts []models.Thread) []*models.Post {
	out := make([]*models.Post, len(ts))
	for i, t := range ts {
		if p, ok := FirstPost(t); ok {
			out[i] = &p
		}
	}
	return out
}
