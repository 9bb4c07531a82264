// Package reactions toggles and aggregates emoji reactions on a post.
// Everything here is pure: callers pass copies in and write results back
// through a mirror.
package reactions

import (
	"cmp"
	"slices"

	"github.com/dmitrijs2005/chatsync/internal/models"
	"github.com/google/uuid"
)

// Result tells what a toggle did.
type Result int

const (
	Added Result = iota + 1
	Removed
)

func (r Result) String() string {
	switch r {
	case Added:
		return "added"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Change describes a toggle. Reaction is the entry that was appended or
// removed.
type Change struct {
	Result   Result
	Reaction models.Reaction
}

var newID = uuid.NewString

// Toggle removes the reaction of user with emoji from post if present and
// appends a new one otherwise. The returned post is a copy; the input is not
// modified.
func Toggle(post models.Post, user models.User, emoji string) (models.Post, Change) {
	post = post.Clone()

	for i, r := range post.Reactions {
		if r.User.UID == user.UID && r.Emoji == emoji {
			post.Reactions = append(post.Reactions[:i:i], post.Reactions[i+1:]...)
			return post, Change{Result: Removed, Reaction: r}
		}
	}

	r := models.Reaction{
		ReactionID: newID(),
		User:       user,
		PostID:     post.PostID,
		Emoji:      emoji,
	}
	post.Reactions = append(post.Reactions, r)
	return post, Change{Result: Added, Reaction: r}
}

// Resolver looks a user up by uid in the current users snapshot.
type Resolver func(uid string) (models.User, bool)

// Group is the aggregate for one emoji.
type Group struct {
	Count                 int
	ContributingUserNames []string
}

// GroupReactions counts reactions per emoji. Reactions whose user no longer
// resolves are skipped; names keep the order of the reaction list.
func GroupReactions(reactions []models.Reaction, resolve Resolver) map[string]Group {
	out := make(map[string]Group)
	for _, r := range reactions {
		u, ok := resolve(r.User.UID)
		if !ok {
			continue
		}
		g := out[r.Emoji]
		g.Count++
		g.ContributingUserNames = append(g.ContributingUserNames, u.DisplayName())
		out[r.Emoji] = g
	}
	return out
}

// Entry is one emoji group in rendering order.
type Entry struct {
	Emoji string
	Group
}

// Sorted orders groups by descending count, then by emoji.
func Sorted(groups map[string]Group) []Entry {
	out := make([]Entry, 0, len(groups))
	for e, g := range groups {
		out = append(out, Entry{Emoji: e, Group: g})
	}
	slices.SortFunc(out, func(a, b Entry) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Emoji, b.Emoji)
	})
	return out
}

// ResolverFor builds a Resolver over a users snapshot.
func ResolverFor(users []models.User) Resolver {
	byID := make(map[string]models.User, len(users))
	for _, u := range users {
		byID[u.UID] = u
	}
	return func(uid string) (models.User, bool) {
		u, ok := byID[uid]
		return u, ok
	}
}
