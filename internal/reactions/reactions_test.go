package reactions

import (
	"fmt"
	"testing"

	"github.com/dmitrijs2005/chatsync/internal/models"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ann = models.User{UID: "a", Name: "Ann"}
	bob = models.User{UID: "b", Name: "Bob"}
)

func withIDs(t *testing.T) {
	t.Helper()
	n := 0
	prev := newID
	newID = func() string { n++; return fmt.Sprintf("r%d", n) }
	t.Cleanup(func() { newID = prev })
}

func TestToggle_AddThenRemove(t *testing.T) {
	withIDs(t)
	post := models.Post{PostID: "p"}

	post, ch := Toggle(post, ann, "👍")
	require.Equal(t, Added, ch.Result)
	require.Equal(t, "r1", ch.Reaction.ReactionID)
	require.Equal(t, "p", ch.Reaction.PostID)
	require.Len(t, post.Reactions, 1)

	post, ch = Toggle(post, ann, "👍")
	require.Equal(t, Removed, ch.Result)
	require.Equal(t, "r1", ch.Reaction.ReactionID)
	require.Empty(t, post.Reactions)
}

func TestToggle_IsAnInvolution(t *testing.T) {
	withIDs(t)
	orig := models.Post{PostID: "p", Reactions: []models.Reaction{
		{ReactionID: "x", User: bob, PostID: "p", Emoji: "🎉"},
		{ReactionID: "y", User: ann, PostID: "p", Emoji: "🎉"},
	}}

	for _, tc := range []struct {
		user  models.User
		emoji string
	}{{ann, "👍"}, {ann, "🎉"}, {bob, "🎉"}, {bob, "❤️"}} {
		t.Run(tc.user.Name+tc.emoji, func(t *testing.T) {
			once, _ := Toggle(orig, tc.user, tc.emoji)
			twice, _ := Toggle(once, tc.user, tc.emoji)
			require.Len(t, twice.Reactions, len(orig.Reactions))
			require.ElementsMatch(t, keys(orig.Reactions), keys(twice.Reactions))
		})
	}
}

// keys drops reaction ids, which a remove-then-add cycle regenerates.
func keys(rs []models.Reaction) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.User.UID+"/"+r.Emoji)
	}
	return out
}

func TestToggle_AddThenRemoveRestoresExactList(t *testing.T) {
	withIDs(t)
	orig := models.Post{PostID: "p", Reactions: []models.Reaction{{ReactionID: "x", User: bob, PostID: "p", Emoji: "🎉"}}}

	once, _ := Toggle(orig, ann, "👍")
	twice, _ := Toggle(once, ann, "👍")
	require.Empty(t, cmp.Diff(orig, twice))
}

func TestToggle_DoesNotModifyInput(t *testing.T) {
	withIDs(t)
	orig := models.Post{PostID: "p", Reactions: []models.Reaction{
		{ReactionID: "x", User: ann, PostID: "p", Emoji: "👍"},
		{ReactionID: "y", User: bob, PostID: "p", Emoji: "👍"},
	}}
	before := orig.Clone()

	Toggle(orig, ann, "👍")
	require.Empty(t, cmp.Diff(before, orig))
}

func TestToggle_OtherUsersAndEmojisAreIndependent(t *testing.T) {
	withIDs(t)
	post := models.Post{PostID: "p"}
	post, _ = Toggle(post, ann, "👍")
	post, _ = Toggle(post, bob, "👍")
	post, _ = Toggle(post, ann, "🎉")

	post, ch := Toggle(post, bob, "👍")
	require.Equal(t, Removed, ch.Result)
	require.Len(t, post.Reactions, 2)
	for _, r := range post.Reactions {
		assert.Equal(t, "a", r.User.UID)
	}
}

func TestGroupReactions_TwoUsersSameEmoji(t *testing.T) {
	withIDs(t)
	post := models.Post{PostID: "p"}
	post, _ = Toggle(post, ann, "👍")
	post, _ = Toggle(post, bob, "👍")

	groups := GroupReactions(post.Reactions, ResolverFor([]models.User{ann, bob}))
	want := map[string]Group{"👍": {Count: 2, ContributingUserNames: []string{"Ann", "Bob"}}}
	require.Empty(t, cmp.Diff(want, groups))
}

func TestGroupReactions_CountsSumToLength(t *testing.T) {
	reactions := []models.Reaction{
		{User: ann, Emoji: "👍"}, {User: bob, Emoji: "👍"},
		{User: ann, Emoji: "🎉"}, {User: bob, Emoji: "😂"}, {User: ann, Emoji: "😂"},
	}
	groups := GroupReactions(reactions, ResolverFor([]models.User{ann, bob}))

	sum := 0
	for _, g := range groups {
		sum += g.Count
		assert.Len(t, g.ContributingUserNames, g.Count)
	}
	require.Equal(t, len(reactions), sum)
}

func TestGroupReactions_SkipsUnresolvedUsers(t *testing.T) {
	reactions := []models.Reaction{
		{User: ann, Emoji: "👍"},
		{User: models.User{UID: "gone", Name: "Ghost"}, Emoji: "👍"},
		{User: models.User{UID: "gone"}, Emoji: "🎉"},
	}
	groups := GroupReactions(reactions, ResolverFor([]models.User{{UID: "a", Name: "Ann Renamed"}}))

	require.Len(t, groups, 1)
	require.Equal(t, Group{Count: 1, ContributingUserNames: []string{"Ann Renamed"}}, groups["👍"])
}

func TestGroupReactions_Empty(t *testing.T) {
	require.Empty(t, GroupReactions(nil, ResolverFor(nil)))
}

func TestSorted(t *testing.T) {
	got := Sorted(map[string]Group{
		"b": {Count: 1},
		"a": {Count: 1},
		"c": {Count: 3},
	})
	var order []string
	for _, e := range got {
		order = append(order, e.Emoji)
	}
	require.Equal(t, []string{"c", "a", "b"}, order)
}

func TestResult_String(t *testing.T) {
	assert.Equal(t, "added", Added.String())
	assert.Equal(t, "removed", Removed.String())
	assert.Equal(t, "unknown", Result(0).String())
}
