package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/chatsync/internal/client/config"
	"github.com/dmitrijs2005/chatsync/internal/common"
	"github.com/dmitrijs2005/chatsync/internal/identity"
	"github.com/dmitrijs2005/chatsync/internal/logging"
	"github.com/dmitrijs2005/chatsync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c := &config.Config{}
	c.LoadDefaults()
	c.Blob.LocalDir = t.TempDir()
	c.Blob.PublicBase = "http://files.test"
	return c
}

func startApp(t *testing.T, c *config.Config, input string) (*App, *bytes.Buffer) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	var out bytes.Buffer
	a, err := NewApp(ctx, c, strings.NewReader(input), &out, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(a.Close)

	require.NoError(t, a.Start(ctx))
	return a, &out
}

func loggedIn(t *testing.T, name string) (*App, *bytes.Buffer) {
	t.Helper()
	a, out := startApp(t, testConfig(t), "")
	require.NoError(t, a.Login(context.Background(), []string{name}))
	out.Reset()
	return a, out
}

func TestStartCreatesTeamChannel(t *testing.T) {
	a, _ := startApp(t, testConfig(t), "")

	cs := a.channels.Snapshot()
	require.Len(t, cs, 1)
	assert.Equal(t, common.TeamChannelName, cs[0].Name)
	assert.True(t, cs[0].IsTeam())
	assert.Equal(t, "(not logged in)", a.status())
}

func TestLoginAsGuest(t *testing.T) {
	a, out := startApp(t, testConfig(t), "")
	ctx := context.Background()

	require.NoError(t, a.Login(ctx, []string{"alice", "smith"}))
	assert.Contains(t, out.String(), "Welcome, alice smith")
	assert.True(t, a.isLoggedIn())
	assert.Equal(t, "alice smith #Team", a.status())

	u, ok := a.users.Get(a.currentUser().UID)
	require.True(t, ok)
	assert.True(t, u.IsGuest())
	assert.Positive(t, u.LastActivity)
	assert.Equal(t, u.UID, a.tracker.CurrentUser())

	require.Error(t, a.Login(ctx, []string{"again"}))
}

func TestLoginPromptsForName(t *testing.T) {
	a, out := startApp(t, testConfig(t), "bob\n")

	require.NoError(t, a.Login(context.Background(), nil))
	assert.Contains(t, out.String(), "Display name")
	assert.Equal(t, "bob", a.currentUser().Name)
}

func TestLoginWithToken(t *testing.T) {
	c := testConfig(t)
	c.TokenSecret = "s3cret"
	token, err := identity.GenerateToken(identity.Identity{UID: "u-carol", DisplayName: "Carol", Email: "carol@example.com"},
		[]byte(c.TokenSecret), time.Hour)
	require.NoError(t, err)
	c.AccessToken = token

	a, _ := startApp(t, c, "")
	require.True(t, a.isLoggedIn())
	assert.Equal(t, "u-carol", a.currentUser().UID)
	assert.False(t, a.currentUser().IsGuest())
}

func TestLoginWithBadTokenFromPrompt(t *testing.T) {
	old := readPassword
	t.Cleanup(func() { readPassword = old })
	readPassword = func(int) ([]byte, error) { return []byte("not-a-token"), nil }

	c := testConfig(t)
	c.TokenSecret = "s3cret"
	a, _ := startApp(t, c, "")

	err := a.Login(context.Background(), nil)
	require.Error(t, err)
	assert.False(t, a.isLoggedIn())
	_, signedIn := a.provider.Current()
	assert.False(t, signedIn)
}

func TestLogoutWritesMarker(t *testing.T) {
	a, out := loggedIn(t, "alice")
	uid := a.currentUser().UID

	require.NoError(t, a.Logout(context.Background()))
	assert.Contains(t, out.String(), "Logged out")
	assert.False(t, a.isLoggedIn())
	assert.Empty(t, a.tracker.CurrentUser())

	u, ok := a.users.Get(uid)
	require.True(t, ok)
	assert.Equal(t, common.LoggedOutActivity, u.LastActivity)
}

func TestPostReactAndThread(t *testing.T) {
	a, out := loggedIn(t, "alice")
	ctx := context.Background()

	require.NoError(t, a.Post(ctx, []string{"hello", "world"}))
	ch, err := a.currentChannel()
	require.NoError(t, err)
	require.Len(t, ch.Posts, 1)
	assert.Equal(t, "hello world", ch.Posts[0].Message)

	require.NoError(t, a.React(ctx, []string{"1", "👍"}))
	assert.Contains(t, out.String(), "👍 added")

	require.NoError(t, a.Reactions(ctx, []string{"1"}))
	assert.Contains(t, out.String(), "👍 1: alice")
	assert.True(t, a.selection.Open)
	assert.Equal(t, ch.Posts[0].PostID, a.selection.PostID)

	// picker is open, so the emoji alone is enough
	require.NoError(t, a.React(ctx, []string{"👍"}))
	assert.Contains(t, out.String(), "👍 removed")
	assert.False(t, a.selection.Open)

	require.NoError(t, a.Reply(ctx, []string{"1", "first", "reply"}))
	out.Reset()
	require.NoError(t, a.Thread(ctx, []string{"1"}))
	assert.Contains(t, out.String(), "alice: first reply")

	out.Reset()
	require.NoError(t, a.Posts(ctx))
	assert.Contains(t, out.String(), "[1] ")
	assert.Contains(t, out.String(), "alice: hello world")
	assert.Contains(t, out.String(), "thread: 1 replies")
	assert.Len(t, a.threads.Snapshot(), 1)
}

func TestReactWithoutOpenPicker(t *testing.T) {
	a, _ := loggedIn(t, "alice")
	require.NoError(t, a.Post(context.Background(), []string{"hi"}))

	require.Error(t, a.React(context.Background(), []string{"👍"}))
	err := a.React(context.Background(), []string{"7", "👍"})
	require.ErrorIs(t, err, common.ErrReferenceNotFound)
}

func TestPostMultiline(t *testing.T) {
	a, _ := startApp(t, testConfig(t), "line one\nline two\n\n")
	ctx := context.Background()
	require.NoError(t, a.Login(ctx, []string{"alice"}))

	require.NoError(t, a.Post(ctx, nil))
	ch, err := a.currentChannel()
	require.NoError(t, err)
	require.Len(t, ch.Posts, 1)
	assert.Equal(t, "line one\nline two", ch.Posts[0].Message)
}

func TestChannelsAndPM(t *testing.T) {
	a, out := loggedIn(t, "alice")
	ctx := context.Background()

	_, err := a.users.Create(ctx, models.User{UID: "u-bob", Name: "bob"})
	require.NoError(t, err)

	require.NoError(t, a.PM(ctx, []string{"BOB"}))
	assert.Equal(t, "alice #alice, bob", a.status())

	require.NoError(t, a.NewChannel(ctx, []string{"random", "off", "topic"}))
	assert.Equal(t, "alice #random", a.status())

	out.Reset()
	require.NoError(t, a.Channels(ctx))
	assert.Contains(t, out.String(), "Team (team)")
	assert.Contains(t, out.String(), "alice, bob (pm)")
	assert.Contains(t, out.String(), "* [3] random")

	require.NoError(t, a.Open(ctx, []string{"team"}))
	assert.Equal(t, "alice #Team", a.status())

	err = a.PM(ctx, []string{"nobody"})
	require.ErrorIs(t, err, common.ErrReferenceNotFound)
}

func TestAttachAndAvatar(t *testing.T) {
	old := readFile
	t.Cleanup(func() { readFile = old })
	readFile = func(name string) ([]byte, error) {
		if name == "missing.png" {
			return nil, errors.New("no such file")
		}
		return pngHeader, nil
	}

	a, out := loggedIn(t, "alice")
	ctx := context.Background()

	require.NoError(t, a.Attach(ctx, []string{"pic.png", "look"}))
	ch, err := a.currentChannel()
	require.NoError(t, err)
	require.Len(t, ch.Posts, 1)
	assert.Equal(t, "look", ch.Posts[0].Message)
	assert.True(t, strings.HasPrefix(ch.Posts[0].AttachmentSrc, "http://files.test/attachments/"))
	assert.Contains(t, out.String(), "Attached: ")

	require.NoError(t, a.Avatar(ctx, []string{"me.png"}))
	u, ok := a.users.Get(a.currentUser().UID)
	require.True(t, ok)
	assert.Equal(t, "http://files.test/avatars/"+u.UID+".png", u.AvatarSrc)

	require.Error(t, a.Avatar(ctx, []string{"missing.png"}))
}

func TestUsersAndProfile(t *testing.T) {
	a, out := loggedIn(t, "alice")
	ctx := context.Background()

	require.NoError(t, a.Profile(ctx, []string{"Alice", "Liddell"}))
	assert.Equal(t, "Alice Liddell #Team", a.status())

	out.Reset()
	require.NoError(t, a.Users(ctx))
	assert.Contains(t, out.String(), "* Alice Liddell")
	assert.Contains(t, out.String(), string(models.StateActive))
}

func TestSearchFindsPosts(t *testing.T) {
	a, out := loggedIn(t, "alice")
	ctx := context.Background()
	require.NoError(t, a.Post(ctx, []string{"deploy", "at", "noon"}))

	require.NoError(t, a.Search(ctx, []string{"NOON"}))
	assert.Contains(t, out.String(), "#Team alice: deploy at noon")

	out.Reset()
	require.NoError(t, a.Search(ctx, []string{"zzz"}))
	assert.Contains(t, out.String(), "Nothing found")
}

func TestCommandsNeedOpenChannel(t *testing.T) {
	a, _ := loggedIn(t, "alice")
	a.setChannel("")

	require.ErrorIs(t, a.Post(context.Background(), []string{"x"}), errNoChannel)
	require.ErrorIs(t, a.Posts(context.Background()), errNoChannel)
	require.ErrorIs(t, a.Thread(context.Background(), []string{"1"}), errNoChannel)
}

func TestResolvePost(t *testing.T) {
	c := models.Channel{Posts: []models.Post{{PostID: "p1"}, {PostID: "p2"}}}

	tests := []struct {
		ref     string
		want    string
		wantErr bool
	}{
		{ref: "1", want: "p1"},
		{ref: "2", want: "p2"},
		{ref: "p2", want: "p2"},
		{ref: "3", wantErr: true},
		{ref: "0", wantErr: true},
		{ref: "nope", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.ref, func(t *testing.T) {
			p, err := resolvePost(c, tc.ref)
			if tc.wantErr {
				require.ErrorIs(t, err, common.ErrReferenceNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, p.PostID)
		})
	}
}

func TestResolveChannel(t *testing.T) {
	cs := []models.Channel{{ChannelID: "c1", Name: "Team"}, {ChannelID: "c2", Name: "random"}}

	c, err := resolveChannel(cs, "2")
	require.NoError(t, err)
	assert.Equal(t, "c2", c.ChannelID)

	c, err = resolveChannel(cs, "TEAM")
	require.NoError(t, err)
	assert.Equal(t, "c1", c.ChannelID)

	c, err = resolveChannel(cs, "c2")
	require.NoError(t, err)
	assert.Equal(t, "random", c.Name)

	_, err = resolveChannel(cs, "other")
	require.ErrorIs(t, err, common.ErrReferenceNotFound)
}
