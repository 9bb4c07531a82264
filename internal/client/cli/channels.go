package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/chatsync/internal/common"
	"github.com/dmitrijs2005/chatsync/internal/models"
	"github.com/dmitrijs2005/chatsync/internal/reactions"
	"github.com/dmitrijs2005/chatsync/internal/search"
)

const searchLimit = 20

// Channels lists the channels visible to the signed-in user.
func (a *App) Channels(ctx context.Context) error {
	a.mu.Lock()
	open := a.channelID
	a.mu.Unlock()

	visible := a.channelService.Visible(a.currentUser().UID)
	if len(visible) == 0 {
		fmt.Fprintln(a.out, "No channels")
		return nil
	}
	for i, c := range visible {
		marker := " "
		if c.ChannelID == open {
			marker = "*"
		}
		kind := ""
		switch {
		case c.IsPMChannel:
			kind = " (pm)"
		case c.IsTeam():
			kind = " (team)"
		}
		fmt.Fprintf(a.out, "%s [%d] %s%s  %d posts\n", marker, i+1, c.Name, kind, len(c.Posts))
	}
	return nil
}

// Open makes a channel current. It accepts the list number, the id or the
// name of a visible channel.
func (a *App) Open(ctx context.Context, args []string) error {
	ref := strings.Join(args, " ")
	if ref == "" {
		return errors.New("usage: open <number|id|name>")
	}
	c, err := resolveChannel(a.channelService.Visible(a.currentUser().UID), ref)
	if err != nil {
		return err
	}
	a.setChannel(c.ChannelID)
	fmt.Fprintf(a.out, "Opened #%s\n", c.Name)
	return a.Posts(ctx)
}

// NewChannel creates a channel authored by the signed-in user and opens it.
func (a *App) NewChannel(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: channel <name> [description]")
	}
	id, err := a.channelService.CreateChannel(ctx, args[0], strings.Join(args[1:], " "), a.currentUser(), nil)
	if err != nil {
		return err
	}
	a.setChannel(id)
	fmt.Fprintf(a.out, "Created #%s\n", args[0])
	return nil
}

// PM opens the private channel with another user, creating it if needed.
func (a *App) PM(ctx context.Context, args []string) error {
	ref := strings.Join(args, " ")
	if ref == "" {
		return errors.New("usage: pm <user>")
	}
	me := a.currentUser()

	var other models.User
	found := false
	for _, u := range a.userService.Users() {
		if u.UID == me.UID {
			continue
		}
		if u.UID == ref || strings.EqualFold(u.DisplayName(), ref) {
			other, found = u, true
			break
		}
	}
	if !found {
		return fmt.Errorf("user %q: %w", ref, common.ErrReferenceNotFound)
	}

	id, err := a.channelService.CreatePMChannel(ctx, me, other)
	if err != nil {
		return err
	}
	a.setChannel(id)
	fmt.Fprintf(a.out, "Talking to %s\n", other.DisplayName())
	return nil
}

// Post adds a text message to the open channel. Without arguments the
// message is read as multiple lines.
func (a *App) Post(ctx context.Context, args []string) error {
	c, err := a.currentChannel()
	if err != nil {
		return err
	}
	text := strings.Join(args, " ")
	if text == "" {
		if text, err = GetMultiline(a.reader, "Message", a.out); err != nil {
			return err
		}
	}
	if text == "" {
		return errors.New("empty message")
	}
	_, err = a.channelService.AddPost(ctx, c.ChannelID, a.currentUser().UID, text, nil)
	return err
}

// Attach posts a file with an optional caption to the open channel.
func (a *App) Attach(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: attach <file> [caption]")
	}
	c, err := a.currentChannel()
	if err != nil {
		return err
	}
	data, err := readFile(args[0])
	if err != nil {
		return err
	}
	p, err := a.channelService.AddPost(ctx, c.ChannelID, a.currentUser().UID, strings.Join(args[1:], " "), data)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Attached:", p.AttachmentSrc)
	return nil
}

// Posts prints the open channel with reactions and thread sizes.
func (a *App) Posts(ctx context.Context) error {
	c, err := a.currentChannel()
	if err != nil {
		return err
	}
	if len(c.Posts) == 0 {
		fmt.Fprintln(a.out, "No posts yet")
		return nil
	}
	for i, p := range c.Posts {
		fmt.Fprintf(a.out, "[%d] %s\n", i+1, a.formatPost(p))
		if groups, err := a.channelService.GroupedReactions(c.ChannelID, p.PostID); err == nil && len(groups) > 0 {
			fmt.Fprintf(a.out, "     %s\n", formatGroups(groups))
		}
		if p.Thread != nil {
			if replies, err := a.threadService.Ordered(p.Thread.ThreadID); err == nil {
				fmt.Fprintf(a.out, "     thread: %d replies\n", len(replies))
			}
		}
	}
	return nil
}

// React toggles an emoji on a post. With only an emoji it goes to the post
// whose reaction picker is open.
func (a *App) React(ctx context.Context, args []string) error {
	c, err := a.currentChannel()
	if err != nil {
		return err
	}

	var postID, emoji string
	switch len(args) {
	case 1:
		a.mu.Lock()
		sel := a.selection
		a.mu.Unlock()
		if !sel.Open {
			return errors.New("usage: react <post> <emoji>")
		}
		postID, emoji = sel.PostID, args[0]
	case 2:
		p, err := resolvePost(c, args[0])
		if err != nil {
			return err
		}
		postID, emoji = p.PostID, args[1]
	default:
		return errors.New("usage: react <post> <emoji>")
	}

	change, err := a.channelService.ToggleReaction(ctx, c.ChannelID, postID, a.currentUser(), emoji)
	a.channelService.SelectReaction(postID, false)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s %s\n", emoji, change.Result)
	return nil
}

// Reactions shows who reacted to a post and opens its reaction picker.
func (a *App) Reactions(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: reactions <post>")
	}
	c, err := a.currentChannel()
	if err != nil {
		return err
	}
	p, err := resolvePost(c, args[0])
	if err != nil {
		return err
	}
	groups, err := a.channelService.GroupedReactions(c.ChannelID, p.PostID)
	if err != nil {
		return err
	}

	a.channelService.SelectReaction(p.PostID, true)
	if len(groups) == 0 {
		fmt.Fprintln(a.out, "No reactions yet")
	}
	for _, e := range reactions.Sorted(groups) {
		fmt.Fprintf(a.out, "%s %d: %s\n", e.Emoji, e.Count, strings.Join(e.ContributingUserNames, ", "))
	}
	fmt.Fprintln(a.out, "Type 'react <emoji>' to toggle one")
	return nil
}

// Search looks for channels and posts by text.
func (a *App) Search(ctx context.Context, args []string) error {
	text := strings.Join(args, " ")
	if text == "" {
		return errors.New("usage: search <text>")
	}
	results := a.channelService.Search(ctx, search.Query{Text: text, Limit: searchLimit})
	if len(results) == 0 {
		fmt.Fprintln(a.out, "Nothing found")
		return nil
	}
	for _, r := range results {
		switch r.Type {
		case search.ResultChannel:
			fmt.Fprintf(a.out, "#%s\n", r.ChannelName)
		default:
			fmt.Fprintf(a.out, "#%s %s: %s\n", r.ChannelName, a.userName(r.UserID), r.Message)
		}
	}
	return nil
}

func (a *App) setChannel(id string) {
	a.mu.Lock()
	a.channelID = id
	a.mu.Unlock()
}

func (a *App) userName(uid string) string {
	if u, ok := a.userService.Resolve(uid); ok {
		return u.DisplayName()
	}
	return uid
}

func (a *App) formatPost(p models.Post) string {
	var b strings.Builder
	b.WriteString(time.UnixMilli(p.Date).Format("15:04"))
	b.WriteString(" ")
	b.WriteString(a.userName(p.UserID))
	b.WriteString(": ")
	b.WriteString(p.Message)
	if p.AttachmentSrc != "" {
		if p.Message != "" {
			b.WriteString(" ")
		}
		b.WriteString("<" + p.AttachmentSrc + ">")
	}
	return b.String()
}

func formatGroups(groups map[string]reactions.Group) string {
	parts := make([]string, 0, len(groups))
	for _, e := range reactions.Sorted(groups) {
		parts = append(parts, fmt.Sprintf("%s %d", e.Emoji, e.Count))
	}
	return strings.Join(parts, "  ")
}

// resolveChannel finds a channel by 1-based list number, id or name.
func resolveChannel(channels []models.Channel, ref string) (models.Channel, error) {
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(channels) {
		return channels[n-1], nil
	}
	for _, c := range channels {
		if c.ChannelID == ref || strings.EqualFold(c.Name, ref) {
			return c, nil
		}
	}
	return models.Channel{}, fmt.Errorf("channel %q: %w", ref, common.ErrReferenceNotFound)
}

// resolvePost finds a post of c by 1-based position or id.
func resolvePost(c models.Channel, ref string) (models.Post, error) {
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(c.Posts) {
		return c.Posts[n-1], nil
	}
	if i := c.PostIndex(ref); i >= 0 {
		return c.Posts[i], nil
	}
	return models.Post{}, fmt.Errorf("post %q: %w", ref, common.ErrReferenceNotFound)
}
