package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Thread shows the replies to a post, starting a thread on it if there is
// none yet.
func (a *App) Thread(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: thread <post>")
	}
	threadID, err := a.threadFor(ctx, args[0])
	if err != nil {
		return err
	}

	replies, err := a.threadService.Ordered(threadID)
	if err != nil {
		return err
	}
	if len(replies) == 0 {
		fmt.Fprintln(a.out, "No replies yet")
		return nil
	}
	for _, p := range replies {
		fmt.Fprintf(a.out, "  %s\n", a.formatPost(p))
	}
	return nil
}

// Reply answers a post in its thread.
func (a *App) Reply(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: reply <post> <text>")
	}
	threadID, err := a.threadFor(ctx, args[0])
	if err != nil {
		return err
	}
	_, err = a.threadService.Reply(ctx, threadID, a.currentUser().UID, strings.Join(args[1:], " "))
	return err
}

func (a *App) threadFor(ctx context.Context, ref string) (string, error) {
	c, err := a.currentChannel()
	if err != nil {
		return "", err
	}
	p, err := resolvePost(c, ref)
	if err != nil {
		return "", err
	}
	if p.Thread != nil && p.Thread.ThreadID != "" {
		return p.Thread.ThreadID, nil
	}
	return a.threadService.StartThread(ctx, c.ChannelID, p.PostID)
}
