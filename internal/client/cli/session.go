package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/chatsync/internal/identity"
	"github.com/dmitrijs2005/chatsync/internal/models"
	"github.com/dmitrijs2005/chatsync/internal/presence"
)

// Login signs in with a token when a token secret is configured and as a
// guest otherwise. Missing input is prompted for. The user document is
// created on first sign-in and the team channel is opened.
func (a *App) Login(ctx context.Context, args []string) error {
	if a.isLoggedIn() {
		return errors.New("already logged in, use 'logout' first")
	}

	var (
		id  identity.Identity
		err error
	)
	if a.jwt != nil {
		token := strings.Join(args, "")
		if token == "" {
			if token, err = GetSecret(a.out, "Access token"); err != nil {
				return err
			}
		}
		if id, err = a.jwt.SignIn(token); err != nil {
			return fmt.Errorf("sign in: %w", err)
		}
	} else {
		name := strings.Join(args, " ")
		if name == "" {
			if name, err = GetSimpleText(a.reader, "Display name", a.out); err != nil {
				return err
			}
		}
		if name == "" {
			return errors.New("a display name is required")
		}
		id = a.guest.SignIn(name)
	}

	u, err := a.userService.EnsureUser(ctx, id)
	if err != nil {
		a.signOut()
		return err
	}

	a.mu.Lock()
	a.user = u
	for _, c := range a.channelService.Visible(u.UID) {
		if c.IsTeam() {
			a.channelID = c.ChannelID
			break
		}
	}
	a.mu.Unlock()

	a.Activity(ctx)
	fmt.Fprintf(a.out, "Welcome, %s\n", u.DisplayName())
	return nil
}

// Logout writes the logged-out marker and clears the session.
func (a *App) Logout(ctx context.Context) error {
	u := a.currentUser()
	err := a.tracker.LogOut(ctx, u.UID)
	a.signOut()

	a.mu.Lock()
	a.user = models.User{}
	a.channelID = ""
	a.mu.Unlock()

	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

// Activity reports a key press for the signed-in user. The tracker decides
// whether it is written.
func (a *App) Activity(ctx context.Context) {
	_, _ = a.tracker.Observe(ctx, presence.KeyPress)
}

// Users prints every known user with a freshly reconciled presence state.
func (a *App) Users(ctx context.Context) error {
	states := a.tracker.Reconcile()
	if len(states) == 0 {
		fmt.Fprintln(a.out, "No users")
		return nil
	}
	me := a.currentUser().UID
	for _, s := range states {
		name := s.UID
		if u, ok := a.userService.Resolve(s.UID); ok {
			name = u.DisplayName()
		}
		marker := " "
		if s.UID == me {
			marker = "*"
		}
		fmt.Fprintf(a.out, "%s %-24s %s\n", marker, name, s.State)
	}
	return nil
}

// Profile renames the signed-in user.
func (a *App) Profile(ctx context.Context, args []string) error {
	name := strings.Join(args, " ")
	if name == "" {
		return errors.New("usage: name <new name>")
	}
	uid := a.currentUser().UID
	if err := a.userService.UpdateProfile(ctx, uid, name); err != nil {
		return err
	}

	a.mu.Lock()
	a.user.Name = name
	a.mu.Unlock()
	fmt.Fprintf(a.out, "You are now %s\n", name)
	return nil
}

// Avatar uploads an image file as the signed-in user's avatar.
func (a *App) Avatar(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: avatar <file>")
	}
	data, err := readFile(args[0])
	if err != nil {
		return err
	}

	uid := a.currentUser().UID
	url, err := a.userService.UploadAvatar(ctx, uid, data)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.user.AvatarSrc = url
	a.mu.Unlock()
	fmt.Fprintln(a.out, "Avatar:", url)
	return nil
}
