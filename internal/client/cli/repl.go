package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL drives. App satisfies it; tests
// provide a recording stub.
type execIface interface {
	isLoggedIn() bool
	Activity(ctx context.Context)
	Login(ctx context.Context, args []string) error
	Logout(ctx context.Context) error
	Channels(ctx context.Context) error
	Open(ctx context.Context, args []string) error
	NewChannel(ctx context.Context, args []string) error
	PM(ctx context.Context, args []string) error
	Post(ctx context.Context, args []string) error
	Attach(ctx context.Context, args []string) error
	Posts(ctx context.Context) error
	React(ctx context.Context, args []string) error
	Reactions(ctx context.Context, args []string) error
	Thread(ctx context.Context, args []string) error
	Reply(ctx context.Context, args []string) error
	Users(ctx context.Context) error
	Search(ctx context.Context, args []string) error
	Profile(ctx context.Context, args []string) error
	Avatar(ctx context.Context, args []string) error
}

const (
	helpLoggedOut = "Available commands: login [token|name], exit"
	helpLoggedIn  = "Available commands: channels, open <n|id>, channel <name> [description], pm <user>, " +
		"post [text], attach <file> [caption], posts, react <post> <emoji>, reactions <post>, " +
		"thread <post>, reply <post> <text>, users, search <text>, name <new name>, avatar <file>, logout, exit"
)

// runREPL reads commands from reader until EOF or exit/quit and dispatches
// them to a. Every command typed while signed in counts as user activity.
// Command errors are printed and the loop goes on. Commands prompting for
// more input read from the same reader.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("chat %s > ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		if a.isLoggedIn() {
			a.Activity(ctx)
		}

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpLoggedOut)
			}

		case "exit", "quit":
			printlnFn("Bye!")
			return

		case "login":
			cmdErr = a.Login(ctx, args)

		default:
			if !a.isLoggedIn() {
				printlnFn("Please log in first")
				continue
			}
			cmdErr = dispatch(ctx, a, cmd, args)
		}

		if cmdErr != nil {
			printlnFn("error:", cmdErr)
		}
	}
}

func dispatch(ctx context.Context, a execIface, cmd string, args []string) error {
	switch cmd {
	case "logout":
		return a.Logout(ctx)
	case "channels", "ls":
		return a.Channels(ctx)
	case "open", "join":
		return a.Open(ctx, args)
	case "channel":
		return a.NewChannel(ctx, args)
	case "pm":
		return a.PM(ctx, args)
	case "post", "say":
		return a.Post(ctx, args)
	case "attach":
		return a.Attach(ctx, args)
	case "posts":
		return a.Posts(ctx)
	case "react":
		return a.React(ctx, args)
	case "reactions":
		return a.Reactions(ctx, args)
	case "thread":
		return a.Thread(ctx, args)
	case "reply":
		return a.Reply(ctx, args)
	case "users", "who":
		return a.Users(ctx)
	case "search":
		return a.Search(ctx, args)
	case "name":
		return a.Profile(ctx, args)
	case "avatar":
		return a.Avatar(ctx, args)
	default:
		printlnFn("Unknown command:", cmd)
		return nil
	}
}
