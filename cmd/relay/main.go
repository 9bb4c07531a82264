package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/dmitrijs2005/chatsync/internal/flagx"
	"github.com/dmitrijs2005/chatsync/internal/identity"
	"github.com/dmitrijs2005/chatsync/internal/server"
	"github.com/dmitrijs2005/chatsync/internal/server/config"
)

// issueFlags reads -issue <uid> with optional -name and -email. When -issue
// is given the relay prints a signed access token and exits.
func issueFlags() identity.Identity {
	var id identity.Identity

	fs := flag.NewFlagSet("issue", flag.ContinueOnError)
	fs.StringVar(&id.UID, "issue", "", "print an access token for this uid and exit")
	fs.StringVar(&id.DisplayName, "name", "", "display name for -issue")
	fs.StringVar(&id.Email, "email", "", "email for -issue")
	if err := fs.Parse(flagx.FilterArgs(os.Args[1:], []string{"-issue", "-name", "-email"})); err != nil {
		panic(err)
	}
	return id
}

func main() {
	cfg := config.LoadConfig()
	app := server.NewApp(cfg, os.Stdout)

	if id := issueFlags(); id.UID != "" {
		token, err := app.IssueToken(id)
		if err != nil {
			log.Fatalf("%v", err)
		}
		fmt.Println(token)
		return
	}

	if err := app.Run(context.Background()); err != nil {
		log.Fatalf("%v", err)
	}
}
