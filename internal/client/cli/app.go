package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/chatsync/internal/blob"
	"github.com/dmitrijs2005/chatsync/internal/client/config"
	"github.com/dmitrijs2005/chatsync/internal/client/services"
	"github.com/dmitrijs2005/chatsync/internal/common"
	"github.com/dmitrijs2005/chatsync/internal/docstore/backend"
	"github.com/dmitrijs2005/chatsync/internal/identity"
	"github.com/dmitrijs2005/chatsync/internal/logging"
	"github.com/dmitrijs2005/chatsync/internal/metrics"
	"github.com/dmitrijs2005/chatsync/internal/mirror"
	"github.com/dmitrijs2005/chatsync/internal/models"
	"github.com/dmitrijs2005/chatsync/internal/presence"
	"github.com/dmitrijs2005/chatsync/internal/search"
)

// firstSnapshotWait bounds how long Start waits for the channels collection
// before creating the team channel anyway.
var firstSnapshotWait = 10 * time.Second

const meiliHealthEvery = 30 * time.Second

type starter interface {
	Start(ctx context.Context) (<-chan struct{}, error)
}

// App is the interactive chat client: four collection mirrors, the services
// built on them and the REPL state of the signed-in user.
type App struct {
	config  *config.Config
	logger  logging.Logger
	metrics *metrics.Metrics
	reader  *bufio.Reader
	out     io.Writer

	store  backend.Opened
	meili  *search.Meili
	search *search.Service

	users     *mirror.Mirror[models.User]
	channels  *mirror.Mirror[models.Channel]
	threads   *mirror.Mirror[models.Thread]
	reactions *mirror.Mirror[models.Reaction]

	userService    services.UserService
	channelService services.ChannelService
	threadService  services.ThreadService
	tracker        *presence.Tracker

	provider identity.Provider
	jwt      *identity.JWTProvider // nil unless a token secret is configured
	guest    *identity.Guest
	signOut  func()

	unsubs []func()

	mu        sync.Mutex
	user      models.User
	channelID string
	selection models.ReactionSelection
}

// NewApp opens the configured document and blob stores and builds the client.
// Nothing is subscribed until Start.
func NewApp(ctx context.Context, c *config.Config, in io.Reader, out io.Writer, log logging.Logger) (*App, error) {
	opened, err := backend.Open(ctx, c.Store, log)
	if err != nil {
		return nil, fmt.Errorf("open document store: %w", err)
	}

	blobs, err := blob.New(ctx, c.Blob)
	if err != nil {
		_ = opened.Close()
		return nil, fmt.Errorf("open blob store: %w", err)
	}

	m := metrics.New()
	hooks := mirror.WithHooks(m.MirrorHooks())

	a := &App{
		config:    c,
		logger:    log.With("module", "cli"),
		metrics:   m,
		reader:    bufio.NewReader(in),
		out:       out,
		store:     opened,
		users:     mirror.New[models.User](opened.Store, common.CollectionUsers, log, hooks),
		channels:  mirror.New[models.Channel](opened.Store, common.CollectionChannels, log, hooks),
		threads:   mirror.New[models.Thread](opened.Store, common.CollectionThreads, log, hooks),
		reactions: mirror.New[models.Reaction](opened.Store, common.CollectionReactions, log, hooks),
	}

	var backendIdx search.Backend
	if c.MeiliURL != "" {
		a.meili = search.NewMeili(c.MeiliURL, c.MeiliKey, meiliHealthEvery, log)
		backendIdx = a.meili
	}
	a.search = search.NewService(backendIdx, a.channels.Snapshot, log)

	a.userService = services.NewUserService(a.users, blobs, log)
	a.channelService = services.NewChannelService(a.channels, a.reactions, a.userService, blobs, a.search, log)
	a.threadService = services.NewThreadService(a.threads, a.channels, log)
	a.tracker = presence.NewTracker(a.users, log, presence.Config{
		Interval: c.PresenceInterval,
		Window:   c.ActivityWindow,
		Hooks:    m.PresenceHooks(),
	})

	if c.TokenSecret != "" {
		a.jwt = identity.NewJWTProvider([]byte(c.TokenSecret))
		a.provider, a.signOut = a.jwt, a.jwt.SignOut
	} else {
		a.guest = identity.NewGuest()
		a.provider, a.signOut = a.guest, a.guest.SignOut
	}

	return a, nil
}

// Start subscribes the mirrors, starts the presence loop and the metrics
// endpoint, makes sure the team channel exists and signs in with the
// configured access token, if any.
func (a *App) Start(ctx context.Context) error {
	first := a.channels.Listen(ctx)

	for _, s := range []starter{a.users, a.channels, a.threads, a.reactions} {
		if _, err := s.Start(ctx); err != nil {
			return err
		}
	}

	go a.tracker.Run(ctx)
	go func() {
		if err := a.metrics.Serve(ctx, a.config.MetricsAddr, a.logger); err != nil {
			a.logger.Error(ctx, "metrics server", "error", err)
		}
	}()

	a.unsubs = append(a.unsubs,
		a.channels.Subscribe(func(cs []models.Channel) { a.search.Index(ctx, cs, nil) }),
		a.channelService.OnSelection(a.onSelection),
		a.provider.OnChange(func(id identity.Identity) { a.onIdentity(ctx, id) }),
	)

	select {
	case <-first:
	case <-time.After(firstSnapshotWait):
		a.logger.Warn(ctx, "no channels snapshot yet, continuing")
	case <-ctx.Done():
		return ctx.Err()
	}

	if _, err := a.channelService.EnsureTeamChannel(ctx); err != nil {
		return fmt.Errorf("team channel: %w", err)
	}

	if a.config.AccessToken != "" && a.jwt != nil {
		if err := a.Login(ctx, []string{a.config.AccessToken}); err != nil {
			a.logger.Warn(ctx, "sign-in with configured token failed", "error", err)
		}
	}
	return nil
}

// Run starts the client and blocks in the REPL until the user exits or the
// input ends.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	if err := a.Start(ctx); err != nil {
		return err
	}
	printlnFn("chatsync (type 'help' for commands)")
	runREPL(ctx, a, a.status, a.reader)
	return nil
}

// Close releases subscriptions and the stores.
func (a *App) Close() {
	for _, u := range a.unsubs {
		u()
	}
	a.unsubs = nil
	if a.meili != nil {
		a.meili.Close()
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn(context.Background(), "close document store", "error", err)
	}
}

func (a *App) onIdentity(ctx context.Context, id identity.Identity) {
	a.tracker.SetCurrentUser(id.UID)
	if id.SignedIn() {
		a.logger.Info(ctx, "signed in", "uid", id.UID)
	}
}

func (a *App) onSelection(sel models.ReactionSelection) {
	a.mu.Lock()
	a.selection = sel
	a.mu.Unlock()
}

func (a *App) isLoggedIn() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.user.UID != ""
}

func (a *App) currentUser() models.User {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.user
}

func (a *App) currentChannel() (models.Channel, error) {
	a.mu.Lock()
	id := a.channelID
	a.mu.Unlock()

	if id == "" {
		return models.Channel{}, errNoChannel
	}
	ch, ok := a.channels.Get(id)
	if !ok {
		return models.Channel{}, fmt.Errorf("channel %s: %w", id, common.ErrReferenceNotFound)
	}
	return ch, nil
}

func (a *App) status() string {
	u := a.currentUser()
	if u.UID == "" {
		return "(not logged in)"
	}
	ch, err := a.currentChannel()
	if err != nil {
		return u.DisplayName()
	}
	return fmt.Sprintf("%s #%s", u.DisplayName(), ch.Name)
}

var errNoChannel = errors.New("no channel open, use 'open'")

// readFile is a test seam for attachment and avatar uploads.
var readFile = os.ReadFile
