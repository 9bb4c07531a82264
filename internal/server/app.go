// Package server runs the relay: it opens the configured document store,
// serves it over gRPC, exposes metrics and stops on SIGINT/SIGTERM/SIGQUIT.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/chatsync/internal/docstore/backend"
	"github.com/dmitrijs2005/chatsync/internal/identity"
	"github.com/dmitrijs2005/chatsync/internal/logging"
	"github.com/dmitrijs2005/chatsync/internal/metrics"
	"github.com/dmitrijs2005/chatsync/internal/server/config"

	gs "github.com/dmitrijs2005/chatsync/internal/server/grpc"
)

// openStore is a test seam for backend.Open.
var openStore = backend.Open

type App struct {
	config  *config.Config
	logger  logging.Logger
	metrics *metrics.Metrics
}

// NewApp builds the relay. Logs go to w as JSON.
func NewApp(c *config.Config, w io.Writer) *App {
	return &App{
		config:  c,
		logger:  logging.New(w, c.LogLevel, true),
		metrics: metrics.New(),
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// IssueToken signs an access token clients can log in with.
func (app *App) IssueToken(id identity.Identity) (string, error) {
	if app.config.SecretKey == "" {
		return "", errors.New("no token secret configured")
	}
	return identity.GenerateToken(id, []byte(app.config.SecretKey), app.config.AccessTokenValidityDuration)
}

// Run serves until ctx is done, a signal arrives or the gRPC server fails.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting relay...", "store", app.config.Store.Backend, "addr", app.config.EndpointAddrGRPC)
	app.initSignalHandler(cancelFunc)

	opened, err := openStore(ctx, app.config.Store, app.logger)
	if err != nil {
		return fmt.Errorf("open document store: %w", err)
	}
	defer func() {
		if err := opened.Close(); err != nil {
			app.logger.Warn(context.Background(), "close document store", "error", err)
		}
	}()

	if app.config.SecretKey == "" {
		app.logger.Warn(ctx, "no token secret configured, authentication disabled")
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.metrics.Serve(ctx, app.config.MetricsAddr, app.logger); err != nil {
			app.logger.Error(ctx, "metrics server", "error", err)
			cancelFunc()
		}
	}()

	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, opened.Store, app.config.SecretKey, app.metrics.RelayHooks())
	err = s.Run(ctx)
	if err != nil {
		app.logger.Error(ctx, err.Error())
	}

	cancelFunc()
	wg.Wait()
	app.logger.Info(context.Background(), "relay stopped")
	return err
}
