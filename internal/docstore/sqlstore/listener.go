package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/chatsync/internal/logging"
	"github.com/jackc/pgx/v5"
)

// listener forwards Postgres notifications to the store's subscribers.
type listener struct {
	dsn   string
	conn  *pgx.Conn
	store *Store
	log   logging.Logger
}

func newListener(ctx context.Context, dsn string, s *Store, log logging.Logger) (*listener, error) {
	l := &listener{dsn: dsn, store: s, log: log}
	if err := l.connect(ctx); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *listener) connect(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.dsn)
	if err != nil {
		return fmt.Errorf("listen connect: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{NotifyChannel}.Sanitize()); err != nil {
		_ = conn.Close(ctx)
		return fmt.Errorf("listen: %w", err)
	}
	l.conn = conn
	return nil
}

func (l *listener) run(ctx context.Context) {
	defer func() {
		if l.conn != nil {
			_ = l.conn.Close(context.Background())
		}
	}()

	for {
		n, err := l.conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			l.log.Warn(ctx, "notification stream failed, reconnecting", "error", err)
			_ = l.conn.Close(ctx)
			l.conn = nil
			if !l.reconnect(ctx) {
				return
			}
			continue
		}
		_ = l.store.refresh(ctx, n.Payload)
	}
}

func (l *listener) reconnect(ctx context.Context) bool {
	backoff := 500 * time.Millisecond
	for {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(backoff):
		}
		if err := l.connect(ctx); err == nil {
			// changes may have been missed while disconnected
			l.store.refreshAll(ctx)
			return true
		}
		if backoff < 10*time.Second {
			backoff *= 2
		}
	}
}
