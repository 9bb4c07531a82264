// Package sqlstore keeps document collections in a single SQL table.
//
// Postgres deployments share changes between processes through
// LISTEN/NOTIFY on a dedicated pgx connection. SQLite is single-process:
// subscribers are refreshed in-process after each committed write.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/chatsync/internal/common"
	"github.com/dmitrijs2005/chatsync/internal/dbx"
	"github.com/dmitrijs2005/chatsync/internal/docstore"
	"github.com/dmitrijs2005/chatsync/internal/docstore/sqlstore/migrations"
	"github.com/dmitrijs2005/chatsync/internal/logging"
	"github.com/google/uuid"
	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// NotifyChannel is the Postgres channel carrying collection names.
const NotifyChannel = "chatsync_documents"

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

var gooseMu sync.Mutex

// RunMigrations applies the embedded migrations.
func RunMigrations(ctx context.Context, db *sql.DB, d Dialect) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(d.GooseDialect); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

type Store struct {
	db      *sql.DB
	dialect Dialect
	log     logging.Logger

	mu   sync.Mutex
	subs map[string]map[*docstore.Feed]struct{}
	// one refresh at a time per collection, so snapshots go out in order
	refreshMu map[string]*sync.Mutex

	stopListen context.CancelFunc
}

// Open connects, migrates and, for Postgres, starts the change listener.
func Open(ctx context.Context, d Dialect, dsn string, log logging.Logger) (*Store, error) {
	db, err := sql.Open(d.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.Name, err)
	}
	if d.Name == SQLite.Name {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", d.Name, err)
	}
	if err := RunMigrations(ctx, db, d); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := New(db, d, log)
	if d.NotifyInTx {
		lctx, cancel := context.WithCancel(context.Background())
		l, err := newListener(lctx, dsn, s, s.log)
		if err != nil {
			cancel()
			_ = db.Close()
			return nil, err
		}
		s.stopListen = cancel
		go l.run(lctx)
	}
	return s, nil
}

// New wraps an already migrated database.
func New(db *sql.DB, d Dialect, log logging.Logger) *Store {
	return &Store{
		db:        db,
		dialect:   d,
		log:       log.With("module", "sqlstore", "dialect", d.Name),
		subs:      make(map[string]map[*docstore.Feed]struct{}),
		refreshMu: make(map[string]*sync.Mutex),
	}
}

func (s *Store) Close() error {
	if s.stopListen != nil {
		s.stopListen()
	}
	return s.db.Close()
}

func (s *Store) Subscribe(ctx context.Context, collection string) (<-chan docstore.Snapshot, error) {
	feed := docstore.NewFeed(ctx)
	s.mu.Lock()
	if s.subs[collection] == nil {
		s.subs[collection] = make(map[*docstore.Feed]struct{})
	}
	s.subs[collection][feed] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-feed.Done()
		s.mu.Lock()
		delete(s.subs[collection], feed)
		s.mu.Unlock()
	}()

	if err := s.refresh(context.WithoutCancel(ctx), collection); err != nil {
		feed.Close()
		return nil, err
	}
	return feed.C(), nil
}

// refresh reloads collection and pushes it to every subscriber.
func (s *Store) refresh(ctx context.Context, collection string) error {
	s.mu.Lock()
	if len(s.subs[collection]) == 0 {
		s.mu.Unlock()
		return nil
	}
	rm, ok := s.refreshMu[collection]
	if !ok {
		rm = &sync.Mutex{}
		s.refreshMu[collection] = rm
	}
	s.mu.Unlock()

	rm.Lock()
	defer rm.Unlock()

	snap, err := s.load(ctx, s.db, collection)
	if err != nil {
		s.log.Error(ctx, "reload collection", "collection", collection, "error", err)
		return err
	}

	s.mu.Lock()
	feeds := make([]*docstore.Feed, 0, len(s.subs[collection]))
	for f := range s.subs[collection] {
		feeds = append(feeds, f)
	}
	s.mu.Unlock()

	for _, f := range feeds {
		f.Push(docstore.Snapshot{Collection: collection, Records: cloneRecords(snap.Records)})
	}
	return nil
}

func cloneRecords(in []docstore.Record) []docstore.Record {
	out := make([]docstore.Record, len(in))
	for i, r := range in {
		out[i] = docstore.Record{ID: r.ID, Doc: docstore.Clone(r.Doc)}
	}
	return out
}

func (s *Store) load(ctx context.Context, db dbx.DBTX, collection string) (docstore.Snapshot, error) {
	rows, err := db.QueryContext(ctx,
		s.dialect.rebind(`SELECT id, body FROM documents WHERE collection = ? ORDER BY seq`), collection)
	if err != nil {
		return docstore.Snapshot{}, fmt.Errorf("load %s: %w", collection, err)
	}
	defer rows.Close()

	snap := docstore.Snapshot{Collection: collection, Records: []docstore.Record{}}
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return docstore.Snapshot{}, fmt.Errorf("scan %s: %w", collection, err)
		}
		var doc docstore.Document
		if err := json.Unmarshal([]byte(body), &doc); err != nil {
			s.log.Warn(ctx, "skipping corrupt document", "collection", collection, "id", id, "error", err)
			continue
		}
		snap.Records = append(snap.Records, docstore.Record{ID: id, Doc: doc})
	}
	if err := rows.Err(); err != nil {
		return docstore.Snapshot{}, fmt.Errorf("iterate %s: %w", collection, err)
	}
	return snap, nil
}

func (s *Store) write(ctx context.Context, collection string, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := fn(ctx, tx); err != nil {
			return err
		}
		if s.dialect.NotifyInTx {
			if _, err := tx.ExecContext(ctx, s.dialect.rebind(`SELECT pg_notify(?, ?)`), NotifyChannel, collection); err != nil {
				return fmt.Errorf("notify: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !s.dialect.NotifyInTx {
		_ = s.refresh(context.WithoutCancel(ctx), collection)
	}
	return nil
}

func (s *Store) Create(ctx context.Context, collection, id string, doc docstore.Document) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", collection, err)
	}

	err = s.write(ctx, collection, func(ctx context.Context, tx dbx.DBTX) error {
		var seq int64
		if err := tx.QueryRowContext(ctx,
			s.dialect.rebind(`SELECT COALESCE(MAX(seq), 0) + 1 FROM documents WHERE collection = ?`), collection,
		).Scan(&seq); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			s.dialect.rebind(`INSERT INTO documents (collection, id, seq, body) VALUES (?, ?, ?, ?)`),
			collection, id, seq, string(body))
		return err
	})
	if err != nil {
		return "", fmt.Errorf("create %s/%s: %w", collection, id, err)
	}
	return id, nil
}

func (s *Store) Replace(ctx context.Context, collection, id string, doc docstore.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("replace %s/%s: %w", collection, id, err)
	}

	err = s.write(ctx, collection, func(ctx context.Context, tx dbx.DBTX) error {
		res, err := tx.ExecContext(ctx,
			s.dialect.rebind(`UPDATE documents SET body = ? WHERE collection = ? AND id = ?`),
			string(body), collection, id)
		return affected(res, err)
	})
	if err != nil {
		return fmt.Errorf("replace %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	err := s.write(ctx, collection, func(ctx context.Context, tx dbx.DBTX) error {
		res, err := tx.ExecContext(ctx,
			s.dialect.rebind(`DELETE FROM documents WHERE collection = ? AND id = ?`), collection, id)
		return affected(res, err)
	})
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func affected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

var _ docstore.Store = (*Store)(nil)

func (s *Store) refreshAll(ctx context.Context) {
	s.mu.Lock()
	collections := make([]string, 0, len(s.subs))
	for c := range s.subs {
		collections = append(collections, c)
	}
	s.mu.Unlock()

	for _, c := range collections {
		_ = s.refresh(ctx, c)
	}
}
