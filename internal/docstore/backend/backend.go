// Package backend opens the docstore.Store named by configuration.
package backend

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/chatsync/internal/docstore"
	"github.com/dmitrijs2005/chatsync/internal/docstore/firestorestore"
	"github.com/dmitrijs2005/chatsync/internal/docstore/grpcstore"
	"github.com/dmitrijs2005/chatsync/internal/docstore/mongostore"
	"github.com/dmitrijs2005/chatsync/internal/docstore/redisstore"
	"github.com/dmitrijs2005/chatsync/internal/docstore/sqlstore"
	"github.com/dmitrijs2005/chatsync/internal/logging"
)

const (
	Memory    = "memory"
	Redis     = "redis"
	Postgres  = "postgres"
	SQLite    = "sqlite"
	Firestore = "firestore"
	Mongo     = "mongo"
	GRPC      = "grpc"
)

// Config names a backend and how to reach it. DSN is the redis URL, SQL
// data source, Mongo URI, Firestore project id or relay address.
type Config struct {
	Backend         string `json:"backend"`
	DSN             string `json:"dsn"`
	Database        string `json:"database"`
	CredentialsFile string `json:"credentials_file"`
	AccessToken     string `json:"-"`
}

// Opened is a store together with the function releasing it.
type Opened struct {
	Store docstore.Store
	Close func() error
}

func nopClose() error { return nil }

// Seams for tests.
var (
	openRedis = func(dsn string, log logging.Logger) (docstore.Store, func() error, error) {
		s, err := redisstore.New(dsn, log)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	openSQL = func(ctx context.Context, d sqlstore.Dialect, dsn string, log logging.Logger) (docstore.Store, func() error, error) {
		s, err := sqlstore.Open(ctx, d, dsn, log)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	openFirestore = func(ctx context.Context, cfg firestorestore.Config, log logging.Logger) (docstore.Store, func() error, error) {
		s, err := firestorestore.New(ctx, cfg, log)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	openMongo = func(ctx context.Context, uri, db string, log logging.Logger) (docstore.Store, func() error, error) {
		s, err := mongostore.Connect(ctx, uri, db, log)
		if err != nil {
			return nil, nil, err
		}
		return s, func() error { return s.Close(context.Background()) }, nil
	}
	openGRPC = func(target, token string, log logging.Logger) (docstore.Store, func() error, error) {
		c, err := grpcstore.Dial(target, token, log)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	}
)

func Open(ctx context.Context, c Config, log logging.Logger) (Opened, error) {
	var (
		store   docstore.Store
		closeFn func() error
		err     error
	)

	switch c.Backend {
	case "", Memory:
		store, closeFn = docstore.NewMemoryStore(), nopClose
	case Redis:
		store, closeFn, err = openRedis(c.DSN, log)
	case Postgres:
		store, closeFn, err = openSQL(ctx, sqlstore.Postgres, c.DSN, log)
	case SQLite:
		store, closeFn, err = openSQL(ctx, sqlstore.SQLite, c.DSN, log)
	case Firestore:
		store, closeFn, err = openFirestore(ctx, firestorestore.Config{ProjectID: c.DSN, CredentialsFile: c.CredentialsFile}, log)
	case Mongo:
		db := c.Database
		if db == "" {
			db = "chatsync"
		}
		store, closeFn, err = openMongo(ctx, c.DSN, db, log)
	case GRPC:
		store, closeFn, err = openGRPC(c.DSN, c.AccessToken, log)
	default:
		return Opened{}, fmt.Errorf("unknown store backend %q", c.Backend)
	}
	if err != nil {
		return Opened{}, fmt.Errorf("open %s store: %w", c.Backend, err)
	}

	log.Info(ctx, "document store opened", "backend", c.Backend)
	return Opened{Store: store, Close: closeFn}, nil
}
