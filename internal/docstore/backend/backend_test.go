package backend

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/chatsync/internal/docstore"
	"github.com/dmitrijs2005/chatsync/internal/docstore/firestorestore"
	"github.com/dmitrijs2005/chatsync/internal/docstore/sqlstore"
	"github.com/dmitrijs2005/chatsync/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_Memory(t *testing.T) {
	for _, name := range []string{"", Memory} {
		o, err := Open(context.Background(), Config{Backend: name}, logging.Discard())
		require.NoError(t, err)
		assert.IsType(t, &docstore.MemoryStore{}, o.Store)
		assert.NoError(t, o.Close())
	}
}

func TestOpen_SQLite(t *testing.T) {
	o, err := Open(context.Background(), Config{Backend: SQLite, DSN: "file:backend_open?mode=memory&cache=shared"}, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = o.Close() })

	_, err = o.Store.Create(context.Background(), "users", "u1", docstore.Document{"name": "Ann"})
	require.NoError(t, err)
}

func TestOpen_Unknown(t *testing.T) {
	_, err := Open(context.Background(), Config{Backend: "couchdb"}, logging.Discard())
	require.ErrorContains(t, err, "unknown store backend")
}

func TestOpen_RoutesConfig(t *testing.T) {
	origRedis, origSQL, origFS, origMongo, origGRPC := openRedis, openSQL, openFirestore, openMongo, openGRPC
	t.Cleanup(func() {
		openRedis, openSQL, openFirestore, openMongo, openGRPC = origRedis, origSQL, origFS, origMongo, origGRPC
	})

	var got []string
	fake := docstore.NewMemoryStore()

	openRedis = func(dsn string, _ logging.Logger) (docstore.Store, func() error, error) {
		got = append(got, "redis "+dsn)
		return fake, nopClose, nil
	}
	openSQL = func(_ context.Context, d sqlstore.Dialect, dsn string, _ logging.Logger) (docstore.Store, func() error, error) {
		got = append(got, d.Name+" "+dsn)
		return fake, nopClose, nil
	}
	openFirestore = func(_ context.Context, cfg firestorestore.Config, _ logging.Logger) (docstore.Store, func() error, error) {
		got = append(got, "firestore "+cfg.ProjectID+" "+cfg.CredentialsFile)
		return fake, nopClose, nil
	}
	openMongo = func(_ context.Context, uri, db string, _ logging.Logger) (docstore.Store, func() error, error) {
		got = append(got, "mongo "+uri+" "+db)
		return fake, nopClose, nil
	}
	openGRPC = func(target, token string, _ logging.Logger) (docstore.Store, func() error, error) {
		got = append(got, "grpc "+target+" "+token)
		return nil, nil, errors.New("refused")
	}

	ctx := context.Background()
	for _, c := range []Config{
		{Backend: Redis, DSN: "redis://localhost:6379/0"},
		{Backend: Postgres, DSN: "postgres://x"},
		{Backend: SQLite, DSN: "chat.db"},
		{Backend: Firestore, DSN: "proj", CredentialsFile: "key.json"},
		{Backend: Mongo, DSN: "mongodb://m"},
	} {
		_, err := Open(ctx, c, logging.Discard())
		require.NoError(t, err, c.Backend)
	}
	_, err := Open(ctx, Config{Backend: GRPC, DSN: "relay:50051", AccessToken: "tok"}, logging.Discard())
	require.ErrorContains(t, err, "open grpc store: refused")

	assert.Equal(t, []string{
		"redis redis://localhost:6379/0",
		"postgres postgres://x",
		"sqlite chat.db",
		"firestore proj key.json",
		"mongo mongodb://m chatsync",
		"grpc relay:50051 tok",
	}, got)
}
