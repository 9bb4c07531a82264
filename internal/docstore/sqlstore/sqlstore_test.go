package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/chatsync/internal/common"
	"github.com/dmitrijs2005/chatsync/internal/docstore"
	"github.com/dmitrijs2005/chatsync/internal/docstore/storetest"
	"github.com/dmitrijs2005/chatsync/internal/logging"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var dbSeq atomic.Int64

func openSQLite(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:chatsync%d?mode=memory&cache=shared", dbSeq.Add(1))
	s, err := Open(context.Background(), SQLite, dsn, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore_Conformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) docstore.Store { return openSQLite(t) })
}

func TestSQLiteStore_MissingDocuments(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()

	require.ErrorIs(t, s.Replace(ctx, "users", "nope", docstore.Document{}), common.ErrorNotFound)
	require.ErrorIs(t, s.Delete(ctx, "users", "nope"), common.ErrorNotFound)

	_, err := s.Create(ctx, "users", "u1", docstore.Document{})
	require.NoError(t, err)
	_, err = s.Create(ctx, "users", "u1", docstore.Document{})
	require.Error(t, err, "primary key violation")
}

func TestSQLiteStore_KeepsInsertionOrderAcrossReplace(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_, err := s.Create(ctx, "threads", id, docstore.Document{"id": id})
		require.NoError(t, err)
	}
	require.NoError(t, s.Replace(ctx, "threads", "a", docstore.Document{"id": "a", "v": 2.0}))

	snap, err := s.load(ctx, s.db, "threads")
	require.NoError(t, err)
	var ids []string
	for _, r := range snap.Records {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
	assert.Equal(t, 2.0, snap.Records[0].Doc["v"])
}

func TestRebind(t *testing.T) {
	q := `UPDATE documents SET body = ? WHERE collection = ? AND id = ?`
	assert.Equal(t, q, SQLite.rebind(q))
	assert.Equal(t, `UPDATE documents SET body = $1 WHERE collection = $2 AND id = $3`, Postgres.rebind(q))
}

func TestDialectByName(t *testing.T) {
	d, err := DialectByName("postgres")
	require.NoError(t, err)
	assert.Equal(t, Postgres, d)

	d, err = DialectByName("sqlite")
	require.NoError(t, err)
	assert.Equal(t, SQLite, d)

	_, err = DialectByName("oracle")
	require.Error(t, err)
}

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db, Postgres, logging.Discard()), mock
}

func TestPostgres_CreateNotifiesInTransaction(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COALESCE(MAX(seq), 0) + 1 FROM documents WHERE collection = $1`).
		WithArgs("channels").
		WillReturnRows(sqlmock.NewRows([]string{"seq"}).AddRow(int64(4)))
	mock.ExpectExec(`INSERT INTO documents (collection, id, seq, body) VALUES ($1, $2, $3, $4)`).
		WithArgs("channels", "c1", int64(4), `{"name":"Team"}`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`SELECT pg_notify($1, $2)`).
		WithArgs(NotifyChannel, "channels").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	id, err := s.Create(context.Background(), "channels", "c1", docstore.Document{"name": "Team"})
	require.NoError(t, err)
	require.Equal(t, "c1", id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ReplaceMissingRollsBack(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE documents SET body = $1 WHERE collection = $2 AND id = $3`).
		WithArgs(`{}`, "users", "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.Replace(context.Background(), "users", "ghost", docstore.Document{})
	require.ErrorIs(t, err, common.ErrorNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_DeleteBeginError(t *testing.T) {
	s, mock := newMock(t)
	boom := errors.New("conn refused")
	mock.ExpectBegin().WillReturnError(boom)

	err := s.Delete(context.Background(), "users", "u1")
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_NotifyFailureRollsBack(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM documents WHERE collection = $1 AND id = $2`).
		WithArgs("users", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`SELECT pg_notify($1, $2)`).
		WithArgs(NotifyChannel, "users").
		WillReturnError(errors.New("notify failed"))
	mock.ExpectRollback()

	err := s.Delete(context.Background(), "users", "u1")
	require.ErrorContains(t, err, "notify failed")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_PropagatesError(t *testing.T) {
	prev := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("migration failed")
	}
	t.Cleanup(func() { gooseUpContext = prev })

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	err = RunMigrations(context.Background(), db, Postgres)
	require.ErrorContains(t, err, "migration failed")
}
