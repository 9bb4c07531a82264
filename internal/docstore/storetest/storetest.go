// Package storetest is a conformance suite run against every docstore.Store
// implementation.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/chatsync/internal/docstore"
	"github.com/stretchr/testify/require"
)

// Timeout bounds every wait for a snapshot.
var Timeout = 5 * time.Second

// Run executes the suite. newStore must return a fresh, empty store.
func Run(t *testing.T, newStore func(t *testing.T) docstore.Store) {
	t.Helper()

	t.Run("initial snapshot is empty", func(t *testing.T) {
		s := newStore(t)
		ch := subscribe(t, s, "users")
		snap := Next(t, ch)
		require.Equal(t, "users", snap.Collection)
		require.Empty(t, snap.Records)
	})

	t.Run("create with assigned and explicit ids", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		ch := subscribe(t, s, "channels")
		Next(t, ch)

		id, err := s.Create(ctx, "channels", "", docstore.Document{"name": "Team"})
		require.NoError(t, err)
		require.NotEmpty(t, id)

		_, err = s.Create(ctx, "channels", "fixed-id", docstore.Document{"name": "Random"})
		require.NoError(t, err)

		snap := WaitFor(t, ch, func(s docstore.Snapshot) bool { return len(s.Records) == 2 })
		require.Equal(t, id, snap.Records[0].ID)
		require.Equal(t, "Team", snap.Records[0].Doc["name"])
		require.Equal(t, "fixed-id", snap.Records[1].ID)
	})

	t.Run("replace overwrites the whole document", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		id, err := s.Create(ctx, "users", "u1", docstore.Document{"name": "Ann", "email": "a@x"})
		require.NoError(t, err)

		ch := subscribe(t, s, "users")
		Next(t, ch)

		require.NoError(t, s.Replace(ctx, "users", id, docstore.Document{"name": "Anna"}))
		snap := WaitFor(t, ch, func(s docstore.Snapshot) bool {
			return len(s.Records) == 1 && s.Records[0].Doc["name"] == "Anna"
		})
		_, hasEmail := snap.Records[0].Doc["email"]
		require.False(t, hasEmail, "replace must not merge fields")
	})

	t.Run("delete removes the document", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		_, err := s.Create(ctx, "threads", "t1", docstore.Document{"n": 1.0})
		require.NoError(t, err)
		_, err = s.Create(ctx, "threads", "t2", docstore.Document{"n": 2.0})
		require.NoError(t, err)

		ch := subscribe(t, s, "threads")
		Next(t, ch)

		require.NoError(t, s.Delete(ctx, "threads", "t1"))
		snap := WaitFor(t, ch, func(s docstore.Snapshot) bool { return len(s.Records) == 1 })
		require.Equal(t, "t2", snap.Records[0].ID)
	})

	t.Run("nested values survive", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		doc := docstore.Document{
			"name":    "Team",
			"members": []any{map[string]any{"uid": "u1", "lastActivity": 1700000000000.0}},
		}
		_, err := s.Create(ctx, "channels", "c1", doc)
		require.NoError(t, err)

		ch := subscribe(t, s, "channels")
		snap := WaitFor(t, ch, func(s docstore.Snapshot) bool { return len(s.Records) == 1 })

		var got struct {
			Members []struct {
				UID          string `json:"uid"`
				LastActivity int64  `json:"lastActivity"`
			} `json:"members"`
		}
		require.NoError(t, docstore.Unmarshal(snap.Records[0].Doc, &got))
		require.Len(t, got.Members, 1)
		require.Equal(t, "u1", got.Members[0].UID)
		require.Equal(t, int64(1700000000000), got.Members[0].LastActivity)
	})

	t.Run("collections are isolated", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		ch := subscribe(t, s, "reactions")
		Next(t, ch)

		_, err := s.Create(ctx, "users", "u1", docstore.Document{"name": "x"})
		require.NoError(t, err)
		_, err = s.Create(ctx, "reactions", "r1", docstore.Document{"emoji": "👍"})
		require.NoError(t, err)

		snap := WaitFor(t, ch, func(s docstore.Snapshot) bool { return len(s.Records) > 0 })
		require.Len(t, snap.Records, 1)
		require.Equal(t, "r1", snap.Records[0].ID)
	})

	t.Run("cancel closes the stream", func(t *testing.T) {
		s := newStore(t)
		ctx, cancel := context.WithCancel(context.Background())
		ch, err := s.Subscribe(ctx, "users")
		require.NoError(t, err)
		cancel()

		deadline := time.After(Timeout)
		for {
			select {
			case _, ok := <-ch:
				if !ok {
					return
				}
			case <-deadline:
				t.Fatal("stream not closed after cancel")
			}
		}
	})
}

func subscribe(t *testing.T, s docstore.Store, collection string) <-chan docstore.Snapshot {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	ch, err := s.Subscribe(ctx, collection)
	require.NoError(t, err)
	return ch
}

// Next waits for the next snapshot.
func Next(t *testing.T, ch <-chan docstore.Snapshot) docstore.Snapshot {
	t.Helper()
	select {
	case s, ok := <-ch:
		require.True(t, ok, "stream closed")
		return s
	case <-time.After(Timeout):
		t.Fatal("timed out waiting for snapshot")
	}
	return docstore.Snapshot{}
}

// WaitFor reads snapshots until cond holds.
func WaitFor(t *testing.T, ch <-chan docstore.Snapshot, cond func(docstore.Snapshot) bool) docstore.Snapshot {
	t.Helper()
	deadline := time.After(Timeout)
	for {
		select {
		case s, ok := <-ch:
			require.True(t, ok, "stream closed")
			if cond(s) {
				return s
			}
		case <-deadline:
			t.Fatal("timed out waiting for matching snapshot")
		}
	}
}
