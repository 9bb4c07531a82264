package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/chatsync/internal/blob"
	"github.com/dmitrijs2005/chatsync/internal/common"
	"github.com/dmitrijs2005/chatsync/internal/docstore"
	"github.com/dmitrijs2005/chatsync/internal/logging"
	"github.com/dmitrijs2005/chatsync/internal/mirror"
	"github.com/dmitrijs2005/chatsync/internal/models"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

// env is a complete client wired over an in-memory store.
type env struct {
	store     *docstore.MemoryStore
	users     *mirror.Mirror[models.User]
	channels  *mirror.Mirror[models.Channel]
	threads   *mirror.Mirror[models.Thread]
	reactions *mirror.Mirror[models.Reaction]
	blobDir   string

	userSvc    UserService
	channelSvc ChannelService
	threadSvc  ThreadService

	// fail, when set, rejects matching remote writes.
	fail func(op docstore.Op, collection string) bool
}

var errRejected = errors.New("rejected by store")

func newEnv(t *testing.T) *env {
	t.Helper()

	e := &env{}
	e.store = docstore.NewMemoryStore(docstore.WithFaults(func(op docstore.Op, collection, _ string) error {
		if e.fail != nil && e.fail(op, collection) {
			return errRejected
		}
		return nil
	}))

	log := logging.Discard()
	e.users = mirror.New[models.User](e.store, common.CollectionUsers, log)
	e.channels = mirror.New[models.Channel](e.store, common.CollectionChannels, log)
	e.threads = mirror.New[models.Thread](e.store, common.CollectionThreads, log)
	e.reactions = mirror.New[models.Reaction](e.store, common.CollectionReactions, log)

	e.blobDir = t.TempDir()
	blobs, err := blob.NewLocal(e.blobDir, "https://files.example")
	require.NoError(t, err)

	e.userSvc = NewUserService(e.users, blobs, log)
	e.channelSvc = NewChannelService(e.channels, e.reactions, e.userSvc, blobs, nil, log)
	e.threadSvc = NewThreadService(e.threads, e.channels, log)

	clock := int64(1_700_000_000_000)
	ids := 0
	origNow, origID := nowMillis, newID
	nowMillis = func() int64 { clock += 1000; return clock }
	newID = func() string { ids++; return fmt.Sprintf("id-%d", ids) }
	t.Cleanup(func() { nowMillis, newID = origNow, origID })

	return e
}

// start subscribes every mirror and waits for the first snapshot.
func (e *env) start(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	for _, m := range []interface {
		Start(context.Context) (<-chan struct{}, error)
		Version() uint64
	}{e.users, e.channels, e.threads, e.reactions} {
		_, err := m.Start(ctx)
		require.NoError(t, err)
		require.Eventually(t, func() bool { return m.Version() >= 1 }, time.Second, 5*time.Millisecond)
	}
}

func (e *env) remote(t *testing.T, collection string) docstore.Snapshot {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := e.store.Subscribe(ctx, collection)
	require.NoError(t, err)
	select {
	case s := <-ch:
		return s
	case <-time.After(time.Second):
		t.Fatal("no snapshot")
	}
	return docstore.Snapshot{}
}

func readBlob(t *testing.T, dir, key string) []byte {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(key)))
	require.NoError(t, err)
	return b
}
