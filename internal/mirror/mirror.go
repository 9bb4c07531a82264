// Package mirror keeps a local, fully replaced copy of one remote document
// collection and republishes it to in-process consumers.
//
// A Mirror owns its array. Readers get deep copies (Snapshot, Get, Find) or
// the value delivered through the broadcaster, which is itself a private
// copy made for that publish. Every incoming remote snapshot replaces the
// array wholesale; local writes are applied optimistically and published
// before the remote store echoes them back.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/chatsync/internal/broadcast"
	"github.com/dmitrijs2005/chatsync/internal/common"
	"github.com/dmitrijs2005/chatsync/internal/docstore"
	"github.com/dmitrijs2005/chatsync/internal/logging"
)

// Entity is what a mirror can hold.
type Entity[T any] interface {
	DocID() string
	WithDocID(id string) T
	Clone() T
}

// Hooks receive counters for metrics. Any field may be nil.
type Hooks struct {
	SnapshotApplied    func(collection string, size int)
	RemoteWriteFailed  func(collection, op string)
	SubscribersChanged func(collection string, n int)
}

// Mirror is safe for concurrent use.
type Mirror[T Entity[T]] struct {
	collection string
	store      docstore.Store
	log        logging.Logger
	bc         *broadcast.Broadcaster[[]T]
	hooks      Hooks

	// pubMu orders state changes with their publishes so that subscribers
	// end on the array the mirror holds. Taken before mu.
	pubMu sync.Mutex

	mu      sync.Mutex
	items   []T
	version uint64
}

type Option func(*options)

type options struct {
	hooks Hooks
}

func WithHooks(h Hooks) Option {
	return func(o *options) { o.hooks = h }
}

// New creates a mirror for collection. It stays empty until Start.
func New[T Entity[T]](store docstore.Store, collection string, log logging.Logger, opts ...Option) *Mirror[T] {
	var o options
	for _, fn := range opts {
		fn(&o)
	}

	m := &Mirror[T]{
		collection: collection,
		store:      store,
		log:        log.With("module", "mirror", "collection", collection),
		bc:         broadcast.New[[]T](broadcast.FireOnChange),
		hooks:      o.hooks,
	}
	if o.hooks.SubscribersChanged != nil {
		m.bc.OnSubscribersChanged(func(n int) { o.hooks.SubscribersChanged(collection, n) })
	}
	return m
}

func (m *Mirror[T]) Collection() string { return m.collection }

// Start subscribes to the remote collection and applies snapshots until ctx
// is done or the stream closes. The returned channel is closed at that point.
func (m *Mirror[T]) Start(ctx context.Context) (<-chan struct{}, error) {
	ch, err := m.store.Subscribe(ctx, m.collection)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", m.collection, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for snap := range ch {
			m.Apply(ctx, snap)
		}
		m.log.Debug(ctx, "snapshot stream closed")
	}()
	return done, nil
}

// Apply replaces the local array with the decoded snapshot and publishes it.
// Records that fail to decode are logged and skipped.
func (m *Mirror[T]) Apply(ctx context.Context, snap docstore.Snapshot) {
	items := make([]T, 0, len(snap.Records))
	for _, r := range snap.Records {
		var v T
		if err := docstore.Unmarshal(r.Doc, &v); err != nil {
			m.log.Warn(ctx, "skipping undecodable document", "id", r.ID, "error", err)
			continue
		}
		items = append(items, v.WithDocID(r.ID))
	}

	m.pubMu.Lock()
	defer m.pubMu.Unlock()

	m.mu.Lock()
	m.items = items
	m.version++
	out := cloneAll(m.items)
	version := m.version
	m.mu.Unlock()

	m.log.Debug(ctx, "snapshot applied", "size", len(out), "version", version)
	if m.hooks.SnapshotApplied != nil {
		m.hooks.SnapshotApplied(m.collection, len(out))
	}
	m.bc.Publish(out)
}

// Subscribe delivers every future published array to fn. Nothing is
// replayed: a consumer arriving before the first snapshot sees nothing until
// the next change. fn may read the mirror but must not write to it.
func (m *Mirror[T]) Subscribe(fn func([]T)) (unsubscribe func()) {
	return m.bc.Subscribe(fn)
}

// Listen is Subscribe with decoupled, coalescing delivery.
func (m *Mirror[T]) Listen(ctx context.Context) <-chan []T {
	return m.bc.Listen(ctx)
}

// Snapshot returns a deep copy of the current array.
func (m *Mirror[T]) Snapshot() []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneAll(m.items)
}

func (m *Mirror[T]) Version() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.version
}

// Get returns a copy of the item with the given id.
func (m *Mirror[T]) Get(id string) (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.indexOf(id); i >= 0 {
		return m.items[i].Clone(), true
	}
	var zero T
	return zero, false
}

// Find returns a copy of the first item matching pred.
func (m *Mirror[T]) Find(pred func(T) bool) (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range m.items {
		if pred(it) {
			return it.Clone(), true
		}
	}
	var zero T
	return zero, false
}

// Create writes item remotely, then appends it locally under the assigned id
// and publishes. If the item already carries an id it is used as is.
func (m *Mirror[T]) Create(ctx context.Context, item T) (string, error) {
	doc, err := docstore.Marshal(item)
	if err != nil {
		return "", err
	}

	id, err := m.store.Create(ctx, m.collection, item.DocID(), doc)
	if err != nil {
		return "", m.remoteFailure(ctx, "create", item.DocID(), err)
	}

	m.pubMu.Lock()
	m.mu.Lock()
	if m.indexOf(id) < 0 {
		m.items = append(m.items, item.Clone().WithDocID(id))
	}
	m.version++
	out := cloneAll(m.items)
	m.mu.Unlock()

	m.bc.Publish(out)
	m.pubMu.Unlock()
	return id, nil
}

// Replace overwrites the whole document. The local copy changes first.
func (m *Mirror[T]) Replace(ctx context.Context, id string, item T) error {
	item = item.Clone().WithDocID(id)
	doc, err := docstore.Marshal(item)
	if err != nil {
		return err
	}

	m.pubMu.Lock()
	m.mu.Lock()
	i := m.indexOf(id)
	if i < 0 {
		m.mu.Unlock()
		m.pubMu.Unlock()
		return m.missing(ctx, "replace", id)
	}
	m.items[i] = item
	m.version++
	out := cloneAll(m.items)
	m.mu.Unlock()

	m.bc.Publish(out)
	m.pubMu.Unlock()

	if err := m.store.Replace(ctx, m.collection, id, doc); err != nil {
		return m.remoteFailure(ctx, "replace", id, err)
	}
	return nil
}

// Update is a read-modify-write over the current copy of id followed by
// Replace. fn receives a private copy.
func (m *Mirror[T]) Update(ctx context.Context, id string, fn func(T) (T, error)) error {
	cur, ok := m.Get(id)
	if !ok {
		return m.missing(ctx, "update", id)
	}
	next, err := fn(cur)
	if err != nil {
		return err
	}
	return m.Replace(ctx, id, next)
}

// Delete removes the item locally, publishes, then deletes remotely.
func (m *Mirror[T]) Delete(ctx context.Context, id string) error {
	m.pubMu.Lock()
	m.mu.Lock()
	i := m.indexOf(id)
	if i < 0 {
		m.mu.Unlock()
		m.pubMu.Unlock()
		return m.missing(ctx, "delete", id)
	}
	m.items = append(m.items[:i:i], m.items[i+1:]...)
	m.version++
	out := cloneAll(m.items)
	m.mu.Unlock()

	m.bc.Publish(out)
	m.pubMu.Unlock()

	if err := m.store.Delete(ctx, m.collection, id); err != nil {
		return m.remoteFailure(ctx, "delete", id, err)
	}
	return nil
}

// indexOf must be called with m.mu held.
func (m *Mirror[T]) indexOf(id string) int {
	for i := range m.items {
		if m.items[i].DocID() == id {
			return i
		}
	}
	return -1
}

func (m *Mirror[T]) missing(ctx context.Context, op, id string) error {
	m.log.Warn(ctx, "reference not found", "op", op, "id", id)
	return fmt.Errorf("%s %s/%s: %w", op, m.collection, id, common.ErrReferenceNotFound)
}

func (m *Mirror[T]) remoteFailure(ctx context.Context, op, id string, err error) error {
	m.log.Error(ctx, "remote write failed", "op", op, "id", id, "error", err)
	if m.hooks.RemoteWriteFailed != nil {
		m.hooks.RemoteWriteFailed(m.collection, op)
	}
	return fmt.Errorf("%s %s/%s: %w", op, m.collection, id, errors.Join(common.ErrRemoteWrite, err))
}

func cloneAll[T Entity[T]](items []T) []T {
	out := make([]T, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}
