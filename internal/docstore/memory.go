package docstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/chatsync/internal/common"
	"github.com/google/uuid"
)

// Op names a write operation, used by fault hooks.
type Op string

const (
	OpCreate  Op = "create"
	OpReplace Op = "replace"
	OpDelete  Op = "delete"
)

type memCollection struct {
	order []string
	docs  map[string]Document
	feeds map[*Feed]struct{}
}

// MemoryStore is an in-process Store. It is the default backend of the
// client and the backbone of most tests.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]*memCollection
	newID       func() string
	fault       func(op Op, collection, id string) error
}

type MemoryOption func(*MemoryStore)

// WithIDGenerator overrides uuid-based id assignment.
func WithIDGenerator(fn func() string) MemoryOption {
	return func(s *MemoryStore) { s.newID = fn }
}

// WithFaults installs a hook consulted before every write; a non-nil error
// rejects the write as a remote failure would.
func WithFaults(fn func(op Op, collection, id string) error) MemoryOption {
	return func(s *MemoryStore) { s.fault = fn }
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		collections: make(map[string]*memCollection),
		newID:       uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *MemoryStore) collection(name string) *memCollection {
	c, ok := s.collections[name]
	if !ok {
		c = &memCollection{docs: make(map[string]Document), feeds: make(map[*Feed]struct{})}
		s.collections[name] = c
	}
	return c
}

func (s *MemoryStore) snapshot(name string, c *memCollection) Snapshot {
	records := make([]Record, 0, len(c.order))
	for _, id := range c.order {
		records = append(records, Record{ID: id, Doc: Clone(c.docs[id])})
	}
	return Snapshot{Collection: name, Records: records}
}

// notify must be called with s.mu held.
func (s *MemoryStore) notify(name string, c *memCollection) {
	for f := range c.feeds {
		f.Push(s.snapshot(name, c))
	}
}

func (s *MemoryStore) Subscribe(ctx context.Context, collection string) (<-chan Snapshot, error) {
	f := NewFeed(ctx)

	s.mu.Lock()
	c := s.collection(collection)
	c.feeds[f] = struct{}{}
	f.Push(s.snapshot(collection, c))
	s.mu.Unlock()

	go func() {
		<-f.Done()
		s.mu.Lock()
		delete(c.feeds, f)
		s.mu.Unlock()
	}()

	return f.C(), nil
}

func (s *MemoryStore) checkFault(op Op, collection, id string) error {
	if s.fault == nil {
		return nil
	}
	return s.fault(op, collection, id)
}

func (s *MemoryStore) Create(ctx context.Context, collection, id string, doc Document) (string, error) {
	if err := s.checkFault(OpCreate, collection, id); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		id = s.newID()
	}
	c := s.collection(collection)
	if _, exists := c.docs[id]; exists {
		return "", fmt.Errorf("create %s/%s: document already exists", collection, id)
	}
	c.order = append(c.order, id)
	c.docs[id] = Clone(doc)
	s.notify(collection, c)
	return id, nil
}

func (s *MemoryStore) Replace(ctx context.Context, collection, id string, doc Document) error {
	if err := s.checkFault(OpReplace, collection, id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(collection)
	if _, ok := c.docs[id]; !ok {
		return fmt.Errorf("replace %s/%s: %w", collection, id, common.ErrorNotFound)
	}
	c.docs[id] = Clone(doc)
	s.notify(collection, c)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	if err := s.checkFault(OpDelete, collection, id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(collection)
	if _, ok := c.docs[id]; !ok {
		return fmt.Errorf("delete %s/%s: %w", collection, id, common.ErrorNotFound)
	}
	delete(c.docs, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	s.notify(collection, c)
	return nil
}

// Push replaces a collection wholesale and notifies subscribers, the way a
// remote store pushes an unsolicited snapshot. Tests use it to simulate
// writes by other clients.
func (s *MemoryStore) Push(collection string, records []Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(collection)
	c.order = c.order[:0]
	c.docs = make(map[string]Document, len(records))
	for _, r := range records {
		if _, dup := c.docs[r.ID]; !dup {
			c.order = append(c.order, r.ID)
		}
		c.docs[r.ID] = Clone(r.Doc)
	}
	s.notify(collection, c)
}

var _ Store = (*MemoryStore)(nil)
