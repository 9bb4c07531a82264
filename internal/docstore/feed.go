package docstore

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/chatsync/internal/broadcast"
)

// Feed is the coalescing snapshot stream handed out by Subscribe
// implementations. Push never blocks.
type Feed struct {
	mb     *broadcast.Mailbox[Snapshot]
	out    chan Snapshot
	done   chan struct{}
	closer sync.Once
}

// NewFeed starts a feed that stops when ctx is done or Close is called.
func NewFeed(ctx context.Context) *Feed {
	f := &Feed{
		mb:   broadcast.NewMailbox[Snapshot](),
		out:  make(chan Snapshot),
		done: make(chan struct{}),
	}
	go func() {
		select {
		case <-ctx.Done():
			f.Close()
		case <-f.done:
		}
	}()
	go f.mb.Pump(f.done, f.out)
	return f
}

// Push offers a snapshot, replacing any not yet consumed.
func (f *Feed) Push(s Snapshot) {
	select {
	case <-f.done:
		return
	default:
	}
	f.mb.Put(s)
}

// C is the consumer side of the feed.
func (f *Feed) C() <-chan Snapshot { return f.out }

// Done is closed once the feed has stopped.
func (f *Feed) Done() <-chan struct{} { return f.done }

func (f *Feed) Close() {
	f.closer.Do(func() { close(f.done) })
}
