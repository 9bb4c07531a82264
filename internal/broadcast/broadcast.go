// Package broadcast implements the in-process multicast used to fan
// collection snapshots out to independent consumers.
//
// Two delivery paths exist. Subscribe registers a callback that runs
// synchronously on the publishing goroutine, in subscription order; a slow
// callback delays every subscriber after it. Listen decouples a consumer
// through its own coalescing mailbox, so it may skip intermediate values but
// always ends on the latest one.
package broadcast

import (
	"context"
	"sync"
)

// Mode selects what a new subscriber sees on arrival.
type Mode int

const (
	// FireOnChange delivers nothing until the next Publish.
	FireOnChange Mode = iota
	// ReplayLatest immediately echoes the most recent value, if any.
	ReplayLatest
)

func (m Mode) String() string {
	if m == ReplayLatest {
		return "replay-latest"
	}
	return "fire-on-change"
}

type subscriber[T any] struct {
	id uint64
	fn func(T)
}

// Broadcaster is safe for concurrent use. Values are delivered without any
// lock held, so callbacks may publish or (un)subscribe re-entrantly. When
// publishes race, a stale value stops being delivered as soon as a newer one
// has started, so no subscriber regresses to an older value after the newer
// one reached it.
type Broadcaster[T any] struct {
	mode Mode

	mu     sync.Mutex
	subs   []subscriber[T]
	nextID uint64
	seq    uint64
	latest T
	has    bool

	onSubscribers func(n int)
}

func New[T any](mode Mode) *Broadcaster[T] {
	return &Broadcaster[T]{mode: mode}
}

// OnSubscribersChanged registers a hook receiving the subscriber count after
// every subscribe/unsubscribe. Used for metrics.
func (b *Broadcaster[T]) OnSubscribersChanged(fn func(n int)) {
	b.mu.Lock()
	b.onSubscribers = fn
	b.mu.Unlock()
}

func (b *Broadcaster[T]) Mode() Mode { return b.mode }

// Subscribe registers fn and returns a function that removes it. Calling the
// returned function more than once is harmless.
func (b *Broadcaster[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscriber[T]{id: id, fn: fn})
	replay, v := b.mode == ReplayLatest && b.has, b.latest
	hook, n := b.onSubscribers, len(b.subs)
	b.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	if replay {
		fn(v)
	}

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Broadcaster[T]) remove(id uint64) {
	b.mu.Lock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			break
		}
	}
	hook, n := b.onSubscribers, len(b.subs)
	b.mu.Unlock()

	if hook != nil {
		hook(n)
	}
}

// Publish records v as the latest value and delivers it to every current
// subscriber in subscription order.
func (b *Broadcaster[T]) Publish(v T) {
	b.mu.Lock()
	b.seq++
	seq := b.seq
	b.latest, b.has = v, true
	subs := append([]subscriber[T](nil), b.subs...)
	b.mu.Unlock()

	for _, s := range subs {
		if b.superseded(seq) {
			return
		}
		s.fn(v)
	}
}

func (b *Broadcaster[T]) superseded(seq uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.seq != seq
}

// Latest returns the most recently published value.
func (b *Broadcaster[T]) Latest() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latest, b.has
}

// Len returns the number of subscribers.
func (b *Broadcaster[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Listen subscribes through a private mailbox and returns a channel that is
// closed when ctx is done. Replay semantics follow the broadcaster mode.
func (b *Broadcaster[T]) Listen(ctx context.Context) <-chan T {
	mb := NewMailbox[T]()
	out := make(chan T)

	unsubscribe := b.Subscribe(mb.Put)
	go func() {
		<-ctx.Done()
		unsubscribe()
	}()
	go mb.Pump(ctx.Done(), out)

	return out
}
