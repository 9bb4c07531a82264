package broadcast

import "sync"

// Mailbox holds at most one pending value. Put overwrites whatever has not
// been taken yet, so a reader that falls behind only ever sees the latest
// value. This is safe for full-state values such as collection snapshots.
type Mailbox[T any] struct {
	mu    sync.Mutex
	v     T
	has   bool
	ready chan struct{}
}

func NewMailbox[T any]() *Mailbox[T] {
	return &Mailbox[T]{ready: make(chan struct{}, 1)}
}

// Put stores v, replacing any value not yet taken.
func (m *Mailbox[T]) Put(v T) {
	m.mu.Lock()
	m.v = v
	m.has = true
	m.mu.Unlock()

	select {
	case m.ready <- struct{}{}:
	default:
	}
}

// Take removes and returns the pending value, if any.
func (m *Mailbox[T]) Take() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero T
	v, ok := m.v, m.has
	m.v, m.has = zero, false
	return v, ok
}

// Ready is signalled after Put. A signal may be stale; always check Take.
func (m *Mailbox[T]) Ready() <-chan struct{} {
	return m.ready
}

// Pump forwards mailbox values to out until done is closed, then closes out.
func (m *Mailbox[T]) Pump(done <-chan struct{}, out chan<- T) {
	defer close(out)
	for {
		select {
		case <-done:
			return
		case <-m.ready:
			v, ok := m.Take()
			if !ok {
				continue
			}
			select {
			case out <- v:
			case <-done:
				return
			}
		}
	}
}
