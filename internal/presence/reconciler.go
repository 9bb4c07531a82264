package presence

import (
	"sync"
	"time"

	"github.com/dmitrijs2005/chatsync/internal/broadcast"
	"github.com/dmitrijs2005/chatsync/internal/models"
)

// UserSnapshotter is the read side of the users mirror.
type UserSnapshotter interface {
	Snapshot() []models.User
}

// Reconciler recomputes and republishes the presence list.
type Reconciler struct {
	users  UserSnapshotter
	window time.Duration
	bc     *broadcast.Broadcaster[[]models.PresenceState]

	// mu makes each read-compute-publish step atomic.
	mu sync.Mutex
}

func NewReconciler(users UserSnapshotter, window time.Duration) *Reconciler {
	return &Reconciler{
		users:  users,
		window: window,
		bc:     broadcast.New[[]models.PresenceState](broadcast.ReplayLatest),
	}
}

// Reconcile recomputes every state at now (epoch ms) and publishes the list.
func (r *Reconciler) Reconcile(now int64) []models.PresenceState {
	r.mu.Lock()
	defer r.mu.Unlock()

	states := ComputeAll(r.users.Snapshot(), now, r.window)
	r.bc.Publish(states)
	return clone(states)
}

// Patch replaces one user's state in the last published list, appending it
// when absent, and republishes.
func (r *Reconciler) Patch(uid string, state models.State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, _ := r.bc.Latest()
	next := clone(cur)
	for i := range next {
		if next[i].UID == uid {
			next[i].State = state
			r.bc.Publish(next)
			return
		}
	}
	r.bc.Publish(append(next, models.PresenceState{UID: uid, State: state}))
}

// States returns the last published list.
func (r *Reconciler) States() []models.PresenceState {
	cur, _ := r.bc.Latest()
	return clone(cur)
}

// Subscribe registers fn for every published list. fn must not call back into
// the reconciler.
func (r *Reconciler) Subscribe(fn func([]models.PresenceState)) func() {
	return r.bc.Subscribe(fn)
}

func clone(in []models.PresenceState) []models.PresenceState {
	if in == nil {
		return nil
	}
	return append([]models.PresenceState(nil), in...)
}
