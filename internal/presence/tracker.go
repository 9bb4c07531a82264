package presence

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/chatsync/internal/common"
	"github.com/dmitrijs2005/chatsync/internal/logging"
	"github.com/dmitrijs2005/chatsync/internal/models"
)

// Event is an input event that counts as user activity.
type Event int

const (
	PointerMove Event = iota + 1
	Click
	KeyPress
	Scroll
	Touch
)

func (e Event) String() string {
	switch e {
	case PointerMove:
		return "pointermove"
	case Click:
		return "click"
	case KeyPress:
		return "keypress"
	case Scroll:
		return "scroll"
	case Touch:
		return "touch"
	default:
		return "unknown"
	}
}

// ParseEvent maps an event name to an Event.
func ParseEvent(s string) (Event, bool) {
	for e := PointerMove; e <= Touch; e++ {
		if e.String() == s {
			return e, true
		}
	}
	return 0, false
}

// Users is the slice of the users mirror the tracker needs.
type Users interface {
	UserSnapshotter
	Update(ctx context.Context, id string, fn func(models.User) (models.User, error)) error
}

// Hooks receive tracker counters for metrics. Any field may be nil.
type Hooks struct {
	ActivityWritten   func()
	ActivityThrottled func()
	Reconciled        func(users int)
}

type Config struct {
	Interval time.Duration
	Window   time.Duration
	Hooks    Hooks
	Now      func() time.Time
}

// Tracker is the presence state machine of one client.
type Tracker struct {
	users    Users
	log      logging.Logger
	throttle *Throttle
	rec      *Reconciler
	interval time.Duration
	hooks    Hooks
	now      func() time.Time

	mu      sync.Mutex
	current string
}

func NewTracker(users Users, log logging.Logger, cfg Config) *Tracker {
	if cfg.Interval <= 0 {
		cfg.Interval = common.ActivityReportInterval
	}
	if cfg.Window <= 0 {
		cfg.Window = common.ActiveWindow
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Tracker{
		users:    users,
		log:      log.With("module", "presence"),
		throttle: NewThrottle(cfg.Interval),
		rec:      NewReconciler(users, cfg.Window),
		interval: cfg.Interval,
		hooks:    cfg.Hooks,
		now:      cfg.Now,
	}
}

// SetCurrentUser is the authenticated-user notification. An empty uid
// means nobody is signed in and events are ignored.
func (t *Tracker) SetCurrentUser(uid string) {
	t.mu.Lock()
	t.current = uid
	t.mu.Unlock()
}

func (t *Tracker) CurrentUser() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Observe reports activity for the current user. It returns whether a write
// was attempted.
func (t *Tracker) Observe(ctx context.Context, ev Event) (bool, error) {
	uid := t.CurrentUser()
	if uid == "" || ev.String() == "unknown" {
		return false, nil
	}
	return t.ReportActivity(ctx, uid, t.now())
}

// ReportActivity writes lastActivity = now for uid unless a write for uid
// already went out within the current interval. It returns whether a write
// was attempted. A failed write still uses up the interval.
func (t *Tracker) ReportActivity(ctx context.Context, uid string, now time.Time) (bool, error) {
	if !t.throttle.Allow(uid, now) {
		if t.hooks.ActivityThrottled != nil {
			t.hooks.ActivityThrottled()
		}
		return false, nil
	}

	ms := now.UnixMilli()
	err := t.users.Update(ctx, uid, func(u models.User) (models.User, error) {
		u.LastActivity = ms
		return u, nil
	})
	if err != nil {
		t.log.Warn(ctx, "activity report failed", "uid", uid, "error", err)
		return true, err
	}

	if t.hooks.ActivityWritten != nil {
		t.hooks.ActivityWritten()
	}
	t.rec.Patch(uid, models.StateActive)
	return true, nil
}

// LogOut writes the logged-out sentinel for uid, bypassing the throttle, and
// clears the current user if it was uid.
func (t *Tracker) LogOut(ctx context.Context, uid string) error {
	t.mu.Lock()
	if t.current == uid {
		t.current = ""
	}
	t.mu.Unlock()

	err := t.users.Update(ctx, uid, func(u models.User) (models.User, error) {
		u.LastActivity = common.LoggedOutActivity
		return u, nil
	})
	if err != nil {
		t.log.Warn(ctx, "logout write failed", "uid", uid, "error", err)
		return err
	}
	t.throttle.Forget(uid)
	t.rec.Patch(uid, models.StateLoggedOut)
	return nil
}

// Reconcile recomputes all states now.
func (t *Tracker) Reconcile() []models.PresenceState {
	states := t.rec.Reconcile(t.now().UnixMilli())
	if t.hooks.Reconciled != nil {
		t.hooks.Reconciled(len(states))
	}
	return states
}

// Run reconciles immediately and then on every interval tick until ctx is
// done.
func (t *Tracker) Run(ctx context.Context) {
	t.Reconcile()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Reconcile()
		}
	}
}

// States returns the last published presence list.
func (t *Tracker) States() []models.PresenceState { return t.rec.States() }

// StateOf returns the last published state of uid.
func (t *Tracker) StateOf(uid string) (models.State, bool) {
	for _, s := range t.rec.States() {
		if s.UID == uid {
			return s.State, true
		}
	}
	return "", false
}

// Subscribe follows the presence list. The latest list is replayed.
func (t *Tracker) Subscribe(fn func([]models.PresenceState)) func() {
	return t.rec.Subscribe(fn)
}
