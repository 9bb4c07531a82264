package presence

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttle allows at most one activity report per interval and user. Time
// is supplied by the caller so the limiter follows whatever clock the
// tracker runs on.
type Throttle struct {
	every rate.Limit

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{
		every:    rate.Every(interval),
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow consumes the user's token if one is available at now. A consumed
// token is never given back, even if the write it guarded fails.
func (t *Throttle) Allow(uid string, now time.Time) bool {
	t.mu.Lock()
	l, ok := t.limiters[uid]
	if !ok {
		l = rate.NewLimiter(t.every, 1)
		t.limiters[uid] = l
	}
	t.mu.Unlock()

	return l.AllowN(now, 1)
}

// Forget drops the user's limiter, so the next report goes through.
func (t *Throttle) Forget(uid string) {
	t.mu.Lock()
	delete(t.limiters, uid)
	t.mu.Unlock()
}
