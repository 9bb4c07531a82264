package presence

import (
	"time"

	"github.com/dmitrijs2005/chatsync/internal/common"
	"github.com/dmitrijs2005/chatsync/internal/models"
)

// Compute returns the state of a user whose last activity was lastActivity
// (epoch ms) as seen at now (epoch ms). A user that never reported activity
// (0) is idle.
func Compute(now, lastActivity int64) models.State {
	return computeWithin(now, lastActivity, common.ActiveWindow)
}

func computeWithin(now, lastActivity int64, window time.Duration) models.State {
	switch {
	case lastActivity == common.LoggedOutActivity:
		return models.StateLoggedOut
	case now-lastActivity < window.Milliseconds():
		return models.StateActive
	default:
		return models.StateIdle
	}
}

// ComputeAll derives the state of every user in snapshot order.
func ComputeAll(users []models.User, now int64, window time.Duration) []models.PresenceState {
	out := make([]models.PresenceState, len(users))
	for i, u := range users {
		out[i] = models.PresenceState{UID: u.UID, State: computeWithin(now, u.LastActivity, window)}
	}
	return out
}
