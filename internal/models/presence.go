package models

// State is the derived presence of a user.
type State string

const (
	StateActive    State = "active"
	StateIdle      State = "idle"
	StateLoggedOut State = "loggedOut"
)

// PresenceState pairs a user with its derived state. It is never persisted.
type PresenceState struct {
	UID   string `json:"uid"`
	State State  `json:"state"`
}
