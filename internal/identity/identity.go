// Package identity tells the chat core who the current actor is.
package identity

import (
	"sync"

	"github.com/dmitrijs2005/chatsync/internal/broadcast"
	"github.com/google/uuid"
)

// Identity is the signed-in actor. The zero value means nobody.
type Identity struct {
	UID         string
	DisplayName string
	Email       string
}

func (i Identity) SignedIn() bool { return i.UID != "" }

// Provider supplies the current identity and notifies on every change.
type Provider interface {
	Current() (Identity, bool)
	// OnChange calls fn with the current identity, then on every sign-in and
	// sign-out.
	OnChange(fn func(Identity)) (unsubscribe func())
}

// session is the state shared by providers: the current identity replayed
// to new listeners.
type session struct {
	mu  sync.Mutex
	cur Identity
	bc  *broadcast.Broadcaster[Identity]
}

func newSession() *session {
	s := &session{bc: broadcast.New[Identity](broadcast.ReplayLatest)}
	s.bc.Publish(Identity{})
	return s
}

func (s *session) set(id Identity) {
	s.mu.Lock()
	s.cur = id
	s.mu.Unlock()
	s.bc.Publish(id)
}

func (s *session) Current() (Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur, s.cur.SignedIn()
}

func (s *session) OnChange(fn func(Identity)) func() {
	return s.bc.Subscribe(fn)
}

// SignOut clears the current identity.
func (s *session) SignOut() { s.set(Identity{}) }

// Guest is a provider for anonymous sessions: no email, a random uid.
type Guest struct {
	*session
}

func NewGuest() *Guest { return &Guest{session: newSession()} }

func (g *Guest) SignIn(name string) Identity {
	id := Identity{UID: uuid.NewString(), DisplayName: name}
	g.set(id)
	return id
}
