package search

import (
	"context"

	"github.com/dmitrijs2005/chatsync/internal/logging"
	"github.com/dmitrijs2005/chatsync/internal/models"
)

// Backend is an external index.
type Backend interface {
	Search(q Query) ([]Result, error)
	IndexPosts(records []PostRecord) error
	Healthy() bool
}

// Service searches through the backend when it is healthy and over the
// channel snapshot otherwise.
type Service struct {
	backend  Backend // may be nil
	channels func() []models.Channel
	log      logging.Logger
}

func NewService(backend Backend, channels func() []models.Channel, log logging.Logger) *Service {
	return &Service{backend: backend, channels: channels, log: log.With("module", "search")}
}

func (s *Service) Search(ctx context.Context, q Query) []Result {
	if s.backend != nil && s.backend.Healthy() {
		res, err := s.backend.Search(q)
		if err == nil {
			return res
		}
		s.log.Warn(ctx, "search backend failed, falling back to memory", "error", err)
	}
	return InMemory(s.channels(), q)
}

// Index pushes every post of the snapshot to the backend without waiting.
// done, when non-nil, is closed once the push finished.
func (s *Service) Index(ctx context.Context, channels []models.Channel, done chan<- struct{}) {
	if s.backend == nil || !s.backend.Healthy() {
		if done != nil {
			close(done)
		}
		return
	}
	records := Records(channels)
	go func() {
		if done != nil {
			defer close(done)
		}
		if err := s.backend.IndexPosts(records); err != nil {
			s.log.Warn(ctx, "index posts", "count", len(records), "error", err)
		}
	}()
}
