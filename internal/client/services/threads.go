package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/chatsync/internal/common"
	"github.com/dmitrijs2005/chatsync/internal/logging"
	"github.com/dmitrijs2005/chatsync/internal/mirror"
	"github.com/dmitrijs2005/chatsync/internal/models"
	"github.com/dmitrijs2005/chatsync/internal/threads"
)

// ThreadService manages reply threads attached to channel posts.
type ThreadService interface {
	// StartThread returns the thread of the post, creating it and linking it
	// from the post if there is none yet.
	StartThread(ctx context.Context, channelID, postID string) (string, error)
	Reply(ctx context.Context, threadID, userID, message string) (models.Post, error)
	Ordered(threadID string) ([]models.Post, error)
	// FirstPosts has one slot per id; a slot is nil when the thread is
	// unknown or empty.
	FirstPosts(threadIDs []string) []*models.Post
	Threads() []models.Thread
}

type threadService struct {
	threads  *mirror.Mirror[models.Thread]
	channels *mirror.Mirror[models.Channel]
	log      logging.Logger
}

func NewThreadService(threadMirror *mirror.Mirror[models.Thread], channels *mirror.Mirror[models.Channel], log logging.Logger) ThreadService {
	return &threadService{threads: threadMirror, channels: channels, log: log.With("module", "thread_service")}
}

func (s *threadService) StartThread(ctx context.Context, channelID, postID string) (string, error) {
	c, ok := s.channels.Get(channelID)
	if !ok {
		s.log.Warn(ctx, "thread on unknown channel", "channel_id", channelID)
		return "", fmt.Errorf("start thread %s: %w", channelID, common.ErrReferenceNotFound)
	}
	i := c.PostIndex(postID)
	if i < 0 {
		s.log.Warn(ctx, "thread on unknown post", "channel_id", channelID, "post_id", postID)
		return "", fmt.Errorf("start thread %s/%s: %w", channelID, postID, common.ErrReferenceNotFound)
	}
	if ref := c.Posts[i].Thread; ref != nil && ref.ThreadID != "" {
		return ref.ThreadID, nil
	}

	t := models.Thread{ChannelID: channelID, Date: nowMillis(), Posts: []models.Post{}}
	threadID, err := s.threads.Create(ctx, t)
	if err != nil {
		return "", err
	}
	t = t.WithDocID(threadID)

	err = s.channels.Update(ctx, channelID, func(c models.Channel) (models.Channel, error) {
		i := c.PostIndex(postID)
		if i < 0 {
			return c, fmt.Errorf("link thread %s: %w", threadID, common.ErrReferenceNotFound)
		}
		c.Posts[i].Thread = t.Ref()
		return c, nil
	})
	if err != nil {
		s.log.Error(ctx, "thread created but not linked", "thread_id", threadID,
			"channel_id", channelID, "post_id", postID, "error", err)
		return threadID, err
	}
	return threadID, nil
}

func (s *threadService) Reply(ctx context.Context, threadID, userID, message string) (models.Post, error) {
	t, ok := s.threads.Get(threadID)
	if !ok {
		s.log.Warn(ctx, "reply to unknown thread", "thread_id", threadID)
		return models.Post{}, fmt.Errorf("reply %s: %w", threadID, common.ErrReferenceNotFound)
	}

	p := models.Post{
		PostID:    newID(),
		ChannelID: t.ChannelID,
		Message:   message,
		UserID:    userID,
		Date:      nowMillis(),
		Reactions: []models.Reaction{},
	}
	if err := models.Validate(p); err != nil {
		return models.Post{}, err
	}

	err := s.threads.Update(ctx, threadID, func(t models.Thread) (models.Thread, error) {
		t.Posts = append(t.Posts, p)
		return t, nil
	})
	return p, err
}

func (s *threadService) Ordered(threadID string) ([]models.Post, error) {
	t, ok := s.threads.Get(threadID)
	if !ok {
		return nil, fmt.Errorf("thread %s: %w", threadID, common.ErrReferenceNotFound)
	}
	return threads.OrderedPosts(t), nil
}

func (s *threadService) FirstPosts(threadIDs []string) []*models.Post {
	out := make([]*models.Post, len(threadIDs))
	for i, id := range threadIDs {
		t, ok := s.threads.Get(id)
		if !ok {
			continue
		}
		if p, ok := threads.FirstPost(t); ok {
			out[i] = &p
		}
	}
	return out
}

func (s *threadService) Threads() []models.Thread {
	return s.threads.Snapshot()
}
