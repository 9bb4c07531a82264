// Package search finds posts and channels by text. The in-memory search
// walks the channel mirror snapshot; a Meilisearch index can take over when
// configured and reachable.
package search

import (
	"strings"

	"github.com/dmitrijs2005/chatsync/internal/models"
)

// ResultType identifies what a hit points at.
type ResultType string

const (
	ResultChannel ResultType = "channel"
	ResultPost    ResultType = "post"
)

// Result is a single search hit.
type Result struct {
	Type        ResultType `json:"type"`
	ChannelID   string     `json:"channel_id"`
	ChannelName string     `json:"channel_name"`
	PostID      string     `json:"post_id,omitempty"`
	Message     string     `json:"message,omitempty"`
	UserID      string     `json:"user_id,omitempty"`
	Date        int64      `json:"date,omitempty"`
}

// Query describes a search request.
type Query struct {
	Text      string
	ChannelID string // empty = all channels
	Limit     int
}

// PostRecord is what gets indexed per post.
type PostRecord struct {
	ID          string `json:"id"`
	ChannelID   string `json:"channel_id"`
	ChannelName string `json:"channel_name"`
	Message     string `json:"message"`
	UserID      string `json:"user_id"`
	Date        int64  `json:"date"`
}

func (r PostRecord) result() Result {
	return Result{
		Type:        ResultPost,
		ChannelID:   r.ChannelID,
		ChannelName: r.ChannelName,
		PostID:      r.ID,
		Message:     r.Message,
		UserID:      r.UserID,
		Date:        r.Date,
	}
}

// Records flattens the posts of every channel into index records.
func Records(channels []models.Channel) []PostRecord {
	var out []PostRecord
	for _, c := range channels {
		for _, p := range c.Posts {
			out = append(out, PostRecord{
				ID:          p.PostID,
				ChannelID:   c.ChannelID,
				ChannelName: c.Name,
				Message:     p.Message,
				UserID:      p.UserID,
				Date:        p.Date,
			})
		}
	}
	return out
}

// InMemory matches q case-insensitively against channel names and post
// messages. Channel hits come before the posts of that channel.
func InMemory(channels []models.Channel, q Query) []Result {
	needle := strings.ToLower(strings.TrimSpace(q.Text))
	if needle == "" {
		return []Result{}
	}

	out := []Result{}
	for _, c := range channels {
		if q.ChannelID != "" && c.ChannelID != q.ChannelID {
			continue
		}
		if strings.Contains(strings.ToLower(c.Name), needle) {
			out = append(out, Result{Type: ResultChannel, ChannelID: c.ChannelID, ChannelName: c.Name})
		}
		for _, p := range c.Posts {
			if strings.Contains(strings.ToLower(p.Message), needle) {
				out = append(out, PostRecord{
					ID: p.PostID, ChannelID: c.ChannelID, ChannelName: c.Name,
					Message: p.Message, UserID: p.UserID, Date: p.Date,
				}.result())
			}
		}
		if q.Limit > 0 && len(out) >= q.Limit {
			return out[:q.Limit]
		}
	}
	return out
}
