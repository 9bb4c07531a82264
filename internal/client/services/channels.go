package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/chatsync/internal/blob"
	"github.com/dmitrijs2005/chatsync/internal/broadcast"
	"github.com/dmitrijs2005/chatsync/internal/common"
	"github.com/dmitrijs2005/chatsync/internal/logging"
	"github.com/dmitrijs2005/chatsync/internal/mirror"
	"github.com/dmitrijs2005/chatsync/internal/models"
	"github.com/dmitrijs2005/chatsync/internal/reactions"
	"github.com/dmitrijs2005/chatsync/internal/search"
)

// ChannelService manages channels and the posts and reactions nested in
// them.
type ChannelService interface {
	EnsureTeamChannel(ctx context.Context) (models.Channel, error)
	CreateChannel(ctx context.Context, name, description string, author models.User, members []models.User) (string, error)
	// CreatePMChannel returns the existing private channel of a and b or
	// creates one.
	CreatePMChannel(ctx context.Context, a, b models.User) (string, error)
	// AddPost appends a post. attachment, when not nil, is validated and
	// uploaded first.
	AddPost(ctx context.Context, channelID, userID, message string, attachment []byte) (models.Post, error)
	ToggleReaction(ctx context.Context, channelID, postID string, user models.User, emoji string) (reactions.Change, error)
	GroupedReactions(channelID, postID string) (map[string]reactions.Group, error)
	SelectReaction(postID string, open bool)
	OnSelection(fn func(models.ReactionSelection)) (unsubscribe func())
	Search(ctx context.Context, q search.Query) []search.Result
	Channels() []models.Channel
	// Visible lists the channels uid can see: the team channel and those it
	// is a member of.
	Visible(uid string) []models.Channel
}

type channelService struct {
	channels  *mirror.Mirror[models.Channel]
	reactions *mirror.Mirror[models.Reaction]
	users     UserService
	blobs     blob.Store
	search    *search.Service
	selection *broadcast.Broadcaster[models.ReactionSelection]
	log       logging.Logger
}

func NewChannelService(
	channels *mirror.Mirror[models.Channel],
	flatReactions *mirror.Mirror[models.Reaction],
	users UserService,
	blobs blob.Store,
	searcher *search.Service,
	log logging.Logger,
) ChannelService {
	s := &channelService{
		channels:  channels,
		reactions: flatReactions,
		users:     users,
		blobs:     blobs,
		search:    searcher,
		selection: broadcast.New[models.ReactionSelection](broadcast.ReplayLatest),
		log:       log.With("module", "channel_service"),
	}
	s.selection.Publish(models.ReactionSelection{})
	return s
}

func (s *channelService) EnsureTeamChannel(ctx context.Context) (models.Channel, error) {
	if c, ok := s.channels.Find(models.Channel.IsTeam); ok {
		return c, nil
	}

	team := models.Channel{
		Name:    common.TeamChannelName,
		Members: []models.User{},
		Posts:   []models.Post{},
		Date:    nowMillis(),
	}
	id, err := s.channels.Create(ctx, team)
	if err != nil {
		return models.Channel{}, fmt.Errorf("create team channel: %w", err)
	}
	s.log.Info(ctx, "team channel created", "channel_id", id)
	return team.WithDocID(id), nil
}

func (s *channelService) CreateChannel(ctx context.Context, name, description string, author models.User, members []models.User) (string, error) {
	c := models.Channel{
		Name:        name,
		Description: description,
		AuthorUID:   author.UID,
		Members:     withMember(members, author),
		Posts:       []models.Post{},
		Date:        nowMillis(),
	}
	if err := models.Validate(c); err != nil {
		return "", err
	}
	return s.channels.Create(ctx, c)
}

func (s *channelService) CreatePMChannel(ctx context.Context, a, b models.User) (string, error) {
	existing, ok := s.channels.Find(func(c models.Channel) bool {
		return c.IsPMChannel && len(c.Members) == 2 && c.HasMember(a.UID) && c.HasMember(b.UID)
	})
	if ok {
		return existing.ChannelID, nil
	}

	c := models.Channel{
		Name:        a.DisplayName() + ", " + b.DisplayName(),
		AuthorUID:   a.UID,
		Members:     withMember([]models.User{b}, a),
		Posts:       []models.Post{},
		Date:        nowMillis(),
		IsPMChannel: true,
	}
	return s.channels.Create(ctx, c)
}

// withMember puts u first unless it is already listed.
func withMember(members []models.User, u models.User) []models.User {
	out := []models.User{u}
	for _, m := range members {
		if m.UID != u.UID {
			out = append(out, m)
		}
	}
	return out
}

func (s *channelService) AddPost(ctx context.Context, channelID, userID, message string, attachment []byte) (models.Post, error) {
	if _, ok := s.channels.Get(channelID); !ok {
		s.log.Warn(ctx, "post to unknown channel", "channel_id", channelID)
		return models.Post{}, fmt.Errorf("add post %s: %w", channelID, common.ErrReferenceNotFound)
	}

	p := models.Post{
		PostID:    newID(),
		ChannelID: channelID,
		Message:   message,
		UserID:    userID,
		Date:      nowMillis(),
		Reactions: []models.Reaction{},
	}

	if attachment != nil {
		contentType, err := blob.Validate(attachment, blob.Attachment)
		if err != nil {
			return models.Post{}, err
		}
		url, err := s.blobs.Upload(ctx, attachment, "attachments/"+channelID+"/"+p.PostID+extensionFor(contentType))
		if err != nil {
			s.log.Error(ctx, "attachment upload failed", "channel_id", channelID, "error", err)
			return models.Post{}, fmt.Errorf("upload attachment: %w", err)
		}
		p.AttachmentSrc = url
	}

	if err := models.Validate(p); err != nil {
		return models.Post{}, err
	}

	err := s.channels.Update(ctx, channelID, func(c models.Channel) (models.Channel, error) {
		c.Posts = append(c.Posts, p)
		return c, nil
	})
	return p, err
}

func (s *channelService) ToggleReaction(ctx context.Context, channelID, postID string, user models.User, emoji string) (reactions.Change, error) {
	if err := models.Validate(models.Reaction{User: user, PostID: postID, Emoji: emoji}); err != nil {
		return reactions.Change{}, err
	}

	var change reactions.Change
	err := s.channels.Update(ctx, channelID, func(c models.Channel) (models.Channel, error) {
		i := c.PostIndex(postID)
		if i < 0 {
			return c, fmt.Errorf("toggle reaction %s/%s: %w", channelID, postID, common.ErrReferenceNotFound)
		}
		c.Posts[i], change = reactions.Toggle(c.Posts[i], user, emoji)
		return c, nil
	})
	if err != nil {
		if errors.Is(err, common.ErrReferenceNotFound) {
			s.log.Warn(ctx, "reaction on unknown post", "channel_id", channelID, "post_id", postID)
			return reactions.Change{}, err
		}
		if !errors.Is(err, common.ErrRemoteWrite) {
			return reactions.Change{}, err
		}
	}

	s.syncFlat(ctx, change)
	return change, err
}

// syncFlat mirrors a toggle into the flat reactions collection. Failures are
// logged only; the nested copy is authoritative.
func (s *channelService) syncFlat(ctx context.Context, change reactions.Change) {
	if s.reactions == nil {
		return
	}
	var err error
	switch change.Result {
	case reactions.Added:
		_, err = s.reactions.Create(ctx, change.Reaction)
	case reactions.Removed:
		err = s.reactions.Delete(ctx, change.Reaction.ReactionID)
	}
	if err != nil {
		s.log.Warn(ctx, "flat reactions out of step", "reaction_id", change.Reaction.ReactionID,
			"result", change.Result.String(), "error", err)
	}
}

func (s *channelService) GroupedReactions(channelID, postID string) (map[string]reactions.Group, error) {
	c, ok := s.channels.Get(channelID)
	if !ok {
		return nil, fmt.Errorf("group reactions %s: %w", channelID, common.ErrReferenceNotFound)
	}
	i := c.PostIndex(postID)
	if i < 0 {
		return nil, fmt.Errorf("group reactions %s/%s: %w", channelID, postID, common.ErrReferenceNotFound)
	}
	return reactions.GroupReactions(c.Posts[i].Reactions, s.users.Resolve), nil
}

func (s *channelService) SelectReaction(postID string, open bool) {
	s.selection.Publish(models.ReactionSelection{PostID: postID, Open: open})
}

func (s *channelService) OnSelection(fn func(models.ReactionSelection)) func() {
	return s.selection.Subscribe(fn)
}

func (s *channelService) Search(ctx context.Context, q search.Query) []search.Result {
	if s.search == nil {
		return search.InMemory(s.channels.Snapshot(), q)
	}
	return s.search.Search(ctx, q)
}

func (s *channelService) Channels() []models.Channel {
	return s.channels.Snapshot()
}

func (s *channelService) Visible(uid string) []models.Channel {
	var out []models.Channel
	for _, c := range s.channels.Snapshot() {
		if c.IsTeam() || c.HasMember(uid) {
			out = append(out, c)
		}
	}
	return out
}
