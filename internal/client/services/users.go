package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/chatsync/internal/blob"
	"github.com/dmitrijs2005/chatsync/internal/common"
	"github.com/dmitrijs2005/chatsync/internal/identity"
	"github.com/dmitrijs2005/chatsync/internal/logging"
	"github.com/dmitrijs2005/chatsync/internal/mirror"
	"github.com/dmitrijs2005/chatsync/internal/models"
)

// UserService manages user documents. The document id of a user is its uid.
type UserService interface {
	// EnsureUser returns the user document of id, creating it on first
	// sign-in.
	EnsureUser(ctx context.Context, id identity.Identity) (models.User, error)
	UpdateProfile(ctx context.Context, uid, name string) error
	// UploadAvatar validates and stores an image and points the user at it.
	UploadAvatar(ctx context.Context, uid string, data []byte) (string, error)
	Resolve(uid string) (models.User, bool)
	Users() []models.User
}

type userService struct {
	users *mirror.Mirror[models.User]
	blobs blob.Store
	log   logging.Logger
}

func NewUserService(users *mirror.Mirror[models.User], blobs blob.Store, log logging.Logger) UserService {
	return &userService{users: users, blobs: blobs, log: log.With("module", "user_service")}
}

func (s *userService) EnsureUser(ctx context.Context, id identity.Identity) (models.User, error) {
	if u, ok := s.users.Get(id.UID); ok {
		return u, nil
	}

	u := models.User{UID: id.UID, Name: id.DisplayName, Email: id.Email}
	if err := models.Validate(u); err != nil {
		return models.User{}, err
	}
	if _, err := s.users.Create(ctx, u); err != nil {
		return models.User{}, fmt.Errorf("create user: %w", err)
	}

	s.log.Info(ctx, "user created", "uid", u.UID, "guest", u.IsGuest())
	return u, nil
}

func (s *userService) UpdateProfile(ctx context.Context, uid, name string) error {
	return s.users.Update(ctx, uid, func(u models.User) (models.User, error) {
		u.Name = name
		return u, models.Validate(u)
	})
}

func (s *userService) UploadAvatar(ctx context.Context, uid string, data []byte) (string, error) {
	if _, ok := s.users.Get(uid); !ok {
		s.log.Warn(ctx, "avatar for unknown user", "uid", uid)
		return "", fmt.Errorf("upload avatar %s: %w", uid, common.ErrReferenceNotFound)
	}

	contentType, err := blob.Validate(data, blob.Avatar)
	if err != nil {
		return "", err
	}

	url, err := s.blobs.Upload(ctx, data, "avatars/"+uid+extensionFor(contentType))
	if err != nil {
		s.log.Error(ctx, "avatar upload failed", "uid", uid, "error", err)
		return "", fmt.Errorf("upload avatar: %w", err)
	}

	err = s.users.Update(ctx, uid, func(u models.User) (models.User, error) {
		u.AvatarSrc = url
		return u, nil
	})
	return url, err
}

func (s *userService) Resolve(uid string) (models.User, bool) {
	return s.users.Get(uid)
}

func (s *userService) Users() []models.User {
	return s.users.Snapshot()
}
