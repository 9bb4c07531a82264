package models

// User is a registered or guest account. LastActivity is an epoch timestamp
// in milliseconds, 0 when no activity was ever reported, or -1 after an
// explicit sign-out.
type User struct {
	UID          string `json:"uid" validate:"required"`
	Name         string `json:"name"`
	Email        string `json:"email" validate:"omitempty,email"`
	AvatarSrc    string `json:"avatarSrc"`
	LastActivity int64  `json:"lastActivity" validate:"gte=-1"`
}

// IsGuest reports whether the account has no email attached.
func (u User) IsGuest() bool { return u.Email == "" }

// DisplayName falls back to the uid for accounts without a name.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.UID
}

func (u User) DocID() string { return u.UID }

func (u User) WithDocID(id string) User {
	u.UID = id
	return u
}

func (u User) Clone() User { return u }
