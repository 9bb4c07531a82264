package models

// Reaction is a single emoji placed by a user on a post. For a given post the
// pair (User.UID, Emoji) is unique; the toggle logic enforces it, storage
// does not.
type Reaction struct {
	ReactionID string `json:"reaction_id"`
	User       User   `json:"user"`
	PostID     string `json:"post_id" validate:"required"`
	Emoji      string `json:"emoji" validate:"required"`
}

func (r Reaction) DocID() string { return r.ReactionID }

func (r Reaction) WithDocID(id string) Reaction {
	r.ReactionID = id
	return r
}

func (r Reaction) Clone() Reaction { return r }

// ReactionSelection is the shared state of the emoji picker: which post it
// is attached to and whether it is open.
type ReactionSelection struct {
	PostID string
	Open   bool
}
