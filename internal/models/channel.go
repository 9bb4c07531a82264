package models

// Channel is a conversation with its members and, in the primary storage
// model, its posts nested inside the same document.
type Channel struct {
	ChannelID   string `json:"channel_id"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	AuthorUID   string `json:"author_uid"`
	Members     []User `json:"members"`
	Posts       []Post `json:"posts"`
	Date        int64  `json:"date"`
	IsPMChannel bool   `json:"isPmChannel"`
}

// IsTeam reports whether this is the installation-wide channel, the only
// one without an author.
func (c Channel) IsTeam() bool { return c.AuthorUID == "" }

// PostIndex returns the position of the post in Posts or -1.
func (c Channel) PostIndex(postID string) int {
	for i := range c.Posts {
		if c.Posts[i].PostID == postID {
			return i
		}
	}
	return -1
}

// HasMember reports whether uid is among the members.
func (c Channel) HasMember(uid string) bool {
	for _, m := range c.Members {
		if m.UID == uid {
			return true
		}
	}
	return false
}

func (c Channel) DocID() string { return c.ChannelID }

// WithDocID returns a copy carrying id on the channel and on every post.
func (c Channel) WithDocID(id string) Channel {
	c = c.Clone()
	c.ChannelID = id
	for i := range c.Posts {
		c.Posts[i].ChannelID = id
	}
	return c
}

func (c Channel) Clone() Channel {
	if c.Members != nil {
		c.Members = append([]User(nil), c.Members...)
	}
	c.Posts = clonePosts(c.Posts)
	return c
}
