package models

// Post is a message inside a channel. Date is set once at creation.
// Thread, when present, is a reference copy of the reply thread (id, channel
// and date); the replies themselves live in the threads collection.
type Post struct {
	PostID        string     `json:"post_id"`
	ChannelID     string     `json:"channel_id" validate:"required"`
	Message       string     `json:"message" validate:"required_without=AttachmentSrc"`
	UserID        string     `json:"user_id" validate:"required"`
	Thread        *Thread    `json:"thread,omitempty"`
	Date          int64      `json:"date"`
	Reactions     []Reaction `json:"reactions"`
	AttachmentSrc string     `json:"attachmentSrc"`
}

func (p Post) Clone() Post {
	if p.Thread != nil {
		t := p.Thread.Clone()
		p.Thread = &t
	}
	if p.Reactions != nil {
		p.Reactions = append([]Reaction(nil), p.Reactions...)
	}
	return p
}

func clonePosts(in []Post) []Post {
	if in == nil {
		return nil
	}
	out := make([]Post, len(in))
	for i, p := range in {
		out[i] = p.Clone()
	}
	return out
}
