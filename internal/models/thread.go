package models

// Thread is the reply sequence attached to a single parent post.
type Thread struct {
	ThreadID  string `json:"thread_id"`
	ChannelID string `json:"channel_id" validate:"required"`
	Date      int64  `json:"date"`
	Posts     []Post `json:"posts"`
}

func (t Thread) DocID() string { return t.ThreadID }

func (t Thread) WithDocID(id string) Thread {
	t.ThreadID = id
	return t
}

func (t Thread) Clone() Thread {
	t.Posts = clonePosts(t.Posts)
	return t
}

// Ref returns the thread without its replies, as embedded in the parent post.
func (t Thread) Ref() *Thread {
	return &Thread{ThreadID: t.ThreadID, ChannelID: t.ChannelID, Date: t.Date}
}
