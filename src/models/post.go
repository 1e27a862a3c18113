package models

import "time"

const UnknownAuthor = "Unknown"

// A single discussion entry or reply, as fetched from Canvas. Posts are not
// modified after fetching.
type Post struct {
	ID                int       `json:"id"`
	ParentID          *int      `json:"parent_id"`
	DiscussionTopicID int       `json:"discussion_topic_id"`
	TopicTitle        string    `json:"topic_title"`
	AssignmentID      *int      `json:"assignment_id"`
	UserID            *int      `json:"user_id"`
	Author            string    `json:"author"`
	AvatarURL         *string   `json:"avatar_url"`
	CreatedAt         time.Time `json:"created_at"`
	Message           string    `json:"message"`

	// Direct replies embedded in the post itself, when the API delivered them
	// that way. Nil means "not embedded"; an empty, non-nil slice means the
	// post is known to have no replies.
	Replies []Post `json:"replies"`
}

func (p Post) HasEmbeddedReplies() bool {
	return p.Replies != nil
}

func (p Post) IsTopLevel() bool {
	return p.ParentID == nil
}

// Orders posts by creation time, then by id.
func PostLess(a, b *Post) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
