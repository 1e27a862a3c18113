package canvas

import "time"

// https://canvas.instructure.com/doc/api/discussion_topics.html

type DiscussionTopic struct {
	ID           int        `json:"id"`
	Title        string     `json:"title"`
	AssignmentID *int       `json:"assignment_id"`
	DueAt        *time.Time `json:"due_at"`
	Assignment   *struct {
		DueAt *time.Time `json:"due_at"`
	} `json:"assignment"`
}

// Topics list their own due_at only sometimes; graded topics always carry
// it on the assignment.
func (t *DiscussionTopic) EffectiveDueAt() *time.Time {
	if t.DueAt != nil {
		return t.DueAt
	}
	if t.Assignment != nil {
		return t.Assignment.DueAt
	}
	return nil
}

type DiscussionUser struct {
	ID             *int   `json:"id"`
	DisplayName    string `json:"display_name"`
	AvatarImageURL string `json:"avatar_image_url"`
}

type DiscussionEntry struct {
	ID        int             `json:"id"`
	UserID    *int            `json:"user_id"`
	ParentID  *int            `json:"parent_id"`
	UserName  string          `json:"user_name"`
	User      *DiscussionUser `json:"user"`
	Message   string          `json:"message"`
	CreatedAt time.Time       `json:"created_at"`

	// Only on top-level entries.
	RecentReplies  []DiscussionEntry `json:"recent_replies"`
	HasMoreReplies bool              `json:"has_more_replies"`
}

func (e *DiscussionEntry) AuthorName() string {
	if e.User != nil && e.User.DisplayName != "" {
		return e.User.DisplayName
	}
	return e.UserName
}

func (e *DiscussionEntry) AuthorID() *int {
	if e.UserID != nil {
		return e.UserID
	}
	if e.User != nil {
		return e.User.ID
	}
	return nil
}

func (e *DiscussionEntry) AvatarURL() *string {
	if e.User != nil && e.User.AvatarImageURL != "" {
		avatar := e.User.AvatarImageURL
		return &avatar
	}
	return nil
}

type Course struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
