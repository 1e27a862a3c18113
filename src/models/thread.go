package models

import "time"

// A post and the replies beneath it. Each node is owned by exactly one
// parent (or by a Topic, for top-level entries).
type ThreadNode struct {
	Post    Post          `json:"post"`
	Replies []*ThreadNode `json:"replies"`
}

// Number of nodes in this subtree, including the node itself.
func (n *ThreadNode) Count() int {
	count := 1
	for _, reply := range n.Replies {
		count += reply.Count()
	}
	return count
}

type Topic struct {
	ID           int           `json:"id"`
	Title        string        `json:"title"`
	AssignmentID *int          `json:"assignment_id"`
	DueAt        *time.Time    `json:"due_at"`
	Entries      []*ThreadNode `json:"entries"`
}

func (t *Topic) PostCount() int {
	count := 0
	for _, entry := range t.Entries {
		count += entry.Count()
	}
	return count
}

// A discussion topic as listed by the LMS, used for metadata that posts don't
// carry (like due dates).
type RawTopic struct {
	ID           int        `json:"id"`
	Title        string     `json:"title"`
	AssignmentID *int       `json:"assignment_id"`
	DueAt        *time.Time `json:"due_at"`
}
