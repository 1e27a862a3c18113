package threads

import (
	"sort"
	"strings"

	"github.com/cdil-bc/canvas-discussions/src/models"
	"github.com/cdil-bc/canvas-discussions/src/oops"
)

// Groups posts by topic. Each topic's title and assignment come from the
// first post seen for it. Entries are left empty; see Topics.
func GroupByTopic(posts []models.Post) map[int]*models.Topic {
	topics := make(map[int]*models.Topic)
	for _, p := range posts {
		if _, ok := topics[p.DiscussionTopicID]; ok {
			continue
		}
		topics[p.DiscussionTopicID] = &models.Topic{
			ID:           p.DiscussionTopicID,
			Title:        p.TopicTitle,
			AssignmentID: p.AssignmentID,
		}
	}
	return topics
}

// Groups posts by topic and builds each topic's reply trees. The result is
// in display order, though without due dates that only means by title;
// merge due dates and sort again once they are known.
func Topics(posts []models.Post) ([]*models.Topic, error) {
	byTopic := GroupByTopic(posts)

	postsByTopic := make(map[int][]models.Post, len(byTopic))
	for _, p := range posts {
		postsByTopic[p.DiscussionTopicID] = append(postsByTopic[p.DiscussionTopicID], p)
	}

	topics := make([]*models.Topic, 0, len(byTopic))
	for id, topic := range byTopic {
		entries, err := BuildTree(postsByTopic[id])
		if err != nil {
			return nil, oops.New(err, "failed to build threads for topic %d (%s)", id, topic.Title)
		}
		topic.Entries = entries
		topics = append(topics, topic)
	}

	SortTopics(topics)
	return topics, nil
}

// Copies due dates onto topics from the LMS's topic listing, matching by id.
// Topics with no match are left alone.
func MergeDueDates(topics []*models.Topic, raw []models.RawTopic) {
	dueDates := make(map[int]models.RawTopic, len(raw))
	for _, r := range raw {
		dueDates[r.ID] = r
	}
	for _, topic := range topics {
		r, ok := dueDates[topic.ID]
		if !ok {
			continue
		}
		topic.DueAt = nil
		if r.DueAt != nil {
			due := *r.DueAt
			topic.DueAt = &due
		}
	}
}

// Orders topics by due date, soonest first, with undated topics last. Ties
// go by title, ignoring case, and then by id.
func SortTopics(topics []*models.Topic) {
	sort.SliceStable(topics, func(i, j int) bool {
		a, b := topics[i], topics[j]
		switch {
		case a.DueAt != nil && b.DueAt == nil:
			return true
		case a.DueAt == nil && b.DueAt != nil:
			return false
		case a.DueAt != nil && b.DueAt != nil && !a.DueAt.Equal(*b.DueAt):
			return a.DueAt.Before(*b.DueAt)
		}

		at, bt := strings.ToLower(a.Title), strings.ToLower(b.Title)
		if at != bt {
			return at < bt
		}
		return a.ID < b.ID
	})
}
