package users

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cdil-bc/canvas-discussions/src/models"
	"github.com/cdil-bc/canvas-discussions/src/utils"
)

// One participant's activity across a course's discussions.
type Summary struct {
	UserID     *int
	Name       string
	Initials   string
	AvatarURL  *string
	PostCount  int
	LastActive time.Time
}

// Posts are attributed by user id when Canvas gives us one. Display names
// are only a fallback, since two students can share a name.
func key(p *models.Post) string {
	if p.UserID != nil {
		return fmt.Sprintf("id:%d", *p.UserID)
	}
	return "name:" + utils.OrDefault(p.Author, models.UnknownAuthor)
}

// Tallies posts per user, busiest first.
func Summarize(posts []models.Post) []*Summary {
	byKey := make(map[string]*Summary)
	var order []*Summary
	for i := range posts {
		p := &posts[i]
		k := key(p)

		s, ok := byKey[k]
		if !ok {
			name := utils.OrDefault(p.Author, models.UnknownAuthor)
			s = &Summary{
				UserID:   p.UserID,
				Name:     name,
				Initials: utils.Initials(name),
			}
			byKey[k] = s
			order = append(order, s)
		}

		s.PostCount++
		if p.CreatedAt.After(s.LastActive) {
			s.LastActive = p.CreatedAt
		}
		if s.AvatarURL == nil && p.AvatarURL != nil {
			s.AvatarURL = p.AvatarURL
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		if order[i].PostCount != order[j].PostCount {
			return order[i].PostCount > order[j].PostCount
		}
		return strings.ToLower(order[i].Name) < strings.ToLower(order[j].Name)
	})
	return order
}

// Keeps the users whose name contains search, ignoring case. An empty search
// keeps everyone.
func Filter(summaries []*Summary, search string) []*Summary {
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return summaries
	}
	var result []*Summary
	for _, s := range summaries {
		if strings.Contains(strings.ToLower(s.Name), search) {
			result = append(result, s)
		}
	}
	return result
}
