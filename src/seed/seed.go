package seed

import (
	"fmt"
	"math/rand"
	"time"

	lorem "github.com/HandmadeNetwork/golorem"
	"github.com/cdil-bc/canvas-discussions/src/models"
	"github.com/cdil-bc/canvas-discussions/src/utils"
)

var baseTime = time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)

type PostInput struct {
	ID           int
	ParentID     *int
	TopicID      int
	TopicTitle   string
	AssignmentID *int
	UserID       *int
	Author       string
	CreatedAt    time.Time
	Message      string
	Replies      []models.Post
}

// Builds a post, filling anything left empty with plausible filler.
func Post(input PostInput) models.Post {
	return models.Post{
		ID:                input.ID,
		ParentID:          input.ParentID,
		DiscussionTopicID: utils.OrDefault(input.TopicID, 1),
		TopicTitle:        utils.OrDefault(input.TopicTitle, fmt.Sprintf("Topic %d", utils.OrDefault(input.TopicID, 1))),
		AssignmentID:      input.AssignmentID,
		UserID:            input.UserID,
		Author:            utils.OrDefault(input.Author, randomName()),
		CreatedAt:         utils.OrDefault(input.CreatedAt, baseTime.Add(time.Duration(input.ID)*time.Minute)),
		Message:           utils.OrDefault(input.Message, fmt.Sprintf("<p>%s</p>", lorem.Paragraph(1, 3))),
		Replies:           input.Replies,
	}
}

type CourseInput struct {
	Topics          int
	PostsPerTopic   int
	ReplyChance     float64 // chance that a post replies to an earlier one instead of starting a thread
	EmbedReplies    bool    // deliver direct replies of top-level posts embedded, as Canvas does
	Rand            *rand.Rand
	FirstTopicTitle string
}

// Generates a whole course's worth of posts, flat, in the order Canvas would
// return them.
func Course(input CourseInput) []models.Post {
	r := input.Rand
	if r == nil {
		r = rand.New(rand.NewSource(1))
	}
	topics := utils.OrDefault(input.Topics, 3)
	perTopic := utils.OrDefault(input.PostsPerTopic, 5)

	var posts []models.Post
	nextID := 1
	for t := 1; t <= topics; t++ {
		title := lorem.Sentence(2, 5)
		if t == 1 && input.FirstTopicTitle != "" {
			title = input.FirstTopicTitle
		}

		var topicPosts []models.Post
		for i := 0; i < perTopic; i++ {
			in := PostInput{
				ID:         nextID,
				TopicID:    t,
				TopicTitle: title,
				UserID:     utils.Ptr(100 + r.Intn(8)),
				Author:     names[r.Intn(len(names))],
				CreatedAt:  baseTime.Add(time.Duration(t)*24*time.Hour + time.Duration(i)*time.Hour),
			}
			if len(topicPosts) > 0 && r.Float64() < input.ReplyChance {
				parent := topicPosts[r.Intn(len(topicPosts))]
				in.ParentID = utils.Ptr(parent.ID)
			}
			topicPosts = append(topicPosts, Post(in))
			nextID++
		}

		if input.EmbedReplies {
			for i := range topicPosts {
				if !topicPosts[i].IsTopLevel() {
					continue
				}
				embedded := []models.Post{}
				for _, other := range topicPosts {
					if other.ParentID != nil && *other.ParentID == topicPosts[i].ID {
						embedded = append(embedded, other)
					}
				}
				topicPosts[i].Replies = embedded
			}
		}

		posts = append(posts, topicPosts...)
	}
	return posts
}

var names = []string{
	"Ada Lovelace",
	"Grace Hopper",
	"Alan Turing",
	"Katherine Johnson",
	"Edsger Dijkstra",
	"Barbara Liskov",
	"Donald Knuth",
	"Margaret Hamilton",
}

func randomName() string {
	return "John Doe" // chosen by fair dice roll. guaranteed to be random.
}
