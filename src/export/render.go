package export

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/cdil-bc/canvas-discussions/src/logging"
	"github.com/cdil-bc/canvas-discussions/src/models"
	"github.com/cdil-bc/canvas-discussions/src/utils"
)

const DefaultTimeFormat = "Jan 2, 2006, 3:04:05 PM"

// Substituted for a message that couldn't be sanitized or converted.
const UnrenderablePlaceholder = "_[message could not be rendered]_"

type Options struct {
	Location   *time.Location
	TimeFormat string
}

type Renderer struct {
	Sanitizer Sanitizer
	Converter Converter
	Options   Options
}

func NewRenderer(opts Options) *Renderer {
	return &Renderer{
		Sanitizer: NewSanitizer(),
		Converter: NewConverter(),
		Options:   opts,
	}
}

/*
Renders topics, in the order given, as a single Markdown document.

Each topic gets a level 1 heading, its due date if it has one, and its
threads. Each post gets a heading one level deeper than its parent's
(starting at 2), and replies are quoted once per level of nesting.

A message that fails to convert is replaced with a placeholder; the rest
of the document is unaffected.
*/
func (r *Renderer) Render(topics []*models.Topic) string {
	var doc strings.Builder
	for _, topic := range topics {
		doc.WriteString(r.renderTopic(topic))
	}
	return doc.String()
}

var reBlankLines = regexp.MustCompile(`\n{3,}`)

func (r *Renderer) renderTopic(topic *models.Topic) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n", topic.Title)
	if topic.DueAt != nil {
		fmt.Fprintf(&b, "*Due: %s*\n", r.formatTime(*topic.DueAt))
	}

	if len(topic.Entries) > 0 {
		for _, entry := range topic.Entries {
			r.renderNode(&b, entry, 0)
		}
	} else {
		b.WriteString("\n_No posts in this topic._\n")
	}
	b.WriteString("\n---\n\n")

	return reBlankLines.ReplaceAllString(b.String(), "\n\n")
}

func (r *Renderer) renderNode(b *strings.Builder, node *models.ThreadNode, depth int) {
	post := &node.Post

	heading := strings.Repeat("#", 2+depth) + " "
	if depth > 0 {
		heading += "Reply: "
	}
	heading += fmt.Sprintf("%s at %s", utils.OrDefault(post.Author, models.UnknownAuthor), r.formatTime(post.CreatedAt))

	message := r.renderMessage(post)
	if depth > 0 {
		quote := strings.Repeat(">", depth) + " "
		lines := strings.Split(message, "\n")
		for i, line := range lines {
			lines[i] = quote + line
		}
		message = strings.Join(lines, "\n")
	}

	fmt.Fprintf(b, "\n%s\n\n%s\n", heading, message)

	for _, reply := range node.Replies {
		r.renderNode(b, reply, depth+1)
	}
}

func (r *Renderer) renderMessage(post *models.Post) string {
	message, err := r.convert(post.Message)
	if err != nil {
		logging.Warn().Err(err).Int("post", post.ID).Msg("Failed to render discussion post")
		return UnrenderablePlaceholder
	}
	return message
}

func (r *Renderer) convert(html string) (result string, err error) {
	defer utils.RecoverPanicAsError(&err)

	converted, err := r.Converter.ConvertString(r.Sanitizer.Sanitize(html))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(converted), nil
}

func (r *Renderer) formatTime(t time.Time) string {
	loc := r.Options.Location
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(utils.OrDefault(r.Options.TimeFormat, DefaultTimeFormat))
}
