package users

import (
	"bytes"
	"testing"
	"time"

	"github.com/cdil-bc/canvas-discussions/src/models"
	"github.com/cdil-bc/canvas-discussions/src/seed"
	"github.com/cdil-bc/canvas-discussions/src/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)

func TestSummarize(t *testing.T) {
	avatar := "https://canvas.test/ada.png"
	posts := []models.Post{
		seed.Post(seed.PostInput{ID: 1, UserID: utils.Ptr(5), Author: "Ada Lovelace", CreatedAt: t0}),
		seed.Post(seed.PostInput{ID: 2, UserID: utils.Ptr(6), Author: "Alex Smith", CreatedAt: t0.Add(time.Hour)}),
		seed.Post(seed.PostInput{ID: 3, UserID: utils.Ptr(7), Author: "Alex Smith", CreatedAt: t0.Add(2 * time.Hour)}),
		seed.Post(seed.PostInput{ID: 4, UserID: utils.Ptr(5), Author: "Ada Lovelace", CreatedAt: t0.Add(3 * time.Hour)}),
		seed.Post(seed.PostInput{ID: 5, Author: "Guest Poster", CreatedAt: t0.Add(-time.Hour)}),
		seed.Post(seed.PostInput{ID: 6, Author: "Guest Poster", CreatedAt: t0.Add(-2 * time.Hour)}),
		seed.Post(seed.PostInput{ID: 7, UserID: utils.Ptr(5), Author: "Ada Lovelace", CreatedAt: t0.Add(time.Minute)}),
	}
	posts[3].AvatarURL = &avatar

	summaries := Summarize(posts)
	require.Len(t, summaries, 4, "two users named Alex Smith are kept apart")

	ada := summaries[0]
	assert.Equal(t, "Ada Lovelace", ada.Name)
	assert.Equal(t, 5, *ada.UserID)
	assert.Equal(t, "AL", ada.Initials)
	assert.Equal(t, 3, ada.PostCount)
	assert.True(t, ada.LastActive.Equal(t0.Add(3*time.Hour)))
	require.NotNil(t, ada.AvatarURL)
	assert.Equal(t, avatar, *ada.AvatarURL)

	guest := summaries[1]
	assert.Equal(t, "Guest Poster", guest.Name)
	assert.Nil(t, guest.UserID)
	assert.Equal(t, 2, guest.PostCount)
	assert.True(t, guest.LastActive.Equal(t0.Add(-time.Hour)))

	assert.Equal(t, "Alex Smith", summaries[2].Name)
	assert.Equal(t, 1, summaries[2].PostCount)
	assert.Equal(t, "Alex Smith", summaries[3].Name)
	assert.NotEqual(t, *summaries[2].UserID, *summaries[3].UserID)
}

func TestSummarizeEmpty(t *testing.T) {
	assert.Empty(t, Summarize(nil))
}

func TestFilter(t *testing.T) {
	summaries := []*Summary{
		{Name: "Ada Lovelace"},
		{Name: "Grace Hopper"},
		{Name: "Alan Turing"},
	}

	assert.Len(t, Filter(summaries, ""), 3)
	assert.Len(t, Filter(summaries, "  "), 3)

	found := Filter(summaries, "LOVE")
	require.Len(t, found, 1)
	assert.Equal(t, "Ada Lovelace", found[0].Name)

	assert.Len(t, Filter(summaries, "a"), 3)
	assert.Empty(t, Filter(summaries, "zz"))
}

func TestWriteReport(t *testing.T) {
	summaries := Summarize([]models.Post{
		seed.Post(seed.PostInput{ID: 1, UserID: utils.Ptr(5), Author: "Ada Lovelace", CreatedAt: t0}),
		seed.Post(seed.PostInput{ID: 2, UserID: utils.Ptr(5), Author: "Ada Lovelace", CreatedAt: t0.Add(time.Hour)}),
		seed.Post(seed.PostInput{ID: 3, UserID: utils.Ptr(6), Author: "Grace Hopper", CreatedAt: t0}),
	})

	var buf bytes.Buffer
	err := WriteReport(&buf, summaries, ReportOptions{
		CourseName: "Intro",
		Location:   time.UTC,
		TimeFormat: time.RFC3339,
	})
	require.Nil(t, err)

	out := buf.String()
	assert.Contains(t, out, "Intro\n=====\n")
	assert.Contains(t, out, "AL  Ada Lovelace")
	assert.Contains(t, out, "   2 posts  last active 2024-01-08T10:00:00Z\n")
	assert.Contains(t, out, "   1 post   last active 2024-01-08T09:00:00Z\n")
	assert.Contains(t, out, "2 users, 3 posts\n")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("Ada")), bytes.Index(buf.Bytes(), []byte("Grace")))
}

func TestWriteReportNoUsers(t *testing.T) {
	var buf bytes.Buffer
	require.Nil(t, WriteReport(&buf, nil, ReportOptions{}))
	assert.Equal(t, "No matching users.\n", buf.String())
}
