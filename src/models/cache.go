package models

import "time"

// One complete, successful fetch of a course's posts.
type CacheEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Posts     []Post    `json:"posts"`
}
