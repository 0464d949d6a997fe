package models

import (
	"time"

	"github.com/dmitrijs2005/redditscheduler/internal/common"
)

// ScheduledPost is a post waiting for (or done with) submission.
// Body and Link are nil when absent; a non-nil Link makes it a link post.
type ScheduledPost struct {
	PostID       string    `json:"post_id"`
	UserID       string    `json:"user_id"`
	Subreddit    string    `json:"subreddit"`
	Title        string    `json:"title"`
	Body         *string   `json:"body"`
	Link         *string   `json:"link"`
	ScheduleTime time.Time `json:"schedule_time"`
	Status       string    `json:"status"`
	Error        *string   `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Kind returns the submission kind implied by the presence of a link.
func (p *ScheduledPost) Kind() string {
	if p.Link != nil && *p.Link != "" {
		return common.KindLink
	}
	return common.KindSelf
}

// DuePost is a due pending post joined with its owner's encrypted token.
type DuePost struct {
	ScheduledPost
	EncryptedRefreshToken string
}
