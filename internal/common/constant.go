// Package common contains shared constants and sentinel errors used across
// the scheduler components.
package common

// Post statuses stored in scheduled_posts.status.
const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// Submission kinds understood by the provider's submit endpoint.
const (
	KindLink = "link"
	KindSelf = "self"
)

// UserAgent is sent on every provider request unless overridden in config.
const UserAgent = "RedditScheduler/1.0"
