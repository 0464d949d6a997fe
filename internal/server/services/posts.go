package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/redditscheduler/internal/common"
	"github.com/dmitrijs2005/redditscheduler/internal/dbx"
	"github.com/dmitrijs2005/redditscheduler/internal/logging"
	"github.com/dmitrijs2005/redditscheduler/internal/server/models"
	"github.com/dmitrijs2005/redditscheduler/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/redditscheduler/internal/timex"
	"github.com/google/uuid"
)

const (
	msgMissingFields      = "Missing required fields: subreddit, title, scheduleTime"
	msgNotAuthenticated   = "User not authenticated"
	msgInvalidTime        = "Invalid schedule time"
	msgTimeNotFuture      = "Schedule time must be in the future"
	msgMissingPostID      = "Missing required field: postId"
	msgNotFoundOrNotOwned = "Post not found or unauthorized"
	msgOnlyPending        = "Can only delete pending posts"
	msgPostNotFound       = "Post not found"
)

// ScheduleRequest is a new post as submitted by the caller. UserID is
// trusted as given.
type ScheduleRequest struct {
	UserID       string
	Subreddit    string
	Title        string
	ScheduleTime string
	Body         *string
	Link         *string
}

// PostService validates and stores scheduled posts and enforces the
// pending-only delete rule.
type PostService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	now         func() time.Time
	loc         *time.Location
}

func NewPostService(db *sql.DB, m repomanager.RepositoryManager, l logging.Logger) *PostService {
	return &PostService{
		db:          db,
		repomanager: m,
		logger:      l.With("module", "post_service"),
		now:         time.Now,
		loc:         time.Local,
	}
}

// Schedule validates req and stores it as a pending post. Checks run in
// order: required fields, caller identity, schedule time.
func (s *PostService) Schedule(ctx context.Context, req ScheduleRequest) (*models.ScheduledPost, error) {
	userID := strings.TrimSpace(req.UserID)
	subreddit := strings.TrimSpace(req.Subreddit)
	title := strings.TrimSpace(req.Title)
	scheduleTime := strings.TrimSpace(req.ScheduleTime)

	if subreddit == "" || title == "" || scheduleTime == "" {
		return nil, newRequestError(common.ErrorValidation, msgMissingFields)
	}
	if userID == "" {
		return nil, newRequestError(common.ErrorUnauthorized, msgNotAuthenticated)
	}

	at, err := timex.ParseTimestamp(scheduleTime, s.loc)
	if err != nil {
		return nil, newRequestError(common.ErrorValidation, msgInvalidTime)
	}
	if !at.After(s.now()) {
		return nil, newRequestError(common.ErrorValidation, msgTimeNotFuture)
	}

	post := &models.ScheduledPost{
		UserID:       userID,
		Subreddit:    subreddit,
		Title:        title,
		Body:         trimOptional(req.Body),
		Link:         trimOptional(req.Link),
		ScheduleTime: at.UTC(),
	}

	created, err := s.repomanager.Posts(s.db).Create(ctx, post)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "post scheduled", "post_id", created.PostID, "user_id", created.UserID, "schedule_time", created.ScheduleTime)
	return created, nil
}

// List returns the caller's posts, latest schedule time first.
func (s *PostService) List(ctx context.Context, userID string) ([]*models.ScheduledPost, error) {
	if userID == "" {
		return nil, newRequestError(common.ErrorUnauthorized, msgNotAuthenticated)
	}
	return s.repomanager.Posts(s.db).SelectByUser(ctx, userID)
}

// Delete removes a pending post owned by userID. The ownership and status
// check and the delete share one transaction.
func (s *PostService) Delete(ctx context.Context, userID, postID string) error {
	if userID == "" {
		return newRequestError(common.ErrorUnauthorized, msgNotAuthenticated)
	}
	if postID == "" {
		return newRequestError(common.ErrorValidation, msgMissingPostID)
	}
	// post ids are UUIDs; anything else cannot exist
	if _, err := uuid.Parse(postID); err != nil {
		return newRequestError(common.ErrorNotFound, msgNotFoundOrNotOwned)
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Posts(tx)

		post, err := repo.FindOwned(ctx, postID, userID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return newRequestError(common.ErrorNotFound, msgNotFoundOrNotOwned)
			}
			return err
		}
		if post.Status != common.StatusPending {
			return newRequestError(common.ErrorForbidden, msgOnlyPending)
		}

		if _, err := repo.Delete(ctx, postID, userID); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return newRequestError(common.ErrorNotFound, msgPostNotFound)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "post deleted", "post_id", postID, "user_id", userID)
	return nil
}

// trimOptional trims v and maps empty results to nil.
func trimOptional(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
