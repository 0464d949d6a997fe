package posts

import (
	"context"
	"time"

	"github.com/dmitrijs2005/redditscheduler/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, post *models.ScheduledPost) (*models.ScheduledPost, error)
	SelectDuePending(ctx context.Context, now time.Time) ([]*models.DuePost, error)
	UpdateStatus(ctx context.Context, postID string, status string, errMsg *string) error
	SelectByUser(ctx context.Context, userID string) ([]*models.ScheduledPost, error)
	FindOwned(ctx context.Context, postID string, userID string) (*models.ScheduledPost, error)
	Delete(ctx context.Context, postID string, userID string) (*models.ScheduledPost, error)
}
