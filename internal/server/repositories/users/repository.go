package users

import (
	"context"

	"github.com/dmitrijs2005/redditscheduler/internal/server/models"
)

type Repository interface {
	Get(ctx context.Context, userID string) (*models.User, error)
	Upsert(ctx context.Context, userID string, encryptedToken string) error
}
