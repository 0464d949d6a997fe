// Package users provides the PostgreSQL repository for provider accounts
// and their encrypted refresh tokens.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/redditscheduler/internal/common"
	"github.com/dmitrijs2005/redditscheduler/internal/dbx"
	"github.com/dmitrijs2005/redditscheduler/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Get returns the user or common.ErrorNotFound.
func (r *PostgresRepository) Get(ctx context.Context, userID string) (*models.User, error) {
	query :=
		`SELECT user_id, refresh_token, updated_at FROM users
		 WHERE user_id = $1
		 `

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&user.UserID, &user.RefreshToken, &user.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

// Upsert inserts the user or replaces the stored token of an existing one.
func (r *PostgresRepository) Upsert(ctx context.Context, userID string, encryptedToken string) error {
	query :=
		`INSERT INTO users (user_id, refresh_token, updated_at)
		 VALUES ($1, $2, CURRENT_TIMESTAMP)
		 ON CONFLICT (user_id)
		 DO UPDATE SET refresh_token = EXCLUDED.refresh_token, updated_at = CURRENT_TIMESTAMP
		 `

	if _, err := r.db.ExecContext(ctx, query, userID, encryptedToken); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}
