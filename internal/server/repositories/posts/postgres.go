// Package posts provides the PostgreSQL repository for scheduled posts.
package posts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/redditscheduler/internal/common"
	"github.com/dmitrijs2005/redditscheduler/internal/dbx"
	"github.com/dmitrijs2005/redditscheduler/internal/server/models"
)

const postColumns = `post_id, user_id, subreddit, title, body, link, schedule_time, status, error, created_at, updated_at`

// PostgresRepository implements post storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(s scanner, extra ...any) (*models.ScheduledPost, error) {
	p := &models.ScheduledPost{}
	dest := []any{
		&p.PostID, &p.UserID, &p.Subreddit, &p.Title, &p.Body, &p.Link,
		&p.ScheduleTime, &p.Status, &p.Error, &p.CreatedAt, &p.UpdatedAt,
	}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return p, nil
}

// Create inserts the post as pending, whatever post.Status says, and returns
// the stored row.
func (r *PostgresRepository) Create(ctx context.Context, post *models.ScheduledPost) (*models.ScheduledPost, error) {
	query := `
		INSERT INTO scheduled_posts (user_id, subreddit, title, body, link, schedule_time, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending')
		RETURNING ` + postColumns

	row := r.db.QueryRowContext(ctx, query,
		post.UserID, post.Subreddit, post.Title, post.Body, post.Link, post.ScheduleTime)

	stored, err := scanPost(row)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return stored, nil
}

// SelectDuePending returns pending posts scheduled at or before now together
// with the owner's encrypted refresh token, earliest first.
func (r *PostgresRepository) SelectDuePending(ctx context.Context, now time.Time) ([]*models.DuePost, error) {
	query := `
		SELECT sp.post_id, sp.user_id, sp.subreddit, sp.title, sp.body, sp.link,
		       sp.schedule_time, sp.status, sp.error, sp.created_at, sp.updated_at,
		       u.refresh_token
		FROM scheduled_posts sp
		JOIN users u ON sp.user_id = u.user_id
		WHERE sp.schedule_time <= $1 AND sp.status = 'pending'
		ORDER BY sp.schedule_time ASC
	`
	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.DuePost
	for rows.Next() {
		var token string
		p, err := scanPost(rows, &token)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, &models.DuePost{ScheduledPost: *p, EncryptedRefreshToken: token})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

// UpdateStatus sets status, error message and updated_at. A missing row
// yields common.ErrorNotFound.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, postID string, status string, errMsg *string) error {
	query := `
		UPDATE scheduled_posts
		SET status = $2, error = $3, updated_at = CURRENT_TIMESTAMP
		WHERE post_id = $1
	`
	res, err := r.db.ExecContext(ctx, query, postID, status, errMsg)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// SelectByUser returns all posts of userID, latest schedule time first.
func (r *PostgresRepository) SelectByUser(ctx context.Context, userID string) ([]*models.ScheduledPost, error) {
	query := `SELECT ` + postColumns + `
		FROM scheduled_posts
		WHERE user_id = $1
		ORDER BY schedule_time DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.ScheduledPost, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

// FindOwned returns the post if it exists and belongs to userID, locking the
// row for the rest of the surrounding transaction.
func (r *PostgresRepository) FindOwned(ctx context.Context, postID string, userID string) (*models.ScheduledPost, error) {
	query := `SELECT ` + postColumns + `
		FROM scheduled_posts
		WHERE post_id = $1 AND user_id = $2
		FOR UPDATE
	`
	p, err := scanPost(r.db.QueryRowContext(ctx, query, postID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

// Delete removes the post only when both ids match and returns the deleted
// row; no match yields common.ErrorNotFound.
func (r *PostgresRepository) Delete(ctx context.Context, postID string, userID string) (*models.ScheduledPost, error) {
	query := `
		DELETE FROM scheduled_posts
		WHERE post_id = $1 AND user_id = $2
		RETURNING ` + postColumns

	p, err := scanPost(r.db.QueryRowContext(ctx, query, postID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}
