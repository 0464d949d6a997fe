package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/redditscheduler/internal/common"
	"github.com/dmitrijs2005/redditscheduler/internal/cryptox"
	"github.com/dmitrijs2005/redditscheduler/internal/logging"
	"github.com/dmitrijs2005/redditscheduler/internal/server/config"
	"github.com/dmitrijs2005/redditscheduler/internal/server/metrics"
	"github.com/dmitrijs2005/redditscheduler/internal/server/models"
	"github.com/dmitrijs2005/redditscheduler/internal/server/reddit"
	"github.com/dmitrijs2005/redditscheduler/internal/server/repositories/repomanager"
)

const (
	msgConfigIncomplete = "Server configuration incomplete"
	msgJobRunning       = "Scheduler run already in progress"
)

// PostFailure is one failed post in a run result.
type PostFailure struct {
	PostID string `json:"postId"`
	Error  string `json:"error"`
}

// RunResult summarizes one pass of the batch job.
type RunResult struct {
	Processed int           `json:"processed"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Errors    []PostFailure `json:"errors"`
}

// Message is the human-readable summary returned with the result.
func (r *RunResult) Message() string {
	if r.Processed == 0 {
		return "No posts to process"
	}
	return fmt.Sprintf("Processed %d posts", r.Processed)
}

// SchedulerService submits due pending posts. Runs inside one process never
// overlap; a second caller gets common.ErrorJobRunning.
type SchedulerService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	provider    Provider
	cipher      *cryptox.TokenCipher
	ready       error
	logger      logging.Logger
	now         func() time.Time
	mu          sync.Mutex
}

// NewSchedulerService constructs the batch job. cipher may be nil; Run then
// reports a configuration error.
func NewSchedulerService(db *sql.DB, m repomanager.RepositoryManager, p Provider, c *cryptox.TokenCipher, cfg *config.Config, l logging.Logger) *SchedulerService {
	return &SchedulerService{
		db:          db,
		repomanager: m,
		provider:    p,
		cipher:      c,
		ready:       cfg.SchedulerReady(),
		logger:      l.With("module", "scheduler"),
		now:         time.Now,
	}
}

// Run processes every due pending post once, oldest schedule time first.
// Per-post failures are recorded in the result; only a failure to load the
// due set is returned as an error.
func (s *SchedulerService) Run(ctx context.Context) (*RunResult, error) {
	if s.ready != nil || s.cipher == nil {
		return nil, newRequestError(common.ErrorConfiguration, msgConfigIncomplete)
	}
	if !s.mu.TryLock() {
		return nil, newRequestError(common.ErrorJobRunning, msgJobRunning)
	}
	defer s.mu.Unlock()

	start := time.Now()
	repo := s.repomanager.Posts(s.db)

	due, err := repo.SelectDuePending(ctx, s.now())
	if err != nil {
		return nil, err
	}

	result := &RunResult{Errors: []PostFailure{}}
	defer func() { metrics.ObserveRun(start, result.Succeeded, result.Failed) }()

	if len(due) == 0 {
		s.logger.Debug(ctx, "no posts to process")
		return result, nil
	}

	s.logger.Info(ctx, "processing due posts", "count", len(due))

	// a submitted post must get its status even if the caller went away
	writeCtx := context.WithoutCancel(ctx)

	for _, p := range due {
		// leave the rest pending for the next run
		if ctx.Err() != nil {
			s.logger.Warn(ctx, "run interrupted", "remaining", len(due)-result.Processed)
			break
		}

		log := s.logger.With("post_id", p.PostID, "user_id", p.UserID)
		result.Processed++

		if err := s.submit(ctx, p); err != nil {
			log.Error(ctx, "post submission failed", "error", err)
			msg := err.Error()
			if uerr := repo.UpdateStatus(writeCtx, p.PostID, common.StatusFailed, &msg); uerr != nil {
				log.Error(ctx, "failed to mark post failed", "error", uerr)
			}
			s.fail(result, p.PostID, msg)
			continue
		}

		if err := repo.UpdateStatus(writeCtx, p.PostID, common.StatusSent, nil); err != nil {
			log.Error(ctx, "post submitted but status update failed", "error", err)
			s.fail(result, p.PostID, "post submitted but status update failed: "+err.Error())
			continue
		}

		log.Info(ctx, "post submitted", "subreddit", p.Subreddit)
		result.Succeeded++
	}

	s.logger.Info(ctx, "run finished", "processed", result.Processed, "succeeded", result.Succeeded, "failed", result.Failed)
	return result, nil
}

// submit runs decrypt, refresh and submit for one post.
func (s *SchedulerService) submit(ctx context.Context, p *models.DuePost) error {
	refreshToken, err := s.cipher.Decrypt(p.EncryptedRefreshToken)
	if err != nil {
		return err
	}

	accessToken, err := s.provider.RefreshAccessToken(ctx, refreshToken)
	if err != nil {
		return err
	}

	sub := reddit.Submission{
		Subreddit: p.Subreddit,
		Title:     p.Title,
		Kind:      p.Kind(),
	}
	if p.Link != nil {
		sub.URL = *p.Link
	}
	if p.Body != nil {
		sub.Text = *p.Body
	}

	_, err = s.provider.Submit(ctx, accessToken, sub)
	return err
}

func (s *SchedulerService) fail(r *RunResult, postID, msg string) {
	r.Failed++
	r.Errors = append(r.Errors, PostFailure{PostID: postID, Error: msg})
}
