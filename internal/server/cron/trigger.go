// Package cron runs the batch job on a cron schedule inside the server
// process.
package cron

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/redditscheduler/internal/common"
	"github.com/dmitrijs2005/redditscheduler/internal/logging"
	"github.com/dmitrijs2005/redditscheduler/internal/server/services"
	robfig "github.com/robfig/cron/v3"
)

type Job interface {
	Run(ctx context.Context) (*services.RunResult, error)
}

type Trigger struct {
	spec   string
	job    Job
	logger logging.Logger
}

// NewTrigger validates spec (five-field cron or a descriptor such as
// "@every 5m").
func NewTrigger(spec string, job Job, l logging.Logger) (*Trigger, error) {
	if _, err := robfig.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("%w: invalid cron spec %q: %v", common.ErrorConfiguration, spec, err)
	}
	return &Trigger{spec: spec, job: job, logger: l.With("module", "cron")}, nil
}

// Run fires the job on schedule until ctx is canceled and waits for an
// in-flight run to finish before returning.
func (t *Trigger) Run(ctx context.Context) error {
	c := robfig.New(robfig.WithChain(robfig.SkipIfStillRunning(robfig.DiscardLogger)))
	if _, err := c.AddFunc(t.spec, func() { t.fire(ctx) }); err != nil {
		return err
	}

	t.logger.Info(ctx, "Starting cron trigger", "spec", t.spec)
	c.Start()

	<-ctx.Done()

	t.logger.Info(ctx, "Stopping cron trigger...")
	<-c.Stop().Done()
	return nil
}

func (t *Trigger) fire(ctx context.Context) {
	res, err := t.job.Run(ctx)
	switch {
	case errors.Is(err, common.ErrorJobRunning):
		t.logger.Warn(ctx, "scheduled run skipped, previous run still active")
	case err != nil:
		t.logger.Error(ctx, "scheduled run failed", "error", err)
	default:
		t.logger.Info(ctx, "scheduled run finished", "processed", res.Processed, "succeeded", res.Succeeded, "failed", res.Failed)
	}
}
