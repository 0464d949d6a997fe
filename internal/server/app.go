// Package server wires the scheduler together: storage, provider client,
// services, the HTTP API and the optional in-process cron trigger.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/redditscheduler/internal/cryptox"
	"github.com/dmitrijs2005/redditscheduler/internal/logging"
	"github.com/dmitrijs2005/redditscheduler/internal/server/config"
	"github.com/dmitrijs2005/redditscheduler/internal/server/cron"
	"github.com/dmitrijs2005/redditscheduler/internal/server/httpapi"
	"github.com/dmitrijs2005/redditscheduler/internal/server/reddit"
	"github.com/dmitrijs2005/redditscheduler/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/redditscheduler/internal/server/services"
)

type App struct {
	config           *config.Config
	logger           logging.Logger
	db               *sql.DB
	authService      *services.AuthService
	postService      *services.PostService
	schedulerService *services.SchedulerService
}

// NewApp opens the database, applies migrations and builds the services.
// A malformed encryption key is fatal; a missing one only disables the
// login callback and the batch job.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	cipher, err := newCipher(c)
	if err != nil {
		return nil, err
	}
	if cipher == nil {
		logger.Warn(ctx, "encryption key not configured, login and scheduler are disabled")
	}
	if err := c.OAuthReady(); err != nil {
		logger.Warn(ctx, "reddit credentials not configured, login and scheduler are disabled")
	}

	db, err := repomanager.OpenPostgres(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	app, err := newApp(c, logger, db, rm, cipher, reddit.NewClient(c))
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

func newCipher(c *config.Config) (*cryptox.TokenCipher, error) {
	if c.EncryptionKey == "" {
		return nil, nil
	}
	return cryptox.NewTokenCipher(c.EncryptionKey)
}

func newApp(c *config.Config, l logging.Logger, db *sql.DB, rm repomanager.RepositoryManager, cipher *cryptox.TokenCipher, p services.Provider) (*App, error) {
	as, err := services.NewAuthService(db, rm, p, cipher, c, l)
	if err != nil {
		return nil, err
	}
	return &App{
		config:           c,
		logger:           l,
		db:               db,
		authService:      as,
		postService:      services.NewPostService(db, rm, l),
		schedulerService: services.NewSchedulerService(db, rm, p, cipher, c, l),
	}, nil
}

// RunScheduler performs a single batch pass.
func (app *App) RunScheduler(ctx context.Context) (*services.RunResult, error) {
	return app.schedulerService.Run(ctx)
}

func (app *App) Close() error {
	return app.db.Close()
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewHTTPServer(app.config, app.logger, app.authService, app.postService, app.schedulerService)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startCronTrigger(ctx context.Context, cancelFunc context.CancelFunc) {
	t, err := cron.NewTrigger(app.config.SchedulerCron, app.schedulerService, app.logger)
	if err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
		return
	}
	if err := t.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until a termination signal arrives or ctx is canceled.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	if app.config.SchedulerCron != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startCronTrigger(ctx, cancelFunc)
		}()
	}

	wg.Wait()

	if err := app.Close(); err != nil {
		app.logger.Error(ctx, "db close failed", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
