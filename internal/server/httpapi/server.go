// Package httpapi exposes the scheduler over HTTP JSON with gin.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/redditscheduler/internal/logging"
	"github.com/dmitrijs2005/redditscheduler/internal/server/config"
	"github.com/dmitrijs2005/redditscheduler/internal/server/models"
	"github.com/dmitrijs2005/redditscheduler/internal/server/services"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 10 * time.Second

type AuthService interface {
	LoginURL(ctx context.Context) (string, error)
	HandleCallback(ctx context.Context, code, state, providerErr string) (string, error)
}

type PostService interface {
	Schedule(ctx context.Context, req services.ScheduleRequest) (*models.ScheduledPost, error)
	List(ctx context.Context, userID string) ([]*models.ScheduledPost, error)
	Delete(ctx context.Context, userID, postID string) error
}

type SchedulerService interface {
	Run(ctx context.Context) (*services.RunResult, error)
}

type HTTPServer struct {
	address        string
	frontendURL    string
	schedulerToken string
	logger         logging.Logger
	auth           AuthService
	posts          PostService
	scheduler      SchedulerService
	engine         *gin.Engine
}

func NewHTTPServer(cfg *config.Config, l logging.Logger, as AuthService, ps PostService, ss SchedulerService) *HTTPServer {
	if !strings.EqualFold(cfg.LogLevel, "debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &HTTPServer{
		address:        cfg.HTTPAddr,
		frontendURL:    strings.TrimRight(cfg.FrontendURL, "/"),
		schedulerToken: cfg.SchedulerAuthToken,
		logger:         l.With("module", "http_server"),
		auth:           as,
		posts:          ps,
		scheduler:      ss,
	}
	s.engine = s.routes()
	return s
}

func (s *HTTPServer) routes() *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery(), s.requestID(), s.accessLog())
	r.Use(cors.New(s.corsConfig()))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/login", s.login)
	r.GET("/auth", s.authCallback)
	r.GET("/posts", s.listPosts)
	r.DELETE("/posts", s.deletePost)
	r.POST("/schedule", s.schedulePost)
	r.POST("/run-scheduler", s.schedulerAuth(), s.runScheduler)

	return r
}

func (s *HTTPServer) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
		MaxAge:       12 * time.Hour,
	}
	if s.frontendURL == "" {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = []string{s.frontendURL}
	}
	return cfg
}

// Handler returns the routed engine, mostly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
