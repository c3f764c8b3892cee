// Package server exposes the webhook endpoint that feeds PR review
// feedback back into the task queue, plus health and metrics routes.
package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/devbot/internal/config"
	"github.com/fyrsmithlabs/devbot/internal/logging"
	"github.com/fyrsmithlabs/devbot/internal/task"
)

// Submitter accepts review feedback for asynchronous processing.
// Implementations must not block; the webhook handler responds 202
// before any work runs.
type Submitter func(fb task.Feedback) error

// Server is the webhook HTTP server.
type Server struct {
	echo   *echo.Echo
	cfg    config.ServerConfig
	submit Submitter
	logger *logging.Logger

	mu          sync.Mutex
	limiters    map[string]*rate.Limiter
	lastCleanup time.Time
}

// NewServer creates the server. submit receives one Feedback per
// actionable review event.
func NewServer(cfg config.ServerConfig, submit Submitter, logger *logging.Logger) (*Server, error) {
	if submit == nil {
		return nil, fmt.Errorf("submitter is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	s := &Server{
		echo:        e,
		cfg:         cfg,
		submit:      submit,
		logger:      logger.Named("server"),
		limiters:    map[string]*rate.Limiter{},
		lastCleanup: time.Now(),
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.POST("/webhook", s.handleWebhook)
}

// Echo exposes the router for tests and extra route registration.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start blocks serving HTTP until Shutdown or a listener error.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}

// HealthResponse is the body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// webhookResponse is the body for POST /webhook. Branch correlates a
// queued iteration with its task branch.
type webhookResponse struct {
	Status string `json:"status"`
	Branch string `json:"branch,omitempty"`
}

func (s *Server) handleWebhook(c echo.Context) error {
	ctx := c.Request().Context()
	metrics := task.NewMetrics()

	ip := clientIP(c.Request())
	if !s.limiterFor(ip).Allow() {
		s.logger.Warn(ctx, "rate limit exceeded", zap.String("ip", ip))
		metrics.WebhookEvents.WithLabelValues("rate_limited").Inc()
		return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
	}

	c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, 1<<20)

	payload, err := s.readPayload(c.Request())
	if err != nil {
		s.logger.Warn(ctx, "rejecting webhook payload", zap.Error(err))
		metrics.WebhookEvents.WithLabelValues("invalid").Inc()
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid payload")
	}

	event, err := github.ParseWebHook(github.WebHookType(c.Request()), payload)
	if err != nil {
		s.logger.Warn(ctx, "unparseable webhook", zap.Error(err))
		metrics.WebhookEvents.WithLabelValues("invalid").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	review, ok := event.(*github.PullRequestReviewEvent)
	if !ok {
		s.logger.Debug(ctx, "ignoring event type", zap.String("type", fmt.Sprintf("%T", event)))
		metrics.WebhookEvents.WithLabelValues("ignored").Inc()
		return c.JSON(http.StatusOK, webhookResponse{Status: "ignored"})
	}

	fb, actionable := feedbackFromReview(review)
	if !actionable {
		s.logger.Debug(ctx, "ignoring review event",
			zap.String("action", review.GetAction()),
			zap.String("state", review.GetReview().GetState()),
		)
		metrics.WebhookEvents.WithLabelValues("ignored").Inc()
		return c.JSON(http.StatusOK, webhookResponse{Status: "ignored"})
	}

	if err := s.submit(fb); err != nil {
		s.logger.Error(ctx, "feedback submission failed", zap.Error(err))
		metrics.WebhookEvents.WithLabelValues("rejected").Inc()
		return echo.NewHTTPError(http.StatusServiceUnavailable, "queue unavailable")
	}

	s.logger.Info(ctx, "feedback queued", zap.String("branch", fb.Branch))
	metrics.WebhookEvents.WithLabelValues("queued").Inc()
	return c.JSON(http.StatusAccepted, webhookResponse{Status: "queued", Branch: fb.Branch})
}

// readPayload verifies the signature when a webhook secret is
// configured; without one it reads the raw body.
func (s *Server) readPayload(r *http.Request) ([]byte, error) {
	if s.cfg.WebhookSecret.IsSet() {
		return github.ValidatePayload(r, []byte(s.cfg.WebhookSecret.Value()))
	}
	return io.ReadAll(r.Body)
}

// feedbackFromReview extracts actionable feedback. Only a submitted
// review that requested changes resumes a task.
func feedbackFromReview(event *github.PullRequestReviewEvent) (task.Feedback, bool) {
	if event.GetAction() != "submitted" {
		return task.Feedback{}, false
	}
	if event.GetReview().GetState() != "changes_requested" {
		return task.Feedback{}, false
	}
	branch := event.GetPullRequest().GetHead().GetRef()
	if branch == "" {
		return task.Feedback{}, false
	}
	return task.Feedback{
		Branch:     branch,
		ReviewBody: event.GetReview().GetBody(),
	}, true
}

// limiterFor returns the per-IP limiter, 60 requests per minute with a
// burst of 10. The map is rebuilt hourly to bound memory.
func (s *Server) limiterFor(ip string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if time.Since(s.lastCleanup) > time.Hour {
		s.limiters = map[string]*rate.Limiter{}
		s.lastCleanup = time.Now()
	}

	limiter, ok := s.limiters[ip]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(1), 10)
		s.limiters[ip] = limiter
	}
	return limiter
}

// clientIP prefers proxy headers over the socket address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}
	return r.RemoteAddr
}
