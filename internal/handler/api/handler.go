// Package api exposes the desk over HTTP: market state, signals, analyses and
// a websocket feed of new signals.
package api

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"PerpDesk/internal/domain/models"
	drepo "PerpDesk/internal/domain/repository"
	"PerpDesk/internal/service/ratelimit"
	"PerpDesk/internal/usecase"
	applogger "PerpDesk/pkg/logger"
)

// AnalysisService is the part of usecase.Analysis the API needs.
type AnalysisService interface {
	Run(ctx context.Context, opts usecase.AnalyzeOptions) (*usecase.AnalysisResult, error)
	State(ctx context.Context) (*models.MarketState, error)
	Latest(ctx context.Context) (*models.AnalysisRecord, error)
	Validate(raw string) (*models.LLMOutput, []string, []string)
}

type StatusService interface {
	Report(ctx context.Context) (*usecase.StatusReport, error)
}

// Handler serves the /api and /ws routes.
type Handler struct {
	analysis AnalysisService
	status   StatusService
	signals  drepo.SignalLog
	limiter  *ratelimit.Limiter
	upgrader websocket.Upgrader
	feedTick time.Duration
	now      func() time.Time
	l        *applogger.Logger
}

type Option func(*Handler)

// WithAnalyzeLimiter rate-limits POST /api/analyze per client IP.
func WithAnalyzeLimiter(l *ratelimit.Limiter) Option {
	return func(h *Handler) { h.limiter = l }
}

// WithFeedInterval sets how often the websocket feed polls the signal log.
func WithFeedInterval(d time.Duration) Option {
	return func(h *Handler) { h.feedTick = d }
}

func WithLogger(l *applogger.Logger) Option {
	return func(h *Handler) { h.l = l }
}

func NewHandler(analysis AnalysisService, status StatusService, signals drepo.SignalLog, opts ...Option) *Handler {
	h := &Handler{
		analysis: analysis,
		status:   status,
		signals:  signals,
		feedTick: 5 * time.Second,
		now:      time.Now,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.l = applogger.OrNop(h.l).With("api")
	return h
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/status", h.Status)
	g.GET("/state", h.State)
	g.GET("/signals", h.Signals)
	g.GET("/analysis/latest", h.LatestAnalysis)
	g.POST("/analyze", h.Analyze)
	g.POST("/validate", h.Validate)

	e.GET("/ws/signals", h.Feed)
}
