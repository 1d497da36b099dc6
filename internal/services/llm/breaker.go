package llm

import (
	"context"
	"errors"
	"time"

	xhttp "PerpDesk/pkg/http"
	applogger "PerpDesk/pkg/logger"

	"github.com/sony/gobreaker"
)

// Breaker stops calling a failing provider until OpenTimeout has passed.
type Breaker struct {
	next Analyzer
	cb   *gobreaker.CircuitBreaker
}

// BreakerConfig trips after MaxFailures consecutive failures.
type BreakerConfig struct {
	Name        string
	MaxFailures uint32
	OpenTimeout time.Duration
}

func NewBreaker(next Analyzer, cfg BreakerConfig, logger *applogger.Logger) *Breaker {
	logger = applogger.OrNop(logger)
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 3
	}
	st := gobreaker.Settings{
		Name:    cfg.Name,
		Timeout: cfg.OpenTimeout,
	}
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= cfg.MaxFailures
	}
	// Client errors and cancellations say nothing about provider health.
	st.IsSuccessful = func(err error) bool {
		if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, ErrEmptyResponse) {
			return true
		}
		var se *xhttp.StatusError
		if errors.As(err, &se) {
			return !se.Retryable()
		}
		return false
	}
	st.OnStateChange = func(name string, from, to gobreaker.State) {
		logger.Warn("llm breaker state changed",
			applogger.String("breaker", name),
			applogger.String("from", from.String()),
			applogger.String("to", to.String()),
		)
	}
	return &Breaker{next: next, cb: gobreaker.NewCircuitBreaker(st)}
}

func (b *Breaker) Analyze(ctx context.Context, prompt, system string) (string, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Analyze(ctx, prompt, system)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

// State reports the breaker state, e.g. "closed" or "open".
func (b *Breaker) State() string {
	return b.cb.State().String()
}
