// Package assessment is the boundary to the external assessment service.
//
// Every operation on Gateway is total: when the service is unavailable,
// rate limited, slow or returns something unusable, the result comes from
// the local fallback package instead. Callers never see an external error.
package assessment

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/interview-assistant/internal/fallback"
	"github.com/jonathan/interview-assistant/internal/llm"
	"github.com/jonathan/interview-assistant/internal/logger"
)

const (
	// DefaultRecheckInterval is how long a quota failure keeps the service marked unavailable.
	DefaultRecheckInterval = 5 * time.Minute
	// DefaultCallTimeout bounds a single external call.
	DefaultCallTimeout = 30 * time.Second
)

// Operation names an external call, used for throttling, logs and metrics.
type Operation string

const (
	OpExtractContact    Operation = "extract_contact"
	OpGenerateQuestions Operation = "generate_questions"
	OpEvaluateAnswer    Operation = "evaluate_answer"
	OpGenerateSummary   Operation = "generate_summary"
)

// Call outcomes recorded in metrics.
const (
	outcomeSuccess  = "success"
	outcomeFallback = "fallback"
	outcomeQuota    = "quota"
	outcomeSkipped  = "skipped"
)

var errEmptyResponse = errors.New("empty response from assessment service")

// Status is a point-in-time view of service availability.
type Status struct {
	Available     bool      `json:"available"`
	QuotaExceeded bool      `json:"quotaExceeded"`
	Offline       bool      `json:"offline"`
	LastCheck     time.Time `json:"lastCheck,omitempty"`
}

// Gateway wraps an llm.Client with availability tracking and fallbacks.
type Gateway struct {
	client      llm.Client
	log         *zap.Logger
	now         func() time.Time
	recheck     time.Duration
	callTimeout time.Duration
	throttle    Throttle
	scorer      *fallback.Scorer

	mu        sync.Mutex
	available bool
	lastCheck time.Time
	// quotaGen counts quota failures. A call only restores availability if
	// no quota failure was recorded while it was in flight.
	quotaGen uint64
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(g *Gateway) { g.log = logger.OrNop(l) }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

// WithRecheckInterval sets how long a quota failure suppresses external calls.
func WithRecheckInterval(d time.Duration) Option {
	return func(g *Gateway) { g.recheck = d }
}

// WithThrottle sets the pre-call delays.
func WithThrottle(t Throttle) Option {
	return func(g *Gateway) { g.throttle = t }
}

// WithScorer sets the scorer used when answers are graded locally.
func WithScorer(s *fallback.Scorer) Option {
	return func(g *Gateway) { g.scorer = s }
}

// WithCallTimeout bounds each external call.
func WithCallTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.callTimeout = d }
}

// NewGateway creates a gateway. A nil client puts it in offline mode, where
// every operation is served locally.
func NewGateway(client llm.Client, opts ...Option) *Gateway {
	g := &Gateway{
		client:      client,
		log:         zap.NewNop(),
		now:         time.Now,
		recheck:     DefaultRecheckInterval,
		callTimeout: DefaultCallTimeout,
		throttle:    DefaultThrottle(),
		available:   true,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.scorer == nil {
		g.scorer = fallback.DefaultScorer()
	}
	setAvailableGauge(g.client != nil)
	return g
}

// Available reports whether the next operation will try the external service.
// After a quota failure it turns true again once the recheck interval has
// elapsed; the next call is then a trial.
func (g *Gateway) Available() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.availableLocked()
}

func (g *Gateway) availableLocked() bool {
	if g.client == nil {
		return false
	}
	if g.available {
		return true
	}
	return g.now().Sub(g.lastCheck) >= g.recheck
}

// Status returns the current availability state.
func (g *Gateway) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Status{
		Available:     g.availableLocked(),
		QuotaExceeded: g.client != nil && !g.available,
		Offline:       g.client == nil,
		LastCheck:     g.lastCheck,
	}
}

// ResetStatus forgets any quota failure so the next operation calls out again.
func (g *Gateway) ResetStatus() {
	g.mu.Lock()
	g.available = true
	g.lastCheck = time.Time{}
	g.mu.Unlock()
	setAvailableGauge(g.client != nil)
	g.log.Info("assessment service status reset")
}

func (g *Gateway) quotaGeneration() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.quotaGen
}

func (g *Gateway) markSuccess(gen uint64) {
	g.mu.Lock()
	if gen != g.quotaGen {
		g.mu.Unlock()
		return
	}
	wasDown := !g.available
	g.available = true
	g.mu.Unlock()
	if wasDown {
		setAvailableGauge(true)
		g.log.Info("assessment service available again")
	}
}

func (g *Gateway) markQuota() {
	g.mu.Lock()
	g.available = false
	g.lastCheck = g.now()
	g.quotaGen++
	g.mu.Unlock()
	setAvailableGauge(false)
}

// attempt runs one throttled, time-bounded external call and classifies the
// result. A nil return means fn succeeded and the caller may use its output.
func (g *Gateway) attempt(ctx context.Context, op Operation, fn func(ctx context.Context) error) error {
	if err := WaitFor(ctx, g.throttle.delay(op)); err != nil {
		observeCall(op, outcomeFallback, 0)
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, g.callTimeout)
	defer cancel()

	gen := g.quotaGeneration()
	start := time.Now()
	err := fn(callCtx)
	elapsed := time.Since(start)

	switch {
	case err == nil:
		observeCall(op, outcomeSuccess, elapsed)
		g.markSuccess(gen)
	case llm.IsQuotaError(err):
		observeCall(op, outcomeQuota, elapsed)
		g.markQuota()
		g.log.Warn("assessment service rate limited, using local fallback",
			zap.String(logger.FieldOperation, string(op)),
			zap.Duration("recheck_in", g.recheck),
			zap.Error(err))
	default:
		observeCall(op, outcomeFallback, elapsed)
		g.log.Warn("assessment call failed, using local fallback",
			zap.String(logger.FieldOperation, string(op)),
			zap.Error(err))
	}
	return err
}

// skip records an operation served locally without calling out.
func (g *Gateway) skip(op Operation) {
	observeCall(op, outcomeSkipped, 0)
	g.log.Debug("assessment service unavailable, serving locally",
		zap.String(logger.FieldOperation, string(op)))
}
