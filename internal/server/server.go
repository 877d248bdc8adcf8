// Package server provides the HTTP API for the interview assistant.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/jonathan/interview-assistant/internal/config"
	"github.com/jonathan/interview-assistant/internal/interview"
	"github.com/jonathan/interview-assistant/internal/logger"
	"github.com/jonathan/interview-assistant/internal/server/middleware"
	"github.com/jonathan/interview-assistant/internal/server/ratelimit"
)

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 30 * time.Second

// maxUploadBytes caps resume uploads.
const maxUploadBytes = 10 << 20

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	svc         *interview.Service
	log         *zap.Logger
	rateLimiter *ratelimit.Limiter
	authHandler *AuthHandler // nil when the dashboard is disabled
	jwtService  *JWTService
	broker      *Broker
}

// Config holds server configuration
type Config struct {
	Port      int
	RateLimit *ratelimit.Config

	// Dashboard auth; leave JWT nil to disable the dashboard routes.
	JWT          *config.JWTConfig
	Password     *config.PasswordConfig
	PasswordHash string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.log = logger.OrNop(l) }
}

// WithBroker streams events from a broker already registered with the service.
func WithBroker(b *Broker) Option {
	return func(s *Server) { s.broker = b }
}

// New creates a new server instance
func New(svc *interview.Service, cfg Config, opts ...Option) (*Server, error) {
	s := &Server{
		svc:    svc,
		log:    zap.NewNop(),
		broker: NewBroker(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if cfg.JWT != nil {
		if cfg.Password == nil || cfg.PasswordHash == "" {
			return nil, fmt.Errorf("dashboard auth needs a password hash")
		}
		s.jwtService = NewJWTService(cfg.JWT)
		s.authHandler = NewAuthHandler(cfg.Password, cfg.PasswordHash, s.jwtService)
	}

	rl := cfg.RateLimit
	if rl == nil {
		rl = ratelimit.NewConfig(true)
	}
	s.rateLimiter = ratelimit.NewLimiter(rl)

	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     s.Handler(),
		ReadTimeout: 30 * time.Second,
		// Scoring the last answer can take several throttled Gemini calls.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the full middleware chain around the routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /events", s.handleEvents)

	// Interviewee flow
	mux.HandleFunc("POST /candidates", s.handleAddCandidate)
	mux.HandleFunc("PUT /candidates/{id}/contact", s.handleUpdateContact)
	mux.HandleFunc("POST /candidates/{id}/start", s.handleStartInterview)
	mux.HandleFunc("POST /candidates/{id}/restore", s.handleRestore)
	mux.HandleFunc("GET /session", s.handleSession)
	mux.HandleFunc("PUT /session/draft", s.handleSaveDraft)
	mux.HandleFunc("POST /session/answer", s.handleSubmitAnswer)
	mux.HandleFunc("POST /session/pause", s.handlePause)
	mux.HandleFunc("POST /session/resume", s.handleResume)
	mux.HandleFunc("DELETE /session", s.handleClearSession)
	mux.HandleFunc("GET /session/welcome-back", s.handleWelcomeBack)

	// Interviewer dashboard
	if s.authHandler != nil {
		protect := middleware.AuthMiddleware(s.jwtService.AsTokenValidator(), RoleInterviewer)
		mux.HandleFunc("POST /auth/token", s.authHandler.IssueToken)
		mux.Handle("GET /candidates", protect(http.HandlerFunc(s.handleListCandidates)))
		mux.Handle("GET /candidates/{id}", protect(http.HandlerFunc(s.handleGetCandidate)))
		mux.Handle("GET /assessment/status", protect(http.HandlerFunc(s.handleAssessmentStatus)))
		mux.Handle("POST /assessment/reset", protect(http.HandlerFunc(s.handleResetAssessment)))
	}

	return s.withRateLimit(s.withLogging(s.withCORS(mux)))
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.Close()

	s.log.Info("server stopped")
	return nil
}

// Close stops the rate limiter cleanup goroutine.
func (s *Server) Close() {
	s.rateLimiter.Stop()
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(extractClientID(r), r.URL.Path, r.Method)
		setRateLimitHeaders(w, info)
		if !allowed {
			s.log.Warn("rate limit exceeded",
				zap.String("path", r.URL.Path),
				zap.Int("limit", info.Limit),
				zap.Time("reset", info.ResetTime))
			rateLimitResponse(w, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE streaming working through the logging middleware.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError maps err to a status and writes an error JSON response
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, HTTPStatus(err), map[string]string{"error": errorMessage(err)})
}

// extractClientID returns the caller's IP from RemoteAddr.
func extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		secs := int(info.RetryAfter.Seconds())
		response["retry_after"] = secs
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}

	writeJSON(w, http.StatusTooManyRequests, response)
}
