// Package server provides the HTTP REST API for the interview manager.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/interview-manager/internal/access"
	"github.com/jonathan/interview-manager/internal/analytics"
	"github.com/jonathan/interview-manager/internal/config"
	"github.com/jonathan/interview-manager/internal/db"
	"github.com/jonathan/interview-manager/internal/events"
	"github.com/jonathan/interview-manager/internal/lifecycle"
	"github.com/jonathan/interview-manager/internal/logging"
	"github.com/jonathan/interview-manager/internal/notify"
	"github.com/jonathan/interview-manager/internal/readstate"
	"github.com/jonathan/interview-manager/internal/server/middleware"
	"github.com/jonathan/interview-manager/internal/server/ratelimit"
	"github.com/jonathan/interview-manager/internal/storage"
	"go.uber.org/zap"
)

// Store is everything the API reads and writes. Implemented by *db.DB and *memdb.Store.
type Store interface {
	ProfileStore
	lifecycle.Store
	access.Store
	analytics.Source
	CreateInterview(ctx context.Context, in *db.Interview, questions []db.QuestionInput) (*db.Interview, []db.Question, error)
	UpdateInterview(ctx context.Context, in *db.Interview, questions []db.QuestionInput) ([]db.Question, error)
	DeleteInterview(ctx context.Context, id uuid.UUID) error
	CreateAssignments(ctx context.Context, interviewID uuid.UUID, userIDs []uuid.UUID) ([]db.Assignment, error)
	Ping(ctx context.Context) error
}

// Options holds the server dependencies. Config, Store, JWT and Password are
// required; the rest fall back to in-process implementations.
type Options struct {
	Config    *config.Config
	Store     Store
	Objects   storage.ObjectStore
	Events    events.Publisher
	ReadState readstate.Store
	Sender    notify.Sender
	JWT       *config.JWTConfig
	Password  *config.PasswordConfig
	RateLimit *ratelimit.Config
}

// Server represents the HTTP server
type Server struct {
	cfg         *config.Config
	store       Store
	lifecycle   *lifecycle.Service
	gate        *access.Gate
	readState   readstate.Store
	sender      notify.Sender
	rateLimiter *ratelimit.Limiter
	jwtService  *JWTService
	userService *UserService
	authHandler *AuthHandler
	handler     http.Handler
	httpServer  *http.Server
}

// New creates a new server instance
func New(opts Options) (*Server, error) {
	if opts.Config == nil || opts.Store == nil {
		return nil, fmt.Errorf("server requires a config and a store")
	}
	if opts.JWT == nil || opts.Password == nil {
		return nil, fmt.Errorf("server requires JWT and password configuration")
	}
	cfg := opts.Config

	if opts.Objects == nil {
		opts.Objects = storage.NewMemoryStore("")
	}
	if opts.Events == nil {
		opts.Events = &events.Dummy{}
	}
	if opts.ReadState == nil {
		opts.ReadState = readstate.NewMemoryStore(cfg.ReadState.Cap)
	}
	if opts.Sender == nil {
		opts.Sender = notify.NewSender(cfg.SMTP, cfg.BaseURL)
	}
	if opts.RateLimit == nil {
		opts.RateLimit = ratelimit.LoadConfig()
	}

	s := &Server{
		cfg:         cfg,
		store:       opts.Store,
		lifecycle:   lifecycle.NewService(opts.Store, opts.Objects, opts.Events),
		gate:        access.NewGate(opts.Store),
		readState:   opts.ReadState,
		sender:      opts.Sender,
		rateLimiter: ratelimit.NewLimiter(opts.RateLimit),
		jwtService:  NewJWTService(opts.JWT),
		userService: NewUserService(opts.Store, opts.Password),
	}
	s.authHandler = NewAuthHandler(s.userService, s.jwtService, s.sender, cfg.BaseURL)

	authed := middleware.AuthMiddleware(s.jwtService.AsTokenValidator())
	admin := func(h http.HandlerFunc) http.Handler {
		return authed(middleware.RequireRole(db.RoleAdmin)(h))
	}
	user := func(h http.HandlerFunc) http.Handler {
		return authed(h)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	// Authentication
	mux.HandleFunc("POST /auth/register", s.authHandler.Register)
	mux.HandleFunc("POST /auth/login", s.authHandler.Login)
	mux.HandleFunc("POST /auth/magic-link", s.authHandler.MagicLink)
	mux.HandleFunc("POST /auth/magic-link/verify", s.authHandler.VerifyMagicLink)
	mux.Handle("GET /auth/me", user(s.authHandler.Me))
	mux.Handle("PUT /auth/password", user(s.authHandler.UpdatePassword))

	// Candidate flow; the invitation token is the credential
	mux.HandleFunc("GET /interview/{token}", s.handleOpenInterview)
	mux.HandleFunc("PUT /interview/{token}/answers/{question_id}", s.handleSaveAnswer)
	mux.HandleFunc("POST /interview/{token}/answers/{question_id}/video", s.handleUploadVideo)
	mux.HandleFunc("POST /interview/{token}/complete", s.handleCompleteInterview)
	mux.Handle("GET /me/assignments", user(s.handleMyAssignments))

	// Interviews
	mux.Handle("GET /interviews", admin(s.handleListInterviews))
	mux.Handle("POST /interviews", admin(s.handleCreateInterview))
	mux.Handle("GET /interviews/{id}", admin(s.handleGetInterview))
	mux.Handle("PUT /interviews/{id}", admin(s.handleUpdateInterview))
	mux.Handle("DELETE /interviews/{id}", admin(s.handleDeleteInterview))

	// Candidates and assignments
	mux.Handle("GET /candidates", admin(s.handleListCandidates))
	mux.Handle("POST /interviews/{id}/assignments", admin(s.handleCreateAssignments))
	mux.Handle("GET /interviews/{id}/assignments", admin(s.handleListInterviewAssignments))
	mux.Handle("GET /assignments", admin(s.handleListAssignments))
	mux.Handle("GET /assignments/{id}", admin(s.handleGetResults))
	mux.Handle("POST /assignments/{id}/resend", admin(s.handleResendInvitation))

	// Dashboard and notifications
	mux.Handle("GET /analytics/dashboard", admin(s.handleDashboard))
	mux.Handle("GET /notifications", admin(s.handleListNotifications))
	mux.Handle("POST /notifications/read-all", admin(s.handleMarkAllNotificationsRead))
	mux.Handle("POST /notifications/{id}/read", admin(s.handleMarkNotificationRead))

	s.handler = s.withRequestID(s.withRateLimit(s.withLogging(s.withCORS(mux))))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  120 * time.Second, // video uploads
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the fully wrapped router
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins listening for requests and blocks until SIGINT or SIGTERM
func (s *Server) Start() error {
	log := logging.L()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-stop:
	case err := <-errCh:
		s.Close()
		return fmt.Errorf("server error: %w", err)
	}
	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.Close()

	log.Info("server stopped")
	return nil
}

// Close stops background work owned by the server. The store is closed by its owner.
func (s *Server) Close() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
}

// withRequestID attaches the incoming X-Request-ID, or a new one, to the request context
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(logging.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(logging.RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}

// withCORS adds CORS headers for the configured origins
func (s *Server) withCORS(next http.Handler) http.Handler {
	origins := s.cfg.Origins()
	wildcard := false
	for _, o := range origins {
		if o == "*" {
			wildcard = true
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case wildcard:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && containsOrigin(origins, origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+logging.RequestIDHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func containsOrigin(origins []string, origin string) bool {
	for _, o := range origins {
		if strings.EqualFold(strings.TrimRight(o, "/"), origin) {
			return true
		}
	}
	return false
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)

		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, r, info)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for request logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		logging.FromContext(r.Context()).Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("latency", time.Since(start)),
			zap.String("remote_addr", r.RemoteAddr),
		)
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		logging.FromContext(r.Context()).Warn("health check failed", zap.Error(err))
		s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, data)
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody(message))
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.L().Error("error encoding JSON response", zap.Error(err))
	}
}

func errorBody(message string) map[string]string {
	return map[string]string{"error": message}
}

// writeError maps err to a status and writes it. Internal failures are logged and
// reported with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeJSON(w, status, errorBody(publicMessage(err)))
}

// pathID parses a uuid path parameter
func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, &ErrValidation{Field: name, Message: "must be a valid UUID"}
	}
	return id, nil
}

// extractClientID extracts the client identifier from the request.
// This uses the IP address from RemoteAddr; X-Forwarded-For is not trusted.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	response := map[string]interface{}{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		response["retry_after"] = int(info.RetryAfter.Seconds())
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(info.RetryAfter.Seconds())))
	}

	logging.FromContext(r.Context()).Warn("rate limit exceeded",
		zap.String("path", r.URL.Path),
		zap.Int("limit", info.Limit),
		zap.Time("reset_at", info.ResetTime),
	)

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
