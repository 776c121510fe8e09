package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/shieldsec/shield-cli/internal/api/middleware"
	"github.com/shieldsec/shield-cli/internal/application/workflow"
	"github.com/shieldsec/shield-cli/internal/domain/assessment"
	sharedErrors "github.com/shieldsec/shield-cli/internal/shared/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const maxBodyBytes = 1 << 20

// WorkflowService is the controller surface exposed over HTTP.
type WorkflowService interface {
	LoadOrganizations(ctx context.Context) error
	SelectOrganization(id int64) error
	RefreshListings(ctx context.Context) error
	AddTechnology(label string) error
	RemoveTechnology(label string) bool
	SetAssessmentType(t assessment.Type) error
	RunAssessment(ctx context.Context) (*assessment.Result, error)
	ViewResult(v workflow.View) error
	DismissError()
	Snapshot() workflow.Snapshot
}

type SelectOrganizationRequest struct {
	ID int64 `json:"id"`
}

type TechnologyRequest struct {
	Label string `json:"label"`
}

type AssessmentTypeRequest struct {
	Type string `json:"type"`
}

type ViewRequest struct {
	View string `json:"view"`
}

// RunResponse is returned by POST /workflow/run.
type RunResponse struct {
	Result   *ResultView  `json:"result,omitempty"`
	Workflow WorkflowView `json:"workflow"`
}

// FailureResponse carries a user-facing failure plus the state it left behind.
type FailureResponse struct {
	Error    string       `json:"error"`
	Workflow WorkflowView `json:"workflow"`
}

type Config struct {
	Workflow    WorkflowService
	Hub         *SnapshotHub
	AuthToken   string
	Logger      *zap.Logger
	CORSOrigins []string // Allowed CORS origins (empty = allow all)
	RateLimit   int      // Requests per second per IP (0 = disabled)
	RateBurst   int      // Burst size for rate limiter
}

type Server struct {
	cfg      Config
	mux      *http.ServeMux
	limiters *rateLimiterMap
}

func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = cfg.RateLimit
	}
	srv := &Server{
		cfg:      cfg,
		mux:      http.NewServeMux(),
		limiters: newRateLimiterMap(),
	}
	srv.routes()
	return srv
}

// Close stops background maintenance. The server must not be used afterwards.
func (s *Server) Close() {
	s.limiters.stop()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// RequestID -> Logging -> RateLimit -> CORS -> Auth -> Handler
	handler := middleware.RequestID(s.withLogging(s.withRateLimit(s.withCORS(s.mux))))
	handler.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.mux.Handle("/api/v1/health", s.withAuth(http.HandlerFunc(s.handleHealth)))
	s.mux.Handle("/api/v1/workflow", s.withAuth(http.HandlerFunc(s.handleWorkflow)))
	s.mux.Handle("/api/v1/workflow/reload", s.withAuth(http.HandlerFunc(s.handleReload)))
	s.mux.Handle("/api/v1/workflow/organization", s.withAuth(http.HandlerFunc(s.handleSelectOrganization)))
	s.mux.Handle("/api/v1/workflow/tech-stack", s.withAuth(http.HandlerFunc(s.handleTechStack)))
	s.mux.Handle("/api/v1/workflow/type", s.withAuth(http.HandlerFunc(s.handleAssessmentType)))
	s.mux.Handle("/api/v1/workflow/run", s.withAuth(http.HandlerFunc(s.handleRun)))
	s.mux.Handle("/api/v1/workflow/view", s.withAuth(http.HandlerFunc(s.handleView)))
	s.mux.Handle("/api/v1/workflow/dismiss", s.withAuth(http.HandlerFunc(s.handleDismiss)))
	s.mux.Handle("/api/v1/workflow-stream", s.withAuth(http.HandlerFunc(s.handleWorkflowStream)))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWorkflow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	s.writeWorkflow(w, http.StatusOK)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, r)
		return
	}
	if err := s.cfg.Workflow.LoadOrganizations(r.Context()); err != nil {
		s.requestLogger(r).Warn("workflow_reload_failed", zap.Error(err))
		s.writeFailure(w, http.StatusBadGateway)
		return
	}
	s.writeWorkflow(w, http.StatusOK)
}

func (s *Server) handleSelectOrganization(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, r)
		return
	}
	var req SelectOrganizationRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.cfg.Workflow.SelectOrganization(req.ID); err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	if err := s.cfg.Workflow.RefreshListings(r.Context()); err != nil {
		// the banner in the snapshot already reports it
		s.requestLogger(r).Warn("listing_refresh_failed", zap.Error(err))
	}
	s.writeWorkflow(w, http.StatusOK)
}

func (s *Server) handleTechStack(w http.ResponseWriter, r *http.Request) {
	var req TechnologyRequest
	switch r.Method {
	case http.MethodPost:
		if !s.decode(w, r, &req) {
			return
		}
		if err := s.cfg.Workflow.AddTechnology(req.Label); err != nil {
			s.writeError(w, r, statusFor(err), err)
			return
		}
	case http.MethodDelete:
		if !s.decode(w, r, &req) {
			return
		}
		s.cfg.Workflow.RemoveTechnology(req.Label)
	default:
		s.methodNotAllowed(w, r)
		return
	}
	s.writeWorkflow(w, http.StatusOK)
}

func (s *Server) handleAssessmentType(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, r)
		return
	}
	var req AssessmentTypeRequest
	if !s.decode(w, r, &req) {
		return
	}
	t, err := assessment.ParseType(req.Type)
	if err == nil {
		err = s.cfg.Workflow.SetAssessmentType(t)
	}
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	s.writeWorkflow(w, http.StatusOK)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, r)
		return
	}
	result, err := s.cfg.Workflow.RunAssessment(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, RunResponse{
			Result:   ToResultView(result),
			Workflow: ToWorkflowView(s.cfg.Workflow.Snapshot()),
		})
	case errors.Is(err, sharedErrors.ErrAssessmentFailed):
		s.requestLogger(r).Warn("assessment_failed", zap.Error(err))
		s.writeFailure(w, http.StatusBadGateway)
	default:
		s.writeError(w, r, statusFor(err), err)
	}
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, r)
		return
	}
	var req ViewRequest
	if !s.decode(w, r, &req) {
		return
	}
	v, err := workflow.ParseView(req.View)
	if err == nil {
		err = s.cfg.Workflow.ViewResult(v)
	}
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	s.writeWorkflow(w, http.StatusOK)
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, r)
		return
	}
	s.cfg.Workflow.DismissError()
	s.writeWorkflow(w, http.StatusOK)
}

func (s *Server) handleWorkflowStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	if s.cfg.Hub == nil {
		s.writeError(w, r, http.StatusNotFound, errors.New("workflow stream not available"))
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, r, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}
	// streams outlive the server write timeout
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	updates, unsubscribe := s.cfg.Hub.Subscribe()
	defer unsubscribe()

	// a new subscriber always starts from the current state
	current := ToWorkflowView(s.cfg.Workflow.Snapshot())
	if !s.writeEvent(w, current) {
		return
	}
	flusher.Flush()
	lastRevision := current.Revision

	ctx := r.Context()
	for {
		select {
		case view, ok := <-updates:
			if !ok {
				return
			}
			if view.Revision <= lastRevision {
				continue
			}
			if !s.writeEvent(w, view) {
				return
			}
			lastRevision = view.Revision
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) writeEvent(w http.ResponseWriter, view WorkflowView) bool {
	payload, err := json.Marshal(view)
	if err != nil {
		s.cfg.Logger.Error("failed to marshal snapshot", zap.Error(err))
		return true
	}
	if !s.writeStreamChunk(w, []byte(fmt.Sprintf("event: snapshot\nid: %d\n", view.Revision))) {
		return false
	}
	if !s.writeStreamChunk(w, []byte("data: ")) {
		return false
	}
	if !s.writeStreamChunk(w, payload) {
		return false
	}
	return s.writeStreamChunk(w, []byte("\n\n"))
}

func (s *Server) writeWorkflow(w http.ResponseWriter, status int) {
	writeJSON(w, status, ToWorkflowView(s.cfg.Workflow.Snapshot()))
}

// writeFailure reports a backend failure with the controller's user-facing
// message; internal details stay in the logs.
func (s *Server) writeFailure(w http.ResponseWriter, status int) {
	view := ToWorkflowView(s.cfg.Workflow.Snapshot())
	msg := view.Error
	if msg == "" {
		msg = http.StatusText(status)
	}
	writeJSON(w, status, FailureResponse{Error: msg, Workflow: view})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, sharedErrors.ErrOrganizationNotFound):
		return http.StatusNotFound
	case errors.Is(err, sharedErrors.ErrAssessmentInProgress),
		errors.Is(err, sharedErrors.ErrDuplicateTechnology):
		return http.StatusConflict
	case errors.Is(err, sharedErrors.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, sharedErrors.ErrEmptyTechnology),
		errors.Is(err, sharedErrors.ErrInvalidAssessmentType),
		errors.Is(err, sharedErrors.ErrInvalidView),
		errors.Is(err, sharedErrors.ErrOrganizationNotSelected):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.RateLimit <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		clientIP := clientIP(r)
		limiter := s.limiters.getLimiter(clientIP, s.cfg.RateLimit, s.cfg.RateBurst)
		if !limiter.Allow() {
			s.requestLogger(r).Warn("rate_limit_exceeded",
				zap.String("client_ip", clientIP),
			)
			s.writeError(w, r, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP prefers the first X-Forwarded-For hop and strips any port.
func clientIP(r *http.Request) string {
	ip := r.RemoteAddr
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if idx := strings.Index(forwarded, ","); idx > 0 {
			ip = strings.TrimSpace(forwarded[:idx])
		} else {
			ip = strings.TrimSpace(forwarded)
		}
	}
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return ip
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		allowOrigin := "*"
		if len(s.cfg.CORSOrigins) > 0 {
			allowOrigin = ""
			for _, allowedOrigin := range s.cfg.CORSOrigins {
				if allowedOrigin == origin {
					allowOrigin = origin
					break
				}
			}
		}

		if allowOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Auth-Token, X-Request-ID")
			w.Header().Set("Access-Control-Max-Age", "3600")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(lrw, r)

		s.cfg.Logger.Info("http_request",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Int("status", lrw.statusCode),
			zap.Duration("duration", time.Since(start)),
			zap.Int64("bytes", lrw.bytesWritten),
		)
	})
}

func (s *Server) withAuth(next http.Handler) http.Handler {
	if s.cfg.AuthToken == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-Auth-Token")
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AuthToken)) != 1 {
			s.writeError(w, r, http.StatusUnauthorized, errors.New("unauthorized"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// loggingResponseWriter wraps http.ResponseWriter to capture status code and bytes written
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	n, err := lrw.ResponseWriter.Write(b)
	lrw.bytesWritten += int64(n)
	return n, err
}

// Flush keeps the SSE stream working through the logging wrapper.
func (lrw *loggingResponseWriter) Flush() {
	if f, ok := lrw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (lrw *loggingResponseWriter) Unwrap() http.ResponseWriter {
	return lrw.ResponseWriter
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	msg := err.Error()

	// 5xx details stay server side
	if status >= 500 {
		s.requestLogger(r).Error("internal_server_error",
			zap.Error(err),
			zap.Int("status", status),
		)
		msg = "internal server error"
	}

	writeJSON(w, status, map[string]string{"error": msg})
}

// requestLogger creates a logger with request context (request ID, method, path)
func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	logger := s.cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger.With(
		zap.String("request_id", middleware.GetRequestID(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	)
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func (s *Server) writeStreamChunk(w http.ResponseWriter, data []byte) bool {
	if _, err := w.Write(data); err != nil {
		if s.cfg.Logger != nil {
			s.cfg.Logger.Error("failed to write stream chunk", zap.Error(err))
		}
		return false
	}
	return true
}

// rateLimiterMap manages per-IP rate limiters with automatic cleanup
type rateLimiterMap struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
	done     chan struct{}
	once     sync.Once
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newRateLimiterMap() *rateLimiterMap {
	m := &rateLimiterMap{
		limiters: make(map[string]*ipLimiter),
		done:     make(chan struct{}),
	}
	go m.cleanupLoop()
	return m
}

func (m *rateLimiterMap) getLimiter(ip string, rps, burst int) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	limiter, exists := m.limiters[ip]
	if !exists {
		limiter = &ipLimiter{
			limiter:  rate.NewLimiter(rate.Limit(rps), burst),
			lastSeen: time.Now(),
		}
		m.limiters[ip] = limiter
	} else {
		limiter.lastSeen = time.Now()
	}

	return limiter.limiter
}

func (m *rateLimiterMap) stop() {
	m.once.Do(func() { close(m.done) })
}

// cleanupLoop removes limiters that haven't been used in 5 minutes
func (m *rateLimiterMap) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
		}
		m.mu.Lock()
		for ip, limiter := range m.limiters {
			if time.Since(limiter.lastSeen) > 5*time.Minute {
				delete(m.limiters, ip)
			}
		}
		m.mu.Unlock()
	}
}
