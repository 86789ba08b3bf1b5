// Package api exposes the HTTP interface for the insights service.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storesight/insights-crawler/internal/cache"
	"github.com/storesight/insights-crawler/internal/competitors"
	"github.com/storesight/insights-crawler/internal/config"
	"github.com/storesight/insights-crawler/internal/insights"
	"github.com/storesight/insights-crawler/internal/metrics"
	"github.com/storesight/insights-crawler/internal/storage"
)

// Runner executes the insights pipeline for one root URL.
type Runner interface {
	Run(ctx context.Context, rawURL string) (insights.InsightsResult, error)
}

// CompetitorFinder enriches a run with competitor summaries.
type CompetitorFinder interface {
	Find(ctx context.Context, excludeRootURL string) []competitors.Summary
}

// Server wires HTTP handlers to the pipeline and stores.
type Server struct {
	router      chi.Router
	runner      Runner
	results     insights.ResultStore
	resultCache *cache.Cache
	publisher   insights.Publisher
	finder      CompetitorFinder
	cfg         config.Config
	logger      *zap.Logger
}

// NewServer constructs a Server with middleware and routes. resultCache,
// publisher, and finder are optional.
func NewServer(
	runner Runner,
	results insights.ResultStore,
	resultCache *cache.Cache,
	publisher insights.Publisher,
	finder CompetitorFinder,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		runner:      runner,
		results:     results,
		resultCache: resultCache,
		publisher:   publisher,
		finder:      finder,
		cfg:         cfg,
		logger:      logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(2 * time.Minute))
	if cfg.Auth.Enabled {
		r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/insights", func(r chi.Router) {
			r.Post("/", s.extractInsights)
			r.Get("/{insights_id}", s.getInsights)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.logger, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.logger, w, http.StatusOK, map[string]string{"status": "ready"})
}

type extractRequest struct {
	WebsiteURL         string `json:"website_url"`
	BudgetSeconds      *int   `json:"budget_seconds"`
	IncludeCompetitors bool   `json:"include_competitors"`
}

type extractResponse struct {
	ID          string                  `json:"id"`
	Cached      bool                    `json:"cached"`
	Insights    insights.InsightsResult `json:"insights"`
	Competitors []competitors.Summary   `json:"competitors,omitempty"`
}

func (s *Server) extractInsights(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(s.logger, w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.WebsiteURL == "" {
		writeError(s.logger, w, http.StatusBadRequest, "website_url is required")
		return
	}

	cacheKey, keyErr := insights.NormalizeRootURL(req.WebsiteURL)
	if keyErr == nil && s.resultCache != nil {
		if entry, ok := s.resultCache.Get(cacheKey); ok {
			s.logger.Info("serving cached insights", zap.String("root", cacheKey))
			s.respond(r.Context(), w, entry.ID, entry.Result, true, req.IncludeCompetitors)
			return
		}
	}

	ctx := r.Context()
	if req.BudgetSeconds != nil && *req.BudgetSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(*req.BudgetSeconds)*time.Second)
		defer cancel()
	}

	result, err := s.runner.Run(ctx, req.WebsiteURL)
	if err != nil {
		s.writePipelineError(w, err)
		return
	}

	id, saveErr := s.results.SaveInsights(r.Context(), result)
	if saveErr != nil {
		writeError(s.logger, w, http.StatusInternalServerError, "failed to persist insights")
		return
	}
	if s.resultCache != nil && keyErr == nil {
		s.resultCache.Put(cacheKey, cache.Entry{ID: id, Result: result})
	}
	s.publishCompletion(r.Context(), id, result)
	s.respond(r.Context(), w, id, result, false, req.IncludeCompetitors)
}

func (s *Server) respond(
	ctx context.Context,
	w http.ResponseWriter,
	id string,
	result insights.InsightsResult,
	cached bool,
	includeCompetitors bool,
) {
	resp := extractResponse{ID: id, Cached: cached, Insights: result}
	if includeCompetitors && s.finder != nil {
		resp.Competitors = s.finder.Find(ctx, result.Store.RootURL)
	}
	writeJSON(s.logger, w, http.StatusOK, resp)
}

func (s *Server) getInsights(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "insights_id")
	result, err := s.results.GetInsights(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(s.logger, w, http.StatusNotFound, "insights not found")
			return
		}
		writeError(s.logger, w, http.StatusInternalServerError, "failed to fetch insights")
		return
	}
	writeJSON(s.logger, w, http.StatusOK, extractResponse{ID: id, Insights: result})
}

// writePipelineError maps pipeline errors onto HTTP statuses. Resolver
// rejections are the caller's problem; everything else is ours.
func (s *Server) writePipelineError(w http.ResponseWriter, err error) {
	var pe *insights.PipelineError
	if errors.As(err, &pe) && insights.IsInvalidStore(pe) {
		writeJSON(s.logger, w, http.StatusUnauthorized, map[string]string{
			"error": pe.Message,
			"kind":  string(pe.Kind),
		})
		return
	}
	if errors.Is(err, context.DeadlineExceeded) {
		writeError(s.logger, w, http.StatusGatewayTimeout, "extraction budget exceeded")
		return
	}
	s.logger.Error("pipeline run failed", zap.Error(err))
	writeError(s.logger, w, http.StatusInternalServerError, "extraction failed")
}

func (s *Server) publishCompletion(ctx context.Context, id string, result insights.InsightsResult) {
	if s.publisher == nil || !s.cfg.PubSub.Enabled {
		return
	}
	event := map[string]any{
		"insights_id":      id,
		"root_url":         result.Store.RootURL,
		"product_count":    len(result.Products),
		"partial_failures": len(result.PartialFailures),
		"fetched_at":       result.FetchedAt,
	}
	if _, err := s.publisher.Publish(ctx, s.cfg.PubSub.TopicName, event); err != nil {
		s.logger.Warn("publish completion event failed", zap.String("insights_id", id), zap.Error(err))
	}
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			metrics.RecordHTTPRequest(r.Method, strconv.Itoa(ww.status))
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("panic", rec))
					writeError(logger, w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

type requestIDKey struct{}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				writeError(zap.NewNop(), w, http.StatusForbidden, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(logger *zap.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("write JSON failed", zap.Error(err))
	}
}

func writeError(logger *zap.Logger, w http.ResponseWriter, status int, msg string) {
	writeJSON(logger, w, status, map[string]string{"error": msg})
}
