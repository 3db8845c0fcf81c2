// Package server exposes the recommender over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/assessment-recommender/internal/ai"
	"github.com/spigell/assessment-recommender/internal/filtering"
	"github.com/spigell/assessment-recommender/internal/logger"
	"github.com/spigell/assessment-recommender/internal/recommendation"
)

const (
	defaultListen     = ":8080"
	maxBodyBytes      = 1 << 20
	maxQueryLogLen    = 100
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second

	msgNoQuestion     = "No question provided"
	msgNoQuery        = "Query parameter is required"
	msgInvalidBody    = "Request body must be a JSON object"
	msgInternalFailed = "An error occurred while processing your request"
)

// Config holds HTTP API settings.
type Config struct {
	Listen         string        `mapstructure:"listen"`
	AllowedOrigins []string      `mapstructure:"allowed-origins"`
	RequestTimeout time.Duration `mapstructure:"request-timeout"`
}

// Server serves /api/ask, /api/search and /healthz.
type Server struct {
	recommender ai.Recommender
	filters     *filtering.Config
	origins     []string
	timeout     time.Duration
	listen      string
	logger      *zap.Logger
}

type askRequest struct {
	Question string `json:"question"`
}

type searchRequest struct {
	Query string `json:"query"`
}

type searchResponse struct {
	Success         bool                            `json:"success"`
	Query           string                          `json:"query,omitempty"`
	Recommendations []recommendation.Recommendation `json:"recommendations"`
	Message         string                          `json:"message,omitempty"`
	Error           string                          `json:"error,omitempty"`
}

// New creates a Server. filters may be nil.
func New(rec ai.Recommender, cfg Config, filters *filtering.Config, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}

	origins := make([]string, 0, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	listen := strings.TrimSpace(cfg.Listen)
	if listen == "" {
		listen = defaultListen
	}

	return &Server{
		recommender: rec,
		filters:     filters,
		origins:     origins,
		timeout:     cfg.RequestTimeout,
		listen:      listen,
		logger:      log,
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/ask", s.handleAsk)
	mux.HandleFunc("/api/search", s.handleSearch)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http api listening", zap.String("listen", s.listen))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http api")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http api: %w", err)
	}
	return nil
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}

	var req askRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msgInvalidBody})
		return
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msgNoQuestion})
		return
	}

	result, err := s.answer(r.Context(), question)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   msgInternalFailed,
			"details": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	s.setCORS(w, r)

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if !methodOnly(w, r, http.MethodPost) {
		return
	}

	var req searchRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, searchResponse{Error: msgInvalidBody, Recommendations: []recommendation.Recommendation{}})
		return
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeJSON(w, http.StatusBadRequest, searchResponse{Error: msgNoQuery, Recommendations: []recommendation.Recommendation{}})
		return
	}

	result, err := s.answer(r.Context(), query)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, searchResponse{
			Query:           query,
			Error:           err.Error(),
			Recommendations: []recommendation.Recommendation{},
		})
		return
	}

	items := result.Items()
	if len(items) > recommendation.MaxRecommendations {
		items = items[:recommendation.MaxRecommendations]
	}

	resp := searchResponse{
		Success:         true,
		Query:           query,
		Recommendations: items,
	}
	if result.IsConversational() {
		resp.Message = result.Message()
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) answer(ctx context.Context, query string) (*recommendation.Result, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	log := logger.WithFields(s.logger, logger.QueryFields(query, maxQueryLogLen)...)
	started := time.Now()

	result, err := s.recommender.Recommend(ctx, query)
	if err != nil {
		log.Error("recommendation failed", zap.Error(err))
		return nil, err
	}

	result, err = filtering.Run(ctx, s.filters, filtering.Deps{Logger: log}, filtering.Default(s.filters), result)
	if err != nil {
		log.Error("filtering failed", zap.Error(err))
		return nil, err
	}

	log.Info("request served",
		zap.Stringer("kind", result.Kind()),
		zap.Int("recommendations", result.Len()),
		zap.Duration("took", time.Since(started)),
	)

	return result, nil
}

func (s *Server) setCORS(w http.ResponseWriter, r *http.Request) {
	origin := s.origins[0]
	if requested := strings.TrimRight(r.Header.Get("Origin"), "/"); slices.Contains(s.origins, requested) {
		origin = requested
	}

	h := w.Header()
	h.Set("Access-Control-Allow-Origin", origin)
	h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	h.Add("Vary", "Origin")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
}

func methodOnly(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}
