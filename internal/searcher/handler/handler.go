// Package handler exposes the search executor and the relevance engine over
// HTTP/JSON.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/internal/relevance"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/internal/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-relevance-engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/pkg/middleware"
)

type SearchExecutor interface {
	Search(ctx context.Context, query string, limit int) (*executor.SearchResult, error)
}

// Engine is the per-document lookup side of relevance.Engine.
type Engine interface {
	PageRank(id string) (float64, error)
	Relevance(query []string, id string) (float64, error)
	Stats() relevance.BuildStats
}

type Handler struct {
	executor     SearchExecutor
	engine       Engine
	cache        *cache.QueryCache
	metrics      *metrics.Metrics
	defaultLimit int
	maxResults   int
	logger       *slog.Logger
}

// New wires the HTTP handlers. queryCache and m may be nil.
func New(exec SearchExecutor, engine Engine, queryCache *cache.QueryCache, m *metrics.Metrics, defaultLimit, maxResults int) *Handler {
	return &Handler{
		executor:     exec,
		engine:       engine,
		cache:        queryCache,
		metrics:      m,
		defaultLimit: defaultLimit,
		maxResults:   maxResults,
		logger:       slog.Default().With("component", "search-handler"),
	}
}

// Register mounts every route on mux.
// CacheStatusHeader reports HIT or MISS on search responses when a cache is
// configured.
const CacheStatusHeader = "X-Cache"

func cacheStatus(hit bool) string {
	if hit {
		return "HIT"
	}
	return "MISS"
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/pagerank", h.PageRank)
	mux.HandleFunc("GET /api/v1/relevance", h.Relevance)
	mux.HandleFunc("GET /api/v1/engine/stats", h.EngineStats)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'q' is required"))
		return
	}
	limit, err := h.parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	var result *executor.SearchResult
	cacheHit := false
	if h.cache != nil {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, query, limit, func(ctx context.Context) (*executor.SearchResult, error) {
			return h.executor.Search(ctx, query, limit)
		})
	} else {
		result, err = h.executor.Search(ctx, query, limit)
	}
	if err != nil {
		log.Error("search failed", "query", query, "error", err)
		h.observeSearch("error", cacheHit, start, 0)
		h.writeError(w, err)
		return
	}

	resultType := "miss"
	switch {
	case len(result.Results) == 0:
		resultType = "zero_result"
	case cacheHit:
		resultType = "hit"
	}
	h.observeSearch(resultType, cacheHit, start, len(result.Results))
	if h.cache != nil {
		w.Header().Set(CacheStatusHeader, cacheStatus(cacheHit))
	}
	log.Info("search completed",
		"query", query,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache_hit", cacheHit,
		"latency_ms", time.Since(start).Milliseconds(),
		"request_id", middleware.GetRequestID(ctx),
	)
	h.writeJSON(w, http.StatusOK, result)
}

type pageRankResponse struct {
	URI      string  `json:"uri"`
	PageRank float64 `json:"pagerank"`
}

func (h *Handler) PageRank(w http.ResponseWriter, r *http.Request) {
	uri := r.URL.Query().Get("uri")
	if uri == "" {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'uri' is required"))
		return
	}
	pr, err := h.engine.PageRank(uri)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, pageRankResponse{URI: uri, PageRank: pr})
}

type relevanceResponse struct {
	URI       string   `json:"uri"`
	Query     string   `json:"query"`
	Terms     []string `json:"terms"`
	Relevance float64  `json:"relevance"`
}

func (h *Handler) Relevance(w http.ResponseWriter, r *http.Request) {
	uri := r.URL.Query().Get("uri")
	query := r.URL.Query().Get("q")
	if uri == "" || query == "" {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameters 'q' and 'uri' are required"))
		return
	}
	terms := tokenizer.Terms(query)
	score, err := h.engine.Relevance(terms, uri)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if terms == nil {
		terms = []string{}
	}
	h.writeJSON(w, http.StatusOK, relevanceResponse{URI: uri, Query: query, Terms: terms, Relevance: score})
}

func (h *Handler) EngineStats(w http.ResponseWriter, r *http.Request) {
	s := h.engine.Stats()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"documents":           s.Documents,
		"edges":               s.Edges,
		"terms":               s.Terms,
		"pagerank_iterations": s.Iterations,
		"pagerank_delta":      s.FinalDelta,
		"build_ms":            s.TotalTime.Milliseconds(),
	})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, apperrors.New(apperrors.ErrInternal, http.StatusServiceUnavailable, "caching is disabled"))
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) parseLimit(raw string) (int, error) {
	if raw == "" {
		return min(h.defaultLimit, h.maxResults), nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "limit must be a positive integer")
	}
	return min(limit, h.maxResults), nil
}

func (h *Handler) observeSearch(resultType string, cacheHit bool, start time.Time, returned int) {
	if h.metrics == nil {
		return
	}
	cacheStatus := "miss"
	if cacheHit {
		cacheStatus = "hit"
	}
	h.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(time.Since(start).Seconds())
	h.metrics.SearchResultsCount.Observe(float64(returned))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

// writeError maps err to a status code. Server-side failures hide their
// detail from the client.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	message := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	if status >= http.StatusInternalServerError && appErr == nil {
		message = http.StatusText(status)
	}
	h.writeJSON(w, status, map[string]string{"error": message})
}
