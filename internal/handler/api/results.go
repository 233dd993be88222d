package api

import (
	"github.com/labstack/echo/v4"

	models "github.com/bournewang/ai-hedge-fund/internal/domain/models"
	domrepo "github.com/bournewang/ai-hedge-fund/internal/domain/repository"
	icache "github.com/bournewang/ai-hedge-fund/internal/service/cache"
	xhttp "github.com/bournewang/ai-hedge-fund/pkg/http"
	xlogger "github.com/bournewang/ai-hedge-fund/pkg/logger"
)

// ResultsHandler serves reconciled analysis results and the cache admin
// endpoints.
type ResultsHandler struct {
	logger *xlogger.Logger
	store  domrepo.DatasetStore
	cache  *icache.ResultsCache
}

func NewResultsHandler(logger *xlogger.Logger, store domrepo.DatasetStore, cache *icache.ResultsCache) *ResultsHandler {
	return &ResultsHandler{logger: logger, store: store, cache: cache}
}

func (h *ResultsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/analysis/results", h.ListKeys)
	g.GET("/analysis/results/:key", h.GetResult)
	g.GET("/cache/stats", h.CacheStats)
	g.DELETE("/cache/clear", h.ClearCache)
}

// ListKeys lists the source keys that currently have reconciled results.
func (h *ResultsHandler) ListKeys(c echo.Context) error {
	keys := h.store.Keys()
	return xhttp.ListResponse(c, keys, int64(len(keys)))
}

// GetResult returns the dataset view for one source key, serving from the
// results cache when it can.
func (h *ResultsHandler) GetResult(c echo.Context) error {
	key := c.Param("key")

	if h.cache != nil {
		view, ok, err := h.cache.GetView(c.Request().Context(), key)
		if err != nil {
			h.logger.Warn("results cache read failed", xlogger.String("source_key", key), xlogger.Error(err))
		} else if ok {
			return xhttp.SuccessResponse(c, view)
		}
	}

	ds, ok := h.store.Get(key)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("analysis result not found for this key"))
	}

	view := models.NewDatasetView(ds)
	if h.cache != nil {
		if err := h.cache.PutView(c.Request().Context(), key, view); err != nil {
			h.logger.Warn("results cache write failed", xlogger.String("source_key", key), xlogger.Error(err))
		}
	}
	return xhttp.SuccessResponse(c, view)
}

// CacheStatsResponse is the cache monitoring payload.
type CacheStatsResponse struct {
	CacheContents CacheContents `json:"cache_contents"`
	Performance   icache.Stats  `json:"performance"`
	CacheSize     int           `json:"cache_size"`
}

// CacheContents summarizes what the dataset store holds.
type CacheContents struct {
	AnalysisResults int      `json:"analysis_results_cached"`
	Keys            []string `json:"keys"`
}

func (h *ResultsHandler) CacheStats(c echo.Context) error {
	keys := h.store.Keys()
	resp := CacheStatsResponse{
		CacheContents: CacheContents{
			AnalysisResults: len(keys),
			Keys:            keys,
		},
		CacheSize: len(keys),
	}
	if h.cache != nil {
		resp.Performance = h.cache.Stats()
	}
	return xhttp.SuccessResponse(c, resp)
}

// ClearCache drops cached result views and resets hit counters. The dataset
// store itself is untouched; views rebuild on the next read.
func (h *ResultsHandler) ClearCache(c echo.Context) error {
	if h.cache != nil {
		if err := h.cache.Clear(c.Request().Context()); err != nil {
			h.logger.Error("cache clear failed", xlogger.Error(err))
			return xhttp.AppErrorResponse(c, xhttp.InternalError("cache clear failed"))
		}
	}
	return xhttp.SuccessResponse(c, map[string]string{"message": "Cache cleared successfully"})
}
