package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	models "github.com/bournewang/ai-hedge-fund/internal/domain/models"
	domrepo "github.com/bournewang/ai-hedge-fund/internal/domain/repository"
	internalrepo "github.com/bournewang/ai-hedge-fund/internal/repository"
	icache "github.com/bournewang/ai-hedge-fund/internal/service/cache"
	pkgcache "github.com/bournewang/ai-hedge-fund/pkg/cache"
	xhttp "github.com/bournewang/ai-hedge-fund/pkg/http"
)

func f64(v float64) *float64 { return &v }

func seedDataset(store domrepo.DatasetStore, key string) {
	store.Upsert(key, models.SourceMeta{
		RunID:       "run-42",
		TotalCost:   0.37,
		TotalTokens: 1200,
		UpdatedAt:   time.Now().UTC(),
	}, []models.TickerAnalysis{{
		Ticker:     "AAPL",
		Action:     models.ActionBuy,
		Confidence: f64(80),
		Reasoning:  json.RawMessage(`"strong moat"`),
		AgentSignals: []models.AgentSignalEntry{
			{AgentName: "ben_graham_agent", Signal: models.AgentSignal{Signal: "neutral", Confidence: f64(55)}},
			{AgentName: "warren_buffett_agent", Signal: models.AgentSignal{Signal: "bullish", Confidence: f64(80)}},
		},
	}})
}

func newResultsFixture(t *testing.T) (*ResultsHandler, domrepo.DatasetStore, *icache.ResultsCache) {
	t.Helper()
	store := internalrepo.NewMemoryDatasetStore()
	rc := icache.NewResultsCache(pkgcache.NewMemoryCache())
	return NewResultsHandler(testLogger(t), store, rc), store, rc
}

func doGet(t *testing.T, fn echo.HandlerFunc, path string, param ...string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if len(param) == 2 {
		c.SetParamNames(param[0])
		c.SetParamValues(param[1])
	}
	require.NoError(t, fn(c))
	return rec
}

func TestListKeysSorted(t *testing.T) {
	h, store, _ := newResultsFixture(t)
	seedDataset(store, "manual")
	seedDataset(store, "Value_Investing_0f6fcb1913b9b9e6f04ace3729a8661c")

	rec := doGet(t, h.ListKeys, "/api/analysis/results")

	var resp struct {
		Status int `json:"status"`
		Data   struct {
			Rows  []string `json:"rows"`
			Total int64    `json:"total"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, int64(2), resp.Data.Total)
	assert.Equal(t, []string{"Value_Investing_0f6fcb1913b9b9e6f04ace3729a8661c", "manual"}, resp.Data.Rows)
}

func TestGetResultRendersView(t *testing.T) {
	h, store, _ := newResultsFixture(t)
	seedDataset(store, "manual")

	rec := doGet(t, h.GetResult, "/api/analysis/results/manual", "key", "manual")

	var resp struct {
		Status int                `json:"status"`
		Data   models.DatasetView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "manual", resp.Data.SourceKey)
	assert.Equal(t, "run-42", resp.Data.RunID)
	require.Len(t, resp.Data.Entries, 1)

	entry := resp.Data.Entries[0]
	assert.Equal(t, "AAPL", entry.Ticker)
	require.NotNil(t, entry.Prominent)
	assert.Equal(t, "warren_buffett_agent", entry.Prominent.AgentName)
	assert.Equal(t, "bullish", entry.Prominent.Signal.Signal)
}

func TestGetResultUnknownKey(t *testing.T) {
	h, _, _ := newResultsFixture(t)

	rec := doGet(t, h.GetResult, "/api/analysis/results/nope", "key", "nope")

	var resp struct {
		Status int               `json:"status"`
		Data   []*xhttp.AppError `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusNotFound, resp.Status)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "ERR_NOT_FOUND", resp.Data[0].Code)
}

func TestGetResultServesFromCache(t *testing.T) {
	h, store, rc := newResultsFixture(t)
	seedDataset(store, "manual")

	doGet(t, h.GetResult, "/api/analysis/results/manual", "key", "manual")
	doGet(t, h.GetResult, "/api/analysis/results/manual", "key", "manual")

	stats := rc.Stats()
	assert.Equal(t, int64(1), stats.Sets, "first read should populate the cache")
	assert.Equal(t, int64(1), stats.Hits, "second read should hit the cache")
}

func TestCacheStatsPayload(t *testing.T) {
	h, store, _ := newResultsFixture(t)
	seedDataset(store, "manual")
	doGet(t, h.GetResult, "/api/analysis/results/manual", "key", "manual")

	rec := doGet(t, h.CacheStats, "/api/cache/stats")

	var resp struct {
		Status int                `json:"status"`
		Data   CacheStatsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, 1, resp.Data.CacheContents.AnalysisResults)
	assert.Equal(t, []string{"manual"}, resp.Data.CacheContents.Keys)
	assert.Equal(t, 1, resp.Data.CacheSize)
	assert.Equal(t, int64(1), resp.Data.Performance.Sets)
}

func TestClearCacheKeepsDatasets(t *testing.T) {
	h, store, rc := newResultsFixture(t)
	seedDataset(store, "manual")
	doGet(t, h.GetResult, "/api/analysis/results/manual", "key", "manual")

	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/api/cache/clear", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, h.ClearCache(e.NewContext(req, rec)))

	var resp struct {
		Status int               `json:"status"`
		Data   map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "Cache cleared successfully", resp.Data["message"])

	assert.Equal(t, int64(0), rc.Stats().Sets)
	_, ok := store.Get("manual")
	assert.True(t, ok, "clearing the view cache must not drop reconciled datasets")
}
