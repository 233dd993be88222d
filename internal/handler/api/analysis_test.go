package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	models "github.com/bournewang/ai-hedge-fund/internal/domain/models"
	internalrepo "github.com/bournewang/ai-hedge-fund/internal/repository"
	"github.com/bournewang/ai-hedge-fund/internal/service/ratelimit"
	"github.com/bournewang/ai-hedge-fund/internal/usecase"
	xhttp "github.com/bournewang/ai-hedge-fund/pkg/http"
	xlogger "github.com/bournewang/ai-hedge-fund/pkg/logger"
)

const analysisStreamFixture = `event: StartEvent
data: {"type":"StartEvent","run_id":"run-7","timestamp":"2026-08-25T10:00:00Z"}

event: ProgressUpdateEvent
data: {"type":"ProgressUpdateEvent","agent":"warren_buffett_agent","ticker":"AAPL","status":"IN_PROGRESS","message":"Analyzing fundamentals","timestamp":"2026-08-25T10:00:01Z"}

event: ProgressUpdateEvent
data: {"type":"ProgressUpdateEvent","agent":"warren_buffett_agent","ticker":"AAPL","status":"COMPLETE","timestamp":"2026-08-25T10:00:02Z"}

event: CompleteEvent
data: {"run_id":"run-7","decisions":{"AAPL":{"action":"buy","quantity":10,"confidence":80.0,"reasoning":"strong moat"}},"analyst_signals":{"warren_buffett_agent":{"AAPL":{"signal":"bullish","confidence":80.0}}},"total_cost":0.12,"total_tokens":900,"timestamp":"2026-08-25T10:00:03Z"}

`

type streamFunc func(ctx context.Context, req *models.AnalysisRunRequest) (io.ReadCloser, error)

func (f streamFunc) Open(ctx context.Context, req *models.AnalysisRunRequest) (io.ReadCloser, error) {
	return f(ctx, req)
}

type nopMetrics struct{}

func (nopMetrics) RecordFrame(string)            {}
func (nopMetrics) RecordFrameDropped(string)     {}
func (nopMetrics) RecordProgress(string, int)    {}
func (nopMetrics) RecordError(string)            {}
func (nopMetrics) RecordLatency(string, float64) {}

func testLogger(t *testing.T) *xlogger.Logger {
	t.Helper()
	log, err := xlogger.New(&xlogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func newAnalysisFixture(t *testing.T, stream streamFunc) (*AnalysisHandler, *usecase.RunController) {
	t.Helper()
	log := testLogger(t)
	store := internalrepo.NewMemoryDatasetStore()
	rec := usecase.NewReconciler(store, nil, nopMetrics{}, log)
	ctrl := usecase.NewRunController(stream, rec, nopMetrics{}, log)
	return NewAnalysisHandler(log, ctrl), ctrl
}

func fixtureStream(ctx context.Context, req *models.AnalysisRunRequest) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(analysisStreamFixture)), nil
}

// blockingStream never delivers a frame until the context is canceled.
func blockingStream(ctx context.Context, req *models.AnalysisRunRequest) (io.ReadCloser, error) {
	pr, pw := io.Pipe()
	go func() {
		<-ctx.Done()
		pw.CloseWithError(ctx.Err())
	}()
	return pr, nil
}

func postRun(t *testing.T, h *AnalysisHandler, body string) (*httptest.ResponseRecorder, xhttp.APIResponse) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/analysis/runs", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.StartRun(c))

	var resp xhttp.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func waitDone(t *testing.T, ctrl *usecase.RunController) {
	t.Helper()
	select {
	case <-ctrl.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("run did not finish in time")
	}
}

func TestStartRunAccepted(t *testing.T) {
	h, ctrl := newAnalysisFixture(t, fixtureStream)

	_, resp := postRun(t, h, `{"tickers":["AAPL"],"selected_agents":["warren_buffett"]}`)
	assert.Equal(t, http.StatusAccepted, resp.Status)

	waitDone(t, ctrl)

	st := ctrl.Status()
	assert.Equal(t, models.RunComplete, st.Phase)
	assert.Equal(t, "run-7", st.RunID)
	assert.Equal(t, 100, st.Percent)
}

func TestStartRunValidation(t *testing.T) {
	opened := false
	h, ctrl := newAnalysisFixture(t, func(ctx context.Context, req *models.AnalysisRunRequest) (io.ReadCloser, error) {
		opened = true
		return fixtureStream(ctx, req)
	})

	_, resp := postRun(t, h, `{"selected_agents":["warren_buffett"]}`)
	assert.Equal(t, http.StatusBadRequest, resp.Status)

	// Validation rejects before anything touches the backend.
	assert.False(t, opened)
	assert.Equal(t, models.RunIdle, ctrl.Status().Phase)
}

func TestStartRunConflict(t *testing.T) {
	h, ctrl := newAnalysisFixture(t, blockingStream)

	_, first := postRun(t, h, `{"tickers":["AAPL"],"selected_agents":["warren_buffett"]}`)
	require.Equal(t, http.StatusAccepted, first.Status)

	_, second := postRun(t, h, `{"tickers":["MSFT"],"selected_agents":["warren_buffett"]}`)
	assert.Equal(t, http.StatusConflict, second.Status)

	ctrl.Cancel()
	waitDone(t, ctrl)
}

func TestStartRunRateLimited(t *testing.T) {
	log := testLogger(t)
	store := internalrepo.NewMemoryDatasetStore()
	rec := usecase.NewReconciler(store, nil, nopMetrics{}, log)
	ctrl := usecase.NewRunController(streamFunc(blockingStream), rec, nopMetrics{}, log)
	h := NewAnalysisHandler(log, ctrl, WithRateLimit(ratelimit.New(), 1, 0))

	_, first := postRun(t, h, `{"tickers":["AAPL"],"selected_agents":["warren_buffett"]}`)
	require.Equal(t, http.StatusAccepted, first.Status)

	_, second := postRun(t, h, `{"tickers":["AAPL"],"selected_agents":["warren_buffett"]}`)
	assert.Equal(t, http.StatusTooManyRequests, second.Status)

	ctrl.Cancel()
	waitDone(t, ctrl)
}

func TestCancelRunIsIdempotent(t *testing.T) {
	h, ctrl := newAnalysisFixture(t, blockingStream)

	cancel := func() *httptest.ResponseRecorder {
		e := echo.New()
		req := httptest.NewRequest(http.MethodDelete, "/api/analysis/runs/current", nil)
		rec := httptest.NewRecorder()
		require.NoError(t, h.CancelRun(e.NewContext(req, rec)))
		return rec
	}

	// Idle controller: nothing to cancel, still 204.
	assert.Equal(t, http.StatusNoContent, cancel().Code)

	_, resp := postRun(t, h, `{"tickers":["AAPL"],"selected_agents":["warren_buffett"]}`)
	require.Equal(t, http.StatusAccepted, resp.Status)

	assert.Equal(t, http.StatusNoContent, cancel().Code)
	waitDone(t, ctrl)
	assert.False(t, ctrl.Active())
}

func TestRunStatusAndProgressEndpoints(t *testing.T) {
	h, ctrl := newAnalysisFixture(t, fixtureStream)

	_, resp := postRun(t, h, `{"tickers":["AAPL"],"selected_agents":["warren_buffett"]}`)
	require.Equal(t, http.StatusAccepted, resp.Status)
	waitDone(t, ctrl)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/analysis/status", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, h.RunStatus(e.NewContext(req, rec)))

	var statusResp struct {
		Status int              `json:"status"`
		Data   models.RunStatus `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &statusResp))
	assert.Equal(t, models.RunComplete, statusResp.Data.Phase)

	req = httptest.NewRequest(http.MethodGet, "/api/analysis/progress", nil)
	rec = httptest.NewRecorder()
	require.NoError(t, h.RunProgress(e.NewContext(req, rec)))

	var progResp struct {
		Data models.ProgressSnapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &progResp))
	assert.Equal(t, 100, progResp.Data.Percent)
	assert.Len(t, progResp.Data.Cells, 1)
}

func TestProgressCellLookup(t *testing.T) {
	h, ctrl := newAnalysisFixture(t, fixtureStream)

	_, resp := postRun(t, h, `{"tickers":["AAPL"],"selected_agents":["warren_buffett"]}`)
	require.Equal(t, http.StatusAccepted, resp.Status)
	waitDone(t, ctrl)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/analysis/progress/cell?agent=warren_buffett&ticker=AAPL", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, h.ProgressCell(e.NewContext(req, rec)))

	var cellResp struct {
		Status int                 `json:"status"`
		Data   models.ProgressCell `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cellResp))
	assert.Equal(t, http.StatusOK, cellResp.Status)
	assert.Equal(t, models.StatusComplete, cellResp.Data.Status)

	req = httptest.NewRequest(http.MethodGet, "/api/analysis/progress/cell?agent=nobody&ticker=AAPL", nil)
	rec = httptest.NewRecorder()
	require.NoError(t, h.ProgressCell(e.NewContext(req, rec)))

	var missResp xhttp.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &missResp))
	assert.Equal(t, http.StatusNotFound, missResp.Status)
}
