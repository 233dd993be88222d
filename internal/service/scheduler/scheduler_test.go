package scheduler

import (
	"strings"
	"testing"
	"time"

	"github.com/bournewang/ai-hedge-fund/internal/domain/models"
	"github.com/bournewang/ai-hedge-fund/internal/service/registry"
	applogger "github.com/bournewang/ai-hedge-fund/pkg/logger"
)

type fakeController struct {
	active   bool
	startErr error
	requests []*models.AnalysisRunRequest
}

func (f *fakeController) Start(req *models.AnalysisRunRequest) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.requests = append(f.requests, req)
	return nil
}

func (f *fakeController) Active() bool { return f.active }

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	log, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func TestStyleSourceKeyStable(t *testing.T) {
	a := StyleSourceKey("Value Investing", []string{"MSFT", "AAPL", "GOOG"})
	b := StyleSourceKey("Value Investing", []string{"aapl", "GOOG", "MSFT", "AAPL"})
	if a != b {
		t.Fatalf("key should ignore order, case and duplicates: %q vs %q", a, b)
	}
	if !strings.HasPrefix(a, "Value_Investing_") {
		t.Fatalf("key prefix: %q", a)
	}
	hash := strings.TrimPrefix(a, "Value_Investing_")
	if len(hash) != 32 {
		t.Fatalf("expected md5 hex suffix, got %q", hash)
	}
}

func TestStyleSourceKeyDiffersByTickers(t *testing.T) {
	a := StyleSourceKey("Growth Investing", []string{"AAPL"})
	b := StyleSourceKey("Growth Investing", []string{"MSFT"})
	if a == b {
		t.Fatal("different ticker sets should yield different keys")
	}
}

func TestStartRegistersOnlyRunnableJobs(t *testing.T) {
	catalog := registry.NewCatalog()
	ctrl := &fakeController{}
	s := New([]Job{
		{Name: "value", Schedule: "0 2 * * *", Style: "Value Investing", Tickers: []string{"AAPL"}, Enabled: true},
		{Name: "technical", Schedule: "15 2 * * *", Style: "Technical Analysis", Tickers: []string{"AAPL"}, Enabled: true},
		{Name: "disabled", Schedule: "30 2 * * *", Style: "Growth Investing", Tickers: []string{"AAPL"}},
		{Name: "unknown-style", Schedule: "45 2 * * *", Style: "Astrology", Tickers: []string{"AAPL"}, Enabled: true},
		{Name: "bad-schedule", Schedule: "not a cron", Style: "Growth Investing", Tickers: []string{"AAPL"}, Enabled: true},
	}, catalog, func(string) Controller { return ctrl }, testLogger(t))
	defer s.Stop()

	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := s.Entries(); got != 2 {
		t.Fatalf("expected 2 registered jobs, got %d", got)
	}
}

func TestJobsWithSameKeyShareController(t *testing.T) {
	catalog := registry.NewCatalog()
	built := 0
	s := New([]Job{
		{Name: "a", Schedule: "0 2 * * *", Style: "Value Investing", Tickers: []string{"AAPL", "MSFT"}, Enabled: true},
		{Name: "b", Schedule: "0 14 * * *", Style: "Value Investing", Tickers: []string{"MSFT", "AAPL"}, Enabled: true},
	}, catalog, func(string) Controller {
		built++
		return &fakeController{}
	}, testLogger(t))
	defer s.Stop()

	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if built != 1 {
		t.Fatalf("expected one shared controller, built %d", built)
	}
}

func TestFireBuildsDefaultedRequest(t *testing.T) {
	catalog := registry.NewCatalog()
	ctrl := &fakeController{}
	s := New(nil, catalog, func(string) Controller { return ctrl }, testLogger(t))

	agents := catalog.KeysByStyle("Value Investing")
	s.fire("value", ctrl, agents, []string{"AAPL", "MSFT"})

	if len(ctrl.requests) != 1 {
		t.Fatalf("expected one start, got %d", len(ctrl.requests))
	}
	req := ctrl.requests[0]
	if len(req.SelectedAgents) != len(agents) {
		t.Fatalf("agents: %v", req.SelectedAgents)
	}
	for _, a := range req.SelectedAgents {
		if !strings.HasSuffix(a, "_agent") {
			t.Fatalf("expected wire-form agent keys, got %v", req.SelectedAgents)
		}
	}
	if req.ModelName != "gpt-4o" || req.ModelProvider != "OpenAI" {
		t.Fatalf("model defaults missing: %+v", req)
	}
	if req.InitialCash != 100000 {
		t.Fatalf("initial cash default missing: %v", req.InitialCash)
	}

	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		t.Fatalf("end date: %v", err)
	}
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		t.Fatalf("start date: %v", err)
	}
	if days := end.Sub(start).Hours() / 24; days < 364 || days > 366 {
		t.Fatalf("expected roughly one year lookback, got %.0f days", days)
	}
}

func TestFireSkipsActiveRun(t *testing.T) {
	ctrl := &fakeController{active: true}
	s := New(nil, registry.NewCatalog(), func(string) Controller { return ctrl }, testLogger(t))

	s.fire("value", ctrl, []string{"warren_buffett"}, []string{"AAPL"})

	if len(ctrl.requests) != 0 {
		t.Fatalf("expected skip while active, got %d starts", len(ctrl.requests))
	}
}
