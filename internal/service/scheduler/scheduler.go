package scheduler

import (
	"sort"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/robfig/cron/v3"

	"github.com/bournewang/ai-hedge-fund/internal/domain/models"
	"github.com/bournewang/ai-hedge-fund/internal/domain/repository"
	"github.com/bournewang/ai-hedge-fund/internal/service/registry"
	pkgcache "github.com/bournewang/ai-hedge-fund/pkg/cache"
	applogger "github.com/bournewang/ai-hedge-fund/pkg/logger"
	"github.com/bournewang/ai-hedge-fund/pkg/util"
)

// lookbackDays is the analysis window handed to the backend for scheduled
// runs: one year ending today.
const lookbackDays = 365

// Controller is the slice of the run controller the scheduler drives.
type Controller interface {
	Start(req *models.AnalysisRunRequest) error
	Active() bool
}

// Factory builds a run controller bound to a dataset source key. Each
// scheduled job gets its own controller so background runs never contend
// with the interactive one.
type Factory func(sourceKey string) Controller

// Job is one recurring style analysis.
type Job struct {
	Name     string
	Schedule string
	Style    string
	Tickers  []string
	Enabled  bool
}

// Scheduler fires style analyses on cron schedules. Results land in the
// dataset store under a per-style source key, where the cached results
// endpoints serve them.
type Scheduler struct {
	jobs        []Job
	catalog     repository.AgentCatalog
	factory     Factory
	log         *applogger.Logger
	cron        *cron.Cron
	controllers map[string]Controller
}

// cronParser accepts both standard 5-field cron expressions and 6-field
// expressions with an optional seconds field.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// New creates a Scheduler. Jobs are registered on Start.
func New(jobs []Job, catalog repository.AgentCatalog, factory Factory, log *applogger.Logger) *Scheduler {
	return &Scheduler{
		jobs:        jobs,
		catalog:     catalog,
		factory:     factory,
		log:         log,
		cron:        cron.New(cron.WithParser(cronParser)),
		controllers: make(map[string]Controller),
	}
}

// Start registers enabled jobs as cron entries and starts the ticker.
// Jobs with an unknown style or a bad schedule are logged and skipped so
// one bad config line never takes the rest down.
func (s *Scheduler) Start() error {
	for _, job := range s.jobs {
		if !job.Enabled || job.Schedule == "" {
			continue
		}

		agents := s.catalog.KeysByStyle(job.Style)
		if len(agents) == 0 {
			s.log.Warn("no agents for style, skipping job",
				applogger.String("job", job.Name),
				applogger.String("style", job.Style))
			continue
		}

		key := StyleSourceKey(job.Style, job.Tickers)
		ctrl, ok := s.controllers[key]
		if !ok {
			ctrl = s.factory(key)
			s.controllers[key] = ctrl
		}

		name := job.Name
		tickers := job.Tickers
		if _, err := s.cron.AddFunc(job.Schedule, func() {
			s.fire(name, ctrl, agents, tickers)
		}); err != nil {
			s.log.Error("invalid cron schedule",
				applogger.String("job", job.Name),
				applogger.String("schedule", job.Schedule),
				applogger.Error(err))
			continue
		}

		s.log.Info("scheduled style analysis",
			applogger.String("job", job.Name),
			applogger.String("style", job.Style),
			applogger.String("schedule", job.Schedule),
			applogger.String("source_key", key),
			applogger.Strings("agents", agents))
	}

	s.cron.Start()
	return nil
}

// Entries reports how many jobs were registered.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// Stop stops the cron ticker. Runs already in flight keep going.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// fire starts one scheduled run unless the previous firing is still going.
func (s *Scheduler) fire(name string, ctrl Controller, agents, tickers []string) {
	if ctrl.Active() {
		s.log.Warn("previous scheduled run still active, skipping",
			applogger.String("job", name))
		return
	}

	// The backend wants agents in wire form; the catalog hands out bare keys.
	wired := make([]string, len(agents))
	for i, a := range agents {
		wired[i] = registry.WireKey(a)
	}

	end := time.Now()
	req := &models.AnalysisRunRequest{
		Tickers:        tickers,
		SelectedAgents: wired,
		StartDate:      end.AddDate(0, 0, -lookbackDays).Format("2006-01-02"),
		EndDate:        end.Format("2006-01-02"),
	}
	if err := defaults.Set(req); err != nil {
		s.log.Error("scheduled run request defaults", applogger.String("job", name), applogger.Error(err))
		return
	}

	if err := ctrl.Start(req); err != nil {
		s.log.Error("scheduled run start failed", applogger.String("job", name), applogger.Error(err))
		return
	}

	s.log.Info("scheduled run started",
		applogger.String("job", name),
		applogger.Strings("tickers", tickers))
}

// StyleSourceKey derives the stable dataset key for a scheduled style run.
// The style keeps its casing with spaces collapsed to underscores; the ticker
// set is deduplicated, sorted and hashed so reordered configs map to the same
// key. Example: Value_Investing_0f6fcb1913b9b9e6f04ace3729a8661c.
func StyleSourceKey(style string, tickers []string) string {
	set := util.NormalizeTickers(tickers)
	sort.Strings(set)
	hash := pkgcache.HashKey(strings.Join(set, "."))
	return strings.ReplaceAll(strings.TrimSpace(style), " ", "_") + "_" + hash
}
