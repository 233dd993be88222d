package di

import (
	"fmt"
	"net"
	"strconv"

	domrepo "github.com/bournewang/ai-hedge-fund/internal/domain/repository"
	"github.com/bournewang/ai-hedge-fund/internal/handler/api"
	mid "github.com/bournewang/ai-hedge-fund/internal/middleware"
	internalrepo "github.com/bournewang/ai-hedge-fund/internal/repository"
	"github.com/bournewang/ai-hedge-fund/internal/service/backend"
	icache "github.com/bournewang/ai-hedge-fund/internal/service/cache"
	"github.com/bournewang/ai-hedge-fund/internal/service/push"
	"github.com/bournewang/ai-hedge-fund/internal/service/ratelimit"
	"github.com/bournewang/ai-hedge-fund/internal/service/registry"
	"github.com/bournewang/ai-hedge-fund/internal/service/scheduler"
	"github.com/bournewang/ai-hedge-fund/internal/usecase"
	pkgcache "github.com/bournewang/ai-hedge-fund/pkg/cache"
	"github.com/bournewang/ai-hedge-fund/pkg/config"
	xhttp "github.com/bournewang/ai-hedge-fund/pkg/http"
	pkgkafka "github.com/bournewang/ai-hedge-fund/pkg/kafka"
	applogger "github.com/bournewang/ai-hedge-fund/pkg/logger"
	"github.com/bournewang/ai-hedge-fund/pkg/metrics"
	"github.com/bournewang/ai-hedge-fund/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideKafkaProducer creates a Kafka producer, or nil when kafka is
// disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}

	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, nil
}

// ProvideResultPublisher creates the Kafka result publisher. A disabled
// producer yields a bare nil interface, not a typed nil.
func ProvideResultPublisher(producer *pkgkafka.Producer, cfg *config.Config) domrepo.ResultPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaResultPublisher(producer, cfg.Kafka.Topics.Datasets, cfg.Kafka.Topics.Status)
}

// ProvideCacheService builds the cache backend selected by cache.type.
func ProvideCacheService(cfg *config.Config) (pkgcache.Service, error) {
	switch cfg.Cache.Type {
	case "", "memory":
		var opts []pkgcache.MemoryOption
		if cfg.Cache.Memory.MaxSize > 0 {
			opts = append(opts, pkgcache.WithMemoryMaxSize(cfg.Cache.Memory.MaxSize))
		}
		if cfg.Cache.Memory.CleanupInterval > 0 {
			opts = append(opts, pkgcache.WithMemoryCleanup(cfg.Cache.Memory.CleanupInterval))
		}
		return pkgcache.NewMemoryCache(opts...), nil

	case "redis":
		return newRedisCache(cfg)

	case "layered":
		rc, err := newRedisCache(cfg)
		if err != nil {
			return nil, err
		}
		var opts []pkgcache.LayeredOption
		if cfg.Cache.Memory.MaxSize > 0 {
			opts = append(opts, pkgcache.WithLayeredMemorySize(cfg.Cache.Memory.MaxSize))
		}
		return pkgcache.NewLayeredCache(rc, opts...), nil

	default:
		return nil, fmt.Errorf("unknown cache type %q", cfg.Cache.Type)
	}
}

func newRedisCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	host, portStr, err := net.SplitHostPort(cfg.Cache.Redis.Addr)
	if err != nil {
		return nil, fmt.Errorf("cache.redis.addr: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("cache.redis.addr: %w", err)
	}

	return pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(cfg.Cache.Redis.Password),
		pkgcache.WithRedisDB(cfg.Cache.Redis.DB),
		pkgcache.WithRedisPrefix(cfg.Cache.Prefix),
	)
}

// ProvideResultsCache wraps the cache service for rendered dataset views.
// cache.prefix namespaces the redis keyspace; the view cache keeps its own
// domain segment inside it.
func ProvideResultsCache(svc pkgcache.Service, cfg *config.Config) *icache.ResultsCache {
	var opts []icache.ResultsOption
	if cfg.Cache.TTL > 0 {
		opts = append(opts, icache.WithTTL(cfg.Cache.TTL))
	}
	return icache.NewResultsCache(svc, opts...)
}

// ProvideDatasetStore creates the in-memory dataset store.
func ProvideDatasetStore() domrepo.DatasetStore {
	return internalrepo.NewMemoryDatasetStore()
}

// ProvideAgentCatalog exposes the static agent registry.
func ProvideAgentCatalog() domrepo.AgentCatalog {
	return registry.NewCatalog()
}

// ProvideAnalysisStream creates the backend streaming client.
func ProvideAnalysisStream(cfg *config.Config) domrepo.AnalysisStream {
	var opts []backend.Option
	if cfg.Backend.StreamTimeout > 0 {
		opts = append(opts, backend.WithStreamTimeout(cfg.Backend.StreamTimeout))
	}
	return backend.New(cfg.Backend.URL, opts...)
}

// ProvideReconciler creates the result reconciler.
func ProvideReconciler(store domrepo.DatasetStore, publisher domrepo.ResultPublisher, m domrepo.Metrics, log *applogger.Logger) *usecase.Reconciler {
	return usecase.NewReconciler(store, publisher, m, log)
}

// ProvideHub creates the websocket hub.
func ProvideHub(log *applogger.Logger) *push.Hub {
	return push.NewHub(log)
}

// ProvideRunController creates the interactive run controller.
func ProvideRunController(stream domrepo.AnalysisStream, rec *usecase.Reconciler, m domrepo.Metrics, log *applogger.Logger) *usecase.RunController {
	return usecase.NewRunController(stream, rec, m, log, usecase.WithSourceKey("manual"))
}

// ProvidePushThrottle creates the run-update throttle and hooks the
// controller's change notifications into it.
func ProvidePushThrottle(hub *push.Hub, ctrl *usecase.RunController, m domrepo.Metrics, log *applogger.Logger, cfg *config.Config) *mid.PushThrottle {
	var opts []mid.ThrottleOption
	if cfg.Push.Interval > 0 {
		opts = append(opts, mid.WithInterval(cfg.Push.Interval))
	}
	t := mid.NewPushThrottle(hub, ctrl, m, log, opts...)
	ctrl.SetNotify(t.Notify)
	return t
}

// ProvideScheduler creates the cron scheduler. Each scheduled style gets its
// own controller so background runs never block the interactive one.
func ProvideScheduler(cfg *config.Config, catalog domrepo.AgentCatalog, stream domrepo.AnalysisStream, rec *usecase.Reconciler, m domrepo.Metrics, log *applogger.Logger) *scheduler.Scheduler {
	jobs := make([]scheduler.Job, 0, len(cfg.Scheduler.Jobs))
	for _, j := range cfg.Scheduler.Jobs {
		jobs = append(jobs, scheduler.Job{
			Name:     j.Name,
			Schedule: j.Schedule,
			Style:    j.Style,
			Tickers:  j.Tickers,
			Enabled:  j.Enabled,
		})
	}

	factory := func(sourceKey string) scheduler.Controller {
		return usecase.NewRunController(stream, rec, m, log, usecase.WithSourceKey(sourceKey))
	}

	return scheduler.New(jobs, catalog, factory, log)
}

// ProvideRouter assembles the HTTP handler set.
func ProvideRouter(
	cfg *config.Config,
	log *applogger.Logger,
	ctrl *usecase.RunController,
	store domrepo.DatasetStore,
	rcache *icache.ResultsCache,
	catalog domrepo.AgentCatalog,
	hub *push.Hub,
) xhttp.Handler {
	var aopts []api.AnalysisOption
	if cfg.RateLimit.Enabled {
		aopts = append(aopts, api.WithRateLimit(ratelimit.New(), cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSec))
	}

	return api.NewRouter(
		api.NewAnalysisHandler(log, ctrl, aopts...),
		api.NewResultsHandler(log, store, rcache),
		api.NewAgentsHandler(catalog),
		api.NewWSHandler(log, hub, ctrl),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	ctrl *usecase.RunController,
	hub *push.Hub,
	throttle *mid.PushThrottle,
	sched *scheduler.Scheduler,
	publisher domrepo.ResultPublisher,
	router xhttp.Handler,
) *server.App {
	app := server.New(cfg, log, ctrl, hub, throttle, sched, publisher)
	app.SetHTTPHandler(router)
	return app
}
