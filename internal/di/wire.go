//go:build wireinject
// +build wireinject

package di

import (
	"github.com/bournewang/ai-hedge-fund/pkg/config"
	"github.com/bournewang/ai-hedge-fund/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideResultPublisher,
		ProvideCacheService,
		ProvideResultsCache,

		// Repositories
		ProvideDatasetStore,
		ProvideAgentCatalog,
		ProvideAnalysisStream,

		// Use cases
		ProvideReconciler,
		ProvideHub,
		ProvideRunController,
		ProvidePushThrottle,
		ProvideScheduler,

		// HTTP surface
		ProvideRouter,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
