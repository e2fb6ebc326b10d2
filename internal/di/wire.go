//go:build wireinject
// +build wireinject

package di

import (
	"FinScope/pkg/config"
	"FinScope/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideCacheBackend,

		// Repositories and engine
		ProvideBarSource,
		ProvideResultPublisher,
		ProvideResultCache,
		ProvideFundamentalsProvider,
		ProvideEngine,

		// Use cases
		ProvideAnalysisUseCase,
		ProvideScreenUseCase,
		ProvideBarsUseCase,

		// Transport
		ProvideRateLimiter,
		ProvideAnalysisHandler,
		ProvideStreamHandler,
		ProvideHTTPServer,
		ProvideKafkaConsumer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
