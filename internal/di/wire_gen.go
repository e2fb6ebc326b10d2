// Injector for the provider set in wire.go, kept in the shape wire emits.
// `go generate` replaces it with the tool output.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package di

import (
	"FinScope/pkg/config"
	"FinScope/pkg/server"
)

// Injectors from wire.go:

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, err
	}
	client, err := ProvideClickHouseClient(cfg)
	if err != nil {
		return nil, err
	}
	barSource, err := ProvideBarSource(cfg, client, logger)
	if err != nil {
		return nil, err
	}
	fundamentalsProvider := ProvideFundamentalsProvider(cfg, logger)
	engine := ProvideEngine(cfg, fundamentalsProvider)
	bytesCache := ProvideCacheBackend(cfg)
	resultCache := ProvideResultCache(cfg, bytesCache)
	producer, err := ProvideKafkaProducer(cfg)
	if err != nil {
		return nil, err
	}
	resultPublisher := ProvideResultPublisher(cfg, producer)
	metrics := ProvideMetrics(cfg)
	analysisUseCase := ProvideAnalysisUseCase(barSource, engine, resultCache, resultPublisher, metrics, logger)
	screenUseCase := ProvideScreenUseCase(cfg, analysisUseCase, logger)
	barsUseCase := ProvideBarsUseCase(barSource)
	limiter := ProvideRateLimiter(cfg)
	analysisHandler := ProvideAnalysisHandler(cfg, logger, analysisUseCase, screenUseCase, barsUseCase, limiter, client, bytesCache)
	streamHandler := ProvideStreamHandler(cfg, logger, analysisUseCase)
	httpServer := ProvideHTTPServer(cfg, logger, analysisHandler, streamHandler)
	consumer, err := ProvideKafkaConsumer(cfg, analysisUseCase, logger)
	if err != nil {
		return nil, err
	}
	app := ProvideApp(cfg, logger, httpServer, consumer, producer, resultPublisher, client, limiter, bytesCache)
	return app, nil
}
