package di

import (
	"context"
	"fmt"
	"time"

	"FinScope/internal/domain/repository"
	domsvc "FinScope/internal/domain/service"
	"FinScope/internal/handler/api"
	internalrepo "FinScope/internal/repository"
	"FinScope/internal/service/cache"
	"FinScope/internal/service/ratelimit"
	"FinScope/internal/services/analytics"
	"FinScope/internal/services/valuation"
	"FinScope/internal/usecase"
	pkgch "FinScope/pkg/clickhouse"
	"FinScope/pkg/config"
	xhttp "FinScope/pkg/http"
	pkgkafka "FinScope/pkg/kafka"
	applogger "FinScope/pkg/logger"
	"FinScope/pkg/metrics"
	"FinScope/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(cfg *config.Config) repository.Metrics {
	if !cfg.Metrics.Enabled {
		return metrics.Nop{}
	}
	return metrics.New(nil)
}

// ProvideClickHouseClient connects to ClickHouse when it is the bar source.
// Otherwise it returns nil.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.Bars.Source != "clickhouse" {
		return nil, nil
	}
	client, err := pkgch.NewClient(context.Background(), cfg.ClickHouse)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideBarSource selects the ClickHouse store or the EOD HTTP source.
func ProvideBarSource(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) (repository.BarSource, error) {
	if cfg.Bars.Source == "clickhouse" {
		store := internalrepo.NewCHBarStore(ch, cfg.ClickHouse.Database)
		store.SetLogger(l)
		if cfg.Bars.InitSchema {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := ch.InitSchema(ctx, store.Schema()); err != nil {
				// cannot log here (DI layer); propagate error
				return nil, fmt.Errorf("clickhouse schema: %w", err)
			}
		}
		return store, nil
	}
	return internalrepo.NewEODBarSource(cfg.EOD.APIKey,
		internalrepo.WithEODBaseURL(cfg.EOD.BaseURL),
		internalrepo.WithEODExchange(cfg.EOD.Exchange),
		internalrepo.WithEODRateLimit(cfg.EOD.RateLimit, cfg.EOD.Burst),
		internalrepo.WithEODBreaker(cfg.EOD.Breaker),
		internalrepo.WithEODClient(xhttp.NewClient(xhttp.WithTimeout(cfg.EOD.Timeout))),
		internalrepo.WithEODLogger(l),
	), nil
}

// ProvideFundamentalsProvider returns the synthetic or HTTP fundamentals source.
func ProvideFundamentalsProvider(cfg *config.Config, l *applogger.Logger) domsvc.FundamentalsProvider {
	fc := cfg.Analysis.Fundamentals
	if fc.Provider != "http" {
		return valuation.NewSyntheticProvider()
	}
	return valuation.NewHTTPProvider(fc.URL,
		valuation.WithAPIKey(fc.APIKey),
		valuation.WithAttempts(fc.Attempts),
		valuation.WithBreaker(fc.Breaker),
		valuation.WithClient(xhttp.NewClient(xhttp.WithTimeout(fc.Timeout))),
		valuation.WithLogger(l),
	)
}

// ProvideEngine builds the analysis engine from the YAML engine section.
func ProvideEngine(cfg *config.Config, provider domsvc.FundamentalsProvider) *analytics.Engine {
	return analytics.NewEngine(provider, analytics.WithConfig(cfg.Analysis.Engine))
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	pc := cfg.Kafka.Producer
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(pc.Compression),
		pkgkafka.WithRequiredAcks(pc.RequiredAcks),
		pkgkafka.WithBatching(pc.BatchSize, pc.BatchBytes, pc.Linger),
		pkgkafka.WithTimeouts(pc.WriteTimeout, pc.ReadTimeout),
		pkgkafka.WithMaxAttempts(pc.MaxAttempts),
		pkgkafka.WithAsync(pc.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideResultPublisher publishes summaries to Kafka, or drops them when Kafka is disabled.
func ProvideResultPublisher(cfg *config.Config, producer *pkgkafka.Producer) repository.ResultPublisher {
	if producer == nil {
		return internalrepo.NopPublisher{}
	}
	return internalrepo.NewKafkaResultPublisher(producer, cfg.Kafka.ResultsTopic)
}

// ProvideCacheBackend returns the memory or Redis cache backend.
func ProvideCacheBackend(cfg *config.Config) cache.BytesCache {
	if cfg.Cache.Backend == "redis" {
		rc := cfg.Cache.Redis
		return cache.NewRedisCache(cache.RedisConfig{Addr: rc.Addr, Password: rc.Password, DB: rc.DB, Prefix: rc.Prefix})
	}
	return cache.NewTTLCache(cfg.Cache.MaxEntries)
}

// ProvideResultCache returns nil when caching is disabled.
func ProvideResultCache(cfg *config.Config, backend cache.BytesCache) *cache.ResultCache {
	if !cfg.Cache.Enabled {
		return nil
	}
	return cache.NewResultCache(backend, cfg.Cache.TTL)
}

func ProvideAnalysisUseCase(
	source repository.BarSource,
	engine *analytics.Engine,
	rc *cache.ResultCache,
	pub repository.ResultPublisher,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.AnalysisUseCase {
	return usecase.NewAnalysisUseCase(source, engine,
		usecase.WithResultCache(rc),
		usecase.WithPublisher(pub),
		usecase.WithMetrics(m),
		usecase.WithLogger(l),
	)
}

func ProvideScreenUseCase(cfg *config.Config, uc *usecase.AnalysisUseCase, l *applogger.Logger) *usecase.ScreenUseCase {
	return usecase.NewScreenUseCase(uc, cfg.Screen.Concurrency, cfg.Screen.Timeout, l)
}

func ProvideBarsUseCase(source repository.BarSource) *usecase.BarsUseCase {
	return usecase.NewBarsUseCase(source)
}

// ProvideRateLimiter returns nil when rate limiting is disabled.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst, 10*time.Minute)
}

// ProvideAnalysisHandler wires the REST handler with rate limiting and health checks.
func ProvideAnalysisHandler(
	cfg *config.Config,
	l *applogger.Logger,
	uc *usecase.AnalysisUseCase,
	sc *usecase.ScreenUseCase,
	bars *usecase.BarsUseCase,
	limiter *ratelimit.Limiter,
	ch *pkgch.Client,
	backend cache.BytesCache,
) *api.AnalysisHandler {
	opts := []api.AnalysisHandlerOption{api.WithMaxScreenSymbols(cfg.Screen.MaxSymbols)}
	if limiter != nil {
		opts = append(opts, api.WithAPIMiddleware(limiter.Middleware(nil)))
	}
	if ch != nil {
		opts = append(opts, api.WithHealthCheck("clickhouse", ch.Health))
	}
	if rc, ok := backend.(*cache.RedisCache); ok && cfg.Cache.Enabled {
		opts = append(opts, api.WithHealthCheck("redis", rc.Ping))
	}
	return api.NewAnalysisHandler(l, uc, sc, bars, opts...)
}

func ProvideStreamHandler(cfg *config.Config, l *applogger.Logger, uc *usecase.AnalysisUseCase) *api.StreamHandler {
	return api.NewStreamHandler(l, uc, cfg.Stream.Interval, cfg.Stream.MaxSymbols, cfg.Bars.Lookback)
}

// ProvideHTTPServer builds the Echo server with every handler registered.
func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, ah *api.AnalysisHandler, sh *api.StreamHandler) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithSlowRequest(cfg.Server.SlowRequest),
		xhttp.WithLogger(l),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetricsPath(cfg.Metrics.Path))
	}
	return xhttp.NewServer([]xhttp.Handler{ah, sh}, opts...)
}

// ProvideKafkaConsumer creates the analysis request consumer, or nil when disabled.
func ProvideKafkaConsumer(cfg *config.Config, uc *usecase.AnalysisUseCase, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	cc := cfg.Kafka.Consumer
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cc.GroupID),
		pkgkafka.WithConsumerWorkers(cc.Workers),
		pkgkafka.WithConsumerBufferSize(cc.BufferSize),
		pkgkafka.WithConsumerRetry(cc.RetryMax, cc.BackoffMin, cc.BackoffMax),
		pkgkafka.WithConsumerDLQ(cc.DLQTopic),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	h := usecase.NewAnalysisRequestHandler(cfg.Kafka.RequestsTopic, uc, l)
	consumer.RegisterHandler(h)
	consumer.WithConsumerHook(pkgkafka.RequestIDHook{}, h.FailureHook())
	return consumer, nil
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	consumer *pkgkafka.Consumer,
	producer *pkgkafka.Producer,
	pub repository.ResultPublisher,
	ch *pkgch.Client,
	limiter *ratelimit.Limiter,
	backend cache.BytesCache,
) *server.App {
	opts := []server.Option{
		server.WithConsumer(consumer),
		server.WithProducer(producer),
		server.WithPublisher(pub),
		server.WithClickHouse(ch),
		server.WithRateLimiter(limiter),
	}
	if rc, ok := backend.(*cache.RedisCache); ok {
		opts = append(opts, server.WithCloser("redis", rc))
	}
	return server.New(cfg, l, srv, opts...)
}
