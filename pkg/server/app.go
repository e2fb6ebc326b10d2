package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	domrepo "FinScope/internal/domain/repository"
	"FinScope/internal/service/ratelimit"
	pkgch "FinScope/pkg/clickhouse"
	"FinScope/pkg/config"
	xhttp "FinScope/pkg/http"
	pkgkafka "FinScope/pkg/kafka"
	applogger "FinScope/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	httpServer *xhttp.Server
	consumer   *pkgkafka.Consumer
	producer   *pkgkafka.Producer
	publisher  domrepo.ResultPublisher
	chClient   *pkgch.Client
	limiter    *ratelimit.Limiter
	closers    []namedCloser
	digest     *applogger.Digest
}

type namedCloser struct {
	name string
	c    io.Closer
}

type Option func(*App)

// WithConsumer runs the analysis request consumer. A nil consumer is ignored.
func WithConsumer(c *pkgkafka.Consumer) Option {
	return func(a *App) { a.consumer = c }
}

// WithProducer enables the Kafka log digest when kafka.log_topic is set.
func WithProducer(p *pkgkafka.Producer) Option {
	return func(a *App) { a.producer = p }
}

// WithPublisher closes the result publisher on shutdown.
func WithPublisher(p domrepo.ResultPublisher) Option {
	return func(a *App) { a.publisher = p }
}

func WithClickHouse(c *pkgch.Client) Option {
	return func(a *App) { a.chClient = c }
}

// WithRateLimiter sweeps idle client buckets while the app runs.
func WithRateLimiter(l *ratelimit.Limiter) Option {
	return func(a *App) { a.limiter = l }
}

// WithCloser registers an extra resource closed last on shutdown.
func WithCloser(name string, c io.Closer) Option {
	return func(a *App) {
		if c != nil {
			a.closers = append(a.closers, namedCloser{name: name, c: c})
		}
	}
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, httpServer *xhttp.Server, opts ...Option) *App {
	if l == nil {
		l = applogger.Nop()
	}
	a := &App{cfg: cfg, l: l, httpServer: httpServer}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	a.l.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	return a.Shutdown(shutdownCtx)
}

// Start launches the consumer, the HTTP server and background jobs.
func (a *App) Start(ctx context.Context) error {
	if a.producer != nil && a.cfg.Kafka.LogTopic != "" {
		a.digest = applogger.NewDigest(applogger.DigestConfig{
			Interval:  time.Minute,
			Threshold: 100,
			Topic:     a.cfg.Kafka.LogTopic,
			Publisher: a.producer,
		})
		a.l.AttachDigest(a.digest)
		a.l.Info("log digest enabled", applogger.String("topic", a.cfg.Kafka.LogTopic))
	}

	if a.consumer != nil {
		if err := a.consumer.Start(); err != nil {
			a.l.Error("kafka consumer start error", applogger.Error(err))
			return err
		}
		a.l.Info("kafka consumer started", applogger.String("topic", a.cfg.Kafka.RequestsTopic))
	}

	if a.limiter != nil {
		go a.sweep(ctx)
	}

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}
	a.l.Info("finscope started",
		applogger.String("env", a.cfg.Environment),
		applogger.String("bars", a.cfg.Bars.Source),
		applogger.String("fundamentals", a.cfg.Analysis.Fundamentals.Provider),
		applogger.Bool("kafka", a.cfg.Kafka.Enabled),
		applogger.Bool("cache", a.cfg.Cache.Enabled),
	)
	return nil
}

func (a *App) sweep(ctx context.Context) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			a.limiter.Sweep()
		}
	}
}

// Shutdown stops intake first, then flushes and closes outputs.
func (a *App) Shutdown(ctx context.Context) error {
	a.l.Info("shutting down...")

	if err := a.httpServer.Stop(ctx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.digest != nil {
		a.l.DetachDigest()
	}

	// The Kafka publisher owns the producer and closes it.
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.l.Warn("result publisher close error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	for _, nc := range a.closers {
		if err := nc.c.Close(); err != nil {
			a.l.Warn("close error", applogger.String("resource", nc.name), applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
	return nil
}
