package di

import (
	"testing"

	internalrepo "FinScope/internal/repository"
	"FinScope/internal/service/cache"
	"FinScope/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Metrics.Enabled = false
	cfg.Log.Level = "error"
	cfg.Server.Port = 0
	return cfg
}

func TestInitializeAppWithDefaults(t *testing.T) {
	app, err := InitializeApp(testConfig())
	require.NoError(t, err)
	assert.NotNil(t, app)
}

func TestInitializeAppKafkaNeedsBrokers(t *testing.T) {
	cfg := testConfig()
	cfg.Kafka.Enabled = true
	_, err := InitializeApp(cfg)
	assert.ErrorContains(t, err, "kafka producer")
}

func TestProvidersFollowConfig(t *testing.T) {
	cfg := testConfig()

	assert.IsType(t, internalrepo.NopPublisher{}, ProvideResultPublisher(cfg, nil))
	assert.IsType(t, &cache.TTLCache{}, ProvideCacheBackend(cfg))
	assert.NotNil(t, ProvideRateLimiter(cfg))
	assert.Equal(t, "synthetic", ProvideFundamentalsProvider(cfg, nil).Name())

	src, err := ProvideBarSource(cfg, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &internalrepo.EODBarSource{}, src)

	cfg.Cache.Enabled = false
	cfg.Cache.Backend = "redis"
	cfg.RateLimit.Enabled = false
	cfg.Analysis.Fundamentals.Provider = "http"
	cfg.Analysis.Fundamentals.URL = "http://localhost:1"
	assert.Nil(t, ProvideResultCache(cfg, ProvideCacheBackend(cfg)))
	assert.IsType(t, &cache.RedisCache{}, ProvideCacheBackend(cfg))
	assert.Nil(t, ProvideRateLimiter(cfg))
	assert.Equal(t, "http", ProvideFundamentalsProvider(cfg, nil).Name())

	c, err := ProvideKafkaConsumer(cfg, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, c)
}
