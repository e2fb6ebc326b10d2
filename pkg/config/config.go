package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"FinScope/internal/services/analytics"
	pkgch "FinScope/pkg/clickhouse"
	xhttp "FinScope/pkg/http"
	applogger "FinScope/pkg/logger"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string           `yaml:"environment" default:"development" validate:"oneof=development staging production test"`
	Server      ServerConfig     `yaml:"server"`
	Log         applogger.Config `yaml:"log"`
	Metrics     MetricsConfig    `yaml:"metrics"`
	Analysis    AnalysisConfig   `yaml:"analysis"`
	Bars        BarsConfig       `yaml:"bars"`
	EOD         EODConfig        `yaml:"eod"`
	ClickHouse  pkgch.Config     `yaml:"clickhouse"`
	Kafka       KafkaConfig      `yaml:"kafka"`
	Cache       CacheConfig      `yaml:"cache"`
	Stream      StreamConfig     `yaml:"stream"`
	Screen      ScreenConfig     `yaml:"screen"`
	RateLimit   RateLimitConfig  `yaml:"rate_limit"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"8080" validate:"gt=0,lt=65536"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	SlowRequest     time.Duration `yaml:"slow_request" default:"2s"`
	CORS            bool          `yaml:"cors" default:"true"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Path    string `yaml:"path" default:"/metrics"`
}

// AnalysisConfig holds the engine settings and the fundamentals source.
type AnalysisConfig struct {
	Engine       analytics.Config   `yaml:"engine"`
	Fundamentals FundamentalsConfig `yaml:"fundamentals"`
}

type FundamentalsConfig struct {
	Provider string              `yaml:"provider" default:"synthetic" validate:"oneof=synthetic http"`
	URL      string              `yaml:"url"`
	APIKey   string              `yaml:"api_key"`
	Timeout  time.Duration       `yaml:"timeout" default:"5s"`
	Attempts int                 `yaml:"attempts" default:"3" validate:"gte=1,lte=10"`
	Breaker  xhttp.BreakerConfig `yaml:"breaker"`
}

type BarsConfig struct {
	Source   string `yaml:"source" default:"http" validate:"oneof=clickhouse http"`
	Interval string `yaml:"interval" default:"1d" validate:"oneof=1h 1d 1wk"`
	Lookback int    `yaml:"lookback" default:"252" validate:"gte=1,lte=5000"`
	// InitSchema creates the ClickHouse bar tables at startup.
	InitSchema bool `yaml:"init_schema"`
}

type EODConfig struct {
	BaseURL   string              `yaml:"base_url" default:"https://eodhd.com/api"`
	APIKey    string              `yaml:"api_key"`
	Exchange  string              `yaml:"exchange" default:"US"`
	RateLimit float64             `yaml:"rate_limit" default:"10"`
	Burst     int                 `yaml:"burst" default:"10"`
	Timeout   time.Duration       `yaml:"timeout" default:"30s"`
	Breaker   xhttp.BreakerConfig `yaml:"breaker"`
}

type KafkaConfig struct {
	Enabled       bool     `yaml:"enabled"`
	Brokers       []string `yaml:"brokers"`
	ResultsTopic  string   `yaml:"results_topic" default:"finscope.analysis.results"`
	RequestsTopic string   `yaml:"requests_topic" default:"finscope.analysis.requests"`
	// LogTopic receives the digest of warn/error log entries; empty disables it.
	LogTopic string         `yaml:"log_topic"`
	Producer ProducerConfig `yaml:"producer"`
	Consumer ConsumerConfig `yaml:"consumer"`
}

type ProducerConfig struct {
	RequiredAcks int           `yaml:"required_acks" default:"-1"`
	Compression  string        `yaml:"compression" default:"snappy" validate:"oneof=gzip snappy lz4 zstd"`
	MaxAttempts  int           `yaml:"max_attempts" default:"3"`
	BatchSize    int           `yaml:"batch_size" default:"100"`
	BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
	Linger       time.Duration `yaml:"linger" default:"50ms"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
	Async        bool          `yaml:"async"`
}

type ConsumerConfig struct {
	Enabled    bool          `yaml:"enabled"`
	GroupID    string        `yaml:"group_id" default:"finscope-analysis"`
	Workers    int           `yaml:"workers" default:"4"`
	BufferSize int           `yaml:"buffer_size" default:"64"`
	RetryMax   int           `yaml:"retry_max" default:"3"`
	BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
	BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
	DLQTopic   string        `yaml:"dlq_topic" default:"finscope.analysis.requests.dlq"`
}

type CacheConfig struct {
	Enabled    bool          `yaml:"enabled" default:"true"`
	Backend    string        `yaml:"backend" default:"memory" validate:"oneof=memory redis"`
	TTL        time.Duration `yaml:"ttl" default:"60s"`
	MaxEntries int           `yaml:"max_entries" default:"1024"`
	Redis      RedisConfig   `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" default:"localhost:6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix" default:"finscope:"`
}

type StreamConfig struct {
	Interval   time.Duration `yaml:"interval" default:"30s"`
	MaxSymbols int           `yaml:"max_symbols" default:"20" validate:"gte=1"`
}

type ScreenConfig struct {
	Concurrency int           `yaml:"concurrency" default:"4" validate:"gte=1,lte=64"`
	Timeout     time.Duration `yaml:"timeout" default:"30s"`
	MaxSymbols  int           `yaml:"max_symbols" default:"50" validate:"gte=1"`
}

type RateLimitConfig struct {
	Enabled   bool    `yaml:"enabled" default:"true"`
	PerSecond float64 `yaml:"per_second" default:"5"`
	Burst     int     `yaml:"burst" default:"10"`
}

var validate = validator.New()

// Default returns a config with every default applied.
func Default() *Config {
	var c Config
	_ = defaults.Set(&c)
	return &c
}

// Load reads a YAML file, applies defaults and validates.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse applies defaults, decodes YAML over them and validates. Decoding
// second lets an explicit false or 0 in the file win over a default.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads the file, then overlays environment variables and validates again.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("FINSCOPE_ENV"); v != "" {
		c.Environment = v
	}
	if v := getenv("BAR_SOURCE"); v != "" {
		c.Bars.Source = v
	}
	if v := getenv("EOD_API_KEY"); v != "" {
		c.EOD.APIKey = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
		c.Cache.Backend = "redis"
	}
	if v := getenv("FUNDAMENTALS_PROVIDER"); v != "" {
		c.Analysis.Fundamentals.Provider = v
	}
	if v := getenv("HTTP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
}

// Validate runs tag validation plus the cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Bars.Source == "http" && c.EOD.APIKey == "" && c.Environment == "production" {
		return fmt.Errorf("eod.api_key is required for bars.source=http in production")
	}
	if c.Analysis.Fundamentals.Provider == "http" && c.Analysis.Fundamentals.URL == "" {
		return fmt.Errorf("analysis.fundamentals.url is required for provider=http")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Kafka.Consumer.Enabled && !c.Kafka.Enabled {
		return fmt.Errorf("kafka.consumer.enabled requires kafka.enabled")
	}
	if w := c.Analysis.Engine.Recommendation; w.TechnicalWeight+w.StatisticalWeight+w.RegimeWeight+w.ValuationWeight <= 0 {
		return fmt.Errorf("analysis.engine.recommendation weights must sum above zero")
	}
	return nil
}
