package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server        ServerConfig
	Log           LogConfig
	Redis         RedisConfig
	Elasticsearch ElasticsearchConfig
	RateLimit     RateLimitConfig
	CORS          CORSConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// RedisConfig addresses the counter store. Timeout bounds dialing and each
// command round trip.
type RedisConfig struct {
	URL        string
	CounterKey string
	Timeout    time.Duration
}

// ElasticsearchConfig addresses the document store. Timeout and MaxRetries are
// applied to every request made by the search client.
type ElasticsearchConfig struct {
	Addresses  []string
	Timeout    time.Duration
	MaxRetries int
}

type RateLimitConfig struct {
	Enabled       bool
	UseRedis      bool
	RPS           float64
	Burst         int
	WindowSeconds int
}

type CORSConfig struct {
	AllowedOrigins []string
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "8000")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "json")
	viper.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	viper.SetDefault("COUNTER_KEY", "points")
	viper.SetDefault("REDIS_TIMEOUT", 2)
	viper.SetDefault("ELASTICSEARCH_URL", "http://localhost:9200")
	viper.SetDefault("ELASTICSEARCH_TIMEOUT", 10)
	viper.SetDefault("ELASTICSEARCH_MAX_RETRIES", 3)
	viper.SetDefault("RATE_LIMIT_ENABLED", false)
	viper.SetDefault("RATE_LIMIT_USE_REDIS", false)
	viper.SetDefault("RATE_LIMIT_RPS", 10)
	viper.SetDefault("RATE_LIMIT_BURST", 20)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	cfg := &Config{
		Server: ServerConfig{
			Port:         viper.GetString("SERVER_PORT"),
			Host:         viper.GetString("SERVER_HOST"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level:  viper.GetString("LOG_LEVEL"),
			Format: strings.ToLower(viper.GetString("LOG_FORMAT")),
		},
		Redis: RedisConfig{
			URL:        viper.GetString("REDIS_URL"),
			CounterKey: viper.GetString("COUNTER_KEY"),
			Timeout:    time.Duration(viper.GetInt("REDIS_TIMEOUT")) * time.Second,
		},
		Elasticsearch: ElasticsearchConfig{
			Addresses:  splitList(viper.GetString("ELASTICSEARCH_URL")),
			Timeout:    time.Duration(viper.GetInt("ELASTICSEARCH_TIMEOUT")) * time.Second,
			MaxRetries: viper.GetInt("ELASTICSEARCH_MAX_RETRIES"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       viper.GetBool("RATE_LIMIT_ENABLED"),
			UseRedis:      viper.GetBool("RATE_LIMIT_USE_REDIS"),
			RPS:           viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         viper.GetInt("RATE_LIMIT_BURST"),
			WindowSeconds: viper.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
		},
	}

	if len(cfg.Elasticsearch.Addresses) == 0 {
		return nil, fmt.Errorf("ELASTICSEARCH_URL must name at least one node")
	}
	if cfg.Elasticsearch.Timeout <= 0 {
		return nil, fmt.Errorf("ELASTICSEARCH_TIMEOUT must be positive, got %v", cfg.Elasticsearch.Timeout)
	}
	if cfg.Elasticsearch.MaxRetries < 0 {
		return nil, fmt.Errorf("ELASTICSEARCH_MAX_RETRIES must not be negative, got %d", cfg.Elasticsearch.MaxRetries)
	}
	if cfg.Redis.Timeout <= 0 {
		return nil, fmt.Errorf("REDIS_TIMEOUT must be positive, got %v", cfg.Redis.Timeout)
	}
	if cfg.Redis.CounterKey == "" {
		cfg.Redis.CounterKey = "points"
	}

	return cfg, nil
}

// splitList parses a comma separated env value, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
