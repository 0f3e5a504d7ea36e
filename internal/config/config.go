package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v10"

	"playlist-digest/internal/llm"
	"playlist-digest/internal/retry"
)

// Config holds runtime configuration for the CLI, gateway and worker.
type Config struct {
	// Server
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Run
	PlaylistTitle   string `env:"PLAYLIST_TITLE"`
	TranscriptsFile string `env:"TRANSCRIPTS_FILE"`
	Output          string `env:"OUTPUT"`
	Videos          int    `env:"VIDEOS" envDefault:"0"` // 0 processes every item
	Categories      string `env:"CATEGORIES"`            // comma separated filter
	BatchSize       int    `env:"BATCH_SIZE" envDefault:"3"`

	// Model
	Model       string  `env:"MODEL" envDefault:"llama3.2"`
	Temperature float64 `env:"TEMPERATURE" envDefault:"0.7"`
	NumGPU      int     `env:"NUM_GPUS" envDefault:"0"`
	NumThread   int     `env:"NUM_THREADS" envDefault:"4"`
	NumCtx      int     `env:"NUM_CTX" envDefault:"16384"`
	MaxTokens   int     `env:"MAX_TOKENS" envDefault:"4096"`

	// Backends
	OllamaURL        string `env:"OLLAMA_URL" envDefault:"http://localhost:11434"`
	AWSRegion        string `env:"AWS_REGION" envDefault:"us-east-1"`
	InferenceProfile string `env:"INFERENCE_PROFILE_NAME" envDefault:"playlist-digest"`
	AppTag           string `env:"APP_TAG" envDefault:"playlist-digest"`
	OpenAIKey        string `env:"OPENAI_API_KEY"`

	// Retry
	RetryAttempts     int           `env:"RETRY_ATTEMPTS" envDefault:"5"`
	RetryInitialDelay time.Duration `env:"RETRY_INITIAL_DELAY" envDefault:"1s"`
	RetryMaxDelay     time.Duration `env:"RETRY_MAX_DELAY" envDefault:"30s"`
	RetryBase         float64       `env:"RETRY_BASE" envDefault:"2"`
	RetryJitter       float64       `env:"RETRY_JITTER" envDefault:"0.1"`

	// Store
	StoreProvider string `env:"STORE_PROVIDER" envDefault:"none"` // "postgres" or "none"
	DBURL         string `env:"DB_URL"`

	// Queue
	QueueProvider string `env:"QUEUE_PROVIDER" envDefault:"nats"` // "nats" (required by gateway and worker)
	QueueURL      string `env:"QUEUE_URL"`

	// Response cache
	CacheProvider string        `env:"CACHE_PROVIDER" envDefault:"none"` // "redis" or "none"
	RedisAddr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	CacheTTL      time.Duration `env:"CACHE_TTL" envDefault:"168h"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("failed to parse env; using defaults where set", "err", err)
	}
	return cfg
}

// RetryPolicy assembles the retry envelope settings.
func (c Config) RetryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:     c.RetryAttempts,
		InitialDelay:    c.RetryInitialDelay,
		MaxDelay:        c.RetryMaxDelay,
		ExponentialBase: c.RetryBase,
		JitterFraction:  c.RetryJitter,
	}
}

// ModelConfig assembles the backend settings for one run.
func (c Config) ModelConfig() llm.ModelConfig {
	mc := llm.DefaultModelConfig()
	mc.Model = c.Model
	mc.Temperature = c.Temperature
	mc.NumGPU = c.NumGPU
	mc.NumThread = c.NumThread
	mc.NumCtx = c.NumCtx
	mc.MaxTokens = c.MaxTokens
	mc.Retry = c.RetryPolicy()
	return mc
}

// Validate reports every out-of-range value at once.
func (c Config) Validate() error {
	var errs []error
	if c.Model == "" {
		errs = append(errs, errors.New("MODEL must not be empty"))
	}
	if c.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("BATCH_SIZE must be at least 1, got %d", c.BatchSize))
	}
	if c.Videos < 0 {
		errs = append(errs, fmt.Errorf("VIDEOS must not be negative, got %d", c.Videos))
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		errs = append(errs, fmt.Errorf("TEMPERATURE must be within [0, 2], got %g", c.Temperature))
	}
	if c.NumGPU < 0 || c.NumThread < 0 || c.NumCtx < 0 {
		errs = append(errs, errors.New("NUM_GPUS, NUM_THREADS and NUM_CTX must not be negative"))
	}
	if c.RetryAttempts < 1 {
		errs = append(errs, fmt.Errorf("RETRY_ATTEMPTS must be at least 1, got %d", c.RetryAttempts))
	}
	if c.RetryInitialDelay < 0 || c.RetryMaxDelay < c.RetryInitialDelay {
		errs = append(errs, fmt.Errorf("RETRY_MAX_DELAY (%s) must not be below RETRY_INITIAL_DELAY (%s)", c.RetryMaxDelay, c.RetryInitialDelay))
	}
	if c.RetryBase < 1 {
		errs = append(errs, fmt.Errorf("RETRY_BASE must be at least 1, got %g", c.RetryBase))
	}
	if c.RetryJitter < 0 || c.RetryJitter > 1 {
		errs = append(errs, fmt.Errorf("RETRY_JITTER must be within [0, 1], got %g", c.RetryJitter))
	}
	if c.StoreProvider == "postgres" && c.DBURL == "" {
		errs = append(errs, errors.New("DB_URL is required when STORE_PROVIDER=postgres"))
	}
	if len(errs) == 0 {
		return nil
	}
	return llm.ConfigurationError("load config", errors.Join(errs...).Error())
}
