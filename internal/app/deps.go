package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"playlist-digest/internal/cache"
	"playlist-digest/internal/config"
	"playlist-digest/internal/llm"
	"playlist-digest/internal/llm/provider"
	"playlist-digest/internal/logger"
	"playlist-digest/internal/queue"
	"playlist-digest/internal/store"
)

// Deps bundles common runtime dependencies for the CLI and services.
type Deps struct {
	Config      config.Config
	Log         *slog.Logger
	Diagnostics *slog.Logger
	Store       store.Store // nil when STORE_PROVIDER=none
	Queue       queue.Queue // nil outside the gateway and worker
	Cache       cache.Cache
	Factory     *provider.Factory
}

// Invoker is the stack every run talks to: an llm.Invoker that also
// reports the accumulated backend cost.
type Invoker interface {
	llm.Invoker
	llm.CostReporter
}

// LoadConfig reads an optional .env file and then the environment.
func LoadConfig() (config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config.Config{}, fmt.Errorf("failed to load environment variables: %w", err)
	}
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// Build wires the components shared by every entry point from cfg.
func Build(cfg config.Config) (Deps, error) {
	log := logger.New(cfg.LogLevel)
	diag := logger.NewDiagnostics(cfg.LogLevel, os.Stderr)

	st, err := buildStore(cfg, log, false)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize store: %w", err)
	}
	return Deps{
		Config:      cfg,
		Log:         log,
		Diagnostics: diag,
		Store:       st,
		Cache:       buildCache(cfg, log),
		Factory:     buildFactory(cfg, log, diag),
	}, nil
}

// BuildService is Build for the gateway and worker, which additionally need
// a store and a queue.
func BuildService(cfg config.Config) (Deps, error) {
	deps, err := Build(cfg)
	if err != nil {
		return Deps{}, err
	}
	if deps.Store == nil {
		if deps.Store, err = buildStore(cfg, deps.Log, true); err != nil {
			return Deps{}, fmt.Errorf("failed to initialize store: %w", err)
		}
	}
	q, err := buildQueue(cfg, deps.Log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize queue: %w", err)
	}
	deps.Queue = q
	return deps, nil
}

// Invoker builds backend, retry envelope and response cache for mc.
func (d Deps) Invoker(ctx context.Context, mc llm.ModelConfig) (Invoker, error) {
	inv, err := d.Factory.Create(ctx, mc)
	if err != nil {
		return nil, err
	}
	if d.Cache == nil {
		return inv, nil
	}
	if _, noop := d.Cache.(*cache.NoOpCache); noop {
		return inv, nil
	}
	return cache.NewInvoker(inv, d.Cache, mc.Model, d.Config.CacheTTL, d.Log), nil
}

func buildStore(cfg config.Config, log *slog.Logger, required bool) (store.Store, error) {
	switch cfg.StoreProvider {
	case "postgres":
		if cfg.DBURL == "" {
			return nil, fmt.Errorf("DB_URL is required when STORE_PROVIDER=postgres")
		}
		db, err := store.NewPostgres(cfg.DBURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres: %w", err)
		}
		log.Info("using Postgres store")
		return db, nil
	case "none", "":
		if required {
			return nil, fmt.Errorf("STORE_PROVIDER=postgres is required for this service")
		}
		return nil, nil
	default:
		return nil, fmt.Errorf("invalid STORE_PROVIDER: %s (valid options: postgres, none)", cfg.StoreProvider)
	}
}

func buildQueue(cfg config.Config, log *slog.Logger) (queue.Queue, error) {
	switch cfg.QueueProvider {
	case "nats":
		if cfg.QueueURL == "" {
			return nil, fmt.Errorf("QUEUE_URL is required when QUEUE_PROVIDER=nats")
		}
		nc, err := nats.Connect(cfg.QueueURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		log.Info("using NATS queue")
		return queue.NewNATS(log, nc, cfg.RetryPolicy()), nil
	default:
		return nil, fmt.Errorf("invalid QUEUE_PROVIDER: %s (valid option: nats)", cfg.QueueProvider)
	}
}

// buildCache falls back to the no-op cache when Redis is unreachable.
func buildCache(cfg config.Config, log *slog.Logger) cache.Cache {
	switch cfg.CacheProvider {
	case "redis":
		c, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Warn("redis unavailable, response cache disabled", "addr", cfg.RedisAddr, "err", err)
			return cache.NewNoOpCache()
		}
		log.Info("using Redis response cache", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
		return c
	case "none", "":
		return cache.NewNoOpCache()
	default:
		log.Warn("unknown CACHE_PROVIDER, response cache disabled", "provider", cfg.CacheProvider)
		return cache.NewNoOpCache()
	}
}

func buildFactory(cfg config.Config, log, diag *slog.Logger) *provider.Factory {
	return provider.NewFactory(provider.Options{
		OllamaURL:        cfg.OllamaURL,
		Region:           cfg.AWSRegion,
		InferenceProfile: cfg.InferenceProfile,
		AppTag:           cfg.AppTag,
		OpenAIAPIKey:     cfg.OpenAIKey,
		Logger:           log,
		Diagnostics:      diag,
	})
}
