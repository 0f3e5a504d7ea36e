package provider

import (
	"context"
	"log/slog"
	"strings"

	"playlist-digest/internal/llm"
	"playlist-digest/internal/llm/bedrock"
	"playlist-digest/internal/llm/ollama"
	"playlist-digest/internal/llm/openai"
)

// Kind names a backend implementation.
type Kind string

const (
	KindOllama  Kind = "ollama"
	KindBedrock Kind = "bedrock"
	KindOpenAI  Kind = "openai"
)

const localPrefix = "llama"

var (
	managedModels = toSet(bedrock.Models())
	openAIModels  = toSet(openai.Models())
	localModels   = toSet(ollama.Models())
)

// KindFor picks the backend for a friendly model name. Names nobody claims
// are assumed to be local runtime tags.
func KindFor(model string) Kind {
	switch {
	case managedModels[model]:
		return KindBedrock
	case openAIModels[model]:
		return KindOpenAI
	case localModels[model], strings.HasPrefix(model, localPrefix):
		return KindOllama
	default:
		return KindOllama
	}
}

// Options carries the endpoint settings shared by every backend.
type Options struct {
	OllamaURL        string
	Region           string
	InferenceProfile string
	AppTag           string
	OpenAIAPIKey     string
	Logger           *slog.Logger
	// Diagnostics receives cost lines; it defaults to Logger.
	Diagnostics *slog.Logger

	BedrockOptions []bedrock.ClientOption
	OllamaOptions  []ollama.ClientOption
	OpenAIOptions  []openai.Option
	RetryOptions   []llm.RetryOption
}

// Factory constructs backends from friendly model names.
type Factory struct {
	opts Options
}

func NewFactory(opts Options) *Factory {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Diagnostics == nil {
		opts.Diagnostics = opts.Logger
	}
	return &Factory{opts: opts}
}

// CreateBackend builds the raw backend for cfg.Model.
func (f *Factory) CreateBackend(ctx context.Context, cfg llm.ModelConfig) (llm.Backend, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, llm.ConfigurationError("create backend", "model name is empty")
	}
	log := f.opts.Logger.With("model", cfg.Model)

	switch KindFor(cfg.Model) {
	case KindBedrock:
		opts := append([]bedrock.ClientOption{
			bedrock.WithRegion(f.opts.Region),
			bedrock.WithInferenceProfile(f.opts.InferenceProfile),
			bedrock.WithAppTag(f.opts.AppTag),
			bedrock.WithLogger(log),
			bedrock.WithDiagnostics(f.opts.Diagnostics),
		}, f.opts.BedrockOptions...)
		client, err := bedrock.NewClient(ctx, cfg, opts...)
		if err != nil {
			return nil, err
		}
		return client, nil
	case KindOpenAI:
		opts := append([]openai.Option{
			openai.WithLogger(log),
			openai.WithDiagnostics(f.opts.Diagnostics),
		}, f.opts.OpenAIOptions...)
		client, err := openai.NewClient(f.opts.OpenAIAPIKey, cfg, opts...)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		opts := append([]ollama.ClientOption{
			ollama.WithBaseURL(f.opts.OllamaURL),
			ollama.WithLogger(log),
		}, f.opts.OllamaOptions...)
		client, err := ollama.NewClient(cfg, opts...)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// Create builds the backend for cfg.Model and wraps it in the retry envelope
// configured by cfg.Retry.
func (f *Factory) Create(ctx context.Context, cfg llm.ModelConfig) (*llm.RetryingInvoker, error) {
	backend, err := f.CreateBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	f.opts.Logger.Info("llm backend ready", "model", cfg.Model, "backend", backend.Name())
	opts := append([]llm.RetryOption{llm.WithLogger(f.opts.Logger)}, f.opts.RetryOptions...)
	return llm.NewRetryingInvoker(backend, cfg.Retry, opts...), nil
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
