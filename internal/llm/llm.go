package llm

import (
	"context"

	"playlist-digest/internal/retry"
)

// Backend issues exactly one prompt/response exchange against a model
// endpoint. Implementations must not retry; that is RetryingInvoker's job.
type Backend interface {
	RawInvoke(ctx context.Context, prompt string) (string, error)
	Name() string
}

// Invoker is the single-prompt contract consumed by the rest of the pipeline.
type Invoker interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

// CostReporter is implemented by backends that keep a cost ledger.
type CostReporter interface {
	TotalCost() float64
}

// ModelConfig holds the settings a backend is constructed with.
type ModelConfig struct {
	Model       string // friendly name, e.g. "llama3.2" or "claude"
	Temperature float64
	Format      string // output-format hint for runtimes that support it
	NumThread   int
	NumGPU      int
	NumCtx      int
	RepeatLastN int
	MaxTokens   int // response cap for managed and OpenAI models
	Retry       retry.Policy
}

// DefaultModelConfig mirrors the defaults used by the CLI.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		Model:       "llama3.2",
		Temperature: 0.7,
		Format:      "json",
		NumThread:   4,
		NumGPU:      0,
		NumCtx:      16384,
		RepeatLastN: 2,
		MaxTokens:   4096,
		Retry:       retry.DefaultPolicy(),
	}
}
