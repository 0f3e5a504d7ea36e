package cache

import (
	"context"
	"log/slog"
	"time"

	"playlist-digest/internal/llm"
)

// Invoker serves repeated prompts from a Cache and forwards misses to the
// wrapped invoker. Cache failures are logged and never fail a call.
type Invoker struct {
	next  llm.Invoker
	cache Cache
	model string
	ttl   time.Duration
	log   *slog.Logger
}

// NewInvoker wraps next. model is folded into every key so two models never
// share an entry.
func NewInvoker(next llm.Invoker, c Cache, model string, ttl time.Duration, log *slog.Logger) *Invoker {
	if log == nil {
		log = slog.Default()
	}
	return &Invoker{next: next, cache: c, model: model, ttl: ttl, log: log}
}

func (i *Invoker) Invoke(ctx context.Context, prompt string) (string, error) {
	key := GenerateCacheKey(i.model, prompt)

	value, ok, err := i.cache.Get(ctx, key)
	if err != nil {
		i.log.Warn("response cache read failed", "err", err)
	} else if ok {
		i.log.Debug("response cache hit", "model", i.model)
		return value, nil
	}

	resp, err := i.next.Invoke(ctx, prompt)
	if err != nil {
		return "", err
	}

	if err := i.cache.Set(ctx, key, resp, i.ttl); err != nil {
		i.log.Warn("response cache write failed", "err", err)
	}
	return resp, nil
}

// TotalCost forwards to the wrapped invoker when it tracks cost.
func (i *Invoker) TotalCost() float64 {
	if r, ok := i.next.(llm.CostReporter); ok {
		return r.TotalCost()
	}
	return 0
}
