package main

import (
	"context"
	"sync"

	"playlist-digest/internal/app"
	"playlist-digest/internal/config"
	"playlist-digest/internal/llm"
	"playlist-digest/internal/llm/bedrock"
)

// commandContext loads configuration and dependencies once per process.
// The constructor hooks are swapped out in tests.
type commandContext struct {
	configOnce sync.Once
	config     config.Config
	configErr  error

	depsOnce sync.Once
	deps     app.Deps
	depsErr  error

	loadConfig func() (config.Config, error)
	buildDeps  func(config.Config) (app.Deps, error)
	newInvoker func(context.Context, app.Deps, llm.ModelConfig) (app.Invoker, error)
	newAdmin   func(ctx context.Context, region string) (bedrock.AdminAPI, error)
}

func newCommandContext() *commandContext {
	return &commandContext{
		loadConfig: app.LoadConfig,
		buildDeps:  app.Build,
		newInvoker: func(ctx context.Context, deps app.Deps, mc llm.ModelConfig) (app.Invoker, error) {
			return deps.Invoker(ctx, mc)
		},
		newAdmin: bedrock.NewAdmin,
	}
}

func (c *commandContext) ensureConfig() (config.Config, error) {
	c.configOnce.Do(func() {
		c.config, c.configErr = c.loadConfig()
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureDeps() (app.Deps, error) {
	c.depsOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.depsErr = err
			return
		}
		c.deps, c.depsErr = c.buildDeps(cfg)
	})
	return c.deps, c.depsErr
}
