package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"playlist-digest/internal/app"
	"playlist-digest/internal/digest"
	"playlist-digest/internal/httputil"
	"playlist-digest/internal/llm"
	"playlist-digest/internal/queue"
	"playlist-digest/internal/source"
	"playlist-digest/internal/store"
)

type worker struct {
	deps       app.Deps
	newInvoker func(ctx context.Context, mc llm.ModelConfig) (app.Invoker, error)
}

func newWorker(deps app.Deps) *worker {
	return &worker{deps: deps, newInvoker: deps.Invoker}
}

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("failed to load configuration", "err", err)
		os.Exit(1)
	}
	deps, err := app.BuildService(cfg)
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	deps.Log.Info("digest worker starting", "model", cfg.Model)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := newWorker(deps)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return deps.Queue.Worker(ctx, queue.TaskTypeDigest, w.handleDigest)
	})
	g.Go(func() error {
		return httputil.ServeHealth(ctx, deps.Log, "worker", deps.Config.Port)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		deps.Log.Error("digest worker stopped", "err", err)
		os.Exit(1)
	}
}

// handleDigest runs one queued digest. Failures that a retry cannot fix
// mark the run failed and return nil so the queue drops the task.
func (w *worker) handleDigest(ctx context.Context, task queue.Task) error {
	payload, err := app.DecodeDigestTask(task)
	if err != nil {
		return err
	}
	log := w.deps.Log.With("run_id", payload.RunID, "attempt", task.Attempts)

	if err := w.deps.Store.UpdateRunStatus(ctx, payload.RunID, store.StatusRunning); err != nil {
		return fmt.Errorf("mark run running: %w", err)
	}

	state, err := app.NewState(payload.Categories)
	if err != nil {
		return w.fail(ctx, log, payload, err)
	}

	mc := w.deps.Config.ModelConfig()
	if payload.Model != "" {
		mc.Model = payload.Model
	}
	inv, err := w.newInvoker(ctx, mc)
	if errors.Is(err, llm.ErrConfiguration) {
		return w.fail(ctx, log, payload, err)
	}
	if err != nil {
		return fmt.Errorf("create invoker: %w", err)
	}

	batch := payload.BatchSize
	if batch <= 0 {
		batch = w.deps.Config.BatchSize
	}
	timings := &digest.Timings{}
	out, err := app.RunDigest(ctx, inv, source.NewFileSource(payload.Archive), state, app.RunSpec{
		Title:     payload.Title,
		Model:     mc,
		Videos:    payload.Videos,
		BatchSize: batch,
		Timings:   timings,
	}, log)
	if err != nil {
		return w.fail(ctx, log, payload, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := app.ArchiveRun(ctx, w.deps.Store, payload.RunID, out); err != nil {
		return err
	}
	log.Info("digest finished",
		"done", out.Report.Count(digest.StatusDone),
		"skipped", out.Report.Count(digest.StatusSkipped),
		"filtered_out", out.Report.Count(digest.StatusFilteredOut),
		"failed", out.Report.Count(digest.StatusFailed),
		"elapsed", out.Report.Elapsed,
	)
	timings.Log(log)
	if w.deps.Diagnostics != nil {
		w.deps.Diagnostics.Info("run cost", "run_id", payload.RunID, "cost_usd", fmt.Sprintf("%.6f", out.CostUSD))
	}
	return nil
}

func (w *worker) fail(ctx context.Context, log *slog.Logger, payload app.DigestTask, cause error) error {
	log.Error("digest failed", "err", cause)
	if err := w.deps.Store.FinishRun(ctx, payload.RunID, store.StatusFailed, 0, cause.Error()); err != nil {
		return fmt.Errorf("mark run failed: %w", err)
	}
	return nil
}
