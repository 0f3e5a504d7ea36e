package digest

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"playlist-digest/internal/source"
)

// Result is one item that made it into the report.
type Result struct {
	Item     source.Item
	Category string
	Summary  string
}

// Report is the outcome of a whole run.
type Report struct {
	Title    string
	Outcomes []Outcome
	Elapsed  time.Duration
}

// Results returns the included items in input order.
func (r *Report) Results() []Result {
	var out []Result
	for _, o := range r.Outcomes {
		if o.Included() {
			out = append(out, Result{Item: o.Item, Category: o.Category, Summary: o.Summary})
		}
	}
	return out
}

// Count returns how many outcomes ended in status.
func (r *Report) Count(status Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Runner processes items in fixed-size batches. Items of a batch run
// concurrently; the next batch starts only after the current one finished.
type Runner struct {
	proc      *Processor
	batchSize int
	log       *slog.Logger
	progress  func(done, total int)
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithProgress registers a callback invoked after every batch.
func WithProgress(fn func(done, total int)) RunnerOption {
	return func(r *Runner) { r.progress = fn }
}

func WithRunnerLogger(log *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if log != nil {
			r.log = log
		}
	}
}

// NewRunner builds a Runner. batchSize below 1 is treated as 1.
func NewRunner(proc *Processor, batchSize int, opts ...RunnerOption) *Runner {
	if batchSize < 1 {
		batchSize = 1
	}
	r := &Runner{proc: proc, batchSize: batchSize, log: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run processes items and returns their outcomes in input order.
func (r *Runner) Run(ctx context.Context, title string, items []source.Item) *Report {
	start := time.Now()
	outcomes := make([]Outcome, len(items))

	for lo := 0; lo < len(items); lo += r.batchSize {
		hi := min(lo+r.batchSize, len(items))
		batchStart := time.Now()

		var g errgroup.Group
		g.SetLimit(r.batchSize)
		for i := lo; i < hi; i++ {
			g.Go(func() error {
				outcomes[i] = r.proc.Process(ctx, items[i])
				return nil
			})
		}
		_ = g.Wait()

		r.log.Info("batch complete",
			"from", lo+1,
			"to", hi,
			"total", len(items),
			"elapsed", time.Since(batchStart),
		)
		if r.progress != nil {
			r.progress(hi, len(items))
		}
	}

	report := &Report{Title: title, Outcomes: outcomes, Elapsed: time.Since(start)}
	r.log.Info("run complete",
		"items", len(items),
		"included", report.Count(StatusDone),
		"skipped", report.Count(StatusSkipped),
		"filtered_out", report.Count(StatusFilteredOut),
		"failed", report.Count(StatusFailed),
		"elapsed", report.Elapsed,
	)
	return report
}
