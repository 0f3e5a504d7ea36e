package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"playlist-digest/internal/chunker"
	"playlist-digest/internal/digest"
	"playlist-digest/internal/llm"
	"playlist-digest/internal/report"
	"playlist-digest/internal/source"
	"playlist-digest/internal/store"
)

// RunSpec describes one digest run. The category filter travels in the
// CategoryState passed alongside it.
type RunSpec struct {
	// Title overrides the playlist title in the report.
	Title     string
	Model     llm.ModelConfig
	Videos    int // 0 processes every item
	BatchSize int
	Progress  func(done, total int)
	Timings   *digest.Timings
}

// RunOutput is what a finished run produced.
type RunOutput struct {
	Title    string
	Report   *digest.Report
	Markdown string
	Filtered []string
	CostUSD  float64
}

// NewState validates the filter before any backend is built, so a typo in
// the category list fails fast.
func NewState(categories string) (*digest.CategoryState, error) {
	state := digest.NewCategoryState(nil)
	if categories == "" {
		return state, nil
	}
	if err := state.SetFilter(categories); err != nil {
		return nil, err
	}
	return state, nil
}

// RunDigest loads the playlist from src, processes it through inv and
// renders the markdown report.
func RunDigest(ctx context.Context, inv Invoker, src source.Source, state *digest.CategoryState, spec RunSpec, log *slog.Logger) (*RunOutput, error) {
	if log == nil {
		log = slog.Default()
	}
	playlist, err := src.Playlist(ctx)
	if err != nil {
		return nil, fmt.Errorf("load playlist: %w", err)
	}
	title := spec.Title
	if title == "" {
		title = playlist.Title
	}
	items := playlist.Limit(spec.Videos)
	log.Info("starting digest", "title", title, "items", len(items), "model", spec.Model.Model, "batch_size", spec.BatchSize)

	proc := digest.NewProcessor(inv, src, state,
		digest.WithMaxWords(chunker.Budget(spec.Model.NumCtx)),
		digest.WithTimings(spec.Timings),
		digest.WithLogger(log),
	)
	runnerOpts := []digest.RunnerOption{digest.WithRunnerLogger(log)}
	if spec.Progress != nil {
		runnerOpts = append(runnerOpts, digest.WithProgress(spec.Progress))
	}
	rep := digest.NewRunner(proc, spec.BatchSize, runnerOpts...).Run(ctx, title, items)

	return &RunOutput{
		Title:    title,
		Report:   rep,
		Markdown: report.FromResults(title, rep.Results()).Render(),
		Filtered: state.Filter(),
		CostUSD:  inv.TotalCost(),
	}, nil
}

// ItemResults flattens a run report into store rows, one per item.
func ItemResults(runID uuid.UUID, rep *digest.Report) []store.ItemResult {
	rows := make([]store.ItemResult, 0, len(rep.Outcomes))
	for i, o := range rep.Outcomes {
		rows = append(rows, store.ItemResult{
			RunID:    runID,
			Ord:      i,
			VideoID:  o.Item.VideoID,
			Title:    o.Item.Title,
			URL:      o.Item.URL,
			Status:   o.Status.String(),
			Category: o.Category,
			Summary:  o.Summary,
		})
	}
	return rows
}

// ArchiveRun stores the results of out and marks the run done.
func ArchiveRun(ctx context.Context, st store.Store, runID uuid.UUID, out *RunOutput) error {
	if err := st.SaveResults(ctx, runID, ItemResults(runID, out.Report)); err != nil {
		return fmt.Errorf("save results: %w", err)
	}
	if err := st.FinishRun(ctx, runID, store.StatusDone, out.CostUSD, ""); err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// ResultsFromStore rebuilds digest results from stored rows, keeping only
// items that made it into the report.
func ResultsFromStore(rows []store.ItemResult) []digest.Result {
	var out []digest.Result
	for _, r := range rows {
		if r.Status != digest.StatusDone.String() {
			continue
		}
		out = append(out, digest.Result{
			Item:     source.Item{VideoID: r.VideoID, Title: r.Title, URL: r.URL},
			Category: r.Category,
			Summary:  r.Summary,
		})
	}
	return out
}
