package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"playlist-digest/internal/app"
	"playlist-digest/internal/config"
	"playlist-digest/internal/digest"
	"playlist-digest/internal/llm"
	"playlist-digest/internal/report"
	"playlist-digest/internal/source"
	"playlist-digest/internal/store"
)

type runOptions struct {
	transcripts string
	title       string
	output      string
	videos      int
	categories  string
	batchSize   int
	model       string
	temperature float64
	numGPU      int
	numThread   int
	numCtx      int
	verbose     bool
}

// resolve fills every flag the user did not set from cfg.
func (o *runOptions) resolve(cmd *cobra.Command, cfg config.Config) {
	changed := cmd.Flags().Changed
	if !changed("transcripts") {
		o.transcripts = cfg.TranscriptsFile
	}
	if !changed("title") {
		o.title = cfg.PlaylistTitle
	}
	if !changed("output") {
		o.output = cfg.Output
	}
	if !changed("videos") {
		o.videos = cfg.Videos
	}
	if !changed("categories") {
		o.categories = cfg.Categories
	}
	if !changed("batch-size") {
		o.batchSize = cfg.BatchSize
	}
	if !changed("model") {
		o.model = cfg.Model
	}
	if !changed("temperature") {
		o.temperature = cfg.Temperature
	}
	if !changed("num-gpus") {
		o.numGPU = cfg.NumGPU
	}
	if !changed("num-threads") {
		o.numThread = cfg.NumThread
	}
	if !changed("num-ctx") {
		o.numCtx = cfg.NumCtx
	}
}

func (o *runOptions) modelConfig(cfg config.Config) llm.ModelConfig {
	mc := cfg.ModelConfig()
	mc.Model = o.model
	mc.Temperature = o.temperature
	mc.NumGPU = o.numGPU
	mc.NumThread = o.numThread
	mc.NumCtx = o.numCtx
	return mc
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Categorize and summarize every talk and write a markdown report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts.resolve(cmd, cfg)
			return runDigest(cmd, ctx, cfg, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.transcripts, "transcripts", "t", "", "Transcript archive to read (env TRANSCRIPTS_FILE)")
	flags.StringVar(&opts.title, "title", "", "Report title, defaults to the playlist title")
	flags.StringVarP(&opts.output, "output", "o", "", "Markdown output path, derived from the title when empty")
	flags.IntVarP(&opts.videos, "videos", "n", 0, "Process only the first N videos")
	flags.StringVarP(&opts.categories, "categories", "c", "", "Comma separated categories to keep")
	flags.IntVarP(&opts.batchSize, "batch-size", "b", 0, "Videos processed concurrently per batch")
	flags.StringVarP(&opts.model, "model", "m", "", "Model to use, e.g. llama3.2, claude, nova, gpt-4o-mini")
	flags.Float64Var(&opts.temperature, "temperature", 0, "Sampling temperature")
	flags.IntVar(&opts.numGPU, "num-gpus", 0, "GPUs for the local runtime")
	flags.IntVar(&opts.numThread, "num-threads", 0, "CPU threads for the local runtime")
	flags.IntVar(&opts.numCtx, "num-ctx", 0, "Context window in tokens")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Print timing statistics")

	return cmd
}

func runDigest(cmd *cobra.Command, ctx *commandContext, cfg config.Config, opts runOptions) error {
	if strings.TrimSpace(opts.transcripts) == "" {
		return llm.ConfigurationError("run", "a transcript archive is required (--transcripts or TRANSCRIPTS_FILE)")
	}

	// validate the filter before connecting to anything
	state, err := app.NewState(opts.categories)
	if err != nil {
		return err
	}
	src, err := source.OpenFile(opts.transcripts)
	if err != nil {
		return err
	}

	deps, err := ctx.ensureDeps()
	if err != nil {
		return err
	}
	inv, err := ctx.newInvoker(cmd.Context(), deps, opts.modelConfig(cfg))
	if err != nil {
		return err
	}

	runID := uuid.Nil
	if deps.Store != nil {
		run, err := deps.Store.CreateRun(cmd.Context(), store.Run{
			Title:      opts.title,
			Model:      opts.model,
			Categories: state.Filter(),
			Videos:     opts.videos,
			Status:     store.StatusRunning,
		})
		if err != nil {
			return fmt.Errorf("record run: %w", err)
		}
		runID = run.ID
	}

	out := cmd.OutOrStdout()
	timings := &digest.Timings{}
	result, err := app.RunDigest(cmd.Context(), inv, src, state, app.RunSpec{
		Title:     opts.title,
		Model:     opts.modelConfig(cfg),
		Videos:    opts.videos,
		BatchSize: opts.batchSize,
		Timings:   timings,
		Progress: func(done, total int) {
			fmt.Fprintf(out, "Processed %d/%d videos\n", done, total)
		},
	}, deps.Log)
	if err != nil {
		if runID != uuid.Nil {
			_ = deps.Store.FinishRun(cmd.Context(), runID, store.StatusFailed, 0, err.Error())
		}
		return err
	}

	rep := result.Report
	fmt.Fprintf(out, "Included %d, skipped %d, filtered out %d, failed %d\n",
		rep.Count(digest.StatusDone), rep.Count(digest.StatusSkipped),
		rep.Count(digest.StatusFilteredOut), rep.Count(digest.StatusFailed))

	if rep.Count(digest.StatusDone) == 0 {
		fmt.Fprintln(out, "No videos were summarized, report not written")
	} else {
		path := opts.output
		if path == "" {
			path = report.Filename(result.Title, opts.videos, state.Filtered())
		}
		if err := report.Save(path, result.Markdown); err != nil {
			return err
		}
		fmt.Fprintf(out, "Report saved to %s\n", path)
	}

	if result.CostUSD > 0 {
		deps.Diagnostics.Info("total cost", "cost_usd", fmt.Sprintf("%.6f", result.CostUSD))
	}
	if opts.verbose {
		timings.Log(deps.Diagnostics)
	}
	if runID != uuid.Nil {
		if err := app.ArchiveRun(cmd.Context(), deps.Store, runID, result); err != nil {
			deps.Log.Warn("failed to archive run", "run_id", runID, "err", err)
		} else {
			fmt.Fprintf(out, "Run archived as %s\n", runID)
		}
	}
	return nil
}
