package digest

import (
	"context"
	"errors"
	"log/slog"

	"playlist-digest/internal/chunker"
	"playlist-digest/internal/llm"
	"playlist-digest/internal/source"
)

// Status is the terminal state of one item.
type Status int

const (
	StatusDone Status = iota
	StatusSkipped
	StatusFilteredOut
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusDone:
		return "done"
	case StatusSkipped:
		return "skipped"
	case StatusFilteredOut:
		return "filtered_out"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is what happened to one item.
type Outcome struct {
	Item     source.Item
	Status   Status
	Category string
	Summary  string
	Err      error
}

// Included reports whether the item belongs in the report.
func (o Outcome) Included() bool {
	return o.Status == StatusDone
}

// TranscriptFetcher returns the transcript for an item, or
// source.ErrNoTranscript when there is none.
type TranscriptFetcher interface {
	Transcript(ctx context.Context, item source.Item) (string, error)
}

// Processor categorizes and summarizes single items.
type Processor struct {
	llm      llm.Invoker
	fetcher  TranscriptFetcher
	state    *CategoryState
	maxWords int
	timings  *Timings
	log      *slog.Logger
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithMaxWords clips transcripts to n words before prompting.
func WithMaxWords(n int) ProcessorOption {
	return func(p *Processor) { p.maxWords = n }
}

// WithTimings records per-operation durations into t.
func WithTimings(t *Timings) ProcessorOption {
	return func(p *Processor) { p.timings = t }
}

func WithLogger(log *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		if log != nil {
			p.log = log
		}
	}
}

// NewProcessor builds a Processor. A nil state uses the default categories.
func NewProcessor(inv llm.Invoker, fetcher TranscriptFetcher, state *CategoryState, opts ...ProcessorOption) *Processor {
	if state == nil {
		state = NewCategoryState(nil)
	}
	p := &Processor{
		llm:      inv,
		fetcher:  fetcher,
		state:    state,
		maxWords: chunker.Budget(llm.DefaultModelConfig().NumCtx),
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns the category state shared by every item of the run.
func (p *Processor) State() *CategoryState {
	return p.state
}

// Process runs one item through transcript, category, filter and summary.
// It never returns an error; failures are reported in the Outcome.
func (p *Processor) Process(ctx context.Context, item source.Item) Outcome {
	log := p.log.With("video_id", item.VideoID, "title", item.Title)
	out := Outcome{Item: item}

	var transcript string
	var err error
	p.timings.Measure(OpTranscript, func() {
		transcript, err = p.fetcher.Transcript(ctx, item)
	})
	if err != nil {
		out.Status = StatusSkipped
		if !errors.Is(err, source.ErrNoTranscript) {
			out.Err = err
		}
		log.Info("skipping item, no transcript available", "error", err)
		return out
	}
	if clipped, cut := chunker.Clip(transcript, p.maxWords); cut {
		log.Debug("transcript clipped", "max_words", p.maxWords)
		transcript = clipped
	}

	var category string
	p.timings.Measure(OpCategory, func() {
		category, err = p.Categorize(ctx, item.Title, transcript)
	})
	if err != nil {
		log.Warn("categorization failed", "error", err)
		return failed(out, err)
	}
	out.Category = category

	if !p.state.MatchesFilter(category) {
		log.Info("skipping item, category not in filter", "category", category)
		out.Status = StatusFilteredOut
		return out
	}

	var summary string
	p.timings.Measure(OpSummary, func() {
		summary, err = p.Summarize(ctx, item.Title, transcript)
	})
	if err != nil {
		log.Warn("summarization failed", "category", category, "error", err)
		return failed(out, err)
	}

	out.Summary = summary
	out.Status = StatusDone
	log.Info("item processed", "category", category)
	return out
}

func failed(out Outcome, err error) Outcome {
	if out.Category == "" {
		out.Category = Uncategorized
	}
	out.Summary = FailedSummary
	out.Status = StatusFailed
	out.Err = err
	return out
}

type categoryReply struct {
	Category string `json:"category"`
}

type summaryReply struct {
	Summary string `json:"summary"`
}

// Categorize asks the model for a category. A canonical answer is returned in
// canonical spelling and remembered for later prompts; anything else is
// returned as given.
func (p *Processor) Categorize(ctx context.Context, title, transcript string) (string, error) {
	prompt := categoryPrompt(p.state.Chosen(), p.state.Canonical(), title, transcript)
	resp, err := p.llm.Invoke(ctx, prompt)
	if err != nil {
		return "", err
	}

	var reply categoryReply
	if err := llm.DecodeJSON(resp, &reply); err != nil {
		return "", err
	}
	if err := llm.RequireField("category", reply.Category); err != nil {
		return "", err
	}
	if Normalize(reply.Category) == Normalize(Uncategorized) {
		return "", llm.ParseError("categorize", "model could not classify the item", nil)
	}

	if canonical, ok := p.state.Canonicalize(reply.Category); ok {
		p.state.Remember(canonical)
		return canonical, nil
	}
	return reply.Category, nil
}

// Summarize asks the model for a summary paragraph.
func (p *Processor) Summarize(ctx context.Context, title, transcript string) (string, error) {
	resp, err := p.llm.Invoke(ctx, summaryPrompt(title, transcript))
	if err != nil {
		return "", err
	}

	var reply summaryReply
	if err := llm.DecodeJSON(resp, &reply); err != nil {
		return "", err
	}
	if err := llm.RequireField("summary", reply.Summary); err != nil {
		return "", err
	}
	return reply.Summary, nil
}
