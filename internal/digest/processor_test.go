package digest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"playlist-digest/internal/llm"
	"playlist-digest/internal/source"
)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mapFetcher serves transcripts from memory; missing ids have none.
type mapFetcher map[string]string

func (m mapFetcher) Transcript(_ context.Context, item source.Item) (string, error) {
	t, ok := m[item.VideoID]
	if !ok {
		return "", source.ErrNoTranscript
	}
	return t, nil
}

func isCategoryPrompt(p string) bool { return strings.Contains(p, `{"category"`) }
func isSummaryPrompt(p string) bool  { return strings.Contains(p, `{"summary"`) }

func TestProcessHappyPath(t *testing.T) {
	inv := &llm.MockInvoker{}
	inv.On("Invoke", mock.Anything, mock.MatchedBy(isCategoryPrompt)).Return(`{"category": " security "}`, nil).Once()
	inv.On("Invoke", mock.Anything, mock.MatchedBy(isSummaryPrompt)).Return("```json\n{\"summary\": \"Zero trust explained.\"}\n```", nil).Once()

	state := NewCategoryState(nil)
	p := NewProcessor(inv, mapFetcher{"v1": "transcript text"}, state, WithLogger(quiet()))

	out := p.Process(context.Background(), source.Item{VideoID: "v1", Title: "Zero trust"})
	require.Equal(t, StatusDone, out.Status)
	assert.Equal(t, "Security", out.Category)
	assert.Equal(t, "Zero trust explained.", out.Summary)
	assert.True(t, out.Included())
	assert.Equal(t, []string{"Security"}, state.Chosen())
	inv.AssertExpectations(t)
}

func TestProcessNoTranscriptMakesNoCalls(t *testing.T) {
	inv := &llm.MockInvoker{}
	p := NewProcessor(inv, mapFetcher{}, nil, WithLogger(quiet()))

	out := p.Process(context.Background(), source.Item{VideoID: "missing"})
	assert.Equal(t, StatusSkipped, out.Status)
	assert.False(t, out.Included())
	assert.NoError(t, out.Err)
	inv.AssertNotCalled(t, "Invoke", mock.Anything, mock.Anything)
}

func TestProcessFilteredOutSkipsSummary(t *testing.T) {
	inv := &llm.MockInvoker{}
	inv.On("Invoke", mock.Anything, mock.MatchedBy(isCategoryPrompt)).Return(`{"category": "Keynote"}`, nil).Once()

	state := NewCategoryState(nil)
	require.NoError(t, state.SetFilter("Security,AI & ML"))
	p := NewProcessor(inv, mapFetcher{"v1": "t"}, state, WithLogger(quiet()))

	out := p.Process(context.Background(), source.Item{VideoID: "v1"})
	assert.Equal(t, StatusFilteredOut, out.Status)
	assert.Equal(t, "Keynote", out.Category)
	inv.AssertNumberOfCalls(t, "Invoke", 1)
}

func TestProcessNonCanonicalCategoryIsKeptButNotRemembered(t *testing.T) {
	inv := &llm.MockInvoker{}
	inv.On("Invoke", mock.Anything, mock.MatchedBy(isCategoryPrompt)).Return(`{"category": "Robotics"}`, nil).Once()
	inv.On("Invoke", mock.Anything, mock.MatchedBy(isSummaryPrompt)).Return(`{"summary": "Robots."}`, nil).Once()

	state := NewCategoryState(nil)
	p := NewProcessor(inv, mapFetcher{"v1": "t"}, state, WithLogger(quiet()))

	out := p.Process(context.Background(), source.Item{VideoID: "v1"})
	assert.Equal(t, StatusDone, out.Status)
	assert.Equal(t, "Robotics", out.Category)
	assert.Empty(t, state.Chosen())
}

func TestProcessFailures(t *testing.T) {
	tests := []struct {
		name         string
		category     string
		categoryErr  error
		summary      string
		wantCategory string
		wantKind     llm.ErrorKind
	}{
		{name: "category not json", category: "I think Security", wantCategory: Uncategorized, wantKind: llm.KindParse},
		{name: "category missing", category: `{"topic": "Security"}`, wantCategory: Uncategorized, wantKind: llm.KindParse},
		{name: "model says uncategorized", category: `{"category": "Uncategorized"}`, wantCategory: Uncategorized, wantKind: llm.KindParse},
		{name: "backend exhausted", categoryErr: &llm.Error{Kind: llm.KindBackend, Message: "max retries exceeded"}, wantCategory: Uncategorized, wantKind: llm.KindBackend},
		{name: "summary empty", category: `{"category": "Storage"}`, summary: `{"summary": ""}`, wantCategory: "Storage", wantKind: llm.KindParse},
		{name: "summary truncated", category: `{"category": "Storage"}`, summary: `{"summary": "Abc`, wantCategory: "Storage", wantKind: llm.KindParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &llm.MockInvoker{}
			inv.On("Invoke", mock.Anything, mock.MatchedBy(isCategoryPrompt)).Return(tt.category, tt.categoryErr).Once()
			inv.On("Invoke", mock.Anything, mock.MatchedBy(isSummaryPrompt)).Return(tt.summary, nil).Maybe()

			p := NewProcessor(inv, mapFetcher{"v1": "t"}, nil, WithLogger(quiet()))
			out := p.Process(context.Background(), source.Item{VideoID: "v1"})

			assert.Equal(t, StatusFailed, out.Status)
			assert.False(t, out.Included())
			assert.Equal(t, tt.wantCategory, out.Category)
			assert.Equal(t, FailedSummary, out.Summary)
			assert.Equal(t, tt.wantKind, llm.KindOf(out.Err))
		})
	}
}

func TestProcessTranscriptErrorIsSkip(t *testing.T) {
	src := &source.MockSource{}
	item := source.Item{VideoID: "v1"}
	src.On("Transcript", mock.Anything, item).Return("", errors.New("quota exceeded"))

	inv := &llm.MockInvoker{}
	p := NewProcessor(inv, src, nil, WithLogger(quiet()))

	out := p.Process(context.Background(), item)
	assert.Equal(t, StatusSkipped, out.Status)
	assert.ErrorContains(t, out.Err, "quota exceeded")
	inv.AssertNotCalled(t, "Invoke", mock.Anything, mock.Anything)
}

func TestProcessClipsTranscript(t *testing.T) {
	long := strings.Repeat("word ", 50)
	inv := &llm.MockInvoker{}
	inv.On("Invoke", mock.Anything, mock.MatchedBy(func(p string) bool {
		return isCategoryPrompt(p) && strings.Count(p, "word") == 10
	})).Return(`{"category": "HPC"}`, nil).Once()
	inv.On("Invoke", mock.Anything, mock.MatchedBy(isSummaryPrompt)).Return(`{"summary": "s"}`, nil).Once()

	timings := &Timings{}
	p := NewProcessor(inv, mapFetcher{"v1": long}, nil, WithMaxWords(10), WithTimings(timings), WithLogger(quiet()))
	out := p.Process(context.Background(), source.Item{VideoID: "v1"})

	assert.Equal(t, StatusDone, out.Status)
	inv.AssertExpectations(t)

	stats := timings.Stats()
	require.Len(t, stats, 3)
	assert.Equal(t, OpCategory, stats[0].Operation)
	assert.Equal(t, 1, stats[0].Calls)
}

func TestPromptReflectsPreviouslyChosen(t *testing.T) {
	inv := &llm.MockInvoker{}
	inv.On("Invoke", mock.Anything, mock.MatchedBy(func(p string) bool {
		return isCategoryPrompt(p) && strings.Contains(p, "Previously used categories: Uncategorized")
	})).Return(`{"category": "GitOps"}`, nil).Once()
	inv.On("Invoke", mock.Anything, mock.MatchedBy(func(p string) bool {
		return isCategoryPrompt(p) && strings.Contains(p, "Previously used categories: GitOps")
	})).Return(`{"category": "gitops"}`, nil).Once()

	p := NewProcessor(inv, nil, nil, WithLogger(quiet()))

	first, err := p.Categorize(context.Background(), "Argo CD at scale", "t")
	require.NoError(t, err)
	second, err := p.Categorize(context.Background(), "Flux in practice", "t")
	require.NoError(t, err)

	assert.Equal(t, "GitOps", first)
	assert.Equal(t, "GitOps", second)
	inv.AssertExpectations(t)
}
