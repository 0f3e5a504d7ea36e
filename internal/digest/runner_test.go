package digest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"playlist-digest/internal/source"
)

// trackingInvoker answers every prompt and records peak concurrency.
type trackingInvoker struct {
	mu       sync.Mutex
	inFlight int
	peak     int
	calls    atomic.Int32
}

func (t *trackingInvoker) Invoke(_ context.Context, prompt string) (string, error) {
	t.calls.Add(1)
	t.mu.Lock()
	t.inFlight++
	if t.inFlight > t.peak {
		t.peak = t.inFlight
	}
	t.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	t.mu.Lock()
	t.inFlight--
	t.mu.Unlock()

	if strings.Contains(prompt, `{"category"`) {
		switch {
		case strings.Contains(prompt, "Title: sec"):
			return `{"category": "Security"}`, nil
		case strings.Contains(prompt, "Title: bad"):
			return `not json`, nil
		default:
			return `{"category": "Keynote"}`, nil
		}
	}
	return `{"summary": "A summary."}`, nil
}

func TestRunnerBatchesAndOrders(t *testing.T) {
	items := make([]source.Item, 0, 7)
	transcripts := mapFetcher{}
	titles := []string{"sec-1", "key-1", "bad-1", "sec-2", "none", "key-2", "sec-3"}
	for i, title := range titles {
		id := fmt.Sprintf("v%d", i)
		items = append(items, source.Item{VideoID: id, Title: title})
		if title != "none" {
			transcripts[id] = "transcript"
		}
	}

	inv := &trackingInvoker{}
	state := NewCategoryState(nil)
	require.NoError(t, state.SetFilter("security"))
	proc := NewProcessor(inv, transcripts, state, WithLogger(quiet()))

	var progress []int
	runner := NewRunner(proc, 3, WithRunnerLogger(quiet()), WithProgress(func(done, total int) {
		assert.Equal(t, 7, total)
		progress = append(progress, done)
	}))

	report := runner.Run(context.Background(), "Playlist", items)

	require.Len(t, report.Outcomes, 7)
	for i, o := range report.Outcomes {
		assert.Equal(t, items[i], o.Item)
	}
	assert.Equal(t, []int{3, 6, 7}, progress)
	assert.LessOrEqual(t, inv.peak, 3)

	assert.Equal(t, 3, report.Count(StatusDone))
	assert.Equal(t, 2, report.Count(StatusFilteredOut))
	assert.Equal(t, 1, report.Count(StatusFailed))
	assert.Equal(t, 1, report.Count(StatusSkipped))

	results := report.Results()
	require.Len(t, results, 3)
	assert.Equal(t, "sec-1", results[0].Item.Title)
	assert.Equal(t, "sec-3", results[2].Item.Title)
	for _, r := range results {
		assert.Equal(t, "Security", r.Category)
	}

	// 3 included items make 2 calls, 2 filtered and 1 failed make 1, the skipped item none
	assert.Equal(t, int32(9), inv.calls.Load())
}

func TestRunnerZeroBatchSize(t *testing.T) {
	inv := &trackingInvoker{}
	proc := NewProcessor(inv, mapFetcher{"v1": "t"}, nil, WithLogger(quiet()))
	runner := NewRunner(proc, 0, WithRunnerLogger(quiet()))

	report := runner.Run(context.Background(), "P", []source.Item{{VideoID: "v1", Title: "key"}})
	assert.Equal(t, 1, report.Count(StatusDone))
	assert.Equal(t, 1, inv.peak)
}

func TestRunnerEmpty(t *testing.T) {
	proc := NewProcessor(&trackingInvoker{}, mapFetcher{}, nil, WithLogger(quiet()))
	report := NewRunner(proc, 4, WithRunnerLogger(quiet())).Run(context.Background(), "P", nil)
	assert.Empty(t, report.Outcomes)
	assert.Empty(t, report.Results())
}
