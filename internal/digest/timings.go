package digest

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Operation names recorded by the processor.
const (
	OpTranscript = "Transcript Download"
	OpCategory   = "Category Generation"
	OpSummary    = "Summary Generation"
)

// Timings collects durations per operation. The zero value is ready to use.
type Timings struct {
	mu sync.Mutex
	by map[string][]time.Duration
}

// OpStats summarizes one operation.
type OpStats struct {
	Operation string
	Calls     int
	Total     time.Duration
	Average   time.Duration
}

// Add records one measurement.
func (t *Timings) Add(op string, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.by == nil {
		t.by = make(map[string][]time.Duration)
	}
	t.by[op] = append(t.by[op], d)
}

// Measure runs fn and records how long it took under op.
func (t *Timings) Measure(op string, fn func()) {
	if t == nil {
		fn()
		return
	}
	start := time.Now()
	fn()
	t.Add(op, time.Since(start))
}

// Stats returns per-operation statistics sorted by operation name.
func (t *Timings) Stats() []OpStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]OpStats, 0, len(t.by))
	for op, ds := range t.by {
		s := OpStats{Operation: op, Calls: len(ds)}
		for _, d := range ds {
			s.Total += d
		}
		s.Average = s.Total / time.Duration(len(ds))
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Operation < out[j].Operation })
	return out
}

// Log writes one line per operation.
func (t *Timings) Log(log *slog.Logger) {
	for _, s := range t.Stats() {
		log.Info("timing", "operation", s.Operation, "calls", s.Calls, "average", s.Average, "total", s.Total)
	}
}
