package llm

import "sync"

// Price is a per-1000-token price pair in USD.
type Price struct {
	InputPer1K  float64
	OutputPer1K float64
}

// Cost returns the USD cost of one call.
func Cost(p Price, inputTokens, outputTokens int) float64 {
	return float64(inputTokens)/1000*p.InputPer1K + float64(outputTokens)/1000*p.OutputPer1K
}

// CostLedger accumulates call costs. The zero value is ready to use.
type CostLedger struct {
	mu    sync.Mutex
	total float64
	calls int
}

// Add records one call and returns the running total.
func (l *CostLedger) Add(cost float64) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.total += cost
	l.calls++
	return l.total
}

// Total returns the accumulated cost.
func (l *CostLedger) Total() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}

// Calls returns how many calls were recorded.
func (l *CostLedger) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}
