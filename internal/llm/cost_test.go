package llm

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCost(t *testing.T) {
	sonnet := Price{InputPer1K: 0.003, OutputPer1K: 0.015}

	assert.InDelta(t, 0.0045, Cost(sonnet, 1000, 100), 1e-9)
	assert.InDelta(t, 0.0, Cost(sonnet, 0, 0), 1e-12)
	assert.InDelta(t, 0.0, Cost(Price{}, 5000, 5000), 1e-12)
}

func TestCostLedgerAdditive(t *testing.T) {
	haiku := Price{InputPer1K: 0.0008, OutputPer1K: 0.004}
	var ledger CostLedger

	ledger.Add(Cost(haiku, 1000, 200)) // 0.0008 + 0.0008
	ledger.Add(Cost(haiku, 500, 100))  // 0.0004 + 0.0004
	ledger.Add(Cost(haiku, 250, 0))    // 0.0002

	assert.InDelta(t, 0.0026, ledger.Total(), 1e-9)
	assert.Equal(t, 3, ledger.Calls())
}

func TestCostLedgerConcurrent(t *testing.T) {
	var ledger CostLedger
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ledger.Add(0.001)
		}()
	}
	wg.Wait()

	assert.InDelta(t, 0.05, ledger.Total(), 1e-9)
	assert.Equal(t, 50, ledger.Calls())
}
