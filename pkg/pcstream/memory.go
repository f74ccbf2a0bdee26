package pcstream

import (
	"sync/atomic"
	"time"
)

// memoryAccountant sums the device bytes of frames that became ready.
// Nothing is ever evicted, so the total never decreases. It is read without
// the stream lock.
type memoryAccountant struct {
	total  atomic.Int64
	budget int64
	warned bool
}

func newMemoryAccountant(budgetMB int) *memoryAccountant {
	if budgetMB == 0 {
		budgetMB = DefaultMemoryBudgetMB
	}
	return &memoryAccountant{budget: int64(budgetMB) * 1024 * 1024}
}

// add records n bytes and reports whether this addition is the first to
// exceed the budget.
func (m *memoryAccountant) add(n int64) (exceeded bool) {
	if n < 0 {
		n = 0
	}
	total := m.total.Add(n)
	if total > m.budget && !m.warned {
		m.warned = true
		return true
	}
	return false
}

func (m *memoryAccountant) Total() int64 {
	return m.total.Load()
}

func (m *memoryAccountant) Budget() int64 {
	return m.budget
}

const loadSamples = 5

// loadTimeAverage is a running mean over the last loadSamples load times.
type loadTimeAverage struct {
	samples [loadSamples]time.Duration
	next    int
	n       int
	sum     time.Duration
}

func (a *loadTimeAverage) add(d time.Duration) {
	a.sum -= a.samples[a.next]
	a.samples[a.next] = d
	a.sum += d
	a.next = (a.next + 1) % loadSamples
	if a.n < loadSamples {
		a.n++
	}
}

func (a *loadTimeAverage) mean() time.Duration {
	if a.n == 0 {
		return 0
	}
	return a.sum / time.Duration(a.n)
}
