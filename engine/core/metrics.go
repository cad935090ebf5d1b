package core

import (
	"sync"
	"time"
)

const AVG_COUNT uint8 = 30

/** @brief Counters of a LoadMetrics, safe to copy. */
type LoadMetricsSnapshot struct {
	Loaded uint64
	Failed uint64
	Stale  uint64
	// Mean of the last AVG_COUNT successful loads.
	Average time.Duration
}

// LoadMetrics keeps a rolling average of load durations.
type LoadMetrics struct {
	mu         sync.Mutex
	avgCounter uint8
	samples    [AVG_COUNT]time.Duration
	filled     uint8
	snapshot   LoadMetricsSnapshot
}

func NewLoadMetrics() *LoadMetrics {
	return &LoadMetrics{}
}

func (m *LoadMetrics) RecordLoad(elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.samples[m.avgCounter] = elapsed
	m.avgCounter++
	m.avgCounter %= AVG_COUNT
	if m.filled < AVG_COUNT {
		m.filled++
	}

	var total time.Duration
	for i := uint8(0); i < m.filled; i++ {
		total += m.samples[i]
	}
	m.snapshot.Average = total / time.Duration(m.filled)
	m.snapshot.Loaded++
}

func (m *LoadMetrics) RecordFailure() {
	m.mu.Lock()
	m.snapshot.Failed++
	m.mu.Unlock()
}

func (m *LoadMetrics) RecordStale() {
	m.mu.Lock()
	m.snapshot.Stale++
	m.mu.Unlock()
}

func (m *LoadMetrics) Snapshot() LoadMetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot
}
