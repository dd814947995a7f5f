// Package pagetimeout derives per-page OCR timeouts from recently observed
// page latencies.
package pagetimeout

import (
	"math"
	"sync"
	"time"
)

const (
	WindowSize     = 20
	DefaultTimeout = 60 * time.Second
	MinTimeout     = 15 * time.Second
	MaxTimeout     = 300 * time.Second

	meanFactor   = 2.5
	safetyMargin = 5 * time.Second
)

// Model keeps a sliding window of the last WindowSize page durations plus
// lifetime counters. It is safe for concurrent use.
type Model struct {
	mu     sync.Mutex
	window []time.Duration

	count int64
	sum   time.Duration
	min   time.Duration
	max   time.Duration
}

func New() *Model {
	return &Model{window: make([]time.Duration, 0, WindowSize)}
}

// Record adds an observed page duration. Non-positive durations are ignored.
func (m *Model) Record(d time.Duration) {
	if d <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.window = append(m.window, d)
	if over := len(m.window) - WindowSize; over > 0 {
		m.window = append(m.window[:0], m.window[over:]...)
	}

	m.count++
	m.sum += d
	if m.min == 0 || d < m.min {
		m.min = d
	}
	if d > m.max {
		m.max = d
	}
}

// Timeout returns clamp(mean*2.5 + 2*stddev + 5s, [15s, 300s]) over the
// window, or DefaultTimeout when nothing has been recorded.
func (m *Model) Timeout() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timeoutLocked()
}

func (m *Model) timeoutLocked() time.Duration {
	if len(m.window) == 0 {
		return DefaultTimeout
	}
	mean, std := m.statsLocked()
	t := time.Duration(mean*meanFactor+2*std) + safetyMargin
	return min(MaxTimeout, max(MinTimeout, t))
}

// Mean is the window average, DefaultTimeout when empty.
func (m *Model) Mean() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.window) == 0 {
		return DefaultTimeout
	}
	mean, _ := m.statsLocked()
	return time.Duration(mean)
}

// SlowMode reports a window of at least three samples averaging above
// 1.5x the default timeout.
func (m *Model) SlowMode() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slowLocked()
}

func (m *Model) slowLocked() bool {
	if len(m.window) < 3 {
		return false
	}
	mean, _ := m.statsLocked()
	return mean > float64(DefaultTimeout)*1.5
}

// SuggestedParallelism halves def in slow mode and doubles it (up to 8)
// when pages complete in under 15s on average.
func (m *Model) SuggestedParallelism(def int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.window) == 0 {
		return def
	}
	if m.slowLocked() {
		return max(1, def/2)
	}
	if mean, _ := m.statsLocked(); mean < float64(15*time.Second) {
		return min(def*2, 8)
	}
	return def
}

// EstimateTotal predicts wall time for pages processed parallelism at a time.
func (m *Model) EstimateTotal(pages, parallelism int) time.Duration {
	if parallelism < 1 {
		parallelism = 1
	}
	batches := (pages + parallelism - 1) / parallelism
	return m.Mean()*time.Duration(batches) + 10*time.Second
}

// Reset clears the window and lifetime counters.
func (m *Model) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.window = m.window[:0]
	m.count, m.sum, m.min, m.max = 0, 0, 0, 0
}

// Stats is a snapshot for logs and the API.
type Stats struct {
	Requests       int64         `json:"requests"`
	LifetimeMean   time.Duration `json:"lifetime_mean"`
	WindowMean     time.Duration `json:"window_mean"`
	WindowStdDev   time.Duration `json:"window_std_dev"`
	Min            time.Duration `json:"min"`
	Max            time.Duration `json:"max"`
	Timeout        time.Duration `json:"timeout"`
	SlowMode       bool          `json:"slow_mode"`
	NetworkQuality string        `json:"network_quality"`
}

func (m *Model) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Stats{
		Requests: m.count,
		Min:      m.min,
		Max:      m.max,
		Timeout:  m.timeoutLocked(),
		SlowMode: m.slowLocked(),
	}
	if m.count > 0 {
		s.LifetimeMean = m.sum / time.Duration(m.count)
	}
	if len(m.window) > 0 {
		mean, std := m.statsLocked()
		s.WindowMean, s.WindowStdDev = time.Duration(mean), time.Duration(std)
	}
	s.NetworkQuality = quality(len(m.window), s.WindowMean)
	return s
}

func quality(n int, mean time.Duration) string {
	switch {
	case n == 0:
		return "unknown"
	case mean < 10*time.Second:
		return "excellent"
	case mean < 30*time.Second:
		return "good"
	case mean < 60*time.Second:
		return "fair"
	case mean < 120*time.Second:
		return "slow"
	default:
		return "very slow"
	}
}

// statsLocked returns window mean and population standard deviation in
// nanoseconds.
func (m *Model) statsLocked() (mean, std float64) {
	n := float64(len(m.window))
	for _, d := range m.window {
		mean += float64(d)
	}
	mean /= n
	var v float64
	for _, d := range m.window {
		diff := float64(d) - mean
		v += diff * diff
	}
	return mean, math.Sqrt(v / n)
}
