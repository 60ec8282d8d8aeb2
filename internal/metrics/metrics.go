package metrics

import (
	"sort"
	"sync"
	"time"
)

type Metrics struct {
	mutex         sync.RWMutex
	requests      map[string]int64
	selections    map[string]int64
	failures      map[string]int64
	durations     map[string][]time.Duration
	breakerStates map[string]string
	failureRates  map[string]float64
	startTime     time.Time
}

type Snapshot struct {
	TotalRequests int64                      `json:"total_requests"`
	Uptime        time.Duration              `json:"uptime"`
	Operations    map[string]int64           `json:"operations"`
	Providers     map[string]ProviderMetrics `json:"providers"`
}

type ProviderMetrics struct {
	Selections   int64         `json:"selections"`
	Failures     int64         `json:"failures"`
	BreakerState string        `json:"breaker_state"`
	FailureRate  float64       `json:"failure_rate"`
	AvgResponse  time.Duration `json:"avg_response"`
	P50Response  time.Duration `json:"p50_response"`
	P95Response  time.Duration `json:"p95_response"`
	P99Response  time.Duration `json:"p99_response"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		requests:      make(map[string]int64),
		selections:    make(map[string]int64),
		failures:      make(map[string]int64),
		durations:     make(map[string][]time.Duration),
		breakerStates: make(map[string]string),
		failureRates:  make(map[string]float64),
		startTime:     time.Now(),
	}
}

func (m *Metrics) IncrementRequests(operation string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.requests[operation]++
}

func (m *Metrics) RecordProviderSelection(provider string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.selections[provider]++
}

func (m *Metrics) RecordCall(provider string, duration time.Duration, success bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.durations[provider] = append(m.durations[provider], duration)
	if len(m.durations[provider]) > 1000 {
		m.durations[provider] = m.durations[provider][1:]
	}

	if !success {
		m.failures[provider]++
	}
}

func (m *Metrics) UpdateBreakerState(provider, state string, failureRate float64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.breakerStates[provider] = state
	m.failureRates[provider] = failureRate
}

func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Uptime:     time.Since(m.startTime),
		Operations: make(map[string]int64, len(m.requests)),
		Providers:  make(map[string]ProviderMetrics),
	}

	for operation, count := range m.requests {
		snap.Operations[operation] = count
		snap.TotalRequests += count
	}

	allProviders := make(map[string]bool)
	for provider := range m.selections {
		allProviders[provider] = true
	}
	for provider := range m.durations {
		allProviders[provider] = true
	}
	for provider := range m.breakerStates {
		allProviders[provider] = true
	}

	for provider := range allProviders {
		pm := ProviderMetrics{
			Selections:   m.selections[provider],
			Failures:     m.failures[provider],
			BreakerState: m.breakerStates[provider],
			FailureRate:  m.failureRates[provider],
		}

		durations := m.durations[provider]
		if len(durations) > 0 {
			sorted := make([]time.Duration, len(durations))
			copy(sorted, durations)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			pm.AvgResponse = average(sorted)
			pm.P50Response = percentile(sorted, 0.50)
			pm.P95Response = percentile(sorted, 0.95)
			pm.P99Response = percentile(sorted, 0.99)
		}

		snap.Providers[provider] = pm
	}

	return snap
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
