package ml

import "sync"

// MockScorer implements Scorer for testing. It returns Fixed for every
// row unless Fn is set, and counts calls.
type MockScorer struct {
	mu    sync.Mutex
	Fixed float64
	Fn    func(row []float64) float64
	calls int
}

func (m *MockScorer) PredictProba(row []float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.Fn != nil {
		return m.Fn(row)
	}
	return m.Fixed
}

func (m *MockScorer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
