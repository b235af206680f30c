package motion

import (
	"math/rand"
	"sync"
)

// MockSampler produces readings around a fixed tilt with some jitter. It
// stands in for the IMU on benches without one.
type MockSampler struct {
	mu     sync.Mutex
	center Sample
	jitter float64
	rng    *rand.Rand
	err    error
	calls  int
}

// NewMockSampler returns a sampler centred on c with ±jitter noise.
func NewMockSampler(c Sample, jitter float64) *MockSampler {
	return &MockSampler{center: c, jitter: jitter, rng: rand.New(rand.NewSource(1))}
}

// SetCenter moves the simulated tilt.
func (m *MockSampler) SetCenter(c Sample) {
	m.mu.Lock()
	m.center = c
	m.mu.Unlock()
}

// SetError makes the next collections fail with err.
func (m *MockSampler) SetError(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// Calls returns how many windows were collected.
func (m *MockSampler) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockSampler) Collect(n int) ([]Sample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([]Sample, n)
	for i := range out {
		out[i] = Sample{
			X: m.center.X + (m.rng.Float64()*2-1)*m.jitter,
			Y: m.center.Y + (m.rng.Float64()*2-1)*m.jitter,
		}
	}
	return out, nil
}
