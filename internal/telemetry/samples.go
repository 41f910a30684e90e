package telemetry

import (
	"math"
	"sync"
)

// minReported is the floor of reported values; some hosts report near-zero loads.
const minReported = 0.01

// Samples is a bounded ring buffer of positive readings. The oldest reading is
// dropped once the buffer is full.
type Samples struct {
	mu   sync.Mutex
	buf  []float64
	next int
	full bool
}

func NewSamples(capacity int) *Samples {
	if capacity < 1 {
		capacity = 1
	}
	return &Samples{buf: make([]float64, capacity)}
}

// Add records v. Zero, negative, NaN and infinite readings are dropped.
func (s *Samples) Add(v float64) {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.buf[s.next] = v
	s.next = (s.next + 1) % len(s.buf)
	if s.next == 0 {
		s.full = true
	}
}

func (s *Samples) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.len()
}

func (s *Samples) Max() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var peak float64
	for _, v := range s.buf[:s.len()] {
		if v > peak {
			peak = v
		}
	}
	return floor(peak)
}

func (s *Samples) Average() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.len()
	if n == 0 {
		return floor(0)
	}

	var sum float64
	for _, v := range s.buf[:n] {
		sum += v
	}
	return floor(sum / float64(n))
}

func (s *Samples) len() int {
	if s.full {
		return len(s.buf)
	}
	return s.next
}

func floor(v float64) float64 {
	if v < minReported {
		return minReported
	}
	return v
}
