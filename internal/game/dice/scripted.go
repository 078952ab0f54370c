package dice

import "sync"

// ScriptedSource replays fixed draws in order. It exists for tests and replays
// that must force a specific outcome (a miss, a critical, a variance value).
//
// When a queue runs dry the source keeps returning its last value, or 0 if the
// queue was empty from the start.
type ScriptedSource struct {
	mu     sync.Mutex
	ints   []int
	floats []float64
	lastI  int
	lastF  float64
}

// NewScriptedSource returns a source that yields ints for Intn and floats for Float64.
//
// Precondition: every int must be >= 0; every float must be in [0, 1).
func NewScriptedSource(ints []int, floats []float64) *ScriptedSource {
	return &ScriptedSource{
		ints:   append([]int(nil), ints...),
		floats: append([]float64(nil), floats...),
	}
}

// Intn returns the next scripted int, clamped to [0, n).
func (s *ScriptedSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ints) > 0 {
		s.lastI, s.ints = s.ints[0], s.ints[1:]
	}
	v := s.lastI
	if v >= n {
		v = n - 1
	}
	if v < 0 {
		v = 0
	}
	return v
}

// Float64 returns the next scripted float.
func (s *ScriptedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.floats) > 0 {
		s.lastF, s.floats = s.floats[0], s.floats[1:]
	}
	return s.lastF
}

// Push appends more draws to the script.
func (s *ScriptedSource) Push(ints []int, floats []float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ints = append(s.ints, ints...)
	s.floats = append(s.floats, floats...)
}
