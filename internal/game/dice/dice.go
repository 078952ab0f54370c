// Package dice provides the randomness abstraction consumed by the battle engine.
//
// Every random draw the engine makes goes through a Source so that battles can be
// replayed from a seed and tests can script exact outcomes.
package dice

// Source is the randomness provider for battle resolution.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
	// Float64 returns a random float in [0.0, 1.0).
	Float64() float64
}
