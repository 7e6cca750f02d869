package games

import "math/rand/v2"

// RandomSource supplies randomness to the engines. Implementations must be safe
// for the way they are shared; the default source is safe for concurrent use.
type RandomSource interface {
	// IntN returns a uniform integer in [0, n)
	IntN(n int) int
	// Uint64 returns a uniform 64-bit value
	Uint64() uint64
}

type defaultSource struct{}

func (defaultSource) IntN(n int) int  { return rand.IntN(n) }
func (defaultSource) Uint64() uint64 { return rand.Uint64() }

// DefaultSource is backed by the runtime's concurrency-safe global generator
var DefaultSource RandomSource = defaultSource{}
