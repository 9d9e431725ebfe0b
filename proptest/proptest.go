// Package proptest provides seeded random generation for property tests.
//
// Every Generator is driven by a single seed. A failing property reports the
// seed, and setting PROPTEST_SEED replays the exact same inputs:
//
//	proptest.Check(t, "render is deterministic", proptest.Config{}, func(g *proptest.Generator) (string, bool) {
//	    cond := exprs.Cond(g, 3)
//	    ...
//	})
package proptest

import (
	"math/rand"
	"time"
)

// Generator wraps a seeded random source. The seed is kept so it can be
// logged on failure.
type Generator struct {
	rng  *rand.Rand
	seed int64
}

// New creates a Generator. A zero seed uses the current time.
func New(seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		rng:  rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Seed returns the seed used by this generator.
func (g *Generator) Seed() int64 {
	return g.seed
}

// Intn returns a random int in [0, n). Panics if n <= 0.
func (g *Generator) Intn(n int) int {
	return g.rng.Intn(n)
}

// IntRange returns a random int in [min, max].
func (g *Generator) IntRange(min, max int) int {
	if min > max {
		min, max = max, min
	}
	return min + g.rng.Intn(max-min+1)
}

// Int64Range returns a random int64 in [min, max].
func (g *Generator) Int64Range(min, max int64) int64 {
	if min > max {
		min, max = max, min
	}
	return min + g.rng.Int63n(max-min+1)
}

// Float64 returns a random float64 in [0.0, 1.0).
func (g *Generator) Float64() float64 {
	return g.rng.Float64()
}

// Bool returns a random boolean.
func (g *Generator) Bool() bool {
	return g.rng.Intn(2) == 1
}

// BoolWithProb returns true with the given probability.
func (g *Generator) BoolWithProb(prob float64) bool {
	return g.rng.Float64() < prob
}

const (
	identStart = "abcdefghijklmnopqrstuvwxyz_"
	identRest  = "abcdefghijklmnopqrstuvwxyz0123456789_"
)

// Identifier returns a lowercase SQL identifier of length [1, maxLen].
func (g *Generator) Identifier(maxLen int) string {
	if maxLen < 1 {
		maxLen = 1
	}
	n := g.IntRange(1, maxLen)
	b := make([]byte, n)
	b[0] = identStart[g.Intn(len(identStart))]
	for i := 1; i < n; i++ {
		b[i] = identRest[g.Intn(len(identRest))]
	}
	return string(b)
}

// =============================================================================
// Combinators
// =============================================================================

// OneOf returns a random element of values. Panics if values is empty.
func OneOf[T any](g *Generator, values ...T) T {
	if len(values) == 0 {
		panic("proptest: OneOf called with no values")
	}
	return values[g.Intn(len(values))]
}

// OneOfFunc calls one of fns at random.
func OneOfFunc[T any](g *Generator, fns ...func(*Generator) T) T {
	if len(fns) == 0 {
		panic("proptest: OneOfFunc called with no functions")
	}
	return fns[g.Intn(len(fns))](g)
}

// Weighted picks from values with probability proportional to weights.
func Weighted[T any](g *Generator, weights []float64, values []T) T {
	if len(weights) != len(values) || len(values) == 0 {
		panic("proptest: Weighted needs one weight per value")
	}
	var total float64
	for _, w := range weights {
		total += w
	}
	point := g.Float64() * total
	var cumulative float64
	for i, w := range weights {
		cumulative += w
		if point < cumulative {
			return values[i]
		}
	}
	return values[len(values)-1]
}

// SliceN generates a slice of length [minLen, maxLen].
func SliceN[T any](g *Generator, minLen, maxLen int, gen func(*Generator) T) []T {
	n := g.IntRange(minLen, maxLen)
	out := make([]T, n)
	for i := range out {
		out[i] = gen(g)
	}
	return out
}
