package proptest

import (
	"os"
	"strconv"
	"testing"
	"time"
)

// Config controls a property run.
type Config struct {
	// Trials is the number of iterations. Default: 100.
	Trials int

	// Seed fixes the random seed. Zero means PROPTEST_SEED or the clock.
	Seed int64
}

// effectiveSeed prefers PROPTEST_SEED so failures can be replayed.
func effectiveSeed(cfg Config) int64 {
	if env := os.Getenv("PROPTEST_SEED"); env != "" {
		if seed, err := strconv.ParseInt(env, 10, 64); err == nil {
			return seed
		}
	}
	if cfg.Seed != 0 {
		return cfg.Seed
	}
	return time.Now().UnixNano()
}

// Check runs prop Trials times with one shared generator. prop returns a
// label describing the case, printed when it fails.
func Check(t *testing.T, name string, cfg Config, prop func(g *Generator) (label string, ok bool)) {
	t.Helper()

	if cfg.Trials <= 0 {
		cfg.Trials = 100
	}
	seed := effectiveSeed(cfg)
	g := New(seed)

	for i := 0; i < cfg.Trials; i++ {
		label, ok := prop(g)
		if !ok {
			t.Errorf("proptest %q failed on trial %d: %s (seed=%d, use PROPTEST_SEED=%d to reproduce)",
				name, i+1, label, seed, seed)
			return
		}
	}
}
