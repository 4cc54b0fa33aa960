package randutil

import rand "math/rand/v2"

// Counted is a deterministic draw source that tracks how many values it has
// produced. Every draw advances the counter exactly once, so a replica that
// knows (seed, counter) can rebuild the source by replaying that many draws
// against a fresh stream from the same seed.
type Counted struct {
	seed    int64
	counter uint64
	rng     *rand.Rand
}

// NewCounted returns a fresh counted source seeded with seed.
func NewCounted(seed int64) *Counted {
	return &Counted{seed: seed, rng: New(seed)}
}

// RestoreCounted rebuilds a counted source positioned at the given draw
// counter by replaying the stream from the seed.
func RestoreCounted(seed int64, counter uint64) *Counted {
	c := NewCounted(seed)
	for i := uint64(0); i < counter; i++ {
		c.rng.Uint64()
	}
	c.counter = counter
	return c
}

// Draw returns a uniform value in [min, max] inclusive and advances the
// counter. An inverted or empty range still consumes one value from the
// stream so the counter stays aligned with the generator position.
func (c *Counted) Draw(min, max uint64) uint64 {
	c.counter++
	v := c.rng.Uint64()
	if max <= min {
		return min
	}
	return min + v%(max-min+1)
}

// Seed returns the seed the source was created with.
func (c *Counted) Seed() int64 { return c.seed }

// Counter returns the number of draws consumed so far.
func (c *Counted) Counter() uint64 { return c.counter }
