package expreplay

import (
	"golang.org/x/exp/rand"
)

// Selector implements functionality for choosing how data should be
// sampled from an experience replay buffer
type Selector interface {
	// choose selects the indices at which data should be sampled from
	// the experience replay buffer. Indices are in insertion order,
	// with index 0 the oldest transition in the buffer.
	choose(c *fifoCache) []int

	// BatchSize returns the number of elements that will be selected
	BatchSize() int
}

// uniformSelector is a Selector which selects data from an experience
// replay buffer uniformly randomly, with replacement
type uniformSelector struct {
	samples int
	rng     *rand.Rand
}

// NewUniformSelector returns a new Selector which selects data uniformly
// randomly from an experience replay buffer
func NewUniformSelector(samples int, seed uint64) Selector {
	source := rand.NewSource(seed)
	rng := rand.New(source)

	return &uniformSelector{samples: samples, rng: rng}
}

// BatchSize gets the number of samples in a batch drawn from the buffer
func (u *uniformSelector) BatchSize() int {
	return u.samples
}

// choose selects a number of indices at which to draw data from the
// buffer
func (u *uniformSelector) choose(c *fifoCache) []int {
	selected := make([]int, u.BatchSize())
	for i := range selected {
		selected[i] = u.rng.Intn(c.Capacity())
	}
	return selected
}

// newestSelector is a Selector which always selects the most recent
// transitions in the buffer, newest first. It is mostly useful for
// debugging learning updates.
type newestSelector struct {
	samples int
}

// NewNewestSelector returns a new Selector which selects the most
// recently added data from an experience replay buffer
func NewNewestSelector(samples int) Selector {
	return &newestSelector{samples: samples}
}

// BatchSize gets the number of samples in a batch drawn from the buffer
func (n *newestSelector) BatchSize() int {
	return n.samples
}

// choose selects a number of indices at which to draw data from the
// buffer. If the buffer holds fewer transitions than the batch size,
// the oldest transition is repeated.
func (n *newestSelector) choose(c *fifoCache) []int {
	selected := make([]int, n.BatchSize())
	for i := range selected {
		selected[i] = max(c.Capacity()-1-i, 0)
	}
	return selected
}
