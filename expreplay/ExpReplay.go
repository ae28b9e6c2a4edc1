// Package expreplay implements the experience replay memory of the
// training loop.
//
// Experience is admitted to the buffer one complete episode at a time
// and removed one transition at a time, oldest first. Transitions only
// store single frames. The stacked states that a learner trains on are
// rebuilt at sampling time from the frames of the preceding
// transitions of the same episode.
package expreplay

import (
	"encoding/gob"
	"fmt"

	"github.com/samuelfneumann/goatari/environment"
	"github.com/samuelfneumann/goatari/timestep"
)

// Config implements a specific configuration of an ExperienceReplayer
type Config struct {
	// SampleSize is the number of transitions in each sampled batch
	SampleSize int

	// MaxReplayCapacity is the maximum number of transitions stored
	MaxReplayCapacity int

	// MinReplayCapacity is the number of transitions required in the
	// buffer before it can be sampled
	MinReplayCapacity int

	// Window is the number of consecutive frames in a sampled state
	Window int
}

// Validate checks the Config for errors
func (c Config) Validate() error {
	if c.MinReplayCapacity <= 0 {
		return fmt.Errorf("validate: minCapacity must be > 0")
	}
	if c.MaxReplayCapacity < c.MinReplayCapacity {
		return fmt.Errorf("validate: maxCapacity must be >= minCapacity "+
			"\n\twant(>=%v) \n\thave(%v)", c.MinReplayCapacity,
			c.MaxReplayCapacity)
	}
	if c.SampleSize < 1 {
		return fmt.Errorf("validate: batch size must be >= 1")
	}
	if c.MaxReplayCapacity < c.SampleSize {
		return fmt.Errorf("validate: cannot have batch size(%v) > max "+
			"buffer capacity (%v)", c.SampleSize, c.MaxReplayCapacity)
	}
	if c.Window < 1 {
		return fmt.Errorf("validate: window must be >= 1")
	}
	return nil
}

// Create creates and returns the ExperienceReplayer with the specified
// Config. Batches are sampled uniformly.
func (c Config) Create(seed uint64) (ExperienceReplayer, error) {
	return New(NewUniformSelector(c.SampleSize, seed), c.MinReplayCapacity,
		c.MaxReplayCapacity, c.Window)
}

// ExperienceReplayer implements an experience replay buffer
type ExperienceReplayer interface {
	// AddEpisode adds all transitions of a complete episode to the
	// buffer, evicting the oldest transitions if needed
	AddEpisode(e timestep.Episode) error

	// Sample samples a batch of experience from the buffer
	Sample() (Batch, error)

	// Capacity returns the current number of samples in the buffer
	Capacity() int

	// MaxCapacity returns the maximum allowable samples in the buffer
	MaxCapacity() int

	// MinCapacity returns the number of samples required to be in
	// the buffer before the buffer can be sampled
	MinCapacity() int

	// BatchSize returns the number of samples returned by Sample()
	BatchSize() int

	// Window returns the number of frames in each sampled state
	Window() int

	gob.GobEncoder
	gob.GobDecoder
}

// Batch is a batch of transitions sampled from an ExperienceReplayer.
// States are stored contiguously, each state holding Window frames of
// normalized intensities, oldest frame first.
type Batch struct {
	State     []float64
	Action    []environment.Action
	Reward    []float64
	NextState []float64

	// Discount is 0 for transitions that ended their episode and 1
	// otherwise. Learners scale it by their own discount factor.
	Discount []float64
}

// Len returns the number of transitions in the batch
func (b Batch) Len() int {
	return len(b.Action)
}

// New creates and returns a new ExperienceReplayer. The sampler
// determines how batches are drawn from the buffer. The window
// parameter is the number of consecutive frames in each sampled state.
func New(sampler Selector, minCapacity, maxCapacity,
	window int) (ExperienceReplayer, error) {
	c := Config{
		SampleSize:        sampler.BatchSize(),
		MinReplayCapacity: minCapacity,
		MaxReplayCapacity: maxCapacity,
		Window:            window,
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	return newFifoCache(sampler, minCapacity, maxCapacity, window), nil
}
