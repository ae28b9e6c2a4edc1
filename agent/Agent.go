// Package agent defines the capabilities the training loop requires of
// a learning agent.
//
// The training loop never depends on how an agent approximates action
// values or how it learns. It only selects actions, hands over complete
// episodes of experience, triggers learning updates, and asks the agent
// to snapshot or restore itself.
package agent

import (
	"github.com/samuelfneumann/goatari/environment"
	"github.com/samuelfneumann/goatari/frame"
	"github.com/samuelfneumann/goatari/timestep"
)

// Agent determines the implementation details of an agent or algorithm
//
// An Agent is composed of a Learner, which learns from replayed
// experience, and a Policy which chooses actions at each decision
// point. Agents are also checkpointer.Snapshotters.
type Agent interface {
	Learner
	Policy

	// Snapshot writes the agent's model, and optionally its replay
	// memory and solver state, to files sharing a base name derived
	// from name and the current iteration
	Snapshot(name string, includeMemory, includeSolverState bool) error

	// RestoreFromCheckpoint restores the agent from a solver state
	// file, or only its model weights from a model file
	RestoreFromCheckpoint(path string) error

	// RestoreReplayMemory replaces the replay memory with the contents
	// of a replay memory file
	RestoreReplayMemory(path string) error
}

// A Closer is an agent that must be closed after it is done learning
type Closer interface {
	Agent
	Close() error
}

// Learner implements a learning algorithm that defines how weights are
// updated.
type Learner interface {
	// LearningUpdate performs a single update to the learner. It
	// blocks until the update has completed.
	LearningUpdate() error

	// AdmitEpisode adds a complete episode of experience to the
	// learner's replay memory
	AdmitEpisode(timestep.Episode) error

	// ReplayOccupancy returns the number of transitions in the replay
	// memory
	ReplayOccupancy() int

	// CurrentIteration returns the number of learning updates
	// performed so far
	CurrentIteration() int
}

// Policy represents a policy that an agent can have.
//
// Policies determine how agents select actions in a state made of the
// most recent frames of an episode.
type Policy interface {
	// SelectAction selects an action given a full stack of frames. With
	// probability epsilon a uniformly random legal action is returned.
	// The continuation flag is false only for the first decision of an
	// episode, so that recurrent policies can reset their state.
	SelectAction(s *frame.Stack, epsilon float64,
		continuation bool) environment.Action
}
