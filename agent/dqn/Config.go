package dqn

import (
	"fmt"

	"github.com/samuelfneumann/goatari/agent"
	"github.com/samuelfneumann/goatari/environment"
	"github.com/samuelfneumann/goatari/expreplay"
	"github.com/samuelfneumann/goatari/initwfn"
	"github.com/samuelfneumann/goatari/network"
	"github.com/samuelfneumann/goatari/solver"
)

// Config implements a configuration for a DQN agent
type Config struct {
	Hidden      []int                 `json:"hidden"`      // Layer sizes in neural net
	Biases      []bool                `json:"biases"`      // Whether each layer should have a bias
	Activations []*network.Activation `json:"activations"` // Activation of each layer
	Solver      *solver.Solver        `json:"solver"`      // Solver for learning weights

	// Initialization algorithm for weights
	InitWFn *initwfn.InitWFn `json:"init"`

	Gamma     float64 `json:"gamma"`      // Discount factor
	CloneFreq int     `json:"clone_freq"` // Updates between target net refreshes

	// Experience replay parameters
	ExpReplay expreplay.Config `json:"replay"`
}

// DefaultConfig returns the configuration of a DQN agent learning from
// 4-frame stacks with the replay and target network settings commonly
// used on Atari games
func DefaultConfig() Config {
	replay := expreplay.Config{
		SampleSize:        32,
		MaxReplayCapacity: 500000,
		MinReplayCapacity: 32,
		Window:            4,
	}
	return Config{
		Hidden:      []int{256},
		Biases:      []bool{true},
		Activations: []*network.Activation{network.ReLU()},
		Solver:      solver.Default(replay.SampleSize),
		InitWFn:     initwfn.NewGlorotU(1.0),
		Gamma:       0.99,
		CloneFreq:   10000,
		ExpReplay:   replay,
	}
}

// BatchSize returns the batch size of the agent constructed using this
// Config
func (c Config) BatchSize() int {
	return c.ExpReplay.SampleSize
}

// Validate checks a Config to ensure it is a valid configuration of a
// DQN agent.
func (c Config) Validate() error {
	if len(c.Hidden) != len(c.Biases) {
		return fmt.Errorf("validate: invalid number of biases\n\twant(%v)"+
			"\n\thave(%v)", len(c.Hidden), len(c.Biases))
	}

	if len(c.Hidden) != len(c.Activations) {
		return fmt.Errorf("validate: invalid number of activations"+
			"\n\twant(%v)\n\thave(%v)", len(c.Hidden), len(c.Activations))
	}

	for i, size := range c.Hidden {
		if size < 1 {
			return fmt.Errorf("validate: hidden layer %v must have positive "+
				"size \n\twant(>0) \n\thave(%v)", i, size)
		}
	}

	if c.Solver == nil {
		return fmt.Errorf("validate: no solver specified")
	}

	if c.InitWFn == nil {
		return fmt.Errorf("validate: no weight initializer specified")
	}

	if c.Gamma < 0 || c.Gamma > 1 {
		return fmt.Errorf("validate: discount must be in [0, 1] "+
			"\n\thave(%v)", c.Gamma)
	}

	if c.CloneFreq < 1 {
		return fmt.Errorf("validate: target networks must be updated at "+
			"positive intervals \n\twant(>0) \n\thave(%v)", c.CloneFreq)
	}

	if err := c.ExpReplay.Validate(); err != nil {
		return fmt.Errorf("validate: %v", err)
	}

	return nil
}

// ValidAgent returns whether the agent is valid for the configuration.
// That is, whether Agent a can be constructed with Config c.
func (c Config) ValidAgent(a agent.Agent) bool {
	_, ok := a.(*DQN)
	return ok
}

// CreateAgent creates a new DQN agent based on the configuration
func (c Config) CreateAgent(actions []environment.Action,
	seed uint64) (agent.Agent, error) {
	return New(actions, c, seed)
}
