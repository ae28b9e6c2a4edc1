// Package config implements the configuration of a training or
// evaluation run. Configurations are plain JSON documents; any field
// left out of a document keeps its default value.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/samuelfneumann/goatari/agent/dqn"
	"github.com/samuelfneumann/goatari/experiment"
	"github.com/samuelfneumann/goatari/expreplay"
	"github.com/samuelfneumann/goatari/initwfn"
	"github.com/samuelfneumann/goatari/network"
	"github.com/samuelfneumann/goatari/schedule"
	"github.com/samuelfneumann/goatari/solver"
)

// Environment variables which provide defaults for the game and the
// save path
const (
	ROMEnv  = "GOATARI_ROM"
	SaveEnv = "GOATARI_SAVE"
)

// ErrMissingROM is returned when no game is configured
var ErrMissingROM = errors.New("rom file required but not set")

// Network configures the Q-network of the agent
type Network struct {
	Hidden      []int                 `json:"hidden"`
	Biases      []bool                `json:"biases"`
	Activations []*network.Activation `json:"activations"`
	Solver      *solver.Solver        `json:"solver"`
	InitWFn     *initwfn.InitWFn      `json:"init"`
}

// Config configures a run
type Config struct {
	ROM  string `json:"rom"`  // Game to play: a ROM file, a Gym game name, or catch
	Save string `json:"save"` // Prefix or directory of saved files
	Seed uint64 `json:"seed"`

	Memory    int     `json:"memory"`     // Replay memory capacity
	Gamma     float64 `json:"gamma"`      // Discount factor
	CloneFreq int     `json:"clone_freq"` // Updates between target net refreshes
	Explore   int     `json:"explore"`    // Updates for epsilon to decay
	Epsilon   float64 `json:"epsilon"`    // Epsilon after exploration
	Minibatch int     `json:"minibatch"`

	SkipFrame       int `json:"skip_frame"`
	UpdateFrequency int `json:"update_frequency"`
	MemoryThreshold int `json:"memory_threshold"`
	Window          int `json:"frames_per_timestep"`
	ObscureSize     int `json:"obscure_size"`
	MaxEpisodeFrame int `json:"max_num_frames_per_episode"` // 0 for no limit

	EvaluateEpsilon float64 `json:"evaluate_with_epsilon"`
	EvaluateFreq    int     `json:"evaluate_freq"`
	RepeatGames     int     `json:"repeat_games"`
	MaxIter         int     `json:"max_iter"`
	CheckpointFreq  int     `json:"checkpoint_freq"` // Updates between extra checkpoints, 0 for none

	Network Network `json:"network"`
}

// Default returns the default configuration of a run. The game and
// save path are left empty.
func Default() Config {
	return Config{
		Memory:    400000,
		Gamma:     0.99,
		CloneFreq: 10000,
		Explore:   1000000,
		Epsilon:   0.1,
		Minibatch: 32,

		SkipFrame:       4,
		UpdateFrequency: 1,
		MemoryThreshold: 50000,
		Window:          4,
		ObscureSize:     0,

		EvaluateEpsilon: 0.05,
		EvaluateFreq:    50000,
		RepeatGames:     10,
		MaxIter:         10000000,

		Network: Network{
			Hidden:      []int{256},
			Biases:      []bool{true},
			Activations: []*network.Activation{network.ReLU()},
			Solver:      solver.Default(32),
			InitWFn:     initwfn.NewGlorotU(1.0),
		},
	}
}

// Load returns the default configuration overridden by the JSON
// document at path. Unknown fields are an error.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load: %v", err)
	}

	c := Default()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return Config{}, fmt.Errorf("load: could not decode %v: %v", path,
			err)
	}
	return c, nil
}

// ApplyEnv loads the given .env files, ignoring those that do not
// exist, and fills the game and save path from the environment if they
// are not already set.
func (c *Config) ApplyEnv(files ...string) {
	for _, file := range files {
		if _, err := os.Stat(file); err == nil {
			godotenv.Load(file)
		}
	}

	if rom := os.Getenv(ROMEnv); c.ROM == "" && rom != "" {
		c.ROM = rom
	}
	if save := os.Getenv(SaveEnv); c.Save == "" && save != "" {
		c.Save = save
	}
}

// Validate returns an error describing whether or not the
// configuration is valid
func (c Config) Validate() error {
	if c.ROM == "" {
		return fmt.Errorf("validate: %w", ErrMissingROM)
	}
	if c.MaxEpisodeFrame < 0 {
		return fmt.Errorf("validate: episode frame limit must be "+
			"non-negative \n\thave(%v)", c.MaxEpisodeFrame)
	}
	if c.MemoryThreshold >= c.Memory {
		return fmt.Errorf("validate: memory threshold must be less than "+
			"the replay memory capacity \n\twant(< %v) \n\thave(%v)",
			c.Memory, c.MemoryThreshold)
	}
	if c.CheckpointFreq < 0 {
		return fmt.Errorf("validate: checkpoint frequency must be "+
			"non-negative \n\thave(%v)", c.CheckpointFreq)
	}
	if err := c.AgentConfig().Validate(); err != nil {
		return fmt.Errorf("validate: %v", err)
	}
	if err := c.RunnerConfig().Validate(); err != nil {
		return fmt.Errorf("validate: %v", err)
	}
	if err := c.TrainerConfig().Validate(); err != nil {
		return fmt.Errorf("validate: %v", err)
	}
	if err := c.Schedule().Validate(); err != nil {
		return fmt.Errorf("validate: %v", err)
	}
	return nil
}

// AgentConfig returns the configuration of the DQN agent
func (c Config) AgentConfig() dqn.Config {
	return dqn.Config{
		Hidden:      c.Network.Hidden,
		Biases:      c.Network.Biases,
		Activations: c.Network.Activations,
		Solver:      c.Network.Solver,
		InitWFn:     c.Network.InitWFn,
		Gamma:       c.Gamma,
		CloneFreq:   c.CloneFreq,
		ExpReplay: expreplay.Config{
			SampleSize:        c.Minibatch,
			MaxReplayCapacity: c.Memory,
			MinReplayCapacity: c.Minibatch,
			Window:            c.Window,
		},
	}
}

// RunnerConfig returns the configuration of the episode runner
func (c Config) RunnerConfig() experiment.RunnerConfig {
	return experiment.RunnerConfig{
		SkipFrame:       c.SkipFrame,
		UpdateFrequency: c.UpdateFrequency,
		MemoryThreshold: c.MemoryThreshold,
		Window:          c.Window,
		ObscureSize:     c.ObscureSize,
	}
}

// TrainerConfig returns the configuration of the training loop
func (c Config) TrainerConfig() experiment.TrainerConfig {
	return experiment.TrainerConfig{
		MaxIter:         c.MaxIter,
		EvaluateFreq:    c.EvaluateFreq,
		EvaluateEpsilon: c.EvaluateEpsilon,
		RepeatGames:     c.RepeatGames,
	}
}

// Schedule returns the exploration schedule of training
func (c Config) Schedule() schedule.Linear {
	return schedule.Linear{Final: c.Epsilon, Steps: c.Explore}
}
