package experiment

import (
	"errors"
	"fmt"

	"github.com/samuelfneumann/goatari/agent"
	"github.com/samuelfneumann/goatari/environment"
	"github.com/samuelfneumann/goatari/frame"
	"github.com/samuelfneumann/goatari/timestep"
)

// ErrGameOver is returned when an episode is started in an environment
// whose game is already over
var ErrGameOver = errors.New("game over at episode start")

// RunnerConfig determines how a Runner plays episodes
type RunnerConfig struct {
	SkipFrame       int `json:"skip_frame"`          // Extra frames each action is repeated for
	UpdateFrequency int `json:"update_frequency"`    // Steps between learning updates
	MemoryThreshold int `json:"memory_threshold"`    // Replay occupancy needed to learn
	Window          int `json:"frames_per_timestep"` // Frames in each state
	ObscureSize     int `json:"obscure_size"`        // Side of the obscured screen square
}

// Validate returns an error describing whether the configuration is
// valid or not
func (c RunnerConfig) Validate() error {
	if c.SkipFrame < 0 {
		return fmt.Errorf("validate: frame skip must be non-negative "+
			"\n\thave(%v)", c.SkipFrame)
	}
	if c.UpdateFrequency < 1 {
		return fmt.Errorf("validate: update frequency must be positive "+
			"\n\thave(%v)", c.UpdateFrequency)
	}
	if c.MemoryThreshold < 0 {
		return fmt.Errorf("validate: memory threshold must be "+
			"non-negative \n\thave(%v)", c.MemoryThreshold)
	}
	if c.Window < 1 {
		return fmt.Errorf("validate: window must be positive \n\thave(%v)",
			c.Window)
	}
	if c.ObscureSize < 0 || c.ObscureSize > frame.Size {
		return fmt.Errorf("validate: obscure size must be in [0, %v] "+
			"\n\thave(%v)", frame.Size, c.ObscureSize)
	}
	return nil
}

// Runner plays episodes of a game with an agent, optionally recording
// the experience and letting the agent learn from it.
type Runner struct {
	env    environment.Environment
	agent  agent.Agent
	config RunnerConfig
	dumper *Dumper
}

// NewRunner returns a new Runner. The dumper may be nil, in which case
// no frames are dumped.
func NewRunner(env environment.Environment, a agent.Agent,
	config RunnerConfig, dumper *Dumper) (*Runner, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("newrunner: %v", err)
	}
	return &Runner{
		env:    env,
		agent:  a,
		config: config,
		dumper: dumper,
	}, nil
}

// Agent returns the agent playing episodes
func (r *Runner) Agent() agent.Agent {
	return r.agent
}

// episodeContext holds the mutable state of a single episode
type episodeContext struct {
	lives        int  // Lives remaining at the last life loss
	continuation bool // Whether the agent has acted in this episode
	stack        *frame.Stack
	current      *frame.Frame
	episode      timestep.Episode
	score        float64
}

// ShapeReward returns the reward learned from for a step whose raw
// score change was delta. A life lost during the step always yields a
// reward of -1.
func ShapeReward(delta float64, lifeLost bool) float64 {
	if lifeLost {
		return -1
	}
	switch {
	case delta > 0:
		return 1
	case delta < 0:
		return -1
	default:
		return 0
	}
}

// observe returns the current screen as a preprocessed and possibly
// obscured frame
func (r *Runner) observe() *frame.Frame {
	f := frame.Preprocess(r.env.Observe())
	return frame.Obscure(f, r.config.ObscureSize)
}

// RunEpisode plays a single episode with exploration probability
// epsilon and returns its total raw score. If update is true, the
// episode is recorded, the agent's learning updates are triggered, and
// the complete episode is admitted to the agent's replay memory once
// the game is over. The environment is reset before returning.
func (r *Runner) RunEpisode(epsilon float64, update bool) (float64, error) {
	if r.env.IsTerminal() {
		return 0, fmt.Errorf("runepisode: %w", ErrGameOver)
	}

	ctx := episodeContext{
		lives:   r.env.Lives(),
		stack:   frame.NewStack(r.config.Window),
		current: r.observe(),
	}

	for step := 0; !r.env.IsTerminal(); step++ {
		// The next frame is already observed after each step when
		// updating
		if !update {
			ctx.current = r.observe()
		}
		ctx.stack.Push(ctx.current)

		if r.dumper != nil {
			if err := r.dumper.Dump(step, r.env.Observe(),
				ctx.current); err != nil {
				return ctx.score, fmt.Errorf("runepisode: %v", err)
			}
		}

		action := environment.NoOp
		if ctx.stack.Full() {
			action = r.agent.SelectAction(ctx.stack, epsilon,
				ctx.continuation)
			ctx.continuation = true
		}

		var delta float64
		for i := 0; i < r.config.SkipFrame+1 && !r.env.IsTerminal(); i++ {
			delta += r.env.Act(action)
		}
		ctx.score += delta

		lifeLost := false
		if lives := r.env.Lives(); lives < ctx.lives {
			ctx.lives = lives
			lifeLost = true
		}
		reward := ShapeReward(delta, lifeLost)
		if reward < -1 || reward > 1 {
			panic(fmt.Sprintf("runepisode: reward out of range "+
				"\n\twant([-1, 1]) \n\thave(%v)", reward))
		}

		if !update {
			continue
		}

		next := r.observe()
		terminal := r.env.IsTerminal()
		ctx.episode = append(ctx.episode, timestep.NewTransition(ctx.current,
			action, reward, next, terminal))

		if r.agent.ReplayOccupancy() > r.config.MemoryThreshold &&
			step%r.config.UpdateFrequency == 0 {
			if err := r.agent.LearningUpdate(); err != nil {
				return ctx.score, fmt.Errorf("runepisode: %v", err)
			}
		}
		ctx.current = next
	}

	if update {
		if err := r.agent.AdmitEpisode(ctx.episode); err != nil {
			return ctx.score, fmt.Errorf("runepisode: %v", err)
		}
	}
	r.env.Reset()

	return ctx.score, nil
}
