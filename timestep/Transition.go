// Package timestep implements the records of agent-environment
// interaction: single transitions and whole episodes.
package timestep

import (
	"fmt"

	"github.com/samuelfneumann/goatari/environment"
	"github.com/samuelfneumann/goatari/frame"
)

// Transition records a single step of interaction. The Frame is the
// frame observed before the action was taken and Next is the frame
// observed afterwards. Next is nil if and only if the transition ended
// its episode.
type Transition struct {
	Frame  *frame.Frame
	Action environment.Action
	Reward float64 // Shaped reward in {-1, 0, 1}
	Next   *frame.Frame
}

// NewTransition returns a new Transition. If terminal is true, the next
// frame is dropped.
func NewTransition(f *frame.Frame, a environment.Action, r float64,
	next *frame.Frame, terminal bool) Transition {
	if terminal {
		next = nil
	}
	return Transition{Frame: f, Action: a, Reward: r, Next: next}
}

// Terminal returns whether the transition ended its episode
func (t Transition) Terminal() bool {
	return t.Next == nil
}

func (t Transition) String() string {
	return fmt.Sprintf("Transition | Action: %v  |  Reward: %.0f  |  "+
		"Terminal: %v", t.Action, t.Reward, t.Terminal())
}

// Episode is the ordered sequence of Transitions of one play-through,
// from an environment reset to game over.
type Episode []Transition

// Len returns the number of transitions in the episode
func (e Episode) Len() int {
	return len(e)
}

// Validate checks that the episode is complete: it must be non-empty,
// its last transition must be terminal, and no other transition may be
// terminal.
func (e Episode) Validate() error {
	if len(e) == 0 {
		return fmt.Errorf("validate: empty episode")
	}
	for i, t := range e[:len(e)-1] {
		if t.Terminal() {
			return fmt.Errorf("validate: transition %v of %v is terminal",
				i, len(e))
		}
	}
	if !e[len(e)-1].Terminal() {
		return fmt.Errorf("validate: last transition is not terminal")
	}
	return nil
}

// Return returns the sum of the shaped rewards of the episode
func (e Episode) Return() float64 {
	var ret float64
	for _, t := range e {
		ret += t.Reward
	}
	return ret
}
