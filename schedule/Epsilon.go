// Package schedule implements exploration schedules, which determine
// the probability of taking a uniformly random action at each training
// iteration.
package schedule

import "fmt"

// Schedule determines the exploration rate at a given training iteration
type Schedule interface {
	Epsilon(iteration int) float64

	// Done returns whether exploration has finished decaying by
	// iteration
	Done(iteration int) bool
}

// Linear is a Schedule which decays epsilon linearly from 1 to Final
// over the first Steps iterations, then holds it at Final.
type Linear struct {
	Final float64 `json:"epsilon"`
	Steps int     `json:"explore"`
}

// NewLinear returns a new Linear schedule
func NewLinear(final float64, steps int) (Linear, error) {
	l := Linear{Final: final, Steps: steps}
	return l, l.Validate()
}

// Validate checks that the schedule is well defined
func (l Linear) Validate() error {
	if l.Final < 0 || l.Final > 1 {
		return fmt.Errorf("validate: final epsilon must be in [0, 1] "+
			"\n\thave(%v)", l.Final)
	}
	if l.Steps < 0 {
		return fmt.Errorf("validate: exploration steps must be non-negative "+
			"\n\thave(%v)", l.Steps)
	}
	return nil
}

// Epsilon returns the exploration rate at iteration. Negative
// iterations are treated as iteration 0.
func (l Linear) Epsilon(iteration int) float64 {
	if iteration < 0 {
		iteration = 0
	}
	if iteration >= l.Steps {
		return l.Final
	}
	return 1.0 - (1.0-l.Final)*float64(iteration)/float64(l.Steps)
}

// Done returns whether exploration has decayed fully by iteration
func (l Linear) Done(iteration int) bool {
	return iteration >= l.Steps
}
