package environment

// StepLimit wraps an Environment to end games after a fixed number of
// emulator frames. The frame count restarts when the game is reset.
type StepLimit struct {
	Environment
	episodeSteps int
	steps        int
}

// NewStepLimit returns a new StepLimit which ends the games of env
// after episodeSteps frames
func NewStepLimit(env Environment, episodeSteps int) *StepLimit {
	if episodeSteps < 1 {
		panic("newsteplimit: step limit must be positive")
	}
	return &StepLimit{
		Environment:  env,
		episodeSteps: episodeSteps,
	}
}

// Act applies an action for a single emulator frame and returns the
// change in game score. Once the step limit is reached, actions have
// no effect.
func (s *StepLimit) Act(a Action) float64 {
	if s.IsTerminal() {
		return 0
	}
	s.steps++
	return s.Environment.Act(a)
}

// IsTerminal returns whether the game is over or the step limit has
// been reached
func (s *StepLimit) IsTerminal() bool {
	return s.steps >= s.episodeSteps || s.Environment.IsTerminal()
}

// Reset starts a fresh game
func (s *StepLimit) Reset() {
	s.steps = 0
	s.Environment.Reset()
}

// Steps returns the number of frames played in the current game
func (s *StepLimit) Steps() int {
	return s.steps
}

// Close releases the resources of the wrapped environment, if it holds
// any
func (s *StepLimit) Close() error {
	if c, ok := s.Environment.(Closer); ok {
		return c.Close()
	}
	return nil
}
