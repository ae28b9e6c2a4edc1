package experiment

import (
	"fmt"
	"image"
	"image/color"

	"github.com/samuelfneumann/goatari/environment"
	"github.com/samuelfneumann/goatari/frame"
	"github.com/samuelfneumann/goatari/timestep"
)

// scriptedEnv is an environment which replays scripted episodes. Each
// call to Act plays one scripted emulator frame. The screen after i
// frames of an episode is uniformly grey with intensity 10i+5.
type scriptedEnv struct {
	deltas [][]float64 // Score change of each frame of each episode
	lives  [][]int     // Lives after each frame, nil for a single life

	episode int
	frame   int
	resets  int
	acted   []environment.Action
}

func (e *scriptedEnv) Act(a environment.Action) float64 {
	if e.IsTerminal() {
		panic("act: game over")
	}
	e.acted = append(e.acted, a)
	d := e.script()[e.frame]
	e.frame++
	return d
}

func (e *scriptedEnv) script() []float64 {
	return e.deltas[e.episode%len(e.deltas)]
}

func (e *scriptedEnv) IsTerminal() bool {
	return e.frame >= len(e.script())
}

func (e *scriptedEnv) Lives() int {
	if e.lives == nil {
		return 1
	}
	lives := e.lives[e.episode%len(e.lives)]
	if e.frame == 0 {
		return lives[0]
	}
	return lives[e.frame-1]
}

func (e *scriptedEnv) Reset() {
	e.resets++
	e.episode++
	e.frame = 0
}

func (e *scriptedEnv) Observe() image.Image {
	img := image.NewGray(image.Rect(0, 0, 160, 210))
	v := uint8(10*e.frame + 5)
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func (e *scriptedEnv) LegalActions() []environment.Action {
	return []environment.Action{environment.NoOp, environment.Fire}
}

// intensity returns the intensity of a frame observed by a scriptedEnv
func intensity(f *frame.Frame) int {
	return int(f.At(0, 0))
}

// fakeAgent always selects Fire and records how it is used. Each
// learning update advances its iteration.
type fakeAgent struct {
	stacks        [][]int
	continuations []bool
	epsilons      []float64

	occupancy int
	iteration int
	episodes  []timestep.Episode
	snapshots []string
}

func (a *fakeAgent) SelectAction(s *frame.Stack, epsilon float64,
	continuation bool) environment.Action {
	stack := make([]int, s.Len())
	for i := range stack {
		stack[i] = intensity(s.At(i))
	}
	a.stacks = append(a.stacks, stack)
	a.continuations = append(a.continuations, continuation)
	a.epsilons = append(a.epsilons, epsilon)
	return environment.Fire
}

func (a *fakeAgent) ReplayOccupancy() int {
	return a.occupancy
}

func (a *fakeAgent) LearningUpdate() error {
	a.iteration++
	return nil
}

func (a *fakeAgent) AdmitEpisode(e timestep.Episode) error {
	if err := e.Validate(); err != nil {
		return err
	}
	a.episodes = append(a.episodes, e)
	a.occupancy += e.Len()
	return nil
}

func (a *fakeAgent) CurrentIteration() int {
	return a.iteration
}

func (a *fakeAgent) Snapshot(name string, includeMemory,
	includeSolverState bool) error {
	a.snapshots = append(a.snapshots, fmt.Sprintf("%v %v %v", name,
		includeMemory, includeSolverState))
	return nil
}

func (a *fakeAgent) RestoreFromCheckpoint(path string) error {
	return nil
}

func (a *fakeAgent) RestoreReplayMemory(path string) error {
	return nil
}

// uniformScreen returns a screen of a single colour
func uniformScreen(c color.Gray) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 160, 210))
	for i := range img.Pix {
		img.Pix[i] = c.Y
	}
	return img
}
