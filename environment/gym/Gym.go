// Package gym provides access to the Atari games of OpenAI's Gym, which
// are emulated by the Arcade Learning Environment.
//
// This is made possible through the Go bindings for OpenAI Gym,
// found at https://github.com/samuelfneumann/GoGym. GoGym drops the
// info dict returned by each step, so the emulator's life counter is
// read directly from the Python environment through
// env.unwrapped.ale.lives(). Games whose environments do not expose
// the emulator report 0 lives, and life loss never shapes their reward.
//
// Actions are Gym action indices into the game's minimal action set.
// Index 0 is always NOOP in the Arcade Learning Environment.
package gym

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"

	python "github.com/DataDog/go-python3"
	"github.com/golang/glog"
	"github.com/samuelfneumann/goatari/environment"
	"github.com/samuelfneumann/gogym"
	"gonum.org/v1/gonum/mat"
)

const (
	// ScreenWidth and ScreenHeight are the dimensions of the native
	// Atari 2600 screen
	ScreenWidth  = 160
	ScreenHeight = 210
	channels     = 3
)

// AtariEnv implements environment.Environment for a Gym Atari game
// using GoGym
type AtariEnv struct {
	gogym.Environment

	name       string
	numActions int
	screen     *mat.VecDense
	gameOver   bool

	lives    int
	hasLives bool // Whether the emulator's life counter can be read
}

// New returns a new AtariEnv for the Gym game name. Names without a
// version suffix are completed to the NoFrameskip-v4 variant, since
// frame skipping is performed by the training loop. For example,
// "Breakout" creates "BreakoutNoFrameskip-v4".
func New(name string, seed uint64) (*AtariEnv, error) {
	name = GymID(name)
	goGymEnv, err := gogym.Make(name)
	if err != nil {
		return nil, fmt.Errorf("new: could not create environment %v: %v",
			name, err)
	}
	goGymEnv.Seed(int(seed))

	space, ok := goGymEnv.ActionSpace().(*gogym.DiscreteSpace)
	if !ok {
		goGymEnv.Close()
		return nil, fmt.Errorf("new: %v does not have discrete actions", name)
	}
	numActions := int(space.High()[0].AtVec(0)) + 1

	a := &AtariEnv{
		Environment: goGymEnv,
		name:        name,
		numActions:  numActions,
	}
	if _, err := aleLives(goGymEnv.Env()); err != nil {
		glog.Warningf("gym: could not read the lives of %v, life loss "+
			"will not be penalized: %v", name, err)
	} else {
		a.hasLives = true
	}

	if err := a.reset(); err != nil {
		goGymEnv.Close()
		return nil, err
	}
	return a, nil
}

// aleLives returns the lives remaining in the Arcade Learning
// Environment underlying a Python Gym environment
func aleLives(env *python.PyObject) (int, error) {
	if env == nil {
		return 0, errors.New("alelives: nil environment")
	}

	unwrapped := env.GetAttrString("unwrapped")
	if unwrapped == nil {
		python.PyErr_Clear()
		return 0, errors.New("alelives: environment cannot be unwrapped")
	}
	defer unwrapped.DecRef()

	ale := unwrapped.GetAttrString("ale")
	if ale == nil {
		python.PyErr_Clear()
		return 0, errors.New("alelives: environment has no emulator")
	}
	defer ale.DecRef()

	livesFunc := ale.GetAttrString("lives")
	if livesFunc == nil {
		python.PyErr_Clear()
		return 0, errors.New("alelives: emulator has no life counter")
	}
	defer livesFunc.DecRef()

	lives := livesFunc.CallObject(nil)
	if lives == nil {
		python.PyErr_Clear()
		return 0, errors.New("alelives: could not read life counter")
	}
	defer lives.DecRef()

	return python.PyLong_AsLong(lives), nil
}

// refreshLives reads the emulator's life counter. If it cannot be
// read, lives are no longer tracked.
func (a *AtariEnv) refreshLives() {
	if !a.hasLives {
		return
	}
	lives, err := aleLives(a.Env())
	if err != nil {
		glog.Errorf("gym: %v: %v", a.name, err)
		a.hasLives = false
		a.lives = 0
		return
	}
	a.lives = lives
}

// GymID returns the Gym environment ID for a game name
func GymID(name string) string {
	if strings.Contains(name, "-v") {
		return name
	}
	return name + "NoFrameskip-v4"
}

// reset resets the Gym environment and records the first screen
func (a *AtariEnv) reset() error {
	obs, err := a.Environment.Reset()
	if err != nil {
		return fmt.Errorf("reset: could not reset %v: %v", a.name, err)
	}
	if obs.Len() != ScreenWidth*ScreenHeight*channels {
		return fmt.Errorf("reset: invalid screen size for %v "+
			"\n\twant(%v) \n\thave(%v)", a.name,
			ScreenWidth*ScreenHeight*channels, obs.Len())
	}
	a.screen = obs
	a.gameOver = false
	a.refreshLives()
	return nil
}

// Act takes a single environmental step and returns the change in score
func (a *AtariEnv) Act(action environment.Action) float64 {
	if a.gameOver {
		return 0
	}
	if int(action) < 0 || int(action) >= a.numActions {
		panic(fmt.Sprintf("act: illegal action %v for %v", action, a.name))
	}

	obs, reward, done, err := a.Environment.Step(
		mat.NewVecDense(1, []float64{float64(action)}),
	)
	if err != nil {
		// A failed emulator step leaves the game unusable, so end it
		glog.Errorf("act: could not step %v: %v", a.name, err)
		a.gameOver = true
		return 0
	}

	a.screen = obs
	a.gameOver = done
	a.refreshLives()
	return reward
}

// IsTerminal returns whether the game is over
func (a *AtariEnv) IsTerminal() bool {
	return a.gameOver
}

// Lives returns the lives remaining in the game, or 0 if the emulator's
// life counter cannot be read
func (a *AtariEnv) Lives() int {
	return a.lives
}

// Reset starts a new game
func (a *AtariEnv) Reset() {
	if err := a.reset(); err != nil {
		panic(err)
	}
}

// Observe returns the current screen as an RGBA image
func (a *AtariEnv) Observe() image.Image {
	return screenImage(a.screen.RawVector().Data)
}

// LegalActions returns the minimal action set of the game as Gym
// action indices
func (a *AtariEnv) LegalActions() []environment.Action {
	actions := make([]environment.Action, a.numActions)
	for i := range actions {
		actions[i] = environment.Action(i)
	}
	return actions
}

// Close performs resource cleanup after the environment is no longer
// needed
func (a *AtariEnv) Close() error {
	a.Environment.Close()
	return nil
}

// screenImage converts a flattened height x width x RGB observation into
// an image
func screenImage(data []float64) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, ScreenWidth, ScreenHeight))
	for y := 0; y < ScreenHeight; y++ {
		for x := 0; x < ScreenWidth; x++ {
			i := (y*ScreenWidth + x) * channels
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(data[i]),
				G: uint8(data[i+1]),
				B: uint8(data[i+2]),
				A: 255,
			})
		}
	}
	return img
}
