// Package environment outlines the contract between the training loop
// and a game environment, in the manner of the Arcade Learning
// Environment: the loop acts, observes raw screens, and polls for game
// over and remaining lives.
package environment

import (
	"fmt"
	"image"
)

// Action is a joystick action of the Atari 2600
type Action int

// The full Atari 2600 action set. Environments usually expose only a
// minimal subset of these through LegalActions().
const (
	NoOp Action = iota
	Fire
	Up
	Right
	Left
	Down
	UpRight
	UpLeft
	DownRight
	DownLeft
	UpFire
	RightFire
	LeftFire
	DownFire
	UpRightFire
	UpLeftFire
	DownRightFire
	DownLeftFire
)

var actionNames = [...]string{
	"NOOP", "FIRE", "UP", "RIGHT", "LEFT", "DOWN", "UPRIGHT", "UPLEFT",
	"DOWNRIGHT", "DOWNLEFT", "UPFIRE", "RIGHTFIRE", "LEFTFIRE", "DOWNFIRE",
	"UPRIGHTFIRE", "UPLEFTFIRE", "DOWNRIGHTFIRE", "DOWNLEFTFIRE",
}

func (a Action) String() string {
	if a < 0 || int(a) >= len(actionNames) {
		return fmt.Sprintf("Action(%d)", int(a))
	}
	return actionNames[a]
}

// Environment implements a game that an agent plays. All methods
// complete synchronously.
type Environment interface {
	// Act applies an action for a single emulator frame and returns the
	// change in game score caused by it
	Act(a Action) float64

	// IsTerminal returns whether the game is over
	IsTerminal() bool

	// Lives returns the number of lives remaining in the game
	Lives() int

	// Reset starts a fresh game
	Reset()

	// Observe returns the current raw game screen
	Observe() image.Image

	// LegalActions returns the actions that have an effect in the game
	LegalActions() []Action
}

// Closer is an Environment that holds resources which must be released
// once the environment is no longer needed
type Closer interface {
	Environment
	Close() error
}
