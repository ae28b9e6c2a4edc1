// Package catch implements Catch, a small pixel game in which a paddle
// at the bottom of the screen must catch balls falling from the top.
//
// Catch follows the Arcade Learning Environment contract: the score
// increases by one for every caught ball and a life is lost for every
// missed ball. The game is over once all lives are lost. Catch is
// deterministic given its seed, which makes it useful for exercising
// the training loop without an emulator.
package catch

import (
	"fmt"
	"image"

	"github.com/fogleman/gg"
	"github.com/samuelfneumann/goatari/environment"
	"golang.org/x/exp/rand"
)

const (
	// Cells is the number of rows and columns of the playing field
	Cells = 12

	// CellPixels is the width and height of a single cell on the screen
	CellPixels = 7

	// ScreenSize is the width and height of the screen
	ScreenSize = Cells * CellPixels

	// Lives is the number of lives at the start of each game
	Lives = 3

	// FallEvery is the number of frames it takes a ball to fall by one
	// cell
	FallEvery = 2

	paddleWidth = 3
)

// Catch implements the game of Catch
type Catch struct {
	seed uint64
	rng  *rand.Rand

	ballX, ballY int
	paddleX      int // Column of the paddle centre
	lives        int
	frame        int
	score        float64
}

// New returns a new game of Catch whose ball positions are drawn from a
// source seeded by seed
func New(seed uint64) *Catch {
	c := &Catch{
		seed: seed,
		rng:  rand.New(rand.NewSource(seed)),
	}
	c.Reset()
	return c
}

// Act moves the paddle, advances the game by one frame, and returns the
// change in score
func (c *Catch) Act(a environment.Action) float64 {
	if c.IsTerminal() {
		return 0
	}

	switch a {
	case environment.NoOp:
	case environment.Left:
		c.paddleX = max(c.paddleX-1, paddleWidth/2)
	case environment.Right:
		c.paddleX = min(c.paddleX+1, Cells-1-paddleWidth/2)
	default:
		panic(fmt.Sprintf("act: illegal action %v", a))
	}

	c.frame++
	if c.frame%FallEvery != 0 {
		return 0
	}

	c.ballY++
	if c.ballY < Cells-1 {
		return 0
	}

	// The ball reached the paddle row
	var reward float64
	if c.ballX >= c.paddleX-paddleWidth/2 && c.ballX <= c.paddleX+paddleWidth/2 {
		reward = 1
	} else {
		c.lives--
	}
	c.score += reward
	c.dropBall()
	return reward
}

// dropBall places a new ball at a random column of the top row
func (c *Catch) dropBall() {
	c.ballX = c.rng.Intn(Cells)
	c.ballY = 0
}

// IsTerminal returns whether all lives have been lost
func (c *Catch) IsTerminal() bool {
	return c.lives <= 0
}

// Lives returns the number of remaining lives
func (c *Catch) Lives() int {
	return c.lives
}

// Score returns the score of the current game
func (c *Catch) Score() float64 {
	return c.score
}

// Reset starts a new game. Ball positions continue from the random
// source, so consecutive games differ.
func (c *Catch) Reset() {
	c.lives = Lives
	c.paddleX = Cells / 2
	c.frame = 0
	c.score = 0
	c.dropBall()
}

// Observe renders the current screen: a black background with a white
// ball and a grey paddle
func (c *Catch) Observe() image.Image {
	dc := gg.NewContext(ScreenSize, ScreenSize)
	dc.SetRGB(0, 0, 0)
	dc.Clear()

	dc.SetRGB(1, 1, 1)
	dc.DrawRectangle(float64(c.ballX*CellPixels), float64(c.ballY*CellPixels),
		CellPixels, CellPixels)
	dc.Fill()

	dc.SetRGB(0.5, 0.5, 0.5)
	left := (c.paddleX - paddleWidth/2) * CellPixels
	dc.DrawRectangle(float64(left), float64((Cells-1)*CellPixels),
		paddleWidth*CellPixels, CellPixels)
	dc.Fill()

	return dc.Image()
}

// LegalActions returns the actions that affect the game
func (c *Catch) LegalActions() []environment.Action {
	return []environment.Action{
		environment.NoOp,
		environment.Left,
		environment.Right,
	}
}

func (c *Catch) String() string {
	return fmt.Sprintf("Catch(seed=%v, lives=%v, score=%v)", c.seed, c.lives,
		c.score)
}
