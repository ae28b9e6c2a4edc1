package expreplay

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/samuelfneumann/goatari/environment"
	"github.com/samuelfneumann/goatari/frame"
	"github.com/samuelfneumann/goatari/timestep"
)

// entry is a single transition in the buffer, tagged with the episode
// it was admitted in
type entry struct {
	timestep.Transition
	episode uint64
}

// fifoCache implements a concrete ExperienceReplayer as a ring buffer
// where transitions are removed in a FiFo manner, one at a time.
type fifoCache struct {
	entries         []entry
	currentInUsePos int // Position of the next insert
	isFull          bool
	nextEpisode     uint64

	// Outlines how data is sampled
	sampler Selector

	minCapacity int
	maxCapacity int
	window      int
}

// newFifoCache returns a new fifoCache. The sampler parameter is a
// Selector which determines how data is sampled from the buffer.
// The minCapacity parameter determines the minimum number of samples
// that should be in the buffer before sampling is allowed.
// The maxCapacity parameter determines the maximum number of samples
// allowed in the buffer at any given time.
func newFifoCache(sampler Selector, minCapacity, maxCapacity,
	window int) *fifoCache {
	return &fifoCache{
		entries:     make([]entry, maxCapacity),
		sampler:     sampler,
		minCapacity: minCapacity,
		maxCapacity: maxCapacity,
		window:      window,
	}
}

// String returns the string representation of the fifoCache
func (c *fifoCache) String() string {
	return fmt.Sprintf("fifoCache | Capacity: %v/%v  |  Min: %v  |  "+
		"Window: %v  |  Episodes: %v", c.Capacity(), c.maxCapacity,
		c.minCapacity, c.window, c.nextEpisode)
}

// BatchSize returns the number of samples sampled using Sample() -
// a.k.a the batch size
func (c *fifoCache) BatchSize() int {
	return c.sampler.BatchSize()
}

// Window returns the number of frames in each sampled state
func (c *fifoCache) Window() int {
	return c.window
}

// Capacity returns the current number of elements in the cache that
// are available for sampling
func (c *fifoCache) Capacity() int {
	if c.isFull {
		return c.maxCapacity
	}
	return c.currentInUsePos
}

// MaxCapacity returns the maximum number of elements that are allowed
// in the cache
func (c *fifoCache) MaxCapacity() int {
	return c.maxCapacity
}

// MinCapacity returns the minimum number of elements required in the
// cache before sampling is allowed
func (c *fifoCache) MinCapacity() int {
	return c.minCapacity
}

// oldest returns the position of the oldest transition in the ring
func (c *fifoCache) oldest() int {
	if c.isFull {
		return c.currentInUsePos
	}
	return 0
}

// at returns the i-th oldest entry of the buffer
func (c *fifoCache) at(i int) *entry {
	return &c.entries[(c.oldest()+i)%c.maxCapacity]
}

// add inserts a single entry, overwriting the oldest entry if the
// buffer is full
func (c *fifoCache) add(e entry) {
	c.entries[c.currentInUsePos] = e
	c.currentInUsePos++
	if c.currentInUsePos >= c.maxCapacity {
		c.currentInUsePos = 0
		c.isFull = true
	}
}

// AddEpisode adds each transition of an episode to the cache. The
// episode is validated before anything is added, so an invalid episode
// leaves the cache unchanged.
func (c *fifoCache) AddEpisode(e timestep.Episode) error {
	if err := e.Validate(); err != nil {
		return &ExpReplayError{Op: "addepisode", Err: err}
	}
	for i, t := range e {
		if t.Frame == nil {
			return &ExpReplayError{
				Op:  "addepisode",
				Err: fmt.Errorf("transition %v has no frame", i),
			}
		}
	}

	id := c.nextEpisode
	c.nextEpisode++
	for _, t := range e {
		c.add(entry{Transition: t, episode: id})
	}
	return nil
}

// history returns the window frames ending with the frame of the i-th
// oldest transition. Frames before the earliest available frame of the
// same episode are filled with that earliest frame.
func (c *fifoCache) history(i int) []*frame.Frame {
	frames := make([]*frame.Frame, c.window)
	current := c.at(i)
	frames[c.window-1] = current.Frame

	j := i
	for k := c.window - 2; k >= 0; k-- {
		if j > 0 && c.at(j-1).episode == current.episode {
			j--
		}
		frames[k] = c.at(j).Frame
	}
	return frames
}

// Sample samples and returns a batch of transitions from the replay
// buffer
func (c *fifoCache) Sample() (Batch, error) {
	if c.Capacity() == 0 {
		err := &ExpReplayError{
			Op:  "sample",
			Err: errEmptyCache,
		}
		return Batch{}, err
	}
	if c.Capacity() < c.MinCapacity() {
		err := &ExpReplayError{
			Op:  "sample",
			Err: errInsufficientSamples,
		}
		return Batch{}, err
	}

	indices := c.sampler.choose(c)
	stateSize := c.window * frame.Pixels

	b := Batch{
		State:     make([]float64, 0, len(indices)*stateSize),
		Action:    make([]environment.Action, len(indices)),
		Reward:    make([]float64, len(indices)),
		NextState: make([]float64, 0, len(indices)*stateSize),
		Discount:  make([]float64, len(indices)),
	}
	for i, index := range indices {
		e := c.at(index)
		frames := c.history(index)

		for _, f := range frames {
			b.State = f.AppendTo(b.State)
		}

		b.Action[i] = e.Action
		b.Reward[i] = e.Reward

		if e.Terminal() {
			// The next state of a terminal transition is never used
			b.NextState = append(b.NextState, make([]float64, stateSize)...)
			continue
		}
		b.Discount[i] = 1
		for _, f := range frames[1:] {
			b.NextState = f.AppendTo(b.NextState)
		}
		b.NextState = e.Next.AppendTo(b.NextState)
	}

	return b, nil
}

// encodedTransition is the serialized form of an entry. Frames are
// referenced by their index into the encoded frame table, with -1
// denoting no frame.
type encodedTransition struct {
	Frame   int
	Next    int
	Action  environment.Action
	Reward  float64
	Episode uint64
}

// encodedCache is the serialized form of a fifoCache
type encodedCache struct {
	Frames      [][]byte
	Transitions []encodedTransition
	NextEpisode uint64
}

// GobEncode implements the gob.GobEncoder interface. Transitions are
// encoded oldest first, and each distinct frame is encoded only once.
func (c *fifoCache) GobEncode() ([]byte, error) {
	frameIndex := make(map[*frame.Frame]int)
	encoded := encodedCache{
		Transitions: make([]encodedTransition, c.Capacity()),
		NextEpisode: c.nextEpisode,
	}

	indexOf := func(f *frame.Frame) int {
		if f == nil {
			return -1
		}
		if i, ok := frameIndex[f]; ok {
			return i
		}
		frameIndex[f] = len(encoded.Frames)
		encoded.Frames = append(encoded.Frames, f.Bytes())
		return frameIndex[f]
	}

	for i := range encoded.Transitions {
		e := c.at(i)
		encoded.Transitions[i] = encodedTransition{
			Frame:   indexOf(e.Frame),
			Next:    indexOf(e.Next),
			Action:  e.Action,
			Reward:  e.Reward,
			Episode: e.episode,
		}
	}

	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(encoded); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode cache: %v", err)
	}
	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface. The contents of
// the cache are replaced by the decoded transitions. If more
// transitions were encoded than the cache can hold, only the newest
// are kept.
func (c *fifoCache) GobDecode(in []byte) error {
	var encoded encodedCache
	dec := gob.NewDecoder(bytes.NewReader(in))
	if err := dec.Decode(&encoded); err != nil {
		return fmt.Errorf("gobdecode: could not decode cache: %v", err)
	}

	frames := make([]*frame.Frame, len(encoded.Frames))
	for i, b := range encoded.Frames {
		f, err := frame.FromBytes(b)
		if err != nil {
			return fmt.Errorf("gobdecode: frame %v: %v", i, err)
		}
		frames[i] = f
	}
	lookup := func(i int) (*frame.Frame, error) {
		if i == -1 {
			return nil, nil
		}
		if i < 0 || i >= len(frames) {
			return nil, fmt.Errorf("gobdecode: frame index %v out of range", i)
		}
		return frames[i], nil
	}

	entries := make([]entry, len(encoded.Transitions))
	for i, t := range encoded.Transitions {
		f, err := lookup(t.Frame)
		if err != nil {
			return err
		}
		if f == nil {
			return fmt.Errorf("gobdecode: transition %v has no frame", i)
		}
		next, err := lookup(t.Next)
		if err != nil {
			return err
		}
		entries[i] = entry{
			Transition: timestep.Transition{
				Frame:  f,
				Action: t.Action,
				Reward: t.Reward,
				Next:   next,
			},
			episode: t.Episode,
		}
	}

	if len(entries) > c.maxCapacity {
		entries = entries[len(entries)-c.maxCapacity:]
	}

	c.entries = make([]entry, c.maxCapacity)
	c.currentInUsePos = 0
	c.isFull = false
	for _, e := range entries {
		c.add(e)
	}
	c.nextEpisode = encoded.NextEpisode
	return nil
}
