package frame

import "fmt"

// Stack is a sliding window over the most recent frames of an episode.
// A Stack holds at most Window() frames; pushing a frame onto a full
// Stack evicts the oldest frame.
//
// Stacks are mutated on every step of an episode. Consumers that need
// the contents of a Stack beyond the current step should copy them with
// Frames().
type Stack struct {
	frames []*Frame
	window int
}

// NewStack returns a new, empty Stack holding at most window frames
func NewStack(window int) *Stack {
	if window < 1 {
		panic(fmt.Sprintf("newstack: window must be positive \n\twant(>0)"+
			"\n\thave(%v)", window))
	}
	return &Stack{
		frames: make([]*Frame, 0, window),
		window: window,
	}
}

// Push adds f as the most recent frame of the Stack, evicting the
// oldest frame if the Stack already holds Window() frames.
func (s *Stack) Push(f *Frame) {
	if len(s.frames) < s.window {
		s.frames = append(s.frames, f)
		return
	}
	copy(s.frames, s.frames[1:])
	s.frames[s.window-1] = f
}

// Len returns the number of frames currently in the Stack
func (s *Stack) Len() int {
	return len(s.frames)
}

// Window returns the maximum number of frames in the Stack
func (s *Stack) Window() int {
	return s.window
}

// Full returns whether the Stack holds Window() frames
func (s *Stack) Full() bool {
	return len(s.frames) == s.window
}

// At returns the i-th frame of the Stack, where index 0 is the oldest
func (s *Stack) At(i int) *Frame {
	return s.frames[i]
}

// Frames returns the frames of the Stack from oldest to newest. The
// returned slice is a copy, although the frames themselves are shared.
func (s *Stack) Frames() []*Frame {
	frames := make([]*Frame, len(s.frames))
	copy(frames, s.frames)
	return frames
}

// Vector returns the normalized intensities of all frames in the Stack,
// oldest frame first, as a single flat slice.
func (s *Stack) Vector() []float64 {
	v := make([]float64, 0, len(s.frames)*Pixels)
	for _, f := range s.frames {
		v = f.AppendTo(v)
	}
	return v
}
