package expreplay

import (
	"bytes"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/samuelfneumann/goatari/environment"
	"github.com/samuelfneumann/goatari/frame"
	"github.com/samuelfneumann/goatari/timestep"
)

// filled returns a frame whose every pixel has intensity v
func filled(v uint8) *frame.Frame {
	b := make([]byte, frame.Pixels)
	for i := range b {
		b[i] = v
	}
	f, err := frame.FromBytes(b)
	if err != nil {
		panic(err)
	}
	return f
}

// episode returns an episode of length n whose frames have intensities
// start, start+1, ..., and whose actions equal the intensity of the
// frame they were taken in
func episode(start uint8, n int) timestep.Episode {
	frames := make([]*frame.Frame, n+1)
	for i := range frames {
		frames[i] = filled(start + uint8(i))
	}

	e := make(timestep.Episode, n)
	for i := 0; i < n; i++ {
		e[i] = timestep.NewTransition(frames[i],
			environment.Action(start+uint8(i)), 0, frames[i+1], i == n-1)
	}
	return e
}

// actions returns the actions of the cache from oldest to newest
func actions(c *fifoCache) []environment.Action {
	a := make([]environment.Action, c.Capacity())
	for i := range a {
		a[i] = c.at(i).Action
	}
	return a
}

func newCache(t *testing.T, batch, minCap, maxCap, window int) *fifoCache {
	t.Helper()
	r, err := New(NewUniformSelector(batch, 1), minCap, maxCap, window)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return r.(*fifoCache)
}

func TestAddEpisodeOccupancy(t *testing.T) {
	c := newCache(t, 1, 1, 3, 1)

	want := []int{2, 3, 3}
	for i, w := range want {
		if err := c.AddEpisode(episode(uint8(10*i), 2)); err != nil {
			t.Fatal(err)
		}
		if c.Capacity() != w {
			t.Errorf("occupancy after episode %v: \n\twant(%v) \n\thave(%v)",
				i, w, c.Capacity())
		}
	}
}

func TestAddEpisodeEvictsOldest(t *testing.T) {
	c := newCache(t, 1, 1, 5, 1)

	c.AddEpisode(episode(0, 3))
	c.AddEpisode(episode(10, 2))
	c.AddEpisode(episode(20, 2))

	want := []environment.Action{2, 10, 11, 20, 21}
	if diff := cmp.Diff(want, actions(c)); diff != "" {
		t.Errorf("eviction order (-want +have):\n%v", diff)
	}
}

func TestAddEpisodeLongerThanCapacity(t *testing.T) {
	c := newCache(t, 1, 1, 3, 1)
	c.AddEpisode(episode(0, 7))

	want := []environment.Action{4, 5, 6}
	if diff := cmp.Diff(want, actions(c)); diff != "" {
		t.Errorf("contents (-want +have):\n%v", diff)
	}
}

func TestAddEpisodeRejectsInvalid(t *testing.T) {
	c := newCache(t, 1, 1, 10, 1)

	e := episode(0, 3)
	e[1] = timestep.NewTransition(e[1].Frame, e[1].Action, 0, nil, true)
	if err := c.AddEpisode(e); err == nil {
		t.Error("addepisode: expected error for early terminal")
	}

	unfinished := episode(0, 3)[:2]
	if err := c.AddEpisode(unfinished); err == nil {
		t.Error("addepisode: expected error for non-terminal episode")
	}

	if c.Capacity() != 0 {
		t.Errorf("occupancy: \n\twant(0) \n\thave(%v)", c.Capacity())
	}
}

func TestSampleErrors(t *testing.T) {
	c := newCache(t, 2, 4, 10, 1)

	if _, err := c.Sample(); !IsEmptyBuffer(err) {
		t.Errorf("sample: expected empty buffer error, have %v", err)
	}

	c.AddEpisode(episode(0, 2))
	if _, err := c.Sample(); !IsInsufficientSamples(err) {
		t.Errorf("sample: expected insufficient samples error, have %v", err)
	}

	c.AddEpisode(episode(0, 2))
	if _, err := c.Sample(); err != nil {
		t.Errorf("sample: unexpected error: %v", err)
	}
}

// firstPixels returns the first pixel of each frame in a flat state
// vector, scaled back to intensities
func firstPixels(state []float64, window int) []float64 {
	p := make([]float64, window)
	for i := range p {
		p[i] = math.Round(state[i*frame.Pixels] * frame.MaxIntensity)
	}
	return p
}

func TestSampleStacksFrames(t *testing.T) {
	const window = 3
	c, err := New(NewNewestSelector(4), 1, 10, window)
	if err != nil {
		t.Fatal(err)
	}

	c.AddEpisode(episode(0, 2))
	c.AddEpisode(episode(10, 4))

	b, err := c.Sample()
	if err != nil {
		t.Fatal(err)
	}
	if b.Len() != 4 {
		t.Fatalf("batch size: \n\twant(4) \n\thave(%v)", b.Len())
	}

	// Newest first: transitions taken in frames 13, 12, 11, 10
	wantStates := [][]float64{
		{11, 12, 13},
		{10, 11, 12},
		{10, 10, 11},
		{10, 10, 10}, // Padded, never reaching into the previous episode
	}
	wantNext := [][]float64{
		{0, 0, 0}, // Terminal
		{11, 12, 13},
		{10, 11, 12},
		{10, 10, 11},
	}
	stateSize := window * frame.Pixels
	for i := 0; i < b.Len(); i++ {
		state := firstPixels(b.State[i*stateSize:], window)
		if diff := cmp.Diff(wantStates[i], state); diff != "" {
			t.Errorf("state %v (-want +have):\n%v", i, diff)
		}
		next := firstPixels(b.NextState[i*stateSize:], window)
		if diff := cmp.Diff(wantNext[i], next); diff != "" {
			t.Errorf("next state %v (-want +have):\n%v", i, diff)
		}
	}

	wantDiscount := []float64{0, 1, 1, 1}
	if diff := cmp.Diff(wantDiscount, b.Discount); diff != "" {
		t.Errorf("discount (-want +have):\n%v", diff)
	}
	wantAction := []environment.Action{13, 12, 11, 10}
	if diff := cmp.Diff(wantAction, b.Action); diff != "" {
		t.Errorf("action (-want +have):\n%v", diff)
	}
}

func TestSaveLoad(t *testing.T) {
	c := newCache(t, 2, 1, 6, 2)
	c.AddEpisode(episode(0, 3))
	c.AddEpisode(episode(50, 4))

	var buf bytes.Buffer
	if err := Save(&buf, c); err != nil {
		t.Fatal(err)
	}

	restored := newCache(t, 2, 1, 6, 2)
	if err := Load(&buf, restored); err != nil {
		t.Fatal(err)
	}

	if restored.Capacity() != c.Capacity() {
		t.Fatalf("capacity: \n\twant(%v) \n\thave(%v)", c.Capacity(),
			restored.Capacity())
	}
	for i := 0; i < c.Capacity(); i++ {
		want, have := c.at(i), restored.at(i)
		if want.Action != have.Action || want.Reward != have.Reward ||
			want.episode != have.episode {
			t.Errorf("transition %v: \n\twant(%v) \n\thave(%v)", i,
				want.Transition, have.Transition)
		}
		if !want.Frame.Equal(have.Frame) {
			t.Errorf("transition %v: frame differs", i)
		}
		if want.Terminal() != have.Terminal() {
			t.Errorf("transition %v: terminal differs", i)
		}
	}

	// Shared frames must still be shared after loading
	if restored.at(2).Next != restored.at(3).Frame {
		t.Error("load: consecutive transitions no longer share frames")
	}
	if restored.nextEpisode != c.nextEpisode {
		t.Errorf("episodes: \n\twant(%v) \n\thave(%v)", c.nextEpisode,
			restored.nextEpisode)
	}
}

func TestLoadIntoSmallerBuffer(t *testing.T) {
	c := newCache(t, 1, 1, 6, 1)
	c.AddEpisode(episode(0, 5))

	var buf bytes.Buffer
	if err := Save(&buf, c); err != nil {
		t.Fatal(err)
	}

	small := newCache(t, 1, 1, 2, 1)
	if err := Load(&buf, small); err != nil {
		t.Fatal(err)
	}

	want := []environment.Action{3, 4}
	if diff := cmp.Diff(want, actions(small)); diff != "" {
		t.Errorf("contents (-want +have):\n%v", diff)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		valid  bool
	}{
		{"Valid", Config{32, 1000, 50, 4}, true},
		{"ZeroMin", Config{32, 1000, 0, 4}, false},
		{"MaxBelowMin", Config{1, 10, 50, 4}, false},
		{"BatchTooLarge", Config{32, 16, 1, 4}, false},
		{"ZeroWindow", Config{32, 1000, 50, 0}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if err := test.config.Validate(); (err == nil) != test.valid {
				t.Errorf("validate: \n\twant(valid=%v) \n\thave(%v)",
					test.valid, err)
			}
		})
	}
}

func BenchmarkSample(b *testing.B) {
	r, err := Config{32, 10000, 1, 4}.Create(1)
	if err != nil {
		b.Fatal(err)
	}
	for i := 0; i < 100; i++ {
		r.AddEpisode(episode(uint8(i), 100))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := r.Sample(); err != nil {
			b.Fatal(err)
		}
	}
}
