package dqn

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/samuelfneumann/goatari/environment"
	"github.com/samuelfneumann/goatari/experiment/checkpointer"
	"github.com/samuelfneumann/goatari/expreplay"
	"github.com/samuelfneumann/goatari/frame"
	"github.com/samuelfneumann/goatari/initwfn"
	"github.com/samuelfneumann/goatari/network"
	"github.com/samuelfneumann/goatari/solver"
	"github.com/samuelfneumann/goatari/timestep"
	"golang.org/x/exp/rand"
)

var actions = []environment.Action{
	environment.NoOp,
	environment.Left,
	environment.Right,
}

func testConfig(t *testing.T) Config {
	t.Helper()

	s, err := solver.NewVanilla(0.01, 2, -1)
	if err != nil {
		t.Fatal(err)
	}
	return Config{
		Hidden:      []int{4},
		Biases:      []bool{true},
		Activations: []*network.Activation{network.TanH()},
		Solver:      s,
		InitWFn:     initwfn.NewGlorotU(1.0),
		Gamma:       0.9,
		CloneFreq:   2,
		ExpReplay: expreplay.Config{
			SampleSize:        2,
			MaxReplayCapacity: 20,
			MinReplayCapacity: 2,
			Window:            1,
		},
	}
}

func newAgent(t *testing.T, seed uint64) *DQN {
	t.Helper()

	d, err := New(actions, testConfig(t), seed)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

// randomFrame returns a frame of uniformly random intensities
func randomFrame(rng *rand.Rand) *frame.Frame {
	b := make([]byte, frame.Pixels)
	rng.Read(b)
	f, err := frame.FromBytes(b)
	if err != nil {
		panic(err)
	}
	return f
}

// randomEpisode returns an episode of n transitions between random
// frames, with random legal actions and rewards
func randomEpisode(rng *rand.Rand, n int) timestep.Episode {
	frames := make([]*frame.Frame, n+1)
	for i := range frames {
		frames[i] = randomFrame(rng)
	}

	e := make(timestep.Episode, n)
	for i := range e {
		a := actions[rng.Intn(len(actions))]
		r := float64(rng.Intn(3) - 1)
		e[i] = timestep.NewTransition(frames[i], a, r, frames[i+1], i == n-1)
	}
	return e
}

func stackOf(f *frame.Frame) *frame.Stack {
	s := frame.NewStack(1)
	s.Push(f)
	return s
}

func TestSelectActionRandom(t *testing.T) {
	d := newAgent(t, 1)
	s := stackOf(randomFrame(rand.New(rand.NewSource(2))))

	seen := make(map[environment.Action]int)
	for i := 0; i < 300; i++ {
		a := d.SelectAction(s, 1.0, i > 0)
		if _, ok := d.actionIndex[a]; !ok {
			t.Fatalf("selectaction: illegal action %v", a)
		}
		seen[a]++
	}
	if len(seen) != len(actions) {
		t.Errorf("selectaction: actions selected \n\twant(%v) \n\thave(%v)",
			len(actions), len(seen))
	}
}

func TestSelectActionGreedy(t *testing.T) {
	d := newAgent(t, 1)
	rng := rand.New(rand.NewSource(3))

	for i := 0; i < 10; i++ {
		s := stackOf(randomFrame(rng))
		values := d.ActionValues(s)

		best := 0
		for j := range values {
			if values[j] > values[best] {
				best = j
			}
		}
		if a := d.SelectAction(s, 0.0, true); a != actions[best] {
			t.Errorf("selectaction: \n\twant(%v) \n\thave(%v)", actions[best],
				a)
		}
	}
}

func TestSelectActionPanicsOnShortStack(t *testing.T) {
	c := testConfig(t)
	c.ExpReplay.Window = 2
	d, err := New(actions, c, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	defer func() {
		if recover() == nil {
			t.Error("selectaction: expected panic for incomplete stack")
		}
	}()
	s := frame.NewStack(2)
	s.Push(randomFrame(rand.New(rand.NewSource(1))))
	d.SelectAction(s, 0, false)
}

func TestLearningUpdate(t *testing.T) {
	d := newAgent(t, 1)
	rng := rand.New(rand.NewSource(4))

	// Too few transitions to sample from
	if err := d.LearningUpdate(); err != nil {
		t.Fatal(err)
	}
	if d.CurrentIteration() != 0 {
		t.Errorf("iteration: \n\twant(0) \n\thave(%v)", d.CurrentIteration())
	}
	if d.Loss() != 0 {
		t.Errorf("loss before learning: \n\twant(0) \n\thave(%v)", d.Loss())
	}

	if err := d.AdmitEpisode(randomEpisode(rng, 5)); err != nil {
		t.Fatal(err)
	}
	if d.ReplayOccupancy() != 5 {
		t.Errorf("occupancy: \n\twant(5) \n\thave(%v)", d.ReplayOccupancy())
	}

	s := stackOf(randomFrame(rng))
	before := d.ActionValues(s)
	for i := 0; i < 3; i++ {
		if err := d.LearningUpdate(); err != nil {
			t.Fatal(err)
		}
	}
	if d.CurrentIteration() != 3 {
		t.Errorf("iteration: \n\twant(3) \n\thave(%v)", d.CurrentIteration())
	}
	if loss := d.Loss(); !(loss > 0) || math.IsInf(loss, 0) {
		t.Errorf("loss: \n\twant(finite > 0) \n\thave(%v)", loss)
	}
	if cmp.Equal(before, d.ActionValues(s)) {
		t.Error("learningupdate: action values did not change")
	}
}

func TestAdmitEpisodeRejectsIncomplete(t *testing.T) {
	d := newAgent(t, 1)
	e := randomEpisode(rand.New(rand.NewSource(5)), 3)

	if err := d.AdmitEpisode(e[:2]); err == nil {
		t.Error("admitepisode: expected error for episode without terminal")
	}
	if d.ReplayOccupancy() != 0 {
		t.Errorf("occupancy: \n\twant(0) \n\thave(%v)", d.ReplayOccupancy())
	}
}

// trained returns an agent that has performed n learning updates
func trained(t *testing.T, n int) *DQN {
	t.Helper()

	d := newAgent(t, 7)
	rng := rand.New(rand.NewSource(8))
	for i := 0; i < 3; i++ {
		if err := d.AdmitEpisode(randomEpisode(rng, 4)); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < n; i++ {
		if err := d.LearningUpdate(); err != nil {
			t.Fatal(err)
		}
	}
	return d
}

func TestSnapshotRestore(t *testing.T) {
	d := trained(t, 5)
	name := filepath.Join(t.TempDir(), "catch")
	if err := d.Snapshot(name, true, true); err != nil {
		t.Fatal(err)
	}

	base := checkpointer.SnapshotBase(name, 5)
	restored := newAgent(t, 99)
	if err := restored.RestoreFromCheckpoint(
		base + checkpointer.SolverStateExt); err != nil {
		t.Fatal(err)
	}
	if err := restored.RestoreReplayMemory(
		base + checkpointer.ReplayMemoryExt); err != nil {
		t.Fatal(err)
	}

	if restored.CurrentIteration() != d.CurrentIteration() {
		t.Errorf("iteration: \n\twant(%v) \n\thave(%v)", d.CurrentIteration(),
			restored.CurrentIteration())
	}
	if restored.ReplayOccupancy() != d.ReplayOccupancy() {
		t.Errorf("occupancy: \n\twant(%v) \n\thave(%v)", d.ReplayOccupancy(),
			restored.ReplayOccupancy())
	}

	rng := rand.New(rand.NewSource(10))
	for i := 0; i < 5; i++ {
		s := stackOf(randomFrame(rng))
		if diff := cmp.Diff(d.ActionValues(s), restored.ActionValues(s),
			cmpopts.EquateApprox(0, 1e-12)); diff != "" {
			t.Errorf("action values (-want +have):\n%v", diff)
		}
		if want, have := d.SelectAction(s, 0, true),
			restored.SelectAction(s, 0, true); want != have {
			t.Errorf("greedy action: \n\twant(%v) \n\thave(%v)", want, have)
		}
	}
}

func TestSnapshotWithoutMemory(t *testing.T) {
	d := trained(t, 2)
	name := filepath.Join(t.TempDir(), "catch_HiScore3")
	if err := d.Snapshot(name, false, false); err != nil {
		t.Fatal(err)
	}

	base := checkpointer.SnapshotBase(name, 2)
	matches, err := filepath.Glob(base + "*")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{base + checkpointer.ModelExt}
	if diff := cmp.Diff(want, matches); diff != "" {
		t.Errorf("snapshot files (-want +have):\n%v", diff)
	}
}

func TestRestoreModelOnly(t *testing.T) {
	d := trained(t, 4)
	name := filepath.Join(t.TempDir(), "weights")
	if err := d.Snapshot(name, false, false); err != nil {
		t.Fatal(err)
	}

	restored := newAgent(t, 11)
	path := checkpointer.SnapshotBase(name, 4) + checkpointer.ModelExt
	if err := restored.RestoreFromCheckpoint(path); err != nil {
		t.Fatal(err)
	}

	if restored.CurrentIteration() != 0 {
		t.Errorf("iteration: \n\twant(0) \n\thave(%v)",
			restored.CurrentIteration())
	}
	s := stackOf(randomFrame(rand.New(rand.NewSource(12))))
	if diff := cmp.Diff(d.ActionValues(s), restored.ActionValues(s),
		cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("action values (-want +have):\n%v", diff)
	}
}

func TestRestoreUnknownFile(t *testing.T) {
	d := newAgent(t, 1)
	if err := d.RestoreFromCheckpoint("run_iter_3.txt"); err == nil {
		t.Error("restorefromcheckpoint: expected error for unknown file type")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		valid  bool
	}{
		{"Valid", func(c *Config) {}, true},
		{"MissingBias", func(c *Config) { c.Biases = nil }, false},
		{"MissingActivation", func(c *Config) { c.Activations = nil }, false},
		{"EmptyLayer", func(c *Config) { c.Hidden[0] = 0 }, false},
		{"NoSolver", func(c *Config) { c.Solver = nil }, false},
		{"Discount", func(c *Config) { c.Gamma = 1.5 }, false},
		{"CloneFreq", func(c *Config) { c.CloneFreq = 0 }, false},
		{"Replay", func(c *Config) { c.ExpReplay.Window = 0 }, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := testConfig(t)
			test.modify(&c)
			if err := c.Validate(); (err == nil) != test.valid {
				t.Errorf("validate: \n\twant(valid=%v) \n\thave(%v)",
					test.valid, err)
			}
		})
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Error(err)
	}
}
