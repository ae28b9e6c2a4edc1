package checkpointer

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// fakeSnapshotter writes empty snapshot files and records calls
type fakeSnapshotter struct {
	iteration int
	snapshots []string
	restored  []string
	failWrite bool
}

func (f *fakeSnapshotter) Snapshot(name string, includeMemory,
	includeSolverState bool) error {
	base := SnapshotBase(name, f.iteration)
	f.snapshots = append(f.snapshots, fmt.Sprintf("%v %v %v",
		filepath.Base(base), includeMemory, includeSolverState))

	exts := []string{ModelExt}
	if includeSolverState {
		exts = append(exts, SolverStateExt)
	}
	if includeMemory {
		exts = append(exts, ReplayMemoryExt)
	}
	for _, ext := range exts {
		if err := os.WriteFile(base+ext, nil, 0644); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeSnapshotter) RestoreFromCheckpoint(path string) error {
	f.restored = append(f.restored, filepath.Base(path))
	return nil
}

func (f *fakeSnapshotter) RestoreReplayMemory(path string) error {
	f.restored = append(f.restored, filepath.Base(path))
	return nil
}

func (f *fakeSnapshotter) CurrentIteration() int {
	return f.iteration
}

func touch(t *testing.T, paths ...string) {
	t.Helper()
	for _, p := range paths {
		if err := os.WriteFile(p, nil, 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.bin")

	err := WriteFile(path, func(w io.Writer) error {
		_, err := w.Write([]byte("complete"))
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "complete" {
		t.Errorf("contents: \n\twant(complete) \n\thave(%s)", data)
	}
}

func TestWriteFileFailureLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.bin")

	err := WriteFile(path, func(w io.Writer) error {
		w.Write([]byte("partial"))
		return errors.New("interrupted")
	})
	if err == nil {
		t.Fatal("writefile: expected error")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("writefile: left %v files behind", len(entries))
	}
}

func TestWriteFileKeepsPreviousOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.bin")
	if err := os.WriteFile(path, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	WriteFile(path, func(w io.Writer) error {
		w.Write([]byte("new but partial"))
		return errors.New("interrupted")
	})

	data, _ := os.ReadFile(path)
	if string(data) != "old" {
		t.Errorf("contents: \n\twant(old) \n\thave(%s)", data)
	}
}

func TestFindLatestSnapshot(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "breakout")

	if _, err := FindLatestSnapshot(prefix); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("findlatestsnapshot: want ErrNoSnapshot, have %v", err)
	}

	touch(t,
		prefix+"_iter_900.solverstate",
		prefix+"_iter_10000.solverstate",
		prefix+"_iter_20000.model", // No solver state
		prefix+"_HiScore300_iter_50000.model",
		filepath.Join(dir, "pong_iter_90000.solverstate"),
	)

	have, err := FindLatestSnapshot(prefix)
	if err != nil {
		t.Fatal(err)
	}
	if want := prefix + "_iter_10000.solverstate"; have != want {
		t.Errorf("latest: \n\twant(%v) \n\thave(%v)", want, have)
	}
}

func TestFindHiScore(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "breakout")

	best, err := FindHiScore(prefix)
	if err != nil {
		t.Fatal(err)
	}
	if best != -math.MaxFloat64 {
		t.Errorf("no high scores: \n\twant(%v) \n\thave(%v)",
			-math.MaxFloat64, best)
	}

	touch(t,
		prefix+"_HiScore12_iter_100.model",
		prefix+"_HiScore340_iter_900.model",
		prefix+"_HiScore340.7_iter_1000.model",
		prefix+"_HiScore-5_iter_5.model",
		filepath.Join(dir, "pong_HiScore1000_iter_5.model"),
	)

	best, err = FindHiScore(prefix)
	if err != nil {
		t.Fatal(err)
	}
	if best != 340.7 {
		t.Errorf("best: \n\twant(340.7) \n\thave(%v)", best)
	}
}

func TestHiScoreName(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{340, "breakout_HiScore340"},
		{340.7, "breakout_HiScore340.7"},
		{-0.5, "breakout_HiScore-0.5"},
		{-21, "breakout_HiScore-21"},
	}

	for _, test := range tests {
		if have := HiScoreName("breakout", test.score); have != test.want {
			t.Errorf("hiscorename(%v): \n\twant(%v) \n\thave(%v)",
				test.score, test.want, have)
		}
	}
}

func TestHiScoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "pong")

	for _, score := range []float64{-20.5, -0.5} {
		touch(t, SnapshotBase(HiScoreName(prefix, score), 10)+ModelExt)
	}
	best, err := FindHiScore(prefix)
	if err != nil {
		t.Fatal(err)
	}
	if best != -0.5 {
		t.Errorf("best: \n\twant(-0.5) \n\thave(%v)", best)
	}
}

func TestSavePrefix(t *testing.T) {
	dir := t.TempDir()

	if have, want := SavePrefix(dir, "/roms/breakout.bin"),
		filepath.Join(dir, "breakout"); have != want {
		t.Errorf("directory: \n\twant(%v) \n\thave(%v)", want, have)
	}

	file := filepath.Join(dir, "run")
	if have, want := SavePrefix(file, "breakout.bin"),
		file+"_breakout"; have != want {
		t.Errorf("file: \n\twant(%v) \n\thave(%v)", want, have)
	}
}

func TestPairedFiles(t *testing.T) {
	snapshot := "/runs/breakout_iter_50.solverstate"
	if have := PairedReplayMemory(snapshot); have != "/runs/breakout_iter_50.replaymemory" {
		t.Errorf("paired replay memory: have %v", have)
	}
	if have := PairedModel(snapshot); have != "/runs/breakout_iter_50.model" {
		t.Errorf("paired model: have %v", have)
	}
}

func TestRecordEvaluation(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "breakout")
	f := &fakeSnapshotter{iteration: 100}
	m, err := NewManager(f, prefix)
	if err != nil {
		t.Fatal(err)
	}

	// First evaluation is always a high score
	if improved, err := m.RecordEvaluation(12.7); err != nil || !improved {
		t.Fatalf("recordevaluation: \n\twant(true, nil) \n\thave(%v, %v)",
			improved, err)
	}

	f.iteration = 200
	if improved, err := m.RecordEvaluation(5); err != nil || improved {
		t.Fatalf("recordevaluation: \n\twant(false, nil) \n\thave(%v, %v)",
			improved, err)
	}

	// An equal score is not an improvement
	f.iteration = 300
	if improved, _ := m.RecordEvaluation(12.7); improved {
		t.Error("recordevaluation: equal score recorded as high score")
	}

	want := []string{
		"breakout_HiScore12.7_iter_100 false false",
		"breakout_iter_100 true true",
		"breakout_iter_200 true true",
		"breakout_iter_300 true true",
	}
	if diff := cmp.Diff(want, f.snapshots); diff != "" {
		t.Errorf("snapshots (-want +have):\n%v", diff)
	}
	if m.BestScore() != 12.7 {
		t.Errorf("best score: \n\twant(12.7) \n\thave(%v)", m.BestScore())
	}

	// A new manager recovers the best score from the files
	m2, err := NewManager(f, prefix)
	if err != nil {
		t.Fatal(err)
	}
	if m2.BestScore() != 12.7 {
		t.Errorf("recovered best score: \n\twant(12.7) \n\thave(%v)",
			m2.BestScore())
	}

	// A slightly lower score after resuming is not a high score
	f.iteration = 400
	if improved, _ := m2.RecordEvaluation(12.3); improved {
		t.Error("recordevaluation: lower score recorded as high score " +
			"after resuming")
	}
	if n := len(f.snapshots); f.snapshots[n-1] != "breakout_iter_400 true true" {
		t.Errorf("snapshots: unexpected high score snapshot %v",
			f.snapshots[n-1])
	}
}

func TestResume(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "breakout")
	f := &fakeSnapshotter{iteration: 500}
	m, err := NewManager(f, prefix)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := m.ResumeLatest(); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("resumelatest: want ErrNoSnapshot, have %v", err)
	}

	if err := m.Checkpoint(); err != nil {
		t.Fatal(err)
	}
	snapshot, err := m.ResumeLatest()
	if err != nil {
		t.Fatal(err)
	}
	if want := prefix + "_iter_500.solverstate"; snapshot != want {
		t.Errorf("snapshot: \n\twant(%v) \n\thave(%v)", want, snapshot)
	}
	want := []string{"breakout_iter_500.solverstate",
		"breakout_iter_500.replaymemory"}
	if diff := cmp.Diff(want, f.restored); diff != "" {
		t.Errorf("restored (-want +have):\n%v", diff)
	}
}

func TestResumeMissingReplayMemory(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "breakout")
	touch(t, prefix+"_iter_7.solverstate", prefix+"_iter_7.model")

	f := &fakeSnapshotter{}
	m, err := NewManager(f, prefix)
	if err != nil {
		t.Fatal(err)
	}

	_, err = m.ResumeLatest()
	if !errors.Is(err, ErrMissingReplayMemory) {
		t.Errorf("resumelatest: want ErrMissingReplayMemory, have %v", err)
	}
	if len(f.restored) != 0 {
		t.Errorf("resumelatest: restored %v despite missing memory",
			f.restored)
	}
}

func TestNStep(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "breakout")
	f := &fakeSnapshotter{}
	c := NewNStep(100, f, prefix)

	for _, iter := range []int{0, 50, 99, 130, 180, 250, 420} {
		f.iteration = iter
		if err := c.Checkpoint(iter); err != nil {
			t.Fatal(err)
		}
	}

	want := []string{
		"breakout_iter_130 true true",
		"breakout_iter_250 true true",
		"breakout_iter_420 true true",
	}
	if diff := cmp.Diff(want, f.snapshots); diff != "" {
		t.Errorf("checkpoints (-want +have):\n%v", diff)
	}
}

func TestFilenameEnumerator(t *testing.T) {
	next := FilenameEnumerator(-1, "screen", ".bin")
	for i := 0; i < 3; i++ {
		if want, have := fmt.Sprintf("screen%d.bin", i), next(); have != want {
			t.Errorf("filename: \n\twant(%v) \n\thave(%v)", want, have)
		}
	}
}
