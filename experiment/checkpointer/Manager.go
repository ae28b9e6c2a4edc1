package checkpointer

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/golang/glog"
)

// ErrMissingReplayMemory is returned when resuming from a snapshot that
// has no paired replay memory file
var ErrMissingReplayMemory = errors.New("missing replay memory")

// Manager manages the snapshots of a training run: rolling checkpoints,
// high score checkpoints, and resuming.
type Manager struct {
	object    Snapshotter
	prefix    string
	bestScore float64
}

// NewManager returns a new Manager for the snapshots of object saved
// under prefix. The best score is initialized from the high score
// checkpoints already saved under prefix.
func NewManager(object Snapshotter, prefix string) (*Manager, error) {
	best, err := FindHiScore(prefix)
	if err != nil {
		return nil, fmt.Errorf("newmanager: %v", err)
	}
	return &Manager{
		object:    object,
		prefix:    prefix,
		bestScore: best,
	}, nil
}

// Prefix returns the prefix of all snapshots of the Manager
func (m *Manager) Prefix() string {
	return m.prefix
}

// BestScore returns the best evaluation score recorded so far, or
// -math.MaxFloat64 if none has been recorded
func (m *Manager) BestScore() float64 {
	return m.bestScore
}

// SetBestScore overrides the best recorded evaluation score
func (m *Manager) SetBestScore(score float64) {
	m.bestScore = score
}

// Snapshot snapshots the managed object under name
func (m *Manager) Snapshot(name string, includeMemory,
	includeSolverState bool) error {
	if err := m.object.Snapshot(name, includeMemory,
		includeSolverState); err != nil {
		return fmt.Errorf("snapshot: %v", err)
	}
	return nil
}

// Checkpoint takes a rolling snapshot under the Manager's prefix,
// including the replay memory and solver state so that training can
// be resumed from it
func (m *Manager) Checkpoint() error {
	return m.Snapshot(m.prefix, true, true)
}

// RecordEvaluation records the score of an evaluation. If the score is
// strictly better than the best score so far, a high score snapshot of
// the model only is taken. A rolling checkpoint is always taken
// afterwards. RecordEvaluation returns whether the score was a new high
// score.
func (m *Manager) RecordEvaluation(score float64) (bool, error) {
	improved := score > m.bestScore
	if improved {
		glog.Infof("New high score: %v", score)
		m.bestScore = score
		if err := m.Snapshot(HiScoreName(m.prefix, score), false,
			false); err != nil {
			return improved, fmt.Errorf("recordevaluation: %v", err)
		}
	}

	if err := m.Checkpoint(); err != nil {
		return improved, fmt.Errorf("recordevaluation: %v", err)
	}
	return improved, nil
}

// Resume restores the managed object from the snapshot whose solver
// state file is at snapshot, together with its paired replay memory.
// If the replay memory file does not exist, ErrMissingReplayMemory is
// returned and nothing is restored.
func (m *Manager) Resume(snapshot string) error {
	memory := PairedReplayMemory(snapshot)
	if _, err := os.Stat(memory); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("resume: %v: %w", memory, ErrMissingReplayMemory)
		}
		return fmt.Errorf("resume: %v", err)
	}

	glog.Infof("Resuming from %v", snapshot)
	if err := m.object.RestoreFromCheckpoint(snapshot); err != nil {
		return fmt.Errorf("resume: %v", err)
	}
	glog.Infof("Loading replay memory from %v", memory)
	if err := m.object.RestoreReplayMemory(memory); err != nil {
		return fmt.Errorf("resume: %v", err)
	}
	return nil
}

// ResumeLatest resumes from the latest snapshot under the Manager's
// prefix and returns its path. If there is no snapshot, ErrNoSnapshot
// is returned.
func (m *Manager) ResumeLatest() (string, error) {
	snapshot, err := FindLatestSnapshot(m.prefix)
	if err != nil {
		return "", fmt.Errorf("resumelatest: %w", err)
	}
	return snapshot, m.Resume(snapshot)
}

// HasBestScore returns whether any evaluation score has been recorded
func (m *Manager) HasBestScore() bool {
	return m.bestScore > -math.MaxFloat64
}
