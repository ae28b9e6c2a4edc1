// Package checkpointer implements the persistence of training runs:
// atomic file writes, snapshot naming and discovery, high score
// tracking, and resuming training from the latest snapshot.
package checkpointer

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Serializable is an object that can be saved/serialized
type Serializable interface {
	gob.GobEncoder
	gob.GobDecoder
}

// Checkpointer checkpoints/saves objects based on the training
// iteration
type Checkpointer interface {
	Checkpoint(iteration int) error
}

// Snapshotter is an object whose state can be snapshot to files sharing
// a base name and later restored from them. A training agent is a
// Snapshotter.
type Snapshotter interface {
	// Snapshot writes the files of a snapshot whose base name is
	// SnapshotBase(name, CurrentIteration())
	Snapshot(name string, includeMemory, includeSolverState bool) error

	// RestoreFromCheckpoint restores from a solver state or model file
	RestoreFromCheckpoint(path string) error

	// RestoreReplayMemory restores the replay memory from a file
	RestoreReplayMemory(path string) error

	// CurrentIteration returns the number of learning updates performed
	CurrentIteration() int
}

// WriteFile atomically writes a file at path with the contents written
// by write. The contents are first written to a temporary file in the
// same directory, which is synced and then renamed to path. A crash
// during WriteFile never leaves a partial file at path.
func WriteFile(path string, write func(w io.Writer) error) (err error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+base+".tmp*")
	if err != nil {
		return fmt.Errorf("writefile: could not create temporary file: %v",
			err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = write(tmp); err != nil {
		return fmt.Errorf("writefile: could not write %v: %v", path, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("writefile: could not sync %v: %v", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("writefile: could not close %v: %v", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writefile: could not rename to %v: %v", path, err)
	}
	return nil
}

// Save gob encodes a Serializable object to the file at path
func Save(path string, object Serializable) error {
	return WriteFile(path, func(w io.Writer) error {
		return gob.NewEncoder(w).Encode(object)
	})
}

// Load decodes a Serializable object from the file at path, which must
// have been written by Save
func Load(path string, object Serializable) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("load: %v", err)
	}
	defer f.Close()

	if err := gob.NewDecoder(f).Decode(object); err != nil {
		return fmt.Errorf("load: could not decode %v: %v", path, err)
	}
	return nil
}
