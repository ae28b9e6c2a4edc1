package dqn

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/samuelfneumann/goatari/experiment/checkpointer"
	"github.com/samuelfneumann/goatari/expreplay"
	"github.com/samuelfneumann/goatari/network"
	"github.com/samuelfneumann/goatari/solver"
)

// solverState is the content of a solver state file. Gorgonia solvers
// keep their moment estimates private, so only the solver's
// hyperparameters are saved and its moments restart on restore.
type solverState struct {
	Iteration int
	Solver    []byte // JSON encoded solver.Solver
	Model     string // Name of the model file, relative to this file
}

// Snapshot writes the agent to the files sharing the base name
// SnapshotBase(name, iteration). The model is always written. The
// replay memory and solver state are written only if requested. The
// solver state is written last, so that a solver state file is only
// ever found next to a complete model.
func (d *DQN) Snapshot(name string, includeMemory,
	includeSolverState bool) error {
	base := checkpointer.SnapshotBase(name, d.iteration)

	modelPath := base + checkpointer.ModelExt
	err := checkpointer.WriteFile(modelPath, func(w io.Writer) error {
		data, err := d.trainNet.GobEncode()
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	})
	if err != nil {
		return fmt.Errorf("snapshot: could not save model: %v", err)
	}

	if includeMemory {
		path := base + checkpointer.ReplayMemoryExt
		err := checkpointer.WriteFile(path, func(w io.Writer) error {
			return expreplay.Save(w, d.replay)
		})
		if err != nil {
			return fmt.Errorf("snapshot: could not save replay memory: %v",
				err)
		}
	}

	if includeSolverState {
		solverJSON, err := json.Marshal(d.solver)
		if err != nil {
			return fmt.Errorf("snapshot: could not encode solver: %v", err)
		}
		state := solverState{
			Iteration: d.iteration,
			Solver:    solverJSON,
			Model:     filepath.Base(modelPath),
		}

		path := base + checkpointer.SolverStateExt
		err = checkpointer.WriteFile(path, func(w io.Writer) error {
			return gob.NewEncoder(w).Encode(state)
		})
		if err != nil {
			return fmt.Errorf("snapshot: could not save solver state: %v",
				err)
		}
	}

	return nil
}

// RestoreFromCheckpoint restores the agent from a snapshot file. A
// solver state file restores the iteration count, the solver and the
// model it references. A model file restores only the network weights.
// In both cases the target network is synced to the restored weights.
func (d *DQN) RestoreFromCheckpoint(path string) error {
	switch filepath.Ext(path) {
	case checkpointer.SolverStateExt:
		return d.restoreSolverState(path)

	case checkpointer.ModelExt:
		if err := d.restoreModel(path); err != nil {
			return fmt.Errorf("restorefromcheckpoint: %v", err)
		}
		return nil

	default:
		return fmt.Errorf("restorefromcheckpoint: unknown snapshot file "+
			"type %v", path)
	}
}

func (d *DQN) restoreSolverState(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("restorefromcheckpoint: %v", err)
	}

	var state solverState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&state); err != nil {
		return fmt.Errorf("restorefromcheckpoint: could not decode solver "+
			"state: %v", err)
	}

	s := &solver.Solver{}
	if err := json.Unmarshal(state.Solver, s); err != nil {
		return fmt.Errorf("restorefromcheckpoint: could not decode "+
			"solver: %v", err)
	}

	modelPath := filepath.Join(filepath.Dir(path), state.Model)
	if err := d.restoreModel(modelPath); err != nil {
		return fmt.Errorf("restorefromcheckpoint: %v", err)
	}

	d.solver = s
	d.iteration = state.Iteration
	return nil
}

// restoreModel sets the weights of all networks to those of a model
// file
func (d *DQN) restoreModel(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := network.Load(d.trainNet, data); err != nil {
		return fmt.Errorf("could not load model %v: %v", path, err)
	}
	if err := d.targetNet.Set(d.trainNet); err != nil {
		return err
	}
	d.policyStale = true
	return nil
}

// RestoreReplayMemory replaces the replay memory with the contents of a
// replay memory file
func (d *DQN) RestoreReplayMemory(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("restorereplaymemory: %v", err)
	}
	defer f.Close()

	if err := expreplay.Load(f, d.replay); err != nil {
		return fmt.Errorf("restorereplaymemory: %v", err)
	}
	return nil
}
