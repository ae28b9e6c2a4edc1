package checkpointer

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// File extensions of the files of a snapshot
const (
	ModelExt        = ".model"
	SolverStateExt  = ".solverstate"
	ReplayMemoryExt = ".replaymemory"
)

// ErrNoSnapshot is returned when no snapshot exists to resume from
var ErrNoSnapshot = errors.New("no snapshot found")

// SnapshotBase returns the base name shared by all files of a snapshot
// of name taken at a training iteration
func SnapshotBase(name string, iteration int) string {
	return fmt.Sprintf("%s_iter_%d", name, iteration)
}

// HiScoreName returns the snapshot name used for a high score
// checkpoint of prefix. The score is written in full, so integral
// scores have no decimal point.
func HiScoreName(prefix string, score float64) string {
	return fmt.Sprintf("%s_HiScore%s", prefix,
		strconv.FormatFloat(score, 'f', -1, 64))
}

// SavePrefix returns the prefix of all files saved by a training run
// on a game. If save is a directory, files are saved in that directory
// and named after the game. Otherwise the game name is appended to
// save.
func SavePrefix(save, game string) string {
	stem := strings.TrimSuffix(filepath.Base(game), filepath.Ext(game))
	if info, err := os.Stat(save); err == nil && info.IsDir() {
		return filepath.Join(save, stem)
	}
	return save + "_" + stem
}

// matchFiles returns the submatches of re against the names of all
// files in the directory of prefix
func matchFiles(prefix string, re *regexp.Regexp) ([][]string, error) {
	dir := filepath.Dir(prefix)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var matches [][]string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if m := re.FindStringSubmatch(entry.Name()); m != nil {
			matches = append(matches, m)
		}
	}
	return matches, nil
}

// FindLatestSnapshot returns the path of the solver state file of the
// snapshot of prefix with the highest iteration. If no snapshot
// exists, ErrNoSnapshot is returned.
func FindLatestSnapshot(prefix string) (string, error) {
	re := regexp.MustCompile("^" + regexp.QuoteMeta(filepath.Base(prefix)) +
		`_iter_(\d+)` + regexp.QuoteMeta(SolverStateExt) + "$")
	matches, err := matchFiles(prefix, re)
	if err != nil {
		return "", fmt.Errorf("findlatestsnapshot: %v", err)
	}

	latest, path := -1, ""
	for _, m := range matches {
		iter, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if iter > latest {
			latest = iter
			path = filepath.Join(filepath.Dir(prefix), m[0])
		}
	}

	if latest < 0 {
		return "", ErrNoSnapshot
	}
	return path, nil
}

// PairedReplayMemory returns the path of the replay memory file of the
// snapshot that the given solver state or model file belongs to
func PairedReplayMemory(snapshot string) string {
	return strings.TrimSuffix(snapshot, filepath.Ext(snapshot)) +
		ReplayMemoryExt
}

// PairedModel returns the path of the model file of the snapshot that
// the given solver state file belongs to
func PairedModel(snapshot string) string {
	return strings.TrimSuffix(snapshot, filepath.Ext(snapshot)) + ModelExt
}

// FindHiScore returns the best score recorded by the high score
// checkpoints of prefix. If there are none, -math.MaxFloat64 is
// returned.
func FindHiScore(prefix string) (float64, error) {
	re := regexp.MustCompile("^" + regexp.QuoteMeta(filepath.Base(prefix)) +
		`_HiScore(-?\d+(?:\.\d+)?)_iter_`)
	matches, err := matchFiles(prefix, re)
	if err != nil {
		return -math.MaxFloat64, fmt.Errorf("findhiscore: %v", err)
	}

	best := -math.MaxFloat64
	for _, m := range matches {
		score, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		best = math.Max(best, score)
	}
	return best, nil
}
