// Package tracker implements Trackers, which track and save the scores
// reached over a training run
package tracker

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"

	"github.com/samuelfneumann/goatari/experiment/checkpointer"
)

// Point is a score reached at some training iteration
type Point struct {
	Iteration int
	Score     float64
}

// Interface Tracker keeps track of experiment data and saves the data
// when requested
type Tracker interface {
	Track(iteration int, score float64)
	Save() error
}

// Return tracks and saves the scores of episodes, together with the
// training iteration at which each episode ended.
type Return struct {
	points   []Point
	filename string
}

// NewReturn creates and returns a new *Return Tracker which saves its
// data to filename. If filename already holds data from an earlier
// run, tracking continues after that data.
func NewReturn(filename string) (*Return, error) {
	r := &Return{filename: filename}

	points, err := LoadData(filename)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("newreturn: %v", err)
	}
	r.points = points

	return r, nil
}

// Track records the score of an episode which ended at a training
// iteration
func (r *Return) Track(iteration int, score float64) {
	r.points = append(r.points, Point{Iteration: iteration, Score: score})
}

// Data returns the points tracked so far
func (r *Return) Data() []Point {
	return append([]Point{}, r.points...)
}

// Save saves the data tracked by the Return Tracker to disk.
func (r *Return) Save() error {
	err := checkpointer.WriteFile(r.filename, func(w io.Writer) error {
		return gob.NewEncoder(w).Encode(r.points)
	})
	if err != nil {
		return fmt.Errorf("save: %v", err)
	}
	return nil
}

// LoadData loads and returns the data saved by a Tracker
func LoadData(filename string) ([]Point, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var data []Point
	if err := gob.NewDecoder(file).Decode(&data); err != nil {
		return nil, fmt.Errorf("loaddata: could not decode data: %v", err)
	}

	return data, nil
}
