package experiment

import (
	"fmt"
	"time"

	"github.com/golang/glog"
)

// Timing is the measured duration of learning updates
type Timing struct {
	Updates int
	Total   time.Duration
}

// PerUpdate returns the mean duration of a single learning update
func (t Timing) PerUpdate() time.Duration {
	if t.Updates == 0 {
		return 0
	}
	return t.Total / time.Duration(t.Updates)
}

func (t Timing) String() string {
	return fmt.Sprintf("%v updates in %v (%v per update)", t.Updates,
		t.Total, t.PerUpdate())
}

// TimeUpdates plays a single episode with learning enabled, then times
// the given number of learning updates of the runner's agent. Only
// updates that advance the agent's iteration are counted, so an agent
// whose replay memory is too small to sample from reports no updates.
func TimeUpdates(r *Runner, epsilon float64, updates int) (Timing, error) {
	score, err := r.RunEpisode(epsilon, true)
	if err != nil {
		return Timing{}, fmt.Errorf("timeupdates: %v", err)
	}
	glog.Infof("Score %v, replay_mem_size = %v", score,
		r.Agent().ReplayOccupancy())

	a := r.Agent()
	start := a.CurrentIteration()
	began := time.Now()
	for i := 0; i < updates; i++ {
		if err := a.LearningUpdate(); err != nil {
			return Timing{}, fmt.Errorf("timeupdates: %v", err)
		}
	}
	return Timing{
		Updates: a.CurrentIteration() - start,
		Total:   time.Since(began),
	}, nil
}
