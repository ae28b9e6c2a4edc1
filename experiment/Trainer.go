package experiment

import (
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/samuelfneumann/goatari/experiment/checkpointer"
	"github.com/samuelfneumann/goatari/experiment/tracker"
	"github.com/samuelfneumann/goatari/monitor"
	"github.com/samuelfneumann/goatari/schedule"
)

// TrainerConfig determines how long a Trainer trains for and how it
// evaluates the agent
type TrainerConfig struct {
	MaxIter         int     `json:"max_iter"`              // Learning updates to train for
	EvaluateFreq    int     `json:"evaluate_freq"`         // Updates between evaluations
	EvaluateEpsilon float64 `json:"evaluate_with_epsilon"` // Exploration while evaluating
	RepeatGames     int     `json:"repeat_games"`          // Episodes per evaluation
}

// Validate returns an error describing whether the configuration is
// valid or not
func (c TrainerConfig) Validate() error {
	if c.MaxIter < 0 {
		return fmt.Errorf("validate: iteration budget must be "+
			"non-negative \n\thave(%v)", c.MaxIter)
	}
	if c.EvaluateFreq < 1 {
		return fmt.Errorf("validate: evaluation frequency must be "+
			"positive \n\thave(%v)", c.EvaluateFreq)
	}
	if c.EvaluateEpsilon < 0 || c.EvaluateEpsilon > 1 {
		return fmt.Errorf("validate: evaluation epsilon must be in [0, 1] "+
			"\n\thave(%v)", c.EvaluateEpsilon)
	}
	if c.RepeatGames < 1 {
		return fmt.Errorf("validate: evaluation episodes must be positive "+
			"\n\thave(%v)", c.RepeatGames)
	}
	return nil
}

// ShouldEvaluate returns whether the agent should be evaluated after a
// training episode. Evaluation happens when the episode beat the best
// evaluation score after exploration has finished decaying, or when at
// least evaluateFreq iterations have passed since the last evaluation.
func ShouldEvaluate(lastEval, iteration int, score, best float64,
	explorationDone bool, evaluateFreq int) bool {
	return (score > best && explorationDone) ||
		iteration >= lastEval+evaluateFreq
}

// State is the progress of a training run
type State struct {
	Episode        int  // Training episodes played
	LastEvaluation int  // Iteration of the last evaluation
	Evaluated      bool // Whether any evaluation has happened
}

// lossReporter is implemented by agents which report the loss of their
// most recent learning update
type lossReporter interface {
	Loss() float64
}

// Publisher receives the progress of a training run
type Publisher interface {
	Publish(monitor.Status)
}

// Trainer trains an agent by alternating training episodes with
// evaluations, checkpointing the agent after each evaluation.
type Trainer struct {
	runner   *Runner
	manager  *checkpointer.Manager
	schedule schedule.Schedule
	config   TrainerConfig

	runID uuid.UUID
	game  string
	state State

	status    monitor.Status
	publisher Publisher

	episodes    *tracker.Return
	evaluations *tracker.Return
	plotFile    string

	checkpointer checkpointer.Checkpointer
}

// NewTrainer returns a new Trainer of the runner's agent. The manager
// must manage snapshots of the same agent.
func NewTrainer(runner *Runner, manager *checkpointer.Manager,
	s schedule.Schedule, config TrainerConfig, game string) (*Trainer,
	error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("newtrainer: %v", err)
	}

	runID := uuid.New()
	return &Trainer{
		runner:   runner,
		manager:  manager,
		schedule: s,
		config:   config,
		runID:    runID,
		game:     game,
		status: monitor.Status{
			RunID:     runID.String(),
			Game:      game,
			BestScore: manager.BestScore(),
		},
	}, nil
}

// RunID returns the unique identifier of the training run
func (t *Trainer) RunID() uuid.UUID {
	return t.runID
}

// State returns the progress of the training run
func (t *Trainer) State() State {
	return t.state
}

// Register sets the Publisher which receives the progress of the
// training run after each episode and evaluation
func (t *Trainer) Register(p Publisher) {
	t.publisher = p
	t.publish()
}

// TrackScores sets the Trackers of training episode scores and mean
// evaluation scores. If plotFile is not empty, both are plotted to
// plotFile after each evaluation.
func (t *Trainer) TrackScores(episodes, evaluations *tracker.Return,
	plotFile string) {
	t.episodes = episodes
	t.evaluations = evaluations
	t.plotFile = plotFile
}

// PeriodicCheckpoints sets a Checkpointer which is given the chance to
// checkpoint the agent after each training episode, in addition to the
// checkpoints taken after each evaluation
func (t *Trainer) PeriodicCheckpoints(c checkpointer.Checkpointer) {
	t.checkpointer = c
}

func (t *Trainer) publish() {
	if t.publisher == nil {
		return
	}
	t.status.Updated = time.Now()
	t.publisher.Publish(t.status)
}

// Run trains the agent until the iteration budget is reached, then
// evaluates and checkpoints the agent a final time unless that already
// happened at the final iteration.
func (t *Trainer) Run() error {
	agent := t.runner.Agent()
	glog.Infof("Run %v: training on %v from iteration %v with best "+
		"score %v", t.runID, t.game, agent.CurrentIteration(),
		t.manager.BestScore())

	for agent.CurrentIteration() < t.config.MaxIter {
		epsilon := t.schedule.Epsilon(agent.CurrentIteration())
		score, err := t.runner.RunEpisode(epsilon, true)
		if err != nil {
			return fmt.Errorf("run: episode %v: %w", t.state.Episode, err)
		}

		iter := agent.CurrentIteration()
		var loss float64
		if l, ok := agent.(lossReporter); ok {
			loss = l.Loss()
		}
		glog.Infof("Episode %v score = %v, epsilon = %v, iter = %v, "+
			"replay_mem_size = %v, loss = %v", t.state.Episode, score,
			epsilon, iter, agent.ReplayOccupancy(), loss)
		t.state.Episode++

		if t.episodes != nil {
			t.episodes.Track(iter, score)
		}
		t.status.Episode = t.state.Episode
		t.status.Iteration = iter
		t.status.Epsilon = epsilon
		t.status.LastScore = score
		t.status.ReplayOccupancy = agent.ReplayOccupancy()
		t.status.Loss = loss
		t.publish()

		if t.checkpointer != nil {
			if err := t.checkpointer.Checkpoint(iter); err != nil {
				return fmt.Errorf("run: %v", err)
			}
		}

		if ShouldEvaluate(t.state.LastEvaluation, iter, score,
			t.manager.BestScore(), t.schedule.Done(iter),
			t.config.EvaluateFreq) {
			if err := t.evaluate(); err != nil {
				return fmt.Errorf("run: %v", err)
			}
		}
	}

	iter := agent.CurrentIteration()
	if !t.state.Evaluated || iter > t.state.LastEvaluation {
		if err := t.evaluate(); err != nil {
			return fmt.Errorf("run: %v", err)
		}
	}

	return nil
}

// evaluate evaluates the agent, records the result with the checkpoint
// manager, and saves the tracked scores
func (t *Trainer) evaluate() error {
	iter := t.runner.Agent().CurrentIteration()

	result, err := Evaluate(t.runner, t.config.EvaluateEpsilon,
		t.config.RepeatGames)
	if err != nil {
		return err
	}
	glog.Infof("Evaluation %v", result)

	if _, err := t.manager.RecordEvaluation(result.Mean); err != nil {
		return fmt.Errorf("evaluate: %v", err)
	}
	t.state.LastEvaluation = iter
	t.state.Evaluated = true

	t.status.BestScore = t.manager.BestScore()
	t.status.SetEvaluation(result.Mean, result.StdDev)
	t.publish()

	if t.evaluations != nil {
		t.evaluations.Track(iter, result.Mean)
	}
	return t.saveScores()
}

// saveScores saves the tracked scores and plots them. Failing to plot
// does not stop training.
func (t *Trainer) saveScores() error {
	if t.episodes == nil || t.evaluations == nil {
		return nil
	}
	if err := t.episodes.Save(); err != nil {
		return fmt.Errorf("savescores: %v", err)
	}
	if err := t.evaluations.Save(); err != nil {
		return fmt.Errorf("savescores: %v", err)
	}

	if t.plotFile == "" {
		return nil
	}
	err := tracker.PlotScores(t.plotFile, t.game,
		tracker.Series{Name: "Training", Points: t.episodes.Data()},
		tracker.Series{Name: "Evaluation", Points: t.evaluations.Data()},
	)
	if err != nil {
		glog.Warningf("Could not plot scores: %v", err)
	}
	return nil
}
