package main

import (
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/golang/glog"
	"github.com/samuelfneumann/goatari/agent/dqn"
	"github.com/samuelfneumann/goatari/config"
	"github.com/samuelfneumann/goatari/environment"
	"github.com/samuelfneumann/goatari/environment/catch"
	"github.com/samuelfneumann/goatari/environment/gym"
	"github.com/samuelfneumann/goatari/experiment"
	"github.com/samuelfneumann/goatari/experiment/checkpointer"
	"github.com/samuelfneumann/goatari/experiment/tracker"
	"github.com/samuelfneumann/goatari/monitor"
	"github.com/samuelfneumann/goatari/utils/progressbar"
	"github.com/spf13/pflag"
)

// CatchROM is the name of the built-in catch game
const CatchROM = "catch"

// loadConfig returns the configuration of a run: the defaults,
// overridden by the configuration file if one is given, overridden by
// the configuration flags set in fs, and finally completed from the
// environment
func loadConfig(fs *pflag.FlagSet, file string) (config.Config, error) {
	c := config.Default()
	if file != "" {
		var err error
		if c, err = config.Load(file); err != nil {
			return config.Config{}, err
		}
	}

	overrides := pflag.NewFlagSet("overrides", pflag.ContinueOnError)
	bindConfig(overrides, &c)

	var err error
	fs.Visit(func(f *pflag.Flag) {
		if err != nil || overrides.Lookup(f.Name) == nil {
			return
		}
		err = overrides.Set(f.Name, f.Value.String())
	})
	if err != nil {
		return config.Config{}, fmt.Errorf("loadconfig: %v", err)
	}

	c.ApplyEnv(".env")
	return c, c.Validate()
}

// newEnvironment returns the environment of a game whose games end
// after maxFrames emulator frames, or never if maxFrames is 0
func newEnvironment(rom string, seed uint64,
	maxFrames int) (environment.Environment, error) {
	var env environment.Environment
	if rom == CatchROM {
		env = catch.New(seed)
	} else {
		gymEnv, err := gym.New(rom, seed)
		if err != nil {
			return nil, err
		}
		env = gymEnv
	}

	if maxFrames > 0 {
		return environment.NewStepLimit(env, maxFrames), nil
	}
	return env, nil
}

// closeEnvironment releases the resources of env, if it holds any
func closeEnvironment(env environment.Environment) {
	if c, ok := env.(environment.Closer); ok {
		if err := c.Close(); err != nil {
			glog.Warningf("Could not close environment: %v", err)
		}
	}
}

// setupLogging directs log files to dir unless a log directory was
// given on the command line, and mirrors the logs to stderr
func setupLogging(fs *pflag.FlagSet, dir string) error {
	if !fs.Changed("log_dir") {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("setuplogging: %v", err)
		}
		if err := flag.Set("log_dir", dir); err != nil {
			return fmt.Errorf("setuplogging: %v", err)
		}
	}
	if !fs.Changed("alsologtostderr") && !fs.Changed("logtostderr") {
		return flag.Set("alsologtostderr", "true")
	}
	return nil
}

// session is the environment and agent of a run
type session struct {
	config config.Config
	env    environment.Environment
	agent  *dqn.DQN
	runner *experiment.Runner
}

// newSession creates the environment and agent of a run and restores
// the agent from the given snapshot or weights, if any
func newSession(c config.Config, opts *options) (*session, error) {
	if opts.snapshot != "" && opts.weights != "" {
		return nil, fmt.Errorf("give a snapshot to resume training or " +
			"weights to finetune but not both")
	}

	env, err := newEnvironment(c.ROM, c.Seed, c.MaxEpisodeFrame)
	if err != nil {
		return nil, err
	}

	agent, err := dqn.New(env.LegalActions(), c.AgentConfig(), c.Seed)
	if err != nil {
		closeEnvironment(env)
		return nil, err
	}

	s := &session{config: c, env: env, agent: agent}
	if opts.weights != "" {
		glog.Infof("Finetuning from %v", opts.weights)
		if err := agent.RestoreFromCheckpoint(opts.weights); err != nil {
			s.Close()
			return nil, err
		}
	}

	if opts.saveScreen != "" {
		glog.Infof("Saving screens to: %v", opts.saveScreen)
	}
	dumper := experiment.NewDumper(opts.saveScreen, opts.saveBinaryScreen)
	s.runner, err = experiment.NewRunner(env, agent, c.RunnerConfig(), dumper)
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the resources of the session
func (s *session) Close() {
	if err := s.agent.Close(); err != nil {
		glog.Warningf("Could not close agent: %v", err)
	}
	closeEnvironment(s.env)
}

// writeMetadata saves the metadata of a run next to its snapshots. A
// run never overwrites the metadata of an earlier run with the same
// prefix.
func writeMetadata(prefix, mode, runID string, c config.Config) error {
	path := prefix + "_run.json"
	if _, err := os.Stat(path); err == nil {
		path = checkpointer.FileTimer(prefix+"_run", ".json")()
	}
	return experiment.WriteMetadata(path, experiment.Metadata{
		RunID:   runID,
		Mode:    mode,
		Game:    c.ROM,
		Prefix:  prefix,
		Started: time.Now(),
		Config:  c,
	})
}

// train trains an agent as configured by the flags in fs
func train(fs *pflag.FlagSet, opts *options) error {
	c, err := loadConfig(fs, opts.configFile)
	if err != nil {
		if errors.Is(err, config.ErrMissingROM) {
			return fmt.Errorf("rom file required but not set")
		}
		return err
	}
	if c.Save == "" {
		return fmt.Errorf("save path required but not set")
	}

	prefix := checkpointer.SavePrefix(c.Save, c.ROM)
	if err := setupLogging(fs, filepath.Dir(prefix)); err != nil {
		return err
	}

	s, err := newSession(c, opts)
	if err != nil {
		glog.Fatalf("Could not create session: %v", err)
	}
	defer s.Close()

	manager, err := checkpointer.NewManager(s.agent, prefix)
	if err != nil {
		glog.Fatalf("Could not create checkpoint manager: %v", err)
	}

	snapshot := opts.snapshot
	if opts.resume && snapshot == "" && opts.weights == "" {
		snapshot, err = checkpointer.FindLatestSnapshot(prefix)
		if err != nil && !errors.Is(err, checkpointer.ErrNoSnapshot) {
			glog.Fatalf("Could not find snapshot: %v", err)
		}
	}
	if snapshot != "" {
		if err := manager.Resume(snapshot); err != nil {
			glog.Fatalf("Unable to resume from %v: %v", snapshot, err)
		}
	}

	if opts.resume {
		glog.Infof("Resuming from HiScore %v", manager.BestScore())
	} else {
		manager.SetBestScore(-math.MaxFloat64)
	}

	if opts.time {
		return timeUpdates(s, opts.timeUpdates)
	}

	trainer, err := experiment.NewTrainer(s.runner, manager,
		c.Schedule(), c.TrainerConfig(), c.ROM)
	if err != nil {
		glog.Fatalf("Could not create trainer: %v", err)
	}

	if err := writeMetadata(prefix, "train", trainer.RunID().String(),
		c); err != nil {
		glog.Warningf("Could not save run metadata: %v", err)
	}

	episodes, err := tracker.NewReturn(prefix + "_scores.bin")
	if err != nil {
		glog.Fatalf("Could not load training scores: %v", err)
	}
	evaluations, err := tracker.NewReturn(prefix + "_eval.bin")
	if err != nil {
		glog.Fatalf("Could not load evaluation scores: %v", err)
	}
	trainer.TrackScores(episodes, evaluations, prefix+"_scores.png")

	if c.CheckpointFreq > 0 {
		trainer.PeriodicCheckpoints(checkpointer.NewNStep(c.CheckpointFreq,
			s.agent, prefix))
	}

	if opts.monitor != "" {
		server := monitor.New(opts.monitor)
		server.Start()
		defer func() {
			if err := server.Shutdown(); err != nil {
				glog.Warningf("Could not stop monitor: %v", err)
			}
		}()
		glog.Infof("Serving training status on %v", opts.monitor)
		trainer.Register(server)
	}

	if err := trainer.Run(); err != nil {
		if errors.Is(err, experiment.ErrGameOver) {
			glog.Fatalf("Training stopped: %v", err)
		}
		return err
	}
	return nil
}

// timeUpdates plays a single episode and then reports the duration of
// learning updates
func timeUpdates(s *session, updates int) error {
	timing, err := experiment.TimeUpdates(s.runner, s.config.EvaluateEpsilon,
		updates)
	if err != nil {
		return err
	}
	glog.Infof("Timing: %v", timing)
	fmt.Println(timing)
	return nil
}

// evaluate plays games with a trained agent as configured by the flags
// in fs
func evaluate(fs *pflag.FlagSet, opts *options) error {
	if err := flag.Set("logtostderr", "true"); err != nil {
		return err
	}

	c, err := loadConfig(fs, opts.configFile)
	if err != nil {
		return err
	}

	snapshot := opts.snapshot
	if opts.resume && snapshot == "" && opts.weights == "" && c.Save != "" {
		prefix := checkpointer.SavePrefix(c.Save, c.ROM)
		snapshot, err = checkpointer.FindLatestSnapshot(prefix)
		if err != nil && !errors.Is(err, checkpointer.ErrNoSnapshot) {
			return err
		}
	}

	// Evaluation only needs the weights of a snapshot
	weights := opts.weights
	if snapshot != "" {
		weights = checkpointer.PairedModel(snapshot)
	}
	if weights == "" {
		glog.Warningf("No snapshot or weights given, evaluating an " +
			"untrained agent")
	}

	s, err := newSession(c, &options{
		weights:          weights,
		saveScreen:       opts.saveScreen,
		saveBinaryScreen: opts.saveBinaryScreen,
	})
	if err != nil {
		return err
	}
	defer s.Close()

	episodes := opts.episodes
	if episodes <= 0 {
		episodes = c.RepeatGames
	}

	if episodes == 1 {
		score, err := s.runner.RunEpisode(c.EvaluateEpsilon, false)
		if err != nil {
			return err
		}
		glog.Infof("Score %v", score)
		return nil
	}

	bar := progressbar.New(os.Stderr, 40, episodes)
	result, err := experiment.EvaluateWithProgress(s.runner,
		c.EvaluateEpsilon, episodes, func(_ int, score float64) {
			bar.Increment()
			bar.Label(fmt.Sprintf("score = %v", score))
			bar.Display()
		})
	bar.Close()
	if err != nil {
		return err
	}

	glog.Infof("Evaluation %v", result)
	return nil
}
