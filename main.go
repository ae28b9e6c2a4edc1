// Command goatari trains deep Q-network agents to play Atari games from
// raw screen pixels, and evaluates trained agents.
//
// Usage:
//
//	goatari train --rom Breakout --save runs/
//	goatari evaluate --rom Breakout --snapshot runs/Breakout_iter_50000.solverstate
//
// Options may also be given in a JSON configuration file with --config.
// Options given on the command line override those in the file. The
// environment variables GOATARI_ROM and GOATARI_SAVE, which may be set
// in a .env file, provide the game and save path when neither the file
// nor the command line does.
package main

import (
	"flag"
	"os"

	"github.com/golang/glog"
	"github.com/samuelfneumann/goatari/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// options are the command line options that are not part of a run's
// configuration
type options struct {
	configFile       string
	weights          string
	snapshot         string
	resume           bool
	time             bool
	timeUpdates      int
	saveScreen       string
	saveBinaryScreen string
	monitor          string
	episodes         int

	// config holds the configuration given on the command line. Only
	// the flags that were set override the configuration file.
	config config.Config
}

// bindConfig registers a flag for each configuration option. The
// current values in c are the flag defaults.
func bindConfig(fs *pflag.FlagSet, c *config.Config) {
	fs.StringVar(&c.ROM, "rom", c.ROM, "Atari 2600 game to play: a Gym "+
		"game name or catch")
	fs.StringVar(&c.Save, "save", c.Save, "Prefix for saving snapshots")
	fs.Uint64Var(&c.Seed, "seed", c.Seed, "Random seed")

	fs.IntVar(&c.Memory, "memory", c.Memory, "Capacity of replay memory")
	fs.Float64Var(&c.Gamma, "gamma", c.Gamma, "Discount factor of future "+
		"rewards [0, 1]")
	fs.IntVar(&c.CloneFreq, "clone_freq", c.CloneFreq, "Frequency (steps) "+
		"of cloning the target network")
	fs.IntVar(&c.Explore, "explore", c.Explore, "Iterations for epsilon to "+
		"reach given value")
	fs.Float64Var(&c.Epsilon, "epsilon", c.Epsilon, "Value of epsilon "+
		"after explore iterations")
	fs.IntVar(&c.Minibatch, "minibatch", c.Minibatch, "Minibatch size")

	fs.IntVar(&c.SkipFrame, "skip_frame", c.SkipFrame, "Number of frames "+
		"skipped")
	fs.IntVar(&c.UpdateFrequency, "update_frequency", c.UpdateFrequency,
		"Number of actions between SGD updates")
	fs.IntVar(&c.MemoryThreshold, "memory_threshold", c.MemoryThreshold,
		"Number of transitions to start learning")
	fs.IntVar(&c.Window, "frames_per_timestep", c.Window, "Frames given "+
		"to agent at each timestep")
	fs.IntVar(&c.ObscureSize, "obscure_size", c.ObscureSize, "Size of "+
		"obscured game screen")
	fs.IntVar(&c.MaxEpisodeFrame, "max_num_frames_per_episode",
		c.MaxEpisodeFrame, "Emulator frames after which a game ends, 0 "+
			"for no limit")

	fs.Float64Var(&c.EvaluateEpsilon, "evaluate_with_epsilon",
		c.EvaluateEpsilon, "Epsilon value to be used in evaluation mode")
	fs.IntVar(&c.EvaluateFreq, "evaluate_freq", c.EvaluateFreq, "Frequency "+
		"(steps) between evaluations")
	fs.IntVar(&c.RepeatGames, "repeat_games", c.RepeatGames, "Number of "+
		"games played in evaluation mode")
	fs.IntVar(&c.MaxIter, "max_iter", c.MaxIter, "Number of learning "+
		"updates to train for")
	fs.IntVar(&c.CheckpointFreq, "checkpoint_freq", c.CheckpointFreq,
		"Frequency (steps) of checkpoints between evaluations, 0 for none")
}

func main() {
	opts := &options{config: config.Default()}

	rootCmd := &cobra.Command{
		Use:   "goatari",
		Short: "Goatari trains deep Q-networks to play Atari games",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// glog complains when logging before its flags are parsed,
			// but pflag has already set their values
			return flag.CommandLine.Parse(nil)
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", "", "JSON configuration file")
	pf.StringVar(&opts.weights, "weights", "", "The pretrained weights to "+
		"load (*.model)")
	pf.StringVar(&opts.snapshot, "snapshot", "", "The solver state to load "+
		"(*.solverstate)")
	pf.BoolVar(&opts.resume, "resume", true, "Automatically resume from "+
		"the latest snapshot")
	pf.StringVar(&opts.saveScreen, "save_screen", "", "File prefix in "+
		"which to save frames")
	pf.StringVar(&opts.saveBinaryScreen, "save_binary_screen", "", "File "+
		"prefix in which to save binary frames")
	bindConfig(pf, &opts.config)

	trainCmd := &cobra.Command{
		Use:   "train",
		Short: "Train an agent, resuming from the latest snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return train(cmd.Flags(), opts)
		},
	}
	trainCmd.Flags().BoolVar(&opts.time, "time", false, "Time the "+
		"learning updates of the network and exit")
	trainCmd.Flags().IntVar(&opts.timeUpdates, "time_updates", 1000,
		"Number of learning updates to time")
	trainCmd.Flags().StringVar(&opts.monitor, "monitor", "", "Address to "+
		"serve training status and metrics on, e.g. :8080")

	evaluateCmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Play games with a trained agent without learning",
		RunE: func(cmd *cobra.Command, args []string) error {
			return evaluate(cmd.Flags(), opts)
		},
	}
	evaluateCmd.Flags().IntVar(&opts.episodes, "episodes", 0, "Number of "+
		"games to play, defaults to repeat_games")

	rootCmd.AddCommand(trainCmd, evaluateCmd)
	if err := rootCmd.Execute(); err != nil {
		glog.Flush()
		os.Exit(1)
	}
	glog.Flush()
}
