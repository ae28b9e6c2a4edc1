package experiment

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// Result is the outcome of an evaluation
type Result struct {
	Scores []float64
	Mean   float64
	StdDev float64 // Sample standard deviation, NaN for a single score
}

func (r Result) String() string {
	return fmt.Sprintf("avg_score = %v std = %v", r.Mean, r.StdDev)
}

// Evaluate plays repeats episodes without learning, selecting actions
// with exploration probability epsilon, and returns the statistics of
// the scores reached.
func Evaluate(r *Runner, epsilon float64, repeats int) (Result, error) {
	return EvaluateWithProgress(r, epsilon, repeats, nil)
}

// EvaluateWithProgress is like Evaluate, but calls progress with the
// index and score of each episode once it is played. The progress
// function may be nil.
func EvaluateWithProgress(r *Runner, epsilon float64, repeats int,
	progress func(episode int, score float64)) (Result, error) {
	if repeats < 1 {
		return Result{}, fmt.Errorf("evaluate: number of episodes must be "+
			"positive \n\thave(%v)", repeats)
	}

	scores := make([]float64, 0, repeats)
	for i := 0; i < repeats; i++ {
		score, err := r.RunEpisode(epsilon, false)
		if err != nil {
			return Result{Scores: scores}, fmt.Errorf("evaluate: episode "+
				"%v: %v", i, err)
		}
		scores = append(scores, score)
		if progress != nil {
			progress(i, score)
		}
	}

	mean, std := stat.MeanStdDev(scores, nil)
	return Result{
		Scores: scores,
		Mean:   mean,
		StdDev: std,
	}, nil
}
