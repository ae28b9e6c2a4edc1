package experiment

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEvaluate(t *testing.T) {
	env := &scriptedEnv{deltas: [][]float64{{10}, {20}, {30}}}
	a := &fakeAgent{}
	r := newRunner(t, env, a, RunnerConfig{UpdateFrequency: 1, Window: 1})

	result, err := Evaluate(r, 0.05, 3)
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]float64{10, 20, 30}, result.Scores); diff != "" {
		t.Errorf("scores (-want +have):\n%v", diff)
	}
	if result.Mean != 20 {
		t.Errorf("mean: \n\twant(20) \n\thave(%v)", result.Mean)
	}
	if math.Abs(result.StdDev-10) > 1e-12 {
		t.Errorf("std dev: \n\twant(10) \n\thave(%v)", result.StdDev)
	}

	if len(a.episodes) != 0 {
		t.Errorf("evaluate admitted %v episodes", len(a.episodes))
	}
	if diff := cmp.Diff([]float64{0.05, 0.05, 0.05}, a.epsilons); diff != "" {
		t.Errorf("epsilons (-want +have):\n%v", diff)
	}
}

func TestEvaluateSingleEpisode(t *testing.T) {
	env := &scriptedEnv{deltas: [][]float64{{7}}}
	r := newRunner(t, env, &fakeAgent{},
		RunnerConfig{UpdateFrequency: 1, Window: 1})

	result, err := Evaluate(r, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if result.Mean != 7 || !math.IsNaN(result.StdDev) {
		t.Errorf("result: \n\twant(7, NaN) \n\thave(%v, %v)", result.Mean,
			result.StdDev)
	}
}

func TestEvaluateNoEpisodes(t *testing.T) {
	env := &scriptedEnv{deltas: [][]float64{{7}}}
	r := newRunner(t, env, &fakeAgent{},
		RunnerConfig{UpdateFrequency: 1, Window: 1})

	if _, err := Evaluate(r, 0, 0); err == nil {
		t.Error("evaluate: expected error for zero episodes")
	}
}

func TestEvaluateWithProgress(t *testing.T) {
	env := &scriptedEnv{deltas: [][]float64{{1}, {2}}}
	r := newRunner(t, env, &fakeAgent{},
		RunnerConfig{UpdateFrequency: 1, Window: 1})

	var reported []float64
	_, err := EvaluateWithProgress(r, 0, 4, func(i int, score float64) {
		if i != len(reported) {
			t.Errorf("episode: \n\twant(%v) \n\thave(%v)", len(reported), i)
		}
		reported = append(reported, score)
	})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]float64{1, 2, 1, 2}, reported); diff != "" {
		t.Errorf("reported scores (-want +have):\n%v", diff)
	}
}
