package environment_test

import (
	"testing"

	"github.com/samuelfneumann/goatari/environment"
	"github.com/samuelfneumann/goatari/environment/catch"
)

func TestStepLimit(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"Short", 5, 5},
		{"Single", 1, 1},
		{"BeyondGame", 1000000, -1},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := catch.New(1)
			env := environment.NewStepLimit(c, test.limit)

			played := 0
			for !env.IsTerminal() {
				env.Act(environment.NoOp)
				played++
			}

			if test.want >= 0 && played != test.want {
				t.Errorf("frames played: \n\twant(%v) \n\thave(%v)", test.want,
					played)
			}
			if test.want < 0 && !c.IsTerminal() {
				t.Error("isterminal: game ended before the wrapped game")
			}
			if env.Steps() != played {
				t.Errorf("steps: \n\twant(%v) \n\thave(%v)", played,
					env.Steps())
			}
			if r := env.Act(environment.NoOp); r != 0 {
				t.Errorf("act after limit: \n\twant(0) \n\thave(%v)", r)
			}

			env.Reset()
			if env.Steps() != 0 || env.IsTerminal() {
				t.Errorf("reset: \n\twant(0, false) \n\thave(%v, %v)",
					env.Steps(), env.IsTerminal())
			}
		})
	}
}

func TestStepLimitPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("newsteplimit: expected panic for zero limit")
		}
	}()
	environment.NewStepLimit(catch.New(1), 0)
}
