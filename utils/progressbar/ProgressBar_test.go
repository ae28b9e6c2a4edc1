package progressbar

import (
	"bytes"
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	tests := []struct {
		name       string
		increments int
		want       string
	}{
		{"Empty", 0, "|    | [0.00%]"},
		{"Half", 2, "|██  | [50.00%]"},
		{"Full", 4, "|████| [100.00%]"},
		{"Overflow", 9, "|████| [100.00%]"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			p := New(&bytes.Buffer{}, 4, 4)
			for i := 0; i < test.increments; i++ {
				p.Increment()
			}
			if have := p.String(); have != test.want {
				t.Errorf("string: \n\twant(%q) \n\thave(%q)", test.want, have)
			}
		})
	}
}

func TestDisplay(t *testing.T) {
	var out bytes.Buffer
	p := New(&out, 10, 5)
	p.Increment()
	p.Label("score = 3")
	p.Display()

	if !strings.Contains(out.String(), "[20.00%] score = 3 [elapsed: ") {
		t.Errorf("display: unexpected output %q", out.String())
	}
	if p.Progress() != 1 {
		t.Errorf("progress: \n\twant(1) \n\thave(%v)", p.Progress())
	}
}

func TestNewPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("new: expected panic for zero width")
		}
	}()
	New(&bytes.Buffer{}, 0, 1)
}
