package monitor

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get %v: \n\twant(%v) \n\thave(%v)", path, http.StatusOK,
			rec.Code)
	}
	return rec
}

func TestStatus(t *testing.T) {
	s := New(":0")
	want := Status{
		RunID:           "run",
		Game:            "catch",
		Episode:         3,
		Iteration:       42,
		Epsilon:         0.5,
		LastScore:       7,
		BestScore:       -math.MaxFloat64,
		ReplayOccupancy: 100,
		Loss:            0.5,
		Updated:         time.Date(2021, 8, 18, 0, 0, 0, 0, time.UTC),
	}
	want.SetEvaluation(6, 1.5)
	s.Publish(want)

	var have Status
	rec := get(t, s, "/status")
	if err := json.Unmarshal(rec.Body.Bytes(), &have); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, have); diff != "" {
		t.Errorf("status (-want +have):\n%v", diff)
	}
}

func TestStatusUndefinedStdDev(t *testing.T) {
	s := New(":0")
	status := Status{}
	status.SetEvaluation(10, math.NaN())
	s.Publish(status)

	rec := get(t, s, "/status")
	if strings.Contains(rec.Body.String(), "eval_std") {
		t.Errorf("status: undefined std dev should be omitted: %v",
			rec.Body.String())
	}
	if s.Status().Evaluations != 1 {
		t.Errorf("evaluations: \n\twant(1) \n\thave(%v)",
			s.Status().Evaluations)
	}
}

func TestMetrics(t *testing.T) {
	s := New(":0")
	s.Publish(Status{Iteration: 42, ReplayOccupancy: 7, Loss: 0.25})

	body := get(t, s, "/metrics").Body.String()
	for _, line := range []string{
		"goatari_iteration 42",
		"goatari_replay_occupancy 7",
		"goatari_loss 0.25",
	} {
		if !strings.Contains(body, line) {
			t.Errorf("metrics: missing %q", line)
		}
	}
}
