// Package monitor implements a live view of a training run over HTTP.
// The trainer publishes copies of its progress to a Server, which
// serves the most recent copy as JSON on /status and as Prometheus
// gauges on /metrics.
package monitor

import (
	"context"
	"errors"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Status is a snapshot of the progress of a training run
type Status struct {
	RunID           string    `json:"run_id"`
	Game            string    `json:"game"`
	Episode         int       `json:"episode"`
	Iteration       int       `json:"iteration"`
	Epsilon         float64   `json:"epsilon"`
	LastScore       float64   `json:"last_score"`
	BestScore       float64   `json:"best_score"`
	ReplayOccupancy int       `json:"replay_occupancy"`
	Loss            float64   `json:"loss"`
	Evaluations     int       `json:"evaluations"`
	EvalMean        float64   `json:"eval_mean"`
	EvalStdDev      *float64  `json:"eval_std,omitempty"` // Unset when undefined
	Updated         time.Time `json:"updated"`
}

// SetEvaluation records the statistics of an evaluation in the Status.
// A NaN standard deviation is left unset.
func (s *Status) SetEvaluation(mean, std float64) {
	s.Evaluations++
	s.EvalMean = mean
	s.EvalStdDev = nil
	if !math.IsNaN(std) {
		s.EvalStdDev = &std
	}
}

// Server serves the most recently published Status
type Server struct {
	mu     sync.RWMutex
	status Status

	registry  *prometheus.Registry
	iteration prometheus.Gauge
	episode   prometheus.Gauge
	epsilon   prometheus.Gauge
	lastScore prometheus.Gauge
	bestScore prometheus.Gauge
	occupancy prometheus.Gauge
	loss      prometheus.Gauge
	evalMean  prometheus.Gauge

	server *http.Server
}

func newGauge(name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "goatari",
		Name:      name,
		Help:      help,
	})
}

// New returns a new Server which will listen on addr once started
func New(addr string) *Server {
	s := &Server{
		registry:  prometheus.NewRegistry(),
		iteration: newGauge("iteration", "Learning updates performed."),
		episode:   newGauge("episode", "Training episodes played."),
		epsilon:   newGauge("epsilon", "Current exploration probability."),
		lastScore: newGauge("last_score", "Score of the last episode."),
		bestScore: newGauge("best_score", "Best evaluation score."),
		occupancy: newGauge("replay_occupancy",
			"Transitions in the replay memory."),
		loss:     newGauge("loss", "Loss of the last learning update."),
		evalMean: newGauge("eval_mean", "Mean score of the last evaluation."),
	}
	s.registry.MustRegister(s.iteration, s.episode, s.epsilon, s.lastScore,
		s.bestScore, s.occupancy, s.loss, s.evalMean)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.GET("/status", s.handleStatus)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry,
		promhttp.HandlerOpts{})))

	s.server = &http.Server{
		Addr:    addr,
		Handler: r,
	}
	return s
}

// Handler returns the HTTP handler of the Server
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Publish replaces the served Status
func (s *Server) Publish(status Status) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()

	s.iteration.Set(float64(status.Iteration))
	s.episode.Set(float64(status.Episode))
	s.epsilon.Set(status.Epsilon)
	s.lastScore.Set(status.LastScore)
	s.bestScore.Set(status.BestScore)
	s.occupancy.Set(float64(status.ReplayOccupancy))
	s.loss.Set(status.Loss)
	s.evalMean.Set(status.EvalMean)
}

// Status returns the most recently published Status
func (s *Server) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.Status())
}

// Start starts serving in a new goroutine
func (s *Server) Start() {
	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			glog.Errorf("monitor: %v", err)
		}
	}()
}

// Shutdown stops the Server, waiting at most two seconds for open
// requests to complete
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
