// Package metrics reports projection renders to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	gp "github.com/reoring/goprojection"
)

// Recorder implements goprojection.Observer with Prometheus collectors.
type Recorder struct {
	renders  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var _ gp.Observer = (*Recorder)(nil)

// NewRecorder creates the collectors and registers them with reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		renders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "goprojection",
				Name:      "renders_total",
				Help:      "Total number of projection renders",
			},
			[]string{"kind", "result", "code"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "goprojection",
				Name:      "render_duration_seconds",
				Help:      "Projection render duration in seconds",
				Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
			},
			[]string{"kind"},
		),
	}
	for _, c := range []prometheus.Collector{r.renders, r.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ObserveRender records one render outcome.
func (r *Recorder) ObserveRender(kind string, elapsed time.Duration, err error) {
	result, code := "ok", ""
	if err != nil {
		result, code = "error", gp.FirstCode(err)
		if code == "" {
			code = "internal"
		}
	}
	r.renders.WithLabelValues(kind, result, code).Inc()
	r.duration.WithLabelValues(kind).Observe(elapsed.Seconds())
}
