package valve

import (
	"context"
	"errors"
	"time"

	"github.com/bjaus/piper"
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values recorded by the Metrics valve.
const (
	OutcomeSuccess  = "success"
	OutcomeError    = "error"
	OutcomeCanceled = "canceled"
)

// Metrics holds the Prometheus collectors shared by Observe valves. Create
// one per registry and attach Observe to as many pipelines as needed.
type Metrics struct {
	duration *prometheus.HistogramVec
	total    *prometheus.CounterVec
	inFlight *prometheus.GaugeVec
}

// NewMetrics creates and registers the collectors with reg. All series are
// labeled by request and response type; totals and durations also by
// outcome.
func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	m := &Metrics{
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "piper",
				Name:      "request_duration_seconds",
				Help:      "Pipeline duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"request", "response", "outcome"},
		),
		total: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "piper",
				Name:      "requests_total",
				Help:      "Requests sent through a pipeline.",
			},
			[]string{"request", "response", "outcome"},
		),
		inFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "piper",
				Name:      "requests_in_flight",
				Help:      "Requests currently inside a pipeline.",
			},
			[]string{"request", "response"},
		),
	}
	for _, c := range []prometheus.Collector{m.duration, m.total, m.inFlight} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Observe returns a valve that records duration, outcome, and in-flight
// count for the pipeline it is attached to.
func Observe[R, T any](m *Metrics) piper.Valve[R, T] {
	key := piper.KeyOf[R, T]()
	req, resp := key.Request.String(), key.Response.String()
	inFlight := m.inFlight.WithLabelValues(req, resp)

	return piper.ValveFunc[R, T](func(ctx context.Context, r R, next piper.Next[R, T]) (T, error) {
		inFlight.Inc()
		defer inFlight.Dec()

		start := time.Now()
		out, err := next(ctx, r)
		outcome := outcomeOf(err)

		m.total.WithLabelValues(req, resp, outcome).Inc()
		m.duration.WithLabelValues(req, resp, outcome).Observe(time.Since(start).Seconds())
		return out, err
	})
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	default:
		return OutcomeError
	}
}
