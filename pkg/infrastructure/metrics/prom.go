package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vsinha/moplan/pkg/application/dto"
)

// PromSink records planning runs in Prometheus metrics.
type PromSink struct {
	runs        prometheus.Counter
	orders      *prometheus.CounterVec
	groups      prometheus.Counter
	skipped     prometheus.Counter
	phases      *prometheus.HistogramVec
	bookedHours *prometheus.GaugeVec
}

// NewPromSink registers planning metrics on the default Prometheus registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered by an earlier sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	runs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "moplan_runs_total",
		Help: "Total number of planning runs",
	})
	orders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "moplan_orders_total",
		Help: "Manufacturing orders processed, by final status",
	}, []string{"status"})
	groups := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "moplan_groups_created_total",
		Help: "Total number of production groups created",
	})
	skipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "moplan_anchors_skipped_total",
		Help: "Anchors that could not form a group",
	})
	phases := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "moplan_phase_duration_seconds",
		Help:    "Duration of each planning phase",
		Buckets: prometheus.DefBuckets,
	}, []string{"phase"})
	bookedHours := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "moplan_post_booked_hours",
		Help: "Hours booked on each post by the last run",
	}, []string{"post"})

	var err error
	if runs, err = register(reg, runs); err != nil {
		return nil, err
	}
	if orders, err = register(reg, orders); err != nil {
		return nil, err
	}
	if groups, err = register(reg, groups); err != nil {
		return nil, err
	}
	if skipped, err = register(reg, skipped); err != nil {
		return nil, err
	}
	if phases, err = register(reg, phases); err != nil {
		return nil, err
	}
	if bookedHours, err = register(reg, bookedHours); err != nil {
		return nil, err
	}

	return &PromSink{
		runs:        runs,
		orders:      orders,
		groups:      groups,
		skipped:     skipped,
		phases:      phases,
		bookedHours: bookedHours,
	}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return c, err
		}
		existing, ok := are.ExistingCollector.(C)
		if !ok {
			return c, fmt.Errorf("collector already registered with a different type: %w", err)
		}
		return existing, nil
	}
	return c, nil
}

// RecordRun updates every collector from the run summary.
func (s *PromSink) RecordRun(stats dto.RunStats) error {
	s.runs.Inc()
	for status, n := range stats.StatusCounts {
		s.orders.WithLabelValues(status.String()).Add(float64(n))
	}
	s.groups.Add(float64(stats.Groups))
	s.skipped.Add(float64(stats.SkippedAnchors))
	for phase, d := range stats.PhaseDurations {
		s.phases.WithLabelValues(phase).Observe(d.Seconds())
	}
	s.bookedHours.Reset()
	for post, hours := range stats.BookedHours {
		s.bookedHours.WithLabelValues(post).Set(hours)
	}
	return nil
}
