package warden

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors fed by the injector's observer
// hooks.
type Metrics struct {
	Materialized *prometheus.CounterVec
	Construction *prometheus.HistogramVec
	ResolveErrs  prometheus.Counter
	Actions      *prometheus.CounterVec
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		Materialized: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "singletons_materialized_total",
				Help:      "Singletons constructed, by reason.",
			},
			[]string{"reason"},
		),
		Construction: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "construction_duration_seconds",
				Help:      "Time spent in singleton providers.",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"reason"},
		),
		ResolveErrs: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolve_errors_total",
				Help:      "Failed resolve calls.",
			},
		),
		Actions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "actions_total",
				Help:      "Post-build actions run, by action and status.",
			},
			[]string{"action", "status"},
		),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.Materialized, m.Construction, m.ResolveErrs, m.Actions}
}

// Register registers every collector. Collectors already registered under the
// same descriptor are adopted so that several injectors can share a registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for i, c := range m.collectors() {
		err := reg.Register(c)
		if err == nil {
			continue
		}

		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return err
		}
		switch i {
		case 0:
			m.Materialized = are.ExistingCollector.(*prometheus.CounterVec)
		case 1:
			m.Construction = are.ExistingCollector.(*prometheus.HistogramVec)
		case 2:
			m.ResolveErrs = are.ExistingCollector.(prometheus.Counter)
		case 3:
			m.Actions = are.ExistingCollector.(*prometheus.CounterVec)
		}
	}
	return nil
}

func (m *Metrics) observeMaterialize(rec SingletonRecord) {
	reason := rec.Reason.String()
	m.Materialized.WithLabelValues(reason).Inc()
	m.Construction.WithLabelValues(reason).Observe(rec.Duration.Seconds())
}

func (m *Metrics) observeResolve(_ Key, _ time.Duration, err error) {
	if err != nil {
		m.ResolveErrs.Inc()
	}
}

func (m *Metrics) observeAction(action string, _ time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.Actions.WithLabelValues(action, status).Inc()
}

// WithPrometheus registers the warden_* collectors with reg and wires them to
// the observer hooks.
func WithPrometheus(reg prometheus.Registerer) Option {
	return func(cfg *buildConfig) {
		m := NewMetrics("warden")
		if err := m.Register(reg); err != nil {
			cfg.err = err
			return
		}
		cfg.onMaterialize = append(cfg.onMaterialize, m.observeMaterialize)
		cfg.onResolve = append(cfg.onResolve, m.observeResolve)
		cfg.onAction = append(cfg.onAction, m.observeAction)
	}
}
