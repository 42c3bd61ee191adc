// Package metrics exports history activity as prometheus metrics.
//
// Collectors are registered on a caller-supplied registerer; nothing is
// registered globally.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dshills/rewind/internal/engine/history"
	"github.com/dshills/rewind/internal/event"
)

// Source is the part of a history manager the collectors observe.
type Source interface {
	Subscribe(filter event.Filter, handler event.Handler[history.Info]) (event.Subscription, error)
	UndoCount() int
	RedoCount() int
}

// Metrics holds the history collectors.
type Metrics struct {
	operations *prometheus.CounterVec
	undoDepth  prometheus.Gauge
	redoDepth  prometheus.Gauge

	reg prometheus.Registerer
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	m := &Metrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "history",
				Name:      "operations_total",
				Help:      "Total number of history operations by kind",
			},
			[]string{"kind"},
		),
		undoDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "undo_depth",
			Help:      "Current number of entries on the undo stack",
		}),
		redoDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "redo_depth",
			Help:      "Current number of entries on the redo stack",
		}),
	}

	for i, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			// Leave reg as it was
			for _, done := range m.collectors()[:i] {
				reg.Unregister(done)
			}
			return nil, err
		}
	}
	m.reg = reg

	// Pre-create series so every kind reports zero before its first event
	for _, k := range event.Kinds {
		m.operations.WithLabelValues(k.String())
	}
	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.operations, m.undoDepth, m.redoDepth}
}

// Unregister removes the collectors from the registerer they were
// registered on, so the same names can be registered again.
func (m *Metrics) Unregister() {
	for _, c := range m.collectors() {
		m.reg.Unregister(c)
	}
}

// Attach subscribes the collectors to src. Cancel the returned
// subscription to stop observing.
func (m *Metrics) Attach(src Source) (event.Subscription, error) {
	m.observeDepth(src)
	return src.Subscribe(event.All(), func(e event.Event[history.Info]) error {
		m.operations.WithLabelValues(e.Kind.String()).Inc()
		m.observeDepth(src)
		return nil
	})
}

func (m *Metrics) observeDepth(src Source) {
	m.undoDepth.Set(float64(src.UndoCount()))
	m.redoDepth.Set(float64(src.RedoCount()))
}
