package runtime

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "topicflow"

// routeMetrics counts what the routing layer does with each message.
type routeMetrics struct {
	decoded      *prometheus.CounterVec
	unrecognized *prometheus.CounterVec
	published    *prometheus.CounterVec
}

func newRouteCounterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "route",
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

// newRouteMetrics creates the route counters and registers them with reg.
// A nil reg leaves them unregistered. Counters already registered by another
// service on the same registerer are shared.
func newRouteMetrics(reg prometheus.Registerer) (*routeMetrics, error) {
	m := &routeMetrics{
		decoded:      newRouteCounterVec("decoded_total", "Messages decoded into a shape.", "handler", "shape"),
		unrecognized: newRouteCounterVec("unrecognized_total", "Messages no shape accepted.", "handler"),
		published:    newRouteCounterVec("published_total", "Messages encoded and published.", "shape"),
	}
	if reg == nil {
		return m, nil
	}

	var err error
	if m.decoded, err = registerCounterVec(reg, m.decoded); err != nil {
		return nil, err
	}
	if m.unrecognized, err = registerCounterVec(reg, m.unrecognized); err != nil {
		return nil, err
	}
	if m.published, err = registerCounterVec(reg, m.published); err != nil {
		return nil, err
	}
	return m, nil
}

func registerCounterVec(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return c, nil
}

func (m *routeMetrics) onDecoded(handler, shape string) {
	m.decoded.WithLabelValues(handler, shape).Inc()
}

func (m *routeMetrics) onUnrecognized(handler string) {
	m.unrecognized.WithLabelValues(handler).Inc()
}

func (m *routeMetrics) onPublished(shape string) {
	m.published.WithLabelValues(shape).Inc()
}
