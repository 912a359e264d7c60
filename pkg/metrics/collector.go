package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/FlyingDododo/6dof-application/pkg/link"
	"github.com/FlyingDododo/6dof-application/pkg/motion"
)

// Collector bundles the Prometheus metrics for one command link and updates
// them from link events.
type Collector struct {
	gatherer prometheus.Gatherer

	PacketsSent     *prometheus.CounterVec
	SendFailures    prometheus.Counter
	ConnectAttempts *prometheus.CounterVec
	Disconnects     prometheus.Counter
	Presets         *prometheus.CounterVec

	SessionConnected prometheus.Gauge
	AxisValue        *prometheus.GaugeVec
	PacketBytes      prometheus.Gauge
}

// NewCollector registers the link metrics against reg, defaulting to the
// global registry when nil. Registering twice on the same registry reuses the
// existing collectors.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	sent, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chair_packets_sent_total",
		Help: "Command packets written to the chair, labeled by protocol variant.",
	}, []string{"variant"}), "chair_packets_sent_total")
	if err != nil {
		return nil, err
	}
	failures, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chair_send_failures_total",
		Help: "Packet sends that failed and forced a disconnect.",
	}), "chair_send_failures_total")
	if err != nil {
		return nil, err
	}
	attempts, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chair_connect_attempts_total",
		Help: "Connect attempts, labeled by result (ok, error).",
	}, []string{"result"}), "chair_connect_attempts_total")
	if err != nil {
		return nil, err
	}
	disconnects, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chair_disconnects_total",
		Help: "Sessions ended, gracefully or forced.",
	}), "chair_disconnects_total")
	if err != nil {
		return nil, err
	}
	presets, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chair_presets_total",
		Help: "Presets executed, labeled by preset name.",
	}, []string{"preset"}), "chair_presets_total")
	if err != nil {
		return nil, err
	}
	connected, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chair_session_connected",
		Help: "1 while a session is open, 0 otherwise.",
	}), "chair_session_connected")
	if err != nil {
		return nil, err
	}
	axis, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "chair_axis_value",
		Help: "Axis value carried by the last sent packet.",
	}, []string{"axis"}), "chair_axis_value")
	if err != nil {
		return nil, err
	}
	size, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chair_packet_bytes",
		Help: "Size of the last sent packet in bytes.",
	}), "chair_packet_bytes")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:         gatherer,
		PacketsSent:      sent,
		SendFailures:     failures,
		ConnectAttempts:  attempts,
		Disconnects:      disconnects,
		Presets:          presets,
		SessionConnected: connected,
		AxisValue:        axis,
		PacketBytes:      size,
	}, nil
}

// Handle implements link.Sink.
func (c *Collector) Handle(ev link.Event) {
	if c == nil {
		return
	}
	switch ev.Kind {
	case link.ConnectSucceeded:
		c.ConnectAttempts.WithLabelValues("ok").Inc()
		c.SessionConnected.Set(1)
	case link.ConnectFailed:
		c.ConnectAttempts.WithLabelValues("error").Inc()
	case link.Disconnected:
		c.Disconnects.Inc()
		c.SessionConnected.Set(0)
	case link.PacketSent:
		c.PacketsSent.WithLabelValues(ev.Variant.String()).Inc()
		c.PacketBytes.Set(float64(len(ev.Packet)))
		for _, a := range motion.Axes {
			c.AxisValue.WithLabelValues(a.String()).Set(float64(ev.Pose.Get(a)))
		}
	case link.SendFailed:
		c.SendFailures.Inc()
	case link.PresetExecuted:
		c.Presets.WithLabelValues(ev.Preset.String()).Inc()
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
