package dashboard

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	registry     *prometheus.Registry
	pollCycles   *prometheus.CounterVec
	indicators   *prometheus.GaugeVec
	pumpCommands *prometheus.CounterVec
	cropActions  *prometheus.CounterVec
	seriesLength prometheus.Gauge
	wsClients    prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		pollCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dashboard",
			Name:      "poll_cycles_total",
			Help:      "Sensor data polls by result.",
		}, []string{"result"}),
		indicators: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dashboard",
			Name:      "indicator_up",
			Help:      "1 when the connection or sensor indicator is up.",
		}, []string{"indicator"}),
		pumpCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dashboard",
			Name:      "pump_commands_total",
			Help:      "Pump commands sent to the backend by action and result.",
		}, []string{"action", "result"}),
		cropActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dashboard",
			Name:      "crop_actions_total",
			Help:      "Crop lookups, confirmations and resets by result.",
		}, []string{"action", "result"}),
		seriesLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dashboard",
			Name:      "series_length",
			Help:      "Entries currently held in the rolling series.",
		}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dashboard",
			Name:      "websocket_clients",
			Help:      "Connected page renderers.",
		}),
	}
	m.registry.MustRegister(
		m.pollCycles, m.indicators, m.pumpCommands, m.cropActions, m.seriesLength, m.wsClients,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) PollCycle(err error) {
	if m == nil {
		return
	}
	m.pollCycles.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) SetIndicator(id string, up bool) {
	if m == nil {
		return
	}
	v := 0.0
	if up {
		v = 1
	}
	m.indicators.WithLabelValues(id).Set(v)
}

func (m *Metrics) PumpCommand(action string, err error) {
	if m == nil {
		return
	}
	m.pumpCommands.WithLabelValues(action, result(err)).Inc()
}

func (m *Metrics) CropAction(action string, err error) {
	if m == nil {
		return
	}
	m.cropActions.WithLabelValues(action, result(err)).Inc()
}

func (m *Metrics) SetSeriesLength(n int) {
	if m == nil {
		return
	}
	m.seriesLength.Set(float64(n))
}

func (m *Metrics) WSClients(delta int) {
	if m == nil {
		return
	}
	m.wsClients.Add(float64(delta))
}
