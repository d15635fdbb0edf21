package dashboard

import (
	"encoding/json"
	"net/http"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// healthHandler reports on every dependency; it always answers 200.
type healthHandler struct {
	mqtt   mqtt.Client
	writer *InfluxWriter
	poller *TelemetryPoller
	up     *Upstream
}

func newHealthHandler(m mqtt.Client, w *InfluxWriter, p *TelemetryPoller, up *Upstream) http.Handler {
	return &healthHandler{mqtt: m, writer: w, poller: p, up: up}
}

type healthStatus struct {
	Status          string            `json:"status"`
	BackendOK       bool              `json:"backend_ok"`
	LastPollAgeS    float64           `json:"last_poll_age_sec"`
	MQTTEnabled     bool              `json:"mqtt_enabled"`
	MQTTConnected   bool              `json:"mqtt_connected"`
	InfluxEnabled   bool              `json:"influx_enabled"`
	LastWriteErrorS float64           `json:"last_write_error_age_sec,omitempty"`
	Breakers        map[string]string `json:"breakers"`
}

// backendOK is true when a poll succeeded within two intervals.
func backendOK(p *TelemetryPoller) (bool, time.Duration) {
	last := p.LastSuccess()
	if last.IsZero() {
		return false, 0
	}
	age := time.Since(last)
	return age <= 2*p.Interval(), age
}

func (h *healthHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	ok, age := backendOK(h.poller)
	st := healthStatus{
		BackendOK:     ok,
		LastPollAgeS:  age.Seconds(),
		MQTTEnabled:   h.mqtt != nil,
		MQTTConnected: h.mqtt != nil && h.mqtt.IsConnectionOpen(),
		InfluxEnabled: h.writer != nil,
		Breakers:      h.up.BreakerStates(),
	}
	if h.writer != nil {
		st.LastWriteErrorS = h.writer.LastErrorAge().Seconds()
	}

	depsOK := (!st.MQTTEnabled || st.MQTTConnected) &&
		(!st.InfluxEnabled || h.writer.LastErrorAge() > 30*time.Second)
	switch {
	case ok && depsOK:
		st.Status = "ok"
	case ok || st.MQTTConnected:
		st.Status = "degraded"
	default:
		st.Status = "down"
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(st)
}

// readyHandler answers 503 until the backend has been polled and every
// configured dependency is usable.
type readyHandler struct {
	mqtt     mqtt.Client
	writer   *InfluxWriter
	poller   *TelemetryPoller
	minError time.Duration
}

func newReadyHandler(m mqtt.Client, w *InfluxWriter, p *TelemetryPoller, minOkErrorAge time.Duration) http.Handler {
	return &readyHandler{mqtt: m, writer: w, poller: p, minError: minOkErrorAge}
}

func (h *readyHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	ready, _ := backendOK(h.poller)
	if h.mqtt != nil && !h.mqtt.IsConnectionOpen() {
		ready = false
	}
	if h.writer != nil && h.writer.LastErrorAge() <= h.minError {
		ready = false
	}
	w.Header().Set("Content-Type", "application/json")
	if !ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(struct {
		Ready bool `json:"ready"`
	}{Ready: ready})
}
