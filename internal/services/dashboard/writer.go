package dashboard

import (
	"log"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/LeonardoBeccarini/sdcc_dashboard/internal/model/entities"
)

const defaultMeasurement = "sensor_snapshot"

// SnapshotSink stores every successfully polled snapshot.
type SnapshotSink interface {
	WriteSnapshot(snap entities.Snapshot, fresh bool, at time.Time)
}

type nopSink struct{}

func (nopSink) WriteSnapshot(entities.Snapshot, bool, time.Time) {}

// InfluxWriter wraps the async WriteAPI and remembers when the last write
// error happened for /healthz and /readyz.
type InfluxWriter struct {
	api         api.WriteAPI
	measurement string
	log         *log.Logger

	mu      sync.RWMutex
	lastErr time.Time
	written int64
}

func NewInfluxWriter(w api.WriteAPI, measurement string, logger *log.Logger) *InfluxWriter {
	if measurement == "" {
		measurement = defaultMeasurement
	}
	if logger == nil {
		logger = log.Default()
	}
	ww := &InfluxWriter{
		api:         w,
		measurement: measurement,
		log:         logger,
		lastErr:     time.Now().Add(-24 * time.Hour),
	}
	go func() {
		for err := range w.Errors() {
			if err != nil {
				ww.mu.Lock()
				ww.lastErr = time.Now()
				ww.mu.Unlock()
				ww.log.Printf("influx: write error: %v", err)
			}
		}
	}()
	return ww
}

func (w *InfluxWriter) WriteSnapshot(snap entities.Snapshot, fresh bool, at time.Time) {
	w.api.WritePoint(SnapshotToPoint(w.measurement, snap, fresh, at))
	w.mu.Lock()
	w.written++
	w.mu.Unlock()
}

// LastErrorAge is the time since the last write error.
func (w *InfluxWriter) LastErrorAge() time.Duration {
	if w == nil {
		return 99999 * time.Hour
	}
	w.mu.RLock()
	t := w.lastErr
	w.mu.RUnlock()
	return time.Since(t)
}

func (w *InfluxWriter) Written() int64 {
	if w == nil {
		return 0
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.written
}

func (w *InfluxWriter) Flush() {
	if w != nil {
		w.api.Flush()
	}
}

// SnapshotToPoint keeps raw values and health tags side by side so damaged
// readings can be filtered at query time.
func SnapshotToPoint(measurement string, snap entities.Snapshot, fresh bool, at time.Time) *write.Point {
	link := "up"
	if snap.LinkDown() {
		link = "down"
	}
	tags := map[string]string{
		"link":  link,
		"fresh": boolTag(fresh),
	}
	fields := map[string]interface{}{
		"temperature":        snap.Temperature.Value,
		"temperature_health": snap.Temperature.Health.String(),
		"humidity":           snap.Humidity.Value,
		"humidity_health":    snap.Humidity.Health.String(),
		"soil_moisture_raw":  snap.SoilMoisture.Value,
		"soil_moisture_pct":  snap.MoisturePercent().Value,
		"soil_health":        snap.SoilMoisture.Health.String(),
	}
	if snap.Millis != nil {
		fields["millis"] = *snap.Millis
	}
	return influxdb2.NewPoint(measurement, tags, fields, at)
}

func boolTag(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
