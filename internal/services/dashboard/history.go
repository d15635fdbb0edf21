package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api"
)

// HistoryPoint is one stored snapshot as served by /api/history.
type HistoryPoint struct {
	Time        string   `json:"time"`
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
	SoilPercent *float64 `json:"soil_moisture_pct"`
	Link        string   `json:"link,omitempty"`
}

// historyParams are the query knobs of /api/history, already clamped.
type historyParams struct {
	Minutes   int
	Limit     int
	TimeoutMS int
}

// historyBound is the default and accepted range of one query parameter.
type historyBound struct {
	def, min, max int
}

var (
	historyMinutes = historyBound{def: 60, min: 1, max: 7 * 24 * 60}
	historyLimit   = historyBound{def: 100, min: 1, max: 500}
	historyTimeout = historyBound{def: 2000, min: 200, max: 5000}
)

// read returns the clamped integer in raw, or the default when raw is blank or
// not a number.
func (b historyBound) read(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return b.def
	}
	return max(b.min, min(n, b.max))
}

// buildHistoryFlux pivots the snapshot fields into one row per write and
// merges the per-tag tables so sort and limit apply to the whole window.
func buildHistoryFlux(bucket, measurement string, minutes, limit int) string {
	return fmt.Sprintf(`
from(bucket: %q)
  |> range(start: -%dm)
  |> filter(fn: (r) => r._measurement == %q)
  |> pivot(rowKey: ["_time"], columnKey: ["_field"], valueColumn: "_value")
  |> keep(columns: ["_time","link","temperature","temperature_health","humidity","humidity_health","soil_moisture_pct","soil_health"])
  |> group()
  |> sort(columns: ["_time"], desc: true)
  |> limit(n:%d)
`, bucket, minutes, measurement, limit)
}

// healthyValue returns the field only when its health column says ok.
func healthyValue(values map[string]interface{}, field, health string) *float64 {
	if h, _ := values[health].(string); h != "ok" {
		return nil
	}
	var f float64
	switch v := values[field].(type) {
	case float64:
		f = v
	case int64:
		f = float64(v)
	default:
		return nil
	}
	return &f
}

type historyHandler struct {
	query       api.QueryAPI
	bucket      string
	measurement string
}

// newHistoryHandler serves GET /api/history?minutes=60&limit=100.
func newHistoryHandler(q api.QueryAPI, bucket, measurement string) http.Handler {
	if measurement == "" {
		measurement = defaultMeasurement
	}
	return &historyHandler{query: q, bucket: bucket, measurement: measurement}
}

func (h *historyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if h.query == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("[]"))
		return
	}
	q := r.URL.Query()
	p := historyParams{
		Minutes:   historyMinutes.read(q.Get("minutes")),
		Limit:     historyLimit.read(q.Get("limit")),
		TimeoutMS: historyTimeout.read(q.Get("timeout_ms")),
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(p.TimeoutMS)*time.Millisecond)
	defer cancel()

	res, err := h.query.Query(ctx, buildHistoryFlux(h.bucket, h.measurement, p.Minutes, p.Limit))
	if err != nil {
		w.Header().Set("X-Error", "influx-query-error")
		_, _ = w.Write([]byte("[]"))
		return
	}
	defer res.Close()

	out := make([]HistoryPoint, 0, p.Limit)
	for res.Next() {
		rec := res.Record()
		values := rec.Values()
		link, _ := values["link"].(string)
		out = append(out, HistoryPoint{
			Time:        rec.Time().UTC().Format(time.RFC3339),
			Temperature: healthyValue(values, "temperature", "temperature_health"),
			Humidity:    healthyValue(values, "humidity", "humidity_health"),
			SoilPercent: healthyValue(values, "soil_moisture_pct", "soil_health"),
			Link:        link,
		})
	}
	if res.Err() != nil {
		w.Header().Set("X-Error", "influx-iter-error")
	}
	_ = json.NewEncoder(w).Encode(out)
}
