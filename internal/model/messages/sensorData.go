package messages

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/LeonardoBeccarini/sdcc_dashboard/internal/model/entities"
)

// SensorData is the latest reading served by GET /sensor-data.
// The backend stores whatever the field node posted, so numbers may arrive
// as strings and fields may be null before the first upload.
type SensorData struct {
	Temperature  *float64 `json:"temperature"`
	Humidity     *float64 `json:"humidity"`
	SoilMoisture *float64 `json:"soil_moisture"`
	Millis       *int64   `json:"millis"`
}

func (d *SensorData) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	d.Temperature = number(m["temperature"])
	d.Humidity = number(m["humidity"])
	d.SoilMoisture = number(m["soil_moisture"])
	if f := number(m["millis"]); f != nil {
		v := int64(*f)
		d.Millis = &v
	}
	return nil
}

// number accepts JSON numbers or numeric strings; anything else is absent.
func number(v any) *float64 {
	switch x := v.(type) {
	case float64:
		return &x
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			return &f
		}
	}
	return nil
}

// Snapshot tags the sentinel values. A reading with any metric missing is
// rejected: there is nothing meaningful to plot or to judge health on.
func (d SensorData) Snapshot() (entities.Snapshot, error) {
	if d.Temperature == nil || d.Humidity == nil || d.SoilMoisture == nil {
		return entities.Snapshot{}, fmt.Errorf("sensor data incomplete")
	}
	return entities.Snapshot{
		Temperature:  entities.NewReading(*d.Temperature),
		Humidity:     entities.NewReading(*d.Humidity),
		SoilMoisture: entities.NewReading(*d.SoilMoisture),
		Millis:       d.Millis,
	}, nil
}
