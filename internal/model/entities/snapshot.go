package entities

import "math"

// MoistureADCMax is the full-scale value of the soil probe ADC (12 bit).
const MoistureADCMax = 4095

// Snapshot is one sensor reading after the sentinel values have been tagged.
type Snapshot struct {
	Temperature Reading `json:"temperature"`
	Humidity    Reading `json:"humidity"`
	// SoilMoisture holds the raw ADC value (0 wet .. 4095 dry).
	SoilMoisture Reading `json:"soil_moisture"`
	// Millis is the uptime counter of the field node; nil when absent.
	Millis *int64 `json:"millis,omitempty"`
}

// LinkDown reports whether the remote node flagged its link as down.
// Only the temperature channel carries that sentinel.
func (s Snapshot) LinkDown() bool {
	return s.Temperature.Health == HealthLinkDown
}

// MoisturePercent converts the raw probe value into a percentage,
// rounding halves up.
func MoisturePercent(raw float64) float64 {
	return math.Floor((1-raw/MoistureADCMax)*100 + 0.5)
}

// MoisturePercent is the percentage view of the soil probe; the health tag
// of the raw reading is carried over.
func (s Snapshot) MoisturePercent() Reading {
	return Reading{Value: MoisturePercent(s.SoilMoisture.Value), Health: s.SoilMoisture.Health}
}
