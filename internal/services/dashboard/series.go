package dashboard

import (
	"sync"

	"github.com/LeonardoBeccarini/sdcc_dashboard/internal/model"
	"github.com/LeonardoBeccarini/sdcc_dashboard/internal/model/entities"
)

const defaultHistorySize = 20

// RollingSeries keeps the last N readings as four parallel sequences.
// Soil moisture is stored as a percentage.
type RollingSeries struct {
	mu           sync.RWMutex
	capacity     int
	labels       []string
	soilMoisture []entities.Reading
	temperature  []entities.Reading
	humidity     []entities.Reading
}

type SeriesSnapshot struct {
	Labels       []string           `json:"labels"`
	SoilMoisture []entities.Reading `json:"soil_moisture"`
	Temperature  []entities.Reading `json:"temperature"`
	Humidity     []entities.Reading `json:"humidity"`
}

func NewRollingSeries(capacity int) *RollingSeries {
	if capacity <= 0 {
		capacity = defaultHistorySize
	}
	return &RollingSeries{capacity: capacity}
}

// Append adds one entry and evicts the oldest one past capacity.
func (s *RollingSeries) Append(label string, snap model.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.labels = append(s.labels, label)
	s.soilMoisture = append(s.soilMoisture, snap.MoisturePercent())
	s.temperature = append(s.temperature, snap.Temperature)
	s.humidity = append(s.humidity, snap.Humidity)

	if n := len(s.labels) - s.capacity; n > 0 {
		s.labels = append([]string(nil), s.labels[n:]...)
		s.soilMoisture = append([]entities.Reading(nil), s.soilMoisture[n:]...)
		s.temperature = append([]entities.Reading(nil), s.temperature[n:]...)
		s.humidity = append([]entities.Reading(nil), s.humidity[n:]...)
	}
}

func (s *RollingSeries) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.labels)
}

func (s *RollingSeries) Snapshot() SeriesSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SeriesSnapshot{
		Labels:       append([]string(nil), s.labels...),
		SoilMoisture: append([]entities.Reading(nil), s.soilMoisture...),
		Temperature:  append([]entities.Reading(nil), s.temperature...),
		Humidity:     append([]entities.Reading(nil), s.humidity...),
	}
}

// chartValues turns readings into plot points; anything that is not a
// real measurement becomes a gap.
func chartValues(readings []entities.Reading) []*float64 {
	out := make([]*float64, len(readings))
	for i, r := range readings {
		if r.OK() {
			v := r.Value
			out[i] = &v
		}
	}
	return out
}
