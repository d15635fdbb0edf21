package messages

import (
	"time"

	"github.com/LeonardoBeccarini/sdcc_dashboard/internal/model/entities"
)

// StateChangeEvent is published when the pump was switched successfully.
type StateChangeEvent struct {
	EventID   string             `json:"event_id"`
	NewState  entities.PumpState `json:"new_state"`
	Duration  time.Duration      `json:"duration"`
	Automatic bool               `json:"automatic"` // countdown expiry rather than a click
	Timestamp time.Time          `json:"timestamp"`
}

// IndicatorChangedEvent is published when a connection or sensor indicator
// flips between up and down.
type IndicatorChangedEvent struct {
	EventID   string    `json:"event_id"`
	Indicator string    `json:"indicator"`
	Up        bool      `json:"up"`
	Label     string    `json:"label"`
	Timestamp time.Time `json:"timestamp"`
}
