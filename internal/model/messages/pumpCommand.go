package messages

import "github.com/LeonardoBeccarini/sdcc_dashboard/internal/model/entities"

// PumpCommand is posted to /control-pump. Duration is in minutes and is 0
// when switching off.
type PumpCommand struct {
	Action   entities.PumpState `json:"action"`
	Duration int                `json:"duration"`
}

type PumpResponse struct {
	Status  string `json:"status"`
	Pump    string `json:"pump,omitempty"`
	Message string `json:"message,omitempty"`
}

func (r PumpResponse) OK() bool { return r.Status == "success" }
