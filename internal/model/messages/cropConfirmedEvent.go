package messages

import (
	"time"

	"github.com/LeonardoBeccarini/sdcc_dashboard/internal/model/entities"
)

// CropConfirmedEvent records thresholds accepted by the backend, either for
// a confirmed crop or the defaults after a reset.
type CropConfirmedEvent struct {
	EventID    string              `json:"event_id"`
	Crop       string              `json:"crop,omitempty"`
	Thresholds entities.Thresholds `json:"thresholds"`
	Reset      bool                `json:"reset"`
	Timestamp  time.Time           `json:"timestamp"`
}
