package messages

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/LeonardoBeccarini/sdcc_dashboard/internal/model/entities"
)

// CropInfoResponse is returned by GET /crop-info. Info is either an object or
// the same object encoded as a JSON string (the backend forwards the model
// output verbatim).
type CropInfoResponse struct {
	Crop  string          `json:"crop"`
	Info  json.RawMessage `json:"info"`
	Error string          `json:"error,omitempty"`
}

func (r CropInfoResponse) Profile() (entities.CropProfile, error) {
	raw := bytes.TrimSpace(r.Info)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return entities.CropProfile{}, errors.New("crop info missing")
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return entities.CropProfile{}, fmt.Errorf("crop info string: %w", err)
		}
		raw = []byte(s)
	}
	var p entities.CropProfile
	if err := json.Unmarshal(raw, &p); err != nil {
		return entities.CropProfile{}, fmt.Errorf("crop info: %w", err)
	}
	p.Crop = r.Crop
	return p, nil
}

// ConfirmCropResponse is the body of /confirm_crop; Message is only set on
// failure.
type ConfirmCropResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
