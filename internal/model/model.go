package model

import (
	"github.com/LeonardoBeccarini/sdcc_dashboard/internal/model/entities"
	"github.com/LeonardoBeccarini/sdcc_dashboard/internal/model/messages"
)

// Aliases exposing the common types to the services.

type (
	SensorData       = messages.SensorData
	StateChangeEvent = messages.StateChangeEvent
	Snapshot         = entities.Snapshot
	Reading          = entities.Reading
	CropProfile      = entities.CropProfile
	Thresholds       = entities.Thresholds
	PumpState        = entities.PumpState
)

const (
	StateOn  = entities.StateOn
	StateOff = entities.StateOff
)
