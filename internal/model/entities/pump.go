package entities

import "fmt"

// PumpState indicates whether the irrigation pump is on or off.
type PumpState string

const (
	StateOff PumpState = "off"
	StateOn  PumpState = "on"
)

func ParsePumpState(s string) (PumpState, error) {
	switch PumpState(s) {
	case StateOn, StateOff:
		return PumpState(s), nil
	}
	return "", fmt.Errorf("invalid pump action %q", s)
}
