package entities

// Health is the tagged form of the sentinel values the field node reports
// instead of a measurement.
type Health int

const (
	HealthOK Health = iota
	// HealthSensorDamaged is reported as -100 by the remote node.
	HealthSensorDamaged
	// HealthLinkDown is reported as -101 when the remote node is unreachable.
	HealthLinkDown
)

const (
	SentinelSensorDamaged = -100
	SentinelLinkDown      = -101
)

func (h Health) String() string {
	switch h {
	case HealthOK:
		return "ok"
	case HealthSensorDamaged:
		return "sensor_damaged"
	case HealthLinkDown:
		return "link_down"
	default:
		return "unknown"
	}
}

// ClassifyReading maps a raw wire value onto its health tag.
func ClassifyReading(v float64) Health {
	switch v {
	case SentinelSensorDamaged:
		return HealthSensorDamaged
	case SentinelLinkDown:
		return HealthLinkDown
	default:
		return HealthOK
	}
}

// Reading is one metric of a snapshot together with its health.
type Reading struct {
	Value  float64 `json:"value"`
	Health Health  `json:"health"`
}

func NewReading(v float64) Reading {
	return Reading{Value: v, Health: ClassifyReading(v)}
}

func (r Reading) OK() bool      { return r.Health == HealthOK }
func (r Reading) Damaged() bool { return r.Health == HealthSensorDamaged }
