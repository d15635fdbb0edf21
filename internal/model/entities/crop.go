package entities

// CropProfile is the irrigation guidance returned for a crop.
type CropProfile struct {
	Crop           string   `json:"crop"`
	Temperature    string   `json:"temperature"`
	SoilMoisture   string   `json:"soil_moisture"`
	Humidity       string   `json:"humidity"`
	IrrigationTips []string `json:"irrigation_tips"`
}

// Thresholds are the values the backend uses to drive automatic irrigation.
type Thresholds struct {
	Temperature  string `json:"temperature"`
	SoilMoisture string `json:"soil_moisture"`
	Humidity     string `json:"humidity"`
}

// ThresholdUnset marks a threshold that was not on screen when confirming.
const ThresholdUnset = "N/A"

// DefaultThresholds are restored when a crop selection is reset.
var DefaultThresholds = Thresholds{
	Temperature:  "20-30°C",
	SoilMoisture: "Moderate",
	Humidity:     "50-70%",
}

func (p CropProfile) Thresholds() Thresholds {
	return Thresholds{
		Temperature:  p.Temperature,
		SoilMoisture: p.SoilMoisture,
		Humidity:     p.Humidity,
	}
}
