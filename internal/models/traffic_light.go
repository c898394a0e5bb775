package models

// Legacy numeric color codes used by the flat traffic_lights records.
const (
	LegacyColorRed    = 1
	LegacyColorYellow = 2
	LegacyColorGreen  = 3
)

// TrafficLightRecord is the flat, inventory-style record kept alongside the
// junction tree for backend-tracked physical lights.
type TrafficLightRecord struct {
	ID         string  `json:"id"`
	InterID    string  `json:"interid"`
	RoadID     string  `json:"roadid"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	AutoOn     bool    `json:"autoON"`
	Color      int     `json:"color"` // 1=red, 2=yellow, 3=green
	RemainTime int     `json:"remaintime"`
	Timestamp  string  `json:"timestamp"` // ISO-8601
}

// LegacyColorCode maps a color name to its numeric legacy code.
// Unknown colors map to red.
func LegacyColorCode(color string) int {
	switch color {
	case ColorGreen:
		return LegacyColorGreen
	case ColorYellow:
		return LegacyColorYellow
	default:
		return LegacyColorRed
	}
}
