package models

import "time"

// Signal colors.
const (
	ColorRed    = "red"
	ColorYellow = "yellow"
	ColorGreen  = "green"
)

// Junction operating modes.
const (
	ModeAuto   = "auto"
	ModeManual = "manual"
)

// Light is the signal state of one direction within a junction.
type Light struct {
	Direction        string `json:"direction"`
	Color            string `json:"color"` // red | yellow | green
	RemainingSeconds int    `json:"remaining_time"`
	// Per-direction duration overrides; zero means "use the junction default".
	GreenSeconds  int `json:"green_duration,omitempty"`
	YellowSeconds int `json:"yellow_duration,omitempty"`
	// Back-reference to a backend-tracked physical light record.
	// Empty for purely simulated lights.
	TrafficLightID string `json:"traffic_light_id,omitempty"`
}

// Junction is one traffic intersection with multiple directional signals.
// Directions holds the fixed rotation order; Lights is keyed by direction code.
type Junction struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Mode          string           `json:"mode"` // auto | manual
	CurrentActive string           `json:"current_active"`
	Directions    []string         `json:"directions"`
	Lights        map[string]Light `json:"lights"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// ActiveLight returns the light for the currently active direction, if any.
func (j Junction) ActiveLight() (Light, bool) {
	l, ok := j.Lights[j.CurrentActive]
	return l, ok
}
