package models

import "time"

// ControlEvent is a single operational log entry.
type ControlEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // START | STOP | EMERGENCY_STOP | OVERRIDE | RESUME | CONFIG_CHANGE | ERROR
	JunctionID  string    `json:"junction_id,omitempty"`
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}
