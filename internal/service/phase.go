package service

import (
	"errors"
	"fmt"

	"traffic_control/internal/models"
)

// CycleConfig holds the junction-level default phase durations in seconds.
// RedSeconds only matters for a standalone three-color clock; inside a
// junction rotation, red is the implicit waiting state and its length is
// derived from the other directions' turns.
type CycleConfig struct {
	GreenSeconds  int
	YellowSeconds int
	RedSeconds    int
}

const (
	DefaultGreenSeconds  = 30
	DefaultYellowSeconds = 5
	DefaultRedSeconds    = 60
)

var errInvalidDuration = errors.New("phase durations must be >= 1 second")

// DefaultCycleConfig returns the stock durations used when the config file
// does not override them.
func DefaultCycleConfig() CycleConfig {
	return CycleConfig{
		GreenSeconds:  DefaultGreenSeconds,
		YellowSeconds: DefaultYellowSeconds,
		RedSeconds:    DefaultRedSeconds,
	}
}

// Validate rejects non-positive durations.
func (c CycleConfig) Validate() error {
	if c.GreenSeconds < 1 || c.YellowSeconds < 1 || c.RedSeconds < 1 {
		return errInvalidDuration
	}
	return nil
}

// CycleTime is the number of seconds one direction's full turn takes.
func (c CycleConfig) CycleTime() int {
	return c.GreenSeconds + c.YellowSeconds
}

// NextPhase returns the color following current and how long it lasts.
// Pure computation, no I/O.
func (c CycleConfig) NextPhase(current string) (string, int, error) {
	switch current {
	case models.ColorGreen:
		return models.ColorYellow, c.YellowSeconds, nil
	case models.ColorYellow:
		return models.ColorRed, c.RedSeconds, nil
	case models.ColorRed:
		return models.ColorGreen, c.GreenSeconds, nil
	default:
		return "", 0, fmt.Errorf("unknown signal color %q", current)
	}
}
