package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"traffic_control/internal/inventory"
	"traffic_control/internal/logger"
	"traffic_control/internal/metrics"
	"traffic_control/internal/models"
	"traffic_control/internal/repository"
)

var (
	ErrUnknownJunction  = errors.New("junction not found")
	ErrUnknownDirection = errors.New("direction not found in junction")

	errInvalidOverride  = errors.New("override duration must be >= 1 second")
	errInvalidDurations = errors.New("green and yellow durations must be >= 1 second")
)

// OverrideService lets an operator bypass the scheduler: force one direction
// to green, hand control back to automatic cycling, and edit per-direction
// durations. All writes go straight to the store paths the scheduler uses;
// the scheduler's next natural tick for that junction supersedes them. That
// last-writer-wins behavior is deliberate and unlocked.
type OverrideService struct {
	junctions repository.JunctionRepo
	lights    repository.TrafficLightRepo
	inventory inventory.API
	events    EventLog
	metrics   *metrics.Collector
	log       *logger.Logger
}

func NewOverrideService(junctions repository.JunctionRepo, lights repository.TrafficLightRepo, inv inventory.API, events EventLog, m *metrics.Collector, log *logger.Logger) *OverrideService {
	return &OverrideService{
		junctions: junctions,
		lights:    lights,
		inventory: inv,
		events:    events,
		metrics:   m,
		log:       log,
	}
}

// ForceGreen immediately sets one direction to green for the given number of
// seconds and puts the junction into manual posture. When the light is
// backed by a tracked inventory record, the color change is propagated there
// as a best-effort secondary write; its failure never rolls back the primary.
func (s *OverrideService) ForceGreen(ctx context.Context, junctionID, direction string, seconds int) error {
	if seconds < 1 {
		return errInvalidOverride
	}

	j, err := s.junctions.Load(ctx, junctionID)
	if err != nil {
		return err
	}
	if j.ID == "" {
		return ErrUnknownJunction
	}
	l, ok := j.Lights[direction]
	if !ok {
		return ErrUnknownDirection
	}

	// Primary store write.
	l.Color = models.ColorGreen
	l.RemainingSeconds = seconds
	if err := s.junctions.SetLight(ctx, junctionID, l); err != nil {
		return err
	}
	if err := s.junctions.SetMode(ctx, junctionID, models.ModeManual); err != nil {
		return err
	}
	s.metrics.RecordOverride()

	// Secondary writes for tracked lights, best-effort.
	if l.TrafficLightID != "" {
		now := time.Now().UTC().Format(time.RFC3339)
		if err := s.lights.SetSignal(ctx, l.TrafficLightID, models.LegacyColorGreen, seconds, false, now); err != nil {
			s.log.Warnw("legacy_record_update_failed", "light", l.TrafficLightID, "err", err)
		}
		if s.inventory != nil {
			if err := s.inventory.UpdateLight(ctx, l.TrafficLightID, inventory.UpdateParams{
				CurrentColor: models.ColorGreen,
				AutoMode:     false,
				Status:       "active",
			}); err != nil {
				s.log.Warnw("inventory_update_failed", "light", l.TrafficLightID, "err", err)
			}
		}
	}

	s.log.Infow("force_green", "junction", junctionID, "direction", direction, "seconds", seconds)
	_ = s.events.Record(ctx, models.ControlEvent{
		Type:        EventOverride,
		JunctionID:  junctionID,
		Description: fmt.Sprintf("Direction %s forced green for %ds", direction, seconds),
	})
	return nil
}

// ResumeAuto returns the junction to automatic posture and re-enables the
// tracked record's auto mode. It does not move the scheduler's cursor; a
// running scheduler simply continues from wherever its loop is.
func (s *OverrideService) ResumeAuto(ctx context.Context, junctionID, direction string) error {
	j, err := s.junctions.Load(ctx, junctionID)
	if err != nil {
		return err
	}
	if j.ID == "" {
		return ErrUnknownJunction
	}
	l, ok := j.Lights[direction]
	if !ok {
		return ErrUnknownDirection
	}

	if err := s.junctions.SetMode(ctx, junctionID, models.ModeAuto); err != nil {
		return err
	}

	if l.TrafficLightID != "" {
		now := time.Now().UTC().Format(time.RFC3339)
		if s.inventory != nil {
			if err := s.inventory.UpdateLight(ctx, l.TrafficLightID, inventory.UpdateParams{
				CurrentColor: l.Color,
				AutoMode:     true,
				Status:       "active",
			}); err != nil {
				s.log.Warnw("inventory_update_failed", "light", l.TrafficLightID, "err", err)
			}
		}
		if err := s.lights.Touch(ctx, l.TrafficLightID, now); err != nil {
			s.log.Warnw("legacy_record_touch_failed", "light", l.TrafficLightID, "err", err)
		}
	}

	s.log.Infow("resume_auto", "junction", junctionID, "direction", direction)
	_ = s.events.Record(ctx, models.ControlEvent{
		Type:        EventResume,
		JunctionID:  junctionID,
		Description: fmt.Sprintf("Direction %s returned to automatic cycling", direction),
	})
	return nil
}

// SaveDurations persists per-direction green/yellow durations. They apply
// from the direction's next computed phase; the phase in progress keeps the
// remaining time it already shows.
func (s *OverrideService) SaveDurations(ctx context.Context, junctionID, direction string, green, yellow int) error {
	if green < 1 || yellow < 1 {
		return errInvalidDurations
	}

	j, err := s.junctions.Load(ctx, junctionID)
	if err != nil {
		return err
	}
	if j.ID == "" {
		return ErrUnknownJunction
	}
	if _, ok := j.Lights[direction]; !ok {
		return ErrUnknownDirection
	}

	if err := s.junctions.SetDurations(ctx, junctionID, direction, green, yellow); err != nil {
		return err
	}

	s.log.Infow("durations_saved", "junction", junctionID, "direction", direction, "green_s", green, "yellow_s", yellow)
	_ = s.events.Record(ctx, models.ControlEvent{
		Type:        EventConfigChange,
		JunctionID:  junctionID,
		Description: fmt.Sprintf("Direction %s durations set to green=%ds yellow=%ds", direction, green, yellow),
		Metadata:    map[string]any{"green_s": green, "yellow_s": yellow},
	})
	return nil
}
