package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"traffic_control/internal/inventory"
	"traffic_control/internal/logger"
	"traffic_control/internal/models"
	"traffic_control/internal/repository"
)

var defaultDirections = []string{"A", "B", "C", "D"}

var errInvalidDirectionSet = errors.New("a junction needs 2 to 8 distinct directions")

// NewJunction builds an all-red junction in auto mode with the given
// rotation order.
func NewJunction(id, name string, directions []string) models.Junction {
	lights := make(map[string]models.Light, len(directions))
	for _, dir := range directions {
		lights[dir] = models.Light{
			Direction:        dir,
			Color:            models.ColorRed,
			RemainingSeconds: 0,
		}
	}
	return models.Junction{
		ID:         id,
		Name:       name,
		Mode:       models.ModeAuto,
		Directions: append([]string(nil), directions...),
		Lights:     lights,
		UpdatedAt:  time.Now().UTC(),
	}
}

// DefaultJunction is the stock four-direction layout used when a junction is
// first touched without prior configuration.
func DefaultJunction(id string) models.Junction {
	return NewJunction(id, "Junction "+id, defaultDirections)
}

// JunctionsService serves reads and initialization of junction records.
type JunctionsService struct {
	junctions repository.JunctionRepo
	lights    repository.TrafficLightRepo
	inventory inventory.API
	log       *logger.Logger
}

func NewJunctionsService(junctions repository.JunctionRepo, lights repository.TrafficLightRepo, inv inventory.API, log *logger.Logger) *JunctionsService {
	return &JunctionsService{junctions: junctions, lights: lights, inventory: inv, log: log}
}

// GetJunction returns the stored junction, or an unsaved default snapshot
// when nothing is stored yet. Missing data is "needs initialization", not an
// error.
func (s *JunctionsService) GetJunction(ctx context.Context, junctionID string) (models.Junction, error) {
	j, err := s.junctions.Load(ctx, junctionID)
	if err != nil {
		return models.Junction{}, err
	}
	if j.ID == "" {
		return DefaultJunction(junctionID), nil
	}
	return j, nil
}

func (s *JunctionsService) ListJunctions(ctx context.Context) ([]models.Junction, error) {
	return s.junctions.List(ctx)
}

// CreateJunction initializes and persists a junction. An empty direction set
// falls back to the default rotation; an empty name falls back to the id.
func (s *JunctionsService) CreateJunction(ctx context.Context, id, name string, directions []string) (models.Junction, error) {
	if len(directions) == 0 {
		directions = defaultDirections
	}
	if err := validateDirections(directions); err != nil {
		return models.Junction{}, err
	}
	if name == "" {
		name = "Junction " + id
	}

	j := NewJunction(id, name, directions)
	if err := s.junctions.Save(ctx, j); err != nil {
		return models.Junction{}, err
	}
	s.log.Infow("junction_created", "junction", id, "directions", len(directions))
	return j, nil
}

func validateDirections(directions []string) error {
	if len(directions) < minDirections || len(directions) > maxDirections {
		return errInvalidDirectionSet
	}
	seen := make(map[string]struct{}, len(directions))
	for _, dir := range directions {
		if dir == "" {
			return errInvalidDirectionSet
		}
		if _, dup := seen[dir]; dup {
			return errInvalidDirectionSet
		}
		seen[dir] = struct{}{}
	}
	return nil
}

// SyncInventory resolves the backend-tracked light records of one
// intersection and attaches their ids to the junction's directions in
// rotation order. Records are mirrored into the legacy traffic_lights
// subtree so overrides can update them without another fetch. Returns how
// many directions were linked.
func (s *JunctionsService) SyncInventory(ctx context.Context, junctionID string) (int, error) {
	if s.inventory == nil {
		return 0, errors.New("inventory API not configured")
	}

	j, err := s.junctions.Load(ctx, junctionID)
	if err != nil {
		return 0, err
	}
	if j.ID == "" {
		return 0, ErrUnknownJunction
	}

	records, err := s.inventory.ListByIntersection(ctx, junctionID)
	if err != nil {
		return 0, fmt.Errorf("resolve tracked lights for %q: %w", junctionID, err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	linked := 0
	for i, dir := range j.Directions {
		if i >= len(records) {
			break
		}
		rec := records[i]
		l := j.Lights[dir]
		l.TrafficLightID = rec.ID
		j.Lights[dir] = l
		linked++

		if err := s.lights.Upsert(ctx, models.TrafficLightRecord{
			ID:        rec.ID,
			InterID:   junctionID,
			RoadID:    rec.RoadID,
			AutoOn:    rec.AutoMode,
			Color:     models.LegacyColorCode(l.Color),
			Timestamp: now,
		}); err != nil {
			s.log.Warnw("legacy_record_upsert_failed", "light", rec.ID, "err", err)
		}
	}

	if err := s.junctions.Save(ctx, j); err != nil {
		return 0, err
	}
	s.log.Infow("inventory_synced", "junction", junctionID, "linked", linked)
	return linked, nil
}
