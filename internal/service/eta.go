package service

import (
	"context"

	"traffic_control/internal/models"
	"traffic_control/internal/repository"
	"traffic_control/internal/routing"
)

// Band values for the live-vs-typical comparison.
const (
	BandSlower      = "slower"
	BandFaster      = "faster"
	BandNearTypical = "near_typical"
)

// etaThresholdSeconds is the banding threshold: more than 3 minutes off the
// typical travel time counts as slower/faster.
const etaThresholdSeconds = 180

// EtaComparison correlates one tracked light's live signal state with the
// routing service's travel-time estimate toward a destination.
type EtaComparison struct {
	LightID          string `json:"light_id"`
	Color            string `json:"color"`
	RemainingSeconds int    `json:"remaining_time"`
	TypicalSeconds   int    `json:"typical_travel_time"`
	LiveSeconds      int    `json:"live_travel_time"`
	DeltaSeconds     int    `json:"delta_seconds"`
	Band             string `json:"band"`
}

type EtaService struct {
	lights repository.TrafficLightRepo
	routes routing.API
}

func NewEtaService(lights repository.TrafficLightRepo, routes routing.API) *EtaService {
	return &EtaService{lights: lights, routes: routes}
}

// Compare reads the light's live record and bands current conditions against
// the typical travel time to the destination. Read-only.
func (s *EtaService) Compare(ctx context.Context, lightID string, destLat, destLng float64) (EtaComparison, error) {
	rec, err := s.lights.Get(ctx, lightID)
	if err != nil {
		return EtaComparison{}, err
	}

	est, err := s.routes.Estimate(ctx, rec.Lat, rec.Lng, destLat, destLng)
	if err != nil {
		return EtaComparison{}, err
	}

	delta := est.LiveSeconds - est.TypicalSeconds
	band := BandNearTypical
	switch {
	case delta > etaThresholdSeconds:
		band = BandSlower
	case delta < -etaThresholdSeconds:
		band = BandFaster
	}

	return EtaComparison{
		LightID:          rec.ID,
		Color:            legacyColorName(rec.Color),
		RemainingSeconds: rec.RemainTime,
		TypicalSeconds:   est.TypicalSeconds,
		LiveSeconds:      est.LiveSeconds,
		DeltaSeconds:     delta,
		Band:             band,
	}, nil
}

func legacyColorName(code int) string {
	switch code {
	case models.LegacyColorGreen:
		return models.ColorGreen
	case models.LegacyColorYellow:
		return models.ColorYellow
	default:
		return models.ColorRed
	}
}
