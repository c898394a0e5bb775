package service

import (
	"context"
	"time"

	"traffic_control/internal/inventory"
	"traffic_control/internal/logger"
	"traffic_control/internal/metrics"
	"traffic_control/internal/models"
	"traffic_control/internal/repository"
	"traffic_control/internal/routing"
)

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Scheduler drives the per-junction cycling loops and owns the run flag.
type Scheduler interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	EmergencyStop(ctx context.Context) error
	IsRunning() bool
}

// Override exposes the operator's out-of-band controls: force-green,
// resume-auto, and duration edits.
type Override interface {
	ForceGreen(ctx context.Context, junctionID, direction string, seconds int) error
	ResumeAuto(ctx context.Context, junctionID, direction string) error
	SaveDurations(ctx context.Context, junctionID, direction string, green, yellow int) error
}

// Junctions serves junction reads and initialization.
type Junctions interface {
	GetJunction(ctx context.Context, junctionID string) (models.Junction, error)
	ListJunctions(ctx context.Context) ([]models.Junction, error)
	CreateJunction(ctx context.Context, id, name string, directions []string) (models.Junction, error)
	SyncInventory(ctx context.Context, junctionID string) (int, error)
}

// EventLog records and serves operational events.
type EventLog interface {
	Record(ctx context.Context, e models.ControlEvent) error
	List(ctx context.Context, f LogFilter) ([]models.ControlEvent, error)
	Recent(limit int) []models.ControlEvent
}

// Eta correlates a tracked light's live state with travel-time estimates.
type Eta interface {
	Compare(ctx context.Context, lightID string, destLat, destLng float64) (EtaComparison, error)
}

// Service aggregates all sub-services.
type Service struct {
	Scheduler
	Override
	Junctions
	EventLog
	Eta
	Authorization
}

// Deps bundles everything the service layer is wired with.
type Deps struct {
	Repos      *repository.Repository
	Inventory  inventory.API
	Routes     routing.API
	Cycle      CycleConfig
	Tick       time.Duration
	Metrics    *metrics.Collector
	Log        *logger.Logger
	SigningKey string
}

// NewService wires the repository layer and external clients into the
// concrete services.
func NewService(d Deps) *Service {
	if d.Tick <= 0 {
		d.Tick = time.Second
	}
	if d.Metrics == nil {
		d.Metrics = metrics.NewCollector()
	}

	events := NewEventLogService(d.Repos.Events)
	engine := NewCycleEngine(d.Repos.Junctions, d.Cycle, d.Tick, d.Metrics, d.Log)

	return &Service{
		Scheduler:     NewSchedulerService(d.Repos.Junctions, engine, events, d.Tick, d.Metrics, d.Log),
		Override:      NewOverrideService(d.Repos.Junctions, d.Repos.TrafficLights, d.Inventory, events, d.Metrics, d.Log),
		Junctions:     NewJunctionsService(d.Repos.Junctions, d.Repos.TrafficLights, d.Inventory, d.Log),
		EventLog:      events,
		Eta:           NewEtaService(d.Repos.TrafficLights, d.Routes),
		Authorization: NewAuthService(d.Repos.Auth, d.SigningKey),
	}
}
