package repository

import (
	"context"
	"database/sql"
	"time"

	"traffic_control/internal/models"
	repodb "traffic_control/internal/repository/db"
)

type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*models.User, error)
}

// JunctionRepo is the junction subtree of the shared state store
// (teams/{team}/junctions/{id} and its lights children).
type JunctionRepo interface {
	Save(ctx context.Context, j models.Junction) error
	Load(ctx context.Context, junctionID string) (models.Junction, error)
	List(ctx context.Context) ([]models.Junction, error)
	// UpdateLights writes every direction of one junction plus the junction's
	// current_active cursor in a single transaction.
	UpdateLights(ctx context.Context, junctionID, currentActive string, lights map[string]models.Light) error
	SetLight(ctx context.Context, junctionID string, l models.Light) error
	SetMode(ctx context.Context, junctionID, mode string) error
	SetDurations(ctx context.Context, junctionID, direction string, green, yellow int) error
}

// TrafficLightRepo is the legacy flat traffic_lights subtree
// (teams/{team}/traffic_lights/{lightId}).
type TrafficLightRepo interface {
	Get(ctx context.Context, lightID string) (models.TrafficLightRecord, error)
	Upsert(ctx context.Context, rec models.TrafficLightRecord) error
	SetSignal(ctx context.Context, lightID string, colorCode, remainTime int, autoOn bool, timestamp string) error
	Touch(ctx context.Context, lightID, timestamp string) error
}

type EventRepo interface {
	Append(ctx context.Context, e models.ControlEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.ControlEvent, error)
}

type Repository struct {
	Junctions     JunctionRepo
	TrafficLights TrafficLightRepo
	Events        EventRepo
	Auth          Authorization
}

// NewRepository wires the sqlite-backed store for one team's subtree.
func NewRepository(db *sql.DB, teamID string) *Repository {
	return &Repository{
		Junctions:     NewJunctionSQLite(db, teamID),
		TrafficLights: NewTrafficLightSQLite(db, teamID),
		Events:        NewEventSQLite(db),
		Auth:          NewUserRepository(db),
	}
}

// InitDB forwards to the db subpackage so callers wire everything through
// the repository package.
func InitDB(path string) (*sql.DB, error) {
	return repodb.InitDB(path)
}
