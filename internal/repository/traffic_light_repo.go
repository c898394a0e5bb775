package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"traffic_control/internal/models"
)

type TrafficLightSQLite struct {
	db     *sql.DB
	teamID string
}

func NewTrafficLightSQLite(db *sql.DB, teamID string) *TrafficLightSQLite {
	return &TrafficLightSQLite{db: db, teamID: teamID}
}

var _ TrafficLightRepo = (*TrafficLightSQLite)(nil)

const (
	upsertTrafficLightSQL = `
		INSERT INTO traffic_lights (id, team_id, interid, roadid, lat, lng, auto_on, color, remaintime, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			interid=excluded.interid,
			roadid=excluded.roadid,
			lat=excluded.lat,
			lng=excluded.lng,
			auto_on=excluded.auto_on,
			color=excluded.color,
			remaintime=excluded.remaintime,
			timestamp=excluded.timestamp
	`

	selectTrafficLightSQL = `
		SELECT id, interid, roadid, lat, lng, auto_on, color, remaintime, timestamp
		FROM traffic_lights WHERE team_id=? AND id=?
	`
)

var ErrTrafficLightNotFound = errors.New("traffic light record not found")

// Get fetches one legacy record by id.
func (r *TrafficLightSQLite) Get(ctx context.Context, lightID string) (models.TrafficLightRecord, error) {
	row := r.db.QueryRowContext(ctx, selectTrafficLightSQL, r.teamID, lightID)

	var rec models.TrafficLightRecord
	if err := row.Scan(
		&rec.ID, &rec.InterID, &rec.RoadID, &rec.Lat, &rec.Lng,
		&rec.AutoOn, &rec.Color, &rec.RemainTime, &rec.Timestamp,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.TrafficLightRecord{}, ErrTrafficLightNotFound
		}
		return models.TrafficLightRecord{}, fmt.Errorf("select traffic light %q: %w", lightID, err)
	}
	return rec, nil
}

func (r *TrafficLightSQLite) Upsert(ctx context.Context, rec models.TrafficLightRecord) error {
	_, err := r.db.ExecContext(ctx, upsertTrafficLightSQL,
		rec.ID, r.teamID, rec.InterID, rec.RoadID, rec.Lat, rec.Lng,
		rec.AutoOn, rec.Color, rec.RemainTime, rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("upsert traffic light %q: %w", rec.ID, err)
	}
	return nil
}

// SetSignal overwrites the live signal fields of one record.
func (r *TrafficLightSQLite) SetSignal(ctx context.Context, lightID string, colorCode, remainTime int, autoOn bool, timestamp string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE traffic_lights SET color=?, remaintime=?, auto_on=?, timestamp=? WHERE team_id=? AND id=?`,
		colorCode, remainTime, autoOn, timestamp, r.teamID, lightID)
	if err != nil {
		return fmt.Errorf("set signal for %q: %w", lightID, err)
	}
	return nil
}

// Touch refreshes only the timestamp, signalling liveness after resume-auto.
func (r *TrafficLightSQLite) Touch(ctx context.Context, lightID, timestamp string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE traffic_lights SET timestamp=? WHERE team_id=? AND id=?`,
		timestamp, r.teamID, lightID)
	if err != nil {
		return fmt.Errorf("touch traffic light %q: %w", lightID, err)
	}
	return nil
}
