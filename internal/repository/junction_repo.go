package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"traffic_control/internal/models"
)

type JunctionSQLite struct {
	db     *sql.DB
	teamID string
}

func NewJunctionSQLite(db *sql.DB, teamID string) *JunctionSQLite {
	return &JunctionSQLite{db: db, teamID: teamID}
}

var _ JunctionRepo = (*JunctionSQLite)(nil)

const (
	upsertJunctionSQL = `
		INSERT INTO junctions (team_id, id, name, mode, current_active, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(team_id, id) DO UPDATE SET
			name=excluded.name,
			mode=excluded.mode,
			current_active=excluded.current_active,
			updated_at=excluded.updated_at
	`

	upsertLightSQL = `
		INSERT INTO junction_lights (team_id, junction_id, direction, position, color, remaining_s, green_s, yellow_s, traffic_light_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(team_id, junction_id, direction) DO UPDATE SET
			position=excluded.position,
			color=excluded.color,
			remaining_s=excluded.remaining_s,
			green_s=excluded.green_s,
			yellow_s=excluded.yellow_s,
			traffic_light_id=excluded.traffic_light_id
	`

	selectJunctionSQL = `
		SELECT id, name, mode, current_active, updated_at
		FROM junctions WHERE team_id=? AND id=?
	`

	selectLightsSQL = `
		SELECT direction, position, color, remaining_s, green_s, yellow_s, traffic_light_id
		FROM junction_lights WHERE team_id=? AND junction_id=?
		ORDER BY position ASC
	`

	updateLightStateSQL = `
		UPDATE junction_lights SET color=?, remaining_s=?
		WHERE team_id=? AND junction_id=? AND direction=?
	`

	updateActiveSQL = `
		UPDATE junctions SET current_active=?, updated_at=?
		WHERE team_id=? AND id=?
	`
)

// Save upserts the junction row and every light row in one transaction.
func (r *JunctionSQLite) Save(ctx context.Context, j models.Junction) error {
	tsUTC := j.UpdatedAt
	if tsUTC.IsZero() {
		tsUTC = time.Now().UTC()
	} else {
		tsUTC = tsUTC.UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save junction %q: %w", j.ID, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, upsertJunctionSQL,
		r.teamID, j.ID, j.Name, j.Mode, j.CurrentActive, tsUTC,
	); err != nil {
		return fmt.Errorf("upsert junction %q: %w", j.ID, err)
	}

	for pos, dir := range j.Directions {
		l := j.Lights[dir]
		if _, err := tx.ExecContext(ctx, upsertLightSQL,
			r.teamID, j.ID, dir, pos,
			l.Color, l.RemainingSeconds, l.GreenSeconds, l.YellowSeconds, l.TrafficLightID,
		); err != nil {
			return fmt.Errorf("upsert light %q/%q: %w", j.ID, dir, err)
		}
	}

	// Directions dropped from the rotation lose their rows, otherwise a
	// re-save with a smaller set would leave stale lights with colliding
	// positions behind.
	if err := r.pruneLights(ctx, tx, j); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save junction %q: %w", j.ID, err)
	}
	return nil
}

func (r *JunctionSQLite) pruneLights(ctx context.Context, tx *sql.Tx, j models.Junction) error {
	q := `DELETE FROM junction_lights WHERE team_id=? AND junction_id=?`
	args := []any{r.teamID, j.ID}
	if len(j.Directions) > 0 {
		q += ` AND direction NOT IN (` + strings.Repeat("?, ", len(j.Directions)-1) + `?)`
		for _, dir := range j.Directions {
			args = append(args, dir)
		}
	}
	if _, err := tx.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("prune lights for %q: %w", j.ID, err)
	}
	return nil
}

// Load fetches one junction with its ordered direction set.
// A missing junction yields a zero-valued Junction (ID == "") and no error.
func (r *JunctionSQLite) Load(ctx context.Context, junctionID string) (models.Junction, error) {
	row := r.db.QueryRowContext(ctx, selectJunctionSQL, r.teamID, junctionID)

	var j models.Junction
	if err := row.Scan(&j.ID, &j.Name, &j.Mode, &j.CurrentActive, &j.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Junction{}, nil // not initialized yet
		}
		return models.Junction{}, fmt.Errorf("select junction %q: %w", junctionID, err)
	}
	j.UpdatedAt = j.UpdatedAt.UTC()

	if err := r.loadLights(ctx, &j); err != nil {
		return models.Junction{}, err
	}
	return j, nil
}

func (r *JunctionSQLite) loadLights(ctx context.Context, j *models.Junction) error {
	rows, err := r.db.QueryContext(ctx, selectLightsSQL, r.teamID, j.ID)
	if err != nil {
		return fmt.Errorf("select lights for %q: %w", j.ID, err)
	}
	defer rows.Close()

	j.Lights = make(map[string]models.Light)
	j.Directions = j.Directions[:0]
	for rows.Next() {
		var l models.Light
		var pos int
		if err := rows.Scan(&l.Direction, &pos, &l.Color, &l.RemainingSeconds, &l.GreenSeconds, &l.YellowSeconds, &l.TrafficLightID); err != nil {
			return fmt.Errorf("scan light for %q: %w", j.ID, err)
		}
		j.Directions = append(j.Directions, l.Direction)
		j.Lights[l.Direction] = l
	}
	return rows.Err()
}

// List returns every junction of the team, ordered by id.
func (r *JunctionSQLite) List(ctx context.Context) ([]models.Junction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, mode, current_active, updated_at FROM junctions WHERE team_id=?`, r.teamID)
	if err != nil {
		return nil, fmt.Errorf("select junctions: %w", err)
	}
	defer rows.Close()

	var out []models.Junction
	for rows.Next() {
		var j models.Junction
		if err := rows.Scan(&j.ID, &j.Name, &j.Mode, &j.CurrentActive, &j.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan junction: %w", err)
		}
		j.UpdatedAt = j.UpdatedAt.UTC()
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		if err := r.loadLights(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

// UpdateLights writes the color/remaining of every given direction and the
// junction's active cursor atomically. This is the per-tick write path.
func (r *JunctionSQLite) UpdateLights(ctx context.Context, junctionID, currentActive string, lights map[string]models.Light) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tick write for %q: %w", junctionID, err)
	}
	defer func() { _ = tx.Rollback() }()

	for dir, l := range lights {
		if _, err := tx.ExecContext(ctx, updateLightStateSQL,
			l.Color, l.RemainingSeconds, r.teamID, junctionID, dir,
		); err != nil {
			return fmt.Errorf("update light %q/%q: %w", junctionID, dir, err)
		}
	}
	if _, err := tx.ExecContext(ctx, updateActiveSQL,
		currentActive, time.Now().UTC(), r.teamID, junctionID,
	); err != nil {
		return fmt.Errorf("update active for %q: %w", junctionID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tick write for %q: %w", junctionID, err)
	}
	return nil
}

// SetLight overwrites one direction's color/remaining, bypassing the cursor.
func (r *JunctionSQLite) SetLight(ctx context.Context, junctionID string, l models.Light) error {
	_, err := r.db.ExecContext(ctx, updateLightStateSQL,
		l.Color, l.RemainingSeconds, r.teamID, junctionID, l.Direction)
	if err != nil {
		return fmt.Errorf("set light %q/%q: %w", junctionID, l.Direction, err)
	}
	return nil
}

func (r *JunctionSQLite) SetMode(ctx context.Context, junctionID, mode string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE junctions SET mode=?, updated_at=? WHERE team_id=? AND id=?`,
		mode, time.Now().UTC(), r.teamID, junctionID)
	if err != nil {
		return fmt.Errorf("set mode for %q: %w", junctionID, err)
	}
	return nil
}

// SetDurations stores per-direction duration overrides. They apply from the
// direction's next computed phase, never the one in progress. duration_s is
// the legacy single-duration alias older consumers still read; it tracks the
// green duration.
func (r *JunctionSQLite) SetDurations(ctx context.Context, junctionID, direction string, green, yellow int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE junction_lights SET green_s=?, yellow_s=?, duration_s=? WHERE team_id=? AND junction_id=? AND direction=?`,
		green, yellow, green, r.teamID, junctionID, direction)
	if err != nil {
		return fmt.Errorf("set durations for %q/%q: %w", junctionID, direction, err)
	}
	return nil
}
