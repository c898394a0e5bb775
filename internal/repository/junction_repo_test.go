package repository_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"reflect"
	"regexp"
	"testing"
	"time"

	"traffic_control/internal/models"
	"traffic_control/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
)

const testTeamID = "team-1"

func newJunctionFixture() models.Junction {
	return models.Junction{
		ID:            "j1",
		Name:          "Main & First",
		Mode:          models.ModeAuto,
		CurrentActive: "A",
		Directions:    []string{"A", "B"},
		Lights: map[string]models.Light{
			"A": {Direction: "A", Color: models.ColorGreen, RemainingSeconds: 12, GreenSeconds: 20, YellowSeconds: 4},
			"B": {Direction: "B", Color: models.ColorRed, RemainingSeconds: 16, TrafficLightID: "tl-2"},
		},
	}
}

func TestJunctionSQLite_Save_WritesJunctionAndLightsInOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := repository.NewJunctionSQLite(db, testTeamID)
	j := newJunctionFixture()
	// Zero UpdatedAt is replaced by time.Now().UTC().
	j.UpdatedAt = time.Time{}

	isUTCRecent := sqlmockArgumentFunc(func(v driver.Value) bool {
		tm, ok := v.(time.Time)
		if !ok || tm.Location() != time.UTC {
			return false
		}
		now := time.Now().UTC()
		return !tm.Before(now.Add(-5*time.Second)) && !tm.After(now.Add(5*time.Second))
	})

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO junctions")).
		WithArgs(testTeamID, "j1", "Main & First", models.ModeAuto, "A", isUTCRecent).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO junction_lights")).
		WithArgs(testTeamID, "j1", "A", 0, models.ColorGreen, 12, 20, 4, "").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO junction_lights")).
		WithArgs(testTeamID, "j1", "B", 1, models.ColorRed, 16, 0, 0, "tl-2").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM junction_lights")).
		WithArgs(testTeamID, "j1", "A", "B").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := repo.Save(context.Background(), j); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestJunctionSQLite_Save_PrunesDroppedDirections(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := repository.NewJunctionSQLite(db, testTeamID)

	// Re-saving under a new rotation must remove the rows of the old one, or
	// a later load would mix both direction sets.
	j := models.Junction{
		ID:         "j1",
		Name:       "Main & First",
		Mode:       models.ModeAuto,
		Directions: []string{"N", "S"},
		Lights: map[string]models.Light{
			"N": {Direction: "N", Color: models.ColorRed},
			"S": {Direction: "S", Color: models.ColorRed},
		},
		UpdatedAt: time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC),
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO junctions")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO junction_lights")).
		WithArgs(testTeamID, "j1", "N", 0, models.ColorRed, 0, 0, 0, "").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO junction_lights")).
		WithArgs(testTeamID, "j1", "S", 1, models.ColorRed, 0, 0, 0, "").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("AND direction NOT IN (?, ?)")).
		WithArgs(testTeamID, "j1", "N", "S").
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectCommit()

	if err := repo.Save(context.Background(), j); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestJunctionSQLite_Save_RollsBackOnLightError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := repository.NewJunctionSQLite(db, testTeamID)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO junctions")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO junction_lights")).
		WillReturnError(errors.New("db down"))
	mock.ExpectRollback()

	if err := repo.Save(context.Background(), newJunctionFixture()); err == nil {
		t.Fatalf("Save() expected error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestJunctionSQLite_Load_NoRowsReturnsZeroValueAndNilError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := repository.NewJunctionSQLite(db, testTeamID)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, mode, current_active, updated_at")).
		WithArgs(testTeamID, "missing").
		WillReturnError(sql.ErrNoRows)

	got, err := repo.Load(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	var zero models.Junction
	if !reflect.DeepEqual(got, zero) {
		t.Fatalf("Load() expected zero junction, got: %+v", got)
	}
}

func TestJunctionSQLite_Load_OrdersDirectionsByPosition(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := repository.NewJunctionSQLite(db, testTeamID)

	locNY, _ := time.LoadLocation("America/New_York")
	nonUTC := time.Date(2026, 2, 1, 8, 30, 0, 0, locNY)

	junctionRows := sqlmock.NewRows([]string{"id", "name", "mode", "current_active", "updated_at"}).
		AddRow("j1", "Main & First", models.ModeAuto, "B", nonUTC)
	// Rows arrive already ordered by position; the rotation order must follow it.
	lightRows := sqlmock.NewRows([]string{"direction", "position", "color", "remaining_s", "green_s", "yellow_s", "traffic_light_id"}).
		AddRow("A", 0, models.ColorRed, 9, 0, 0, "").
		AddRow("B", 1, models.ColorGreen, 18, 20, 4, "tl-2")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, mode, current_active, updated_at")).
		WithArgs(testTeamID, "j1").
		WillReturnRows(junctionRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT direction, position, color, remaining_s, green_s, yellow_s, traffic_light_id")).
		WithArgs(testTeamID, "j1").
		WillReturnRows(lightRows)

	got, err := repo.Load(context.Background(), "j1")
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if got.ID != "j1" || got.CurrentActive != "B" {
		t.Fatalf("Load() unexpected fields: %+v", got)
	}
	if got.UpdatedAt.Location() != time.UTC {
		t.Fatalf("Load() UpdatedAt not UTC: %v", got.UpdatedAt.Location())
	}
	if want := []string{"A", "B"}; !reflect.DeepEqual(got.Directions, want) {
		t.Fatalf("Load() Directions mismatch: got=%v want=%v", got.Directions, want)
	}
	if got.Lights["B"].TrafficLightID != "tl-2" || got.Lights["B"].GreenSeconds != 20 {
		t.Fatalf("Load() light B mismatch: %+v", got.Lights["B"])
	}
}

func TestJunctionSQLite_UpdateLights_OneTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := repository.NewJunctionSQLite(db, testTeamID)

	// Map iteration order is unspecified, so the light updates may arrive in
	// any order inside the transaction.
	mock.MatchExpectationsInOrder(false)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE junction_lights SET color=?, remaining_s=?")).
		WithArgs(models.ColorGreen, 11, testTeamID, "j1", "A").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE junction_lights SET color=?, remaining_s=?")).
		WithArgs(models.ColorRed, 16, testTeamID, "j1", "B").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE junctions SET current_active=?")).
		WithArgs("A", sqlmock.AnyArg(), testTeamID, "j1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	lights := map[string]models.Light{
		"A": {Direction: "A", Color: models.ColorGreen, RemainingSeconds: 11},
		"B": {Direction: "B", Color: models.ColorRed, RemainingSeconds: 16},
	}
	if err := repo.UpdateLights(context.Background(), "j1", "A", lights); err != nil {
		t.Fatalf("UpdateLights() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestJunctionSQLite_UpdateLights_ExecErrorIsPropagated(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := repository.NewJunctionSQLite(db, testTeamID)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE junction_lights SET color=?, remaining_s=?")).
		WillReturnError(errors.New("db down"))
	mock.ExpectRollback()

	lights := map[string]models.Light{
		"A": {Direction: "A", Color: models.ColorGreen, RemainingSeconds: 11},
	}
	if err := repo.UpdateLights(context.Background(), "j1", "A", lights); err == nil {
		t.Fatalf("UpdateLights() expected error, got nil")
	}
}

func TestJunctionSQLite_SetDurations_WritesLegacyAlias(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := repository.NewJunctionSQLite(db, testTeamID)

	// duration_s mirrors the green duration for older consumers.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE junction_lights SET green_s=?, yellow_s=?, duration_s=?")).
		WithArgs(20, 4, 20, testTeamID, "j1", "C").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SetDurations(context.Background(), "j1", "C", 20, 4); err != nil {
		t.Fatalf("SetDurations() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestJunctionSQLite_SetModeAndSetLight(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := repository.NewJunctionSQLite(db, testTeamID)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE junctions SET mode=?")).
		WithArgs(models.ModeManual, sqlmock.AnyArg(), testTeamID, "j1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE junction_lights SET color=?, remaining_s=?")).
		WithArgs(models.ColorGreen, 45, testTeamID, "j1", "B").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SetMode(context.Background(), "j1", models.ModeManual); err != nil {
		t.Fatalf("SetMode() error = %v", err)
	}
	l := models.Light{Direction: "B", Color: models.ColorGreen, RemainingSeconds: 45}
	if err := repo.SetLight(context.Background(), "j1", l); err != nil {
		t.Fatalf("SetLight() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// Helpers

type sqlmockArgumentFunc func(v driver.Value) bool

func (f sqlmockArgumentFunc) Match(v driver.Value) bool {
	return f(v)
}
