package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"traffic_control/internal/models"
	"traffic_control/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestTrafficLightSQLite_Get_NotFoundSentinel(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := repository.NewTrafficLightSQLite(db, testTeamID)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, interid, roadid, lat, lng, auto_on, color, remaintime, timestamp")).
		WithArgs(testTeamID, "missing").
		WillReturnError(sql.ErrNoRows)

	_, err = repo.Get(context.Background(), "missing")
	if !errors.Is(err, repository.ErrTrafficLightNotFound) {
		t.Fatalf("Get() error = %v, want ErrTrafficLightNotFound", err)
	}
}

func TestTrafficLightSQLite_Get_HappyPath(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := repository.NewTrafficLightSQLite(db, testTeamID)

	rows := sqlmock.NewRows([]string{"id", "interid", "roadid", "lat", "lng", "auto_on", "color", "remaintime", "timestamp"}).
		AddRow("tl-1", "j1", "r9", 41.31, 69.24, true, models.LegacyColorGreen, 12, "2026-03-01T10:00:00Z")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, interid, roadid, lat, lng, auto_on, color, remaintime, timestamp")).
		WithArgs(testTeamID, "tl-1").
		WillReturnRows(rows)

	got, err := repo.Get(context.Background(), "tl-1")
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	if got.ID != "tl-1" || got.InterID != "j1" || got.RoadID != "r9" ||
		got.Color != models.LegacyColorGreen || got.RemainTime != 12 || !got.AutoOn {
		t.Fatalf("Get() unexpected fields: %+v", got)
	}
}

func TestTrafficLightSQLite_Upsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := repository.NewTrafficLightSQLite(db, testTeamID)

	rec := models.TrafficLightRecord{
		ID:         "tl-1",
		InterID:    "j1",
		RoadID:     "r9",
		Lat:        41.31,
		Lng:        69.24,
		AutoOn:     true,
		Color:      models.LegacyColorRed,
		RemainTime: 0,
		Timestamp:  "2026-03-01T10:00:00Z",
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO traffic_lights")).
		WithArgs("tl-1", testTeamID, "j1", "r9", 41.31, 69.24, true, models.LegacyColorRed, 0, "2026-03-01T10:00:00Z").
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Upsert(context.Background(), rec); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTrafficLightSQLite_SetSignalAndTouch(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := repository.NewTrafficLightSQLite(db, testTeamID)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE traffic_lights SET color=?, remaintime=?, auto_on=?, timestamp=?")).
		WithArgs(models.LegacyColorGreen, 30, false, "2026-03-01T10:00:00Z", testTeamID, "tl-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE traffic_lights SET timestamp=?")).
		WithArgs("2026-03-01T10:05:00Z", testTeamID, "tl-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SetSignal(context.Background(), "tl-1", models.LegacyColorGreen, 30, false, "2026-03-01T10:00:00Z"); err != nil {
		t.Fatalf("SetSignal() error = %v", err)
	}
	if err := repo.Touch(context.Background(), "tl-1", "2026-03-01T10:05:00Z"); err != nil {
		t.Fatalf("Touch() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTrafficLightSQLite_SetSignal_ExecErrorIsPropagated(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := repository.NewTrafficLightSQLite(db, testTeamID)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE traffic_lights SET color=?")).
		WillReturnError(errors.New("db down"))

	if err := repo.SetSignal(context.Background(), "tl-1", models.LegacyColorGreen, 30, false, "ts"); err == nil {
		t.Fatalf("SetSignal() expected error, got nil")
	}
}
