package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/atinyakov/DexWatch/internal/models"
)

var readingColumns = []string{"id", "poll_id", "reading_time", "bg", "trend", "reading_lag"}

func setupReadingMock(t *testing.T) (*PostgresReadingRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	repo := NewPostgresReadingRepository(db)
	cleanup := func() { db.Close() }
	return repo, mock, cleanup
}

func sampleReading() models.StoredReading {
	return models.StoredReading{
		ID:     "r1",
		PollID: "p1",
		Reading: models.Reading{
			BG:              110,
			Trend:           models.Flat,
			TrendEnglish:    "Flat",
			LastReadingTime: 1700000000,
			ReadingLag:      60,
		},
	}
}

func TestSaveReading_Inserted(t *testing.T) {
	repo, mock, cleanup := setupReadingMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO readings`)).
		WithArgs("r1", "p1", int64(1700000000), 110, 4, int64(60)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	inserted, err := repo.SaveReading(context.Background(), sampleReading())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !inserted {
		t.Error("expected reading to be inserted")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSaveReading_Duplicate(t *testing.T) {
	repo, mock, cleanup := setupReadingMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO readings`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	inserted, err := repo.SaveReading(context.Background(), sampleReading())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inserted {
		t.Error("expected duplicate reading to be skipped")
	}
}

func TestSaveReading_Error(t *testing.T) {
	repo, mock, cleanup := setupReadingMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO readings`)).
		WillReturnError(errors.New("insert failed"))

	if _, err := repo.SaveReading(context.Background(), sampleReading()); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestLatestReading_Found(t *testing.T) {
	repo, mock, cleanup := setupReadingMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM readings`)).
		WillReturnRows(sqlmock.NewRows(readingColumns).AddRow("r1", "p1", int64(1700000000), 110, 4, int64(60)))

	got, err := repo.LatestReading(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != sampleReading() {
		t.Errorf("LatestReading = %+v; want %+v", got, sampleReading())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestLatestReading_Empty(t *testing.T) {
	repo, mock, cleanup := setupReadingMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM readings`)).
		WillReturnRows(sqlmock.NewRows(readingColumns))

	_, err := repo.LatestReading(context.Background())
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("LatestReading error = %v; want ErrNotFound", err)
	}
}

func TestListReadings(t *testing.T) {
	repo, mock, cleanup := setupReadingMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`LIMIT $1`)).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows(readingColumns).
			AddRow("r2", "p2", int64(1700000300), 120, 3, int64(10)).
			AddRow("r1", "p1", int64(1700000000), 110, 4, int64(60)))

	got, err := repo.ListReadings(context.Background(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListReadings returned %d readings; want 2", len(got))
	}
	if got[0].ID != "r2" || got[0].TrendEnglish != "FortyFiveUp" {
		t.Errorf("first reading = %+v; want r2 FortyFiveUp", got[0])
	}
	if got[1] != sampleReading() {
		t.Errorf("second reading = %+v; want %+v", got[1], sampleReading())
	}
}

func TestListReadings_QueryError(t *testing.T) {
	repo, mock, cleanup := setupReadingMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`LIMIT $1`)).
		WillReturnError(errors.New("db down"))

	if _, err := repo.ListReadings(context.Background(), 5); err == nil {
		t.Fatal("expected error, got nil")
	}
}
