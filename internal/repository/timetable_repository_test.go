package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/csit-timetable-api/internal/models"
)

func TestCreateRunAssignsDefaults(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectExec("INSERT INTO timetable_runs").WillReturnResult(sqlmock.NewResult(1, 1))

	run := &models.TimetableRun{Status: models.TimetableRunStatusSolved, Seed: 42}
	err := repo.CreateRun(context.Background(), nil, run)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.False(t, run.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertEntries(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectExec("INSERT INTO timetable_entries").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO timetable_entries").WillReturnResult(sqlmock.NewResult(1, 1))

	entries := []models.TimetableEntry{
		{RunID: "r1", SessionID: "S1", CourseID: "CS101", Day: "Monday"},
		{RunID: "r1", SessionID: "S2", CourseID: "CS202", Day: "Tuesday"},
	}
	err := repo.InsertEntries(context.Background(), nil, entries)
	require.NoError(t, err)
	assert.NotEmpty(t, entries[0].ID)
	assert.NotEmpty(t, entries[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertEntriesEmptyIsNoop(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	err := repo.InsertEntries(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListRunsFiltersByStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	countRows := sqlmock.NewRows([]string{"count"}).AddRow(1)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM timetable_runs WHERE 1=1 AND status = $1")).
		WithArgs("SOLVED").
		WillReturnRows(countRows)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "status", "seed", "attempts", "iterations", "session_count", "hard_violations", "soft_violations", "unschedulable", "duration_ms", "created_at"}).
		AddRow("r1", "SOLVED", int64(42), 1, 120, 10, 3, 2, 0, int64(85), now)
	mock.ExpectQuery("SELECT id, status, seed, attempts, iterations").
		WithArgs("SOLVED", 20, 0).
		WillReturnRows(rows)

	runs, total, err := repo.ListRuns(context.Background(), "SOLVED", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, runs, 1)
	assert.Equal(t, models.TimetableRunStatusSolved, runs[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindRun(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "status", "seed", "attempts", "iterations", "session_count", "hard_violations", "soft_violations", "unschedulable", "duration_ms", "created_at"}).
		AddRow("r1", "FAILED", int64(7), 3, 5000, 10, 12, 0, 1, int64(960), now)
	mock.ExpectQuery("SELECT id, status, seed, attempts, iterations").
		WithArgs("r1").
		WillReturnRows(rows)

	run, err := repo.FindRun(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, models.TimetableRunStatusFailed, run.Status)
	assert.Equal(t, 3, run.Attempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListEntries(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "run_id", "session_id", "course_id", "session_kind", "section_id", "day", "start_time", "end_time", "room_id", "instructor", "instructor_id", "created_at"}).
		AddRow("e1", "r1", "S1", "CS101", "LEC", "G1", "Monday", "09:00 AM", "09:45 AM", "LH-1", "Dana", "I1", now)
	mock.ExpectQuery("SELECT id, run_id, session_id, course_id, session_kind").
		WithArgs("r1").
		WillReturnRows(rows)

	entries, err := repo.ListEntries(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "LH-1", entries[0].RoomID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
