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

func TestCreateExportJob(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewExportRepository(db)

	mock.ExpectExec("INSERT INTO export_jobs").WillReturnResult(sqlmock.NewResult(1, 1))

	job := &models.ExportJob{RunID: "r1", Format: models.ExportFormatCSV, Status: models.ExportStatusQueued}
	err := repo.Create(context.Background(), job)
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateExportJobPartial(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewExportRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE export_jobs SET status = $2, progress = $3 WHERE id = $1")).
		WithArgs("j1", models.ExportStatusProcessing, 10).
		WillReturnResult(sqlmock.NewResult(0, 1))

	status := models.ExportStatusProcessing
	progress := 10
	err := repo.Update(context.Background(), "j1", UpdateExportJobParams{Status: &status, Progress: &progress})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateExportJobNoFieldsIsNoop(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewExportRepository(db)

	err := repo.Update(context.Background(), "j1", UpdateExportJobParams{})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListQueuedExportJobs(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewExportRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "run_id", "format", "status", "progress", "result_url", "error_message", "created_by", "created_at", "finished_at"}).
		AddRow("j1", "r1", "csv", "QUEUED", 0, nil, nil, "u1", now, nil)
	mock.ExpectQuery("SELECT id, run_id, format, status, progress").
		WithArgs(models.ExportStatusQueued, 50).
		WillReturnRows(rows)

	jobs, err := repo.ListQueued(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, models.ExportFormatCSV, jobs[0].Format)
	assert.NoError(t, mock.ExpectationsWereMet())
}
