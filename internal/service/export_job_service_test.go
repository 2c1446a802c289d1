package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/csit-timetable-api/internal/dto"
	"github.com/noah-isme/csit-timetable-api/internal/models"
	"github.com/noah-isme/csit-timetable-api/internal/repository"
	appErrors "github.com/noah-isme/csit-timetable-api/pkg/errors"
	"github.com/noah-isme/csit-timetable-api/pkg/export"
	"github.com/noah-isme/csit-timetable-api/pkg/jobs"
	"github.com/noah-isme/csit-timetable-api/pkg/storage"
)

type memExportStore struct {
	jobs       map[string]*models.ExportJob
	createErr  error
	nextID     int
	lastUpdate repository.UpdateExportJobParams
}

func newMemExportStore() *memExportStore {
	return &memExportStore{jobs: make(map[string]*models.ExportJob)}
}

func (m *memExportStore) Create(ctx context.Context, job *models.ExportJob) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	if job.ID == "" {
		job.ID = "job-1"
	}
	copied := *job
	m.jobs[job.ID] = &copied
	return nil
}

func (m *memExportStore) GetByID(ctx context.Context, id string) (*models.ExportJob, error) {
	job, ok := m.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *job
	return &copied, nil
}

func (m *memExportStore) Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error {
	job, ok := m.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	m.lastUpdate = params
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (m *memExportStore) ListQueued(ctx context.Context, limit int) ([]models.ExportJob, error) {
	var out []models.ExportJob
	for _, job := range m.jobs {
		if job.Status == models.ExportStatusQueued {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (m *memExportStore) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error) {
	return nil, nil
}

type stubRunFinder struct {
	run *models.TimetableRun
	err error
}

func (f *stubRunFinder) FindRun(ctx context.Context, id string) (*models.TimetableRun, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.run, nil
}

type stubQueue struct {
	enqueued []jobs.Job
	err      error
}

func (q *stubQueue) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.enqueued = append(q.enqueued, job)
	return nil
}

type stubBuilder struct {
	dataset export.Dataset
	err     error
}

func (b *stubBuilder) BuildExportDataset(ctx context.Context, runID string) (export.Dataset, error) {
	return b.dataset, b.err
}

func exportFixtureDataset() export.Dataset {
	return export.Dataset{
		Headers: []string{"Session_ID", "Course", "Day"},
		Rows: []map[string]string{
			{"Session_ID": "S1", "Course": "CS101", "Day": "Monday"},
		},
	}
}

func newExportStack(t *testing.T, builder runDatasetBuilder) (*ExportService, *storage.LocalStorage) {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	svc := NewExportService(builder, files, signer, ExportRenderConfig{APIPrefix: "/api/v1"}, nil)
	return svc, files
}

func TestCreateJobQueuesExport(t *testing.T) {
	store := newMemExportStore()
	queue := &stubQueue{}
	exporter, _ := newExportStack(t, &stubBuilder{dataset: exportFixtureDataset()})
	runs := &stubRunFinder{run: &models.TimetableRun{ID: "r1", Status: models.TimetableRunStatusSolved}}
	svc := NewExportJobService(store, runs, queue, exporter, nil, nil, ExportJobConfig{})

	resp, err := svc.CreateJob(context.Background(), dto.ExportRequest{RunID: "r1", Format: models.ExportFormatCSV}, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusQueued, resp.Status)
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, resp.ID, queue.enqueued[0].ID)
}

func TestCreateJobRejectsFailedRun(t *testing.T) {
	store := newMemExportStore()
	exporter, _ := newExportStack(t, &stubBuilder{dataset: exportFixtureDataset()})
	runs := &stubRunFinder{run: &models.TimetableRun{ID: "r1", Status: models.TimetableRunStatusFailed}}
	svc := NewExportJobService(store, runs, &stubQueue{}, exporter, nil, nil, ExportJobConfig{})

	_, err := svc.CreateJob(context.Background(), dto.ExportRequest{RunID: "r1", Format: models.ExportFormatCSV}, "u1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestCreateJobEnqueueFailureMarksJobFailed(t *testing.T) {
	store := newMemExportStore()
	exporter, _ := newExportStack(t, &stubBuilder{dataset: exportFixtureDataset()})
	runs := &stubRunFinder{run: &models.TimetableRun{ID: "r1", Status: models.TimetableRunStatusSolved}}
	queue := &stubQueue{err: errors.New("queue stopped")}
	svc := NewExportJobService(store, runs, queue, exporter, nil, nil, ExportJobConfig{})

	_, err := svc.CreateJob(context.Background(), dto.ExportRequest{RunID: "r1", Format: models.ExportFormatCSV}, "u1")
	require.Error(t, err)

	job, getErr := store.GetByID(context.Background(), "job-1")
	require.NoError(t, getErr)
	assert.Equal(t, models.ExportStatusFailed, job.Status)
}

func TestWorkerRendersAndDownloadResolves(t *testing.T) {
	store := newMemExportStore()
	exporter, _ := newExportStack(t, &stubBuilder{dataset: exportFixtureDataset()})
	runs := &stubRunFinder{run: &models.TimetableRun{ID: "r1", Status: models.TimetableRunStatusSolved}}
	queue := &stubQueue{}
	svc := NewExportJobService(store, runs, queue, exporter, nil, nil, ExportJobConfig{})

	resp, err := svc.CreateJob(context.Background(), dto.ExportRequest{RunID: "r1", Format: models.ExportFormatCSV}, "u1")
	require.NoError(t, err)

	worker := NewExportWorker(store, exporter, 3, nil)
	require.NoError(t, worker.Handle(context.Background(), queue.enqueued[0]))

	status, err := svc.GetStatus(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusFinished, status.Status)
	assert.Equal(t, 100, status.Progress)
	require.NotNil(t, status.ResultURL)

	token := (*status.ResultURL)[strings.LastIndex(*status.ResultURL, "/")+1:]
	download, err := svc.ResolveDownload(context.Background(), token)
	require.NoError(t, err)
	defer download.File.Close()

	content, err := io.ReadAll(download.File)
	require.NoError(t, err)
	assert.Contains(t, string(content), "CS101")
	assert.Equal(t, models.ExportFormatCSV, download.Format)
}

func TestWorkerFailureExhaustsRetries(t *testing.T) {
	store := newMemExportStore()
	exporter, _ := newExportStack(t, &stubBuilder{err: errors.New("run is gone")})
	runs := &stubRunFinder{run: &models.TimetableRun{ID: "r1", Status: models.TimetableRunStatusSolved}}
	queue := &stubQueue{}
	svc := NewExportJobService(store, runs, queue, exporter, nil, nil, ExportJobConfig{MaxRetries: 2})

	resp, err := svc.CreateJob(context.Background(), dto.ExportRequest{RunID: "r1", Format: models.ExportFormatCSV}, "u1")
	require.NoError(t, err)

	worker := NewExportWorker(store, exporter, 2, nil)

	job := queue.enqueued[0]
	job.Attempt = 2
	require.Error(t, worker.Handle(context.Background(), job))

	status, err := svc.GetStatus(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusFailed, status.Status)
	require.NotNil(t, status.Error)
	assert.Contains(t, *status.Error, "run is gone")
}

func TestResolveDownloadRejectsBadToken(t *testing.T) {
	store := newMemExportStore()
	exporter, _ := newExportStack(t, &stubBuilder{dataset: exportFixtureDataset()})
	svc := NewExportJobService(store, &stubRunFinder{}, &stubQueue{}, exporter, nil, nil, ExportJobConfig{})

	_, err := svc.ResolveDownload(context.Background(), "not-a-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
