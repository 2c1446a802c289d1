package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/csit-timetable-api/internal/models"
)

// TimetableRepository persists generation runs and their scheduled entries.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository builds the repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

// BeginTxx starts a transaction for a run save.
func (r *TimetableRepository) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, opts)
}

func (r *TimetableRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// CreateRun inserts a run record.
func (r *TimetableRepository) CreateRun(ctx context.Context, exec sqlx.ExtContext, run *models.TimetableRun) error {
	target := r.exec(exec)
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	const query = `
INSERT INTO timetable_runs (id, status, seed, attempts, iterations, session_count, hard_violations, soft_violations, unschedulable, duration_ms, created_at)
VALUES (:id, :status, :seed, :attempts, :iterations, :session_count, :hard_violations, :soft_violations, :unschedulable, :duration_ms, :created_at)`

	if _, err := sqlx.NamedExecContext(ctx, target, query, run); err != nil {
		return fmt.Errorf("insert timetable run: %w", err)
	}
	return nil
}

// InsertEntries stores the scheduled entries of a solved run.
func (r *TimetableRepository) InsertEntries(ctx context.Context, exec sqlx.ExtContext, entries []models.TimetableEntry) error {
	if len(entries) == 0 {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()

	const query = `
INSERT INTO timetable_entries (id, run_id, session_id, course_id, session_kind, section_id, day, start_time, end_time, room_id, instructor, instructor_id, created_at)
VALUES (:id, :run_id, :session_id, :course_id, :session_kind, :section_id, :day, :start_time, :end_time, :room_id, :instructor, :instructor_id, :created_at)`

	for i := range entries {
		entry := &entries[i]
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, entry); err != nil {
			return fmt.Errorf("insert timetable entry: %w", err)
		}
	}
	return nil
}

// ListRuns returns run history, newest first, with a total count.
func (r *TimetableRepository) ListRuns(ctx context.Context, status string, page, pageSize int) ([]models.TimetableRun, int, error) {
	baseQuery := `FROM timetable_runs WHERE 1=1`
	var conditions []string
	var args []interface{}

	if status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, status)
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count timetable runs: %w", err)
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	query := fmt.Sprintf(
		"SELECT id, status, seed, attempts, iterations, session_count, hard_violations, soft_violations, unschedulable, duration_ms, created_at %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		baseQuery, len(args)+1, len(args)+2,
	)
	args = append(args, pageSize, (page-1)*pageSize)

	var runs []models.TimetableRun
	if err := r.db.SelectContext(ctx, &runs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list timetable runs: %w", err)
	}
	return runs, total, nil
}

// FindRun returns one run by identifier.
func (r *TimetableRepository) FindRun(ctx context.Context, id string) (*models.TimetableRun, error) {
	const query = `SELECT id, status, seed, attempts, iterations, session_count, hard_violations, soft_violations, unschedulable, duration_ms, created_at FROM timetable_runs WHERE id = $1 LIMIT 1`
	var run models.TimetableRun
	if err := r.db.GetContext(ctx, &run, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find timetable run: %w", err)
	}
	return &run, nil
}

// ListEntries returns the entries of a run ordered by day and start time.
func (r *TimetableRepository) ListEntries(ctx context.Context, runID string) ([]models.TimetableEntry, error) {
	const query = `SELECT id, run_id, session_id, course_id, session_kind, section_id, day, start_time, end_time, room_id, instructor, instructor_id, created_at
FROM timetable_entries WHERE run_id = $1 ORDER BY day ASC, start_time ASC, session_id ASC`
	var entries []models.TimetableEntry
	if err := r.db.SelectContext(ctx, &entries, query, runID); err != nil {
		return nil, fmt.Errorf("list timetable entries: %w", err)
	}
	return entries, nil
}
