package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/csit-timetable-api/internal/csp"
	"github.com/noah-isme/csit-timetable-api/internal/dto"
	"github.com/noah-isme/csit-timetable-api/internal/models"
	appErrors "github.com/noah-isme/csit-timetable-api/pkg/errors"
	"github.com/noah-isme/csit-timetable-api/pkg/export"
)

type datasetLoader interface {
	Load() (*csp.Dataset, error)
}

type timetableStore interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
	CreateRun(ctx context.Context, exec sqlx.ExtContext, run *models.TimetableRun) error
	InsertEntries(ctx context.Context, exec sqlx.ExtContext, entries []models.TimetableEntry) error
	ListRuns(ctx context.Context, status string, page, pageSize int) ([]models.TimetableRun, int, error)
	FindRun(ctx context.Context, id string) (*models.TimetableRun, error)
	ListEntries(ctx context.Context, runID string) ([]models.TimetableEntry, error)
}

type summaryCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type solveObserver interface {
	ObserveSolve(success bool, duration time.Duration, iterations, hardViolations, softViolations int)
}

// TimetableConfig governs generation behaviour.
type TimetableConfig struct {
	MaxIterations int
	MaxAttempts   int
	SolveTimeout  time.Duration
	Seed          int64
	MatchStrategy string
	CacheTTL      time.Duration
}

// TimetableService orchestrates the pipeline: dataset ingestion, domain
// building, the backtracking solve, soft evaluation, persistence and export.
type TimetableService struct {
	loader    datasetLoader
	store     timetableStore
	cache     summaryCache
	metrics   solveObserver
	validator *validator.Validate
	logger    *zap.Logger
	cfg       TimetableConfig

	csvExporter *export.CSVExporter
	pdfExporter *export.PDFExporter
}

// NewTimetableService wires generator dependencies.
func NewTimetableService(
	loader datasetLoader,
	store timetableStore,
	cache summaryCache,
	metrics solveObserver,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableConfig,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = csp.DefaultMaxIterations
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.SolveTimeout <= 0 {
		cfg.SolveTimeout = 5 * time.Minute
	}
	if cfg.MatchStrategy == "" {
		cfg.MatchStrategy = string(csp.MatchSubstring)
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	return &TimetableService{
		loader:      loader,
		store:       store,
		cache:       cache,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		cfg:         cfg,
		csvExporter: export.NewCSVExporter(),
		pdfExporter: export.NewPDFExporter(),
	}
}

// Generate runs the full pipeline and persists the outcome. Failed solves are
// recorded too, with their hard-violation trail in the response.
func (s *TimetableService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generate payload")
	}

	dataset, err := s.loader.Load()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrDataset.Code, appErrors.ErrDataset.Status, "failed to load dataset")
	}
	if len(dataset.Sessions) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "dataset contains no sessions to schedule")
	}

	strategy := csp.MatchStrategy(s.cfg.MatchStrategy)
	if req.MatchStrategy != "" {
		strategy = csp.MatchStrategy(req.MatchStrategy)
	}
	domains, err := csp.BuildDomains(dataset, csp.DomainOptions{Strategy: strategy, Logger: s.logger})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrDataset.Code, appErrors.ErrDataset.Status, "failed to build domains")
	}

	maxIterations := s.cfg.MaxIterations
	if req.MaxIterations > 0 {
		maxIterations = req.MaxIterations
	}
	maxAttempts := s.cfg.MaxAttempts
	if req.MaxAttempts > 0 {
		maxAttempts = req.MaxAttempts
	}
	baseSeed := s.cfg.Seed
	if req.Seed != 0 {
		baseSeed = req.Seed
	}

	checker := csp.NewChecker(dataset)
	started := time.Now()

	var result csp.Result
	var seed int64
	attempts := 0
	for attempts < maxAttempts {
		// The wall-clock limit is only consulted between attempts; a solve in
		// flight always runs to its iteration budget.
		if attempts > 0 && time.Since(started) > s.cfg.SolveTimeout {
			s.logger.Warn("solve timeout reached between attempts",
				zap.Int("attempts", attempts),
				zap.Duration("elapsed", time.Since(started)))
			break
		}
		attempts++

		seed = baseSeed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		solver := csp.NewSolver(dataset.Sessions, domains, checker, csp.SolverOptions{
			MaxIterations: maxIterations,
			Seed:          seed,
		})
		result = solver.Solve()
		if result.Success {
			break
		}
		if baseSeed != 0 {
			// A fixed seed explores the same order every time; retrying would
			// only repeat the failure.
			break
		}
	}
	duration := time.Since(started)

	var softViolations []string
	var summary *dto.TimetableSummaryView
	run := &models.TimetableRun{
		Status:         models.TimetableRunStatusFailed,
		Seed:           seed,
		Attempts:       attempts,
		Iterations:     result.Iterations,
		SessionCount:   len(dataset.Sessions),
		HardViolations: len(result.HardViolations),
		Unschedulable:  len(domains.Unschedulable),
		DurationMS:     duration.Milliseconds(),
	}

	var entries []models.TimetableEntry
	if result.Success {
		softViolations = csp.NewEvaluator(dataset).Evaluate(result.Assignment)
		run.Status = models.TimetableRunStatusSolved
		run.SoftViolations = len(softViolations)

		view := csp.Summarize(dataset, result.Assignment)
		entries = entriesFromSummary(view)
		summary = summaryView("", view)
	}

	if err := s.persistRun(ctx, run, entries); err != nil {
		return nil, err
	}
	if summary != nil {
		summary.RunID = run.ID
		s.cacheSummary(ctx, run.ID, summary)
	}

	if s.metrics != nil {
		s.metrics.ObserveSolve(result.Success, duration, result.Iterations, len(result.HardViolations), len(softViolations))
	}
	s.logger.Info("timetable generation finished",
		zap.String("run_id", run.ID),
		zap.Bool("success", result.Success),
		zap.Int("attempts", attempts),
		zap.Int("iterations", result.Iterations),
		zap.Int("hard_violations", len(result.HardViolations)),
		zap.Int("soft_violations", len(softViolations)),
		zap.Int("unschedulable", len(domains.Unschedulable)),
		zap.Duration("duration", duration),
	)

	return &dto.GenerateTimetableResponse{
		RunID:          run.ID,
		Success:        result.Success,
		Seed:           seed,
		Attempts:       attempts,
		Iterations:     result.Iterations,
		HardViolations: result.HardViolations,
		SoftViolations: softViolations,
		Unschedulable:  domains.Unschedulable,
		Summary:        summary,
	}, nil
}

// ListRuns returns persisted run history.
func (s *TimetableService) ListRuns(ctx context.Context, query dto.RunQuery) ([]models.TimetableRun, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid run query")
	}
	page := query.Page
	if page < 1 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	runs, total, err := s.store.ListRuns(ctx, query.Status, page, pageSize)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list runs")
	}
	return runs, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Summary returns the aggregated view of a solved run, cached when possible.
func (s *TimetableService) Summary(ctx context.Context, runID string) (*dto.TimetableSummaryView, error) {
	if runID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "run id is required")
	}

	if s.cache != nil {
		var cached dto.TimetableSummaryView
		if err := s.cache.Get(ctx, summaryCacheKey(runID), &cached); err == nil {
			return &cached, nil
		}
	}

	run, err := s.findRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.Status != models.TimetableRunStatusSolved {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "run did not produce a timetable")
	}

	entries, err := s.store.ListEntries(ctx, runID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list entries")
	}

	summary := summaryFromEntries(runID, entries)
	s.cacheSummary(ctx, runID, summary)
	return summary, nil
}

// Entries returns the persisted entries of a run.
func (s *TimetableService) Entries(ctx context.Context, runID string) ([]models.TimetableEntry, error) {
	if _, err := s.findRun(ctx, runID); err != nil {
		return nil, err
	}
	entries, err := s.store.ListEntries(ctx, runID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list entries")
	}
	return entries, nil
}

// ExportCSV renders a run's timetable as CSV bytes.
func (s *TimetableService) ExportCSV(ctx context.Context, runID string) ([]byte, error) {
	data, err := s.BuildExportDataset(ctx, runID)
	if err != nil {
		return nil, err
	}
	payload, err := s.csvExporter.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return payload, nil
}

// ExportPDF renders a run's timetable as PDF bytes.
func (s *TimetableService) ExportPDF(ctx context.Context, runID string) ([]byte, error) {
	data, err := s.BuildExportDataset(ctx, runID)
	if err != nil {
		return nil, err
	}
	payload, err := s.pdfExporter.Render(data, "Generated Timetable")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
	}
	return payload, nil
}

func (s *TimetableService) findRun(ctx context.Context, runID string) (*models.TimetableRun, error) {
	run, err := s.store.FindRun(ctx, runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable run not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load run")
	}
	return run, nil
}

func (s *TimetableService) persistRun(ctx context.Context, run *models.TimetableRun, entries []models.TimetableEntry) error {
	tx, err := s.store.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.store.CreateRun(ctx, tx, run); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist run")
	}
	for i := range entries {
		entries[i].RunID = run.ID
	}
	if err = s.store.InsertEntries(ctx, tx, entries); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist entries")
	}
	if err = tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit run")
	}
	return nil
}

func (s *TimetableService) cacheSummary(ctx context.Context, runID string, summary *dto.TimetableSummaryView) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, summaryCacheKey(runID), summary, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("failed to cache summary", zap.String("run_id", runID), zap.Error(err))
	}
}

func summaryCacheKey(runID string) string {
	return "timetable:summary:" + runID
}

func entriesFromSummary(view csp.Summary) []models.TimetableEntry {
	entries := make([]models.TimetableEntry, 0, len(view.Entries))
	for _, entry := range view.Entries {
		entries = append(entries, models.TimetableEntry{
			SessionID:    entry.SessionID,
			CourseID:     entry.CourseID,
			SessionKind:  string(entry.SessionKind),
			SectionID:    entry.SectionID,
			Day:          entry.Day,
			StartTime:    entry.StartTime,
			EndTime:      entry.EndTime,
			RoomID:       entry.RoomID,
			Instructor:   entry.Instructor,
			InstructorID: entry.InstructorID,
		})
	}
	return entries
}

func summaryView(runID string, view csp.Summary) *dto.TimetableSummaryView {
	out := &dto.TimetableSummaryView{
		RunID:           runID,
		TotalSessions:   view.TotalSessions,
		SessionsByDay:   view.SessionsByDay,
		SessionsByTime:  view.SessionsByTime,
		RoomUtilization: view.RoomUtilization,
		InstructorLoad:  view.InstructorLoad,
	}
	for _, entry := range view.Entries {
		out.Entries = append(out.Entries, dto.TimetableEntryView{
			SessionID:  entry.SessionID,
			CourseID:   entry.CourseID,
			Kind:       string(entry.SessionKind),
			SectionID:  entry.SectionID,
			Day:        entry.Day,
			StartTime:  entry.StartTime,
			EndTime:    entry.EndTime,
			RoomID:     entry.RoomID,
			Instructor: entry.Instructor,
		})
	}
	return out
}

func summaryFromEntries(runID string, entries []models.TimetableEntry) *dto.TimetableSummaryView {
	summary := &dto.TimetableSummaryView{
		RunID:           runID,
		SessionsByDay:   make(map[string]int),
		SessionsByTime:  make(map[string]int),
		RoomUtilization: make(map[string]int),
		InstructorLoad:  make(map[string]int),
	}
	for _, entry := range entries {
		summary.TotalSessions++
		summary.SessionsByDay[entry.Day]++
		summary.SessionsByTime[entry.StartTime]++
		summary.RoomUtilization[entry.RoomID]++
		summary.InstructorLoad[entry.Instructor]++
		summary.Entries = append(summary.Entries, dto.TimetableEntryView{
			SessionID:  entry.SessionID,
			CourseID:   entry.CourseID,
			Kind:       entry.SessionKind,
			SectionID:  entry.SectionID,
			Day:        entry.Day,
			StartTime:  entry.StartTime,
			EndTime:    entry.EndTime,
			RoomID:     entry.RoomID,
			Instructor: entry.Instructor,
		})
	}
	return summary
}

// BuildExportDataset flattens a run's entries into a renderable dataset. It is
// shared by the synchronous export endpoints and the background export worker.
func (s *TimetableService) BuildExportDataset(ctx context.Context, runID string) (export.Dataset, error) {
	entries, err := s.Entries(ctx, runID)
	if err != nil {
		return export.Dataset{}, err
	}
	if len(entries) == 0 {
		return export.Dataset{}, appErrors.Clone(appErrors.ErrPreconditionFailed, "run has no timetable entries")
	}

	headers := []string{"Session_ID", "Course", "Session_Type", "Section", "Day", "Start_Time", "End_Time", "Room", "Instructor"}
	rows := make([]map[string]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, map[string]string{
			"Session_ID":   entry.SessionID,
			"Course":       entry.CourseID,
			"Session_Type": entry.SessionKind,
			"Section":      entry.SectionID,
			"Day":          entry.Day,
			"Start_Time":   entry.StartTime,
			"End_Time":     entry.EndTime,
			"Room":         entry.RoomID,
			"Instructor":   entry.Instructor,
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}, nil
}
