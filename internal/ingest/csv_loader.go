package ingest

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/csit-timetable-api/internal/csp"
	"github.com/noah-isme/csit-timetable-api/pkg/config"
)

// Loader reads the tabular source files into the engine's entity collections.
// Malformed records are rejected here; the engine assumes validated input.
type Loader struct {
	cfg    config.DatasetConfig
	logger *zap.Logger
}

// NewLoader builds a loader over the configured dataset directory.
func NewLoader(cfg config.DatasetConfig, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{cfg: cfg, logger: logger}
}

// Load reads all six collections. Row order is preserved: time slot IDs are
// positional, and session load order is the solver's variable order.
func (l *Loader) Load() (*csp.Dataset, error) {
	ds := &csp.Dataset{}

	if err := l.loadTimeSlots(ds); err != nil {
		return nil, err
	}
	if err := l.loadRooms(ds); err != nil {
		return nil, err
	}
	if err := l.loadInstructors(ds); err != nil {
		return nil, err
	}
	if err := l.loadCourses(ds); err != nil {
		return nil, err
	}
	if err := l.loadSections(ds); err != nil {
		return nil, err
	}
	if err := l.loadSessions(ds); err != nil {
		return nil, err
	}

	l.logger.Info("dataset loaded",
		zap.Int("time_slots", len(ds.TimeSlots)),
		zap.Int("rooms", len(ds.Rooms)),
		zap.Int("instructors", len(ds.Instructors)),
		zap.Int("courses", len(ds.Courses)),
		zap.Int("sections", len(ds.Sections)),
		zap.Int("sessions", len(ds.Sessions)),
	)
	return ds, nil
}

func (l *Loader) loadTimeSlots(ds *csp.Dataset) error {
	rows, err := l.readTable(l.cfg.TimeSlotsFile, []string{"Day", "StartTime", "EndTime"})
	if err != nil {
		return err
	}
	for _, row := range rows {
		if row["Day"] == "" {
			continue
		}
		ds.TimeSlots = append(ds.TimeSlots, csp.TimeSlot{
			SlotID:    len(ds.TimeSlots),
			Day:       row["Day"],
			StartTime: row["StartTime"],
			EndTime:   row["EndTime"],
		})
	}
	return nil
}

func (l *Loader) loadRooms(ds *csp.Dataset) error {
	rows, err := l.readTable(l.cfg.RoomsFile, []string{"RoomID", "Type", "Capacity"})
	if err != nil {
		return err
	}
	for _, row := range rows {
		if row["RoomID"] == "" {
			continue
		}
		capacity, err := strconv.Atoi(strings.TrimSpace(row["Capacity"]))
		if err != nil {
			return fmt.Errorf("room %s: invalid capacity %q: %w", row["RoomID"], row["Capacity"], err)
		}
		ds.Rooms = append(ds.Rooms, csp.Room{
			RoomID:    row["RoomID"],
			Kind:      csp.RoomKind(row["Type"]),
			Capacity:  capacity,
			SpaceType: row["Type_of_spaces"],
		})
	}
	return nil
}

func (l *Loader) loadInstructors(ds *csp.Dataset) error {
	rows, err := l.readTable(l.cfg.InstructorsFile, []string{"InstructorID", "Name", "QualifiedCourses", "Preference"})
	if err != nil {
		return err
	}
	for _, row := range rows {
		if row["InstructorID"] == "" {
			continue
		}
		ds.Instructors = append(ds.Instructors, csp.Instructor{
			InstructorID:     row["InstructorID"],
			Name:             row["Name"],
			QualifiedCourses: splitList(row["QualifiedCourses"]),
			Preference:       csp.Preference(row["Preference"]),
		})
	}
	return nil
}

func (l *Loader) loadCourses(ds *csp.Dataset) error {
	rows, err := l.readTable(l.cfg.CoursesFile, []string{"Course Code", "Courses", "Credits"})
	if err != nil {
		return err
	}
	for _, row := range rows {
		code := row["Course Code"]
		if code == "" {
			continue
		}
		credits, err := strconv.Atoi(strings.TrimSpace(row["Credits"]))
		if err != nil {
			return fmt.Errorf("course %s: invalid credits %q: %w", code, row["Credits"], err)
		}
		ds.Courses = append(ds.Courses, csp.Course{
			CourseID:    code,
			Name:        row["Courses"],
			Credits:     credits,
			Department:  row["Department"],
			Kind:        row["Type"],
			Instructors: splitList(row["Instructor(s)"]),
		})
	}
	return nil
}

func (l *Loader) loadSections(ds *csp.Dataset) error {
	rows, err := l.readTable(l.cfg.SectionsFile, []string{"SectionID", "Semester", "StudentCount"})
	if err != nil {
		return err
	}
	for _, row := range rows {
		if row["SectionID"] == "" {
			continue
		}
		count, err := strconv.Atoi(strings.TrimSpace(row["StudentCount"]))
		if err != nil {
			return fmt.Errorf("section %s: invalid student count %q: %w", row["SectionID"], row["StudentCount"], err)
		}
		ds.Sections = append(ds.Sections, csp.Section{
			SectionID:    row["SectionID"],
			Semester:     row["Semester"],
			StudentCount: count,
		})
	}
	return nil
}

func (l *Loader) loadSessions(ds *csp.Dataset) error {
	rows, err := l.readTable(l.cfg.SessionsFile, []string{"Session_ID", "Assigned_Course", "Session_Type", "Assigned_Section"})
	if err != nil {
		return err
	}
	for _, row := range rows {
		if row["Session_ID"] == "" {
			continue
		}
		ds.Sessions = append(ds.Sessions, csp.Session{
			SessionID: row["Session_ID"],
			CourseID:  row["Assigned_Course"],
			Kind:      csp.SessionKind(row["Session_Type"]),
			SectionID: row["Assigned_Section"],
		})
	}
	return nil
}

// readTable reads a CSV file into header-keyed rows, tolerating a UTF-8 BOM
// and ragged trailing columns. Missing required headers fail the load.
func (l *Loader) readTable(name string, required []string) ([]map[string]string, error) {
	path := filepath.Join(l.cfg.Directory, name)
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: no header row", name)
	}

	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}
	index := make(map[string]int, len(header))
	for i, col := range header {
		index[strings.TrimSpace(col)] = i
	}
	for _, col := range required {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%s: missing required column %q", name, col)
		}
	}

	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]string, len(index))
		for col, i := range index {
			if i < len(record) {
				row[col] = strings.TrimSpace(record[i])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
