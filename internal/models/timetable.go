package models

import "time"

// TimetableRunStatus tracks the lifecycle of a generation run.
type TimetableRunStatus string

const (
	TimetableRunStatusSolved TimetableRunStatus = "SOLVED"
	TimetableRunStatusFailed TimetableRunStatus = "FAILED"
)

// TimetableRun records one invocation of the generator along with its
// diagnostics. Failed runs are persisted too so their violation trails stay
// inspectable.
type TimetableRun struct {
	ID             string             `db:"id" json:"id"`
	Status         TimetableRunStatus `db:"status" json:"status"`
	Seed           int64              `db:"seed" json:"seed"`
	Attempts       int                `db:"attempts" json:"attempts"`
	Iterations     int                `db:"iterations" json:"iterations"`
	SessionCount   int                `db:"session_count" json:"session_count"`
	HardViolations int                `db:"hard_violations" json:"hard_violations"`
	SoftViolations int                `db:"soft_violations" json:"soft_violations"`
	Unschedulable  int                `db:"unschedulable" json:"unschedulable"`
	DurationMS     int64              `db:"duration_ms" json:"duration_ms"`
	CreatedAt      time.Time          `db:"created_at" json:"created_at"`
}

// TimetableEntry is one scheduled session of a solved run.
type TimetableEntry struct {
	ID           string    `db:"id" json:"id"`
	RunID        string    `db:"run_id" json:"run_id"`
	SessionID    string    `db:"session_id" json:"session_id"`
	CourseID     string    `db:"course_id" json:"course_id"`
	SessionKind  string    `db:"session_kind" json:"session_kind"`
	SectionID    string    `db:"section_id" json:"section_id"`
	Day          string    `db:"day" json:"day"`
	StartTime    string    `db:"start_time" json:"start_time"`
	EndTime      string    `db:"end_time" json:"end_time"`
	RoomID       string    `db:"room_id" json:"room_id"`
	Instructor   string    `db:"instructor" json:"instructor"`
	InstructorID string    `db:"instructor_id" json:"instructor_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
