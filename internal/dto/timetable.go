package dto

// GenerateTimetableRequest triggers a generation run. All fields are optional
// overrides of the configured solver defaults.
type GenerateTimetableRequest struct {
	MaxIterations int    `json:"maxIterations" validate:"omitempty,min=1,max=1000000"`
	MaxAttempts   int    `json:"maxAttempts" validate:"omitempty,min=1,max=50"`
	Seed          int64  `json:"seed"`
	MatchStrategy string `json:"matchStrategy" validate:"omitempty,oneof=exact prefix substring"`
}

// TimetableEntryView is one scheduled session in API responses.
type TimetableEntryView struct {
	SessionID  string `json:"sessionId"`
	CourseID   string `json:"courseId"`
	Kind       string `json:"kind"`
	SectionID  string `json:"sectionId"`
	Day        string `json:"day"`
	StartTime  string `json:"startTime"`
	EndTime    string `json:"endTime"`
	RoomID     string `json:"roomId"`
	Instructor string `json:"instructor"`
}

// TimetableSummaryView aggregates a solved run for dashboards.
type TimetableSummaryView struct {
	RunID           string               `json:"runId"`
	TotalSessions   int                  `json:"totalSessions"`
	SessionsByDay   map[string]int       `json:"sessionsByDay"`
	SessionsByTime  map[string]int       `json:"sessionsByTime"`
	RoomUtilization map[string]int       `json:"roomUtilization"`
	InstructorLoad  map[string]int       `json:"instructorLoad"`
	Entries         []TimetableEntryView `json:"entries"`
}

// GenerateTimetableResponse reports the outcome of one generation run.
type GenerateTimetableResponse struct {
	RunID          string                `json:"runId"`
	Success        bool                  `json:"success"`
	Seed           int64                 `json:"seed"`
	Attempts       int                   `json:"attempts"`
	Iterations     int                   `json:"iterations"`
	HardViolations []string              `json:"hardViolations"`
	SoftViolations []string              `json:"softViolations"`
	Unschedulable  []string              `json:"unschedulable"`
	Summary        *TimetableSummaryView `json:"summary,omitempty"`
}

// RunQuery filters the run history listing.
type RunQuery struct {
	Status   string `form:"status" validate:"omitempty,oneof=SOLVED FAILED"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=200"`
}
