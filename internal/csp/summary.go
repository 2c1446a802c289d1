package csp

import "sort"

// SummaryEntry is one scheduled session flattened for export and reporting.
type SummaryEntry struct {
	SessionID    string
	CourseID     string
	SessionKind  SessionKind
	SectionID    string
	Day          string
	StartTime    string
	EndTime      string
	RoomID       string
	Instructor   string
	InstructorID string
}

// Summary aggregates a completed assignment for dashboards and file export.
// The engine produces the view; rendering and persistence belong to callers.
type Summary struct {
	TotalSessions   int
	SessionsByDay   map[string]int
	SessionsByTime  map[string]int
	RoomUtilization map[string]int
	InstructorLoad  map[string]int
	Entries         []SummaryEntry
}

// Summarize builds the summary view over the assignment. Entries are ordered
// by session ID; assignment keys with no matching session are skipped.
func Summarize(ds *Dataset, assignment Assignment) Summary {
	sessions := make(map[string]Session, len(ds.Sessions))
	for _, session := range ds.Sessions {
		sessions[session.SessionID] = session
	}

	summary := Summary{
		SessionsByDay:   make(map[string]int),
		SessionsByTime:  make(map[string]int),
		RoomUtilization: make(map[string]int),
		InstructorLoad:  make(map[string]int),
	}

	ids := make([]string, 0, len(assignment))
	for id := range assignment {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		session, ok := sessions[id]
		if !ok {
			continue
		}
		cand := assignment[id]

		summary.TotalSessions++
		summary.SessionsByDay[cand.Slot.Day]++
		summary.SessionsByTime[cand.Slot.StartTime]++
		summary.RoomUtilization[cand.Room.RoomID]++
		summary.InstructorLoad[cand.Instructor.Name]++

		summary.Entries = append(summary.Entries, SummaryEntry{
			SessionID:    session.SessionID,
			CourseID:     session.CourseID,
			SessionKind:  session.Kind,
			SectionID:    session.SectionID,
			Day:          cand.Slot.Day,
			StartTime:    cand.Slot.StartTime,
			EndTime:      cand.Slot.EndTime,
			RoomID:       cand.Room.RoomID,
			Instructor:   cand.Instructor.Name,
			InstructorID: cand.Instructor.InstructorID,
		})
	}

	return summary
}
