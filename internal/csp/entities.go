package csp

import "fmt"

// RoomKind classifies rooms for session compatibility checks.
type RoomKind string

const (
	RoomKindLecture RoomKind = "Lecture"
	RoomKindLab     RoomKind = "Lab"
)

// SessionKind classifies the teaching sessions to be scheduled.
type SessionKind string

const (
	SessionKindLecture  SessionKind = "LEC"
	SessionKindLab      SessionKind = "LAB"
	SessionKindTutorial SessionKind = "TUT"
)

// Preference captures an instructor's scheduling preference tag.
type Preference string

const (
	PreferenceMorning    Preference = "Morning"
	PreferenceAfternoon  Preference = "Afternoon"
	PreferenceNoThursday Preference = "No_Thursday"
	PreferenceAny        Preference = "Any"
)

// TimeSlot is one bookable period in the weekly grid. Start and end times are
// kept as the literal labels from the source data; ordering for soft
// constraints is derived separately from a parsed representation.
type TimeSlot struct {
	SlotID    int
	Day       string
	StartTime string
	EndTime   string
}

func (t TimeSlot) String() string {
	return fmt.Sprintf("%s %s-%s", t.Day, t.StartTime, t.EndTime)
}

// Room is a physical space with a kind and seating capacity.
type Room struct {
	RoomID    string
	Kind      RoomKind
	Capacity  int
	SpaceType string
}

func (r Room) String() string {
	return fmt.Sprintf("%s (%s, %d)", r.RoomID, r.Kind, r.Capacity)
}

// Instructor teaches the courses listed in QualifiedCourses and carries a
// single preference tag.
type Instructor struct {
	InstructorID     string
	Name             string
	QualifiedCourses []string
	Preference       Preference
}

func (i Instructor) String() string {
	return fmt.Sprintf("%s (ID: %s)", i.Name, i.InstructorID)
}

// Course describes an offering. The Instructors list mirrors the source data
// and is informational only; qualification is driven by the instructor side.
type Course struct {
	CourseID    string
	Name        string
	Credits     int
	Department  string
	Kind        string
	Instructors []string
}

// Section is a group of students; only the headcount matters for scheduling.
type Section struct {
	SectionID    string
	Semester     string
	StudentCount int
}

// Session is the unit of scheduling: one occurrence of a course kind for one
// section. Sessions are the CSP variables.
type Session struct {
	SessionID string
	CourseID  string
	Kind      SessionKind
	SectionID string
}

func (s Session) String() string {
	return fmt.Sprintf("%s: %s %s for %s", s.SessionID, s.CourseID, s.Kind, s.SectionID)
}

// Candidate is one legal (time slot, room, instructor) value for a session.
type Candidate struct {
	Slot       TimeSlot
	Room       Room
	Instructor Instructor
}

// Assignment maps session IDs to their chosen candidate. A missing key means
// the session has not been scheduled yet.
type Assignment map[string]Candidate

// Clone returns an independent copy of the assignment.
func (a Assignment) Clone() Assignment {
	out := make(Assignment, len(a))
	for id, cand := range a {
		out[id] = cand
	}
	return out
}

// Dataset bundles the entity collections the engine consumes. The collections
// are built once by the ingestion layer and never mutated afterwards.
type Dataset struct {
	TimeSlots   []TimeSlot
	Rooms       []Room
	Instructors []Instructor
	Courses     []Course
	Sections    []Section
	Sessions    []Session
}

// SectionByID resolves a section, reporting whether it exists.
func (d *Dataset) SectionByID(id string) (Section, bool) {
	for _, section := range d.Sections {
		if section.SectionID == id {
			return section, true
		}
	}
	return Section{}, false
}

// roomSuitable applies the room/session compatibility rule: LAB sessions need
// Lab rooms, LEC and TUT sessions need Lecture rooms. Unknown session kinds
// are handled by the domain builder before this is consulted.
func roomSuitable(kind SessionKind, room Room) bool {
	switch kind {
	case SessionKindLab:
		return room.Kind == RoomKindLab
	case SessionKindLecture, SessionKindTutorial:
		return room.Kind == RoomKindLecture
	default:
		return false
	}
}
