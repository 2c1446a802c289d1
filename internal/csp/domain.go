package csp

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// MatchStrategy controls how course codes are matched against instructor
// qualifications and the course catalogue. The original data uses loose codes
// ("CS101L" for the lab of "CS101"), so substring matching is the default, but
// it can produce false positives ("CS1" matching "CS10") and is therefore
// configurable.
type MatchStrategy string

const (
	MatchExact     MatchStrategy = "exact"
	MatchPrefix    MatchStrategy = "prefix"
	MatchSubstring MatchStrategy = "substring"
)

// Valid reports whether the strategy is one of the supported values.
func (m MatchStrategy) Valid() bool {
	switch m {
	case MatchExact, MatchPrefix, MatchSubstring:
		return true
	}
	return false
}

func (m MatchStrategy) matches(sessionCode, knownCode string) bool {
	switch m {
	case MatchExact:
		return sessionCode == knownCode
	case MatchPrefix:
		return strings.HasPrefix(knownCode, sessionCode)
	default:
		return strings.Contains(knownCode, sessionCode)
	}
}

// DomainOptions tunes domain construction.
type DomainOptions struct {
	Strategy MatchStrategy
	Logger   *zap.Logger
}

// DomainSet is the output of domain building. Courses carries the input
// catalogue plus any placeholder courses synthesized for unresolvable session
// codes, so callers can adopt the updated catalogue explicitly instead of
// having their own slice mutated underneath them.
type DomainSet struct {
	Domains       map[string][]Candidate
	Courses       []Course
	Unschedulable []string
}

// BuildDomains computes, for every session, the legal (time slot, room,
// instructor) candidates. Sessions with no suitable room receive no domain and
// are listed in Unschedulable. An unknown session kind fails the whole build.
func BuildDomains(ds *Dataset, opts DomainOptions) (*DomainSet, error) {
	strategy := opts.Strategy
	if strategy == "" {
		strategy = MatchSubstring
	}
	if !strategy.Valid() {
		return nil, fmt.Errorf("unknown match strategy %q", opts.Strategy)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	courses := make([]Course, len(ds.Courses))
	copy(courses, ds.Courses)

	result := &DomainSet{Domains: make(map[string][]Candidate, len(ds.Sessions))}

	for _, session := range ds.Sessions {
		switch session.Kind {
		case SessionKindLab, SessionKindLecture, SessionKindTutorial:
		default:
			return nil, fmt.Errorf("session %s has unsupported kind %q", session.SessionID, session.Kind)
		}

		course, found := resolveCourse(courses, session.CourseID, strategy)
		if !found {
			logger.Warn("course not found, synthesizing placeholder",
				zap.String("session_id", session.SessionID),
				zap.String("course_id", session.CourseID))
			course = placeholderCourse(session.CourseID)
			courses = append(courses, course)
		}

		qualified := qualifiedInstructors(ds.Instructors, course.CourseID, strategy)
		if len(qualified) == 0 {
			logger.Warn("no qualified instructors, falling back to full pool",
				zap.String("course_id", course.CourseID))
			qualified = ds.Instructors
		}

		var rooms []Room
		for _, room := range ds.Rooms {
			if roomSuitable(session.Kind, room) {
				rooms = append(rooms, room)
			}
		}
		if len(rooms) == 0 {
			logger.Warn("no suitable rooms, session cannot be scheduled",
				zap.String("session_id", session.SessionID),
				zap.String("kind", string(session.Kind)))
			result.Unschedulable = append(result.Unschedulable, session.SessionID)
			continue
		}

		domain := make([]Candidate, 0, len(ds.TimeSlots)*len(rooms)*len(qualified))
		for _, slot := range ds.TimeSlots {
			for _, room := range rooms {
				for _, instructor := range qualified {
					domain = append(domain, Candidate{Slot: slot, Room: room, Instructor: instructor})
				}
			}
		}
		result.Domains[session.SessionID] = domain
	}

	result.Courses = courses
	return result, nil
}

// resolveCourse tries an exact code match first, then the configured loose
// match against the catalogue. A placeholder synthesized for an earlier
// session with the same code resolves exactly here, mirroring the shared
// catalogue the sessions expect.
func resolveCourse(courses []Course, code string, strategy MatchStrategy) (Course, bool) {
	for _, course := range courses {
		if course.CourseID == code {
			return course, true
		}
	}
	if strategy != MatchExact {
		for _, course := range courses {
			if strategy.matches(code, course.CourseID) {
				return course, true
			}
		}
	}
	return Course{}, false
}

func placeholderCourse(code string) Course {
	return Course{
		CourseID:   code,
		Name:       fmt.Sprintf("Placeholder Course %s", code),
		Credits:    3,
		Department: "Unknown",
		Kind:       "LEC/LAB",
	}
}

func qualifiedInstructors(pool []Instructor, courseID string, strategy MatchStrategy) []Instructor {
	var qualified []Instructor
	for _, instructor := range pool {
		for _, known := range instructor.QualifiedCourses {
			if known == courseID || (strategy != MatchExact && strategy.matches(courseID, known)) {
				qualified = append(qualified, instructor)
				break
			}
		}
	}
	return qualified
}
