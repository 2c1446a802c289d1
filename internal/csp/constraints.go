package csp

import "fmt"

// Checker enforces the hard constraints. It is consulted once per candidate
// trial during search; every rejection is recorded in the violation trail so
// callers can render full diagnostics after a failed solve.
type Checker struct {
	sections   map[string]Section
	violations []string
}

// NewChecker builds a checker over the dataset's sections.
func NewChecker(ds *Dataset) *Checker {
	sections := make(map[string]Section, len(ds.Sections))
	for _, section := range ds.Sections {
		sections[section.SectionID] = section
	}
	return &Checker{sections: sections}
}

// Violations returns the accumulated hard-constraint violation trail.
func (c *Checker) Violations() []string {
	return c.violations
}

// Reset clears the violation trail for a fresh solve.
func (c *Checker) Reset() {
	c.violations = c.violations[:0]
}

// Admissible reports whether placing the session at the candidate would keep
// the assignment consistent. Checks run in a fixed order and short-circuit on
// the first failure. Recording the violation is observability only; it never
// changes the verdict.
func (c *Checker) Admissible(assignment Assignment, session Session, cand Candidate) bool {
	for _, assigned := range assignment {
		if assigned.Instructor.InstructorID == cand.Instructor.InstructorID &&
			assigned.Slot.SlotID == cand.Slot.SlotID {
			c.record("Instructor %s double-booked at %s", cand.Instructor.Name, cand.Slot)
			return false
		}
	}

	for _, assigned := range assignment {
		if assigned.Room.RoomID == cand.Room.RoomID && assigned.Slot.SlotID == cand.Slot.SlotID {
			c.record("Room %s double-booked at %s", cand.Room.RoomID, cand.Slot)
			return false
		}
	}

	// Capacity is skipped when the section cannot be resolved; the ingestion
	// layer is responsible for surfacing orphan section references.
	if section, ok := c.sections[session.SectionID]; ok {
		if cand.Room.Capacity < section.StudentCount {
			c.record("Room %s capacity %d insufficient for section %s (%d students)",
				cand.Room.RoomID, cand.Room.Capacity, section.SectionID, section.StudentCount)
			return false
		}
	}

	// The domain builder already excludes unsuitable rooms; re-checking keeps
	// the checker safe against hand-built candidates.
	if !roomSuitable(session.Kind, cand.Room) {
		c.record("Room %s kind %s unsuitable for session kind %s",
			cand.Room.RoomID, cand.Room.Kind, session.Kind)
		return false
	}

	return true
}

func (c *Checker) record(format string, args ...any) {
	c.violations = append(c.violations, fmt.Sprintf(format, args...))
}
