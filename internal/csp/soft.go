package csp

import (
	"fmt"
	"sort"
	"time"
)

// timeGrid orders the distinct start-time labels of the slot collection by
// parsed time of day. The labels themselves stay authoritative for reporting;
// parsing exists only so "09:45 AM" sorts before "02:15 PM". Labels that fail
// to parse fall back to lexical order among themselves, after the parseable
// ones.
type timeGrid struct {
	early map[string]bool
	late  map[string]bool
}

const startTimeLayout = "03:04 PM"

func newTimeGrid(slots []TimeSlot) timeGrid {
	seen := make(map[string]bool)
	var parsed, unparsed []string
	for _, slot := range slots {
		if seen[slot.StartTime] {
			continue
		}
		seen[slot.StartTime] = true
		if _, err := time.Parse(startTimeLayout, slot.StartTime); err != nil {
			unparsed = append(unparsed, slot.StartTime)
		} else {
			parsed = append(parsed, slot.StartTime)
		}
	}

	sort.Slice(parsed, func(i, j int) bool {
		a, _ := time.Parse(startTimeLayout, parsed[i])
		b, _ := time.Parse(startTimeLayout, parsed[j])
		return a.Before(b)
	})
	sort.Strings(unparsed)
	ordered := append(parsed, unparsed...)

	grid := timeGrid{early: make(map[string]bool), late: make(map[string]bool)}
	for i, label := range ordered {
		if i < 2 {
			grid.early[label] = true
		}
		if i >= len(ordered)-2 {
			grid.late[label] = true
		}
	}
	return grid
}

// Evaluator scores a completed assignment against the soft preference rules.
// Evaluation is diagnostic only: it never mutates the assignment and never
// blocks a solution.
type Evaluator struct {
	grid     timeGrid
	sessions map[string]Session
}

// NewEvaluator derives the early/late slot boundaries from the time grid.
func NewEvaluator(ds *Dataset) *Evaluator {
	sessions := make(map[string]Session, len(ds.Sessions))
	for _, session := range ds.Sessions {
		sessions[session.SessionID] = session
	}
	return &Evaluator{grid: newTimeGrid(ds.TimeSlots), sessions: sessions}
}

// Evaluate returns the flat violation list for the assignment. The rules are
// independent; one placement can contribute several violations. Output order
// follows session ID so re-runs over the same assignment compare equal.
func (e *Evaluator) Evaluate(assignment Assignment) []string {
	ids := make([]string, 0, len(assignment))
	for id := range assignment {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var violations []string
	for _, id := range ids {
		cand := assignment[id]
		if _, ok := e.sessions[id]; !ok {
			continue
		}

		if e.grid.early[cand.Slot.StartTime] {
			violations = append(violations,
				fmt.Sprintf("Early morning slot for %s at %s", id, cand.Slot))
		}
		if e.grid.late[cand.Slot.StartTime] {
			violations = append(violations,
				fmt.Sprintf("Late slot for %s at %s", id, cand.Slot))
		}

		switch cand.Instructor.Preference {
		case PreferenceMorning:
			if e.grid.late[cand.Slot.StartTime] {
				violations = append(violations,
					fmt.Sprintf("Instructor %s prefers morning but assigned to %s", cand.Instructor.Name, cand.Slot))
			}
		case PreferenceAfternoon:
			if e.grid.early[cand.Slot.StartTime] {
				violations = append(violations,
					fmt.Sprintf("Instructor %s prefers afternoon but assigned to %s", cand.Instructor.Name, cand.Slot))
			}
		case PreferenceNoThursday:
			if cand.Slot.Day == "Thursday" {
				violations = append(violations,
					fmt.Sprintf("Instructor %s prefers no Thursday but assigned to %s", cand.Instructor.Name, cand.Slot))
			}
		}
	}
	return violations
}
