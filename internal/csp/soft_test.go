package csp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func softFixture() *Dataset {
	return &Dataset{
		TimeSlots: []TimeSlot{
			{SlotID: 0, Day: "Sunday", StartTime: "09:00 AM", EndTime: "09:45 AM"},
			{SlotID: 1, Day: "Sunday", StartTime: "09:45 AM", EndTime: "10:30 AM"},
			{SlotID: 2, Day: "Monday", StartTime: "11:15 AM", EndTime: "12:00 PM"},
			{SlotID: 3, Day: "Thursday", StartTime: "02:15 PM", EndTime: "03:00 PM"},
			{SlotID: 4, Day: "Thursday", StartTime: "03:00 PM", EndTime: "03:45 PM"},
		},
		Rooms: []Room{{RoomID: "LH-1", Kind: RoomKindLecture, Capacity: 40}},
		Instructors: []Instructor{
			{InstructorID: "I1", Name: "Dana", QualifiedCourses: []string{"CS101"}, Preference: PreferenceMorning},
			{InstructorID: "I2", Name: "Sami", QualifiedCourses: []string{"CS101"}, Preference: PreferenceNoThursday},
		},
		Courses:  []Course{{CourseID: "CS101", Name: "Intro", Credits: 3, Department: "CSIT", Kind: "LEC"}},
		Sections: []Section{{SectionID: "SEC-A", Semester: "Fall", StudentCount: 25}},
		Sessions: []Session{{SessionID: "S1", CourseID: "CS101", Kind: SessionKindLecture, SectionID: "SEC-A"}},
	}
}

func TestEvaluateMorningPreferenceInLateSlot(t *testing.T) {
	ds := softFixture()
	evaluator := NewEvaluator(ds)

	// Force the morning-preferring instructor into the latest slot.
	assignment := Assignment{
		"S1": {Slot: ds.TimeSlots[4], Room: ds.Rooms[0], Instructor: ds.Instructors[0]},
	}

	violations := evaluator.Evaluate(assignment)

	var mismatches, late int
	for _, v := range violations {
		if strings.Contains(v, "prefers morning") {
			mismatches++
		}
		if strings.Contains(v, "Late slot") {
			late++
		}
	}
	assert.Equal(t, 1, mismatches, "exactly one preference mismatch expected: %v", violations)
	assert.Equal(t, 1, late, "the latest slot label must trip the late-slot rule")
}

func TestEvaluateNoThursdayPreference(t *testing.T) {
	ds := softFixture()
	evaluator := NewEvaluator(ds)

	assignment := Assignment{
		"S1": {Slot: ds.TimeSlots[3], Room: ds.Rooms[0], Instructor: ds.Instructors[1]},
	}

	violations := evaluator.Evaluate(assignment)
	var sawThursday bool
	for _, v := range violations {
		if strings.Contains(v, "prefers no Thursday") {
			sawThursday = true
		}
	}
	assert.True(t, sawThursday, "Thursday placement must be reported: %v", violations)
}

func TestEvaluateEarlySlots(t *testing.T) {
	ds := softFixture()
	evaluator := NewEvaluator(ds)

	// The two earliest labels in the grid are 09:00 AM and 09:45 AM.
	for _, slot := range ds.TimeSlots[:2] {
		assignment := Assignment{
			"S1": {Slot: slot, Room: ds.Rooms[0], Instructor: ds.Instructors[1]},
		}
		violations := evaluator.Evaluate(assignment)
		require.NotEmpty(t, violations)
		assert.Contains(t, violations[0], "Early morning slot")
	}

	// A mid-grid label trips neither boundary rule.
	assignment := Assignment{
		"S1": {Slot: ds.TimeSlots[2], Room: ds.Rooms[0], Instructor: ds.Instructors[1]},
	}
	assert.Empty(t, evaluator.Evaluate(assignment))
}

func TestEvaluateIsPure(t *testing.T) {
	ds := softFixture()
	evaluator := NewEvaluator(ds)

	assignment := Assignment{
		"S1": {Slot: ds.TimeSlots[4], Room: ds.Rooms[0], Instructor: ds.Instructors[0]},
	}

	first := evaluator.Evaluate(assignment)
	second := evaluator.Evaluate(assignment)
	assert.Equal(t, first, second)
}

func TestTimeGridOrdersParsedTimes(t *testing.T) {
	grid := newTimeGrid([]TimeSlot{
		// Deliberately unsorted: lexical order would rank "02:15 PM" first.
		{StartTime: "02:15 PM"},
		{StartTime: "09:00 AM"},
		{StartTime: "11:15 AM"},
		{StartTime: "09:45 AM"},
		{StartTime: "03:00 PM"},
	})

	assert.True(t, grid.early["09:00 AM"])
	assert.True(t, grid.early["09:45 AM"])
	assert.False(t, grid.early["02:15 PM"])
	assert.True(t, grid.late["02:15 PM"])
	assert.True(t, grid.late["03:00 PM"])
	assert.False(t, grid.late["09:00 AM"])
}

func TestSummarize(t *testing.T) {
	ds := fixtureDataset()

	result, _ := solveFixture(t, ds, SolverOptions{Seed: 11})
	require.True(t, result.Success)

	summary := Summarize(ds, result.Assignment)
	assert.Equal(t, 2, summary.TotalSessions)
	assert.Len(t, summary.Entries, 2)
	assert.Equal(t, "S1", summary.Entries[0].SessionID)
	assert.Equal(t, "S2", summary.Entries[1].SessionID)

	var dayTotal int
	for _, count := range summary.SessionsByDay {
		dayTotal += count
	}
	assert.Equal(t, 2, dayTotal)
	assert.NotEmpty(t, summary.RoomUtilization)
	assert.NotEmpty(t, summary.InstructorLoad)
}
