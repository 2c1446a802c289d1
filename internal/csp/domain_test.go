package csp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureDataset() *Dataset {
	return &Dataset{
		TimeSlots: []TimeSlot{
			{SlotID: 0, Day: "Sunday", StartTime: "09:00 AM", EndTime: "09:45 AM"},
			{SlotID: 1, Day: "Monday", StartTime: "10:30 AM", EndTime: "11:15 AM"},
			{SlotID: 2, Day: "Thursday", StartTime: "02:15 PM", EndTime: "03:00 PM"},
		},
		Rooms: []Room{
			{RoomID: "LH-1", Kind: RoomKindLecture, Capacity: 60, SpaceType: "Hall"},
			{RoomID: "LAB-1", Kind: RoomKindLab, Capacity: 25, SpaceType: "Computer Lab"},
		},
		Instructors: []Instructor{
			{InstructorID: "I1", Name: "Dana", QualifiedCourses: []string{"CS101"}, Preference: PreferenceMorning},
			{InstructorID: "I2", Name: "Sami", QualifiedCourses: []string{"CS202", "CS101L"}, Preference: PreferenceAny},
		},
		Courses: []Course{
			{CourseID: "CS101", Name: "Intro to CS", Credits: 3, Department: "CSIT", Kind: "LEC"},
			{CourseID: "CS202", Name: "Data Structures", Credits: 3, Department: "CSIT", Kind: "LEC"},
		},
		Sections: []Section{
			{SectionID: "SEC-A", Semester: "Fall", StudentCount: 30},
			{SectionID: "SEC-B", Semester: "Fall", StudentCount: 20},
		},
		Sessions: []Session{
			{SessionID: "S1", CourseID: "CS101", Kind: SessionKindLecture, SectionID: "SEC-A"},
			{SessionID: "S2", CourseID: "CS101", Kind: SessionKindLab, SectionID: "SEC-B"},
		},
	}
}

func TestBuildDomainsCrossProduct(t *testing.T) {
	ds := fixtureDataset()

	set, err := BuildDomains(ds, DomainOptions{})
	require.NoError(t, err)

	// S1 is a lecture: 3 slots x 1 lecture room x 2 qualified instructors
	// (Dana exactly, Sami via the "CS101L" substring).
	require.Len(t, set.Domains["S1"], 3*1*2)
	for _, cand := range set.Domains["S1"] {
		assert.Equal(t, RoomKindLecture, cand.Room.Kind)
	}

	// Time slot is the outermost loop of the cross product.
	assert.Equal(t, 0, set.Domains["S1"][0].Slot.SlotID)
	assert.Equal(t, 0, set.Domains["S1"][1].Slot.SlotID)
	assert.Equal(t, 1, set.Domains["S1"][2].Slot.SlotID)
	assert.Equal(t, 2, set.Domains["S1"][4].Slot.SlotID)

	// S2 is the lab of CS101 and can only use the lab room.
	require.Len(t, set.Domains["S2"], 3*1*2)
	for _, cand := range set.Domains["S2"] {
		assert.Equal(t, RoomKindLab, cand.Room.Kind)
	}
	assert.Empty(t, set.Unschedulable)
}

func TestBuildDomainsIdempotent(t *testing.T) {
	ds := fixtureDataset()

	first, err := BuildDomains(ds, DomainOptions{})
	require.NoError(t, err)
	second, err := BuildDomains(ds, DomainOptions{})
	require.NoError(t, err)

	require.Equal(t, len(first.Domains), len(second.Domains))
	for id, domain := range first.Domains {
		assert.Equal(t, domain, second.Domains[id], "domain for %s changed between builds", id)
	}
	assert.Equal(t, first.Courses, second.Courses)
}

func TestBuildDomainsPlaceholderCourse(t *testing.T) {
	ds := fixtureDataset()
	ds.Sessions = append(ds.Sessions, Session{
		SessionID: "S3", CourseID: "MATH9", Kind: SessionKindLecture, SectionID: "SEC-A",
	})

	set, err := BuildDomains(ds, DomainOptions{})
	require.NoError(t, err)

	require.Len(t, set.Courses, 3)
	placeholder := set.Courses[2]
	assert.Equal(t, "MATH9", placeholder.CourseID)
	assert.Equal(t, 3, placeholder.Credits)
	assert.Equal(t, "Unknown", placeholder.Department)
	assert.Equal(t, "LEC/LAB", placeholder.Kind)

	// Caller-owned input stays untouched; the updated catalogue is returned.
	assert.Len(t, ds.Courses, 2)

	// No instructor is qualified for MATH9, so the full pool is the fallback.
	assert.Len(t, set.Domains["S3"], 3*1*2)
}

func TestBuildDomainsUnknownKindFails(t *testing.T) {
	ds := fixtureDataset()
	ds.Sessions[0].Kind = "SEMINAR"

	_, err := BuildDomains(ds, DomainOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported kind")
}

func TestBuildDomainsNoSuitableRoom(t *testing.T) {
	ds := fixtureDataset()
	ds.Rooms = []Room{{RoomID: "LH-1", Kind: RoomKindLecture, Capacity: 60}}

	set, err := BuildDomains(ds, DomainOptions{})
	require.NoError(t, err)

	_, hasDomain := set.Domains["S2"]
	assert.False(t, hasDomain, "lab session must not receive a lecture-room domain")
	assert.Equal(t, []string{"S2"}, set.Unschedulable)
}

func TestBuildDomainsInvalidStrategy(t *testing.T) {
	_, err := BuildDomains(fixtureDataset(), DomainOptions{Strategy: "fuzzy"})
	require.Error(t, err)
}

func TestMatchStrategies(t *testing.T) {
	pool := []Instructor{
		{InstructorID: "I1", QualifiedCourses: []string{"CS10"}},
	}

	assert.Empty(t, qualifiedInstructors(pool, "CS101", MatchExact))
	assert.Empty(t, qualifiedInstructors(pool, "CS101", MatchPrefix))

	// Substring matching accepts the shorter code inside the longer one,
	// which is exactly the false positive the strategy knob exists for.
	assert.Len(t, qualifiedInstructors(pool, "CS1", MatchSubstring), 1)
	assert.Len(t, qualifiedInstructors(pool, "CS1", MatchPrefix), 1)
}
