package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nav-in27/timetable-generator/internal/models"
)

func lockerSnapshot() Snapshot {
	light := testTeacher("t-light", "Light Load")
	heavy := testTeacher("t-heavy", "Heavy Load")
	return Snapshot{
		Teachers: []models.Teacher{light, heavy},
		Subjects: []models.Subject{
			{ID: "sub-1", Code: "S1", Name: "Subject One", SemesterNumber: 1, TheoryHours: 4},
			{ID: "sub-2", Code: "S2", Name: "Subject Two", SemesterNumber: 1, TheoryHours: 4},
		},
		Cohorts: []models.Cohort{
			{ID: "c1", Name: "S1-A", SemesterNumber: 1, StudentCount: 60},
		},
		Capabilities: []models.TeacherSubject{
			capability("t-light", "sub-1", 0.5),
			capability("t-heavy", "sub-1", 0.5),
			capability("t-light", "sub-2", 0.5),
			capability("t-heavy", "sub-2", 0.5),
		},
	}
}

func lockFor(t *testing.T, snap Snapshot) map[AssignmentKey]string {
	t.Helper()
	lk := buildLookup(&snap)
	rep := newReport()
	return lockAssignments(lk, sortedCohorts(lk), DefaultConfig(), rep)
}

func TestLockerBalancesProjectedLoad(t *testing.T) {
	assigned := lockFor(t, lockerSnapshot())

	first := assigned[AssignmentKey{"c1", "sub-1", models.ComponentTheory}]
	second := assigned[AssignmentKey{"c1", "sub-2", models.ComponentTheory}]
	require.NotEmpty(t, first)
	require.NotEmpty(t, second)
	assert.NotEqual(t, first, second, "second subject must go to the less loaded teacher")
}

func TestLockerBreaksTiesByExperience(t *testing.T) {
	snap := lockerSnapshot()
	snap.Teachers[1].ExperienceScore = 0.9 // t-heavy more experienced

	assigned := lockFor(t, snap)

	assert.Equal(t, "t-heavy", assigned[AssignmentKey{"c1", "sub-1", models.ComponentTheory}])
}

func TestLockerHonorsManualAssignments(t *testing.T) {
	snap := lockerSnapshot()
	snap.Assignments = []models.ComponentAssignment{
		{CohortID: "c1", SubjectID: "sub-1", Component: models.ComponentTheory, TeacherID: "t-heavy"},
	}

	assigned := lockFor(t, snap)

	assert.Equal(t, "t-heavy", assigned[AssignmentKey{"c1", "sub-1", models.ComponentTheory}])
}

func TestLockerOverflowFallsBackToLeastLoaded(t *testing.T) {
	snap := Snapshot{
		Teachers: []models.Teacher{
			func() models.Teacher {
				t := testTeacher("t-only", "Only Option")
				t.MaxHoursPerWeek = 4
				return t
			}(),
		},
		Subjects: []models.Subject{
			{ID: "sub-big", Code: "BIG", Name: "Big Subject", SemesterNumber: 1, TheoryHours: 10},
		},
		Cohorts: []models.Cohort{
			{ID: "c1", Name: "S1-A", SemesterNumber: 1, StudentCount: 60},
		},
		Capabilities: []models.TeacherSubject{
			capability("t-only", "sub-big", 0.5),
		},
	}

	lk := buildLookup(&snap)
	rep := newReport()
	assigned := lockAssignments(lk, sortedCohorts(lk), DefaultConfig(), rep)

	assert.Equal(t, "t-only", assigned[AssignmentKey{"c1", "sub-big", models.ComponentTheory}],
		"overflow must still assign rather than fail")
	assert.NotEmpty(t, rep.Warnings)
}

func TestLockerWarnsWhenNoTeacherQualifies(t *testing.T) {
	snap := lockerSnapshot()
	snap.Capabilities = nil

	lk := buildLookup(&snap)
	rep := newReport()
	assigned := lockAssignments(lk, sortedCohorts(lk), DefaultConfig(), rep)

	assert.Empty(t, assigned)
	assert.NotEmpty(t, rep.Warnings)
}
