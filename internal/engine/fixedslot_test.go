package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nav-in27/timetable-generator/internal/models"
)

func TestValidateLockAcceptsCleanLock(t *testing.T) {
	eng := New(DefaultConfig(), nil)
	teacher := "t-x"

	check := eng.ValidateLock(twoSubjectSnapshot(), models.FixedSlot{
		ID: "fs1", CohortID: "c1", SubjectID: "sub-x", TeacherID: &teacher,
		Component: models.ComponentTheory, Day: 1, Period: 2,
	})

	assert.True(t, check.IsValid)
	assert.Empty(t, check.Errors)
}

func TestValidateLockRejectsBadInput(t *testing.T) {
	eng := New(DefaultConfig(), nil)
	snap := twoSubjectSnapshot()

	cases := []struct {
		name string
		lock models.FixedSlot
	}{
		{"unknown cohort", models.FixedSlot{CohortID: "nope", SubjectID: "sub-x", Component: models.ComponentTheory, Day: 0, Period: 0}},
		{"unknown subject", models.FixedSlot{CohortID: "c1", SubjectID: "nope", Component: models.ComponentTheory, Day: 0, Period: 0}},
		{"outside grid", models.FixedSlot{CohortID: "c1", SubjectID: "sub-x", Component: models.ComponentTheory, Day: 9, Period: 0}},
		{"no hours for component", models.FixedSlot{CohortID: "c1", SubjectID: "sub-x", Component: models.ComponentLab, Day: 0, Period: 3}},
		{"lab off block start", models.FixedSlot{CohortID: "c1", SubjectID: "sub-y", Component: models.ComponentLab, Day: 0, Period: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			check := eng.ValidateLock(snap, tc.lock)
			assert.False(t, check.IsValid)
			assert.NotEmpty(t, check.Errors)
		})
	}
}

func TestValidateLockRejectsTeacherWithoutCapability(t *testing.T) {
	eng := New(DefaultConfig(), nil)
	teacher := "t-y"

	check := eng.ValidateLock(twoSubjectSnapshot(), models.FixedSlot{
		ID: "fs1", CohortID: "c1", SubjectID: "sub-x", TeacherID: &teacher,
		Component: models.ComponentTheory, Day: 1, Period: 2,
	})

	assert.False(t, check.IsValid)
}

func TestValidateLockDetectsConflictsWithExistingLocks(t *testing.T) {
	eng := New(DefaultConfig(), nil)
	snap := twoSubjectSnapshot()
	teacher := "t-x"
	snap.FixedSlots = []models.FixedSlot{
		{ID: "fs0", CohortID: "c1", SubjectID: "sub-y", TeacherID: &teacher, Component: models.ComponentTheory, Day: 2, Period: 3},
	}

	check := eng.ValidateLock(snap, models.FixedSlot{
		ID: "fs1", CohortID: "c1", SubjectID: "sub-x", TeacherID: &teacher,
		Component: models.ComponentTheory, Day: 2, Period: 3,
	})

	assert.False(t, check.IsValid)
	assert.NotEmpty(t, check.Errors)
}
