package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nav-in27/timetable-generator/internal/models"
)

func matcherSnapshot() Snapshot {
	return Snapshot{
		Teachers: []models.Teacher{
			testTeacher("t-abs", "Absent One"),
			testTeacher("t-q", "Qualified Sub"),
			testTeacher("t-u", "Unqualified Sub"),
		},
		Subjects: []models.Subject{
			{ID: "sub-x", Code: "X", Name: "Subject X", SemesterNumber: 1, TheoryHours: 4},
		},
		Capabilities: []models.TeacherSubject{
			capability("t-abs", "sub-x", 0.9),
			capability("t-q", "sub-x", 0.8),
		},
	}
}

func TestRankSubstitutesPrefersQualifiedTeachers(t *testing.T) {
	eng := New(DefaultConfig(), nil)

	got := eng.RankSubstitutes(matcherSnapshot(), SubstituteContext{
		SubjectID:        "sub-x",
		Day:              1,
		Period:           2,
		ExcludeTeacherID: "t-abs",
		Loads:            map[string]int{"t-q": 10, "t-u": 4},
	}, DefaultMatchWeights())

	require.Len(t, got, 2)
	assert.Equal(t, "t-q", got[0].TeacherID, "capability match outweighs a lighter load")
	assert.True(t, got[0].Qualified)
	assert.False(t, got[1].Qualified)
	assert.Greater(t, got[0].Score, got[1].Score)
}

func TestRankSubstitutesScoreIsReproducible(t *testing.T) {
	eng := New(DefaultConfig(), nil)
	ctx := SubstituteContext{
		SubjectID:        "sub-x",
		Day:              0,
		Period:           0,
		ExcludeTeacherID: "t-abs",
		Loads:            map[string]int{"t-q": 8, "t-u": 8},
	}

	first := eng.RankSubstitutes(matcherSnapshot(), ctx, DefaultMatchWeights())
	second := eng.RankSubstitutes(matcherSnapshot(), ctx, DefaultMatchWeights())

	assert.Equal(t, first, second)
}

func TestRankSubstitutesScoreFormula(t *testing.T) {
	eng := New(DefaultConfig(), nil)

	got := eng.RankSubstitutes(matcherSnapshot(), SubstituteContext{
		SubjectID:        "sub-x",
		Day:              0,
		Period:           0,
		ExcludeTeacherID: "t-abs",
		Loads:            map[string]int{"t-q": 5, "t-u": 10},
	}, DefaultMatchWeights())

	require.Len(t, got, 2)
	// t-q: 0.4*1 + 0.3*(1-5/10) + 0.2*0.8 + 0.1*0.5 = 0.76
	assert.InDelta(t, 0.76, got[0].Score, 1e-9)
	// t-u: 0.4*0 + 0.3*(1-10/10) + 0.2*0 + 0.1*0.5 = 0.05
	assert.InDelta(t, 0.05, got[1].Score, 1e-9)
}

func TestRankSubstitutesFiltersIneligibleTeachers(t *testing.T) {
	eng := New(DefaultConfig(), nil)
	snap := matcherSnapshot()
	snap.Teachers[2].Active = false
	snap.Teachers = append(snap.Teachers,
		models.Teacher{ID: "t-wkd", FullName: "Weekend Only", MaxHoursPerWeek: 20, AvailableDays: "5,6", Active: true},
		func() models.Teacher {
			t := testTeacher("t-full", "Fully Loaded")
			return t
		}(),
	)

	got := eng.RankSubstitutes(snap, SubstituteContext{
		SubjectID:        "sub-x",
		Day:              1,
		Period:           2,
		ExcludeTeacherID: "t-abs",
		Loads:            map[string]int{"t-full": 20},
		Busy:             map[string]bool{},
		Absent:           map[string]bool{},
	}, DefaultMatchWeights())

	require.Len(t, got, 1, "inactive, unavailable-day and max-load teachers are filtered")
	assert.Equal(t, "t-q", got[0].TeacherID)
}

func TestRankSubstitutesEmptyPool(t *testing.T) {
	eng := New(DefaultConfig(), nil)
	snap := matcherSnapshot()

	got := eng.RankSubstitutes(snap, SubstituteContext{
		SubjectID:        "sub-x",
		Day:              1,
		Period:           2,
		ExcludeTeacherID: "t-abs",
		Busy:             map[string]bool{"t-q": true, "t-u": true},
	}, DefaultMatchWeights())

	assert.Empty(t, got)
}
