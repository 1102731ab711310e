package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nav-in27/timetable-generator/internal/models"
)

func testTeacher(id, name string) models.Teacher {
	return models.Teacher{
		ID:              id,
		Email:           id + "@example.edu",
		FullName:        name,
		MaxHoursPerWeek: 20,
		MaxConsecutive:  3,
		ExperienceScore: 0.5,
		AvailableDays:   "0,1,2,3,4",
		Active:          true,
	}
}

func capability(teacherID, subjectID string, effectiveness float64) models.TeacherSubject {
	return models.TeacherSubject{
		ID:                 teacherID + "-" + subjectID,
		TeacherID:          teacherID,
		SubjectID:          subjectID,
		EffectivenessScore: effectiveness,
	}
}

// twoSubjectSnapshot is a single cohort with X (4 theory) and
// Y (3 theory + 2 lab) on the default 5x7 grid.
func twoSubjectSnapshot() Snapshot {
	return Snapshot{
		Teachers: []models.Teacher{
			testTeacher("t-x", "Asha Menon"),
			testTeacher("t-y", "Ravi Iyer"),
		},
		Subjects: []models.Subject{
			{ID: "sub-x", Code: "X", Name: "Subject X", SemesterNumber: 1, TheoryHours: 4},
			{ID: "sub-y", Code: "Y", Name: "Subject Y", SemesterNumber: 1, TheoryHours: 3, LabHours: 2},
		},
		Cohorts: []models.Cohort{
			{ID: "c1", Name: "S1-A", SemesterNumber: 1, StudentCount: 60},
		},
		Capabilities: []models.TeacherSubject{
			capability("t-x", "sub-x", 0.8),
			capability("t-y", "sub-y", 0.8),
		},
	}
}

func TestGenerateSparseCohortLeavesFreePeriods(t *testing.T) {
	eng := New(DefaultConfig(), nil)

	res := eng.Generate(twoSubjectSnapshot(), nil)

	require.NotNil(t, res)
	assert.True(t, res.Report.Success)
	assert.Empty(t, res.Report.Anomalies)

	assert.Len(t, res.Allocations, 35, "every cell of the 5x7 grid must be represented")

	scheduled, free := 0, 0
	for _, a := range res.Allocations {
		if a.IsFree {
			free++
		} else {
			scheduled++
		}
	}
	assert.Equal(t, 9, scheduled)
	assert.Equal(t, 26, free)
	assert.Equal(t, 26, res.Report.FreePeriods)

	require.Len(t, res.Report.Cohorts, 1)
	assert.Equal(t, 9, res.Report.Cohorts[0].Required)
	assert.Equal(t, 9, res.Report.Cohorts[0].Scheduled)
	assert.Equal(t, 26, res.Report.Cohorts[0].FreePeriods)
	assert.Equal(t, 0, res.Report.Cohorts[0].Deficit)

	// Free periods are an informational note, not a degradation.
	assert.Empty(t, res.Report.Warnings)
	require.Len(t, res.Report.Notes, 1)
	assert.Contains(t, res.Report.Notes[0], "26 will be free")
}

func TestGenerateLabBlocksArePostLunchPairs(t *testing.T) {
	cfg := DefaultConfig()
	eng := New(cfg, nil)

	res := eng.Generate(twoSubjectSnapshot(), nil)

	var labs []models.Allocation
	for _, a := range res.Allocations {
		if a.Component == models.ComponentLab && !a.IsFree {
			labs = append(labs, a)
		}
	}
	require.Len(t, labs, 2, "a 2-hour lab is exactly one block")

	first, second := labs[0], labs[1]
	if first.Period > second.Period {
		first, second = second, first
	}
	assert.Equal(t, first.Day, second.Day)
	assert.Equal(t, *first.SubjectID, *second.SubjectID)
	assert.Equal(t, *first.TeacherID, *second.TeacherID)
	assert.False(t, first.IsLabContinuation)
	assert.True(t, second.IsLabContinuation)

	validStart := false
	for _, blk := range cfg.LabBlocks {
		if first.Period == blk[0] && second.Period == blk[1] {
			validStart = true
		}
	}
	assert.True(t, validStart, "lab must occupy a configured post-lunch block")
}

func TestGenerateRespectsDailyRepeatCap(t *testing.T) {
	eng := New(DefaultConfig(), nil)

	res := eng.Generate(twoSubjectSnapshot(), nil)

	counts := make(map[string]int)
	for _, a := range res.Allocations {
		if a.IsFree || a.Component != models.ComponentTheory {
			continue
		}
		counts[fmt.Sprintf("%s|%d|%s", a.CohortID, a.Day, *a.SubjectID)]++
	}
	for key, n := range counts {
		assert.LessOrEqual(t, n, 1, "theory repeat on %s", key)
	}
}

func electiveSnapshot() Snapshot {
	basket := "oe1"
	return Snapshot{
		Teachers: []models.Teacher{
			testTeacher("t-a", "Divya Rao"),
			testTeacher("t-b", "Karan Shah"),
			testTeacher("t-c", "Meera Pillai"),
		},
		Subjects: []models.Subject{
			{ID: "el-a", Code: "OEA", Name: "Elective A", SemesterNumber: 3, TheoryHours: 3, IsElective: true, BasketID: &basket},
			{ID: "el-b", Code: "OEB", Name: "Elective B", SemesterNumber: 3, TheoryHours: 3, IsElective: true, BasketID: &basket},
			{ID: "el-c", Code: "OEC", Name: "Elective C", SemesterNumber: 3, TheoryHours: 3, IsElective: true, BasketID: &basket},
		},
		Cohorts: []models.Cohort{
			{ID: "c1", Name: "S3-A", SemesterNumber: 3, StudentCount: 60},
			{ID: "c2", Name: "S3-B", SemesterNumber: 3, StudentCount: 60},
			{ID: "c3", Name: "S3-C", SemesterNumber: 3, StudentCount: 60},
		},
		Baskets: []models.ElectiveBasket{
			{ID: basket, Name: "Open Elective 1", SemesterNumber: 3},
		},
		Capabilities: []models.TeacherSubject{
			capability("t-a", "el-a", 0.9),
			capability("t-b", "el-b", 0.9),
			capability("t-c", "el-c", 0.9),
		},
	}
}

func TestGenerateSynchronizesElectiveBasket(t *testing.T) {
	eng := New(DefaultConfig(), nil)

	res := eng.Generate(electiveSnapshot(), nil)
	require.NotNil(t, res)
	assert.Empty(t, res.Report.Anomalies)

	cells := make(map[string]map[Cell]bool)
	for _, a := range res.Allocations {
		if a.IsFree || !a.IsElective {
			continue
		}
		if cells[a.CohortID] == nil {
			cells[a.CohortID] = make(map[Cell]bool)
		}
		cells[a.CohortID][Cell{a.Day, a.Period}] = true
	}

	require.Len(t, cells, 3, "every cohort must get elective sessions")
	for cohortID, set := range cells {
		assert.Len(t, set, 3, "cohort %s must hold 3 elective theory cells", cohortID)
	}
	assert.Equal(t, cells["c1"], cells["c2"], "basket cells must be identical across cohorts")
	assert.Equal(t, cells["c1"], cells["c3"], "basket cells must be identical across cohorts")
}

func TestGenerateSpreadsElectiveRoundsAcrossDays(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		cfg := DefaultConfig()
		cfg.Seed = seed

		res := New(cfg, nil).Generate(electiveSnapshot(), nil)
		require.NotNil(t, res)

		perDay := make(map[string]map[int]int)
		for _, a := range res.Allocations {
			if a.IsFree || !a.IsElective {
				continue
			}
			if perDay[a.CohortID] == nil {
				perDay[a.CohortID] = make(map[int]int)
			}
			perDay[a.CohortID][a.Day]++
		}
		for cohortID, days := range perDay {
			for day, n := range days {
				assert.LessOrEqual(t, n, 1,
					"seed %d: cohort %s holds %d elective rounds on day %d", seed, cohortID, n, day)
			}
		}
	}
}

func TestGenerateIsDeterministicForASeed(t *testing.T) {
	snapA := electiveSnapshot()
	snapB := electiveSnapshot()
	eng := New(DefaultConfig(), nil)

	resA := eng.Generate(snapA, nil)
	resB := eng.Generate(snapB, nil)

	assert.Equal(t, resA.Allocations, resB.Allocations)
	assert.Equal(t, resA.Assignments, resB.Assignments)
}

func TestGenerateKeepsBasketsInOneSemesterDisjoint(t *testing.T) {
	b2 := "oe2"
	basketOf := map[string]string{"el-a": "oe1", "el-b": "oe1", "el-c": "oe1", "el-d": b2, "el-e": b2}

	for seed := int64(0); seed < 10; seed++ {
		snap := electiveSnapshot()
		snap.Subjects = append(snap.Subjects,
			models.Subject{ID: "el-d", Code: "OED", Name: "Elective D", SemesterNumber: 3, TheoryHours: 2, IsElective: true, BasketID: &b2},
			models.Subject{ID: "el-e", Code: "OEE", Name: "Elective E", SemesterNumber: 3, TheoryHours: 2, IsElective: true, BasketID: &b2},
		)
		snap.Baskets = append(snap.Baskets, models.ElectiveBasket{ID: b2, Name: "Open Elective 2", SemesterNumber: 3})
		snap.Teachers = append(snap.Teachers, testTeacher("t-d", "Arjun Bose"), testTeacher("t-e", "Leela Nair"))
		snap.Capabilities = append(snap.Capabilities,
			capability("t-d", "el-d", 0.9),
			capability("t-e", "el-e", 0.9),
		)

		cfg := DefaultConfig()
		cfg.Seed = seed
		res := New(cfg, nil).Generate(snap, nil)
		require.NotNil(t, res)
		assert.Empty(t, res.Report.Anomalies, "seed %d", seed)

		// Both baskets share the cohorts; their reserved cells must never overlap.
		cells := make(map[string]map[Cell]string)
		for _, a := range res.Allocations {
			if a.IsFree || !a.IsElective {
				continue
			}
			if cells[a.CohortID] == nil {
				cells[a.CohortID] = make(map[Cell]string)
			}
			cell := Cell{a.Day, a.Period}
			if prev, taken := cells[a.CohortID][cell]; taken {
				t.Fatalf("seed %d: cohort %s has baskets %s and %s both at %v",
					seed, a.CohortID, prev, basketOf[*a.SubjectID], cell)
			}
			cells[a.CohortID][cell] = basketOf[*a.SubjectID]
		}
		for cohortID, set := range cells {
			assert.Len(t, set, 5, "seed %d: cohort %s must hold 3+2 elective cells", seed, cohortID)
		}
	}
}

func TestGenerateAssignmentIdempotence(t *testing.T) {
	eng := New(DefaultConfig(), nil)

	first := eng.Generate(twoSubjectSnapshot(), nil)
	second := eng.Generate(twoSubjectSnapshot(), nil)

	assert.Equal(t, first.Assignments, second.Assignments,
		"re-running against unchanged inputs must reproduce the teacher mapping")
}

func TestGenerateNeverDoubleBooks(t *testing.T) {
	snap := electiveSnapshot()
	// Add regular load on top of the electives.
	snap.Subjects = append(snap.Subjects,
		models.Subject{ID: "sub-m", Code: "M", Name: "Mathematics", SemesterNumber: 3, TheoryHours: 4, TutorialHours: 1},
		models.Subject{ID: "sub-p", Code: "P", Name: "Physics", SemesterNumber: 3, TheoryHours: 3, LabHours: 2},
	)
	snap.Teachers = append(snap.Teachers, testTeacher("t-m", "Nikhil Jain"), testTeacher("t-p", "Sana Khan"))
	snap.Capabilities = append(snap.Capabilities,
		capability("t-m", "sub-m", 0.7),
		capability("t-p", "sub-p", 0.7),
	)

	res := New(DefaultConfig(), nil).Generate(snap, nil)
	require.NotNil(t, res)
	assert.Empty(t, res.Report.Anomalies)

	teacherSeen := make(map[string]bool)
	cohortSeen := make(map[string]bool)
	for _, a := range res.Allocations {
		cKey := fmt.Sprintf("%s|%d|%d", a.CohortID, a.Day, a.Period)
		assert.False(t, cohortSeen[cKey], "cohort cell %s duplicated", cKey)
		cohortSeen[cKey] = true
		if a.IsFree || a.TeacherID == nil {
			continue
		}
		tKey := fmt.Sprintf("%s|%d|%d", *a.TeacherID, a.Day, a.Period)
		assert.False(t, teacherSeen[tKey], "teacher slot %s duplicated", tKey)
		teacherSeen[tKey] = true
	}
}

func TestGenerateWarnsWhenDemandExceedsCapacity(t *testing.T) {
	snap := twoSubjectSnapshot()
	snap.Subjects = append(snap.Subjects,
		models.Subject{ID: "sub-z", Code: "Z", Name: "Subject Z", SemesterNumber: 1, TheoryHours: 30},
	)
	snap.Teachers = append(snap.Teachers, testTeacher("t-z", "Vikram Nair"))
	snap.Capabilities = append(snap.Capabilities, capability("t-z", "sub-z", 0.6))

	res := New(DefaultConfig(), nil).Generate(snap, nil)

	require.NotNil(t, res)
	assert.True(t, res.Report.Success, "over-demand degrades, never aborts")
	assert.NotEmpty(t, res.Report.Warnings)

	scheduled := 0
	for _, a := range res.Allocations {
		if !a.IsFree {
			scheduled++
		}
	}
	assert.LessOrEqual(t, scheduled, 35)
}

func TestGenerateReproducesFixedSlots(t *testing.T) {
	snap := twoSubjectSnapshot()
	teacher := "t-x"
	snap.FixedSlots = []models.FixedSlot{
		{ID: "fs1", CohortID: "c1", SubjectID: "sub-x", TeacherID: &teacher, Component: models.ComponentTheory, Day: 0, Period: 0},
	}

	res := New(DefaultConfig(), nil).Generate(snap, nil)

	var found *models.Allocation
	for i := range res.Allocations {
		a := &res.Allocations[i]
		if a.CohortID == "c1" && a.Day == 0 && a.Period == 0 {
			found = a
			break
		}
	}
	require.NotNil(t, found)
	assert.True(t, found.IsFixed)
	require.NotNil(t, found.SubjectID)
	assert.Equal(t, "sub-x", *found.SubjectID)
	require.NotNil(t, found.TeacherID)
	assert.Equal(t, "t-x", *found.TeacherID)
}
