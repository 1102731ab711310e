package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nav-in27/timetable-generator/internal/engine"
	"github.com/nav-in27/timetable-generator/internal/models"
	appErrors "github.com/nav-in27/timetable-generator/pkg/errors"
)

type mockSubstitutionStore struct {
	absences    map[string]*models.TeacherAbsence
	absenceByID map[string]*models.TeacherAbsence
	active      map[string]*models.Substitution
	assigned    []models.Substitution
	subs        map[string]*models.Substitution
	created     []*models.Substitution
}

func newMockSubstitutionStore() *mockSubstitutionStore {
	return &mockSubstitutionStore{
		absences:    make(map[string]*models.TeacherAbsence),
		absenceByID: make(map[string]*models.TeacherAbsence),
		active:      make(map[string]*models.Substitution),
		subs:        make(map[string]*models.Substitution),
	}
}

func absenceKey(teacherID string, date time.Time) string {
	return teacherID + "|" + date.Format("2006-01-02")
}

func (m *mockSubstitutionStore) addAbsence(absence *models.TeacherAbsence) {
	if absence.ID == "" {
		absence.ID = fmt.Sprintf("ab%d", len(m.absenceByID)+1)
	}
	m.absences[absenceKey(absence.TeacherID, absence.Date)] = absence
	m.absenceByID[absence.ID] = absence
}

func (m *mockSubstitutionStore) CreateAbsence(ctx context.Context, absence *models.TeacherAbsence) error {
	m.addAbsence(absence)
	return nil
}

func (m *mockSubstitutionStore) FindAbsence(ctx context.Context, id string) (*models.TeacherAbsence, error) {
	if absence, ok := m.absenceByID[id]; ok {
		return absence, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubstitutionStore) FindAbsenceByTeacherAndDate(ctx context.Context, teacherID string, date time.Time) (*models.TeacherAbsence, error) {
	if absence, ok := m.absences[absenceKey(teacherID, date)]; ok {
		return absence, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubstitutionStore) ListAbsencesByDate(ctx context.Context, date time.Time) ([]models.TeacherAbsence, error) {
	var out []models.TeacherAbsence
	for _, absence := range m.absenceByID {
		if absence.Date.Equal(date) {
			out = append(out, *absence)
		}
	}
	return out, nil
}

func (m *mockSubstitutionStore) Create(ctx context.Context, sub *models.Substitution) error {
	sub.ID = fmt.Sprintf("sb%d", len(m.subs)+1)
	m.subs[sub.ID] = sub
	m.active[sub.AllocationID+"|"+sub.Date.Format("2006-01-02")] = sub
	m.created = append(m.created, sub)
	return nil
}

func (m *mockSubstitutionStore) FindByID(ctx context.Context, id string) (*models.Substitution, error) {
	if sub, ok := m.subs[id]; ok {
		cp := *sub
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubstitutionStore) FindActiveByAllocationAndDate(ctx context.Context, allocationID string, date time.Time) (*models.Substitution, error) {
	if sub, ok := m.active[allocationID+"|"+date.Format("2006-01-02")]; ok {
		return sub, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubstitutionStore) ListAssignedByDate(ctx context.Context, date time.Time) ([]models.Substitution, error) {
	return m.assigned, nil
}

func (m *mockSubstitutionStore) List(ctx context.Context, filter models.SubstitutionFilter) ([]models.Substitution, int, error) {
	return nil, 0, nil
}

func (m *mockSubstitutionStore) UpdateStatus(ctx context.Context, id string, status models.SubstitutionStatus) error {
	m.subs[id].Status = status
	return nil
}

type mockSubAllocations struct {
	byID         map[string]*models.Allocation
	byTeacherDay map[string][]models.Allocation
	atSlot       []models.Allocation
	loads        map[string]int
}

func (m *mockSubAllocations) FindByID(ctx context.Context, id string) (*models.Allocation, error) {
	if a, ok := m.byID[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubAllocations) ListByTeacherAndDay(ctx context.Context, teacherID string, day int) ([]models.Allocation, error) {
	return m.byTeacherDay[fmt.Sprintf("%s|%d", teacherID, day)], nil
}

func (m *mockSubAllocations) ListAtSlot(ctx context.Context, day, period int) ([]models.Allocation, error) {
	return m.atSlot, nil
}

func (m *mockSubAllocations) CountByTeacher(ctx context.Context) (map[string]int, error) {
	return m.loads, nil
}

type mockSubTeachers struct {
	teachers []models.Teacher
	caps     []models.TeacherSubject
}

func (m *mockSubTeachers) ListActive(ctx context.Context) ([]models.Teacher, error) {
	return m.teachers, nil
}

func (m *mockSubTeachers) ListCapabilities(ctx context.Context) ([]models.TeacherSubject, error) {
	return m.caps, nil
}

func (m *mockSubTeachers) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	for i := range m.teachers {
		if m.teachers[i].ID == id {
			cp := m.teachers[i]
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

// monday is 2026-01-05, which maps onto day index 0.
var monday = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

func substitutionFixture() (*mockSubstitutionStore, *mockSubAllocations, *mockSubTeachers) {
	store := newMockSubstitutionStore()
	allocations := &mockSubAllocations{
		byID: map[string]*models.Allocation{
			"a1": {ID: "a1", CohortID: "c1", SubjectID: strPtr("math"), TeacherID: strPtr("t1"), Day: 0, Period: 2, Component: models.ComponentTheory},
		},
		byTeacherDay: map[string][]models.Allocation{},
		loads:        map[string]int{"t1": 10, "t2": 4, "t3": 8},
	}
	teachers := &mockSubTeachers{
		teachers: []models.Teacher{
			{ID: "t1", FullName: "Original", Active: true, MaxHoursPerWeek: 20, AvailableDays: "0,1,2,3,4", ExperienceScore: 0.5},
			{ID: "t2", FullName: "Backup", Active: true, MaxHoursPerWeek: 20, AvailableDays: "0,1,2,3,4", ExperienceScore: 0.7},
			{ID: "t3", FullName: "Generalist", Active: true, MaxHoursPerWeek: 20, AvailableDays: "0,1,2,3,4", ExperienceScore: 0.3},
		},
		caps: []models.TeacherSubject{
			{TeacherID: "t1", SubjectID: "math", EffectivenessScore: 0.9},
			{TeacherID: "t2", SubjectID: "math", EffectivenessScore: 0.8},
		},
	}
	return store, allocations, teachers
}

func newSubstitutionService(store *mockSubstitutionStore, allocations *mockSubAllocations, teachers *mockSubTeachers) *SubstitutionService {
	return NewSubstitutionService(store, allocations, teachers, engine.DefaultConfig(), engine.MatchWeights{}, nil, nil, nil)
}

func TestSubstitutionServiceMatchPrefersQualified(t *testing.T) {
	store, allocations, teachers := substitutionFixture()
	store.addAbsence(&models.TeacherAbsence{TeacherID: "t1", Date: monday, IsFullDay: true})
	svc := newSubstitutionService(store, allocations, teachers)

	result, err := svc.MatchSubstitute(context.Background(), MatchSubstituteRequest{
		AllocationID: "a1",
		Date:         "2026-01-05",
	})
	require.NoError(t, err)
	require.NotNil(t, result.Substitution)
	assert.Equal(t, "t2", *result.Substitution.SubstituteTeacherID)
	assert.Equal(t, models.SubstitutionPending, result.Substitution.Status)
	require.Len(t, result.Candidates, 2)
	assert.True(t, result.Candidates[0].Qualified)
	assert.Equal(t, "t2", result.Candidates[0].TeacherID)
}

func TestSubstitutionServiceMatchAutoAssign(t *testing.T) {
	store, allocations, teachers := substitutionFixture()
	store.addAbsence(&models.TeacherAbsence{TeacherID: "t1", Date: monday, IsFullDay: true})
	svc := newSubstitutionService(store, allocations, teachers)

	result, err := svc.MatchSubstitute(context.Background(), MatchSubstituteRequest{
		AllocationID: "a1",
		Date:         "2026-01-05",
		AutoAssign:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.SubstitutionAssigned, result.Substitution.Status)
}

func TestSubstitutionServiceMatchRejectsWrongWeekday(t *testing.T) {
	store, allocations, teachers := substitutionFixture()
	svc := newSubstitutionService(store, allocations, teachers)

	// 2026-01-06 is a Tuesday, the allocation sits on Monday.
	_, err := svc.MatchSubstitute(context.Background(), MatchSubstituteRequest{
		AllocationID: "a1",
		Date:         "2026-01-06",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSubstitutionServiceMatchRequiresAbsence(t *testing.T) {
	store, allocations, teachers := substitutionFixture()
	svc := newSubstitutionService(store, allocations, teachers)

	_, err := svc.MatchSubstitute(context.Background(), MatchSubstituteRequest{
		AllocationID: "a1",
		Date:         "2026-01-05",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSubstitutionServiceMatchConflictsOnExistingCover(t *testing.T) {
	store, allocations, teachers := substitutionFixture()
	store.addAbsence(&models.TeacherAbsence{TeacherID: "t1", Date: monday, IsFullDay: true})
	existing := &models.Substitution{AbsenceID: "ab1", AllocationID: "a1", Date: monday, OriginalTeacherID: "t1", Status: models.SubstitutionAssigned}
	require.NoError(t, store.Create(context.Background(), existing))
	svc := newSubstitutionService(store, allocations, teachers)

	_, err := svc.MatchSubstitute(context.Background(), MatchSubstituteRequest{
		AllocationID: "a1",
		Date:         "2026-01-05",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestSubstitutionServiceMatchNoCandidatesWritesNothing(t *testing.T) {
	store, allocations, teachers := substitutionFixture()
	store.addAbsence(&models.TeacherAbsence{TeacherID: "t1", Date: monday, IsFullDay: true})
	store.addAbsence(&models.TeacherAbsence{TeacherID: "t2", Date: monday, IsFullDay: true})
	store.addAbsence(&models.TeacherAbsence{TeacherID: "t3", Date: monday, IsFullDay: true})
	svc := newSubstitutionService(store, allocations, teachers)

	_, err := svc.MatchSubstitute(context.Background(), MatchSubstituteRequest{
		AllocationID: "a1",
		Date:         "2026-01-05",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNoCandidates.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.created)
}

func TestSubstitutionServiceMatchPreferredMustBeEligible(t *testing.T) {
	store, allocations, teachers := substitutionFixture()
	store.addAbsence(&models.TeacherAbsence{TeacherID: "t1", Date: monday, IsFullDay: true})
	svc := newSubstitutionService(store, allocations, teachers)

	_, err := svc.MatchSubstitute(context.Background(), MatchSubstituteRequest{
		AllocationID:       "a1",
		Date:               "2026-01-05",
		PreferredTeacherID: "ghost",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSubstitutionServiceMatchSkipsBusyTeachers(t *testing.T) {
	store, allocations, teachers := substitutionFixture()
	store.addAbsence(&models.TeacherAbsence{TeacherID: "t1", Date: monday, IsFullDay: true})
	allocations.atSlot = []models.Allocation{
		{ID: "a9", CohortID: "c2", TeacherID: strPtr("t2"), Day: 0, Period: 2},
	}
	svc := newSubstitutionService(store, allocations, teachers)

	result, err := svc.MatchSubstitute(context.Background(), MatchSubstituteRequest{
		AllocationID: "a1",
		Date:         "2026-01-05",
	})
	require.NoError(t, err)
	assert.Equal(t, "t3", *result.Substitution.SubstituteTeacherID)
	require.Len(t, result.Candidates, 1)
}

func TestSubstitutionServiceReportAbsencePartialNeedsPeriods(t *testing.T) {
	store, allocations, teachers := substitutionFixture()
	svc := newSubstitutionService(store, allocations, teachers)

	_, _, err := svc.ReportAbsence(context.Background(), ReportAbsenceRequest{
		TeacherID: "t1",
		Date:      "2026-01-05",
		IsFullDay: false,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSubstitutionServiceReportAbsenceFiltersAffected(t *testing.T) {
	store, allocations, teachers := substitutionFixture()
	allocations.byTeacherDay["t1|0"] = []models.Allocation{
		{ID: "a1", CohortID: "c1", SubjectID: strPtr("math"), TeacherID: strPtr("t1"), Day: 0, Period: 2},
		{ID: "a2", CohortID: "c1", SubjectID: strPtr("math"), TeacherID: strPtr("t1"), Day: 0, Period: 4},
		{ID: "a3", CohortID: "c1", TeacherID: strPtr("t1"), Day: 0, Period: 5, IsLabContinuation: true},
		{ID: "a4", CohortID: "c1", Day: 0, Period: 6, IsFree: true},
	}
	svc := newSubstitutionService(store, allocations, teachers)

	absence, affected, err := svc.ReportAbsence(context.Background(), ReportAbsenceRequest{
		TeacherID:     "t1",
		Date:          "2026-01-05",
		AbsentPeriods: []int{2, 6},
	})
	require.NoError(t, err)
	require.NotNil(t, absence.AbsentPeriods)
	assert.Equal(t, "2,6", *absence.AbsentPeriods)
	require.Len(t, affected, 1)
	assert.Equal(t, "a1", affected[0].ID)
}

func TestSubstitutionServiceReportAbsenceConflict(t *testing.T) {
	store, allocations, teachers := substitutionFixture()
	store.addAbsence(&models.TeacherAbsence{TeacherID: "t1", Date: monday, IsFullDay: true})
	svc := newSubstitutionService(store, allocations, teachers)

	_, _, err := svc.ReportAbsence(context.Background(), ReportAbsenceRequest{
		TeacherID: "t1",
		Date:      "2026-01-05",
		IsFullDay: true,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestSubstitutionServiceAutoSubstitute(t *testing.T) {
	store, allocations, teachers := substitutionFixture()
	absence := &models.TeacherAbsence{TeacherID: "t1", Date: monday, IsFullDay: true}
	store.addAbsence(absence)
	allocations.byID["a2"] = &models.Allocation{ID: "a2", CohortID: "c1", SubjectID: strPtr("math"), TeacherID: strPtr("t1"), Day: 0, Period: 4}
	allocations.byTeacherDay["t1|0"] = []models.Allocation{
		*allocations.byID["a1"],
		*allocations.byID["a2"],
	}
	covered := &models.Substitution{AbsenceID: absence.ID, AllocationID: "a2", Date: monday, OriginalTeacherID: "t1", Status: models.SubstitutionAssigned}
	require.NoError(t, store.Create(context.Background(), covered))
	svc := newSubstitutionService(store, allocations, teachers)

	results, err := svc.AutoSubstituteForAbsence(context.Background(), absence.ID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a1", results[0].Substitution.AllocationID)
	assert.Equal(t, models.SubstitutionAssigned, results[0].Substitution.Status)
	assert.Equal(t, "t2", *results[0].Substitution.SubstituteTeacherID)
}

func TestSubstitutionServiceUpdateStatusTransitions(t *testing.T) {
	store, allocations, teachers := substitutionFixture()
	sub := &models.Substitution{AbsenceID: "ab1", AllocationID: "a1", Date: monday, OriginalTeacherID: "t1", SubstituteTeacherID: strPtr("t2"), Status: models.SubstitutionAssigned}
	require.NoError(t, store.Create(context.Background(), sub))
	svc := newSubstitutionService(store, allocations, teachers)

	updated, err := svc.UpdateStatus(context.Background(), sub.ID, models.SubstitutionCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.SubstitutionCompleted, updated.Status)

	_, err = svc.UpdateStatus(context.Background(), sub.ID, models.SubstitutionAssigned)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSubstitutionState.Code, appErrors.FromError(err).Code)
}

func TestSubstitutionServiceUpdateStatusAssignNeedsSubstitute(t *testing.T) {
	store, allocations, teachers := substitutionFixture()
	sub := &models.Substitution{AbsenceID: "ab1", AllocationID: "a1", Date: monday, OriginalTeacherID: "t1", Status: models.SubstitutionPending}
	require.NoError(t, store.Create(context.Background(), sub))
	svc := newSubstitutionService(store, allocations, teachers)

	_, err := svc.UpdateStatus(context.Background(), sub.ID, models.SubstitutionAssigned)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSubstitutionState.Code, appErrors.FromError(err).Code)
}
