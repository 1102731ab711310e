package service

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nav-in27/timetable-generator/internal/engine"
	"github.com/nav-in27/timetable-generator/internal/models"
	appErrors "github.com/nav-in27/timetable-generator/pkg/errors"
)

type stubGenTeachers struct {
	teachers []models.Teacher
	caps     []models.TeacherSubject
}

func (s *stubGenTeachers) ListActive(ctx context.Context) ([]models.Teacher, error) {
	return s.teachers, nil
}

func (s *stubGenTeachers) ListCapabilities(ctx context.Context) ([]models.TeacherSubject, error) {
	return s.caps, nil
}

type stubGenSubjects struct {
	subjects []models.Subject
}

func (s *stubGenSubjects) ListAll(ctx context.Context) ([]models.Subject, error) {
	return s.subjects, nil
}

type stubGenCohorts struct {
	cohorts []models.Cohort
}

func (s *stubGenCohorts) ListAll(ctx context.Context) ([]models.Cohort, error) {
	return s.cohorts, nil
}

func (s *stubGenCohorts) ListByIDs(ctx context.Context, ids []string) ([]models.Cohort, error) {
	var out []models.Cohort
	for _, c := range s.cohorts {
		for _, id := range ids {
			if c.ID == id {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

type stubGenRooms struct {
	rooms []models.Room
}

func (s *stubGenRooms) ListAll(ctx context.Context) ([]models.Room, error) {
	return s.rooms, nil
}

type stubGenBaskets struct{}

func (s *stubGenBaskets) ListAll(ctx context.Context) ([]models.ElectiveBasket, error) {
	return nil, nil
}

type stubGenFixedSlots struct{}

func (s *stubGenFixedSlots) ListAll(ctx context.Context) ([]models.FixedSlot, error) {
	return nil, nil
}

type stubGenAssignments struct {
	replacedFor []string
	replaced    []models.ComponentAssignment
}

func (s *stubGenAssignments) ListAll(ctx context.Context) ([]models.ComponentAssignment, error) {
	return nil, nil
}

func (s *stubGenAssignments) ReplaceByCohortsWithTx(ctx context.Context, tx *sqlx.Tx, cohortIDs []string, rows []models.ComponentAssignment) error {
	s.replacedFor = cohortIDs
	s.replaced = rows
	return nil
}

type stubGenAllocations struct {
	deletedFor []string
	created    []models.Allocation
}

func (s *stubGenAllocations) DeleteByCohortsWithTx(ctx context.Context, tx *sqlx.Tx, cohortIDs []string) error {
	s.deletedFor = cohortIDs
	return nil
}

func (s *stubGenAllocations) BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, allocations []models.Allocation) error {
	s.created = allocations
	return nil
}

type stubGenRuns struct {
	created []*models.GenerationRun
	recent  []models.GenerationRun
	limit   int
}

func (s *stubGenRuns) CreateWithTx(ctx context.Context, tx *sqlx.Tx, run *models.GenerationRun) error {
	s.created = append(s.created, run)
	return nil
}

func (s *stubGenRuns) ListRecent(ctx context.Context, limit int) ([]models.GenerationRun, error) {
	s.limit = limit
	return s.recent, nil
}

type generationFixture struct {
	teachers    *stubGenTeachers
	subjects    *stubGenSubjects
	cohorts     *stubGenCohorts
	rooms       *stubGenRooms
	assignments *stubGenAssignments
	allocations *stubGenAllocations
	runs        *stubGenRuns
	db          *sqlx.DB
	mock        sqlmock.Sqlmock
	svc         *GenerationService
}

func newGenerationFixture(t *testing.T) *generationFixture {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	db := sqlx.NewDb(raw, "sqlmock")

	f := &generationFixture{
		teachers: &stubGenTeachers{
			teachers: []models.Teacher{
				{ID: "t1", FullName: "Ada", Active: true, MaxHoursPerWeek: 20, MaxConsecutive: 3, AvailableDays: "0,1,2,3,4"},
			},
			caps: []models.TeacherSubject{
				{TeacherID: "t1", SubjectID: "math", EffectivenessScore: 0.9},
			},
		},
		subjects: &stubGenSubjects{
			subjects: []models.Subject{
				{ID: "math", Code: "MA101", Name: "Mathematics", SemesterNumber: 1, TheoryHours: 2},
			},
		},
		cohorts: &stubGenCohorts{
			cohorts: []models.Cohort{
				{ID: "c1", Name: "CS-1A", SemesterNumber: 1, StudentCount: 30},
			},
		},
		rooms: &stubGenRooms{
			rooms: []models.Room{
				{ID: "r1", Name: "LH-1", Capacity: 60, Type: models.RoomLecture},
			},
		},
		assignments: &stubGenAssignments{},
		allocations: &stubGenAllocations{},
		runs:        &stubGenRuns{},
		db:          db,
		mock:        mock,
	}
	f.svc = NewGenerationService(
		f.teachers, f.subjects, f.cohorts, f.rooms,
		&stubGenBaskets{}, &stubGenFixedSlots{},
		f.assignments, f.allocations, f.runs,
		db, engine.DefaultConfig(), nil, nil, nil, nil,
	)
	return f
}

func TestGenerationServiceGeneratePersists(t *testing.T) {
	f := newGenerationFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	outcome, err := f.svc.Generate(context.Background(), GenerateRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.GenerationCompleted, outcome.Run.Status)
	assert.True(t, outcome.Report.Success)
	// every grid cell of the single cohort comes back, free periods included
	assert.Len(t, outcome.Allocations, engine.DefaultConfig().Capacity())

	assert.Equal(t, []string{"c1"}, f.allocations.deletedFor)
	assert.Len(t, f.allocations.created, engine.DefaultConfig().Capacity())
	assert.Equal(t, []string{"c1"}, f.assignments.replacedFor)
	require.Len(t, f.runs.created, 1)
	assert.Equal(t, "[]", f.runs.created[0].Warnings)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestGenerationServiceGenerateDryRunSkipsPersistence(t *testing.T) {
	f := newGenerationFixture(t)

	outcome, err := f.svc.Generate(context.Background(), GenerateRequest{DryRun: true})
	require.NoError(t, err)
	assert.NotEmpty(t, outcome.Allocations)
	assert.Empty(t, f.allocations.created)
	assert.Empty(t, f.runs.created)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestGenerationServiceGenerateSeedOverride(t *testing.T) {
	f := newGenerationFixture(t)
	seed := int64(7)

	outcome, err := f.svc.Generate(context.Background(), GenerateRequest{DryRun: true, Seed: &seed})
	require.NoError(t, err)
	assert.Equal(t, int64(7), outcome.Run.Seed)
}

func TestGenerationServiceGenerateUnknownCohort(t *testing.T) {
	f := newGenerationFixture(t)

	_, err := f.svc.Generate(context.Background(), GenerateRequest{CohortIDs: []string{"ghost"}})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestGenerationServiceGenerateNoCohortsConfigured(t *testing.T) {
	f := newGenerationFixture(t)
	f.cohorts.cohorts = nil

	_, err := f.svc.Generate(context.Background(), GenerateRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestGenerationServiceGenerateInFlightConflict(t *testing.T) {
	f := newGenerationFixture(t)
	require.NoError(t, f.svc.acquire([]string{"c1"}))
	defer f.svc.release([]string{"c1"})

	_, err := f.svc.Generate(context.Background(), GenerateRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrGenerationInFlight.Code, appErrors.FromError(err).Code)
}

func TestGenerationServiceHistoryClampsLimit(t *testing.T) {
	f := newGenerationFixture(t)
	f.runs.recent = []models.GenerationRun{{ID: "g1", Status: models.GenerationCompleted}}

	history, err := f.svc.History(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)
	assert.Equal(t, 20, f.runs.limit)

	_, err = f.svc.History(context.Background(), 500)
	require.NoError(t, err)
	assert.Equal(t, 20, f.runs.limit)
}
