package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nav-in27/timetable-generator/internal/models"
	appErrors "github.com/nav-in27/timetable-generator/pkg/errors"
)

type mockTeacherRepo struct {
	items      map[string]*models.Teacher
	emailIndex map[string]string
	caps       map[string][]models.TeacherSubject
	listResult []models.Teacher
	listTotal  int
	listErr    error
	deleted    []string
}

func (m *mockTeacherRepo) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	return m.listResult, m.listTotal, nil
}

func (m *mockTeacherRepo) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if teacher, ok := m.items[id]; ok {
		cp := *teacher
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTeacherRepo) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	if owner, ok := m.emailIndex[email]; ok {
		if excludeID == "" || owner != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockTeacherRepo) Create(ctx context.Context, teacher *models.Teacher) error {
	if m.items == nil {
		m.items = make(map[string]*models.Teacher)
	}
	if teacher.ID == "" {
		teacher.ID = "generated"
	}
	now := time.Now()
	teacher.CreatedAt = now
	teacher.UpdatedAt = now
	cp := *teacher
	m.items[teacher.ID] = &cp
	return nil
}

func (m *mockTeacherRepo) Update(ctx context.Context, teacher *models.Teacher) error {
	cp := *teacher
	m.items[teacher.ID] = &cp
	return nil
}

func (m *mockTeacherRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.items, id)
	return nil
}

func (m *mockTeacherRepo) ListCapabilitiesByTeacher(ctx context.Context, teacherID string) ([]models.TeacherSubject, error) {
	return m.caps[teacherID], nil
}

func (m *mockTeacherRepo) ReplaceCapabilities(ctx context.Context, teacherID string, caps []models.TeacherSubject) error {
	if m.caps == nil {
		m.caps = make(map[string][]models.TeacherSubject)
	}
	m.caps[teacherID] = caps
	return nil
}

type mockSubjectLookup struct {
	items map[string]*models.Subject
}

func (m *mockSubjectLookup) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	if subject, ok := m.items[id]; ok {
		cp := *subject
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func TestTeacherServiceCreateDefaultsAvailability(t *testing.T) {
	repo := &mockTeacherRepo{}
	svc := NewTeacherService(repo, &mockSubjectLookup{}, nil, nil)

	teacher, err := svc.Create(context.Background(), CreateTeacherRequest{
		Email:           "ada@example.edu",
		FullName:        "Ada Lovelace",
		MaxHoursPerWeek: 18,
	})
	require.NoError(t, err)
	assert.Equal(t, "0,1,2,3,4", teacher.AvailableDays)
	assert.True(t, teacher.Active)
	assert.Equal(t, 3, teacher.MaxConsecutive)
}

func TestTeacherServiceCreateNormalizesDays(t *testing.T) {
	repo := &mockTeacherRepo{}
	svc := NewTeacherService(repo, &mockSubjectLookup{}, nil, nil)

	teacher, err := svc.Create(context.Background(), CreateTeacherRequest{
		Email:           "ada@example.edu",
		FullName:        "Ada Lovelace",
		MaxHoursPerWeek: 18,
		AvailableDays:   "4, 0, 2, 2",
	})
	require.NoError(t, err)
	assert.Equal(t, "0,2,4", teacher.AvailableDays)
}

func TestTeacherServiceCreateRejectsBadDays(t *testing.T) {
	svc := NewTeacherService(&mockTeacherRepo{}, &mockSubjectLookup{}, nil, nil)

	_, err := svc.Create(context.Background(), CreateTeacherRequest{
		Email:           "ada@example.edu",
		FullName:        "Ada Lovelace",
		MaxHoursPerWeek: 18,
		AvailableDays:   "0,7",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTeacherServiceCreateEmailConflict(t *testing.T) {
	repo := &mockTeacherRepo{emailIndex: map[string]string{"ada@example.edu": "t1"}}
	svc := NewTeacherService(repo, &mockSubjectLookup{}, nil, nil)

	_, err := svc.Create(context.Background(), CreateTeacherRequest{
		Email:           "ada@example.edu",
		FullName:        "Ada Lovelace",
		MaxHoursPerWeek: 18,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestTeacherServiceReplaceCapabilities(t *testing.T) {
	repo := &mockTeacherRepo{items: map[string]*models.Teacher{"t1": {ID: "t1", FullName: "Ada"}}}
	subjects := &mockSubjectLookup{items: map[string]*models.Subject{"s1": {ID: "s1"}, "s2": {ID: "s2"}}}
	svc := NewTeacherService(repo, subjects, nil, nil)

	caps, err := svc.ReplaceCapabilities(context.Background(), "t1", []CapabilityRequest{
		{SubjectID: "s1", EffectivenessScore: 0.9},
		{SubjectID: "s2", EffectivenessScore: 0.4},
	})
	require.NoError(t, err)
	assert.Len(t, caps, 2)
	assert.Len(t, repo.caps["t1"], 2)
}

func TestTeacherServiceReplaceCapabilitiesRejectsDuplicates(t *testing.T) {
	repo := &mockTeacherRepo{items: map[string]*models.Teacher{"t1": {ID: "t1"}}}
	subjects := &mockSubjectLookup{items: map[string]*models.Subject{"s1": {ID: "s1"}}}
	svc := NewTeacherService(repo, subjects, nil, nil)

	_, err := svc.ReplaceCapabilities(context.Background(), "t1", []CapabilityRequest{
		{SubjectID: "s1", EffectivenessScore: 0.9},
		{SubjectID: "s1", EffectivenessScore: 0.5},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTeacherServiceReplaceCapabilitiesUnknownSubject(t *testing.T) {
	repo := &mockTeacherRepo{items: map[string]*models.Teacher{"t1": {ID: "t1"}}}
	svc := NewTeacherService(repo, &mockSubjectLookup{}, nil, nil)

	_, err := svc.ReplaceCapabilities(context.Background(), "t1", []CapabilityRequest{
		{SubjectID: "missing", EffectivenessScore: 0.9},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTeacherServiceGetNotFound(t *testing.T) {
	svc := NewTeacherService(&mockTeacherRepo{}, &mockSubjectLookup{}, nil, nil)

	_, err := svc.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
