package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nav-in27/timetable-generator/internal/models"
	appErrors "github.com/nav-in27/timetable-generator/pkg/errors"
)

type mockSubjectRepo struct {
	items     map[string]*models.Subject
	codeIndex map[string]string
}

func newMockSubjectRepo() *mockSubjectRepo {
	return &mockSubjectRepo{items: map[string]*models.Subject{}, codeIndex: map[string]string{}}
}

func (m *mockSubjectRepo) List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, int, error) {
	var out []models.Subject
	for _, sub := range m.items {
		out = append(out, *sub)
	}
	return out, len(out), nil
}

func (m *mockSubjectRepo) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	if sub, ok := m.items[id]; ok {
		cp := *sub
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubjectRepo) ExistsByCode(ctx context.Context, code, excludeID string) (bool, error) {
	if owner, ok := m.codeIndex[code]; ok {
		if excludeID == "" || owner != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockSubjectRepo) Create(ctx context.Context, subject *models.Subject) error {
	if subject.ID == "" {
		subject.ID = "generated"
	}
	cp := *subject
	m.items[subject.ID] = &cp
	m.codeIndex[subject.Code] = subject.ID
	return nil
}

func (m *mockSubjectRepo) Update(ctx context.Context, subject *models.Subject) error {
	cp := *subject
	m.items[subject.ID] = &cp
	return nil
}

func (m *mockSubjectRepo) Delete(ctx context.Context, id string) error {
	delete(m.items, id)
	return nil
}

type mockBasketLookup struct {
	items map[string]*models.ElectiveBasket
}

func (m *mockBasketLookup) FindByID(ctx context.Context, id string) (*models.ElectiveBasket, error) {
	if basket, ok := m.items[id]; ok {
		cp := *basket
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func TestSubjectServiceCreate(t *testing.T) {
	repo := newMockSubjectRepo()
	svc := NewSubjectService(repo, &mockBasketLookup{}, nil, nil)

	subject, err := svc.Create(context.Background(), CreateSubjectRequest{
		Code:           "MA101",
		Name:           "Mathematics",
		SemesterNumber: 1,
		TheoryHours:    3,
		LabHours:       2,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, subject.TotalHours())
	assert.Contains(t, repo.items, subject.ID)
}

func TestSubjectServiceCreateRejectsZeroHours(t *testing.T) {
	svc := NewSubjectService(newMockSubjectRepo(), &mockBasketLookup{}, nil, nil)

	_, err := svc.Create(context.Background(), CreateSubjectRequest{
		Code:           "MA101",
		Name:           "Mathematics",
		SemesterNumber: 1,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSubjectServiceCreateRejectsOddLabHours(t *testing.T) {
	svc := NewSubjectService(newMockSubjectRepo(), &mockBasketLookup{}, nil, nil)

	_, err := svc.Create(context.Background(), CreateSubjectRequest{
		Code:           "PH102",
		Name:           "Physics",
		SemesterNumber: 1,
		LabHours:       3,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSubjectServiceCreateCodeConflict(t *testing.T) {
	repo := newMockSubjectRepo()
	svc := NewSubjectService(repo, &mockBasketLookup{}, nil, nil)
	_, err := svc.Create(context.Background(), CreateSubjectRequest{
		Code: "MA101", Name: "Mathematics", SemesterNumber: 1, TheoryHours: 3,
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateSubjectRequest{
		Code: "MA101", Name: "Maths Again", SemesterNumber: 1, TheoryHours: 2,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestSubjectServiceBasketRules(t *testing.T) {
	baskets := &mockBasketLookup{items: map[string]*models.ElectiveBasket{
		"b1": {ID: "b1", Name: "Open Electives V", SemesterNumber: 5},
	}}
	svc := NewSubjectService(newMockSubjectRepo(), baskets, nil, nil)

	// a basket on a non-elective subject is rejected
	_, err := svc.Create(context.Background(), CreateSubjectRequest{
		Code: "CS301", Name: "Compilers", SemesterNumber: 5, TheoryHours: 3, BasketID: strPtr("b1"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	// basket semester must match the subject semester
	_, err = svc.Create(context.Background(), CreateSubjectRequest{
		Code: "CS302", Name: "Elective A", SemesterNumber: 3, TheoryHours: 3, IsElective: true, BasketID: strPtr("b1"),
	})
	require.Error(t, err)

	// unknown basket
	_, err = svc.Create(context.Background(), CreateSubjectRequest{
		Code: "CS303", Name: "Elective B", SemesterNumber: 5, TheoryHours: 3, IsElective: true, BasketID: strPtr("ghost"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	// the happy path
	subject, err := svc.Create(context.Background(), CreateSubjectRequest{
		Code: "CS304", Name: "Elective C", SemesterNumber: 5, TheoryHours: 3, IsElective: true, BasketID: strPtr("b1"),
	})
	require.NoError(t, err)
	require.NotNil(t, subject.BasketID)
	assert.Equal(t, "b1", *subject.BasketID)
}

func TestSubjectServiceUpdatePreservesIdentity(t *testing.T) {
	repo := newMockSubjectRepo()
	svc := NewSubjectService(repo, &mockBasketLookup{}, nil, nil)
	created, err := svc.Create(context.Background(), CreateSubjectRequest{
		Code: "MA101", Name: "Mathematics", SemesterNumber: 1, TheoryHours: 3,
	})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), created.ID, UpdateSubjectRequest{
		Code: "MA101", Name: "Mathematics I", SemesterNumber: 1, TheoryHours: 4,
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Mathematics I", updated.Name)
	assert.Equal(t, 4, updated.TheoryHours)
}
