package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nav-in27/timetable-generator/internal/models"
	appErrors "github.com/nav-in27/timetable-generator/pkg/errors"
)

type mockBasketRepo struct {
	items map[string]*models.ElectiveBasket
}

func newMockBasketRepo() *mockBasketRepo {
	return &mockBasketRepo{items: map[string]*models.ElectiveBasket{}}
}

func (m *mockBasketRepo) List(ctx context.Context, filter models.ElectiveBasketFilter) ([]models.ElectiveBasket, int, error) {
	var out []models.ElectiveBasket
	for _, b := range m.items {
		out = append(out, *b)
	}
	return out, len(out), nil
}

func (m *mockBasketRepo) FindByID(ctx context.Context, id string) (*models.ElectiveBasket, error) {
	b, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *b
	return &copied, nil
}

func (m *mockBasketRepo) Create(ctx context.Context, basket *models.ElectiveBasket) error {
	basket.ID = fmt.Sprintf("b%d", len(m.items)+1)
	m.items[basket.ID] = basket
	return nil
}

func (m *mockBasketRepo) Update(ctx context.Context, basket *models.ElectiveBasket) error {
	m.items[basket.ID] = basket
	return nil
}

func (m *mockBasketRepo) Delete(ctx context.Context, id string) error {
	delete(m.items, id)
	return nil
}

type mockBasketSubjects struct {
	byBasket map[string][]models.Subject
}

func (m *mockBasketSubjects) List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, int, error) {
	subjects := m.byBasket[filter.BasketID]
	return subjects, len(subjects), nil
}

func TestElectiveBasketServiceCreate(t *testing.T) {
	svc := NewElectiveBasketService(newMockBasketRepo(), &mockBasketSubjects{}, nil, nil)

	basket, err := svc.Create(context.Background(), ElectiveBasketRequest{
		Name:           "Open Electives V",
		SemesterNumber: 5,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, basket.ID)
	assert.Equal(t, 5, basket.SemesterNumber)
}

func TestElectiveBasketServiceMembers(t *testing.T) {
	repo := newMockBasketRepo()
	subjects := &mockBasketSubjects{byBasket: map[string][]models.Subject{}}
	svc := NewElectiveBasketService(repo, subjects, nil, nil)

	basket, err := svc.Create(context.Background(), ElectiveBasketRequest{Name: "Open Electives V", SemesterNumber: 5})
	require.NoError(t, err)
	subjects.byBasket[basket.ID] = []models.Subject{
		{ID: "s1", Code: "OE501"},
		{ID: "s2", Code: "OE502"},
	}

	members, err := svc.Members(context.Background(), basket.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestElectiveBasketServiceMembersUnknownBasket(t *testing.T) {
	svc := NewElectiveBasketService(newMockBasketRepo(), &mockBasketSubjects{}, nil, nil)

	_, err := svc.Members(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestElectiveBasketServiceUpdateSemesterBlockedWhileOccupied(t *testing.T) {
	repo := newMockBasketRepo()
	subjects := &mockBasketSubjects{byBasket: map[string][]models.Subject{}}
	svc := NewElectiveBasketService(repo, subjects, nil, nil)

	basket, err := svc.Create(context.Background(), ElectiveBasketRequest{Name: "Open Electives V", SemesterNumber: 5})
	require.NoError(t, err)
	subjects.byBasket[basket.ID] = []models.Subject{{ID: "s1", Code: "OE501"}}

	_, err = svc.Update(context.Background(), basket.ID, ElectiveBasketRequest{Name: "Open Electives V", SemesterNumber: 6})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	// Renaming without touching the semester stays allowed.
	updated, err := svc.Update(context.Background(), basket.ID, ElectiveBasketRequest{Name: "Open Electives Sem-5", SemesterNumber: 5})
	require.NoError(t, err)
	assert.Equal(t, "Open Electives Sem-5", updated.Name)
}

func TestElectiveBasketServiceUpdateSemesterAllowedWhenEmpty(t *testing.T) {
	repo := newMockBasketRepo()
	svc := NewElectiveBasketService(repo, &mockBasketSubjects{}, nil, nil)

	basket, err := svc.Create(context.Background(), ElectiveBasketRequest{Name: "Open Electives V", SemesterNumber: 5})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), basket.ID, ElectiveBasketRequest{Name: "Open Electives VI", SemesterNumber: 6})
	require.NoError(t, err)
	assert.Equal(t, 6, updated.SemesterNumber)
}
