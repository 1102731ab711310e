package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nav-in27/timetable-generator/internal/models"
	appErrors "github.com/nav-in27/timetable-generator/pkg/errors"
)

type mockUserRepo struct {
	byEmail    map[string]*models.User
	byID       map[string]*models.User
	lastLogins []string
}

func newMockUserRepo(users ...*models.User) *mockUserRepo {
	repo := &mockUserRepo{byEmail: map[string]*models.User{}, byID: map[string]*models.User{}}
	for _, u := range users {
		repo.byEmail[u.Email] = u
		repo.byID[u.ID] = u
	}
	return repo
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := m.byEmail[email]; ok {
		cp := *user
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := m.byID[id]; ok {
		cp := *user
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = "u-new"
	}
	cp := *user
	m.byEmail[user.Email] = &cp
	m.byID[user.ID] = &cp
	return nil
}

func (m *mockUserRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLogins = append(m.lastLogins, id)
	return nil
}

func testUser(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:           "u1",
		Email:        "admin@example.edu",
		PasswordHash: string(hash),
		FullName:     "Admin",
		Role:         models.RoleAdmin,
		Active:       true,
	}
}

func newAuthFixture(t *testing.T, users ...*models.User) (*mockUserRepo, *AuthService) {
	t.Helper()
	repo := newMockUserRepo(users...)
	svc := NewAuthService(repo, nil, nil, AuthConfig{AccessTokenSecret: "test-secret", AccessTokenExpiry: time.Hour})
	return repo, svc
}

func TestAuthServiceLoginIssuesToken(t *testing.T) {
	repo, svc := newAuthFixture(t, testUser(t, "s3cret-pass"))

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@example.edu",
		Password: "s3cret-pass",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "u1", resp.User.ID)
	assert.Equal(t, []string{"u1"}, repo.lastLogins)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	_, svc := newAuthFixture(t, testUser(t, "s3cret-pass"))

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@example.edu",
		Password: "wrong-pass",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginUnknownEmail(t *testing.T) {
	_, svc := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "nobody@example.edu",
		Password: "whatever1",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	user := testUser(t, "s3cret-pass")
	user.Active = false
	_, svc := newAuthFixture(t, user)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@example.edu",
		Password: "s3cret-pass",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRegister(t *testing.T) {
	repo, svc := newAuthFixture(t)

	user, err := svc.Register(context.Background(), RegisterUserRequest{
		Email:    "sched@example.edu",
		Password: "long-enough",
		FullName: "Scheduler",
		Role:     "SCHEDULER",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleScheduler, user.Role)
	assert.True(t, user.Active)
	assert.NotEqual(t, "long-enough", user.PasswordHash)
	assert.Contains(t, repo.byEmail, "sched@example.edu")
}

func TestAuthServiceRegisterDuplicateEmail(t *testing.T) {
	_, svc := newAuthFixture(t, testUser(t, "s3cret-pass"))

	_, err := svc.Register(context.Background(), RegisterUserRequest{
		Email:    "admin@example.edu",
		Password: "long-enough",
		FullName: "Clone",
		Role:     "VIEWER",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRegisterRejectsUnknownRole(t *testing.T) {
	_, svc := newAuthFixture(t)

	_, err := svc.Register(context.Background(), RegisterUserRequest{
		Email:    "x@example.edu",
		Password: "long-enough",
		FullName: "X",
		Role:     "SUPERUSER",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceValidateTokenRejectsTampering(t *testing.T) {
	_, svc := newAuthFixture(t, testUser(t, "s3cret-pass"))
	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@example.edu",
		Password: "s3cret-pass",
	})
	require.NoError(t, err)

	other := NewAuthService(newMockUserRepo(), nil, nil, AuthConfig{AccessTokenSecret: "different-secret"})
	_, err = other.ValidateToken(resp.AccessToken)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
