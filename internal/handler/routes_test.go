package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nav-in27/timetable-generator/internal/models"
	"github.com/nav-in27/timetable-generator/internal/service"
)

type stubUserRepo struct {
	byEmail map[string]*models.User
	byID    map[string]*models.User
}

func (s *stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	u, ok := s.byEmail[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (s *stubUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := s.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (s *stubUserRepo) Create(ctx context.Context, user *models.User) error {
	s.byEmail[user.Email] = user
	s.byID[user.ID] = user
	return nil
}

func (s *stubUserRepo) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	return nil
}

type stubCohortRepo struct {
	items map[string]*models.Cohort
}

func (s *stubCohortRepo) List(ctx context.Context, filter models.CohortFilter) ([]models.Cohort, int, error) {
	var out []models.Cohort
	for _, c := range s.items {
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (s *stubCohortRepo) FindByID(ctx context.Context, id string) (*models.Cohort, error) {
	c, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return c, nil
}

func (s *stubCohortRepo) Create(ctx context.Context, cohort *models.Cohort) error {
	cohort.ID = fmt.Sprintf("c%d", len(s.items)+1)
	s.items[cohort.ID] = cohort
	return nil
}

func (s *stubCohortRepo) Update(ctx context.Context, cohort *models.Cohort) error {
	s.items[cohort.ID] = cohort
	return nil
}

func (s *stubCohortRepo) Delete(ctx context.Context, id string) error {
	delete(s.items, id)
	return nil
}

func testRouterUser(t *testing.T, email string, role models.UserRole) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("schedule-me"), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:           "u-" + string(role),
		Email:        email,
		PasswordHash: string(hash),
		FullName:     "Test " + string(role),
		Role:         role,
		Active:       true,
	}
}

func buildTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	admin := testRouterUser(t, "admin@example.edu", models.RoleAdmin)
	viewer := testRouterUser(t, "viewer@example.edu", models.RoleViewer)
	users := &stubUserRepo{
		byEmail: map[string]*models.User{admin.Email: admin, viewer.Email: viewer},
		byID:    map[string]*models.User{admin.ID: admin, viewer.ID: viewer},
	}

	authSvc := service.NewAuthService(users, nil, nil, service.AuthConfig{
		AccessTokenSecret: "router-test-secret",
		AccessTokenExpiry: time.Hour,
	})
	cohortSvc := service.NewCohortService(&stubCohortRepo{items: map[string]*models.Cohort{}}, nil, nil)

	r := gin.New()
	RegisterRoutes(r, "/api/v1", Handlers{
		Auth:          NewAuthHandler(authSvc),
		Teachers:      NewTeacherHandler(nil),
		Subjects:      NewSubjectHandler(nil),
		Cohorts:       NewCohortHandler(cohortSvc),
		Rooms:         NewRoomHandler(nil),
		Baskets:       NewElectiveBasketHandler(nil),
		Generation:    NewGenerationHandler(nil),
		FixedSlots:    NewFixedSlotHandler(nil),
		Timetables:    NewTimetableHandler(nil),
		Substitutions: NewSubstitutionHandler(nil),
		Exports:       NewExportHandler(nil),
		Metrics:       NewMetricsHandler(service.NewMetricsService()),
	}, authSvc)
	return r
}

func loginToken(t *testing.T, r *gin.Engine, email string) string {
	t.Helper()
	body, _ := json.Marshal(gin.H{"email": email, "password": "schedule-me"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)

	var envelope struct {
		Data models.LoginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	require.NotEmpty(t, envelope.Data.AccessToken)
	return envelope.Data.AccessToken
}

func TestRoutesLoginAndMe(t *testing.T) {
	r := buildTestRouter(t)
	token := loginToken(t, r, "admin@example.edu")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), "admin@example.edu")
}

func TestRoutesRejectAnonymousReads(t *testing.T) {
	r := buildTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cohorts", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestRoutesViewerCannotWrite(t *testing.T) {
	r := buildTestRouter(t)
	token := loginToken(t, r, "viewer@example.edu")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cohorts", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)

	body, _ := json.Marshal(gin.H{"name": "CS-1A", "semester_number": 1, "student_count": 60})
	req = httptest.NewRequest(http.MethodPost, "/api/v1/cohorts", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusForbidden, resp.Code)
}

func TestRoutesAdminCohortLifecycle(t *testing.T) {
	r := buildTestRouter(t)
	token := loginToken(t, r, "admin@example.edu")

	body, _ := json.Marshal(gin.H{"name": "CS-1A", "semester_number": 1, "student_count": 60})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cohorts", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusCreated, resp.Code)

	var created struct {
		Data models.Cohort `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	require.NotEmpty(t, created.Data.ID)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/cohorts/"+created.Data.ID, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), "CS-1A")

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/cohorts/"+created.Data.ID, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusNoContent, resp.Code)
}

func TestRoutesHealth(t *testing.T) {
	r := buildTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
}
