package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nav-in27/timetable-generator/internal/models"
)

func TestSubstitutionRepositoryCreateAbsence(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubstitutionRepository(db)

	mock.ExpectExec("INSERT INTO teacher_absences").
		WillReturnResult(sqlmock.NewResult(1, 1))

	absence := &models.TeacherAbsence{
		TeacherID: "t1",
		Date:      time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC),
		IsFullDay: true,
	}
	require.NoError(t, repo.CreateAbsence(context.Background(), absence))
	assert.NotEmpty(t, absence.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubstitutionRepositoryFindActiveByAllocationAndDate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubstitutionRepository(db)

	date := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	sub := "t2"
	score := 0.82
	rows := sqlmock.NewRows([]string{"id", "absence_id", "allocation_id", "date", "original_teacher_id", "substitute_teacher_id", "score", "status", "note", "created_at", "updated_at"}).
		AddRow("sb1", "ab1", "a1", date, "t1", &sub, &score, "ASSIGNED", "", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + substitutionColumns + " FROM substitutions WHERE allocation_id = $1 AND date = $2 AND status IN ('PENDING', 'ASSIGNED')")).
		WithArgs("a1", date).
		WillReturnRows(rows)

	got, err := repo.FindActiveByAllocationAndDate(context.Background(), "a1", date)
	require.NoError(t, err)
	assert.Equal(t, models.SubstitutionAssigned, got.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubstitutionRepositoryFindActiveNoRows(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubstitutionRepository(db)

	date := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT .+ FROM substitutions WHERE allocation_id").
		WithArgs("a1", date).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindActiveByAllocationAndDate(context.Background(), "a1", date)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubstitutionRepositoryListFiltersByStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubstitutionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + substitutionColumns + " FROM substitutions WHERE 1=1 AND status = $1 ORDER BY date DESC LIMIT 20 OFFSET 0")).
		WithArgs("PENDING").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM substitutions WHERE 1=1 AND status = $1")).
		WithArgs("PENDING").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	list, total, err := repo.List(context.Background(), models.SubstitutionFilter{Status: string(models.SubstitutionPending)})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Equal(t, 0, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubstitutionRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubstitutionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE substitutions SET status = $1, updated_at = $2 WHERE id = $3")).
		WithArgs(models.SubstitutionCompleted, sqlmock.AnyArg(), "sb1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), "sb1", models.SubstitutionCompleted))
	assert.NoError(t, mock.ExpectationsWereMet())
}
