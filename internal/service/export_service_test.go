package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nav-in27/timetable-generator/internal/models"
	appErrors "github.com/nav-in27/timetable-generator/pkg/errors"
	"github.com/nav-in27/timetable-generator/pkg/storage"
)

func newExportFixture(t *testing.T) *ExportService {
	t.Helper()
	allocations, overlays, subjects, teachers, rooms := timetableFixture()
	timetables := NewTimetableService(allocations, subjects, teachers, rooms, overlays, nil, 0, nil)

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)

	svc := NewExportService(timetables, store, signer, ExportConfig{Workers: 1}, nil, nil)
	svc.Start(context.Background())
	t.Cleanup(svc.Stop)
	return svc
}

func waitForJob(t *testing.T, svc *ExportService, jobID string) *models.ExportJob {
	t.Helper()
	var job *models.ExportJob
	require.Eventually(t, func() bool {
		current, err := svc.Status(jobID)
		if err != nil {
			return false
		}
		if current.Status == models.ExportStatusFinished || current.Status == models.ExportStatusFailed {
			job = current
			return true
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)
	return job
}

func TestExportServiceCSVRoundTrip(t *testing.T) {
	svc := newExportFixture(t)

	job, err := svc.Enqueue(context.Background(), ExportRequest{
		Type:     "cohort",
		TargetID: "c1",
		Format:   "csv",
	}, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusQueued, job.Status)

	finished := waitForJob(t, svc, job.ID)
	require.Equal(t, models.ExportStatusFinished, finished.Status)
	require.NotNil(t, finished.ResultURL)
	assert.Contains(t, *finished.ResultURL, "/api/v1/exports/download/")

	token := (*finished.ResultURL)[strings.LastIndex(*finished.ResultURL, "/")+1:]
	jobID, relPath, _, err := svc.ParseToken(token, false)
	require.NoError(t, err)
	assert.Equal(t, job.ID, jobID)

	file, err := svc.Open(relPath)
	require.NoError(t, err)
	require.NoError(t, file.Close())
}

func TestExportServicePDF(t *testing.T) {
	svc := newExportFixture(t)

	job, err := svc.Enqueue(context.Background(), ExportRequest{
		Type:     "teacher",
		TargetID: "t1",
		Format:   "pdf",
	}, "user-1")
	require.NoError(t, err)

	finished := waitForJob(t, svc, job.ID)
	assert.Equal(t, models.ExportStatusFinished, finished.Status)
}

func TestExportServiceEnqueueRejectsBadFormat(t *testing.T) {
	svc := newExportFixture(t)

	_, err := svc.Enqueue(context.Background(), ExportRequest{
		Type:     "cohort",
		TargetID: "c1",
		Format:   "xlsx",
	}, "user-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportServiceStatusNotFound(t *testing.T) {
	svc := newExportFixture(t)

	_, err := svc.Status("missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestExportServiceParseTokenRejectsGarbage(t *testing.T) {
	svc := newExportFixture(t)

	_, _, _, err := svc.ParseToken("not-a-token", false)
	require.Error(t, err)
}
