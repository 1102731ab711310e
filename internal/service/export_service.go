package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nav-in27/timetable-generator/internal/models"
	appErrors "github.com/nav-in27/timetable-generator/pkg/errors"
	"github.com/nav-in27/timetable-generator/pkg/export"
	"github.com/nav-in27/timetable-generator/pkg/jobs"
	"github.com/nav-in27/timetable-generator/pkg/storage"
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
	Workers   int
}

// ExportRequest queues one timetable export.
type ExportRequest struct {
	Type     string `json:"type" validate:"required,oneof=cohort teacher room"`
	TargetID string `json:"target_id" validate:"required"`
	Format   string `json:"format" validate:"required,oneof=csv pdf"`
}

// ExportService renders timetable views to CSV or PDF files in the
// background and hands out signed download URLs.
type ExportService struct {
	timetables *TimetableService
	storage    fileStorage
	csv        csvRenderer
	pdf        pdfRenderer
	signer     *storage.SignedURLSigner
	queue      *jobs.Queue
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        ExportConfig

	mu   sync.RWMutex
	jobs map[string]*models.ExportJob
}

var dayNames = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// NewExportService constructs an ExportService and its worker queue.
// Call Start before enqueueing and Stop on shutdown.
func NewExportService(timetables *TimetableService, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, validate *validator.Validate, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	s := &ExportService{
		timetables: timetables,
		storage:    store,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		signer:     signer,
		validator:  validate,
		logger:     logger,
		cfg:        cfg,
		jobs:       make(map[string]*models.ExportJob),
	}
	s.queue = jobs.NewQueue("timetable-export", s.process, jobs.QueueConfig{
		Workers: cfg.Workers,
		Logger:  logger,
	})
	return s
}

// Start launches the export workers.
func (s *ExportService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the export workers.
func (s *ExportService) Stop() {
	s.queue.Stop()
}

// Enqueue validates and queues one export, returning its tracking job.
func (s *ExportService) Enqueue(ctx context.Context, req ExportRequest, createdBy string) (*models.ExportJob, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export payload")
	}

	// Fail fast on unknown targets before burning a worker slot.
	if _, err := s.loadView(ctx, models.ExportType(req.Type), req.TargetID); err != nil {
		return nil, err
	}

	job := &models.ExportJob{
		ID:        uuid.NewString(),
		Type:      models.ExportType(req.Type),
		TargetID:  req.TargetID,
		Format:    models.ExportFormat(req.Format),
		Status:    models.ExportStatusQueued,
		CreatedBy: createdBy,
		CreatedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type), Payload: job.ID}); err != nil {
		s.fail(job.ID, err)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue export")
	}
	return job, nil
}

// Status returns a queued export by job id.
func (s *ExportService) Status(jobID string) (*models.ExportJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	copied := *job
	return &copied, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Cleanup removes files older than ttl, defaulting to the configured
// result TTL.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) process(ctx context.Context, job jobs.Job) error {
	jobID, _ := job.Payload.(string)
	s.setStatus(jobID, models.ExportStatusProcessing)

	s.mu.RLock()
	tracked, ok := s.jobs[jobID]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown export job %s", jobID)
	}

	view, err := s.loadView(ctx, tracked.Type, tracked.TargetID)
	if err != nil {
		s.fail(jobID, err)
		return err
	}
	dataset, title := buildTimetableDataset(view)

	var payload []byte
	switch tracked.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", tracked.Format)
	}
	if err != nil {
		s.fail(jobID, err)
		return err
	}

	filename := fmt.Sprintf("%s_%s_%s.%s", tracked.Type, sanitizeFilename(tracked.TargetID), time.Now().UTC().Format("20060102_150405"), tracked.Format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		s.fail(jobID, err)
		return err
	}

	token, _, err := s.signer.Generate(jobID, relPath)
	if err != nil {
		s.fail(jobID, err)
		return err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	url := fmt.Sprintf("%s/exports/download/%s", prefix, token)

	now := time.Now().UTC()
	s.mu.Lock()
	tracked.Status = models.ExportStatusFinished
	tracked.ResultURL = &url
	tracked.FinishedAt = &now
	s.mu.Unlock()

	s.logger.Info("export finished",
		zap.String("job_id", jobID),
		zap.String("type", string(tracked.Type)),
		zap.String("file", relPath))
	return nil
}

func (s *ExportService) loadView(ctx context.Context, exportType models.ExportType, targetID string) (*TimetableView, error) {
	switch exportType {
	case models.ExportTypeCohort:
		return s.timetables.CohortView(ctx, targetID, "")
	case models.ExportTypeTeacher:
		return s.timetables.TeacherView(ctx, targetID, "")
	case models.ExportTypeRoom:
		return s.timetables.RoomView(ctx, targetID, "")
	}
	return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export type")
}

func (s *ExportService) setStatus(jobID string, status models.ExportStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[jobID]; ok {
		job.Status = status
	}
}

func (s *ExportService) fail(jobID string, err error) {
	now := time.Now().UTC()
	msg := err.Error()
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[jobID]; ok {
		job.Status = models.ExportStatusFailed
		job.ErrorMessage = &msg
		job.FinishedAt = &now
	}
}

func buildTimetableDataset(view *TimetableView) (export.Dataset, string) {
	headers := []string{"Day", "Period", "Subject", "Teacher", "Room", "Component", "Notes"}
	rows := make([]map[string]string, 0, len(view.Entries))
	for _, entry := range view.Entries {
		day := fmt.Sprintf("%d", entry.Day)
		if entry.Day >= 0 && entry.Day < len(dayNames) {
			day = dayNames[entry.Day]
		}
		subject := entry.SubjectName
		notes := ""
		switch {
		case entry.IsFree && entry.IsElective:
			subject = "Elective block"
			notes = "pending basket placement"
		case entry.IsFree:
			subject = "Free period"
		case entry.IsLabContinuation:
			notes = "lab continued"
		case entry.IsFixed:
			notes = "fixed"
		}
		rows = append(rows, map[string]string{
			"Day":       day,
			"Period":    fmt.Sprintf("%d", entry.Period+1),
			"Subject":   subject,
			"Teacher":   entry.TeacherName,
			"Room":      entry.RoomName,
			"Component": entry.Component,
			"Notes":     notes,
		})
	}
	title := fmt.Sprintf("Timetable for %s %s", view.OwnerType, view.OwnerID)
	return export.Dataset{Headers: headers, Rows: rows}, title
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
