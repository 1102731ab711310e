package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/nav-in27/timetable-generator/internal/engine"
	"github.com/nav-in27/timetable-generator/internal/models"
	appErrors "github.com/nav-in27/timetable-generator/pkg/errors"
)

type generationTeacherSource interface {
	ListActive(ctx context.Context) ([]models.Teacher, error)
	ListCapabilities(ctx context.Context) ([]models.TeacherSubject, error)
}

type generationSubjectSource interface {
	ListAll(ctx context.Context) ([]models.Subject, error)
}

type generationCohortSource interface {
	ListAll(ctx context.Context) ([]models.Cohort, error)
	ListByIDs(ctx context.Context, ids []string) ([]models.Cohort, error)
}

type generationRoomSource interface {
	ListAll(ctx context.Context) ([]models.Room, error)
}

type generationBasketSource interface {
	ListAll(ctx context.Context) ([]models.ElectiveBasket, error)
}

type generationFixedSlotSource interface {
	ListAll(ctx context.Context) ([]models.FixedSlot, error)
}

type generationAssignmentStore interface {
	ListAll(ctx context.Context) ([]models.ComponentAssignment, error)
	ReplaceByCohortsWithTx(ctx context.Context, tx *sqlx.Tx, cohortIDs []string, rows []models.ComponentAssignment) error
}

type generationAllocationStore interface {
	DeleteByCohortsWithTx(ctx context.Context, tx *sqlx.Tx, cohortIDs []string) error
	BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, allocations []models.Allocation) error
}

type generationRunStore interface {
	CreateWithTx(ctx context.Context, tx *sqlx.Tx, run *models.GenerationRun) error
	ListRecent(ctx context.Context, limit int) ([]models.GenerationRun, error)
}

type generationTxProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// GenerateRequest selects the cohorts to schedule and tunes the run.
type GenerateRequest struct {
	// CohortIDs empty means every cohort.
	CohortIDs []string `json:"cohort_ids"`
	// Seed overrides the configured seed for this run.
	Seed *int64 `json:"seed"`
	// DryRun computes a schedule without persisting anything.
	DryRun bool `json:"dry_run"`
}

// GenerateOutcome is the service-level result of one generation run.
type GenerateOutcome struct {
	Run         models.GenerationRun        `json:"run"`
	Report      *engine.Report              `json:"report"`
	Allocations []models.Allocation         `json:"allocations,omitempty"`
	Assignments []models.ComponentAssignment `json:"assignments,omitempty"`
}

// GenerationService loads the scheduling snapshot, runs the engine and
// persists the resulting allocations in one transaction. Runs touching
// the same cohort are serialised, concurrent requests get a conflict.
type GenerationService struct {
	teachers    generationTeacherSource
	subjects    generationSubjectSource
	cohorts     generationCohortSource
	rooms       generationRoomSource
	baskets     generationBasketSource
	fixedSlots  generationFixedSlotSource
	assignments generationAssignmentStore
	allocations generationAllocationStore
	runs        generationRunStore
	tx          generationTxProvider
	engine      *engine.Engine
	engineCfg   engine.Config
	cache       *CacheService
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger

	mu       sync.Mutex
	inFlight map[string]bool
}

// NewGenerationService wires generator dependencies.
func NewGenerationService(
	teachers generationTeacherSource,
	subjects generationSubjectSource,
	cohorts generationCohortSource,
	rooms generationRoomSource,
	baskets generationBasketSource,
	fixedSlots generationFixedSlotSource,
	assignments generationAssignmentStore,
	allocations generationAllocationStore,
	runs generationRunStore,
	tx generationTxProvider,
	engineCfg engine.Config,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *GenerationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GenerationService{
		teachers:    teachers,
		subjects:    subjects,
		cohorts:     cohorts,
		rooms:       rooms,
		baskets:     baskets,
		fixedSlots:  fixedSlots,
		assignments: assignments,
		allocations: allocations,
		runs:        runs,
		tx:          tx,
		engine:      engine.New(engineCfg, logger),
		engineCfg:   engineCfg,
		cache:       cache,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		inFlight:    make(map[string]bool),
	}
}

// Generate runs the engine for the requested cohorts and replaces their
// stored timetables unless the request is a dry run.
func (s *GenerationService) Generate(ctx context.Context, req GenerateRequest) (*GenerateOutcome, error) {
	targets, err := s.resolveCohorts(ctx, req.CohortIDs)
	if err != nil {
		return nil, err
	}

	cohortIDs := make([]string, len(targets))
	for i, c := range targets {
		cohortIDs[i] = c.ID
	}
	if err := s.acquire(cohortIDs); err != nil {
		return nil, err
	}
	defer s.release(cohortIDs)

	snap, err := s.loadSnapshot(ctx, targets)
	if err != nil {
		return nil, err
	}

	seed := s.engineCfg.Seed
	if req.Seed != nil {
		seed = *req.Seed
	}

	start := time.Now()
	result := s.engine.Generate(*snap, rand.New(rand.NewSource(seed)))
	duration := time.Since(start)

	run := buildRunRecord(result, seed)
	if s.metrics != nil {
		s.metrics.ObserveGeneration(run.Status, duration)
	}
	s.logger.Info("generation run finished",
		zap.String("status", run.Status),
		zap.Int64("seed", seed),
		zap.Int("cohorts", len(targets)),
		zap.Int("allocations", run.Allocations),
		zap.Int("notes", len(result.Report.Notes)),
		zap.Int("warnings", len(result.Report.Warnings)),
		zap.Duration("duration", duration))

	outcome := &GenerateOutcome{
		Run:         run,
		Report:      result.Report,
		Allocations: result.Allocations,
		Assignments: result.Assignments,
	}
	if req.DryRun {
		return outcome, nil
	}

	if err := s.persist(ctx, cohortIDs, result, &outcome.Run); err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, "timetable:*")
	}
	return outcome, nil
}

// History returns recent generation runs, newest first.
func (s *GenerationService) History(ctx context.Context, limit int) ([]models.GenerationRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	history, err := s.runs.ListRecent(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list generation runs")
	}
	return history, nil
}

func (s *GenerationService) resolveCohorts(ctx context.Context, ids []string) ([]models.Cohort, error) {
	if len(ids) == 0 {
		cohorts, err := s.cohorts.ListAll(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cohorts")
		}
		if len(cohorts) == 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "no cohorts configured")
		}
		return cohorts, nil
	}

	cohorts, err := s.cohorts.ListByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cohorts")
	}
	if len(cohorts) != len(ids) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "one or more cohorts not found")
	}
	return cohorts, nil
}

func (s *GenerationService) loadSnapshot(ctx context.Context, targets []models.Cohort) (*engine.Snapshot, error) {
	teachers, err := s.teachers.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}
	subjects, err := s.subjects.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}
	rooms, err := s.rooms.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}
	baskets, err := s.baskets.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load baskets")
	}
	caps, err := s.teachers.ListCapabilities(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load capabilities")
	}
	assignments, err := s.assignments.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignments")
	}
	fixedSlots, err := s.fixedSlots.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fixed slots")
	}

	targetSet := make(map[string]bool, len(targets))
	for _, c := range targets {
		targetSet[c.ID] = true
	}
	var scopedFixed []models.FixedSlot
	for _, fs := range fixedSlots {
		if targetSet[fs.CohortID] {
			scopedFixed = append(scopedFixed, fs)
		}
	}
	var scopedAssignments []models.ComponentAssignment
	for _, a := range assignments {
		if targetSet[a.CohortID] {
			scopedAssignments = append(scopedAssignments, a)
		}
	}

	return &engine.Snapshot{
		Teachers:     teachers,
		Subjects:     subjects,
		Cohorts:      targets,
		Rooms:        rooms,
		Baskets:      baskets,
		Capabilities: caps,
		Assignments:  scopedAssignments,
		FixedSlots:   scopedFixed,
	}, nil
}

func (s *GenerationService) persist(ctx context.Context, cohortIDs []string, result *engine.Result, run *models.GenerationRun) error {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if result.Report.Success {
		if err = s.allocations.DeleteByCohortsWithTx(ctx, tx, cohortIDs); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear allocations")
		}
		if err = s.allocations.BulkCreateWithTx(ctx, tx, result.Allocations); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store allocations")
		}
		if err = s.assignments.ReplaceByCohortsWithTx(ctx, tx, cohortIDs, result.Assignments); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store assignments")
		}
	}
	if err = s.runs.CreateWithTx(ctx, tx, run); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record generation run")
	}
	if err = tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit generation")
	}
	return nil
}

// acquire marks the cohorts as busy, rejecting overlap with a running
// generation instead of queueing behind it.
func (s *GenerationService) acquire(cohortIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range cohortIDs {
		if s.inFlight[id] {
			return appErrors.Clone(appErrors.ErrGenerationInFlight, "a generation run for these cohorts is already in progress")
		}
	}
	for _, id := range cohortIDs {
		s.inFlight[id] = true
	}
	return nil
}

func (s *GenerationService) release(cohortIDs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range cohortIDs {
		delete(s.inFlight, id)
	}
}

func buildRunRecord(result *engine.Result, seed int64) models.GenerationRun {
	status := models.GenerationCompleted
	if !result.Report.Success {
		status = models.GenerationFailed
	} else if len(result.Report.Warnings) > 0 {
		status = models.GenerationDegraded
	}

	warnings := "[]"
	if len(result.Report.Warnings) > 0 {
		if raw, err := json.Marshal(result.Report.Warnings); err == nil {
			warnings = string(raw)
		}
	}

	return models.GenerationRun{
		Status:      status,
		Seed:        seed,
		Warnings:    warnings,
		Allocations: result.Report.TotalAllocations,
		FreeSlots:   result.Report.FreePeriods,
		GeneratedAt: time.Now().UTC(),
	}
}
