package service

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/nav-in27/timetable-generator/internal/engine"
	"github.com/nav-in27/timetable-generator/internal/models"
	appErrors "github.com/nav-in27/timetable-generator/pkg/errors"
)

type substitutionStore interface {
	CreateAbsence(ctx context.Context, absence *models.TeacherAbsence) error
	FindAbsence(ctx context.Context, id string) (*models.TeacherAbsence, error)
	FindAbsenceByTeacherAndDate(ctx context.Context, teacherID string, date time.Time) (*models.TeacherAbsence, error)
	ListAbsencesByDate(ctx context.Context, date time.Time) ([]models.TeacherAbsence, error)
	Create(ctx context.Context, sub *models.Substitution) error
	FindByID(ctx context.Context, id string) (*models.Substitution, error)
	FindActiveByAllocationAndDate(ctx context.Context, allocationID string, date time.Time) (*models.Substitution, error)
	ListAssignedByDate(ctx context.Context, date time.Time) ([]models.Substitution, error)
	List(ctx context.Context, filter models.SubstitutionFilter) ([]models.Substitution, int, error)
	UpdateStatus(ctx context.Context, id string, status models.SubstitutionStatus) error
}

type substitutionAllocationSource interface {
	FindByID(ctx context.Context, id string) (*models.Allocation, error)
	ListByTeacherAndDay(ctx context.Context, teacherID string, day int) ([]models.Allocation, error)
	ListAtSlot(ctx context.Context, day, period int) ([]models.Allocation, error)
	CountByTeacher(ctx context.Context) (map[string]int, error)
}

type substitutionTeacherSource interface {
	ListActive(ctx context.Context) ([]models.Teacher, error)
	ListCapabilities(ctx context.Context) ([]models.TeacherSubject, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

// ReportAbsenceRequest marks a teacher absent on one date.
type ReportAbsenceRequest struct {
	TeacherID     string `json:"teacher_id" validate:"required"`
	Date          string `json:"date" validate:"required,datetime=2006-01-02"`
	IsFullDay     bool   `json:"is_full_day"`
	AbsentPeriods []int  `json:"absent_periods" validate:"omitempty,dive,min=0,max=11"`
	Reason        string `json:"reason" validate:"omitempty,max=500"`
}

// MatchSubstituteRequest asks for a ranked replacement on one session.
type MatchSubstituteRequest struct {
	AllocationID       string `json:"allocation_id" validate:"required"`
	Date               string `json:"date" validate:"required,datetime=2006-01-02"`
	PreferredTeacherID string `json:"preferred_teacher_id"`
	// AutoAssign immediately marks the substitution ASSIGNED instead of
	// leaving it PENDING for review.
	AutoAssign bool `json:"auto_assign"`
}

// MatchResult pairs a stored substitution with the full candidate list.
type MatchResult struct {
	Substitution *models.Substitution         `json:"substitution"`
	Candidates   []engine.SubstituteCandidate `json:"candidates"`
}

// SubstitutionService matches replacement teachers onto sessions hit by
// an absence. Assignments are overlays keyed by date, the underlying
// timetable is never rewritten.
type SubstitutionService struct {
	store       substitutionStore
	allocations substitutionAllocationSource
	teachers    substitutionTeacherSource
	engine      *engine.Engine
	weights     engine.MatchWeights
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewSubstitutionService wires substitution dependencies.
func NewSubstitutionService(
	store substitutionStore,
	allocations substitutionAllocationSource,
	teachers substitutionTeacherSource,
	engineCfg engine.Config,
	weights engine.MatchWeights,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *SubstitutionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if weights == (engine.MatchWeights{}) {
		weights = engine.DefaultMatchWeights()
	}
	return &SubstitutionService{
		store:       store,
		allocations: allocations,
		teachers:    teachers,
		engine:      engine.New(engineCfg, logger),
		weights:     weights,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
	}
}

// ReportAbsence records an absence and returns the affected sessions.
func (s *SubstitutionService) ReportAbsence(ctx context.Context, req ReportAbsenceRequest) (*models.TeacherAbsence, []models.Allocation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid absence payload")
	}
	if !req.IsFullDay && len(req.AbsentPeriods) == 0 {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "partial absence needs absent_periods")
	}

	teacher, err := s.teachers.FindByID(ctx, req.TeacherID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}
	if _, err := s.store.FindAbsenceByTeacherAndDate(ctx, teacher.ID, date); err == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrConflict, "absence already reported for this date")
	} else if err != sql.ErrNoRows {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check absence")
	}

	absence := &models.TeacherAbsence{
		TeacherID: teacher.ID,
		Date:      date,
		IsFullDay: req.IsFullDay,
	}
	if len(req.AbsentPeriods) > 0 {
		absence.AbsentPeriods = strPtr(joinPeriods(req.AbsentPeriods))
	}
	if trimmed := strings.TrimSpace(req.Reason); trimmed != "" {
		absence.Reason = &trimmed
	}
	if err := s.store.CreateAbsence(ctx, absence); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record absence")
	}

	affected, err := s.affectedSessions(ctx, absence)
	if err != nil {
		return nil, nil, err
	}
	return absence, affected, nil
}

// MatchSubstitute ranks replacements for one session on one date and
// stores the winner as a substitution overlay.
func (s *SubstitutionService) MatchSubstitute(ctx context.Context, req MatchSubstituteRequest) (*MatchResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid match payload")
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}

	allocation, err := s.allocations.FindByID(ctx, req.AllocationID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "allocation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load allocation")
	}
	if allocation.IsFree || allocation.SubjectID == nil || allocation.TeacherID == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "allocation has no teacher to replace")
	}
	if weekdayIndex(date) != allocation.Day {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date does not fall on the allocation's weekday")
	}
	if existing, err := s.store.FindActiveByAllocationAndDate(ctx, allocation.ID, date); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("substitution %s already covers this session", existing.ID))
	} else if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing substitution")
	}

	absence, err := s.store.FindAbsenceByTeacherAndDate(ctx, *allocation.TeacherID, date)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrValidation, "no absence reported for the session's teacher on this date")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load absence")
	}

	candidates, err := s.rank(ctx, allocation, date)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		if s.metrics != nil {
			s.metrics.RecordSubstitutionMatch("no_candidates")
		}
		return nil, appErrors.Clone(appErrors.ErrNoCandidates, "no substitute available for this session")
	}

	chosen := candidates[0]
	if req.PreferredTeacherID != "" {
		found := false
		for _, c := range candidates {
			if c.TeacherID == req.PreferredTeacherID {
				chosen = c
				found = true
				break
			}
		}
		if !found {
			return nil, appErrors.Clone(appErrors.ErrValidation, "preferred teacher is not an eligible candidate")
		}
	}

	status := models.SubstitutionPending
	if req.AutoAssign {
		status = models.SubstitutionAssigned
	}
	sub := &models.Substitution{
		AbsenceID:           absence.ID,
		AllocationID:        allocation.ID,
		Date:                date,
		OriginalTeacherID:   *allocation.TeacherID,
		SubstituteTeacherID: strPtr(chosen.TeacherID),
		Score:               &chosen.Score,
		Status:              status,
	}
	if err := s.store.Create(ctx, sub); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store substitution")
	}
	if s.metrics != nil {
		s.metrics.RecordSubstitutionMatch("matched")
	}
	s.logger.Info("substitute matched",
		zap.String("allocation_id", allocation.ID),
		zap.String("substitute_id", chosen.TeacherID),
		zap.Float64("score", chosen.Score))
	return &MatchResult{Substitution: sub, Candidates: candidates}, nil
}

// AutoSubstituteForAbsence matches every affected session of an
// absence. Sessions with no candidate produce an unfilled PENDING row
// with no substitute so staff can resolve them manually.
func (s *SubstitutionService) AutoSubstituteForAbsence(ctx context.Context, absenceID string) ([]MatchResult, error) {
	absence, err := s.store.FindAbsence(ctx, absenceID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "absence not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load absence")
	}

	affected, err := s.affectedSessions(ctx, absence)
	if err != nil {
		return nil, err
	}

	var results []MatchResult
	for i := range affected {
		allocation := &affected[i]
		if _, err := s.store.FindActiveByAllocationAndDate(ctx, allocation.ID, absence.Date); err == nil {
			continue
		} else if err != sql.ErrNoRows {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing substitution")
		}

		candidates, err := s.rank(ctx, allocation, absence.Date)
		if err != nil {
			return nil, err
		}

		sub := &models.Substitution{
			AbsenceID:         absence.ID,
			AllocationID:      allocation.ID,
			Date:              absence.Date,
			OriginalTeacherID: absence.TeacherID,
			Status:            models.SubstitutionPending,
		}
		if len(candidates) > 0 {
			sub.SubstituteTeacherID = strPtr(candidates[0].TeacherID)
			sub.Score = &candidates[0].Score
			sub.Status = models.SubstitutionAssigned
			if s.metrics != nil {
				s.metrics.RecordSubstitutionMatch("matched")
			}
		} else {
			sub.Note = strPtr("no substitute available")
			if s.metrics != nil {
				s.metrics.RecordSubstitutionMatch("no_candidates")
			}
		}
		if err := s.store.Create(ctx, sub); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store substitution")
		}
		results = append(results, MatchResult{Substitution: sub, Candidates: candidates})
	}
	return results, nil
}

// List returns substitutions plus pagination data.
func (s *SubstitutionService) List(ctx context.Context, filter models.SubstitutionFilter) ([]models.Substitution, *models.Pagination, error) {
	subs, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list substitutions")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return subs, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// UpdateStatus advances a substitution through its lifecycle. Only
// PENDING→ASSIGNED, PENDING→CANCELLED, ASSIGNED→COMPLETED and
// ASSIGNED→CANCELLED are legal moves.
func (s *SubstitutionService) UpdateStatus(ctx context.Context, id string, status models.SubstitutionStatus) (*models.Substitution, error) {
	sub, err := s.store.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "substitution not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load substitution")
	}
	if !legalTransition(sub.Status, status) {
		return nil, appErrors.Clone(appErrors.ErrSubstitutionState, fmt.Sprintf("cannot move substitution from %s to %s", sub.Status, status))
	}
	if status == models.SubstitutionAssigned && sub.SubstituteTeacherID == nil {
		return nil, appErrors.Clone(appErrors.ErrSubstitutionState, "cannot assign a substitution without a substitute")
	}
	if err := s.store.UpdateStatus(ctx, id, status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update substitution")
	}
	sub.Status = status
	return sub, nil
}

// affectedSessions lists the absent teacher's sessions on the absence
// date. Lab continuation rows ride along with their block start and are
// skipped, the matched substitute covers the whole block.
func (s *SubstitutionService) affectedSessions(ctx context.Context, absence *models.TeacherAbsence) ([]models.Allocation, error) {
	day := weekdayIndex(absence.Date)
	sessions, err := s.allocations.ListByTeacherAndDay(ctx, absence.TeacherID, day)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load affected sessions")
	}

	periods := absentPeriodSet(absence)
	var affected []models.Allocation
	for _, a := range sessions {
		if a.IsFree || a.IsLabContinuation {
			continue
		}
		if periods != nil && !periods[a.Period] {
			continue
		}
		affected = append(affected, a)
	}
	return affected, nil
}

// rank builds the live context for one session and scores candidates.
func (s *SubstitutionService) rank(ctx context.Context, allocation *models.Allocation, date time.Time) ([]engine.SubstituteCandidate, error) {
	teachers, err := s.teachers.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}
	caps, err := s.teachers.ListCapabilities(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load capabilities")
	}
	loads, err := s.allocations.CountByTeacher(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher loads")
	}

	busy := make(map[string]bool)
	atSlot, err := s.allocations.ListAtSlot(ctx, allocation.Day, allocation.Period)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load slot occupancy")
	}
	for _, a := range atSlot {
		if a.TeacherID != nil {
			busy[*a.TeacherID] = true
		}
	}
	assigned, err := s.store.ListAssignedByDate(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assigned substitutions")
	}
	for _, sub := range assigned {
		if sub.SubstituteTeacherID == nil {
			continue
		}
		covered, err := s.allocations.FindByID(ctx, sub.AllocationID)
		if err != nil {
			continue
		}
		if covered.Day == allocation.Day && covered.Period == allocation.Period {
			busy[*sub.SubstituteTeacherID] = true
		}
	}

	absent := make(map[string]bool)
	absences, err := s.store.ListAbsencesByDate(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load absences")
	}
	for i := range absences {
		periods := absentPeriodSet(&absences[i])
		if periods == nil || periods[allocation.Period] {
			absent[absences[i].TeacherID] = true
		}
	}

	snap := engine.Snapshot{Teachers: teachers, Capabilities: caps}
	return s.engine.RankSubstitutes(snap, engine.SubstituteContext{
		SubjectID:        *allocation.SubjectID,
		Day:              allocation.Day,
		Period:           allocation.Period,
		ExcludeTeacherID: *allocation.TeacherID,
		Loads:            loads,
		Busy:             busy,
		Absent:           absent,
	}, s.weights), nil
}

func legalTransition(from, to models.SubstitutionStatus) bool {
	switch from {
	case models.SubstitutionPending:
		return to == models.SubstitutionAssigned || to == models.SubstitutionCancelled
	case models.SubstitutionAssigned:
		return to == models.SubstitutionCompleted || to == models.SubstitutionCancelled
	}
	return false
}

// absentPeriodSet returns nil for full day absences, otherwise the set
// of absent periods.
func absentPeriodSet(absence *models.TeacherAbsence) map[int]bool {
	if absence.IsFullDay || absence.AbsentPeriods == nil {
		return nil
	}
	set := make(map[int]bool)
	for _, part := range strings.Split(*absence.AbsentPeriods, ",") {
		if p, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
			set[p] = true
		}
	}
	return set
}

func joinPeriods(periods []int) string {
	parts := make([]string, len(periods))
	for i, p := range periods {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ",")
}

// weekdayIndex maps a calendar date onto the grid's day axis, Monday is
// day zero.
func weekdayIndex(date time.Time) int {
	return (int(date.Weekday()) + 6) % 7
}

func strPtr(s string) *string {
	return &s
}
