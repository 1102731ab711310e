package engine

import (
	"fmt"
	"math/rand"
	"sort"

	"go.uber.org/zap"

	"github.com/nav-in27/timetable-generator/internal/models"
)

// Engine runs the multi-phase timetable generation over an in-memory
// board. It performs no I/O; callers load the snapshot and persist the
// result.
type Engine struct {
	cfg Config
	log *zap.Logger
}

// New creates an engine with the given grid configuration.
func New(cfg Config, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{cfg: cfg, log: log}
}

// Result is the complete outcome of one generation run.
type Result struct {
	Allocations []models.Allocation
	Assignments []models.ComponentAssignment
	Report      *Report
}

// Generate runs all phases over the snapshot and returns every grid
// cell of every cohort, free periods included. A nil rng falls back to
// the configured seed so runs stay reproducible. A degraded schedule is
// always preferred over a failed run: unexpected panics are converted
// into a partial result.
func (e *Engine) Generate(snap Snapshot, rng *rand.Rand) (result *Result) {
	if rng == nil {
		rng = rand.New(rand.NewSource(e.cfg.Seed))
	}
	rep := newReport()
	r := &run{
		cfg:       e.cfg,
		lk:        buildLookup(&snap),
		board:     NewBoard(e.cfg),
		rng:       rng,
		rep:       rep,
		remaining: make(map[AssignmentKey]int),
	}

	defer func() {
		if rec := recover(); rec != nil {
			e.log.Error("generation aborted mid-phase", zap.Any("panic", rec))
			rep.Success = false
			rep.Message = fmt.Sprintf("generation aborted mid-phase: %v", rec)
			result = e.collect(r)
		}
	}()

	cohorts := sortedCohorts(r.lk)
	for _, cohort := range cohorts {
		for _, subject := range r.lk.cohortSubjects[cohort.ID] {
			for _, comp := range []models.Component{models.ComponentTheory, models.ComponentLab, models.ComponentTutorial} {
				if h := subject.WeeklyHours(comp); h > 0 {
					r.remaining[AssignmentKey{cohort.ID, subject.ID, comp}] = h
				}
			}
		}
	}

	required := validateCapacity(r.lk, cohorts, e.cfg, rep)
	applyFixedSlots(r, snap.FixedSlots)
	r.assigned = lockAssignments(r.lk, cohorts, e.cfg, rep)
	syncElectives(r)
	placeLabBlocks(r, cohorts)
	fillRemaining(r, cohorts)
	finalCheck(r, cohorts, required)

	e.log.Info("generation finished",
		zap.Int("allocations", rep.TotalAllocations),
		zap.Int("free_periods", rep.FreePeriods),
		zap.Int("warnings", len(rep.Warnings)))
	return e.collect(r)
}

// applyFixedSlots reproduces manual locks on the board before any
// phase runs, so no later phase can read those cells as open. A lock
// that conflicts with an earlier lock is reported and skipped.
func applyFixedSlots(r *run, slots []models.FixedSlot) {
	placed := 0
	for _, fs := range slots {
		entry := Entry{
			CohortID:  fs.CohortID,
			SubjectID: fs.SubjectID,
			Day:       fs.Day,
			Period:    fs.Period,
			Component: fs.Component,
			IsFixed:   true,
		}
		if fs.TeacherID != nil {
			entry.TeacherID = *fs.TeacherID
		}
		if fs.RoomID != nil {
			entry.RoomID = *fs.RoomID
		}
		if err := r.board.TryPlace(entry); err != nil {
			r.rep.warnf("fixed slot %s skipped: %v", fs.ID, err)
			continue
		}
		key := AssignmentKey{fs.CohortID, fs.SubjectID, fs.Component}
		if r.remaining[key] > 0 {
			r.remaining[key]--
		}
		placed++
	}
	r.rep.count("fixed_slots", placed)
}

// finalCheck is observational: it summarizes hour balances per cohort
// and records any structural double-booking, which the board should
// have made impossible.
func finalCheck(r *run, cohorts []*models.Cohort, required map[string]int) {
	scheduled := make(map[string]int)
	free := make(map[string]int)
	teacherSeen := make(map[occKey]bool)
	roomSeen := make(map[occKey]bool)
	cohortSeen := make(map[occKey]bool)

	for _, e := range r.board.Entries() {
		cell := Cell{e.Day, e.Period}
		if cohortSeen[occKey{e.CohortID, cell}] {
			r.rep.anomalyf("cohort %s double-booked at %s", e.CohortID, cell)
		}
		cohortSeen[occKey{e.CohortID, cell}] = true
		if e.SubjectID == "" {
			free[e.CohortID]++
			continue
		}
		scheduled[e.CohortID]++
		if e.TeacherID != "" {
			if teacherSeen[occKey{e.TeacherID, cell}] {
				r.rep.anomalyf("teacher %s double-booked at %s", e.TeacherID, cell)
			}
			teacherSeen[occKey{e.TeacherID, cell}] = true
		}
		if e.RoomID != "" {
			if roomSeen[occKey{e.RoomID, cell}] {
				r.rep.anomalyf("room %s double-booked at %s", e.RoomID, cell)
			}
			roomSeen[occKey{e.RoomID, cell}] = true
		}
	}
	for _, ph := range r.placeholders {
		free[ph.CohortID]++
	}

	for _, cohort := range cohorts {
		r.rep.Cohorts = append(r.rep.Cohorts, CohortSummary{
			CohortID:    cohort.ID,
			CohortName:  cohort.Name,
			Required:    required[cohort.ID],
			Scheduled:   scheduled[cohort.ID],
			FreePeriods: free[cohort.ID],
			Deficit:     maxInt(0, required[cohort.ID]-scheduled[cohort.ID]),
		})
	}
}

// collect converts accepted entries and placeholders into the final
// allocation rows and finishes the report.
func (e *Engine) collect(r *run) *Result {
	allocations := make([]models.Allocation, 0, len(r.board.Entries())+len(r.placeholders))
	for _, entry := range r.board.Entries() {
		a := models.Allocation{
			CohortID:          entry.CohortID,
			Day:               entry.Day,
			Period:            entry.Period,
			Component:         entry.Component,
			IsLabContinuation: entry.IsLabContinuation,
			IsElective:        entry.IsElective,
			IsFixed:           entry.IsFixed,
		}
		if entry.SubjectID == "" {
			a.IsFree = true
		} else {
			a.SubjectID = strPtr(entry.SubjectID)
		}
		if entry.TeacherID != "" {
			a.TeacherID = strPtr(entry.TeacherID)
		}
		if entry.RoomID != "" {
			a.RoomID = strPtr(entry.RoomID)
		}
		allocations = append(allocations, a)
	}
	for _, ph := range r.placeholders {
		allocations = append(allocations, models.Allocation{
			CohortID:   ph.CohortID,
			Day:        ph.Cell.Day,
			Period:     ph.Cell.Period,
			IsElective: true,
			IsFree:     true,
		})
	}
	sort.Slice(allocations, func(i, j int) bool {
		a, b := allocations[i], allocations[j]
		if a.CohortID != b.CohortID {
			return a.CohortID < b.CohortID
		}
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		return a.Period < b.Period
	})

	assignments := make([]models.ComponentAssignment, 0, len(r.assigned))
	for key, teacherID := range r.assigned {
		assignments = append(assignments, models.ComponentAssignment{
			CohortID:  key.CohortID,
			SubjectID: key.SubjectID,
			Component: key.Component,
			TeacherID: teacherID,
		})
	}
	sort.Slice(assignments, func(i, j int) bool {
		a, b := assignments[i], assignments[j]
		if a.CohortID != b.CohortID {
			return a.CohortID < b.CohortID
		}
		if a.SubjectID != b.SubjectID {
			return a.SubjectID < b.SubjectID
		}
		return a.Component < b.Component
	})

	rep := r.rep
	freeTotal := 0
	scheduledTotal := 0
	for _, a := range allocations {
		if a.IsFree {
			freeTotal++
		} else {
			scheduledTotal++
		}
	}
	rep.TotalAllocations = scheduledTotal
	rep.FreePeriods = freeTotal
	if rep.Message == "" {
		switch {
		case len(rep.Warnings) > 0:
			rep.Message = fmt.Sprintf("generated %d sessions with %d warnings", scheduledTotal, len(rep.Warnings))
		default:
			rep.Message = fmt.Sprintf("generated %d sessions", scheduledTotal)
		}
	}
	return &Result{Allocations: allocations, Assignments: assignments, Report: rep}
}

func sortedCohorts(lk *lookup) []*models.Cohort {
	out := make([]*models.Cohort, 0, len(lk.cohortByID))
	for _, c := range lk.cohortByID {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func strPtr(s string) *string { return &s }

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
