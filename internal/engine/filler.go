package engine

import (
	"sort"

	"github.com/nav-in27/timetable-generator/internal/models"
)

// periodKey counts how often a subject sits at the same period index
// across the week, used to spread occurrences over different days.
type periodKey struct {
	cohortID  string
	subjectID string
	period    int
}

// fillRemaining walks every still-open cell period-first across all
// cohorts and places theory or tutorial sessions with remaining hours.
// Cells nothing fits into become explicit free periods; that is a
// normal reportable outcome, never an error.
func fillRemaining(r *run, cohorts []*models.Cohort) {
	periodUse := make(map[periodKey]int)
	for _, e := range r.board.Entries() {
		if e.SubjectID != "" {
			periodUse[periodKey{e.CohortID, e.SubjectID, e.Period}]++
		}
	}

	filled, free := 0, 0
	for p := 0; p < r.cfg.PeriodsPerDay; p++ {
		for d := 0; d < r.cfg.Days; d++ {
			cell := Cell{Day: d, Period: p}
			for _, cohort := range cohorts {
				if !r.board.IsCohortFree(cohort.ID, cell) {
					continue
				}
				if fillCell(r, cohort, cell, periodUse) {
					filled++
				} else {
					if err := r.board.TryPlace(Entry{CohortID: cohort.ID, Day: d, Period: p}); err != nil {
						r.rep.anomalyf("free-period marker rejected for cohort %s at %s: %v", cohort.ID, cell, err)
						continue
					}
					free++
				}
			}
		}
	}
	r.rep.count("filled_sessions", filled)
	r.rep.count("free_periods", free)
}

// fillCell tries each candidate subject for one open cell. Subjects not
// yet seen at this period index are preferred; the same-day repeat cap
// is 1, relaxed to 2 only when a subject's remaining hours no longer
// fit in its remaining repeat-free days.
func fillCell(r *run, cohort *models.Cohort, cell Cell, periodUse map[periodKey]int) bool {
	type candidate struct {
		subject *models.Subject
		comp    models.Component
		key     AssignmentKey
		atCol   int
	}

	var candidates []candidate
	for _, subject := range r.lk.cohortSubjects[cohort.ID] {
		if subject.IsElective {
			continue
		}
		for _, comp := range []models.Component{models.ComponentTheory, models.ComponentTutorial} {
			key := AssignmentKey{CohortID: cohort.ID, SubjectID: subject.ID, Component: comp}
			if r.remaining[key] == 0 || r.assigned[key] == "" {
				continue
			}
			candidates = append(candidates, candidate{
				subject: subject,
				comp:    comp,
				key:     key,
				atCol:   periodUse[periodKey{cohort.ID, subject.ID, cell.Period}],
			})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].atCol != candidates[j].atCol {
			return candidates[i].atCol < candidates[j].atCol
		}
		if r.remaining[candidates[i].key] != r.remaining[candidates[j].key] {
			return r.remaining[candidates[i].key] > r.remaining[candidates[j].key]
		}
		return candidates[i].subject.ID < candidates[j].subject.ID
	})

	for _, relax := range []bool{false, true} {
		for _, c := range candidates {
			limit := 1
			if relax {
				if freeDays(r, cohort.ID, c.subject.ID) >= r.remaining[c.key] {
					continue // still fits without stacking
				}
				limit = 2
			}
			if r.board.DailyCount(cohort.ID, cell.Day, c.subject.ID) >= limit {
				continue
			}
			teacherID := r.assigned[c.key]
			if !r.board.IsTeacherFree(teacherID, cell) {
				continue
			}
			roomID, ok := sessionRoom(r, cohort.StudentCount, cell)
			if !ok {
				continue
			}
			err := r.board.TryPlace(Entry{
				CohortID:  cohort.ID,
				SubjectID: c.subject.ID,
				TeacherID: teacherID,
				RoomID:    roomID,
				Day:       cell.Day,
				Period:    cell.Period,
				Component: c.comp,
			})
			if err != nil {
				r.rep.anomalyf("fill placement rejected for cohort %s at %s: %v", cohort.ID, cell, err)
				continue
			}
			r.remaining[c.key]--
			periodUse[periodKey{cohort.ID, c.subject.ID, cell.Period}]++
			return true
		}
	}
	return false
}

// freeDays counts days where the subject does not yet occur for the
// cohort.
func freeDays(r *run, cohortID, subjectID string) int {
	n := 0
	for d := 0; d < r.cfg.Days; d++ {
		if r.board.DailyCount(cohortID, d, subjectID) == 0 {
			n++
		}
	}
	return n
}

// sessionRoom picks a free lecture or seminar room with enough seats.
// When the snapshot defines no such rooms at all, sessions are placed
// without a room rather than starving the whole grid.
func sessionRoom(r *run, seats int, cell Cell) (string, bool) {
	if !hasRoomOfType(r, models.RoomLecture) && !hasRoomOfType(r, models.RoomSeminar) {
		return "", true
	}
	if id := findRoom(r, models.RoomLecture, seats, []Cell{cell}); id != "" {
		return id, true
	}
	if id := findRoom(r, models.RoomSeminar, seats, []Cell{cell}); id != "" {
		return id, true
	}
	return "", false
}

func hasRoomOfType(r *run, want models.RoomType) bool {
	for _, room := range r.lk.roomByID {
		if room.Type == want {
			return true
		}
	}
	return false
}
