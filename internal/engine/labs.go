package engine

import (
	"sort"

	"github.com/nav-in27/timetable-generator/internal/models"
)

// placeLabBlocks schedules every non-elective lab requirement as atomic
// two-period blocks. Blocks only ever land on the configured valid
// block positions and are never split across non-contiguous periods.
func placeLabBlocks(r *run, cohorts []*models.Cohort) {
	placed := 0
	for _, cohort := range cohorts {
		for _, subject := range sortedSubjects(r.lk.cohortSubjects[cohort.ID]) {
			if subject.IsElective || subject.LabHours == 0 {
				continue
			}
			key := AssignmentKey{CohortID: cohort.ID, SubjectID: subject.ID, Component: models.ComponentLab}
			teacherID := r.assigned[key]
			if teacherID == "" {
				continue
			}
			blocks := r.remaining[key] / 2
			for i := 0; i < blocks; i++ {
				if placeOneLabBlock(r, cohort, subject, teacherID, key) {
					placed++
				} else {
					r.rep.warnf("no valid lab block left for %s in cohort %s; %d hours unplaced",
						subject.Code, cohort.Name, r.remaining[key])
					break
				}
			}
		}
	}
	r.rep.count("lab_blocks", placed)
}

// placeOneLabBlock takes the first candidate where the cohort, the
// locked teacher and a lab room are simultaneously free across both
// periods, and places both halves atomically.
func placeOneLabBlock(r *run, cohort *models.Cohort, subject *models.Subject, teacherID string, key AssignmentKey) bool {
	for _, cand := range r.labCandidates() {
		cells := []Cell{{cand.Day, cand.Start}, {cand.Day, cand.End}}
		if !cellsFree(r, cohort.ID, teacherID, cells) {
			continue
		}
		roomID := findRoom(r, models.RoomLab, cohort.StudentCount, cells)
		if roomID == "" && hasRoomOfType(r, models.RoomLab) {
			continue
		}
		for i, cell := range cells {
			err := r.board.TryPlace(Entry{
				CohortID:          cohort.ID,
				SubjectID:         subject.ID,
				TeacherID:         teacherID,
				RoomID:            roomID,
				Day:               cell.Day,
				Period:            cell.Period,
				Component:         models.ComponentLab,
				IsLabContinuation: i > 0,
			})
			if err != nil {
				r.rep.anomalyf("lab placement rejected for cohort %s at %s: %v", cohort.ID, cell, err)
				return false
			}
		}
		r.board.RegisterLabBlock(LabBlock{
			CohortID:  cohort.ID,
			SubjectID: subject.ID,
			TeacherID: teacherID,
			RoomID:    roomID,
			Day:       cand.Day,
			Start:     cand.Start,
			End:       cand.End,
		})
		r.remaining[key] -= 2
		return true
	}
	return false
}

func cellsFree(r *run, cohortID, teacherID string, cells []Cell) bool {
	for _, cell := range cells {
		if !r.board.IsCohortFree(cohortID, cell) || !r.board.IsTeacherFree(teacherID, cell) {
			return false
		}
	}
	return true
}

// findRoom returns the first room of the wanted type with enough seats
// that is free at every cell, or empty. Rooms are scanned in id order
// so runs are reproducible.
func findRoom(r *run, want models.RoomType, seats int, cells []Cell) string {
	ids := make([]string, 0, len(r.lk.roomByID))
	for id := range r.lk.roomByID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		room := r.lk.roomByID[id]
		if room.Type != want || room.Capacity < seats {
			continue
		}
		free := true
		for _, cell := range cells {
			if !r.board.IsRoomFree(id, cell) {
				free = false
				break
			}
		}
		if free {
			return id
		}
	}
	return ""
}

func sortedSubjects(subjects []*models.Subject) []*models.Subject {
	out := append([]*models.Subject(nil), subjects...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
