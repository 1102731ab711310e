package engine

import (
	"sort"

	"github.com/nav-in27/timetable-generator/internal/models"
)

// syncElectives places every elective group at identical common slots
// across all participating cohorts: theory rounds first, then lab
// blocks. Groups are scheduled independently of each other even when
// they share a semester number.
func syncElectives(r *run) {
	groups := make([]GroupKey, 0, len(r.lk.groupCohorts))
	for key := range r.lk.groupCohorts {
		groups = append(groups, key)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Semester != groups[j].Semester {
			return groups[i].Semester < groups[j].Semester
		}
		return groups[i].BasketID < groups[j].BasketID
	})

	for _, group := range groups {
		syncGroupTheory(r, group)
		syncGroupLabs(r, group)
	}
}

// syncGroupTheory runs single-period rounds until the group's theory
// requirement is met or no common candidate remains. A group holds at
// most one theory round per day so rounds spread across the week.
func syncGroupTheory(r *run, group GroupKey) {
	need := r.lk.basketHours(group.BasketID, models.ComponentTheory)
	if need == 0 {
		return
	}
	members := sortedMembers(r.lk, group.BasketID)

	placed := 0
	usedDays := make(map[int]bool, r.cfg.Days)
	for _, cell := range r.allCells() {
		if placed >= need {
			break
		}
		if usedDays[cell.Day] {
			continue
		}
		if !groupCellViable(r, group, []Cell{cell}, models.ComponentTheory) {
			continue
		}
		placeGroupRound(r, group, []Cell{cell}, members, models.ComponentTheory)
		usedDays[cell.Day] = true
		placed++
	}
	if placed < need {
		r.rep.warnf("elective basket %s (semester %d): only %d of %d theory rounds placed",
			group.BasketID, group.Semester, placed, need)
	}
	r.rep.count("elective_theory_rounds", placed)
}

// syncGroupLabs mirrors the theory rounds but requires joint cohort and
// teacher availability across both periods of a valid lab block.
func syncGroupLabs(r *run, group GroupKey) {
	need := r.lk.basketHours(group.BasketID, models.ComponentLab)
	if need == 0 {
		return
	}
	members := sortedMembers(r.lk, group.BasketID)

	blocks := need / 2
	placed := 0
	for _, cand := range r.labCandidates() {
		if placed >= blocks {
			break
		}
		cells := []Cell{{cand.Day, cand.Start}, {cand.Day, cand.End}}
		if !groupCellViable(r, group, cells, models.ComponentLab) {
			continue
		}
		placeGroupRound(r, group, cells, members, models.ComponentLab)
		placed++
	}
	if placed < blocks {
		r.rep.warnf("elective basket %s (semester %d): only %d of %d lab blocks placed",
			group.BasketID, group.Semester, placed, blocks)
	}
	r.rep.count("elective_lab_blocks", placed)
}

// groupCellViable checks a candidate for a group round: all cohorts
// free at every cell, no cross-group ownership, and every cohort has at
// least one member subject with remaining hours whose locked teacher is
// free and not pinned to another group.
func groupCellViable(r *run, group GroupKey, cells []Cell, comp models.Component) bool {
	for _, cell := range cells {
		if r.board.OwnedByOtherGroup(cell, group) {
			return false
		}
	}
	for _, cohort := range r.lk.groupCohorts[group] {
		for _, cell := range cells {
			if !r.board.IsCohortFree(cohort.ID, cell) {
				return false
			}
		}
		if eligibleMember(r, group, cohort.ID, cells, comp, nil) == nil {
			return false
		}
	}
	return true
}

// eligibleMember returns the first basket member a cohort can take at
// the candidate cells, or nil. usedTeachers excludes teachers already
// consumed earlier in the same round.
func eligibleMember(r *run, group GroupKey, cohortID string, cells []Cell, comp models.Component, usedTeachers map[string]bool) *models.Subject {
	for _, member := range sortedMembers(r.lk, group.BasketID) {
		key := AssignmentKey{CohortID: cohortID, SubjectID: member.ID, Component: comp}
		if r.remaining[key] < len(cells) {
			continue
		}
		teacherID := r.assigned[key]
		if teacherID == "" || usedTeachers[teacherID] {
			continue
		}
		free := true
		for _, cell := range cells {
			if !r.board.IsTeacherFree(teacherID, cell) || r.board.TeacherLockedByOtherGroup(teacherID, cell, group) {
				free = false
				break
			}
		}
		if free {
			return member
		}
	}
	return nil
}

// placeGroupRound gives each cohort one elective session at the chosen
// cells. Cohorts may pick different alternatives; a cohort with no
// eligible alternative left this round gets a locked placeholder so the
// cell stays reserved for the group.
func placeGroupRound(r *run, group GroupKey, cells []Cell, members []*models.Subject, comp models.Component) {
	used := make(map[string]bool)
	var roundTeachers []string

	for _, cohort := range r.lk.groupCohorts[group] {
		member := eligibleMember(r, group, cohort.ID, cells, comp, used)
		if member == nil {
			for _, cell := range cells {
				if err := r.board.ReserveCohort(cohort.ID, cell); err == nil {
					r.placeholders = append(r.placeholders, placeholderCell{CohortID: cohort.ID, Cell: cell, Group: group})
				}
			}
			continue
		}
		key := AssignmentKey{CohortID: cohort.ID, SubjectID: member.ID, Component: comp}
		teacherID := r.assigned[key]
		ok := true
		for i, cell := range cells {
			err := r.board.TryPlace(Entry{
				CohortID:          cohort.ID,
				SubjectID:         member.ID,
				TeacherID:         teacherID,
				Day:               cell.Day,
				Period:            cell.Period,
				Component:         comp,
				IsLabContinuation: i > 0,
				IsElective:        true,
			})
			if err != nil {
				r.rep.anomalyf("elective placement rejected for cohort %s at %s: %v", cohort.ID, cell, err)
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		if comp == models.ComponentLab {
			r.board.RegisterLabBlock(LabBlock{
				CohortID:  cohort.ID,
				SubjectID: member.ID,
				TeacherID: teacherID,
				Day:       cells[0].Day,
				Start:     cells[0].Period,
				End:       cells[len(cells)-1].Period,
			})
		}
		r.remaining[key] -= len(cells)
		used[teacherID] = true
		roundTeachers = append(roundTeachers, teacherID)
	}

	for _, cell := range cells {
		r.board.ReserveForGroup(cell, group, roundTeachers)
	}
}

// sortedMembers returns the basket's member subjects ordered by id so
// round outcomes are reproducible for a given seed.
func sortedMembers(lk *lookup, basketID string) []*models.Subject {
	members := append([]*models.Subject(nil), lk.basketSubjects[basketID]...)
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
	return members
}
