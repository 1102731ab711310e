package engine

import (
	"sort"

	"github.com/nav-in27/timetable-generator/internal/models"
)

// lockAssignments fixes exactly one teacher per (cohort, subject,
// component) before any slot is placed. Pre-existing manual rows are
// honored verbatim; everything else is chosen by lowest projected
// weekly load, ties broken by effectiveness then teacher id so re-runs
// against unchanged inputs reproduce the same mapping.
func lockAssignments(lk *lookup, cohorts []*models.Cohort, cfg Config, rep *Report) map[AssignmentKey]string {
	assigned := make(map[AssignmentKey]string)
	projected := make(map[string]int)

	// Manual locks seed both the mapping and the load projection.
	for key, teacherID := range assignedSeed(lk, rep) {
		assigned[key] = teacherID
		if s := lk.subjectByID[key.SubjectID]; s != nil {
			projected[teacherID] += s.WeeklyHours(key.Component)
		}
	}

	components := []models.Component{models.ComponentTheory, models.ComponentLab, models.ComponentTutorial}
	for _, cohort := range cohorts {
		for _, subject := range lk.cohortSubjects[cohort.ID] {
			for _, comp := range components {
				hours := subject.WeeklyHours(comp)
				if hours == 0 {
					continue
				}
				key := AssignmentKey{CohortID: cohort.ID, SubjectID: subject.ID, Component: comp}
				if _, ok := assigned[key]; ok {
					continue
				}
				teacherID := pickTeacher(lk, subject.ID, hours, projected, cfg, rep, cohort.Name, subject.Code)
				if teacherID == "" {
					continue
				}
				assigned[key] = teacherID
				projected[teacherID] += hours
			}
		}
	}
	rep.count("assignments_locked", len(assigned))
	return assigned
}

// assignedSeed converts pre-existing manual assignment rows into the
// lock map, dropping rows that reference unknown entities.
func assignedSeed(lk *lookup, rep *Report) map[AssignmentKey]string {
	seed := make(map[AssignmentKey]string)
	for key, teacherID := range lk.manualAssignments {
		if lk.teacherByID[teacherID] == nil {
			rep.warnf("manual assignment for subject %s names unknown teacher %s; ignored", key.SubjectID, teacherID)
			continue
		}
		seed[key] = teacherID
	}
	return seed
}

// pickTeacher scores qualified candidates by ascending projected load,
// tie-broken by descending effectiveness and experience. When every
// candidate would exceed the overflow allowance the least loaded one is
// taken anyway, with a warning, rather than failing the requirement.
func pickTeacher(lk *lookup, subjectID string, hours int, projected map[string]int, cfg Config, rep *Report, cohortName, subjectCode string) string {
	candidates := append([]string(nil), lk.subjectTeachers[subjectID]...)
	if len(candidates) == 0 {
		rep.warnf("no qualified teacher for %s in cohort %s; requirement left unassigned", subjectCode, cohortName)
		return ""
	}

	sort.Slice(candidates, func(i, j int) bool {
		ti, tj := candidates[i], candidates[j]
		if projected[ti] != projected[tj] {
			return projected[ti] < projected[tj]
		}
		ei := lk.effectiveness(ti, subjectID) + lk.teacherByID[ti].ExperienceScore
		ej := lk.effectiveness(tj, subjectID) + lk.teacherByID[tj].ExperienceScore
		if ei != ej {
			return ei > ej
		}
		return ti < tj
	})

	for _, id := range candidates {
		limit := float64(lk.teacherByID[id].MaxHoursPerWeek) * (1 + cfg.OverflowRatio)
		if float64(projected[id]+hours) <= limit {
			return id
		}
	}

	winner := candidates[0]
	rep.warnf("all qualified teachers for %s exceed their load allowance; assigning least-loaded %s",
		subjectCode, lk.teacherByID[winner].FullName)
	return winner
}
