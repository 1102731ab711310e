package engine

import (
	"fmt"

	"github.com/nav-in27/timetable-generator/internal/models"
)

// LockCheck is the outcome of a dry-run validation of one manual lock.
type LockCheck struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// ValidateLock dry-runs a manual slot lock against the snapshot and the
// already existing locks. It has no side effects; a human uses the
// returned errors and warnings to decide whether to persist the lock.
func (e *Engine) ValidateLock(snap Snapshot, lock models.FixedSlot) LockCheck {
	check := LockCheck{IsValid: true}
	fail := func(format string, args ...any) {
		check.IsValid = false
		check.Errors = append(check.Errors, fmt.Sprintf(format, args...))
	}
	warn := func(format string, args ...any) {
		check.Warnings = append(check.Warnings, fmt.Sprintf(format, args...))
	}

	if lock.Day < 0 || lock.Day >= e.cfg.Days || lock.Period < 0 || lock.Period >= e.cfg.PeriodsPerDay {
		fail("cell d%d/p%d is outside the %dx%d grid", lock.Day, lock.Period, e.cfg.Days, e.cfg.PeriodsPerDay)
	}

	lk := buildLookup(&snap)
	cohort := lk.cohortByID[lock.CohortID]
	if cohort == nil {
		fail("unknown cohort %s", lock.CohortID)
	}
	subject := lk.subjectByID[lock.SubjectID]
	if subject == nil {
		fail("unknown subject %s", lock.SubjectID)
	}
	if cohort != nil && subject != nil && subject.SemesterNumber != cohort.SemesterNumber {
		fail("subject %s belongs to semester %d, cohort %s is semester %d",
			subject.Code, subject.SemesterNumber, cohort.Name, cohort.SemesterNumber)
	}
	if subject != nil && subject.WeeklyHours(lock.Component) == 0 {
		fail("subject %s has no %s hours", subject.Code, lock.Component)
	}
	if subject != nil && subject.IsElective {
		warn("subject %s is elective; fixing it outside its basket slots may desynchronize sibling cohorts", subject.Code)
	}

	if lock.TeacherID != nil {
		teacher := lk.teacherByID[*lock.TeacherID]
		switch {
		case teacher == nil:
			fail("unknown teacher %s", *lock.TeacherID)
		case !teacher.Active:
			fail("teacher %s is inactive", teacher.FullName)
		case !lk.canTeach(teacher.ID, lock.SubjectID):
			fail("teacher %s holds no capability for subject %s", teacher.FullName, lock.SubjectID)
		case !lk.teacherDays[teacher.ID][lock.Day]:
			warn("teacher %s is normally unavailable on day %d", teacher.FullName, lock.Day)
		}
	}

	if lock.Component == models.ComponentLab {
		validStart := false
		for _, blk := range e.cfg.LabBlocks {
			if lock.Period == blk[0] {
				validStart = true
				break
			}
		}
		if !validStart {
			fail("period %d is not a valid lab block start", lock.Period)
		}
	}

	for _, fs := range snap.FixedSlots {
		if fs.ID == lock.ID || fs.Day != lock.Day || fs.Period != lock.Period {
			continue
		}
		if fs.CohortID == lock.CohortID {
			fail("cohort cell d%d/p%d already locked by fixed slot %s", lock.Day, lock.Period, fs.ID)
		}
		if lock.TeacherID != nil && fs.TeacherID != nil && *fs.TeacherID == *lock.TeacherID {
			fail("teacher already locked elsewhere at d%d/p%d by fixed slot %s", lock.Day, lock.Period, fs.ID)
		}
		if lock.RoomID != nil && fs.RoomID != nil && *fs.RoomID == *lock.RoomID {
			fail("room already locked at d%d/p%d by fixed slot %s", lock.Day, lock.Period, fs.ID)
		}
	}

	return check
}
