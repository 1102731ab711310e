package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nav-in27/timetable-generator/internal/models"
)

// Config carries the grid geometry and search knobs for one run.
type Config struct {
	Days          int
	PeriodsPerDay int
	// LabBlocks are the only period pairs a two-period lab may occupy,
	// expressed as zero-based (start, start+1) pairs.
	LabBlocks [][2]int
	// OverflowRatio is the fraction above a teacher's weekly max the
	// locker tolerates before falling back to least-loaded selection.
	OverflowRatio float64
	Seed          int64
}

// DefaultConfig returns the standard 5x7 grid with post-lunch lab blocks.
func DefaultConfig() Config {
	return Config{
		Days:          5,
		PeriodsPerDay: 7,
		LabBlocks:     [][2]int{{3, 4}, {5, 6}},
		OverflowRatio: 0.2,
		Seed:          42,
	}
}

// Capacity returns the number of cells in one cohort's weekly grid.
func (c Config) Capacity() int {
	return c.Days * c.PeriodsPerDay
}

// Cell addresses one position of the weekly grid.
type Cell struct {
	Day    int
	Period int
}

func (c Cell) String() string {
	return fmt.Sprintf("d%d/p%d", c.Day, c.Period)
}

// GroupKey identifies one elective scheduling group. Distinct baskets
// sharing a semester form distinct groups and never share reserved cells.
type GroupKey struct {
	Semester int
	BasketID string
}

// Entry is one placement handed to the board. Engine output rows are
// derived from the accepted entries plus free-period markers.
type Entry struct {
	CohortID          string
	SubjectID         string
	TeacherID         string
	RoomID            string
	Day               int
	Period            int
	Component         models.Component
	IsLabContinuation bool
	IsElective        bool
	IsFixed           bool
}

// Snapshot is the read-only input data for one generation run, loaded
// up front so no phase ever touches storage.
type Snapshot struct {
	Teachers     []models.Teacher
	Subjects     []models.Subject
	Cohorts      []models.Cohort
	Rooms        []models.Room
	Baskets      []models.ElectiveBasket
	Capabilities []models.TeacherSubject
	// Assignments are pre-existing manual teacher locks, never altered.
	Assignments []models.ComponentAssignment
	FixedSlots  []models.FixedSlot
}

// AssignmentKey identifies one (cohort, subject, component) teaching unit.
type AssignmentKey struct {
	CohortID  string
	SubjectID string
	Component models.Component
}

// lookup holds the relationship tables built once per run from the
// snapshot, replacing any live traversal during search.
type lookup struct {
	teacherByID     map[string]*models.Teacher
	subjectByID     map[string]*models.Subject
	roomByID        map[string]*models.Room
	cohortByID      map[string]*models.Cohort
	subjectTeachers map[string][]string            // subject id -> qualified teacher ids
	capability      map[string]map[string]float64  // teacher id -> subject id -> effectiveness
	cohortSubjects  map[string][]*models.Subject   // cohort id -> its semester's subjects
	basketSubjects  map[string][]*models.Subject   // basket id -> member subjects
	groupCohorts    map[GroupKey][]*models.Cohort  // elective group -> participating cohorts
	teacherDays     map[string]map[int]bool        // teacher id -> available weekday set
	manualAssignments map[AssignmentKey]string     // pre-existing locks, honored verbatim
}

func buildLookup(snap *Snapshot) *lookup {
	lk := &lookup{
		teacherByID:     make(map[string]*models.Teacher, len(snap.Teachers)),
		subjectByID:     make(map[string]*models.Subject, len(snap.Subjects)),
		roomByID:        make(map[string]*models.Room, len(snap.Rooms)),
		cohortByID:      make(map[string]*models.Cohort, len(snap.Cohorts)),
		subjectTeachers: make(map[string][]string),
		capability:      make(map[string]map[string]float64),
		cohortSubjects:  make(map[string][]*models.Subject),
		basketSubjects:  make(map[string][]*models.Subject),
		groupCohorts:    make(map[GroupKey][]*models.Cohort),
		teacherDays:     make(map[string]map[int]bool),
		manualAssignments: make(map[AssignmentKey]string),
	}
	for _, a := range snap.Assignments {
		key := AssignmentKey{CohortID: a.CohortID, SubjectID: a.SubjectID, Component: a.Component}
		lk.manualAssignments[key] = a.TeacherID
	}
	for i := range snap.Teachers {
		t := &snap.Teachers[i]
		lk.teacherByID[t.ID] = t
		lk.teacherDays[t.ID] = parseAvailableDays(t.AvailableDays)
	}
	for i := range snap.Subjects {
		s := &snap.Subjects[i]
		lk.subjectByID[s.ID] = s
		if s.BasketID != nil {
			lk.basketSubjects[*s.BasketID] = append(lk.basketSubjects[*s.BasketID], s)
		}
	}
	for i := range snap.Rooms {
		lk.roomByID[snap.Rooms[i].ID] = &snap.Rooms[i]
	}
	for _, cap := range snap.Capabilities {
		t := lk.teacherByID[cap.TeacherID]
		if t == nil || !t.Active {
			continue
		}
		lk.subjectTeachers[cap.SubjectID] = append(lk.subjectTeachers[cap.SubjectID], cap.TeacherID)
		if lk.capability[cap.TeacherID] == nil {
			lk.capability[cap.TeacherID] = make(map[string]float64)
		}
		lk.capability[cap.TeacherID][cap.SubjectID] = cap.EffectivenessScore
	}
	for i := range snap.Cohorts {
		c := &snap.Cohorts[i]
		lk.cohortByID[c.ID] = c
		for j := range snap.Subjects {
			if snap.Subjects[j].SemesterNumber == c.SemesterNumber {
				lk.cohortSubjects[c.ID] = append(lk.cohortSubjects[c.ID], &snap.Subjects[j])
			}
		}
	}
	for i := range snap.Baskets {
		b := &snap.Baskets[i]
		key := GroupKey{Semester: b.SemesterNumber, BasketID: b.ID}
		for j := range snap.Cohorts {
			if snap.Cohorts[j].SemesterNumber == b.SemesterNumber {
				lk.groupCohorts[key] = append(lk.groupCohorts[key], &snap.Cohorts[j])
			}
		}
	}
	return lk
}

// canTeach reports whether the teacher holds a declared capability for
// the subject.
func (lk *lookup) canTeach(teacherID, subjectID string) bool {
	caps, ok := lk.capability[teacherID]
	if !ok {
		return false
	}
	_, ok = caps[subjectID]
	return ok
}

// effectiveness returns the declared effectiveness score, zero when the
// teacher has no capability row for the subject.
func (lk *lookup) effectiveness(teacherID, subjectID string) float64 {
	return lk.capability[teacherID][subjectID]
}

// basketHours returns the basket's weekly requirement for a component,
// taken as the largest requirement among member subjects.
func (lk *lookup) basketHours(basketID string, comp models.Component) int {
	hours := 0
	for _, s := range lk.basketSubjects[basketID] {
		if h := s.WeeklyHours(comp); h > hours {
			hours = h
		}
	}
	return hours
}

func parseAvailableDays(raw string) map[int]bool {
	days := make(map[int]bool)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if d, err := strconv.Atoi(part); err == nil {
			days[d] = true
		}
	}
	return days
}
