package models

import "time"

// Component identifies a teaching component of a subject.
type Component string

const (
	ComponentTheory   Component = "theory"
	ComponentLab      Component = "lab"
	ComponentTutorial Component = "tutorial"
)

// Subject represents a course offered in a semester, split into weekly
// hour requirements per component.
type Subject struct {
	ID             string    `db:"id" json:"id"`
	Code           string    `db:"code" json:"code"`
	Name           string    `db:"name" json:"name"`
	SemesterNumber int       `db:"semester_number" json:"semester_number"`
	TheoryHours    int       `db:"theory_hours" json:"theory_hours"`
	LabHours       int       `db:"lab_hours" json:"lab_hours"`
	TutorialHours  int       `db:"tutorial_hours" json:"tutorial_hours"`
	IsElective     bool      `db:"is_elective" json:"is_elective"`
	BasketID       *string   `db:"basket_id" json:"basket_id,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// WeeklyHours returns the weekly hour requirement for a component.
func (s Subject) WeeklyHours(c Component) int {
	switch c {
	case ComponentTheory:
		return s.TheoryHours
	case ComponentLab:
		return s.LabHours
	case ComponentTutorial:
		return s.TutorialHours
	}
	return 0
}

// TotalHours returns the combined weekly hour requirement.
func (s Subject) TotalHours() int {
	return s.TheoryHours + s.LabHours + s.TutorialHours
}

// SubjectFilter captures supported filters for listing subjects.
type SubjectFilter struct {
	Search         string
	SemesterNumber *int
	IsElective     *bool
	BasketID       string
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}
