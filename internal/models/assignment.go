package models

import "time"

// ComponentAssignment locks one teacher to one (cohort, subject,
// component) for the duration of a generated week.
type ComponentAssignment struct {
	ID        string    `db:"id" json:"id"`
	CohortID  string    `db:"cohort_id" json:"cohort_id"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	Component Component `db:"component" json:"component"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ComponentAssignmentFilter captures supported filters for listing
// component assignments.
type ComponentAssignmentFilter struct {
	CohortID  string
	SubjectID string
	TeacherID string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
