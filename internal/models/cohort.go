package models

import "time"

// Cohort represents a group of students that moves through the week as
// a unit and owns one timetable grid.
type Cohort struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	SemesterNumber int       `db:"semester_number" json:"semester_number"`
	StudentCount   int       `db:"student_count" json:"student_count"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// CohortFilter captures supported filters for listing cohorts.
type CohortFilter struct {
	Search         string
	SemesterNumber *int
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}
