package models

import "time"

// FixedSlot pins a subject (and optionally a teacher and room) to a
// specific cell of a cohort's grid before generation runs.
type FixedSlot struct {
	ID        string    `db:"id" json:"id"`
	CohortID  string    `db:"cohort_id" json:"cohort_id"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	TeacherID *string   `db:"teacher_id" json:"teacher_id,omitempty"`
	RoomID    *string   `db:"room_id" json:"room_id,omitempty"`
	Component Component `db:"component" json:"component"`
	Day       int       `db:"day" json:"day"`
	Period    int       `db:"period" json:"period"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// FixedSlotFilter captures supported filters for listing fixed slots.
type FixedSlotFilter struct {
	CohortID  string
	SubjectID string
	TeacherID string
	Day       *int
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
