package models

import "time"

// Allocation is one cell of a cohort's weekly grid. Free periods are
// stored explicitly with a nil subject so consumers never have to infer
// gaps.
type Allocation struct {
	ID                string    `db:"id" json:"id"`
	CohortID          string    `db:"cohort_id" json:"cohort_id"`
	SubjectID         *string   `db:"subject_id" json:"subject_id,omitempty"`
	TeacherID         *string   `db:"teacher_id" json:"teacher_id,omitempty"`
	RoomID            *string   `db:"room_id" json:"room_id,omitempty"`
	Day               int       `db:"day" json:"day"`
	Period            int       `db:"period" json:"period"`
	Component         Component `db:"component" json:"component"`
	IsLabContinuation bool      `db:"is_lab_continuation" json:"is_lab_continuation"`
	IsElective        bool      `db:"is_elective" json:"is_elective"`
	IsFixed           bool      `db:"is_fixed" json:"is_fixed"`
	IsFree            bool      `db:"is_free" json:"is_free"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// AllocationFilter captures supported filters for listing allocations.
type AllocationFilter struct {
	CohortID  string
	TeacherID string
	RoomID    string
	SubjectID string
	Day       *int
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// GenerationRun records one invocation of the generator: its seed, the
// outcome, and any warnings the phases emitted.
type GenerationRun struct {
	ID          string    `db:"id" json:"id"`
	Status      string    `db:"status" json:"status"`
	Seed        int64     `db:"seed" json:"seed"`
	Warnings    string    `db:"warnings" json:"warnings"`
	Allocations int       `db:"allocations" json:"allocations"`
	FreeSlots   int       `db:"free_slots" json:"free_slots"`
	GeneratedAt time.Time `db:"generated_at" json:"generated_at"`
}

// Generation run status values.
const (
	GenerationCompleted = "COMPLETED"
	GenerationDegraded  = "DEGRADED"
	GenerationFailed    = "FAILED"
)
