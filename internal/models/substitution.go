package models

import "time"

// SubstitutionStatus tracks the lifecycle of a substitution row.
type SubstitutionStatus string

const (
	SubstitutionPending   SubstitutionStatus = "PENDING"
	SubstitutionAssigned  SubstitutionStatus = "ASSIGNED"
	SubstitutionCompleted SubstitutionStatus = "COMPLETED"
	SubstitutionCancelled SubstitutionStatus = "CANCELLED"
)

// TeacherAbsence marks a teacher unavailable on a date, either for the
// whole day or for a comma separated list of periods.
type TeacherAbsence struct {
	ID            string    `db:"id" json:"id"`
	TeacherID     string    `db:"teacher_id" json:"teacher_id"`
	Date          time.Time `db:"date" json:"date"`
	IsFullDay     bool      `db:"is_full_day" json:"is_full_day"`
	AbsentPeriods *string   `db:"absent_periods" json:"absent_periods,omitempty"`
	Reason        *string   `db:"reason" json:"reason,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Substitution overlays a replacement teacher onto one allocation for
// one date. The underlying allocation is never rewritten.
type Substitution struct {
	ID                  string             `db:"id" json:"id"`
	AbsenceID           string             `db:"absence_id" json:"absence_id"`
	AllocationID        string             `db:"allocation_id" json:"allocation_id"`
	Date                time.Time          `db:"date" json:"date"`
	OriginalTeacherID   string             `db:"original_teacher_id" json:"original_teacher_id"`
	SubstituteTeacherID *string            `db:"substitute_teacher_id" json:"substitute_teacher_id,omitempty"`
	Score               *float64           `db:"score" json:"score,omitempty"`
	Status              SubstitutionStatus `db:"status" json:"status"`
	Note                *string            `db:"note" json:"note,omitempty"`
	CreatedAt           time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time          `db:"updated_at" json:"updated_at"`
}

// SubstitutionFilter captures supported filters for listing substitutions.
type SubstitutionFilter struct {
	TeacherID string
	Status    string
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
