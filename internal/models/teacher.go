package models

import "time"

// Teacher represents an instructor record.
type Teacher struct {
	ID              string    `db:"id" json:"id"`
	Email           string    `db:"email" json:"email"`
	FullName        string    `db:"full_name" json:"full_name"`
	Phone           *string   `db:"phone" json:"phone,omitempty"`
	MaxHoursPerWeek int       `db:"max_hours_per_week" json:"max_hours_per_week"`
	MaxConsecutive  int       `db:"max_consecutive" json:"max_consecutive"`
	ExperienceScore float64   `db:"experience_score" json:"experience_score"`
	AvailableDays   string    `db:"available_days" json:"available_days"`
	Active          bool      `db:"active" json:"active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// TeacherSubject links a teacher to a subject they can teach, with an
// effectiveness score used by the substitution matcher.
type TeacherSubject struct {
	ID                 string    `db:"id" json:"id"`
	TeacherID          string    `db:"teacher_id" json:"teacher_id"`
	SubjectID          string    `db:"subject_id" json:"subject_id"`
	EffectivenessScore float64   `db:"effectiveness_score" json:"effectiveness_score"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}

// TeacherFilter captures filtering options for listing teachers.
type TeacherFilter struct {
	Search    string
	Active    *bool
	SubjectID string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
