package models

import "time"

// ElectiveBasket groups mutually exclusive elective subjects offered to
// one semester. Cohorts of that semester attend basket subjects in the
// same weekly slots so students can split across subjects.
type ElectiveBasket struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	SemesterNumber int       `db:"semester_number" json:"semester_number"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// ElectiveBasketFilter captures supported filters for listing baskets.
type ElectiveBasketFilter struct {
	Search         string
	SemesterNumber *int
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}
