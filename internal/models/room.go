package models

import "time"

// RoomType classifies a room for placement purposes.
type RoomType string

const (
	RoomLecture RoomType = "lecture"
	RoomLab     RoomType = "lab"
	RoomSeminar RoomType = "seminar"
)

// Room represents a physical room that can host at most one cohort per slot.
type Room struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Capacity  int       `db:"capacity" json:"capacity"`
	Type      RoomType  `db:"type" json:"type"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// RoomFilter captures supported filters for listing rooms.
type RoomFilter struct {
	Search    string
	Type      string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
