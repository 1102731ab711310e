package engine

import "fmt"

// occKey addresses one occupant (teacher, room or cohort) at one cell.
type occKey struct {
	id   string
	cell Cell
}

// dailyKey counts same-day repeats of a subject for one cohort.
type dailyKey struct {
	cohortID  string
	day       int
	subjectID string
}

// LabBlock records an atomically placed two-period lab so later passes
// can treat both halves as one unit.
type LabBlock struct {
	CohortID  string
	SubjectID string
	TeacherID string
	RoomID    string
	Day       int
	Start     int
	End       int
}

// Board tracks all occupancy produced so far in one generation run. It
// is owned by exactly one run and is never shared across goroutines.
type Board struct {
	cfg Config

	teacherBusy map[occKey]bool
	roomBusy    map[occKey]bool
	cohortBusy  map[occKey]bool
	dailyCount  map[dailyKey]int

	labBlocks map[occKey]LabBlock // keyed by (cohort, start cell)

	// groupOwner locks a cell to one elective group; teacherLocks pins
	// the teachers used by that group at that cell.
	groupOwner   map[Cell]GroupKey
	teacherLocks map[occKey]GroupKey

	fixedCells map[occKey]bool // cohort-scoped cells locked before generation

	entries []Entry
}

// NewBoard returns an empty board for the given grid.
func NewBoard(cfg Config) *Board {
	return &Board{
		cfg:          cfg,
		teacherBusy:  make(map[occKey]bool),
		roomBusy:     make(map[occKey]bool),
		cohortBusy:   make(map[occKey]bool),
		dailyCount:   make(map[dailyKey]int),
		labBlocks:    make(map[occKey]LabBlock),
		groupOwner:   make(map[Cell]GroupKey),
		teacherLocks: make(map[occKey]GroupKey),
		fixedCells:   make(map[occKey]bool),
	}
}

// TryPlace atomically validates and records one entry. On any collision
// it returns an error and mutates nothing; duplicate-cell attempts are
// caller bugs and are always rejected, never merged.
func (b *Board) TryPlace(e Entry) error {
	cell := Cell{Day: e.Day, Period: e.Period}
	if e.Day < 0 || e.Day >= b.cfg.Days || e.Period < 0 || e.Period >= b.cfg.PeriodsPerDay {
		return fmt.Errorf("cell %s outside the %dx%d grid", cell, b.cfg.Days, b.cfg.PeriodsPerDay)
	}
	if b.cohortBusy[occKey{e.CohortID, cell}] {
		return fmt.Errorf("cohort %s already occupied at %s", e.CohortID, cell)
	}
	if e.TeacherID != "" && b.teacherBusy[occKey{e.TeacherID, cell}] {
		return fmt.Errorf("teacher %s already occupied at %s", e.TeacherID, cell)
	}
	if e.RoomID != "" && b.roomBusy[occKey{e.RoomID, cell}] {
		return fmt.Errorf("room %s already occupied at %s", e.RoomID, cell)
	}

	b.cohortBusy[occKey{e.CohortID, cell}] = true
	if e.TeacherID != "" {
		b.teacherBusy[occKey{e.TeacherID, cell}] = true
	}
	if e.RoomID != "" {
		b.roomBusy[occKey{e.RoomID, cell}] = true
	}
	if e.SubjectID != "" {
		b.dailyCount[dailyKey{e.CohortID, e.Day, e.SubjectID}]++
	}
	if e.IsFixed {
		b.fixedCells[occKey{e.CohortID, cell}] = true
	}
	b.entries = append(b.entries, e)
	return nil
}

// ReserveCohort occupies a cohort cell without a session, used for
// elective placeholder locks so later phases cannot reuse the cell.
func (b *Board) ReserveCohort(cohortID string, cell Cell) error {
	key := occKey{cohortID, cell}
	if b.cohortBusy[key] {
		return fmt.Errorf("cohort %s already occupied at %s", cohortID, cell)
	}
	b.cohortBusy[key] = true
	return nil
}

// IsTeacherFree reports whether the teacher has no entry at the cell.
func (b *Board) IsTeacherFree(teacherID string, cell Cell) bool {
	return !b.teacherBusy[occKey{teacherID, cell}]
}

// IsRoomFree reports whether the room has no entry at the cell.
func (b *Board) IsRoomFree(roomID string, cell Cell) bool {
	return !b.roomBusy[occKey{roomID, cell}]
}

// IsCohortFree reports whether the cohort's cell is open.
func (b *Board) IsCohortFree(cohortID string, cell Cell) bool {
	return !b.cohortBusy[occKey{cohortID, cell}]
}

// IsFixedCell reports whether the cohort's cell was locked before
// generation; such cells are never read as open by any phase.
func (b *Board) IsFixedCell(cohortID string, cell Cell) bool {
	return b.fixedCells[occKey{cohortID, cell}]
}

// DailyCount returns how many times the subject already occurs for the
// cohort on the day.
func (b *Board) DailyCount(cohortID string, day int, subjectID string) int {
	return b.dailyCount[dailyKey{cohortID, day, subjectID}]
}

// RegisterLabBlock records a placed two-period lab under its start cell.
func (b *Board) RegisterLabBlock(blk LabBlock) {
	b.labBlocks[occKey{blk.CohortID, Cell{blk.Day, blk.Start}}] = blk
}

// LabBlockAt returns the block starting at the cohort's cell, if any.
func (b *Board) LabBlockAt(cohortID string, cell Cell) (LabBlock, bool) {
	blk, ok := b.labBlocks[occKey{cohortID, cell}]
	return blk, ok
}

// ReserveForGroup locks a cell and the teachers used this round to one
// elective group. Re-reserving by the same group is a no-op.
func (b *Board) ReserveForGroup(cell Cell, group GroupKey, teacherIDs []string) {
	b.groupOwner[cell] = group
	for _, id := range teacherIDs {
		b.teacherLocks[occKey{id, cell}] = group
	}
}

// OwnedByOtherGroup reports whether a different elective group already
// reserved the cell.
func (b *Board) OwnedByOtherGroup(cell Cell, group GroupKey) bool {
	owner, ok := b.groupOwner[cell]
	return ok && owner != group
}

// TeacherLockedByOtherGroup reports whether the teacher is pinned to a
// different elective group at the cell.
func (b *Board) TeacherLockedByOtherGroup(teacherID string, cell Cell, group GroupKey) bool {
	owner, ok := b.teacherLocks[occKey{teacherID, cell}]
	return ok && owner != group
}

// Entries returns all accepted placements in insertion order.
func (b *Board) Entries() []Entry {
	return b.entries
}
