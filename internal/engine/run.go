package engine

import (
	"math/rand"
)

// placeholderCell is an elective cell reserved for a cohort that could
// not receive a session this round; it surfaces as an explicit free
// period so the cell can never be double-booked later.
type placeholderCell struct {
	CohortID string
	Cell     Cell
	Group    GroupKey
}

// run bundles the mutable state threaded through the phases of one
// generation call. It is never shared across goroutines.
type run struct {
	cfg   Config
	lk    *lookup
	board *Board
	rng   *rand.Rand
	rep   *Report

	// assigned is the locked teacher mapping produced by phase 1.
	assigned map[AssignmentKey]string
	// remaining tracks unplaced weekly hours per teaching unit.
	remaining map[AssignmentKey]int

	placeholders []placeholderCell
}

func (r *run) teacherFor(key AssignmentKey) string {
	return r.assigned[key]
}

// allCells returns every grid cell in a deterministic shuffled order
// drawn from the run's random source.
func (r *run) allCells() []Cell {
	cells := make([]Cell, 0, r.cfg.Capacity())
	for d := 0; d < r.cfg.Days; d++ {
		for p := 0; p < r.cfg.PeriodsPerDay; p++ {
			cells = append(cells, Cell{Day: d, Period: p})
		}
	}
	r.rng.Shuffle(len(cells), func(i, j int) {
		cells[i], cells[j] = cells[j], cells[i]
	})
	return cells
}

// blockCandidate is one (day, valid lab block) placement option.
type blockCandidate struct {
	Day   int
	Start int
	End   int
}

// labCandidates returns every (day, valid block) pair shuffled.
func (r *run) labCandidates() []blockCandidate {
	out := make([]blockCandidate, 0, r.cfg.Days*len(r.cfg.LabBlocks))
	for d := 0; d < r.cfg.Days; d++ {
		for _, blk := range r.cfg.LabBlocks {
			out = append(out, blockCandidate{Day: d, Start: blk[0], End: blk[1]})
		}
	}
	r.rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
