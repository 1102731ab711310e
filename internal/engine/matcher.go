package engine

import "sort"

// MatchWeights are the scoring weights of the substitution matcher.
type MatchWeights struct {
	SubjectMatch  float64
	LoadBalance   float64
	Effectiveness float64
	Experience    float64
}

// DefaultMatchWeights returns the standard weighting.
func DefaultMatchWeights() MatchWeights {
	return MatchWeights{SubjectMatch: 0.4, LoadBalance: 0.3, Effectiveness: 0.2, Experience: 0.1}
}

// SubstituteContext describes one affected session and the live state
// the caller resolved from storage: weekly loads, slot occupancy from
// allocations plus already assigned substitutions, and same-date
// absences.
type SubstituteContext struct {
	SubjectID        string
	Day              int
	Period           int
	ExcludeTeacherID string
	Loads            map[string]int
	Busy             map[string]bool
	Absent           map[string]bool
}

// SubstituteCandidate is one ranked replacement option.
type SubstituteCandidate struct {
	TeacherID string  `json:"teacher_id"`
	Name      string  `json:"name"`
	Score     float64 `json:"score"`
	Qualified bool    `json:"qualified"`
}

// RankSubstitutes filters the snapshot's teachers down to eligible
// replacements for one session and scores them. The result is ordered
// best-first; an empty slice means no candidate passed every filter.
func (e *Engine) RankSubstitutes(snap Snapshot, ctx SubstituteContext, w MatchWeights) []SubstituteCandidate {
	lk := buildLookup(&snap)

	maxLoad := 0
	for _, load := range ctx.Loads {
		if load > maxLoad {
			maxLoad = load
		}
	}

	var out []SubstituteCandidate
	for i := range snap.Teachers {
		t := &snap.Teachers[i]
		if t.ID == ctx.ExcludeTeacherID || !t.Active {
			continue
		}
		if !lk.teacherDays[t.ID][ctx.Day] {
			continue
		}
		if ctx.Busy[t.ID] || ctx.Absent[t.ID] {
			continue
		}
		if ctx.Loads[t.ID] >= t.MaxHoursPerWeek {
			continue
		}

		qualified := lk.canTeach(t.ID, ctx.SubjectID)
		subjectMatch := 0.0
		if qualified {
			subjectMatch = 1.0
		}
		loadScore := 1.0
		if maxLoad > 0 {
			loadScore = 1.0 - float64(ctx.Loads[t.ID])/float64(maxLoad)
		}
		score := w.SubjectMatch*subjectMatch +
			w.LoadBalance*loadScore +
			w.Effectiveness*lk.effectiveness(t.ID, ctx.SubjectID) +
			w.Experience*t.ExperienceScore

		out = append(out, SubstituteCandidate{
			TeacherID: t.ID,
			Name:      t.FullName,
			Score:     score,
			Qualified: qualified,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].TeacherID < out[j].TeacherID
	})
	return out
}
