package engine

import "github.com/nav-in27/timetable-generator/internal/models"

// validateCapacity compares each cohort's required weekly periods with
// the grid capacity and records the outcome on the report. Elective
// baskets count once per basket, not once per alternative subject.
// Over-capacity demand is a warning; a deficit just means free periods
// and lands in the informational notes. The phase never aborts a run.
func validateCapacity(lk *lookup, cohorts []*models.Cohort, cfg Config, rep *Report) map[string]int {
	capacity := cfg.Capacity()
	required := make(map[string]int, len(cohorts))

	for _, cohort := range cohorts {
		total := 0
		baskets := make(map[string]bool)
		for _, s := range lk.cohortSubjects[cohort.ID] {
			if s.IsElective {
				if s.BasketID != nil {
					baskets[*s.BasketID] = true
				}
				continue
			}
			total += s.TotalHours()
		}
		for basketID := range baskets {
			total += lk.basketHours(basketID, models.ComponentTheory)
			total += lk.basketHours(basketID, models.ComponentLab)
		}

		switch {
		case total > capacity:
			rep.warnf("cohort %s requires %d periods but the week holds %d; %d lowest-priority periods will be dropped",
				cohort.Name, total, capacity, total-capacity)
			total = capacity
		case total < capacity:
			rep.notef("cohort %s requires %d of %d periods; %d will be free",
				cohort.Name, total, capacity, capacity-total)
		}
		required[cohort.ID] = total
	}
	return required
}
