package engine

import "fmt"

// CohortSummary reports the hour balance of one cohort after a run.
type CohortSummary struct {
	CohortID    string `json:"cohort_id"`
	CohortName  string `json:"cohort_name"`
	Required    int    `json:"required"`
	Scheduled   int    `json:"scheduled"`
	FreePeriods int    `json:"free_periods"`
	Deficit     int    `json:"deficit"`
}

// Report aggregates diagnostics from every phase of a run. Notes are
// informational and expected on any sparse grid; warnings are outcomes
// of a degraded schedule; anomalies indicate a logic defect and should
// never appear.
type Report struct {
	Success          bool            `json:"success"`
	Message          string          `json:"message"`
	TotalAllocations int             `json:"total_allocations"`
	FreePeriods     int             `json:"free_periods"`
	PhaseCounts     map[string]int  `json:"phase_counts"`
	Cohorts         []CohortSummary `json:"cohorts"`
	Notes           []string        `json:"notes"`
	Warnings        []string        `json:"warnings"`
	Anomalies       []string        `json:"anomalies"`
}

func newReport() *Report {
	return &Report{
		Success:     true,
		PhaseCounts: make(map[string]int),
	}
}

func (r *Report) notef(format string, args ...any) {
	r.Notes = append(r.Notes, fmt.Sprintf(format, args...))
}

func (r *Report) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *Report) anomalyf(format string, args ...any) {
	r.Anomalies = append(r.Anomalies, fmt.Sprintf(format, args...))
}

func (r *Report) count(phase string, n int) {
	r.PhaseCounts[phase] += n
}
