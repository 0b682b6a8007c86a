package grade

import "github.com/volatiletech/null/v8"

// Stats summarizes a list of grades.
// Passes + Fails == TotalStudents - Incompletes.
type Stats struct {
	Incompletes   int     `json:"incompletes"`
	Passes        int     `json:"passes"`
	Fails         int     `json:"fails"`
	Average       float64 `json:"average"`
	TotalStudents int     `json:"totalStudents"`
}

// ComputeStats counts incomplete, passing and failing grades and averages the valid ones.
// A grade is valid when it is set and not NaN; the average of no valid grades is 0.
func ComputeStats(grades []null.Float64) Stats {
	var (
		valid, passes int
		sum           float64
	)
	for _, g := range grades {
		if !isValidGrade(g) {
			continue
		}
		valid++
		sum += g.Float64
		if g.Float64 >= PassMark {
			passes++
		}
	}

	stats := Stats{
		Incompletes:   len(grades) - valid,
		Passes:        passes,
		Fails:         valid - passes,
		TotalStudents: len(grades),
	}
	if valid > 0 {
		stats.Average = Round1(sum / float64(valid))
	}
	return stats
}
