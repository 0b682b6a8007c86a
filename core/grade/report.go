package grade

// filterStudents keeps the reports of the given students, in their current order.
func filterStudents[T any](reports []T, studentIDs []string, idOf func(T) string) []T {
	wanted := make(map[string]struct{}, len(studentIDs))
	for _, id := range studentIDs {
		wanted[id] = struct{}{}
	}
	filtered := make([]T, 0, len(studentIDs))
	for _, r := range reports {
		if _, ok := wanted[idOf(r)]; ok {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// periodsPresent returns the distinct periods of records, in order of first appearance.
func periodsPresent(records []Record) []Period {
	var periods []Period
	seen := make(map[Period]struct{})
	for _, rec := range records {
		if _, ok := seen[rec.Period]; !ok {
			seen[rec.Period] = struct{}{}
			periods = append(periods, rec.Period)
		}
	}
	return periods
}
