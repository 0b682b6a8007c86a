package grade

import "sort"

// RankInput is an (id, average) pair to be ranked.
type RankInput struct {
	ID      string
	Average float64
}

// RankedEntity is a RankInput with its rank attached.
type RankedEntity struct {
	ID             string  `json:"id"`
	Average        float64 `json:"average"`
	RoundedAverage float64 `json:"roundedAverage"`
	Rank           int     `json:"rank"`
}

// ComputeRanks ranks entries by their average rounded to one decimal, highest first.
//
// Entries with equal rounded averages share the rank of the first of them; the next lower
// average gets its 1-based position, so ranks skip after ties: [90, 90, 85] -> [1, 1, 3].
// Ties keep their input order. The result is in rank order; look ranks up by ID.
func ComputeRanks(entries []RankInput) []RankedEntity {
	if len(entries) == 0 {
		return []RankedEntity{}
	}

	ranked := make([]RankedEntity, 0, len(entries))
	for _, e := range entries {
		ranked = append(ranked, RankedEntity{ID: e.ID, Average: e.Average, RoundedAverage: Round1(e.Average)})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].RoundedAverage > ranked[j].RoundedAverage })

	for i := range ranked {
		if i == 0 || ranked[i].RoundedAverage < ranked[i-1].RoundedAverage {
			ranked[i].Rank = i + 1
		} else {
			ranked[i].Rank = ranked[i-1].Rank
		}
	}
	return ranked
}

// rankIndex maps each ranked ID to its rank.
func rankIndex(ranked []RankedEntity) map[string]int {
	idx := make(map[string]int, len(ranked))
	for _, r := range ranked {
		idx[r.ID] = r.Rank
	}
	return idx
}
