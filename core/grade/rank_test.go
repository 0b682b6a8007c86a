package grade

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeRanks(t *testing.T) {
	tests := []struct {
		name    string
		entries []RankInput
		want    map[string]int
	}{
		{name: "empty", entries: nil, want: map[string]int{}},
		{
			name:    "skips after ties",
			entries: []RankInput{{ID: "a", Average: 90}, {ID: "b", Average: 90}, {ID: "c", Average: 85}},
			want:    map[string]int{"a": 1, "b": 1, "c": 3},
		},
		{
			name:    "unsorted input",
			entries: []RankInput{{ID: "a", Average: 70}, {ID: "b", Average: 90}},
			want:    map[string]int{"a": 2, "b": 1},
		},
		{
			name:    "ties on rounded averages",
			entries: []RankInput{{ID: "a", Average: 84.96}, {ID: "b", Average: 85.04}, {ID: "c", Average: 84.94}},
			want:    map[string]int{"a": 1, "b": 1, "c": 3},
		},
		{
			name: "several tie groups",
			entries: []RankInput{
				{ID: "a", Average: 60}, {ID: "b", Average: 75}, {ID: "c", Average: 75},
				{ID: "d", Average: 75}, {ID: "e", Average: 60}, {ID: "f", Average: 99},
			},
			want: map[string]int{"f": 1, "b": 2, "c": 2, "d": 2, "a": 5, "e": 5},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeRanks(tt.entries)
			assert.NotNil(t, got)
			assert.Len(t, got, len(tt.entries))
			assert.Equal(t, tt.want, rankIndex(got))

			// rank order, ranks never decrease
			for i := 1; i < len(got); i++ {
				assert.GreaterOrEqual(t, got[i-1].RoundedAverage, got[i].RoundedAverage)
				assert.LessOrEqual(t, got[i-1].Rank, got[i].Rank)
			}
		})
	}
}

func TestComputeRanks_stableAndPure(t *testing.T) {
	entries := []RankInput{{ID: "x", Average: 80}, {ID: "y", Average: 80.04}, {ID: "z", Average: 91}}
	got := ComputeRanks(entries)

	assert.Equal(t, []RankedEntity{
		{ID: "z", Average: 91, RoundedAverage: 91, Rank: 1},
		{ID: "x", Average: 80, RoundedAverage: 80, Rank: 2},
		{ID: "y", Average: 80.04, RoundedAverage: 80, Rank: 2},
	}, got)
	// input left untouched
	assert.Equal(t, []RankInput{{ID: "x", Average: 80}, {ID: "y", Average: 80.04}, {ID: "z", Average: 91}}, entries)
}
