package grade

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"
)

func grades(gs ...interface{}) []null.Float64 {
	out := make([]null.Float64, 0, len(gs))
	for _, g := range gs {
		switch v := g.(type) {
		case nil:
			out = append(out, null.Float64{})
		case int:
			out = append(out, null.Float64From(float64(v)))
		case float64:
			out = append(out, null.Float64From(v))
		}
	}
	return out
}

func TestComputeStats(t *testing.T) {
	tests := []struct {
		name   string
		grades []null.Float64
		want   Stats
	}{
		{name: "empty", grades: nil, want: Stats{}},
		{
			name:   "all incomplete",
			grades: grades(nil, math.NaN(), nil),
			want:   Stats{Incompletes: 3, TotalStudents: 3},
		},
		{
			name:   "two passes",
			grades: grades(90, 70),
			want:   Stats{Passes: 2, Average: 80, TotalStudents: 2},
		},
		{
			name:   "pass mark is inclusive",
			grades: grades(70, 69.9),
			want:   Stats{Passes: 1, Fails: 1, Average: 70, TotalStudents: 2},
		},
		{
			name:   "incompletes are left out of the average",
			grades: grades(100, nil, 65, math.NaN(), 80),
			want:   Stats{Incompletes: 2, Passes: 2, Fails: 1, Average: 81.7, TotalStudents: 5},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeStats(tt.grades)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got.TotalStudents-got.Incompletes, got.Passes+got.Fails)
		})
	}
}
