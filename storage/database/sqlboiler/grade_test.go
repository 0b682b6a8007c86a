package boiledrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/gradebook/core/grade"
	boiledrepos "github.com/trezcool/gradebook/storage/database/sqlboiler"
	"github.com/trezcool/gradebook/tests"
)

func TestGradeRepository(t *testing.T) {
	ctx := context.Background()
	repo := boiledrepos.NewGradeRepository(testutil.OpenDB(t))

	first := testutil.CreateGrade(t, repo, "sch1", "c1", "st1", "Hero", "math", grade.FirstPeriod, testutil.Float(80), grade.StatusApproved)
	testutil.CreateGrade(t, repo, "sch1", "c1", "st2", "Zero", "math", grade.FirstPeriod, nil, grade.StatusPending)
	testutil.CreateGrade(t, repo, "sch2", "c1", "st3", "Other", "math", grade.FirstPeriod, testutil.Float(90), grade.StatusPending)

	t.Run("upsert replaces the same slot", func(t *testing.T) {
		resubmitted := first
		resubmitted.ID = uuid.New().String()
		resubmitted.Grade = null.Float64From(85)
		resubmitted.Status = grade.StatusPending

		rec, err := repo.UpsertGrade(ctx, resubmitted)
		require.NoError(t, err)
		assert.Equal(t, first.ID, rec.ID)

		got, err := repo.GetGrade(ctx, "sch1", first.ID)
		require.NoError(t, err)
		assert.Equal(t, 85.0, got.Grade.Float64)
		assert.Equal(t, grade.StatusPending, got.Status)
	})

	t.Run("incomplete grade round trips as null", func(t *testing.T) {
		records, err := repo.QueryGrades(ctx, grade.QueryFilter{SchoolID: "sch1", StudentIDs: []string{"st2"}})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.False(t, records[0].Grade.Valid)
	})

	t.Run("get", func(t *testing.T) {
		_, err := repo.GetGrade(ctx, "sch2", first.ID)
		assert.Equal(t, grade.ErrNotFound, err)
		_, err = repo.GetGrade(ctx, "sch1", "not-a-uuid")
		assert.Equal(t, grade.ErrNotFound, err)
	})

	t.Run("query", func(t *testing.T) {
		tests := []struct {
			name    string
			filter  grade.QueryFilter
			wantIDs []string
		}{
			{name: "school", filter: grade.QueryFilter{SchoolID: "sch1"}, wantIDs: []string{"st1", "st2"}},
			{name: "pending everywhere", filter: grade.QueryFilter{Statuses: []grade.Status{grade.StatusPending}}, wantIDs: []string{"st1", "st2", "st3"}},
			{name: "period and class", filter: grade.QueryFilter{SchoolID: "sch1", ClassID: "c1", Period: grade.FirstPeriod}, wantIDs: []string{"st1", "st2"}},
			{name: "no match", filter: grade.QueryFilter{SchoolID: "sch1", Subject: "english"}, wantIDs: []string{}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				records, err := repo.QueryGrades(ctx, tt.filter)
				require.NoError(t, err)
				ids := make([]string, 0, len(records))
				for _, rec := range records {
					ids = append(ids, rec.StudentID)
				}
				assert.ElementsMatch(t, tt.wantIDs, ids)
			})
		}
	})

	t.Run("update status", func(t *testing.T) {
		now := time.Now().UTC()
		rec, err := repo.UpdateGradeStatus(ctx, "sch1", first.ID, grade.StatusApproved, now)
		require.NoError(t, err)
		assert.Equal(t, grade.StatusApproved, rec.Status)
		assert.WithinDuration(t, now, rec.LastUpdated, time.Millisecond)

		_, err = repo.UpdateGradeStatus(ctx, "sch2", first.ID, grade.StatusApproved, now)
		assert.Equal(t, grade.ErrNotFound, err)
	})

	t.Run("delete", func(t *testing.T) {
		assert.Equal(t, grade.ErrNotFound, repo.DeleteGrade(ctx, "sch2", first.ID))
		require.NoError(t, repo.DeleteGrade(ctx, "sch1", first.ID))
		_, err := repo.GetGrade(ctx, "sch1", first.ID)
		assert.Equal(t, grade.ErrNotFound, err)
	})
}
