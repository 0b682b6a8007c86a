package inmemdb

import (
	"context"
	"time"

	"github.com/trezcool/gradebook/core/grade"
)

type gradeRepository struct {
	db *gradeTable
}

var _ grade.Repository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(db *DB) grade.Repository {
	return &gradeRepository{db: db.grade}
}

func sameSlot(a, b *grade.Record) bool {
	return a.SchoolID == b.SchoolID &&
		a.StudentID == b.StudentID &&
		a.ClassID == b.ClassID &&
		a.Subject == b.Subject &&
		a.Period == b.Period &&
		a.AcademicYear == b.AcademicYear
}

func (repo *gradeRepository) UpsertGrade(_ context.Context, rec grade.Record) (grade.Record, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, id := range repo.db.order {
		if orig := repo.db.table[id]; sameSlot(orig, &rec) {
			rec.ID = orig.ID
			repo.db.table[id] = &rec
			return rec, nil
		}
	}
	repo.db.table[rec.ID] = &rec
	repo.db.order = append(repo.db.order, rec.ID)
	return rec, nil
}

func (repo *gradeRepository) GetGrade(_ context.Context, schoolID, id string) (grade.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if rec, ok := repo.db.table[id]; ok && rec.SchoolID == schoolID {
		return *rec, nil
	}
	return grade.Record{}, grade.ErrNotFound
}

// QueryGrades returns the matching grades in submission order.
func (repo *gradeRepository) QueryGrades(_ context.Context, filter grade.QueryFilter) ([]grade.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	records := make([]grade.Record, 0)
	for _, id := range repo.db.order {
		if rec := repo.db.table[id]; filter.Matches(*rec) {
			records = append(records, *rec)
		}
	}
	return records, nil
}

func (repo *gradeRepository) UpdateGradeStatus(_ context.Context, schoolID, id string, status grade.Status, updatedAt time.Time) (grade.Record, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	rec, ok := repo.db.table[id]
	if !ok || rec.SchoolID != schoolID {
		return grade.Record{}, grade.ErrNotFound
	}
	rec.Status = status
	rec.LastUpdated = updatedAt
	return *rec, nil
}

func (repo *gradeRepository) DeleteGrade(_ context.Context, schoolID, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	rec, ok := repo.db.table[id]
	if !ok || rec.SchoolID != schoolID {
		return grade.ErrNotFound
	}
	delete(repo.db.table, id)
	for i, oid := range repo.db.order {
		if oid == id {
			repo.db.order = append(repo.db.order[:i], repo.db.order[i+1:]...)
			break
		}
	}
	return nil
}
