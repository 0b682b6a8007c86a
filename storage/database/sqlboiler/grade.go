package boiledrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grade"
)

const gradeColumns = `id, school_id, student_id, student_name, class_id, subject, period, academic_year,
	teacher_id, grade, status, last_updated`

// gradeRow maps a row of the grade table.
type gradeRow struct {
	ID           string       `boil:"id"`
	SchoolID     string       `boil:"school_id"`
	StudentID    string       `boil:"student_id"`
	StudentName  string       `boil:"student_name"`
	ClassID      string       `boil:"class_id"`
	Subject      string       `boil:"subject"`
	Period       string       `boil:"period"`
	AcademicYear string       `boil:"academic_year"`
	TeacherID    string       `boil:"teacher_id"`
	Grade        null.Float64 `boil:"grade"`
	Status       string       `boil:"status"`
	LastUpdated  time.Time    `boil:"last_updated"`
}

type gradeRepository struct {
	exec core.DBExecutor
}

var _ grade.Repository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(exec core.DBExecutor) grade.Repository {
	return &gradeRepository{exec: exec}
}

func (repo gradeRepository) unboil(row gradeRow) grade.Record {
	return grade.Record{
		ID:           row.ID,
		SchoolID:     row.SchoolID,
		StudentID:    row.StudentID,
		StudentName:  row.StudentName,
		ClassID:      row.ClassID,
		Subject:      row.Subject,
		Period:       grade.Period(row.Period),
		AcademicYear: row.AcademicYear,
		TeacherID:    row.TeacherID,
		Grade:        row.Grade,
		Status:       grade.Status(row.Status),
		LastUpdated:  row.LastUpdated.UTC(),
	}
}

// trapNoRowsErr maps psql "no rows" err to grade.ErrNotFound
func (repo gradeRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return grade.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo gradeRepository) UpsertGrade(ctx context.Context, rec grade.Record) (grade.Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	q := `INSERT INTO grade (` + gradeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (school_id, student_id, class_id, subject, period, academic_year) DO UPDATE SET
			student_name = EXCLUDED.student_name,
			teacher_id = EXCLUDED.teacher_id,
			grade = EXCLUDED.grade,
			status = EXCLUDED.status,
			last_updated = EXCLUDED.last_updated
		RETURNING ` + gradeColumns

	var row gradeRow
	err := queries.Raw(q,
		rec.ID, rec.SchoolID, rec.StudentID, rec.StudentName, rec.ClassID, rec.Subject, string(rec.Period),
		rec.AcademicYear, rec.TeacherID, rec.Grade, string(rec.Status), rec.LastUpdated.UTC(),
	).Bind(ctx, repo.exec, &row)
	if err != nil {
		return grade.Record{}, errors.Wrap(err, "upserting grade")
	}
	return repo.unboil(row), nil
}

func (repo gradeRepository) GetGrade(ctx context.Context, schoolID, id string) (grade.Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return grade.Record{}, grade.ErrNotFound
	}

	var row gradeRow
	err := queries.Raw(
		`SELECT `+gradeColumns+` FROM grade WHERE school_id = $1 AND id = $2`, schoolID, id,
	).Bind(ctx, repo.exec, &row)
	if err != nil {
		return grade.Record{}, repo.trapNoRowsErr(err, "finding grade")
	}
	return repo.unboil(row), nil
}

// QueryGrades returns the matching grades ordered by student, period and subject.
func (repo gradeRepository) QueryGrades(ctx context.Context, filter grade.QueryFilter) ([]grade.Record, error) {
	var (
		where []string
		args  []interface{}
	)
	eq := func(col string, val interface{}) {
		args = append(args, val)
		where = append(where, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if filter.SchoolID != "" {
		eq("school_id", filter.SchoolID)
	}
	if filter.AcademicYear != "" {
		eq("academic_year", filter.AcademicYear)
	}
	if filter.ClassID != "" {
		eq("class_id", filter.ClassID)
	}
	if filter.Subject != "" {
		eq("subject", filter.Subject)
	}
	if filter.Period != "" {
		eq("period", string(filter.Period))
	}
	if filter.TeacherID != "" {
		eq("teacher_id", filter.TeacherID)
	}
	if len(filter.StudentIDs) > 0 {
		args = append(args, pq.Array(filter.StudentIDs))
		where = append(where, fmt.Sprintf("student_id = ANY($%d)", len(args)))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		args = append(args, pq.Array(statuses))
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}

	q := `SELECT ` + gradeColumns + ` FROM grade`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY student_name, student_id, period, subject`

	var rows []gradeRow
	if err := queries.Raw(q, args...).Bind(ctx, repo.exec, &rows); err != nil {
		return nil, errors.Wrap(err, "querying grades")
	}
	records := make([]grade.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, repo.unboil(row))
	}
	return records, nil
}

func (repo gradeRepository) UpdateGradeStatus(ctx context.Context, schoolID, id string, status grade.Status, updatedAt time.Time) (grade.Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return grade.Record{}, grade.ErrNotFound
	}

	var row gradeRow
	err := queries.Raw(
		`UPDATE grade SET status = $1, last_updated = $2 WHERE school_id = $3 AND id = $4 RETURNING `+gradeColumns,
		string(status), updatedAt.UTC(), schoolID, id,
	).Bind(ctx, repo.exec, &row)
	if err != nil {
		return grade.Record{}, repo.trapNoRowsErr(err, "updating grade status")
	}
	return repo.unboil(row), nil
}

func (repo gradeRepository) DeleteGrade(ctx context.Context, schoolID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return grade.ErrNotFound
	}

	res, err := queries.Raw(`DELETE FROM grade WHERE school_id = $1 AND id = $2`, schoolID, id).ExecContext(ctx, repo.exec)
	if err != nil {
		return errors.Wrap(err, "deleting grade")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return grade.ErrNotFound
	}
	return nil
}
