package grade

import (
	"context"
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/user"
)

var (
	// errors
	ErrNotFound        = errors.New("grade not found")
	ErrPeriodRequired  = errors.New("period is required")
	ErrAlreadyReviewed = errors.New("grade has already been reviewed")

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		// UpsertGrade inserts rec, or replaces the grade of the same student, class, subject, period and academic year.
		UpsertGrade(ctx context.Context, rec Record) (Record, error)
		GetGrade(ctx context.Context, schoolID, id string) (Record, error)
		QueryGrades(ctx context.Context, filter QueryFilter) ([]Record, error)
		UpdateGradeStatus(ctx context.Context, schoolID, id string, status Status, updatedAt time.Time) (Record, error)
		DeleteGrade(ctx context.Context, schoolID, id string) error
	}

	// ReportCache stores built reports. A miss is not an error.
	ReportCache interface {
		Get(ctx context.Context, key string, dest interface{}) (bool, error)
		Set(ctx context.Context, key string, value interface{}) error
		// Invalidate drops every report whose key starts with prefix.
		Invalidate(ctx context.Context, prefix string) error
	}

	ServiceInterface interface {
		Submit(ctx context.Context, schoolID string, ng NewGrade) (Record, error)
		Review(ctx context.Context, schoolID, id string, rg ReviewGrade) (Record, error)
		Delete(ctx context.Context, schoolID, id string) error
		GetByID(ctx context.Context, schoolID, id string) (Record, error)
		Query(ctx context.Context, filter QueryFilter) ([]Record, Stats, error)
		PeriodicReport(ctx context.Context, rq ReportQuery) ([]StudentPeriodicReport, error)
		YearlyReport(ctx context.Context, rq ReportQuery) ([]StudentYearlyReport, error)
		MastersReport(ctx context.Context, rq ReportQuery) (MastersReport, error)
		PendingCounts(ctx context.Context) ([]PendingCount, error)
	}

	service struct {
		repo    Repository
		usrRepo user.Repository
		cache   ReportCache // optional
		mailSvc core.EmailService
		logger  core.Logger
	}
)

var _ ServiceInterface = (*service)(nil)

// NewService returns the grade service. cache may be nil.
func NewService(repo Repository, usrRepo user.Repository, cache ReportCache, mailSvc core.EmailService, logger core.Logger) ServiceInterface {
	return &service{
		repo:    repo,
		usrRepo: usrRepo,
		cache:   cache,
		mailSvc: mailSvc,
		logger:  logger,
	}
}

// Submit records a grade, replacing any previous submission for the same slot. The grade goes back to Pending.
func (svc *service) Submit(ctx context.Context, schoolID string, ng NewGrade) (Record, error) {
	rec := Record{
		ID:           uuid.New().String(),
		SchoolID:     schoolID,
		StudentID:    ng.StudentID,
		StudentName:  ng.StudentName,
		ClassID:      ng.ClassID,
		Subject:      ng.Subject,
		Period:       ng.Period,
		AcademicYear: ng.AcademicYear,
		TeacherID:    ng.TeacherID,
		Grade:        null.Float64FromPtr(ng.Grade),
		Status:       StatusPending,
		LastUpdated:  NowFunc().UTC(),
	}
	rec, err := svc.repo.UpsertGrade(ctx, rec)
	if err != nil {
		return Record{}, errors.Wrap(err, "upserting grade")
	}
	svc.invalidate(ctx, rec)
	return rec, nil
}

// Review approves or rejects a pending grade and notifies its teacher.
func (svc *service) Review(ctx context.Context, schoolID, id string, rg ReviewGrade) (Record, error) {
	rec, err := svc.repo.GetGrade(ctx, schoolID, id)
	if err != nil {
		return Record{}, err
	}
	if rec.Status != StatusPending {
		return Record{}, core.NewValidationError(ErrAlreadyReviewed)
	}

	rec, err = svc.repo.UpdateGradeStatus(ctx, schoolID, id, rg.Status, NowFunc().UTC())
	if err != nil {
		return Record{}, errors.Wrap(err, "updating grade status")
	}
	svc.invalidate(ctx, rec)
	svc.notifyTeacher(ctx, rec)
	return rec, nil
}

func (svc *service) notifyTeacher(ctx context.Context, rec Record) {
	teacher, err := svc.usrRepo.GetUser(ctx, user.GetFilter{SchoolID: rec.SchoolID, ID: rec.TeacherID})
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			svc.logger.Error(fmt.Sprintf("finding teacher %s: %v", rec.TeacherID, err), err)
		}
		return
	}
	if teacher.Email == "" {
		return
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: teacher.Name, Address: teacher.Email}},
		Subject:      fmt.Sprintf("%s grade %s", rec.Subject, strings.ToLower(string(rec.Status))),
		TemplateName: "grade_reviewed",
		TemplateData: map[string]interface{}{
			"TeacherName":  teacher.Name,
			"Subject":      rec.Subject,
			"StudentName":  rec.StudentName,
			"Period":       rec.Period,
			"AcademicYear": rec.AcademicYear,
			"Status":       rec.Status,
		},
	})
}

func (svc *service) Delete(ctx context.Context, schoolID, id string) error {
	rec, err := svc.repo.GetGrade(ctx, schoolID, id)
	if err != nil {
		return err
	}
	if err = svc.repo.DeleteGrade(ctx, schoolID, id); err != nil {
		return errors.Wrap(err, "deleting grade")
	}
	svc.invalidate(ctx, rec)
	return nil
}

func (svc *service) GetByID(ctx context.Context, schoolID, id string) (Record, error) {
	return svc.repo.GetGrade(ctx, schoolID, id)
}

// Query returns the matching grades along with their stats.
func (svc *service) Query(ctx context.Context, filter QueryFilter) ([]Record, Stats, error) {
	records, err := svc.repo.QueryGrades(ctx, filter)
	if err != nil {
		return nil, Stats{}, errors.Wrap(err, "querying grades")
	}
	grades := make([]null.Float64, 0, len(records))
	for _, rec := range records {
		grades = append(grades, rec.Grade)
	}
	return records, ComputeStats(grades), nil
}

func (svc *service) classRecords(ctx context.Context, rq ReportQuery, period Period) ([]Record, error) {
	records, err := svc.repo.QueryGrades(ctx, QueryFilter{
		SchoolID:     rq.SchoolID,
		AcademicYear: rq.AcademicYear,
		ClassID:      rq.ClassID,
		Period:       period,
	})
	return records, errors.Wrap(err, "querying class grades")
}

func (svc *service) PeriodicReport(ctx context.Context, rq ReportQuery) ([]StudentPeriodicReport, error) {
	if rq.Period == "" {
		return nil, core.NewValidationError(ErrPeriodRequired, core.FieldError{Field: "period", Error: ErrPeriodRequired.Error()})
	}

	var report []StudentPeriodicReport
	key := reportKey("periodic", rq)
	if svc.cached(ctx, key, &report) {
		return report, nil
	}

	records, err := svc.classRecords(ctx, rq, rq.Period)
	if err != nil {
		return nil, err
	}
	report = BuildPeriodicReport(records, rq.ClassID, rq.Period, rq.StudentIDs...)
	svc.store(ctx, key, report)
	return report, nil
}

func (svc *service) YearlyReport(ctx context.Context, rq ReportQuery) ([]StudentYearlyReport, error) {
	var report []StudentYearlyReport
	key := reportKey("yearly", rq)
	if svc.cached(ctx, key, &report) {
		return report, nil
	}

	records, err := svc.classRecords(ctx, rq, "")
	if err != nil {
		return nil, err
	}
	report = BuildYearlyReport(records, rq.ClassID, rq.StudentIDs...)
	svc.store(ctx, key, report)
	return report, nil
}

func (svc *service) MastersReport(ctx context.Context, rq ReportQuery) (MastersReport, error) {
	var report MastersReport
	key := reportKey("masters", rq)
	if svc.cached(ctx, key, &report) {
		return report, nil
	}

	records, err := svc.classRecords(ctx, rq, "")
	if err != nil {
		return MastersReport{}, err
	}
	report = BuildMastersReport(records, MastersQuery{
		ClassID:    rq.ClassID,
		Subject:    rq.Subject,
		TeacherID:  rq.TeacherID,
		StudentIDs: rq.StudentIDs,
	})
	svc.store(ctx, key, report)
	return report, nil
}

// PendingCounts counts the grades waiting for review, per school, academic year and class.
func (svc *service) PendingCounts(ctx context.Context) ([]PendingCount, error) {
	records, err := svc.repo.QueryGrades(ctx, QueryFilter{Statuses: []Status{StatusPending}})
	if err != nil {
		return nil, errors.Wrap(err, "querying pending grades")
	}

	var counts []PendingCount
	index := make(map[[3]string]int)
	for _, rec := range records {
		k := [3]string{rec.SchoolID, rec.AcademicYear, rec.ClassID}
		i, ok := index[k]
		if !ok {
			i = len(counts)
			index[k] = i
			counts = append(counts, PendingCount{SchoolID: rec.SchoolID, AcademicYear: rec.AcademicYear, ClassID: rec.ClassID})
		}
		counts[i].Count++
	}
	sort.SliceStable(counts, func(i, j int) bool {
		if counts[i].SchoolID != counts[j].SchoolID {
			return counts[i].SchoolID < counts[j].SchoolID
		}
		if counts[i].AcademicYear != counts[j].AcademicYear {
			return counts[i].AcademicYear < counts[j].AcademicYear
		}
		return counts[i].ClassID < counts[j].ClassID
	})
	return counts, nil
}

// Report cache

// reportPrefix is shared by every report of a class.
func reportPrefix(schoolID, academicYear, classID string) string {
	return fmt.Sprintf("report:%s:%s:%s:", schoolID, academicYear, classID)
}

func reportKey(kind string, rq ReportQuery) string {
	students := make([]string, len(rq.StudentIDs))
	copy(students, rq.StudentIDs)
	sort.Strings(students)
	return reportPrefix(rq.SchoolID, rq.AcademicYear, rq.ClassID) +
		strings.Join([]string{kind, string(rq.Period), rq.Subject, rq.TeacherID, strings.Join(students, ",")}, ":")
}

func (svc *service) cached(ctx context.Context, key string, dest interface{}) bool {
	if svc.cache == nil {
		return false
	}
	found, err := svc.cache.Get(ctx, key, dest)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("reading cached report %s: %v", key, err), err)
		return false
	}
	return found
}

func (svc *service) store(ctx context.Context, key string, report interface{}) {
	if svc.cache == nil {
		return
	}
	if err := svc.cache.Set(ctx, key, report); err != nil {
		svc.logger.Warn(fmt.Sprintf("caching report %s: %v", key, err), err)
	}
}

func (svc *service) invalidate(ctx context.Context, rec Record) {
	if svc.cache == nil {
		return
	}
	prefix := reportPrefix(rec.SchoolID, rec.AcademicYear, rec.ClassID)
	if err := svc.cache.Invalidate(ctx, prefix); err != nil {
		svc.logger.Warn(fmt.Sprintf("invalidating reports %s: %v", prefix, err), err)
	}
}
