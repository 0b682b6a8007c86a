package grade

import (
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/gradebook/core"
)

// PassMark is the minimum grade that counts as a pass.
const PassMark = 70

// Period is one of the six grading periods of an academic year or one of the two semester exams.
type Period string

const (
	FirstPeriod     Period = "firstPeriod"
	SecondPeriod    Period = "secondPeriod"
	ThirdPeriod     Period = "thirdPeriod"
	FourthPeriod    Period = "fourthPeriod"
	FifthPeriod     Period = "fifthPeriod"
	SixthPeriod     Period = "sixthPeriod"
	ThirdPeriodExam Period = "thirdPeriodExam"
	SixthPeriodExam Period = "sixthPeriodExam"
)

var Periods = []Period{
	FirstPeriod, SecondPeriod, ThirdPeriod, ThirdPeriodExam,
	FourthPeriod, FifthPeriod, SixthPeriod, SixthPeriodExam,
}

func (p Period) IsValid() bool {
	for _, period := range Periods {
		if p == period {
			return true
		}
	}
	return false
}

// Status is the review status of a submitted grade.
type Status string

const (
	StatusPending  Status = "Pending"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
)

var Statuses = []Status{StatusPending, StatusApproved, StatusRejected}

func (s Status) IsValid() bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

// Record is one grade submission: a student's grade in one subject for one period.
// A null or NaN Grade means the submission is incomplete.
type Record struct {
	ID           string       `json:"id"`
	SchoolID     string       `json:"schoolId"`
	StudentID    string       `json:"studentId"`
	StudentName  string       `json:"studentName"`
	ClassID      string       `json:"classId"`
	Subject      string       `json:"subject"`
	Period       Period       `json:"period"`
	AcademicYear string       `json:"academicYear"`
	TeacherID    string       `json:"teacherId"`
	Grade        null.Float64 `json:"grade"`
	Status       Status       `json:"status"`
	LastUpdated  time.Time    `json:"lastUpdated"` // UTC
}

// isValidGrade reports whether g holds a usable number.
func isValidGrade(g null.Float64) bool {
	return g.Valid && !math.IsNaN(g.Float64)
}

// NewGrade contains the information needed to submit a grade.
type NewGrade struct {
	StudentID    string   `json:"studentId" validate:"required"`
	StudentName  string   `json:"studentName" validate:"required"`
	ClassID      string   `json:"classId" validate:"required"`
	Subject      string   `json:"subject" validate:"required"`
	Period       Period   `json:"period" validate:"required,period"`
	AcademicYear string   `json:"academicYear" validate:"required,academicyear"`
	TeacherID    string   `json:"teacherId" validate:"required"`
	Grade        *float64 `json:"grade" validate:"omitempty,gte=60,lte=100"`
}

// Clean trims the free-text fields.
func (ng *NewGrade) Clean() {
	ng.StudentID = core.CleanString(ng.StudentID)
	ng.StudentName = core.CleanString(ng.StudentName)
	ng.ClassID = core.CleanString(ng.ClassID)
	ng.Subject = core.CleanString(ng.Subject)
	ng.AcademicYear = core.CleanString(ng.AcademicYear)
	ng.TeacherID = core.CleanString(ng.TeacherID)
}

func (ng *NewGrade) Validate(validate *validator.Validate) error {
	ng.Clean()
	return validate.Struct(ng)
}

// ReviewGrade is what an admin sends to approve or reject a grade.
type ReviewGrade struct {
	Status Status `json:"status" validate:"required,gradestatus,ne=Pending"`
}

func (rg ReviewGrade) Validate(validate *validator.Validate) error { return validate.Struct(rg) }

// QueryFilter applies AND operation on its non-empty fields.
type QueryFilter struct {
	SchoolID     string   `query:"-"`
	AcademicYear string   `query:"academicYear"`
	ClassID      string   `query:"classId"`
	Subject      string   `query:"subject"`
	Period       Period   `query:"period"`
	TeacherID    string   `query:"teacherId"`
	StudentIDs   []string `query:"studentId"`
	Statuses     []Status `query:"status"`
}

func (qf *QueryFilter) Clean() {
	qf.AcademicYear = core.CleanString(qf.AcademicYear)
	qf.ClassID = core.CleanString(qf.ClassID)
	qf.Subject = core.CleanString(qf.Subject)
	qf.TeacherID = core.CleanString(qf.TeacherID)
	qf.StudentIDs = core.CleanStrings(qf.StudentIDs)
}

// Matches reports whether rec satisfies every set field of the filter.
func (qf QueryFilter) Matches(rec Record) bool {
	if qf.SchoolID != "" && rec.SchoolID != qf.SchoolID {
		return false
	}
	if qf.AcademicYear != "" && rec.AcademicYear != qf.AcademicYear {
		return false
	}
	if qf.ClassID != "" && rec.ClassID != qf.ClassID {
		return false
	}
	if qf.Subject != "" && rec.Subject != qf.Subject {
		return false
	}
	if qf.Period != "" && rec.Period != qf.Period {
		return false
	}
	if qf.TeacherID != "" && rec.TeacherID != qf.TeacherID {
		return false
	}
	if len(qf.StudentIDs) > 0 && !containsString(qf.StudentIDs, rec.StudentID) {
		return false
	}
	if len(qf.Statuses) > 0 {
		found := false
		for _, s := range qf.Statuses {
			if rec.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// ReportQuery selects the class a report is built for.
// Period is required by periodic reports; Subject and TeacherID only apply to masters reports.
type ReportQuery struct {
	SchoolID     string   `json:"-" query:"-"`
	AcademicYear string   `json:"academicYear" query:"academicYear" validate:"required,academicyear"`
	ClassID      string   `json:"classId" query:"classId" validate:"required"`
	Period       Period   `json:"period" query:"period" validate:"omitempty,period"`
	Subject      string   `json:"subject" query:"subject"`
	TeacherID    string   `json:"teacherId" query:"teacherId"`
	StudentIDs   []string `json:"studentIds" query:"studentId"`
}

func (rq *ReportQuery) Validate(validate *validator.Validate) error {
	rq.AcademicYear = core.CleanString(rq.AcademicYear)
	rq.ClassID = core.CleanString(rq.ClassID)
	rq.Subject = core.CleanString(rq.Subject)
	rq.TeacherID = core.CleanString(rq.TeacherID)
	rq.StudentIDs = core.CleanStrings(rq.StudentIDs)
	return validate.Struct(rq)
}

// PendingCount is the number of grades of a class still waiting for review.
type PendingCount struct {
	SchoolID     string `json:"schoolId"`
	ClassID      string `json:"classId"`
	AcademicYear string `json:"academicYear"`
	Count        int    `json:"count"`
}
