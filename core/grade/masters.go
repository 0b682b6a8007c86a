package grade

import "github.com/volatiletech/null/v8"

const (
	AllSubjects = "All Subjects"
	AllTeachers = "All Teachers"
)

// MastersQuery selects the grades of a masters report. Empty fields do not filter.
type MastersQuery struct {
	ClassID    string
	Subject    string
	TeacherID  string
	StudentIDs []string
}

// StudentMasters is a student's grades across all periods.
type StudentMasters struct {
	StudentID      string                  `json:"studentId"`
	StudentName    string                  `json:"studentName"`
	Periods        map[Period]null.Float64 `json:"periods"`
	OverallAverage float64                 `json:"overallAverage"`

	grades []null.Float64
}

// MastersReport is a class's grades for one subject (or all of them) across all periods.
type MastersReport struct {
	Subject     string           `json:"subject"`
	TeacherID   string           `json:"teacherId"`
	ClassID     string           `json:"classId"`
	Students    []StudentMasters `json:"students"`
	PeriodStats map[Period]Stats `json:"periodStats"`
}

// BuildMastersReport groups the class grades matching q by student across all periods.
//
// Unlike the ranked reports, every filter of q applies before grouping, so PeriodStats only
// describe the selected grades. No ranks are computed.
func BuildMastersReport(records []Record, q MastersQuery) MastersReport {
	var wanted map[string]struct{}
	if len(q.StudentIDs) > 0 {
		wanted = make(map[string]struct{}, len(q.StudentIDs))
		for _, id := range q.StudentIDs {
			wanted[id] = struct{}{}
		}
	}

	filtered := make([]Record, 0, len(records))
	for _, rec := range records {
		if rec.ClassID != q.ClassID {
			continue
		}
		if q.Subject != "" && rec.Subject != q.Subject {
			continue
		}
		if q.TeacherID != "" && rec.TeacherID != q.TeacherID {
			continue
		}
		if wanted != nil {
			if _, ok := wanted[rec.StudentID]; !ok {
				continue
			}
		}
		filtered = append(filtered, rec)
	}

	students := make([]StudentMasters, 0)
	index := make(map[string]int)
	for _, rec := range filtered {
		i, ok := index[rec.StudentID]
		if !ok {
			i = len(students)
			index[rec.StudentID] = i
			students = append(students, StudentMasters{
				StudentID:   rec.StudentID,
				StudentName: rec.StudentName,
				Periods:     make(map[Period]null.Float64),
			})
		}
		students[i].Periods[rec.Period] = rec.Grade
		students[i].grades = append(students[i].grades, rec.Grade)
	}
	for i := range students {
		students[i].OverallAverage = ComputeStats(students[i].grades).Average
		students[i].grades = nil
	}

	periodStats := make(map[Period]Stats)
	for _, period := range periodsPresent(filtered) {
		var grades []null.Float64
		for _, rec := range filtered {
			if rec.Period == period {
				grades = append(grades, rec.Grade)
			}
		}
		periodStats[period] = ComputeStats(grades)
	}

	report := MastersReport{
		Subject:     q.Subject,
		TeacherID:   q.TeacherID,
		ClassID:     q.ClassID,
		Students:    students,
		PeriodStats: periodStats,
	}
	if report.Subject == "" {
		report.Subject = AllSubjects
	}
	if report.TeacherID == "" {
		report.TeacherID = AllTeachers
	}
	return report
}
