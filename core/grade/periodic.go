package grade

import (
	"sort"

	"github.com/volatiletech/null/v8"
)

// SubjectGrade is a student's grade in one subject.
type SubjectGrade struct {
	Subject string       `json:"subject"`
	Grade   null.Float64 `json:"grade"`
}

// StudentPeriodicReport is a student's standing in their class for one period.
type StudentPeriodicReport struct {
	StudentID       string         `json:"studentId"`
	StudentName     string         `json:"studentName"`
	Subjects        []SubjectGrade `json:"subjects"`
	PeriodicAverage float64        `json:"periodicAverage"`
	Incompletes     int            `json:"incompletes"`
	Passes          int            `json:"passes"`
	Fails           int            `json:"fails"`
	Rank            int            `json:"rank"`
}

func subjectGrades(subjects []SubjectGrade) []null.Float64 {
	grades := make([]null.Float64, 0, len(subjects))
	for _, s := range subjects {
		grades = append(grades, s.Grade)
	}
	return grades
}

// BuildPeriodicReport ranks every student of classID on their average over all subjects of period.
//
// Ranks are always computed over the whole class; when studentIDs are given, only those
// students are returned, with their class-wide rank. The result is sorted by rank.
func BuildPeriodicReport(records []Record, classID string, period Period, studentIDs ...string) []StudentPeriodicReport {
	// students are kept in order of first appearance
	var reports []StudentPeriodicReport
	index := make(map[string]int)

	for _, rec := range records {
		if rec.ClassID != classID || rec.Period != period {
			continue
		}
		i, ok := index[rec.StudentID]
		if !ok {
			i = len(reports)
			index[rec.StudentID] = i
			reports = append(reports, StudentPeriodicReport{
				StudentID:   rec.StudentID,
				StudentName: rec.StudentName,
				Subjects:    []SubjectGrade{},
			})
		}
		reports[i].Subjects = append(reports[i].Subjects, SubjectGrade{Subject: rec.Subject, Grade: rec.Grade})
	}

	entries := make([]RankInput, 0, len(reports))
	for i := range reports {
		stats := ComputeStats(subjectGrades(reports[i].Subjects))
		reports[i].PeriodicAverage = stats.Average
		reports[i].Incompletes = stats.Incompletes
		reports[i].Passes = stats.Passes
		reports[i].Fails = stats.Fails
		entries = append(entries, RankInput{ID: reports[i].StudentID, Average: stats.Average})
	}

	ranks := rankIndex(ComputeRanks(entries))
	for i := range reports {
		reports[i].Rank = ranks[reports[i].StudentID] // 0 if missing
	}
	sort.SliceStable(reports, func(i, j int) bool { return reports[i].Rank < reports[j].Rank })

	if len(studentIDs) > 0 {
		return filterStudents(reports, studentIDs, func(r StudentPeriodicReport) string { return r.StudentID })
	}
	if reports == nil {
		reports = []StudentPeriodicReport{}
	}
	return reports
}
