package grade

import (
	"math"
	"sort"
)

// ReportKey names an average or a rank of a yearly report: a period name, one of the semester
// keys, or KeyYearly.
type ReportKey string

const (
	KeyFirstSemester  ReportKey = "firstSemesterAverage"
	KeySecondSemester ReportKey = "secondSemesterAverage"
	KeyYearly         ReportKey = "yearly"
)

func PeriodKey(p Period) ReportKey { return ReportKey(p) }

type semester struct {
	key     ReportKey
	periods []Period
	exam    Period
}

var semesters = []semester{
	{key: KeyFirstSemester, periods: []Period{FirstPeriod, SecondPeriod, ThirdPeriod}, exam: ThirdPeriodExam},
	{key: KeySecondSemester, periods: []Period{FourthPeriod, FifthPeriod, SixthPeriod}, exam: SixthPeriodExam},
}

// StudentYearlyReport is a student's standing in their class over a whole academic year.
type StudentYearlyReport struct {
	StudentID             string                    `json:"studentId"`
	StudentName           string                    `json:"studentName"`
	Periods               map[Period][]SubjectGrade `json:"periods"`
	FirstSemesterAverage  map[string]float64        `json:"firstSemesterAverage"`  // {subject: average}
	SecondSemesterAverage map[string]float64        `json:"secondSemesterAverage"` // {subject: average}
	PeriodAverages        map[ReportKey]float64     `json:"periodAverages"`
	YearlyAverage         float64                   `json:"yearlyAverage"`
	Ranks                 map[ReportKey]int         `json:"ranks"`
}

func (r *StudentYearlyReport) semesterAverages(key ReportKey) map[string]float64 {
	if key == KeyFirstSemester {
		return r.FirstSemesterAverage
	}
	return r.SecondSemesterAverage
}

// subjectGrade returns the grade of subject in period, if one was recorded and is valid.
func (r *StudentYearlyReport) subjectGrade(period Period, subject string) (float64, bool) {
	for _, sg := range r.Periods[period] {
		if sg.Subject == subject && isValidGrade(sg.Grade) {
			return sg.Grade.Float64, true
		}
	}
	return 0, false
}

// semesterAverage computes the semester average of one subject:
// the mean of its period grades, averaged with the exam grade when there is one, to the nearest integer.
// ok is false when the subject has no grade in any period of the semester.
func (r *StudentYearlyReport) semesterAverage(sem semester, subject string) (avg float64, ok bool) {
	var sum float64
	var count int
	for _, period := range sem.periods {
		if g, found := r.subjectGrade(period, subject); found {
			sum += g
			count++
		}
	}
	if count == 0 {
		return 0, false
	}
	periodsAvg := sum / float64(count)
	if exam, found := r.subjectGrade(sem.exam, subject); found {
		return Round0((periodsAvg + exam) / 2), true
	}
	return Round0(periodsAvg), true
}

// BuildYearlyReport computes every student of classID's semester and yearly averages and ranks them
// on each period, each semester and the whole year.
//
// Ranks are always computed over the whole class; when studentIDs are given, only those
// students are returned. The result is sorted by yearly rank.
func BuildYearlyReport(records []Record, classID string, studentIDs ...string) []StudentYearlyReport {
	var (
		reports  []StudentYearlyReport
		index    = make(map[string]int)
		subjects []string
		seen     = make(map[string]struct{})
		filtered []Record
	)

	for _, rec := range records {
		if rec.ClassID != classID {
			continue
		}
		filtered = append(filtered, rec)

		i, ok := index[rec.StudentID]
		if !ok {
			i = len(reports)
			index[rec.StudentID] = i
			reports = append(reports, StudentYearlyReport{
				StudentID:             rec.StudentID,
				StudentName:           rec.StudentName,
				Periods:               make(map[Period][]SubjectGrade),
				FirstSemesterAverage:  make(map[string]float64),
				SecondSemesterAverage: make(map[string]float64),
				PeriodAverages:        make(map[ReportKey]float64),
				Ranks:                 make(map[ReportKey]int),
			})
		}
		reports[i].Periods[rec.Period] = append(reports[i].Periods[rec.Period], SubjectGrade{Subject: rec.Subject, Grade: rec.Grade})

		if _, ok := seen[rec.Subject]; !ok {
			seen[rec.Subject] = struct{}{}
			subjects = append(subjects, rec.Subject)
		}
	}

	for i := range reports {
		r := &reports[i]

		for _, sem := range semesters {
			avgs := r.semesterAverages(sem.key)
			for _, subject := range subjects {
				if avg, ok := r.semesterAverage(sem, subject); ok {
					avgs[subject] = avg
				}
			}
		}

		for period, sgs := range r.Periods {
			r.PeriodAverages[PeriodKey(period)] = ComputeStats(subjectGrades(sgs)).Average
		}

		for _, sem := range semesters {
			var sum float64
			var count int
			for _, avg := range r.semesterAverages(sem.key) {
				if math.IsNaN(avg) {
					continue
				}
				sum += avg
				count++
			}
			if count > 0 {
				r.PeriodAverages[sem.key] = Round1(sum / float64(count))
			}
		}

		first, hasFirst := r.PeriodAverages[KeyFirstSemester]
		second, hasSecond := r.PeriodAverages[KeySecondSemester]
		switch {
		case hasFirst && hasSecond:
			r.YearlyAverage = Round1((first + second) / 2)
		case hasFirst:
			r.YearlyAverage = first
		case hasSecond:
			r.YearlyAverage = second
		}
	}

	keys := make([]ReportKey, 0, len(Periods)+2)
	for _, period := range periodsPresent(filtered) {
		keys = append(keys, PeriodKey(period))
	}
	keys = append(keys, KeyFirstSemester, KeySecondSemester)

	for _, key := range keys {
		entries := make([]RankInput, 0, len(reports))
		for i := range reports {
			entries = append(entries, RankInput{ID: reports[i].StudentID, Average: reports[i].PeriodAverages[key]})
		}
		ranks := rankIndex(ComputeRanks(entries))
		for i := range reports {
			if rank, ok := ranks[reports[i].StudentID]; ok {
				reports[i].Ranks[key] = rank
			}
		}
	}

	entries := make([]RankInput, 0, len(reports))
	for i := range reports {
		entries = append(entries, RankInput{ID: reports[i].StudentID, Average: reports[i].YearlyAverage})
	}
	ranks := rankIndex(ComputeRanks(entries))
	for i := range reports {
		if rank, ok := ranks[reports[i].StudentID]; ok {
			reports[i].Ranks[KeyYearly] = rank
		}
	}

	sort.SliceStable(reports, func(i, j int) bool {
		return yearlyRank(reports[i]) < yearlyRank(reports[j])
	})

	if len(studentIDs) > 0 {
		return filterStudents(reports, studentIDs, func(r StudentYearlyReport) string { return r.StudentID })
	}
	if reports == nil {
		reports = []StudentYearlyReport{}
	}
	return reports
}

func yearlyRank(r StudentYearlyReport) float64 {
	if rank, ok := r.Ranks[KeyYearly]; ok {
		return float64(rank)
	}
	return math.Inf(1)
}
