package echoapi_test

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/gradebook/core/grade"
	"github.com/trezcool/gradebook/core/user"
	"github.com/trezcool/gradebook/tests"
)

type reportResponse[T any] struct {
	Success bool `json:"success"`
	Data    struct {
		Report       T            `json:"report"`
		AcademicYear string       `json:"academicYear"`
		ClassID      string       `json:"classId"`
		Period       grade.Period `json:"period"`
		StudentIDs   []string     `json:"studentIds"`
	} `json:"data"`
}

func getReport[T any](t *testing.T, path, token string) reportResponse[T] {
	rec := serve(httpTest{path: path, token: token})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp reportResponse[T]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	return resp
}

func seedClass(t *testing.T) (admin, teacher, student user.User) {
	db.Reset()

	admin = testutil.CreateUser(t, usrRepo, "s1", "Admin", "admin", "admin@s1.cd", "", []string{user.RoleAdmin}, true)
	teacher = testutil.CreateUser(t, usrRepo, "s1", "Math Teacher", "tmath", "tmath@s1.cd", "", []string{user.RoleTeacher}, true)
	student = testutil.CreateUser(t, usrRepo, "s1", "Hero", "hero", "hero@s1.cd", "", []string{user.RoleStudent}, true)

	for _, g := range []struct {
		studentID, name, subject string
		period                   grade.Period
		grade                    *float64
	}{
		{student.ID, "Hero", "Math", grade.FirstPeriod, testutil.Float(70)},
		{student.ID, "Hero", "French", grade.FirstPeriod, testutil.Float(80)},
		{"st2", "Jim", "Math", grade.FirstPeriod, testutil.Float(90)},
		{"st2", "Jim", "French", grade.FirstPeriod, testutil.Float(90)},
		{"st3", "Joe", "Math", grade.FirstPeriod, testutil.Float(60)},
		{"st3", "Joe", "French", grade.FirstPeriod, nil},
		{student.ID, "Hero", "Math", grade.SecondPeriod, testutil.Float(100)},
		{"st2", "Jim", "Math", grade.SecondPeriod, testutil.Float(80)},
	} {
		testutil.CreateGrade(t, gradeRepo, "s1", "c1", g.studentID, g.name, g.subject, g.period, g.grade, grade.StatusApproved)
	}
	// another school with the same class id
	testutil.CreateGrade(t, gradeRepo, "s2", "c1", "st9", "Ann", "Math", grade.FirstPeriod, testutil.Float(100), grade.StatusApproved)

	// the seeded Math grades belong to "t-Math"
	records, err := gradeRepo.QueryGrades(ctx(), grade.QueryFilter{SchoolID: "s1", Subject: "Math"})
	require.NoError(t, err)
	for _, rec := range records {
		rec.TeacherID = teacher.ID
		_, err = gradeRepo.UpsertGrade(ctx(), rec)
		require.NoError(t, err)
	}
	return admin, teacher, student
}

func Test_reportApi_validation(t *testing.T) {
	admin, _, _ := seedClass(t)
	token := getToken(t, admin)

	runHTTPTests(t, []httpTest{
		{name: "auth required", path: "/v1/reports/yearly", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{
			name: "required", path: "/v1/reports/yearly", token: token, wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"academicYear": "this field is required", "classId": "this field is required"}),
		},
		{
			name: "invalid period", path: "/v1/reports/periodic?academicYear=2020/2021&classId=c1&period=nope", token: token,
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"period": "invalid period"}),
		},
		{
			name: "periodic requires a period", path: "/v1/reports/periodic?academicYear=2020/2021&classId=c1", token: token,
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"period": grade.ErrPeriodRequired.Error()}),
		},
	})
}

func Test_reportApi_periodic(t *testing.T) {
	admin, _, student := seedClass(t)
	path := "/v1/reports/periodic?academicYear=2020/2021&classId=c1&period=firstPeriod"

	t.Run("admin", func(t *testing.T) {
		resp := getReport[[]grade.StudentPeriodicReport](t, path, getToken(t, admin))
		assert.Equal(t, "c1", resp.Data.ClassID)
		assert.Equal(t, grade.FirstPeriod, resp.Data.Period)
		assert.Equal(t, []string{}, resp.Data.StudentIDs)

		report := resp.Data.Report
		if assert.Len(t, report, 3) {
			// st2: 90, Hero: 75, st3: 60 (1 incomplete)
			assert.Equal(t, []string{"st2", student.ID, "st3"}, []string{report[0].StudentID, report[1].StudentID, report[2].StudentID})
			assert.Equal(t, []int{1, 2, 3}, []int{report[0].Rank, report[1].Rank, report[2].Rank})
			assert.Equal(t, 75.0, report[1].PeriodicAverage)
			assert.Equal(t, 1, report[2].Incompletes)
		}
	})

	t.Run("student only sees their row", func(t *testing.T) {
		resp := getReport[[]grade.StudentPeriodicReport](t, path+"&studentId=st2", getToken(t, student))
		assert.Equal(t, []string{student.ID}, resp.Data.StudentIDs)
		if assert.Len(t, resp.Data.Report, 1) {
			assert.Equal(t, student.ID, resp.Data.Report[0].StudentID)
			assert.Equal(t, 2, resp.Data.Report[0].Rank, "ranked against the whole class")
		}
	})
}

func Test_reportApi_yearly(t *testing.T) {
	admin, _, student := seedClass(t)
	path := "/v1/reports/yearly?academicYear=2020/2021&classId=c1"

	resp := getReport[[]grade.StudentYearlyReport](t, path+"&studentId="+student.ID, getToken(t, admin))
	if assert.Len(t, resp.Data.Report, 1) {
		hero := resp.Data.Report[0]
		// Math: round((70+100)/2) = 85, French: 80
		assert.Equal(t, map[string]float64{"Math": 85, "French": 80}, hero.FirstSemesterAverage)
		assert.Equal(t, 82.5, hero.YearlyAverage)
		// st2: (85+90)/2 = 87.5, st3: 60
		assert.Equal(t, 2, hero.Ranks[grade.KeyYearly])
	}
}

func Test_reportApi_masters(t *testing.T) {
	admin, teacher, _ := seedClass(t)
	path := "/v1/reports/masters?academicYear=2020/2021&classId=c1"

	t.Run("admin, all subjects", func(t *testing.T) {
		resp := getReport[grade.MastersReport](t, path, getToken(t, admin))
		report := resp.Data.Report
		assert.Equal(t, grade.AllSubjects, report.Subject)
		assert.Equal(t, grade.AllTeachers, report.TeacherID)
		assert.Len(t, report.Students, 3)
		assert.Equal(t, 2, report.PeriodStats[grade.SecondPeriod].TotalStudents)
	})

	t.Run("teacher is scoped to their subjects", func(t *testing.T) {
		resp := getReport[grade.MastersReport](t, path+"&teacherId=someone", getToken(t, teacher))
		report := resp.Data.Report
		assert.Equal(t, teacher.ID, report.TeacherID)
		assert.Equal(t, grade.Stats{Passes: 2, Fails: 1, Average: 73.3, TotalStudents: 3}, report.PeriodStats[grade.FirstPeriod])
	})
}

func Test_metrics(t *testing.T) {
	admin, _, _ := seedClass(t)
	getReport[grade.MastersReport](t, "/v1/reports/masters?academicYear=2020/2021&classId=c1", getToken(t, admin))

	rec := serve(httpTest{path: "/metrics"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `gradebook_reports_served_total{kind="masters"}`), body)
	assert.True(t, strings.Contains(body, `gradebook_http_requests_total{code="200",method="GET",route="/v1/reports/masters"}`), body)
}
