package echoapi_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/gradebook/apps/api/echo"
	"github.com/trezcool/gradebook/core/grade"
	"github.com/trezcool/gradebook/core/user"
	emailsvc "github.com/trezcool/gradebook/services/email"
	"github.com/trezcool/gradebook/tests"
)

func Test_gradeApi_submit(t *testing.T) {
	db.Reset()

	admin := testutil.CreateUser(t, usrRepo, "s1", "Admin", "admin", "admin@s1.cd", "", []string{user.RoleAdmin}, true)
	teacher := testutil.CreateUser(t, usrRepo, "s1", "Teacher", "teacher", "teacher@s1.cd", "", []string{user.RoleTeacher}, true)
	student := testutil.CreateUser(t, usrRepo, "s1", "Hero", "hero", "hero@s1.cd", "", []string{user.RoleStudent}, true)

	body := func(g interface{}, modify ...func(m map[string]interface{})) []byte {
		m := map[string]interface{}{
			"studentId":    student.ID,
			"studentName":  student.Name,
			"classId":      "c1",
			"subject":      "Math",
			"period":       "firstPeriod",
			"academicYear": "2020/2021",
			"teacherId":    "someone-else",
			"grade":        g,
		}
		for _, fn := range modify {
			fn(m)
		}
		return marshalObj(t, m)
	}

	runHTTPTests(t, []httpTest{
		{name: "auth required", method: http.MethodPost, path: "/v1/grades", body: body(80), wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{
			name: "students cannot submit", method: http.MethodPost, path: "/v1/grades", body: body(80),
			token: getToken(t, student), wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden),
		},
		{
			name: "grade out of range", method: http.MethodPost, path: "/v1/grades", body: body(59),
			token: getToken(t, teacher), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"grade": "grade must be between 60 and 100"}),
		},
		{
			name: "invalid period & year", method: http.MethodPost, path: "/v1/grades",
			body: body(80, func(m map[string]interface{}) {
				m["period"] = "lastPeriod"
				m["academicYear"] = "2020"
			}),
			token: getToken(t, teacher), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{
				"period":       "invalid period",
				"academicYear": "academic year must be of form YYYY/YYYY (e.g. 2020/2021)",
			}),
		},
	})

	t.Run("teacher", func(t *testing.T) {
		rec := serve(httpTest{method: http.MethodPost, path: "/v1/grades", body: body(80), token: getToken(t, teacher)})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var got grade.Record
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "s1", got.SchoolID)
		assert.Equal(t, teacher.ID, got.TeacherID, "teachers submit as themselves")
		assert.Equal(t, grade.StatusPending, got.Status)
		assert.Equal(t, 80.0, got.Grade.Float64)
	})

	t.Run("admin, incomplete", func(t *testing.T) {
		rec := serve(httpTest{method: http.MethodPost, path: "/v1/grades", body: body(nil), token: getToken(t, admin)})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var got grade.Record
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "someone-else", got.TeacherID)
		assert.False(t, got.Grade.Valid)
	})

	records, err := gradeRepo.QueryGrades(ctx(), grade.QueryFilter{})
	require.NoError(t, err)
	assert.Len(t, records, 1, "same slot is replaced")
}

func Test_gradeApi_query(t *testing.T) {
	db.Reset()

	admin := testutil.CreateUser(t, usrRepo, "s1", "Admin", "admin", "admin@s1.cd", "", []string{user.RoleAdmin}, true)
	teacher := testutil.CreateUser(t, usrRepo, "s1", "Teacher", "teacher", "teacher@s1.cd", "", []string{user.RoleTeacher}, true)
	student := testutil.CreateUser(t, usrRepo, "s1", "Hero", "hero", "hero@s1.cd", "", []string{user.RoleStudent}, true)

	// teacher of Math is "t-Math"
	g1 := testutil.CreateGrade(t, gradeRepo, "s1", "c1", student.ID, "Hero", "Math", grade.FirstPeriod, testutil.Float(90), grade.StatusApproved)
	g2 := testutil.CreateGrade(t, gradeRepo, "s1", "c1", "st2", "Jim", "Math", grade.FirstPeriod, testutil.Float(65), grade.StatusPending)
	g3 := testutil.CreateGrade(t, gradeRepo, "s1", "c1", student.ID, "Hero", "French", grade.FirstPeriod, nil, grade.StatusPending)
	testutil.CreateGrade(t, gradeRepo, "s2", "c1", "st9", "Ann", "Math", grade.FirstPeriod, testutil.Float(100), grade.StatusPending)

	resp := func(stats grade.Stats, records ...grade.Record) []byte {
		if records == nil {
			records = []grade.Record{}
		}
		return marshalObj(t, echoapi.GradesResponse{Success: true, Data: echoapi.GradesData{Grades: records, Stats: stats}})
	}

	runHTTPTests(t, []httpTest{
		{name: "auth required", path: "/v1/grades", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{
			name: "admin sees the school", path: "/v1/grades", token: getToken(t, admin),
			wantData: resp(grade.Stats{Incompletes: 1, Passes: 1, Fails: 1, Average: 77.5, TotalStudents: 3}, g1, g2, g3),
		},
		{
			name: "filters", path: "/v1/grades?subject=Math&status=Pending", token: getToken(t, admin),
			wantData: resp(grade.Stats{Fails: 1, Average: 65, TotalStudents: 1}, g2),
		},
		{
			name: "students see their own", path: "/v1/grades?studentId=st2", token: getToken(t, student),
			wantData: resp(grade.Stats{Incompletes: 1, Passes: 1, Average: 90, TotalStudents: 2}, g1, g3),
		},
		{name: "teachers see their own", path: "/v1/grades", token: getToken(t, teacher), wantData: resp(grade.Stats{})},
	})
}

func Test_gradeApi_review(t *testing.T) {
	db.Reset()
	emailsvc.ResetSentMessages()

	admin := testutil.CreateUser(t, usrRepo, "s1", "Admin", "admin", "admin@s1.cd", "", []string{user.RoleAdmin}, true)
	teacher := testutil.CreateUser(t, usrRepo, "s1", "Teacher", "teacher", "teacher@s1.cd", "", []string{user.RoleTeacher}, true)
	otherAdmin := testutil.CreateUser(t, usrRepo, "s2", "Other", "other", "other@s2.cd", "", []string{user.RoleAdmin}, true)

	rec, err := gradeRepo.UpsertGrade(ctx(), grade.Record{
		ID: "9b2f1e2c-3f0a-4a5e-8f36-1c2d3e4f5a6b", SchoolID: "s1", StudentID: "st1", StudentName: "Hero", ClassID: "c1",
		Subject: "Math", Period: grade.FirstPeriod, AcademicYear: "2020/2021", TeacherID: teacher.ID, Status: grade.StatusPending,
	})
	require.NoError(t, err)
	path := "/v1/grades/" + rec.ID + "/review"

	runHTTPTests(t, []httpTest{
		{
			name: "admin required", method: http.MethodPut, path: path, body: []byte(`{"status":"Approved"}`),
			token: getToken(t, teacher), wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden),
		},
		{
			name: "cannot set back to pending", method: http.MethodPut, path: path, body: []byte(`{"status":"Pending"}`),
			token: getToken(t, admin), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"status": "a grade can only be approved or rejected"}),
		},
		{
			name: "other school", method: http.MethodPut, path: path, body: []byte(`{"status":"Approved"}`),
			token: getToken(t, otherAdmin), wantCode: http.StatusNotFound, wantData: marshalObj(t, errNotFound),
		},
		{
			name: "approved", method: http.MethodPut, path: path, body: []byte(`{"status":"Approved"}`),
			token: getToken(t, admin),
		},
		{
			name: "already reviewed", method: http.MethodPut, path: path, body: []byte(`{"status":"Rejected"}`),
			token: getToken(t, admin), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Error: grade.ErrAlreadyReviewed.Error()}),
		},
	})

	sent := emailsvc.SentMessages()
	if assert.Len(t, sent, 1) {
		assert.Equal(t, teacher.Email, sent[0].To[0].Address)
		assert.Contains(t, sent[0].TextContent, "has been Approved")
	}
}

func Test_gradeApi_destroy(t *testing.T) {
	db.Reset()

	admin := testutil.CreateUser(t, usrRepo, "s1", "Admin", "admin", "admin@s1.cd", "", []string{user.RoleAdmin}, true)
	rec := testutil.CreateGrade(t, gradeRepo, "s1", "c1", "st1", "Hero", "Math", grade.FirstPeriod, testutil.Float(90), grade.StatusApproved)

	runHTTPTests(t, []httpTest{
		{name: "deleted", method: http.MethodDelete, path: "/v1/grades/" + rec.ID, token: getToken(t, admin), wantCode: http.StatusNoContent},
		{
			name: "not found", method: http.MethodDelete, path: "/v1/grades/" + rec.ID, token: getToken(t, admin),
			wantCode: http.StatusNotFound, wantData: marshalObj(t, errNotFound),
		},
	})
}
