package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io/fs"
	"strconv"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grade"
	"github.com/trezcool/gradebook/core/user"
	emailsvc "github.com/trezcool/gradebook/services/email"
	inmemdb "github.com/trezcool/gradebook/storage/database/inmem"
	"github.com/trezcool/gradebook/tests"
)

const testPwd = "Gr@d3book!Xy"

var (
	usrRepo   user.Repository
	gradeRepo grade.Repository
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	conf := core.NewTestConfig()
	db := inmemdb.Open()
	usrRepo = inmemdb.NewUserRepository(db)
	gradeRepo = inmemdb.NewGradeRepository(db)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	grade.InitValidators(validate, translator)

	out := new(bytes.Buffer)
	return &commandLine{
		usrRepo:  usrRepo,
		usrSvc:   user.NewService(usrRepo),
		gradeSvc: grade.NewService(gradeRepo, usrRepo, nil, emailsvc.NewConsoleServiceMock(conf), testutil.NewLogger(conf)),
		validate: validate,
		out:      out,
	}, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "course", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Equal(t, tt.wantErrStr, err.Error())
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli, _ := setup(t)

	existing := testutil.CreateUser(t, usrRepo, "sch1", "Existing", "existing", "existing@test.cd", "mdr", []string{user.RoleStudent}, false)
	testutil.CreateUser(t, usrRepo, "sch2", "Other", "other", "other@test.cd", "mdr", nil, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no school", args: []string{"adduser", "-username", "awe"}, extra: extra{pwd: testPwd}, wantErr: errHelp},
		{name: "unknown role", args: []string{"adduser", "-school", "sch1", "-username", "awe", "-role", "janitor"}, extra: extra{pwd: testPwd}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-school", "sch1", "-username", "awe"}, wantErr: errHelp},
		{name: "weak password", args: []string{"adduser", "-school", "sch1", "-username", "awe", "-email", "awe@test.cd"}, extra: extra{pwd: "12345678"}, wantErrStr: "Field validation"},
		{name: "other school", args: []string{"adduser", "-school", "sch1", "-username", "other"}, extra: extra{pwd: testPwd}, wantErrStr: "\"other\" belongs to another school"},
		{name: "create", args: []string{"adduser", "-school", "sch1", "-name", "Awe", "-username", "awe", "-email", "awe@test.cd"}, extra: extra{pwd: testPwd}},
		{name: "update", args: []string{"adduser", "-school", "sch1", "-email", "EXISTING@test.cd", "-role", "teacher"}, extra: extra{pwd: testPwd}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrStr)
			default:
				assert.NoError(t, err)
			}
		})
	}

	ctx := context.Background()

	created, err := usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: "awe"})
	require.NoError(t, err)
	assert.Equal(t, "sch1", created.SchoolID)
	assert.Equal(t, "Awe", created.Name)
	assert.Equal(t, []string{user.RoleAdminOwner}, created.Roles)
	assert.NoError(t, created.CheckPassword(testPwd))

	updated, err := usrRepo.GetUser(ctx, user.GetFilter{ID: existing.ID})
	require.NoError(t, err)
	assert.True(t, updated.IsActive)
	assert.Equal(t, []string{user.RoleTeacher}, updated.Roles)
	assert.NoError(t, updated.CheckPassword(testPwd))
}

func Test_commandLine_report(t *testing.T) {
	cli, out := setup(t)

	testutil.CreateGrade(t, gradeRepo, "sch1", "c1", "st1", "Hero", "math", grade.FirstPeriod, testutil.Float(90), grade.StatusApproved)
	testutil.CreateGrade(t, gradeRepo, "sch1", "c1", "st1", "Hero", "english", grade.FirstPeriod, testutil.Float(80), grade.StatusApproved)
	testutil.CreateGrade(t, gradeRepo, "sch1", "c1", "st2", "Zero", "math", grade.FirstPeriod, testutil.Float(95), grade.StatusApproved)
	testutil.CreateGrade(t, gradeRepo, "sch1", "c1", "st2", "Zero", "english", grade.FirstPeriod, nil, grade.StatusPending)

	base := []string{"report", "-school", "sch1", "-year", "2020/2021", "-class", "c1"}

	tests := []cliTest{
		{name: "missing class", args: []string{"report", "-school", "sch1", "-year", "2020/2021"}, wantErr: errHelp},
		{name: "unknown kind", args: append(base, "-kind", "weekly"), wantErr: errUnknownKind},
		{name: "bad year", args: []string{"report", "-school", "sch1", "-year", "2020", "-class", "c1", "-kind", "yearly"}, wantErrStr: "academicyear"},
		{name: "periodic without period", args: append(base, "-kind", "periodic"), wantErrStr: grade.ErrPeriodRequired.Error()},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
			} else {
				assert.Contains(t, err.Error(), tt.wantErrStr)
			}
		})
	}

	t.Run("periodic", func(t *testing.T) {
		out.Reset()
		require.NoError(t, cli.run([]string{"admin", "report", "-school", "sch1", "-year", "2020/2021", "-class", "c1", "-kind", "periodic", "-period", "firstPeriod"}))

		var report []grade.StudentPeriodicReport
		require.NoError(t, json.Unmarshal(out.Bytes(), &report))
		require.Len(t, report, 2)
		assert.Equal(t, "st2", report[0].StudentID)
		assert.Equal(t, 95.0, report[0].PeriodicAverage)
		assert.Equal(t, 1, report[0].Incompletes)
		assert.Equal(t, 1, report[0].Rank)
		assert.Equal(t, "st1", report[1].StudentID)
		assert.Equal(t, 85.0, report[1].PeriodicAverage)
		assert.Equal(t, 2, report[1].Rank)
	})

	t.Run("masters for one student", func(t *testing.T) {
		out.Reset()
		require.NoError(t, cli.run([]string{"admin", "report", "-school", "sch1", "-year", "2020/2021", "-class", "c1", "-kind", "masters", "-students", "st2"}))

		var report grade.MastersReport
		require.NoError(t, json.Unmarshal(out.Bytes(), &report))
		assert.Equal(t, grade.AllSubjects, report.Subject)
		require.Len(t, report.Students, 1)
		assert.Equal(t, "st2", report.Students[0].StudentID)
	})
}
