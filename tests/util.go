// Package testutil holds the fixtures shared by the package tests.
package testutil

import (
	"context"
	"database/sql"
	"io"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grade"
	"github.com/trezcool/gradebook/core/user"
	logsvc "github.com/trezcool/gradebook/services/logger"
	"github.com/trezcool/gradebook/storage/database"
)

// NewLogger returns a logger that reports nowhere.
func NewLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
}

// OpenDB opens and migrates the database at TEST_DATABASE_URL, skipping the test if it is not set.
func OpenDB(t *testing.T) *sql.DB {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := database.OpenURL(dbURL)
	if err != nil {
		t.Fatalf("OpenDB() failed: %v", err)
	}
	if err = database.Migrate(db); err != nil {
		t.Fatalf("OpenDB() failed to migrate: %v", err)
	}
	t.Cleanup(func() {
		_, _ = db.Exec("TRUNCATE grade, school_user")
		_ = db.Close()
	})
	return db
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	schoolID, name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		SchoolID:  schoolID,
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateGrade stores a grade as submitted by "t-<subject>" in academic year 2020/2021.
// A nil g records an incomplete grade.
func CreateGrade(
	t *testing.T,
	repo grade.Repository,
	schoolID, classID, studentID, studentName, subject string,
	period grade.Period,
	g *float64,
	status grade.Status,
) grade.Record {
	rec, err := repo.UpsertGrade(context.Background(), grade.Record{
		ID:           uuid.New().String(),
		SchoolID:     schoolID,
		StudentID:    studentID,
		StudentName:  studentName,
		ClassID:      classID,
		Subject:      subject,
		Period:       period,
		AcademicYear: "2020/2021",
		TeacherID:    "t-" + subject,
		Grade:        null.Float64FromPtr(g),
		Status:       status,
		LastUpdated:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateGrade() failed: %v", err)
	}
	return rec
}

// Float returns a pointer to f.
func Float(f float64) *float64 { return &f }
