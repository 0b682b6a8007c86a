// Package inmemdb keeps users and grades in memory. It backs the API tests and local runs without Postgres.
package inmemdb

import (
	"sync"

	"github.com/trezcool/gradebook/core/grade"
	"github.com/trezcool/gradebook/core/user"
)

type (
	DB struct {
		user  *userTable
		grade *gradeTable
	}

	userTable struct {
		mutex sync.RWMutex
		table map[string]*user.User
	}

	gradeTable struct {
		mutex sync.RWMutex
		table map[string]*grade.Record
		order []string // insertion order of ids
	}
)

func Open() *DB {
	return &DB{
		user:  &userTable{table: make(map[string]*user.User)},
		grade: &gradeTable{table: make(map[string]*grade.Record)},
	}
}

// Reset drops every user and grade.
func (db *DB) Reset() {
	db.user.mutex.Lock()
	db.user.table = make(map[string]*user.User)
	db.user.mutex.Unlock()

	db.grade.mutex.Lock()
	db.grade.table = make(map[string]*grade.Record)
	db.grade.order = nil
	db.grade.mutex.Unlock()
}
