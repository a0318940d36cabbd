package service

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/Aliwes1999/Interface-for-MBSE-Models/internal/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBSeq atomic.Int64

// openTestDB opens a fresh in-memory database per test. The shared-cache DSN
// keeps all of gorm's pooled connections on the same database.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	err = db.AutoMigrate(
		&model.User{},
		&model.Project{},
		&model.Requirement{},
		&model.RequirementVersion{},
		&model.File{},
		&model.AISetting{},
		&model.OperationLog{},
	)
	if err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

func createUser(t *testing.T, db *gorm.DB, email string) *model.User {
	t.Helper()
	user := &model.User{Email: email, PasswordHash: "x"}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return user
}

func createProject(t *testing.T, db *gorm.DB, ownerID uint, name string) *model.Project {
	t.Helper()
	project := &model.Project{Name: name, OwnerID: ownerID, CustomColumns: model.StringList{}}
	if err := db.Create(project).Error; err != nil {
		t.Fatalf("create project %s: %v", name, err)
	}
	return project
}

func shareProject(t *testing.T, db *gorm.DB, projectID, userID uint) {
	t.Helper()
	err := db.Exec("INSERT INTO project_shares (project_id, user_id) VALUES (?, ?)", projectID, userID).Error
	if err != nil {
		t.Fatalf("share project: %v", err)
	}
}
