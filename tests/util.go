// Package testutil holds the fixtures shared by the packages tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/educryption/core"
	"github.com/trezcool/educryption/core/user"
	"github.com/trezcool/educryption/storage/database"
	dummydb "github.com/trezcool/educryption/storage/database/dummy"
)

// NopLogger discards every log.
type NopLogger struct{}

var _ core.Logger = NopLogger{}

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}
func (NopLogger) Fatal(string, ...interface{}) {}

// NewConfig returns the TEST config, uploading into a temporary directory.
func NewConfig(t *testing.T) *core.Config {
	t.Helper()
	t.Setenv("ENV", "TEST")
	conf := core.NewConfig()
	conf.Database.Engine = core.EngineMemory
	conf.Uploads.Dir = t.TempDir()
	return conf
}

// PrepareDB returns the repositories of a fresh in-memory database.
func PrepareDB(t *testing.T) *database.Repos {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	return database.NewMemoryRepos(db)
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	fullName, uname, email, pwd string,
	roles []string,
	active bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	status := user.StatusActive
	if !active {
		status = user.StatusInactive
	}
	if roles == nil {
		roles = []string{user.RoleStudent}
	}
	usr := user.User{
		FullName:            fullName,
		Username:            uname,
		Email:               email,
		Roles:               roles,
		Status:              status,
		UnitsUnlocked:       []string{},
		UnitsCompleted:      []string{},
		ContentsRead:        []string{},
		ActivitiesCompleted: []string{},
		CreatedAt:           tstamp,
		UpdatedAt:           tstamp,
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
