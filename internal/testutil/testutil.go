// Package testutil holds helpers shared by package tests.
package testutil

import (
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"testing"

	"socialcal/backend/internal/database"
	"socialcal/backend/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var dbSeq atomic.Int64

// Logger returns a logger that discards output.
func Logger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// NewDB opens a private in-memory SQLite database with every table migrated.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbSeq.Add(1))

	db, err := database.Open(sqlite.Open(dsn), Logger())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// CreateUser inserts a user with a unique username derived from name.
func CreateUser(t *testing.T, db *gorm.DB, name string) models.User {
	t.Helper()
	user := models.User{
		FirstName: strings.ToUpper(name[:1]) + name[1:],
		LastName:  "Tester",
		Username:  name,
		Email:     name + "@example.com",
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}
