package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cloudconnect/cloudconnect/internal/database"
	"github.com/cloudconnect/cloudconnect/internal/models"
)

// MustOpenTestDB opens an in-memory SQLite database for tests with the schema
// migrated. The returned connection is automatically closed via t.Cleanup.
func MustOpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(database.Config{Driver: "sqlite"})
	require.NoError(t, err)

	require.NoError(t, database.AutoMigrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}

// MustCreateUser inserts a user row with the given ID so that items created
// for that owner satisfy the items.owner_id foreign key. Username and email
// are derived from the ID to keep their unique indexes happy.
func MustCreateUser(t *testing.T, db *gorm.DB, id string) {
	t.Helper()

	require.NoError(t, db.Create(&models.User{
		ID:       id,
		Username: "user-" + id,
		Email:    id + "@example.com",
		Password: "password",
	}).Error)
}
