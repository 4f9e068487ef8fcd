package repository

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/imagedrop/imagedrop/internal/db"
	"github.com/imagedrop/imagedrop/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// testDB opens an in-memory sqlite database with migrations applied.
// A single connection is forced so every query sees the same database.
func testDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := sqlx.Connect("sqlite", ":memory:")
	require.NoError(t, err)
	database.SetMaxOpenConns(1)

	err = db.RunMigrations(database.DB, "sqlite")
	require.NoError(t, err)

	t.Cleanup(func() { _ = database.Close() })
	return database
}

func createTestUser(t *testing.T, database *sqlx.DB) *model.User {
	t.Helper()

	repo := NewUserRepository(database)
	user := &model.User{
		ID:         uuid.New().String(),
		Email:      uuid.New().String() + "@example.com",
		Name:       "Test User",
		Provider:   model.ProviderGitHub,
		ProviderID: uuid.New().String(),
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, repo.Create(user))
	return user
}
