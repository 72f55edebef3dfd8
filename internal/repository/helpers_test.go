package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"visualroutine/internal/database"
	"visualroutine/internal/models"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Initialize(filepath.Join(t.TempDir(), "routine.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations(context.Background()))
	return db
}

func createTestUser(t *testing.T, db *database.DB, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email, Name: "Caregiver", PasswordHash: "hash"}
	require.NoError(t, NewUserRepository(db).CreateUser(context.Background(), user))
	return user
}

func createTestUserErr(repo *UserRepository, email string) error {
	return repo.CreateUser(context.Background(), &models.User{Email: email, Name: "Duplicate"})
}
