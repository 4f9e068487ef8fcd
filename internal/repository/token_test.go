package repository

import (
	"testing"
	"time"

	"github.com/imagedrop/imagedrop/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestToken(t *testing.T, repo TokenRepository, userID string, expiresAt time.Time) *model.Token {
	t.Helper()
	token := &model.Token{
		UserID:    userID,
		Name:      "cli",
		TokenHash: "$2a$10$abcdefghijklmnopqrstuv",
		ExpiresAt: expiresAt,
	}
	require.NoError(t, repo.Create(token))
	return token
}

func TestTokenRepositoryCreateAndGet(t *testing.T) {
	database := testDB(t)
	repo := NewTokenRepository(database)
	user := createTestUser(t, database)

	token := createTestToken(t, repo, user.ID, time.Now().Add(time.Hour))
	assert.NotEmpty(t, token.ID, "Create fills in a generated id")

	got, err := repo.ByID(token.ID)
	require.NoError(t, err)
	assert.Equal(t, token.UserID, got.UserID)
	assert.Equal(t, token.TokenHash, got.TokenHash)
	assert.Nil(t, got.LastUsedAt)
}

func TestTokenRepositoryByIDNotFound(t *testing.T) {
	database := testDB(t)
	repo := NewTokenRepository(database)

	_, err := repo.ByID("missing")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestTokenRepositoryTouch(t *testing.T) {
	database := testDB(t)
	repo := NewTokenRepository(database)
	user := createTestUser(t, database)
	token := createTestToken(t, repo, user.ID, time.Now().Add(time.Hour))

	require.NoError(t, repo.Touch(token.ID))

	got, err := repo.ByID(token.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.LastUsedAt)
}

func TestTokenRepositoryDeleteScopedToUser(t *testing.T) {
	database := testDB(t)
	repo := NewTokenRepository(database)
	owner := createTestUser(t, database)
	other := createTestUser(t, database)
	token := createTestToken(t, repo, owner.ID, time.Now().Add(time.Hour))

	err := repo.Delete(token.ID, other.ID)
	assert.ErrorIs(t, err, ErrTokenNotFound)

	require.NoError(t, repo.Delete(token.ID, owner.ID))
	_, err = repo.ByID(token.ID)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestTokenRepositoryDeleteExpired(t *testing.T) {
	database := testDB(t)
	repo := NewTokenRepository(database)
	user := createTestUser(t, database)

	expired := createTestToken(t, repo, user.ID, time.Now().Add(-time.Hour))
	live := createTestToken(t, repo, user.ID, time.Now().Add(time.Hour))

	require.NoError(t, repo.DeleteExpired())

	_, err := repo.ByID(expired.ID)
	assert.ErrorIs(t, err, ErrTokenNotFound)
	_, err = repo.ByID(live.ID)
	assert.NoError(t, err)
}
