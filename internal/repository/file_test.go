package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/imagedrop/imagedrop/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestFile(t *testing.T, repo FileRepository, userID string, createdAt time.Time) *model.File {
	t.Helper()

	file := &model.File{
		ID:          uuid.New().String(),
		UserID:      userID,
		Name:        "photo.png",
		Type:        "image/png",
		ContentType: "image/png",
		URL:         "https://storage.example.com/love-img/" + uuid.New().String() + ".png",
		Path:        "/love-img/" + uuid.New().String() + ".png",
		CreatedAt:   createdAt,
	}
	require.NoError(t, repo.Create(file))
	return file
}

func TestFileRepositoryListOrder(t *testing.T) {
	database := testDB(t)
	user := createTestUser(t, database)
	repo := NewFileRepository(database)

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 5; i++ {
		createTestFile(t, repo, user.ID, base.Add(time.Duration(i)*time.Second))
	}

	files, err := repo.List(user.ID)
	require.NoError(t, err)
	require.Len(t, files, 5)

	for i := 1; i < len(files); i++ {
		assert.False(t, files[i].CreatedAt.After(files[i-1].CreatedAt),
			"expected non-increasing created_at at index %d", i)
	}
}

func TestFileRepositoryListTieBreak(t *testing.T) {
	database := testDB(t)
	user := createTestUser(t, database)
	repo := NewFileRepository(database)

	// Identical timestamps: order must still be deterministic (id descending)
	ts := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 4; i++ {
		createTestFile(t, repo, user.ID, ts)
	}

	files, err := repo.List(user.ID)
	require.NoError(t, err)
	require.Len(t, files, 4)

	for i := 1; i < len(files); i++ {
		assert.Equal(t, files[i-1].CreatedAt, files[i].CreatedAt)
		assert.Greater(t, files[i-1].ID, files[i].ID)
	}
}

func TestFileRepositoryListPage(t *testing.T) {
	database := testDB(t)
	user := createTestUser(t, database)
	repo := NewFileRepository(database)

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 25; i++ {
		createTestFile(t, repo, user.ID, base.Add(time.Duration(i)*time.Second))
	}

	all, err := repo.List(user.ID)
	require.NoError(t, err)
	require.Len(t, all, 25)

	// Walk pages of 10 and verify the union equals the full list with no repeats
	var paged []*model.File
	var before *FileCursor
	for {
		page, err := repo.ListPage(user.ID, 10, before)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		assert.LessOrEqual(t, len(page), 10)
		paged = append(paged, page...)

		last := page[len(page)-1]
		before = &FileCursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}

	require.Len(t, paged, len(all))
	seen := map[string]bool{}
	for i, f := range paged {
		assert.False(t, seen[f.ID], "record repeated across pages")
		seen[f.ID] = true
		assert.Equal(t, all[i].ID, f.ID, "paged order diverges from full list at %d", i)
	}
}

func TestFileRepositoryListPageTies(t *testing.T) {
	database := testDB(t)
	user := createTestUser(t, database)
	repo := NewFileRepository(database)

	// All records share one timestamp; pagination must still partition cleanly
	ts := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 7; i++ {
		createTestFile(t, repo, user.ID, ts)
	}

	var paged []*model.File
	var before *FileCursor
	for {
		page, err := repo.ListPage(user.ID, 3, before)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		paged = append(paged, page...)
		last := page[len(page)-1]
		before = &FileCursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}

	require.Len(t, paged, 7)
	seen := map[string]bool{}
	for _, f := range paged {
		require.False(t, seen[f.ID])
		seen[f.ID] = true
	}
}

func TestFileRepositorySoftDelete(t *testing.T) {
	database := testDB(t)
	user := createTestUser(t, database)
	repo := NewFileRepository(database)

	file := createTestFile(t, repo, user.ID, time.Now().UTC())

	require.NoError(t, repo.SoftDelete(file.ID, user.ID))

	_, err := repo.ByID(file.ID)
	assert.ErrorIs(t, err, ErrFileNotFound)

	files, err := repo.List(user.ID)
	require.NoError(t, err)
	assert.Empty(t, files)

	// Second delete of the same row reports not found
	err = repo.SoftDelete(file.ID, user.ID)
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestFileRepositorySoftDeleteWrongUser(t *testing.T) {
	database := testDB(t)
	user := createTestUser(t, database)
	other := createTestUser(t, database)
	repo := NewFileRepository(database)

	file := createTestFile(t, repo, user.ID, time.Now().UTC())

	err := repo.SoftDelete(file.ID, other.ID)
	assert.ErrorIs(t, err, ErrFileNotFound)

	got, err := repo.ByID(file.ID)
	require.NoError(t, err)
	assert.Equal(t, file.ID, got.ID)
}

func TestFileRepositoryListScopedToUser(t *testing.T) {
	database := testDB(t)
	alice := createTestUser(t, database)
	bob := createTestUser(t, database)
	repo := NewFileRepository(database)

	for i := 0; i < 3; i++ {
		createTestFile(t, repo, alice.ID, time.Now().UTC().Add(time.Duration(i)*time.Second))
	}
	createTestFile(t, repo, bob.ID, time.Now().UTC())

	files, err := repo.List(alice.ID)
	require.NoError(t, err)
	assert.Len(t, files, 3)
	for _, f := range files {
		assert.Equal(t, alice.ID, f.UserID)
	}
}

func TestFileRepositoryDuplicatePathsAllowed(t *testing.T) {
	database := testDB(t)
	user := createTestUser(t, database)
	repo := NewFileRepository(database)

	// Saving the same path twice produces two distinct rows; the schema
	// places no uniqueness constraint on (user, path)
	path := "/love-img/same.png"
	for i := 0; i < 2; i++ {
		file := &model.File{
			ID:          uuid.New().String(),
			UserID:      user.ID,
			Name:        fmt.Sprintf("same-%d.png", i),
			Type:        "image/png",
			ContentType: "image/png",
			URL:         "https://storage.example.com" + path,
			Path:        path,
			CreatedAt:   time.Now().UTC(),
		}
		require.NoError(t, repo.Create(file))
	}

	files, err := repo.List(user.ID)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}
