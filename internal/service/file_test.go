package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/imagedrop/imagedrop/internal/model"
	"github.com/imagedrop/imagedrop/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -------- test fakes --------

// fakeStorage signs path-style URLs like the real client; bucket is the
// first path segment.
type fakeStorage struct {
	bucket     string
	presignErr error
	presigned  []string // keys presigned, in order
	deleted    []string
}

func (f *fakeStorage) bucketName() string {
	if f.bucket == "" {
		return "bucket"
	}
	return f.bucket
}

func (f *fakeStorage) PresignUpload(ctx context.Context, key, contentType string, size int64, expiry time.Duration) (string, error) {
	if f.presignErr != nil {
		return "", f.presignErr
	}
	f.presigned = append(f.presigned, key)
	return fmt.Sprintf("https://storage.example.com/%s/%s?X-Amz-Signature=abc", f.bucketName(), key), nil
}

func (f *fakeStorage) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return fmt.Sprintf("https://storage.example.com/%s/%s", f.bucketName(), key), nil
}

func (f *fakeStorage) Delete(ctx context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeStorage) KeyForPath(path string) string {
	key := strings.TrimPrefix(path, "/")
	if rest, ok := strings.CutPrefix(key, f.bucketName()+"/"); ok {
		return rest
	}
	return key
}

func (f *fakeStorage) PublicURL(key string) string {
	return fmt.Sprintf("https://storage.example.com/%s/%s", f.bucketName(), key)
}

type fakeFileRepo struct {
	files     []*model.File
	createErr error
}

func (f *fakeFileRepo) Create(file *model.File) error {
	if f.createErr != nil {
		return f.createErr
	}
	copied := *file
	f.files = append(f.files, &copied)
	return nil
}

func (f *fakeFileRepo) ByID(id string) (*model.File, error) {
	for _, file := range f.files {
		if file.ID == id && file.DeleteAt == nil {
			return file, nil
		}
	}
	return nil, repository.ErrFileNotFound
}

func (f *fakeFileRepo) List(userID string) ([]*model.File, error) {
	var out []*model.File
	for _, file := range f.files {
		if file.UserID == userID && file.DeleteAt == nil {
			out = append(out, file)
		}
	}
	sortFiles(out)
	return out, nil
}

func (f *fakeFileRepo) ListPage(userID string, limit int, before *repository.FileCursor) ([]*model.File, error) {
	all, _ := f.List(userID)
	var out []*model.File
	for _, file := range all {
		if before != nil {
			after := file.CreatedAt.After(before.CreatedAt) ||
				(file.CreatedAt.Equal(before.CreatedAt) && file.ID >= before.ID)
			if after {
				continue
			}
		}
		out = append(out, file)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeFileRepo) SoftDelete(id, userID string) error {
	for _, file := range f.files {
		if file.ID == id && file.UserID == userID && file.DeleteAt == nil {
			now := time.Now()
			file.DeleteAt = &now
			return nil
		}
	}
	return repository.ErrFileNotFound
}

func sortFiles(files []*model.File) {
	sort.SliceStable(files, func(i, j int) bool {
		if !files[i].CreatedAt.Equal(files[j].CreatedAt) {
			return files[i].CreatedAt.After(files[j].CreatedAt)
		}
		return files[i].ID > files[j].ID
	})
}

func newTestFileService(repo repository.FileRepository, storage *fakeStorage) *FileService {
	return NewFileService(repo, storage, "love-img", 5*time.Minute, 20<<20)
}

// -------- presign --------

func TestCreatePresignedUpload(t *testing.T) {
	storage := &fakeStorage{}
	svc := newTestFileService(&fakeFileRepo{}, storage)

	presigned, err := svc.CreatePresignedUpload(context.Background(), "cat.PNG", "image/png", 1024)
	require.NoError(t, err)

	assert.Equal(t, "PUT", presigned.Method)
	assert.True(t, strings.HasPrefix(presigned.Key, "love-img/"), "key %q not under prefix", presigned.Key)
	assert.True(t, strings.HasSuffix(presigned.Key, ".png"), "key %q should keep the extension", presigned.Key)
	assert.NotContains(t, presigned.Key, "cat", "caller-supplied name must not reach the storage path")
	assert.Contains(t, presigned.URL, presigned.Key)
}

func TestCreatePresignedUploadUniqueKeys(t *testing.T) {
	storage := &fakeStorage{}
	svc := newTestFileService(&fakeFileRepo{}, storage)

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		presigned, err := svc.CreatePresignedUpload(context.Background(), "same.png", "image/png", 10)
		require.NoError(t, err)
		require.False(t, seen[presigned.Key], "key %q issued twice", presigned.Key)
		seen[presigned.Key] = true
	}
}

func TestCreatePresignedUploadValidation(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		contentType string
		size        int64
	}{
		{"empty filename", "", "image/png", 10},
		{"empty content type", "a.png", "", 10},
		{"negative size", "a.png", "image/png", -1},
		{"oversized", "a.png", "image/png", 21 << 20},
		{"disallowed content type", "a.pdf", "application/pdf", 10},
		{"disallowed extension", "a.exe", "image/png", 10},
	}

	svc := newTestFileService(&fakeFileRepo{}, &fakeStorage{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreatePresignedUpload(context.Background(), tt.filename, tt.contentType, tt.size)
			var validationErr *ValidationError
			assert.ErrorAs(t, err, &validationErr)
		})
	}
}

func TestCreatePresignedUploadZeroSize(t *testing.T) {
	svc := newTestFileService(&fakeFileRepo{}, &fakeStorage{})

	_, err := svc.CreatePresignedUpload(context.Background(), "empty.png", "image/png", 0)
	assert.NoError(t, err)
}

func TestCreatePresignedUploadSigningFailure(t *testing.T) {
	storage := &fakeStorage{presignErr: errors.New("connection refused")}
	svc := newTestFileService(&fakeFileRepo{}, storage)

	_, err := svc.CreatePresignedUpload(context.Background(), "a.png", "image/png", 10)
	assert.ErrorIs(t, err, ErrStorageSigning)

	var validationErr *ValidationError
	assert.False(t, errors.As(err, &validationErr), "signing failure is internal, not a validation error")
}

// -------- save --------

func TestSaveFileStripsQuery(t *testing.T) {
	repo := &fakeFileRepo{}
	svc := newTestFileService(repo, &fakeStorage{})

	rawURL := "https://host/love-img/abc.png?X-Amz-Signature=deadbeef&X-Amz-Expires=300"
	file, err := svc.SaveFile(context.Background(), "user-1", "abc.png", rawURL, "image/png")
	require.NoError(t, err)

	assert.Equal(t, "/love-img/abc.png", file.Path)
	assert.Equal(t, rawURL, file.URL)
	assert.Equal(t, "user-1", file.UserID)
	assert.Equal(t, "image/png", file.ContentType)
	assert.NotEmpty(t, file.ID)
	require.Len(t, repo.files, 1)
}

func TestSaveFileInvalidURL(t *testing.T) {
	svc := newTestFileService(&fakeFileRepo{}, &fakeStorage{})

	for _, raw := range []string{"", "not a url", "/relative/only"} {
		_, err := svc.SaveFile(context.Background(), "user-1", "a.png", raw, "image/png")
		var validationErr *ValidationError
		assert.ErrorAs(t, err, &validationErr, "url %q", raw)
	}
}

func TestSaveFileNameRequired(t *testing.T) {
	svc := newTestFileService(&fakeFileRepo{}, &fakeStorage{})

	_, err := svc.SaveFile(context.Background(), "user-1", "  ", "https://host/a.png", "image/png")
	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestSaveFileDuplicatePath(t *testing.T) {
	repo := &fakeFileRepo{}
	svc := newTestFileService(repo, &fakeStorage{})

	// No dedupe on path: two saves yield two distinct records
	rawURL := "https://host/love-img/dup.png"
	first, err := svc.SaveFile(context.Background(), "user-1", "dup.png", rawURL, "image/png")
	require.NoError(t, err)
	second, err := svc.SaveFile(context.Background(), "user-1", "dup.png", rawURL, "image/png")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Len(t, repo.files, 2)
}

// -------- list --------

func seedFiles(t *testing.T, repo *fakeFileRepo, userID string, n int) {
	t.Helper()
	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < n; i++ {
		err := repo.Create(&model.File{
			ID:        fmt.Sprintf("id-%03d", i),
			UserID:    userID,
			Name:      fmt.Sprintf("f%d.png", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}
}

func TestListFilesPagePartitionsFullList(t *testing.T) {
	repo := &fakeFileRepo{}
	svc := newTestFileService(repo, &fakeStorage{})
	seedFiles(t, repo, "user-1", 23)

	all, err := svc.ListFiles(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, all, 23)

	var paged []*model.File
	cursor := ""
	pages := 0
	for {
		page, err := svc.ListFilesPage(context.Background(), "user-1", 10, cursor)
		require.NoError(t, err)
		require.LessOrEqual(t, len(page.Files), 10)
		paged = append(paged, page.Files...)
		pages++
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	assert.Equal(t, 3, pages)
	require.Len(t, paged, len(all))
	for i := range all {
		assert.Equal(t, all[i].ID, paged[i].ID)
	}
}

func TestListFilesPageLastPageExactFit(t *testing.T) {
	repo := &fakeFileRepo{}
	svc := newTestFileService(repo, &fakeStorage{})
	seedFiles(t, repo, "user-1", 10)

	page, err := svc.ListFilesPage(context.Background(), "user-1", 10, "")
	require.NoError(t, err)
	assert.Len(t, page.Files, 10)
	assert.Empty(t, page.NextCursor, "exactly one page, no next cursor")
}

func TestListFilesPageEmpty(t *testing.T) {
	svc := newTestFileService(&fakeFileRepo{}, &fakeStorage{})

	page, err := svc.ListFilesPage(context.Background(), "user-1", 10, "")
	require.NoError(t, err)
	assert.NotNil(t, page.Files)
	assert.Empty(t, page.Files)
	assert.Empty(t, page.NextCursor)
}

func TestListFilesPageInvalidCursor(t *testing.T) {
	svc := newTestFileService(&fakeFileRepo{}, &fakeStorage{})

	for _, cursor := range []string{"not-base64!", "bm9wZQ", "MTIzNDU"} {
		_, err := svc.ListFilesPage(context.Background(), "user-1", 10, cursor)
		var validationErr *ValidationError
		assert.ErrorAs(t, err, &validationErr, "cursor %q", cursor)
	}
}

func TestListFilesPageInvalidLimit(t *testing.T) {
	svc := newTestFileService(&fakeFileRepo{}, &fakeStorage{})

	for _, limit := range []int{0, -5, 101} {
		_, err := svc.ListFilesPage(context.Background(), "user-1", limit, "")
		var validationErr *ValidationError
		assert.ErrorAs(t, err, &validationErr, "limit %d", limit)
	}
}

// -------- delete --------

func TestDeleteFile(t *testing.T) {
	repo := &fakeFileRepo{}
	storage := &fakeStorage{}
	svc := newTestFileService(repo, storage)

	file, err := svc.SaveFile(context.Background(), "user-1", "a.png", "https://host/love-img/a.png", "image/png")
	require.NoError(t, err)

	err = svc.DeleteFile(context.Background(), "user-1", file.ID)
	require.NoError(t, err)

	files, err := svc.ListFiles(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.Equal(t, []string{"love-img/a.png"}, storage.deleted)
}

func TestDeleteFilePathStyleKey(t *testing.T) {
	repo := &fakeFileRepo{}
	storage := &fakeStorage{bucket: "mybucket"}
	svc := newTestFileService(repo, storage)

	// Path-style URL: the stored path starts with the bucket segment,
	// which must not leak into the delete key
	rawURL := "http://localhost:9000/mybucket/love-img/abc.png?X-Amz-Signature=sig"
	file, err := svc.SaveFile(context.Background(), "user-1", "abc.png", rawURL, "image/png")
	require.NoError(t, err)
	require.Equal(t, "/mybucket/love-img/abc.png", file.Path)

	err = svc.DeleteFile(context.Background(), "user-1", file.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"love-img/abc.png"}, storage.deleted)
}

func TestDeleteFileWrongUser(t *testing.T) {
	repo := &fakeFileRepo{}
	svc := newTestFileService(repo, &fakeStorage{})

	file, err := svc.SaveFile(context.Background(), "user-1", "a.png", "https://host/love-img/a.png", "image/png")
	require.NoError(t, err)

	err = svc.DeleteFile(context.Background(), "user-2", file.ID)
	assert.ErrorIs(t, err, repository.ErrFileNotFound)
}
