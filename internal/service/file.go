package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/imagedrop/imagedrop/internal/model"
	"github.com/imagedrop/imagedrop/internal/repository"
	"github.com/imagedrop/imagedrop/internal/storage"
	"github.com/imagedrop/imagedrop/internal/validation"
)

var (
	ErrStorageSigning = errors.New("failed to sign upload URL")
	ErrInvalidURL     = errors.New("invalid file URL")
	ErrNameRequired   = errors.New("name is required")
	ErrInvalidCursor  = errors.New("invalid cursor")
	ErrInvalidLimit   = errors.New("limit must be between 1 and 100")
)

// ValidationError marks input errors that should surface as 400s
// rather than internal failures.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationErr(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

const maxPageSize = 100

type FileService struct {
	fileRepo     repository.FileRepository
	storage      storage.Storage
	keyPrefix    string
	uploadExpiry time.Duration
	constraints  validation.FileConstraints
}

func NewFileService(fileRepo repository.FileRepository, storage storage.Storage, keyPrefix string, uploadExpiry time.Duration, maxUploadSize int64) *FileService {
	constraints := validation.ImageConstraints
	if maxUploadSize > 0 {
		constraints.MaxSize = maxUploadSize
	}
	return &FileService{
		fileRepo:     fileRepo,
		storage:      storage,
		keyPrefix:    strings.Trim(keyPrefix, "/"),
		uploadExpiry: uploadExpiry,
		constraints:  constraints,
	}
}

// PresignedUpload is a time-limited capability for one direct PUT to storage.
type PresignedUpload struct {
	URL    string `json:"url"`
	Method string `json:"method"`
	Key    string `json:"key"`
}

// CreatePresignedUpload validates a declared upload and issues a presigned
// PUT URL for it. The object key is a fresh random identifier plus the
// original extension under the configured prefix, so repeated requests with
// identical inputs never collide and caller-supplied names never reach the
// storage path.
func (s *FileService) CreatePresignedUpload(ctx context.Context, filename, contentType string, size int64) (*PresignedUpload, error) {
	err := validation.ValidateUpload(filename, contentType, size, s.constraints)
	if err != nil {
		return nil, validationErr("%s", err.Error())
	}

	randomID := strings.ReplaceAll(uuid.New().String(), "-", "")
	ext := strings.ToLower(filepath.Ext(filename))
	key := fmt.Sprintf("%s/%s%s", s.keyPrefix, randomID, ext)

	uploadURL, err := s.storage.PresignUpload(ctx, key, contentType, size, s.uploadExpiry)
	if err != nil {
		slog.Error("presign upload failed", "error", err, "key", key)
		return nil, fmt.Errorf("%w: %s", ErrStorageSigning, err.Error())
	}

	return &PresignedUpload{
		URL:    uploadURL,
		Method: "PUT",
		Key:    key,
	}, nil
}

// SaveFile records one confirmed upload for a user. The stored path is the
// URL's path component with query-string signing artifacts stripped; the
// stored url keeps the full input string. Each call inserts a fresh row;
// saving the same path twice intentionally yields two records.
func (s *FileService) SaveFile(ctx context.Context, userID, name, rawURL, contentType string) (*model.File, error) {
	if strings.TrimSpace(name) == "" {
		return nil, validationErr("%s", ErrNameRequired.Error())
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, validationErr("%s: %q", ErrInvalidURL.Error(), rawURL)
	}

	file := &model.File{
		ID:          uuid.New().String(),
		UserID:      userID,
		Name:        name,
		Type:        contentType,
		ContentType: contentType,
		URL:         rawURL,
		Path:        parsed.Path,
		CreatedAt:   time.Now().UTC(),
	}

	err = s.fileRepo.Create(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create file record: %w", err)
	}

	return file, nil
}

// ListFiles returns all of a user's files, newest first.
func (s *FileService) ListFiles(ctx context.Context, userID string) ([]*model.File, error) {
	return s.fileRepo.List(userID)
}

// FilePage is one page of the gallery plus the cursor for the next page.
// NextCursor is empty when no further pages exist.
type FilePage struct {
	Files      []*model.File `json:"files"`
	NextCursor string        `json:"nextCursor,omitempty"`
}

// ListFilesPage returns one cursor-paginated page. Cursors are opaque to
// callers and identify the last record of the previous page.
func (s *FileService) ListFilesPage(ctx context.Context, userID string, limit int, cursor string) (*FilePage, error) {
	if limit < 1 || limit > maxPageSize {
		return nil, validationErr("%s", ErrInvalidLimit.Error())
	}

	var before *repository.FileCursor
	if cursor != "" {
		decoded, err := decodeCursor(cursor)
		if err != nil {
			return nil, validationErr("%s", ErrInvalidCursor.Error())
		}
		before = decoded
	}

	// Fetch one extra row to learn whether another page exists
	files, err := s.fileRepo.ListPage(userID, limit+1, before)
	if err != nil {
		return nil, err
	}

	page := &FilePage{Files: files}
	if len(files) > limit {
		page.Files = files[:limit]
		page.NextCursor = encodeCursor(page.Files[limit-1])
	}
	if page.Files == nil {
		page.Files = []*model.File{}
	}

	return page, nil
}

// DeleteFile soft-deletes the record and removes the object (best effort).
func (s *FileService) DeleteFile(ctx context.Context, userID, id string) error {
	file, err := s.fileRepo.ByID(id)
	if err != nil {
		return err
	}
	if file.UserID != userID {
		return repository.ErrFileNotFound
	}

	err = s.fileRepo.SoftDelete(id, userID)
	if err != nil {
		return err
	}

	key := s.storage.KeyForPath(file.Path)
	delErr := s.storage.Delete(ctx, key)
	if delErr != nil {
		slog.Warn("failed to delete object from storage", "error", delErr, "key", key)
	}

	return nil
}

// encodeCursor packs a record's ordering key (created_at, id) into an
// opaque token.
func encodeCursor(f *model.File) string {
	raw := fmt.Sprintf("%d|%s", f.CreatedAt.UTC().UnixNano(), f.ID)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(cursor string) (*repository.FileCursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 || parts[1] == "" {
		return nil, ErrInvalidCursor
	}

	nanos, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	return &repository.FileCursor{
		CreatedAt: time.Unix(0, nanos).UTC(),
		ID:        parts[1],
	}, nil
}
