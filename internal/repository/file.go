package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/imagedrop/imagedrop/internal/model"
	"github.com/jmoiron/sqlx"
)

var (
	ErrFileNotFound = errors.New("file not found")
)

// FileCursor identifies a position in the reverse-chronological file listing.
// ID breaks ties between records sharing a creation timestamp.
type FileCursor struct {
	CreatedAt time.Time
	ID        string
}

type FileRepository interface {
	Create(file *model.File) error
	ByID(id string) (*model.File, error)
	List(userID string) ([]*model.File, error)
	ListPage(userID string, limit int, before *FileCursor) ([]*model.File, error)
	SoftDelete(id, userID string) error
}

type fileRepository struct {
	db *sqlx.DB
}

func NewFileRepository(db *sqlx.DB) FileRepository {
	return &fileRepository{db: db}
}

func (r *fileRepository) Create(file *model.File) error {
	query := `INSERT INTO files (id, user_id, name, type, content_type, url, path, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(query,
		file.ID,
		file.UserID,
		file.Name,
		file.Type,
		file.ContentType,
		file.URL,
		file.Path,
		file.CreatedAt,
	)

	return err
}

func (r *fileRepository) ByID(id string) (*model.File, error) {
	file := &model.File{}
	query := `SELECT * FROM files WHERE id = $1 AND delete_at IS NULL`

	err := r.db.Get(file, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrFileNotFound
	}

	return file, err
}

// List returns all live files for a user, newest first. Ties on created_at
// are ordered by id descending so pagination and full listing agree.
func (r *fileRepository) List(userID string) ([]*model.File, error) {
	var files []*model.File
	query := `SELECT * FROM files WHERE user_id = $1 AND delete_at IS NULL ORDER BY created_at DESC, id DESC`

	err := r.db.Select(&files, query, userID)
	if err != nil {
		return nil, err
	}

	return files, nil
}

// ListPage returns one page of live files strictly before the cursor position.
// A nil cursor starts from the newest record.
func (r *fileRepository) ListPage(userID string, limit int, before *FileCursor) ([]*model.File, error) {
	var files []*model.File
	var err error

	if before == nil {
		query := `SELECT * FROM files WHERE user_id = $1 AND delete_at IS NULL
		          ORDER BY created_at DESC, id DESC LIMIT $2`
		err = r.db.Select(&files, query, userID, limit)
	} else {
		query := `SELECT * FROM files WHERE user_id = $1 AND delete_at IS NULL
		          AND (created_at < $2 OR (created_at = $2 AND id < $3))
		          ORDER BY created_at DESC, id DESC LIMIT $4`
		err = r.db.Select(&files, query, userID, before.CreatedAt, before.ID, limit)
	}
	if err != nil {
		return nil, err
	}

	return files, nil
}

func (r *fileRepository) SoftDelete(id, userID string) error {
	query := `UPDATE files SET delete_at = $1 WHERE id = $2 AND user_id = $3 AND delete_at IS NULL`

	result, err := r.db.Exec(query, time.Now(), id, userID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrFileNotFound
	}

	return nil
}
