package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/imagedrop/imagedrop/internal/model"
	"github.com/jmoiron/sqlx"
)

var (
	ErrTokenNotFound = errors.New("token not found")
)

type TokenRepository interface {
	Create(token *model.Token) error
	ByID(id string) (*model.Token, error)
	ByUser(userID string) ([]*model.Token, error)
	Touch(id string) error
	Delete(id, userID string) error
	DeleteExpired() error
}

type tokenRepository struct {
	db *sqlx.DB
}

func NewTokenRepository(db *sqlx.DB) TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) Create(token *model.Token) error {
	if token.ID == "" {
		token.ID = uuid.New().String()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO tokens (id, user_id, name, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(query,
		token.ID,
		token.UserID,
		token.Name,
		token.TokenHash,
		token.ExpiresAt,
		token.CreatedAt,
	)
	return err
}

func (r *tokenRepository) ByID(id string) (*model.Token, error) {
	token := &model.Token{}
	query := `SELECT * FROM tokens WHERE id = $1`

	err := r.db.Get(token, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrTokenNotFound
	}

	return token, err
}

func (r *tokenRepository) ByUser(userID string) ([]*model.Token, error) {
	var tokens []*model.Token
	query := `SELECT * FROM tokens WHERE user_id = $1 ORDER BY created_at DESC`

	err := r.db.Select(&tokens, query, userID)
	if err != nil {
		return nil, err
	}

	return tokens, nil
}

func (r *tokenRepository) Touch(id string) error {
	query := `UPDATE tokens SET last_used_at = $1 WHERE id = $2`
	_, err := r.db.Exec(query, time.Now(), id)
	return err
}

func (r *tokenRepository) Delete(id, userID string) error {
	query := `DELETE FROM tokens WHERE id = $1 AND user_id = $2`

	result, err := r.db.Exec(query, id, userID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrTokenNotFound
	}

	return nil
}

func (r *tokenRepository) DeleteExpired() error {
	query := `DELETE FROM tokens WHERE expires_at < $1`
	_, err := r.db.Exec(query, time.Now())
	return err
}
