package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/imagedrop/imagedrop/internal/ctxkeys"
	"github.com/imagedrop/imagedrop/internal/model"
	"github.com/imagedrop/imagedrop/internal/service"
)

const (
	defaultTokenExpiry = 90 * 24 * time.Hour
	maxTokenExpiry     = 365 * 24 * time.Hour
)

// TokenHandler manages personal access tokens for non-browser clients
type TokenHandler struct {
	authService *service.AuthService
}

func NewTokenHandler(authService *service.AuthService) *TokenHandler {
	return &TokenHandler{
		authService: authService,
	}
}

type createTokenRequest struct {
	Name      string `json:"name"`
	ExpiresIn string `json:"expiresIn,omitempty"` // Go duration string, e.g. "720h"
}

type createTokenResponse struct {
	Token  string       `json:"token"` // plaintext, shown exactly once
	Record *model.Token `json:"record"`
}

func (h *TokenHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var req createTokenRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		RespondError(w, http.StatusBadRequest, KindValidation, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		RespondError(w, http.StatusBadRequest, KindValidation, "name is required")
		return
	}

	expiry := defaultTokenExpiry
	if req.ExpiresIn != "" {
		d, err := time.ParseDuration(req.ExpiresIn)
		if err != nil || d <= 0 || d > maxTokenExpiry {
			RespondError(w, http.StatusBadRequest, KindValidation, "invalid expiresIn")
			return
		}
		expiry = d
	}

	plaintext, token, err := h.authService.CreateAccessToken(user.ID, req.Name, expiry)
	if err != nil {
		RespondServiceError(w, err)
		return
	}

	slog.Info("access token created", "user_id", user.ID, "token_id", token.ID)
	RespondJSON(w, http.StatusOK, createTokenResponse{Token: plaintext, Record: token})
}

func (h *TokenHandler) List(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	tokens, err := h.authService.AccessTokens(user.ID)
	if err != nil {
		RespondServiceError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, tokens)
}

func (h *TokenHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	id := r.PathValue("id")

	err := h.authService.RevokeAccessToken(id, user.ID)
	if err != nil {
		RespondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
