package service

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/imagedrop/imagedrop/internal/model"
	"github.com/imagedrop/imagedrop/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrEmailRequired    = errors.New("email is required")
	ErrProviderRequired = errors.New("provider account id is required")
)

const tokenPrefix = "idp"

type AuthService struct {
	userRepository  repository.UserRepository
	tokenRepository repository.TokenRepository
	jwtSecret       string
	isProduction    bool
	jwtExpiry       time.Duration
}

func NewAuthService(
	userRepository repository.UserRepository,
	tokenRepository repository.TokenRepository,
	jwtSecret string,
	isProduction bool,
	jwtExpiry time.Duration,
) *AuthService {
	return &AuthService{
		userRepository:  userRepository,
		tokenRepository: tokenRepository,
		jwtSecret:       jwtSecret,
		isProduction:    isProduction,
		jwtExpiry:       jwtExpiry,
	}
}

// OAuthLogin finds or creates the user for an external provider identity.
// Profile fields (email, name, avatar) are refreshed on every login so the
// local record follows the provider.
func (s *AuthService) OAuthLogin(provider, providerID, email, name, avatarURL string) (*model.User, error) {
	if providerID == "" {
		return nil, ErrProviderRequired
	}
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, ErrEmailRequired
	}

	user, err := s.userRepository.ByProvider(provider, providerID)
	if err == nil {
		user.Email = email
		user.Name = name
		user.AvatarURL = avatarURL
		err = s.userRepository.Update(user)
		if err != nil {
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
		return user, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user = &model.User{
		ID:         uuid.New().String(),
		Email:      email,
		Name:       name,
		AvatarURL:  avatarURL,
		Provider:   provider,
		ProviderID: providerID,
		CreatedAt:  time.Now(),
	}

	err = s.userRepository.Create(user)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

func (s *AuthService) UserByID(id string) (*model.User, error) {
	return s.userRepository.ByID(id)
}

func (s *AuthService) GenerateJWT(user *model.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"exp":     time.Now().Add(s.jwtExpiry).Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func (s *AuthService) VerifyJWT(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}

func (s *AuthService) JWTExpiry() time.Duration {
	return s.jwtExpiry
}

func (s *AuthService) SetJWTCookie(w http.ResponseWriter, token string, expiry time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    token,
		Expires:  expiry,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *AuthService) ClearJWTCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    "",
		Expires:  time.Unix(0, 0),
		Path:     "/",
		HttpOnly: true,
		Secure:   s.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
}

// CreateAccessToken mints a personal access token for non-browser clients.
// The plaintext is returned exactly once; only a bcrypt hash is stored.
// Token format: idp_<token id>_<secret>.
func (s *AuthService) CreateAccessToken(userID, name string, expiry time.Duration) (string, *model.Token, error) {
	secretBytes := make([]byte, 32)
	_, err := rand.Read(secretBytes)
	if err != nil {
		return "", nil, err
	}
	secret := hex.EncodeToString(secretBytes)

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, err
	}

	token := &model.Token{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      name,
		TokenHash: string(hash),
		ExpiresAt: time.Now().Add(expiry),
		CreatedAt: time.Now(),
	}

	err = s.tokenRepository.Create(token)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create token: %w", err)
	}

	plaintext := fmt.Sprintf("%s_%s_%s", tokenPrefix, token.ID, secret)
	return plaintext, token, nil
}

// VerifyAccessToken resolves a personal access token to its user.
func (s *AuthService) VerifyAccessToken(plaintext string) (*model.User, error) {
	parts := strings.SplitN(plaintext, "_", 3)
	if len(parts) != 3 || parts[0] != tokenPrefix {
		return nil, ErrInvalidToken
	}
	id, secret := parts[1], parts[2]

	token, err := s.tokenRepository.ByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	if token.IsExpired() {
		return nil, ErrInvalidToken
	}

	err = bcrypt.CompareHashAndPassword([]byte(token.TokenHash), []byte(secret))
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.userRepository.ByID(token.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	// Best effort; a stale last_used_at is not worth failing auth over
	_ = s.tokenRepository.Touch(token.ID)

	return user, nil
}

func (s *AuthService) AccessTokens(userID string) ([]*model.Token, error) {
	return s.tokenRepository.ByUser(userID)
}

func (s *AuthService) RevokeAccessToken(id, userID string) error {
	return s.tokenRepository.Delete(id, userID)
}
