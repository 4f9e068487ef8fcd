package handler

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/imagedrop/imagedrop/internal/config"
	"github.com/imagedrop/imagedrop/internal/ctxkeys"
	"github.com/imagedrop/imagedrop/internal/model"
	"github.com/imagedrop/imagedrop/internal/service"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/gitlab"
	"golang.org/x/oauth2/google"
)

// providerUser is the subset of provider profile data the app keeps
type providerUser struct {
	ID        string
	Email     string
	Name      string
	AvatarURL string
}

type AuthHandler struct {
	authService  *service.AuthService
	cfg          *config.Config
	oauthConfigs map[string]*oauth2.Config
}

func NewAuthHandler(authService *service.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cfg:         cfg,
		oauthConfigs: map[string]*oauth2.Config{
			model.ProviderGitHub: {
				ClientID:     cfg.GitHubClientID,
				ClientSecret: cfg.GitHubClientSecret,
				RedirectURL:  cfg.AppURL + "/auth/github/callback",
				Scopes:       []string{"user:email"},
				Endpoint:     github.Endpoint,
			},
			model.ProviderGitLab: {
				ClientID:     cfg.GitLabClientID,
				ClientSecret: cfg.GitLabClientSecret,
				RedirectURL:  cfg.AppURL + "/auth/gitlab/callback",
				Scopes:       []string{"read_user"},
				Endpoint:     gitlab.Endpoint,
			},
			model.ProviderGoogle: {
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				RedirectURL:  cfg.AppURL + "/auth/google/callback",
				Scopes:       []string{"openid", "email", "profile"},
				Endpoint:     google.Endpoint,
			},
		},
	}
}

// Begin redirects the user to the provider's consent screen
func (h *AuthHandler) Begin(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")
	oauthCfg, ok := h.oauthConfigs[provider]
	if !ok || oauthCfg.ClientID == "" {
		RespondError(w, http.StatusNotFound, KindNotFound, "unknown OAuth provider")
		return
	}

	// Generate secure state token for CSRF protection
	state := generateOAuthState()

	// Store state in secure cookie
	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   600, // 10 minutes
	})

	url := oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// Callback handles the provider redirect: validates state, exchanges the
// code, fetches the provider profile, and establishes a session
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")
	oauthCfg, ok := h.oauthConfigs[provider]
	if !ok || oauthCfg.ClientID == "" {
		RespondError(w, http.StatusNotFound, KindNotFound, "unknown OAuth provider")
		return
	}

	// Validate state parameter for CSRF protection
	state := r.URL.Query().Get("state")
	cookie, err := r.Cookie("oauth_state")
	if err != nil || cookie.Value != state || state == "" {
		slog.Warn("oauth state validation failed", "provider", provider, "error", err)
		RespondError(w, http.StatusUnauthorized, KindUnauthorized, "OAuth state validation failed")
		return
	}

	// Clear state cookie
	http.SetCookie(w, &http.Cookie{
		Name:   "oauth_state",
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	code := r.URL.Query().Get("code")
	if code == "" {
		slog.Warn("oauth callback missing code", "provider", provider)
		RespondError(w, http.StatusUnauthorized, KindUnauthorized, "OAuth authentication failed")
		return
	}

	// Exchange code for token
	token, err := oauthCfg.Exchange(context.Background(), code)
	if err != nil {
		slog.Error("oauth token exchange failed", "provider", provider, "error", err)
		RespondError(w, http.StatusUnauthorized, KindUnauthorized, "OAuth authentication failed")
		return
	}

	client := oauthCfg.Client(context.Background(), token)
	info, err := fetchProviderUser(client, provider)
	if err != nil {
		slog.Error("failed to get provider user info", "provider", provider, "error", err)
		RespondError(w, http.StatusUnauthorized, KindUnauthorized, "OAuth authentication failed")
		return
	}

	// Authenticate or create user
	user, err := h.authService.OAuthLogin(provider, info.ID, info.Email, info.Name, info.AvatarURL)
	if err != nil {
		slog.Error("oauth login failed", "provider", provider, "error", err)
		RespondError(w, http.StatusUnauthorized, KindUnauthorized, "Authentication failed")
		return
	}

	jwtToken, err := h.authService.GenerateJWT(user)
	if err != nil {
		slog.Error("failed to generate JWT", "error", err, "user_id", user.ID)
		RespondError(w, http.StatusInternalServerError, KindInternal, "internal server error")
		return
	}

	h.authService.SetJWTCookie(w, jwtToken, time.Now().Add(h.authService.JWTExpiry()))

	slog.Info("user logged in", "provider", provider, "user_id", user.ID, "email", user.Email)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authService.ClearJWTCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Session returns the authenticated user's own profile
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	RespondJSON(w, http.StatusOK, user)
}

// fetchProviderUser retrieves the user profile from the provider's API
func fetchProviderUser(client *http.Client, provider string) (*providerUser, error) {
	switch provider {
	case model.ProviderGitHub:
		var info struct {
			ID        int64  `json:"id"`
			Login     string `json:"login"`
			Name      string `json:"name"`
			Email     string `json:"email"`
			AvatarURL string `json:"avatar_url"`
		}
		err := fetchJSON(client, "https://api.github.com/user", &info)
		if err != nil {
			return nil, err
		}
		if info.Name == "" {
			info.Name = info.Login
		}
		if info.Email == "" {
			// Profile email may be private; ask the emails endpoint
			email, err := fetchGitHubPrimaryEmail(client)
			if err != nil {
				return nil, err
			}
			info.Email = email
		}
		return &providerUser{
			ID:        strconv.FormatInt(info.ID, 10),
			Email:     info.Email,
			Name:      info.Name,
			AvatarURL: info.AvatarURL,
		}, nil

	case model.ProviderGitLab:
		var info struct {
			ID        int64  `json:"id"`
			Username  string `json:"username"`
			Name      string `json:"name"`
			Email     string `json:"email"`
			AvatarURL string `json:"avatar_url"`
		}
		err := fetchJSON(client, "https://gitlab.com/api/v4/user", &info)
		if err != nil {
			return nil, err
		}
		if info.Name == "" {
			info.Name = info.Username
		}
		return &providerUser{
			ID:        strconv.FormatInt(info.ID, 10),
			Email:     info.Email,
			Name:      info.Name,
			AvatarURL: info.AvatarURL,
		}, nil

	case model.ProviderGoogle:
		var info struct {
			ID      string `json:"id"`
			Email   string `json:"email"`
			Name    string `json:"name"`
			Picture string `json:"picture"`
		}
		err := fetchJSON(client, "https://www.googleapis.com/oauth2/v2/userinfo", &info)
		if err != nil {
			return nil, err
		}
		return &providerUser{
			ID:        info.ID,
			Email:     info.Email,
			Name:      info.Name,
			AvatarURL: info.Picture,
		}, nil
	}

	return nil, fmt.Errorf("unknown provider: %s", provider)
}

func fetchJSON(client *http.Client, url string, v any) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer func() {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			slog.Error("failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("userinfo request failed: %s", resp.Status)
	}

	return json.NewDecoder(resp.Body).Decode(v)
}

func fetchGitHubPrimaryEmail(client *http.Client) (string, error) {
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	err := fetchJSON(client, "https://api.github.com/user/emails", &emails)
	if err != nil {
		return "", err
	}

	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}

	return "", fmt.Errorf("no verified primary email on GitHub account")
}

// generateOAuthState creates a cryptographically secure state token
func generateOAuthState() string {
	b := make([]byte, 32)
	_, err := rand.Read(b)
	if err != nil {
		panic("failed to generate oauth state: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
