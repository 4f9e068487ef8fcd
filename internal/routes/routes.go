package routes

import (
	"net/http"

	"github.com/imagedrop/imagedrop/internal/app"
	"github.com/imagedrop/imagedrop/internal/handler"
	"github.com/imagedrop/imagedrop/internal/middleware"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	auth := handler.NewAuthHandler(app.AuthService, app.Cfg)
	token := handler.NewTokenHandler(app.AuthService)
	file := handler.NewFileHandler(app.FileService)

	mux := http.NewServeMux()

	// Auth - OAuth flow (rate limited)
	rateLimiter := middleware.RateLimitAuth()

	mux.HandleFunc("GET /auth/{provider}", rateLimiter(auth.Begin))
	mux.HandleFunc("GET /auth/{provider}/callback", rateLimiter(auth.Callback))
	mux.HandleFunc("POST /auth/logout", auth.Logout)
	mux.HandleFunc("GET /api/session", middleware.RequireAuth(auth.Session))

	// Personal access tokens (browser session required to mint)
	mux.HandleFunc("POST /api/tokens", middleware.RequireAuth(token.Create))
	mux.HandleFunc("GET /api/tokens", middleware.RequireAuth(token.List))
	mux.HandleFunc("DELETE /api/tokens/{id}", middleware.RequireAuth(token.Revoke))

	// Files: presigned upload issuance, confirmation, gallery listing
	mux.HandleFunc("POST /api/files/presign", middleware.RequireAuth(file.CreatePresignedURL))
	mux.HandleFunc("POST /api/files", middleware.RequireAuth(file.SaveFile))
	mux.HandleFunc("GET /api/files", middleware.RequireAuth(file.ListFiles))
	mux.HandleFunc("GET /api/files/page", middleware.RequireAuth(file.InfiniteListFiles))
	mux.HandleFunc("DELETE /api/files/{id}", middleware.RequireAuth(file.DeleteFile))

	// 404
	mux.HandleFunc("/{path...}", func(w http.ResponseWriter, r *http.Request) {
		handler.RespondError(w, http.StatusNotFound, handler.KindNotFound, "not found")
	})

	// Global middleware - executed in order (top to bottom)
	h := middleware.Chain(
		mux,
		middleware.Config(app.Cfg),
		middleware.SecurityHeaders,
		middleware.RequestLogging,
		middleware.AuthMiddleware(app.AuthService),
	)

	return h
}
