package app

import (
	"fmt"

	"github.com/imagedrop/imagedrop/internal/config"
	"github.com/imagedrop/imagedrop/internal/db"
	"github.com/imagedrop/imagedrop/internal/repository"
	"github.com/imagedrop/imagedrop/internal/service"
	"github.com/imagedrop/imagedrop/internal/storage"
	"github.com/jmoiron/sqlx"
)

type App struct {
	Cfg         *config.Config
	DB          *sqlx.DB
	AuthService *service.AuthService
	FileService *service.FileService
}

func New(cfg *config.Config) (*App, error) {
	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %v", err)
	}

	// Run database migrations
	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %v", err)
	}

	// Repositories
	userRepository := repository.NewUserRepository(database)
	tokenRepository := repository.NewTokenRepository(database)
	fileRepository := repository.NewFileRepository(database)

	// Storage
	fileStorage, err := storage.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %v", err)
	}

	// Services
	authService := service.NewAuthService(
		userRepository,
		tokenRepository,
		cfg.JWTSecret,
		cfg.IsProduction(),
		cfg.JWTExpiry,
	)
	fileService := service.NewFileService(
		fileRepository,
		fileStorage,
		cfg.S3KeyPrefix,
		cfg.S3UploadExpiry,
		cfg.MaxUploadSizeBytes,
	)

	return &App{
		Cfg:         cfg,
		DB:          database,
		AuthService: authService,
		FileService: fileService,
	}, nil
}

func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
