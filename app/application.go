// Package app wires configuration, storage, providers and services into a
// runnable application
package app

import (
	"fmt"
	"log/slog"

	"gorm.io/gorm"
	"restomap.app/api"
	"restomap.app/config"
	"restomap.app/database"
	"restomap.app/metrics"
	"restomap.app/providers"
	"restomap.app/providers/cache"
	"restomap.app/repository"
	"restomap.app/service"
	"restomap.app/signer"
)

// Application represents the main application with all its dependencies
type Application struct {
	config *config.Config
	db     *gorm.DB
	server *api.Server
}

// NewApplication creates and initializes a new application instance
func NewApplication() (*Application, error) {
	app := &Application{}

	if err := app.loadConfiguration(); err != nil {
		return nil, err
	}

	if err := app.initializeDatabase(); err != nil {
		return nil, err
	}

	if err := app.initializeServices(); err != nil {
		return nil, err
	}

	return app, nil
}

func (app *Application) loadConfiguration() error {
	slog.Info("Loading configuration...")

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return fmt.Errorf("load application configuration: %w", err)
	}

	app.config = cfg
	slog.Info("Configuration loaded successfully")
	return nil
}

func (app *Application) initializeDatabase() error {
	slog.Info("Initializing database...")

	db, err := database.InitDB(app.config.Database)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		return fmt.Errorf("initialize database connection: %w", err)
	}

	if err := database.RunMigrations(db); err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		return fmt.Errorf("run database migrations: %w", err)
	}

	app.db = db
	slog.Info("Database initialized successfully")
	return nil
}

func (app *Application) initializeServices() error {
	slog.Info("Initializing services...")

	coordSigner := signer.New(app.config.Midpoint.SigningSecret)

	fetcher, err := app.createFetcher()
	if err != nil {
		return fmt.Errorf("create directory fetcher: %w", err)
	}

	historyRepo := repository.NewSearchHistoryRepository(app.db)
	favoriteRepo := repository.NewFavoriteRepository(app.db)

	historyService := service.NewHistoryService(historyRepo)
	tokenService := service.NewTokenService(coordSigner, coordSigner, historyRepo)
	favoriteService := service.NewFavoriteService(favoriteRepo, historyRepo, coordSigner)
	restaurantService := service.NewRestaurantService(fetcher)

	app.server = api.NewServer(
		app.config,
		coordSigner,
		historyService,
		tokenService,
		favoriteService,
		restaurantService,
	)

	slog.Info("Services initialized successfully")
	return nil
}

// createFetcher builds the directory retrieval chain: hotpepper client,
// batch retriever, and optionally the result cache on top
func (app *Application) createFetcher() (providers.RestaurantFetcher, error) {
	directory := providers.NewHotpepperProvider(&app.config.Directory)
	retriever := providers.NewBatchRetriever(directory, app.config.Directory.ChunkSize)

	if !app.config.Cache.Enabled {
		slog.Debug("Directory result cache disabled")
		return retriever, nil
	}

	resultCache, err := app.createCache()
	if err != nil {
		return nil, err
	}

	slog.Debug("Directory result cache enabled",
		"type", app.config.Cache.Type, "ttl", app.config.Cache.TTL)
	return providers.NewCachedFetcher(
		retriever,
		resultCache,
		metrics.NewCacheMetrics(app.config.Cache.Type),
		app.config.Cache.TTL,
	), nil
}

func (app *Application) createCache() (cache.GenericCacheInterface, error) {
	switch app.config.Cache.Type {
	case "redis":
		return cache.NewRedisCache(&cache.RedisCacheConfig{
			Addr:         app.config.Cache.RedisAddr,
			Password:     app.config.Cache.RedisPassword,
			DB:           app.config.Cache.RedisDB,
			DialTimeout:  app.config.Cache.DialTimeout,
			ReadTimeout:  app.config.Cache.ReadTimeout,
			WriteTimeout: app.config.Cache.WriteTimeout,
		})
	default:
		return cache.NewMemoryCache(), nil
	}
}

// Start starts the application
func (app *Application) Start() error {
	slog.Info("Starting HTTP server", "port", app.config.Server.Port)
	return app.server.Start()
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	slog.Info("Shutting down application...")

	if app.db != nil {
		if err := database.CloseDB(app.db); err != nil {
			slog.Warn("Error closing database", "error", err)
		}
	}

	slog.Info("Application shutdown complete")
	return nil
}

// Config returns the application configuration
func (app *Application) Config() *config.Config {
	return app.config
}
