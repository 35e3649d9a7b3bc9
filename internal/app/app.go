// Package app wires configuration, storage, clients, and services into one
// shared core used by cmd/blend-server.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Sheringkapoting/portfo-blend/internal/cache"
	"github.com/Sheringkapoting/portfo-blend/internal/clients/kite"
	"github.com/Sheringkapoting/portfo-blend/internal/clients/mfcentral"
	"github.com/Sheringkapoting/portfo-blend/internal/common"
	"github.com/Sheringkapoting/portfo-blend/internal/interfaces"
	"github.com/Sheringkapoting/portfo-blend/internal/reconcile"
	"github.com/Sheringkapoting/portfo-blend/internal/services/broker"
	"github.com/Sheringkapoting/portfo-blend/internal/services/health"
	"github.com/Sheringkapoting/portfo-blend/internal/services/mfcas"
	"github.com/Sheringkapoting/portfo-blend/internal/services/portfolio"
	"github.com/Sheringkapoting/portfo-blend/internal/services/upload"
	"github.com/Sheringkapoting/portfo-blend/internal/storage"
)

// schemaVersionKey and schemaVersion tag the stored data layout. A mismatch
// on startup clears the summary cache so no stale blob outlives a migration.
const (
	schemaVersionKey = "schema_version"
	schemaVersion    = "2"
)

// App holds all initialized services and clients.
type App struct {
	Config           *common.Config
	Logger           *common.Logger
	Storage          interfaces.StorageManager
	Cache            *cache.Store
	KiteClient       interfaces.BrokerClient
	MFClient         interfaces.CASClient
	BrokerService    interfaces.BrokerService
	MFCASService     interfaces.MFCASService
	UploadService    interfaces.UploadService
	PortfolioService interfaces.PortfolioService
	HealthService    interfaces.HealthService
	Reconciler       *reconcile.Reconciler
	StartupTime      time.Time

	schedulerStop func()
}

// NewApp initializes the full service graph. configPath may be empty, in
// which case BLEND_CONFIG and the default locations are tried in order.
func NewApp(configPath string) (*App, error) {
	if configPath == "" {
		configPath = os.Getenv("BLEND_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binaryDir(), "blend.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/blend.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := common.NewLogger(config.Logging.Level)

	storageManager, err := storage.NewManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	cacheStore, err := cache.NewStore(logger, config.Cache.Path)
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	checkSchemaVersion(context.Background(), storageManager, logger)

	var kiteClient interfaces.BrokerClient
	if config.Clients.Kite.APIKey != "" {
		kiteClient = kite.NewClient(
			config.Clients.Kite.APIKey,
			config.Clients.Kite.APISecret,
			kite.WithBaseURL(config.Clients.Kite.BaseURL),
			kite.WithRateLimit(config.Clients.Kite.RateLimit),
			kite.WithTimeout(config.Clients.Kite.GetTimeout()),
			kite.WithLogger(logger),
		)
	} else {
		logger.Warn().Msg("Kite API key not configured - broker sync will be unavailable")
	}

	var mfClient interfaces.CASClient
	if config.Clients.MFCentral.ClientID != "" {
		mfClient = mfcentral.NewClient(
			config.Clients.MFCentral.ClientID,
			config.Clients.MFCentral.ClientSecret,
			mfcentral.WithBaseURL(config.Clients.MFCentral.BaseURL),
			mfcentral.WithRateLimit(config.Clients.MFCentral.RateLimit),
			mfcentral.WithTimeout(config.Clients.MFCentral.GetTimeout()),
			mfcentral.WithLogger(logger),
		)
	} else {
		logger.Warn().Msg("MFCentral client not configured - mutual fund sync will be unavailable")
	}

	brokerService := broker.NewService(storageManager, kiteClient, cacheStore, logger,
		config.Auth.JWTSecret, config.Auth.GetStateTokenExpiry())
	mfcasService := mfcas.NewService(storageManager, mfClient, cacheStore, logger)
	uploadService := upload.NewService(storageManager, cacheStore, logger)
	portfolioService := portfolio.NewService(storageManager, kiteClient, cacheStore, logger)
	healthService := health.NewService(storageManager, logger)
	reconciler := reconcile.New(storageManager, brokerService, logger)

	a := &App{
		Config:           config,
		Logger:           logger,
		Storage:          storageManager,
		Cache:            cacheStore,
		KiteClient:       kiteClient,
		MFClient:         mfClient,
		BrokerService:    brokerService,
		MFCASService:     mfcasService,
		UploadService:    uploadService,
		PortfolioService: portfolioService,
		HealthService:    healthService,
		Reconciler:       reconciler,
		StartupTime:      time.Now(),
	}

	logger.Info().
		Str("version", common.GetVersion()).
		Str("environment", config.Environment).
		Msg("Application initialized")
	return a, nil
}

// binaryDir returns the directory containing the executable.
func binaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// checkSchemaVersion compares the stored schema tag with the current one and
// records the current tag. Old summary-cache entries are named by version, so
// a bump makes them unreachable; nothing else needs migration yet.
func checkSchemaVersion(ctx context.Context, m interfaces.StorageManager, logger *common.Logger) {
	stored, err := m.GetSystemKV(ctx, schemaVersionKey)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to read schema version")
		return
	}
	if stored != "" && stored != schemaVersion {
		logger.Info().Str("from", stored).Str("to", schemaVersion).Msg("Schema version changed")
	}
	if stored != schemaVersion {
		if err := m.SetSystemKV(ctx, schemaVersionKey, schemaVersion); err != nil {
			logger.Warn().Err(err).Msg("Failed to record schema version")
		}
	}
}

// Close shuts down storage and the scheduler.
func (a *App) Close() error {
	if a.schedulerStop != nil {
		a.schedulerStop()
	}
	if a.Storage != nil {
		return a.Storage.Close()
	}
	return nil
}
