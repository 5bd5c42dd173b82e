// File: cmd/server/providers.go
package main

import (
	"context"
	"fmt"

	"user_admin_backend/internal/config"
	"user_admin_backend/internal/directory"
	"user_admin_backend/internal/firebase"
	"user_admin_backend/internal/middleware"
	"user_admin_backend/internal/platform/database"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// provideDirectoryRepository opens the store selected by DIRECTORY_BACKEND.
func provideDirectoryRepository(cfg *config.Config, fb *firebase.FirebaseService, logger *zap.Logger) (directory.Repository, func(), error) {
	if cfg.UsesGORM() {
		db, err := database.NewGORM(cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := directory.AutoMigrate(db); err != nil {
			database.CloseGORMDB(db, logger)
			return nil, nil, fmt.Errorf("failed to migrate directory schema: %w", err)
		}
		return directory.NewGORMRepository(db), func() { database.CloseGORMDB(db, logger) }, nil
	}

	client, err := fb.Firestore(context.Background())
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		logger.Info("Closing Firestore client...")
		if err := client.Close(); err != nil {
			logger.Error("Error closing Firestore client", zap.Error(err))
		}
	}
	return directory.NewFirestoreRepository(client, cfg.DirectoryCollection, logger), cleanup, nil
}

// provideRegistry returns a registry carrying the Go runtime and process collectors.
func provideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func provideRateLimiter(cfg *config.Config, logger *zap.Logger) *middleware.RateLimiter {
	return middleware.NewRateLimiter(cfg.CreateRatePerMinute, cfg.CreateRateBurst, logger)
}
