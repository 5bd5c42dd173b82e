// File: cmd/server/wire.go
//go:build wireinject
// +build wireinject

package main

import (
	"user_admin_backend/internal/app"
	"user_admin_backend/internal/config"
	"user_admin_backend/internal/console"
	"user_admin_backend/internal/firebase"
	"user_admin_backend/internal/identity"
	"user_admin_backend/internal/jobs"
	"user_admin_backend/internal/metrics"
	"user_admin_backend/internal/middleware"
	"user_admin_backend/internal/platform/logger"
	"user_admin_backend/internal/user"

	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"
)

// initializeServer is the main Wire injector.
func initializeServer(cfg *config.Config) (*app.Server, func(), error) {
	wire.Build(
		// Platform Layer
		logger.New,
		provideRegistry,
		wire.Bind(new(prometheus.Registerer), new(*prometheus.Registry)),
		wire.Bind(new(prometheus.Gatherer), new(*prometheus.Registry)),
		metrics.NewCollector,
		wire.Bind(new(metrics.Recorder), new(*metrics.Collector)),

		// Identity provider
		firebase.NewFirebaseService,
		wire.Bind(new(identity.Provider), new(*firebase.FirebaseService)),
		wire.Bind(new(middleware.TokenVerifier), new(*firebase.FirebaseService)),
		wire.Bind(new(console.SessionRevoker), new(*firebase.FirebaseService)),
		wire.Bind(new(jobs.AccountLookup), new(*firebase.FirebaseService)),

		// Directory
		provideDirectoryRepository,

		// User operations
		user.NewService,
		wire.Bind(new(user.Service), new(*user.ServiceImplementation)),
		wire.Bind(new(middleware.OperatorLookup), new(*user.ServiceImplementation)),
		user.NewHandler,

		// Console
		console.NewManager,
		console.NewHandler,

		jobs.NewOrphanScanJob,
		provideRateLimiter,

		// Application Layer
		app.NewServer,
	)
	return nil, nil, nil
}
