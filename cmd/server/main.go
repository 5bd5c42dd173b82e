// File: cmd/server/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log" // Standard log for critical startup/shutdown messages before/after zap is active
	"os"
	"os/signal"
	"syscall"
	"time"

	"user_admin_backend/internal/config"
	"user_admin_backend/internal/firebase"
	"user_admin_backend/internal/jobs"
	"user_admin_backend/internal/metrics"
	"user_admin_backend/internal/platform/logger"

	"go.uber.org/zap"
)

func main() {
	scanOrphansCmd := flag.NewFlagSet("scan-orphans", flag.ExitOnError)
	timeout := scanOrphansCmd.Duration("timeout", 5*time.Minute, "Maximum duration of the scan")

	if len(os.Args) > 1 && os.Args[1] == "scan-orphans" {
		_ = scanOrphansCmd.Parse(os.Args[2:])
		os.Exit(runOrphanScan(*timeout))
	}

	// Default: Start server
	startServer()
}

// runOrphanScan reports directory records without an identity account once and exits.
// The exit code is 1 on failure and 2 when orphans were found.
func runOrphanScan(timeout time.Duration) int {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("FATAL: Failed to load configuration for scan: %v", err)
		return 1
	}
	appLogger, err := logger.New(cfg)
	if err != nil {
		log.Printf("FATAL: Failed to initialize logger for scan: %v", err)
		return 1
	}
	defer func() { _ = appLogger.Sync() }()

	fb, err := firebase.NewFirebaseService(cfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to initialize Firebase for scan", zap.Error(err))
		return 1
	}
	repo, cleanup, err := provideDirectoryRepository(cfg, fb, appLogger)
	if err != nil {
		appLogger.Error("Failed to open directory store for scan", zap.Error(err))
		return 1
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	job := jobs.NewOrphanScanJob(repo, fb, metrics.Nop{}, appLogger, cfg)
	orphans, err := job.Scan(ctx)
	if err != nil {
		appLogger.Error("Orphan scan failed", zap.Error(err))
		return 1
	}
	for _, u := range orphans {
		fmt.Printf("%s\t%s\t%s\n", u.ID, u.UserID, u.Email)
	}
	appLogger.Info("Orphan scan completed", zap.Int("orphaned_records", len(orphans)))
	if len(orphans) > 0 {
		return 2
	}
	return 0
}

func startServer() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	server, cleanup, err := initializeServer(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize server: %v", err)
	}
	defer cleanup()

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("FATAL: Server failed to start or crashed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Printf("INFO: Received signal '%s'. Shutting down server...", sig)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ServerTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: Server forced to shutdown due to error: %v", err)
	} else {
		log.Println("INFO: Server shutdown complete.")
	}
	log.Println("INFO: Application exiting.")
}
