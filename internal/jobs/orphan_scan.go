// File: internal/jobs/orphan_scan.go
package jobs

import (
	"context"
	"fmt"
	"time"

	"user_admin_backend/internal/config"
	"user_admin_backend/internal/directory"
	"user_admin_backend/internal/metrics"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const orphanScanTimeout = 5 * time.Minute

// AccountLookup reports which identity UIDs no longer resolve.
type AccountLookup interface {
	MissingAccounts(ctx context.Context, uids []string) ([]string, error)
}

// OrphanScanJob reports directory records whose identity account is gone. It never repairs them.
type OrphanScanJob struct {
	repo          directory.Repository
	accounts      AccountLookup
	metrics       metrics.Recorder
	logger        *zap.Logger
	cfg           *config.Config
	cronScheduler *cron.Cron
}

// NewOrphanScanJob creates a new OrphanScanJob.
func NewOrphanScanJob(
	repo directory.Repository,
	accounts AccountLookup,
	rec metrics.Recorder,
	logger *zap.Logger,
	cfg *config.Config,
) *OrphanScanJob {
	cronLog := NewCronLogger(logger.Named("cron"))
	scheduler := cron.New(
		cron.WithLogger(cronLog),
		cron.WithChain(cron.SkipIfStillRunning(cronLog)),
	)

	return &OrphanScanJob{
		repo:          repo,
		accounts:      accounts,
		metrics:       rec,
		logger:        logger.Named("OrphanScanJob"),
		cfg:           cfg,
		cronScheduler: scheduler,
	}
}

// SetupAndStart schedules and starts the cron job.
func (j *OrphanScanJob) SetupAndStart() error {
	jobSpec := j.cfg.OrphanScanSchedule
	if jobSpec == "" {
		j.logger.Warn("Orphan scan schedule not defined (ORPHAN_SCAN_SCHEDULE). Job will not run.")
		return nil
	}

	jobID, err := j.cronScheduler.AddFunc(jobSpec, j.runJob)
	if err != nil {
		j.logger.Error("Failed to schedule orphan scan job", zap.String("spec", jobSpec), zap.Error(err))
		return err
	}

	j.logger.Info("Orphan scan job scheduled", zap.String("spec", jobSpec), zap.Any("jobID", jobID))
	j.cronScheduler.Start()
	return nil
}

func (j *OrphanScanJob) runJob() {
	j.logger.Info("Starting orphan scan run...")
	ctx, cancel := context.WithTimeout(context.Background(), orphanScanTimeout)
	defer cancel()

	orphans, err := j.Scan(ctx)
	if err != nil {
		j.logger.Error("Orphan scan run failed", zap.Error(err))
		return
	}
	j.logger.Info("Orphan scan run completed", zap.Int("orphaned_records", len(orphans)))
}

// Scan returns the records whose UID has no identity account, in store order.
func (j *OrphanScanJob) Scan(ctx context.Context) ([]directory.User, error) {
	users, err := j.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list directory records: %w", err)
	}

	uids := make([]string, 0, len(users))
	seen := make(map[string]struct{}, len(users))
	for _, u := range users {
		if u.UserID == "" {
			continue
		}
		if _, dup := seen[u.UserID]; dup {
			continue
		}
		seen[u.UserID] = struct{}{}
		uids = append(uids, u.UserID)
	}

	missing, err := j.accounts.MissingAccounts(ctx, uids)
	if err != nil {
		return nil, fmt.Errorf("look up identity accounts: %w", err)
	}
	missingSet := make(map[string]struct{}, len(missing))
	for _, uid := range missing {
		missingSet[uid] = struct{}{}
	}

	var orphans []directory.User
	for _, u := range users {
		_, gone := missingSet[u.UserID]
		if u.UserID == "" || gone {
			orphans = append(orphans, u)
			j.logger.Warn("Directory record has no identity account",
				zap.String("id", u.ID),
				zap.String("uid", u.UserID),
				zap.String("email", u.Email))
		}
	}
	j.metrics.SetOrphanedRecords(len(orphans))
	return orphans, nil
}

// Stop gracefully stops the cron scheduler.
func (j *OrphanScanJob) Stop() {
	if j.cronScheduler != nil {
		j.logger.Info("Stopping orphan scan scheduler...")
		stopCtx := j.cronScheduler.Stop()
		select {
		case <-stopCtx.Done():
			j.logger.Info("Orphan scan scheduler stopped gracefully.")
		case <-time.After(10 * time.Second):
			j.logger.Warn("Orphan scan scheduler stop timed out.")
		}
	}
}

// --- Cron Logger Adapter ---

// cronLogger adapts zap.Logger to cron.Logger interface.
type cronLogger struct {
	zl *zap.Logger
}

// NewCronLogger creates a new cronLogger.
func NewCronLogger(zl *zap.Logger) cron.Logger {
	return &cronLogger{zl: zl}
}

// Info logs routine messages from cron.
func (cl *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	cl.zl.Debug(msg, cl.parseKeysAndValues(keysAndValues...)...)
}

// Error logs error messages from cron.
func (cl *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := cl.parseKeysAndValues(keysAndValues...)
	fields = append(fields, zap.Error(err))
	cl.zl.Error(msg, fields...)
}

func (cl *cronLogger) parseKeysAndValues(keysAndValues ...interface{}) []zap.Field {
	var fields []zap.Field
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprintf("%v", keysAndValues[i])
		if i+1 < len(keysAndValues) {
			fields = append(fields, zap.Any(key, keysAndValues[i+1]))
		} else {
			fields = append(fields, zap.Any(key, "MISSING_VALUE"))
		}
	}
	return fields
}
