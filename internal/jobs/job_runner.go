package jobs

import (
	"time"

	"medrent-backend/internal/config"
	"medrent-backend/internal/logger"
	"medrent-backend/internal/repository"
	"medrent-backend/internal/service"
	"medrent-backend/internal/storage"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	repos    *Repositories
	storage  storage.StorageInterface
	services *Services
	config   *config.Config
	now      func() time.Time
}

// Repositories holds the data access needed by jobs
type Repositories struct {
	Orders repository.OrderRepository
	Users  repository.UserRepository
}

// Services holds all service dependencies needed by jobs
type Services struct {
	Email service.EmailService
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(repos *Repositories, store storage.StorageInterface, services *Services, cfg *config.Config) *JobRunner {
	return &JobRunner{
		repos:    repos,
		storage:  store,
		services: services,
		config:   cfg,
		now:      time.Now,
	}
}

// Config returns the configuration the jobs were built with
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	start := time.Now()
	jobFunc()
	logger.Info("Job completed", "job", jobName, "duration_ms", time.Since(start).Milliseconds())
}

// RunAll runs every job once (for manual execution)
func (jr *JobRunner) RunAll() {
	jr.PurgeOrphanedReceipts()
	jr.SendPendingReminders()
}
