package main

import (
	"github.com/harmonix/backend/internal/config"
	"github.com/harmonix/backend/internal/handlers"
	"github.com/harmonix/backend/internal/models"
	"github.com/harmonix/backend/internal/services"
	"github.com/harmonix/backend/internal/utils"
	"github.com/harmonix/backend/pkg/logger"
)

// appServices holds the long-lived services shared by the routes.
type appServices struct {
	cfg             *config.Config
	taskQueue       services.TaskQueue
	worker          *services.Worker
	scheduler       *services.Scheduler
	emailDeliveries *services.EmailDeliveryService
	accountsHandler *handlers.AccountsHandler
}

// bootstrap initializes the database, the email pipeline and the schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.Session.Secret)

	if err := models.InitDB(&cfg.Database, cfg.Log.Level); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}
	db := models.GetDB()

	services.InitSystemLogger(db)

	// Email pipeline: Redis-backed when available, in-process otherwise
	sender := services.NewSender(&cfg.Email)
	taskQueue := services.InitTaskQueue(cfg)
	emailDeliveries := services.NewEmailDeliveryService(db, taskQueue, sender, &cfg.Email)
	if syncQueue, ok := taskQueue.(*services.SyncQueue); ok {
		syncQueue.SetProcessor(emailDeliveries.ProcessEmailTask)
	}

	var worker *services.Worker
	if taskQueue.IsAsync() {
		worker = services.NewWorker(&cfg.Redis)
		if worker != nil {
			worker.SetProcessor(emailDeliveries.ProcessEmailTask)
			if err := worker.Start(); err != nil {
				logger.Error().Err(err).Msg("Failed to start email worker")
			}
		}
	}

	scheduler := services.NewScheduler(db, emailDeliveries, services.NewSystemLogService(db), cfg.SystemLog.RetentionDays)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("Failed to start scheduler")
	}

	accountsHandler := handlers.NewAccountsHandler(db, cfg)
	if err := accountsHandler.CreateAdminIfNotExists(&cfg.Admin); err != nil {
		logger.Warn().Err(err).Msg("Failed to create admin user")
	}

	logger.Info().Str("sender", sender.Name()).Bool("async_queue", taskQueue.IsAsync()).Msg("Services initialized")

	return &appServices{
		cfg:             cfg,
		taskQueue:       taskQueue,
		worker:          worker,
		scheduler:       scheduler,
		emailDeliveries: emailDeliveries,
		accountsHandler: accountsHandler,
	}
}

// shutdown stops the schedulers and drains the email queue.
func (s *appServices) shutdown() {
	s.scheduler.Stop()
	logger.Info().Msg("Scheduler stopped")

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		if err := s.taskQueue.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close task queue")
		}
	}
}
