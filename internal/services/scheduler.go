package services

import (
	"errors"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/harmonix/backend/internal/models"
	"github.com/harmonix/backend/pkg/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

const (
	deliverySweepSpec = "@every 5m"
	logCleanupSpec    = "30 3 * * *"

	deliverySweepSlot = 5 * time.Minute
	lockNameSweep     = "email_sweep"
	lockNameCleanup   = "log_cleanup"
)

// Scheduler runs the periodic maintenance jobs: the stale email sweep and
// system log retention. Each run claims a SchedulerLock row first so only
// one instance does the work when several share a database.
type Scheduler struct {
	cron          *cron.Cron
	db            *gorm.DB
	instanceID    string
	deliveries    *EmailDeliveryService
	systemLogs    *SystemLogService
	retentionDays int
	now           func() time.Time
}

func NewScheduler(db *gorm.DB, deliveries *EmailDeliveryService, systemLogs *SystemLogService, retentionDays int) *Scheduler {
	host, _ := os.Hostname()
	return &Scheduler{
		cron:          cron.New(),
		db:            db,
		instanceID:    host + "/" + uuid.NewString()[:8],
		deliveries:    deliveries,
		systemLogs:    systemLogs,
		retentionDays: retentionDays,
		now:           time.Now,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(deliverySweepSpec, s.sweepDeliveries); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(logCleanupSpec, s.cleanupLogs); err != nil {
		return err
	}

	// catch up on anything left from a previous run
	go s.cleanupLogs()

	s.cron.Start()
	logger.Infof("[Scheduler] Started as %s (sweep: %s, log cleanup: %s, retention: %d days)",
		s.instanceID, deliverySweepSpec, logCleanupSpec, s.retentionDays)
	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) sweepDeliveries() {
	now := s.now()
	slot := now.Truncate(deliverySweepSlot)
	if !s.tryLock(lockNameSweep, slot.UTC().Format(time.RFC3339), deliverySweepSlot) {
		return
	}
	if _, err := s.deliveries.SweepStale(); err != nil {
		logger.Errorf("[Scheduler] Email sweep failed: %v", err)
	}
}

func (s *Scheduler) cleanupLogs() {
	if s.retentionDays <= 0 {
		logger.Infof("[Scheduler] Log cleanup disabled (retention_days <= 0)")
		return
	}
	if !s.tryLock(lockNameCleanup, s.now().Format("2006-01-02"), 24*time.Hour) {
		return
	}
	if _, err := s.systemLogs.CleanupOldLogs(s.retentionDays); err != nil {
		logger.Errorf("[Scheduler] Failed to cleanup old logs: %v", err)
	}
	s.pruneLocks()
}

// tryLock claims the (name, key) run for this instance. A lock left behind
// by a crashed instance can be taken over once it has expired.
func (s *Scheduler) tryLock(name, key string, ttl time.Duration) bool {
	now := s.now()
	lock := &models.SchedulerLock{
		LockName:  name,
		LockKey:   key,
		LockedBy:  s.instanceID,
		LockedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
	err := s.db.Create(lock).Error
	if err == nil {
		return true
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		logger.Warn().Err(err).Str("lock", name).Msg("[Scheduler] lock insert failed")
		return false
	}

	result := s.db.Model(&models.SchedulerLock{}).
		Where("lock_name = ? AND lock_key = ? AND expires_at < ?", name, key, now).
		Updates(map[string]interface{}{
			"locked_by":  s.instanceID,
			"locked_at":  now,
			"expires_at": now.Add(ttl),
		})
	if result.Error != nil {
		logger.Warn().Err(result.Error).Str("lock", name).Msg("[Scheduler] lock takeover failed")
		return false
	}
	return result.RowsAffected > 0
}

// pruneLocks drops lock rows that expired more than a week ago.
func (s *Scheduler) pruneLocks() {
	cutoff := s.now().AddDate(0, 0, -7)
	if err := s.db.Where("expires_at < ?", cutoff).Delete(&models.SchedulerLock{}).Error; err != nil {
		logger.Warn().Err(err).Msg("[Scheduler] lock prune failed")
	}
}
