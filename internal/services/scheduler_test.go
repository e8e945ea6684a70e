package services

import (
	"testing"
	"time"

	"github.com/harmonix/backend/internal/models"
)

func TestScheduler_TryLock(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	a := NewScheduler(db, nil, NewSystemLogService(db), 30)
	b := NewScheduler(db, nil, NewSystemLogService(db), 30)
	a.now = func() time.Time { return now }
	b.now = func() time.Time { return now }

	if !a.tryLock(lockNameSweep, "slot-1", time.Minute) {
		t.Fatal("first claim should succeed")
	}
	if b.tryLock(lockNameSweep, "slot-1", time.Minute) {
		t.Error("a claimed slot must not be taken by another instance")
	}
	if !b.tryLock(lockNameSweep, "slot-2", time.Minute) {
		t.Error("a new slot is free")
	}
	if !b.tryLock(lockNameCleanup, "slot-1", time.Minute) {
		t.Error("locks are per job name")
	}

	// after expiry the slot can be taken over
	b.now = func() time.Time { return now.Add(2 * time.Minute) }
	if !b.tryLock(lockNameSweep, "slot-1", time.Minute) {
		t.Error("an expired lock should be taken over")
	}
	var lock models.SchedulerLock
	db.Where("lock_name = ? AND lock_key = ?", lockNameSweep, "slot-1").First(&lock)
	if lock.LockedBy != b.instanceID {
		t.Errorf("LockedBy = %q, want %q", lock.LockedBy, b.instanceID)
	}
}

func TestScheduler_CleanupOncePerDay(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()

	db.Create(&models.SystemLog{Level: models.LogLevelInfo, Module: "accounts", Message: "old", CreatedAt: now.AddDate(0, 0, -40)})
	db.Create(&models.SchedulerLock{LockName: lockNameSweep, LockKey: "ancient", ExpiresAt: now.AddDate(0, 0, -30)})

	a := NewScheduler(db, nil, NewSystemLogService(db), 30)
	a.cleanupLogs()

	var logs, locks int64
	db.Model(&models.SystemLog{}).Count(&logs)
	if logs != 0 {
		t.Errorf("system logs = %d, want 0", logs)
	}
	db.Model(&models.SchedulerLock{}).Where("lock_key = ?", "ancient").Count(&locks)
	if locks != 0 {
		t.Error("expired locks should be pruned")
	}

	// a second instance skips today's run
	db.Create(&models.SystemLog{Level: models.LogLevelInfo, Module: "accounts", Message: "old again", CreatedAt: now.AddDate(0, 0, -40)})
	b := NewScheduler(db, nil, NewSystemLogService(db), 30)
	b.cleanupLogs()
	db.Model(&models.SystemLog{}).Count(&logs)
	if logs != 1 {
		t.Errorf("system logs = %d, want 1 (cleanup ran twice)", logs)
	}
}

func TestScheduler_SweepClaimsSlot(t *testing.T) {
	db := newTestDB(t)
	queue := &recordingQueue{}
	deliveries := NewEmailDeliveryService(db, queue, &flakySender{}, testEmailConfig)
	db.Create(&models.EmailDelivery{Recipient: "a@example.com", Status: models.DeliveryPending, MaxAttempts: 3})

	later := time.Now().Add(time.Hour)
	deliveries.now = func() time.Time { return later }

	a := NewScheduler(db, deliveries, NewSystemLogService(db), 30)
	b := NewScheduler(db, deliveries, NewSystemLogService(db), 30)
	a.now = func() time.Time { return later }
	b.now = func() time.Time { return later }

	a.sweepDeliveries()
	b.sweepDeliveries()

	if ids := queue.ids(); len(ids) != 1 {
		t.Errorf("enqueued %v, want one task", ids)
	}
}
