package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harmonix/backend/internal/config"
	"github.com/harmonix/backend/internal/models"
	"github.com/harmonix/backend/pkg/logger"
	"github.com/harmonix/backend/pkg/response"
	"gorm.io/gorm"
)

const (
	EmailKindPasswordReset = "password_reset"

	sweepBatchSize = 50
)

// ErrDeliveryExhausted means a delivery has used all its attempts or is no
// longer retryable; queues must stop retrying it.
var ErrDeliveryExhausted = errors.New("email delivery exhausted")

// EmailDeliveryService owns the email_deliveries table and moves rows through
// pending -> retrying -> sent | failed.
type EmailDeliveryService struct {
	db          *gorm.DB
	queue       TaskQueue
	sender      Sender
	maxAttempts int
	stale       time.Duration
	now         func() time.Time
}

func NewEmailDeliveryService(db *gorm.DB, queue TaskQueue, sender Sender, cfg *config.EmailConfig) *EmailDeliveryService {
	return &EmailDeliveryService{
		db:          db,
		queue:       queue,
		sender:      sender,
		maxAttempts: cfg.MaxAttempts,
		stale:       time.Duration(cfg.StaleMinutes) * time.Minute,
		now:         time.Now,
	}
}

// Dispatch records msg and hands it to the queue. It never touches the
// network; a queue failure leaves the row pending for the sweep.
func (s *EmailDeliveryService) Dispatch(msg *EmailMessage) (*models.EmailDelivery, error) {
	delivery := &models.EmailDelivery{
		Kind:        msg.Kind,
		Recipient:   msg.To,
		Subject:     msg.Subject,
		HTMLBody:    msg.HTMLBody,
		TextBody:    msg.TextBody,
		Status:      models.DeliveryPending,
		MaxAttempts: s.maxAttempts,
	}
	if err := s.db.Create(delivery).Error; err != nil {
		return nil, fmt.Errorf("record delivery: %w", err)
	}

	if err := s.queue.Enqueue(&EmailTask{DeliveryID: delivery.ID, Reference: delivery.Reference}); err != nil {
		logger.Error().Err(err).Uint("delivery_id", delivery.ID).Msg("[Email] enqueue failed, left for sweep")
	}
	return delivery, nil
}

// ProcessEmailTask makes one send attempt for the task's delivery and
// records the outcome. It returns ErrDeliveryExhausted once no attempts
// remain so the queue stops retrying.
func (s *EmailDeliveryService) ProcessEmailTask(ctx context.Context, task *EmailTask) error {
	var delivery models.EmailDelivery
	if err := s.db.First(&delivery, task.DeliveryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("delivery %d: %w", task.DeliveryID, ErrDeliveryExhausted)
		}
		return err
	}

	switch delivery.Status {
	case models.DeliverySent:
		return nil
	case models.DeliveryFailed:
		return fmt.Errorf("delivery %d already failed: %w", delivery.ID, ErrDeliveryExhausted)
	case models.DeliveryPending, models.DeliveryRetrying:
	}
	if !delivery.AttemptsLeft() {
		s.markFailed(&delivery, delivery.LastError)
		return fmt.Errorf("delivery %d: %w", delivery.ID, ErrDeliveryExhausted)
	}

	delivery.Attempts++
	sendErr := s.sender.Send(ctx, &EmailMessage{
		Kind:     delivery.Kind,
		To:       delivery.Recipient,
		Subject:  delivery.Subject,
		HTMLBody: delivery.HTMLBody,
		TextBody: delivery.TextBody,
	})

	if sendErr == nil {
		sentAt := s.now()
		err := s.db.Model(&delivery).Updates(map[string]interface{}{
			"status":     models.DeliverySent,
			"attempts":   delivery.Attempts,
			"last_error": "",
			"sent_at":    sentAt,
		}).Error
		logger.Info().Uint("delivery_id", delivery.ID).Str("kind", delivery.Kind).Int("attempt", delivery.Attempts).
			Str("sender", s.sender.Name()).Msg("[Email] delivered")
		return err
	}

	if !delivery.AttemptsLeft() {
		s.markFailed(&delivery, sendErr.Error())
		return fmt.Errorf("%v: %w", sendErr, ErrDeliveryExhausted)
	}

	if err := s.db.Model(&delivery).Updates(map[string]interface{}{
		"status":     models.DeliveryRetrying,
		"attempts":   delivery.Attempts,
		"last_error": sendErr.Error(),
	}).Error; err != nil {
		logger.Error().Err(err).Uint("delivery_id", delivery.ID).Msg("[Email] failed to record attempt")
	}
	logger.Warn().Err(sendErr).Uint("delivery_id", delivery.ID).Int("attempt", delivery.Attempts).
		Int("max_attempts", delivery.MaxAttempts).Msg("[Email] attempt failed")
	return sendErr
}

func (s *EmailDeliveryService) markFailed(delivery *models.EmailDelivery, lastError string) {
	if err := s.db.Model(delivery).Updates(map[string]interface{}{
		"status":     models.DeliveryFailed,
		"attempts":   delivery.Attempts,
		"last_error": lastError,
	}).Error; err != nil {
		logger.Error().Err(err).Uint("delivery_id", delivery.ID).Msg("[Email] failed to mark delivery failed")
	}

	logger.Error().Uint("delivery_id", delivery.ID).Str("reference", delivery.Reference).Str("kind", delivery.Kind).
		Int("attempts", delivery.Attempts).Str("last_error", lastError).Msg("[Email] delivery failed permanently")
	LogError("email", "delivery_failed",
		fmt.Sprintf("Email %s to %s failed after %d attempts", delivery.Kind, delivery.Recipient, delivery.Attempts),
		nil, "", "", map[string]interface{}{
			"delivery_id": delivery.ID,
			"reference":   delivery.Reference,
			"last_error":  lastError,
		})
}

// SweepStale re-enqueues deliveries that have sat in pending or retrying for
// longer than the staleness window and still have attempts left. It returns
// how many were re-enqueued.
func (s *EmailDeliveryService) SweepStale() (int, error) {
	cutoff := s.now().Add(-s.stale)

	var stale []models.EmailDelivery
	err := s.db.Where("status IN ? AND updated_at < ? AND attempts < max_attempts",
		[]models.DeliveryStatus{models.DeliveryPending, models.DeliveryRetrying}, cutoff).
		Order("id").
		Limit(sweepBatchSize).
		Find(&stale).Error
	if err != nil {
		return 0, err
	}

	enqueued := 0
	for i := range stale {
		d := &stale[i]
		if err := s.queue.Enqueue(&EmailTask{DeliveryID: d.ID, Reference: d.Reference}); err != nil {
			logger.Warn().Err(err).Uint("delivery_id", d.ID).Msg("[Email] sweep enqueue failed")
			continue
		}
		// bump updated_at so the next sweep leaves it alone for a while
		s.db.Model(d).UpdateColumn("updated_at", s.now())
		enqueued++
	}
	if enqueued > 0 {
		logger.Infof("[Email] Sweep re-enqueued %d stale deliveries", enqueued)
	}
	return enqueued, nil
}

type EmailDeliveryListRequest struct {
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Status    string `form:"status"`
	Kind      string `form:"kind"`
	Recipient string `form:"recipient"`
}

type EmailDeliveryListResponse struct {
	Total    int64                  `json:"total"`
	Page     int                    `json:"page"`
	PageSize int                    `json:"page_size"`
	Items    []models.EmailDelivery `json:"items"`
}

func (s *EmailDeliveryService) List(req *EmailDeliveryListRequest) (*EmailDeliveryListResponse, error) {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	query := s.db.Model(&models.EmailDelivery{})
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.Kind != "" {
		query = query.Where("kind = ?", req.Kind)
	}
	if req.Recipient != "" {
		query = query.Where("recipient LIKE ?"+models.LikeEscape, models.ContainsPattern(req.Recipient))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var items []models.EmailDelivery
	offset := (req.Page - 1) * req.PageSize
	if err := query.Order("created_at DESC").Order("id DESC").Offset(offset).Limit(req.PageSize).Find(&items).Error; err != nil {
		return nil, err
	}

	return &EmailDeliveryListResponse{Total: total, Page: req.Page, PageSize: req.PageSize, Items: items}, nil
}

// Retry gives a failed delivery a fresh set of attempts and enqueues it.
func (s *EmailDeliveryService) Retry(id uint) (*models.EmailDelivery, error) {
	var delivery models.EmailDelivery
	if err := s.db.First(&delivery, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("Email delivery not found.")
		}
		return nil, err
	}
	if delivery.Status != models.DeliveryFailed {
		return nil, response.NewBadRequest("Only failed deliveries can be retried.")
	}

	if err := s.db.Model(&delivery).Updates(map[string]interface{}{
		"status":       models.DeliveryPending,
		"attempts":     0,
		"max_attempts": s.maxAttempts,
	}).Error; err != nil {
		return nil, err
	}
	delivery.Status = models.DeliveryPending
	delivery.Attempts = 0
	delivery.MaxAttempts = s.maxAttempts

	if err := s.queue.Enqueue(&EmailTask{DeliveryID: delivery.ID, Reference: delivery.Reference}); err != nil {
		return nil, err
	}
	return &delivery, nil
}

// CountByStatus feeds the metrics endpoint.
func (s *EmailDeliveryService) CountByStatus() (map[models.DeliveryStatus]int64, error) {
	var rows []struct {
		Status models.DeliveryStatus
		Count  int64
	}
	if err := s.db.Model(&models.EmailDelivery{}).Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[models.DeliveryStatus]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Count
	}
	return out, nil
}
