package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DeliveryStatus string

const (
	DeliveryPending  DeliveryStatus = "pending"
	DeliveryRetrying DeliveryStatus = "retrying"
	DeliverySent     DeliveryStatus = "sent"
	DeliveryFailed   DeliveryStatus = "failed"
)

// EmailDelivery tracks one outgoing email through the task queue
type EmailDelivery struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Reference   string         `gorm:"uniqueIndex;size:36;not null" json:"reference"`
	Kind        string         `gorm:"size:50;index" json:"kind"` // password_reset, ...
	Recipient   string         `gorm:"size:254;index;not null" json:"recipient"`
	Subject     string         `gorm:"size:255" json:"subject"`
	HTMLBody    string         `gorm:"type:text" json:"-"`
	TextBody    string         `gorm:"type:text" json:"-"`
	Status      DeliveryStatus `gorm:"size:20;default:pending;index" json:"status"`
	Attempts    int            `gorm:"default:0" json:"attempts"`
	MaxAttempts int            `gorm:"default:3" json:"max_attempts"`
	LastError   string         `gorm:"type:text" json:"last_error"`
	SentAt      *time.Time     `json:"sent_at"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"index" json:"updated_at"`
}

func (EmailDelivery) TableName() string { return "email_deliveries" }

func (d *EmailDelivery) BeforeCreate(tx *gorm.DB) error {
	if d.Reference == "" {
		d.Reference = uuid.New().String()
	}
	return nil
}

// AttemptsLeft reports whether another send may be tried.
func (d *EmailDelivery) AttemptsLeft() bool {
	return d.Attempts < d.MaxAttempts
}
