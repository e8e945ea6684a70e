package models

import (
	"fmt"
	"time"
)

type ApplicationStatus string

const (
	ApplicationDraft    ApplicationStatus = "draft"
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationAccepted ApplicationStatus = "accepted"
	ApplicationRejected ApplicationStatus = "rejected"
)

func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationDraft, ApplicationPending, ApplicationAccepted, ApplicationRejected:
		return true
	}
	return false
}

func (s ApplicationStatus) Label() string {
	switch s {
	case ApplicationDraft:
		return "Draft"
	case ApplicationPending:
		return "Pending Review"
	case ApplicationAccepted:
		return "Accepted"
	case ApplicationRejected:
		return "Rejected"
	}
	return ""
}

// CanTransition encodes draft -> pending -> accepted|rejected.
// Withdrawal is a delete and is covered by Withdrawable.
func (s ApplicationStatus) CanTransition(to ApplicationStatus) bool {
	switch s {
	case ApplicationDraft:
		return to == ApplicationPending
	case ApplicationPending:
		return to == ApplicationAccepted || to == ApplicationRejected
	case ApplicationAccepted, ApplicationRejected:
		return false
	}
	return false
}

func (s ApplicationStatus) Withdrawable() bool {
	switch s {
	case ApplicationDraft, ApplicationPending:
		return true
	case ApplicationAccepted, ApplicationRejected:
		return false
	}
	return false
}

// Submitted is true for everything past draft.
func (s ApplicationStatus) Submitted() bool {
	return s.Valid() && s != ApplicationDraft
}

// Application is a musician's request to fill a listing
type Application struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	MusicianID uint              `gorm:"uniqueIndex:idx_applications_musician_listing;not null" json:"musician_id"`
	Musician   *User             `gorm:"foreignKey:MusicianID;constraint:OnDelete:CASCADE" json:"musician,omitempty"`
	ListingID  uint              `gorm:"uniqueIndex:idx_applications_musician_listing;index;not null" json:"listing_id"`
	Listing    *Listing          `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE" json:"listing,omitempty"`
	Message    string            `gorm:"type:text" json:"message"`
	Status     ApplicationStatus `gorm:"size:20;default:pending;index" json:"status"`
	CreatedAt  time.Time         `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

func (Application) TableName() string { return "applications" }

// AppliedDisplay renders e.g. "Applied Jan 15, 2024".
func (a *Application) AppliedDisplay() string {
	return fmt.Sprintf("Applied %s", a.CreatedAt.Format("Jan 02, 2006"))
}
