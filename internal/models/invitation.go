package models

import "time"

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
)

func (s InvitationStatus) Label() string {
	switch s {
	case InvitationPending:
		return "Pending"
	case InvitationAccepted:
		return "Accepted"
	case InvitationDeclined:
		return "Declined"
	}
	return ""
}

// CanTransition allows a single response to a pending invitation.
func (s InvitationStatus) CanTransition(to InvitationStatus) bool {
	switch s {
	case InvitationPending:
		return to == InvitationAccepted || to == InvitationDeclined
	case InvitationAccepted, InvitationDeclined:
		return false
	}
	return false
}

// Invitation is a band admin's outreach to a musician for a listing
type Invitation struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	BandAdminID uint             `gorm:"uniqueIndex:idx_invitations_band_musician_listing;not null" json:"band_admin_id"`
	BandAdmin   *User            `gorm:"foreignKey:BandAdminID;constraint:OnDelete:CASCADE" json:"band_admin,omitempty"`
	MusicianID  uint             `gorm:"uniqueIndex:idx_invitations_band_musician_listing;index;not null" json:"musician_id"`
	Musician    *User            `gorm:"foreignKey:MusicianID;constraint:OnDelete:CASCADE" json:"musician,omitempty"`
	ListingID   uint             `gorm:"uniqueIndex:idx_invitations_band_musician_listing;index;not null" json:"listing_id"`
	Listing     *Listing         `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE" json:"listing,omitempty"`
	Message     string           `gorm:"type:text" json:"message"`
	Status      InvitationStatus `gorm:"size:20;default:pending;index" json:"status"`
	CreatedAt   time.Time        `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

func (Invitation) TableName() string { return "invitations" }
