package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/harmonix/backend/internal/models"
	"github.com/harmonix/backend/pkg/response"
	"gorm.io/gorm"
)

type InvitationService struct {
	db *gorm.DB
}

func NewInvitationService(db *gorm.DB) *InvitationService {
	return &InvitationService{db: db}
}

type MusicianFilter struct {
	Search     string `form:"search" json:"search"`
	Instrument string `form:"instrument" json:"instrument"`
	Genre      string `form:"genre" json:"genre"`
}

type InvitePage struct {
	Musicians         []models.User    `json:"musicians"`
	ActiveListings    []models.Listing `json:"active_listings"`
	InstrumentChoices []models.Choice  `json:"instrument_choices"`
	GenreChoices      []models.Choice  `json:"genre_choices"`
	CurrentFilters    MusicianFilter   `json:"current_filters"`
}

type SendInvitationRequest struct {
	MusicianID uint   `json:"musician_id" binding:"required"`
	ListingID  uint   `json:"listing_id" binding:"required"`
	Message    string `json:"message"`
}

type RespondInvitationRequest struct {
	InvitationID uint   `json:"invitation_id" binding:"required"`
	Response     string `json:"response" binding:"required"`
}

// InvitePage lists musicians a band admin can invite and the band admin's
// active listings to invite them to.
func (s *InvitationService) InvitePage(bandAdminID uint, filter *MusicianFilter) (*InvitePage, error) {
	query := s.db.Where("role = ? AND is_active = ?", models.RoleMusician, true)

	if q := strings.ToLower(strings.TrimSpace(filter.Search)); q != "" {
		like := models.ContainsPattern(q)
		query = query.Where("LOWER(username) LIKE ?"+models.LikeEscape+
			" OR LOWER(location) LIKE ?"+models.LikeEscape+
			" OR LOWER(bio) LIKE ?"+models.LikeEscape, like, like, like)
	}
	if v := strings.TrimSpace(filter.Instrument); v != "" {
		query = query.Where("LOWER(instruments) LIKE ?"+models.LikeEscape, models.ListElementPattern(models.Instruments.Label(v)))
	}
	if v := strings.TrimSpace(filter.Genre); v != "" {
		query = query.Where("LOWER(genres) LIKE ?"+models.LikeEscape, models.ListElementPattern(models.Genres.Label(v)))
	}

	page := &InvitePage{
		InstrumentChoices: models.Instruments.Choices(),
		GenreChoices:      models.Genres.Choices(),
		CurrentFilters:    *filter,
	}
	if err := query.Order("username").Find(&page.Musicians).Error; err != nil {
		return nil, err
	}
	if err := s.db.Where("band_admin_id = ? AND is_active = ?", bandAdminID, true).
		Order("created_at DESC").Find(&page.ActiveListings).Error; err != nil {
		return nil, err
	}
	return page, nil
}

// Send invites a musician to one of the caller's active listings. A band
// admin can invite a musician to a listing only once.
func (s *InvitationService) Send(bandAdminID uint, role models.Role, req *SendInvitationRequest) (*models.Invitation, string, error) {
	if !role.IsBandAdmin() {
		return nil, "", response.NewForbidden("Access denied")
	}

	var musician models.User
	if err := s.db.Where("role = ?", models.RoleMusician).First(&musician, req.MusicianID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", response.NewNotFound("Musician not found.")
		}
		return nil, "", err
	}

	var listing models.Listing
	if err := s.db.Where("band_admin_id = ? AND is_active = ?", bandAdminID, true).First(&listing, req.ListingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", response.NewNotFound("Listing not found.")
		}
		return nil, "", err
	}

	duplicate := response.NewBadRequest(fmt.Sprintf("You have already invited %s for \"%s\".", musician.Username, listing.Title))

	var count int64
	if err := s.db.Model(&models.Invitation{}).
		Where("band_admin_id = ? AND musician_id = ? AND listing_id = ?", bandAdminID, musician.ID, listing.ID).
		Count(&count).Error; err != nil {
		return nil, "", err
	}
	if count > 0 {
		return nil, "", duplicate
	}

	inv := &models.Invitation{
		BandAdminID: bandAdminID,
		MusicianID:  musician.ID,
		ListingID:   listing.ID,
		Message:     strings.TrimSpace(req.Message),
		Status:      models.InvitationPending,
	}
	if err := s.db.Create(inv).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, "", duplicate
		}
		return nil, "", err
	}
	inv.Musician = &musician
	inv.Listing = &listing

	return inv, fmt.Sprintf("Invitation sent to %s for \"%s\"!", musician.Username, listing.Title), nil
}

// Received lists the invitations sent to a musician.
func (s *InvitationService) Received(musicianID uint) ([]models.Invitation, error) {
	invitations := []models.Invitation{}
	err := s.db.Preload("Listing").Preload("BandAdmin").
		Where("musician_id = ?", musicianID).
		Order("created_at DESC").Order("id DESC").
		Find(&invitations).Error
	return invitations, err
}

// Sent lists the invitations a band admin has sent.
func (s *InvitationService) Sent(bandAdminID uint) ([]models.Invitation, error) {
	invitations := []models.Invitation{}
	err := s.db.Preload("Listing").Preload("Musician").
		Where("band_admin_id = ?", bandAdminID).
		Order("created_at DESC").Order("id DESC").
		Find(&invitations).Error
	return invitations, err
}

// ParseInvitationResponse maps the accepted spellings to a terminal status.
func ParseInvitationResponse(s string) (models.InvitationStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "accept", "accepted":
		return models.InvitationAccepted, true
	case "decline", "declined":
		return models.InvitationDeclined, true
	}
	return "", false
}

// Respond records the invited musician's answer to a pending invitation.
func (s *InvitationService) Respond(musicianID uint, req *RespondInvitationRequest) (*models.Invitation, string, error) {
	to, ok := ParseInvitationResponse(req.Response)
	if !ok {
		return nil, "", response.NewBadRequest("Invalid response. Use accept or decline.")
	}

	var inv models.Invitation
	if err := s.db.Preload("Listing").Preload("BandAdmin").First(&inv, req.InvitationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", response.NewNotFound("Invitation not found.")
		}
		return nil, "", err
	}
	if inv.MusicianID != musicianID {
		return nil, "", response.NewForbidden("You can only respond to your own invitations.")
	}
	if !inv.Status.CanTransition(to) {
		return nil, "", response.NewBadRequest("This invitation has already been answered.")
	}

	result := s.db.Model(&models.Invitation{}).
		Where("id = ? AND status = ?", inv.ID, models.InvitationPending).
		Update("status", to)
	if result.Error != nil {
		return nil, "", result.Error
	}
	if result.RowsAffected == 0 {
		return nil, "", response.NewBadRequest("This invitation has already been answered.")
	}
	inv.Status = to

	title := ""
	if inv.Listing != nil {
		title = inv.Listing.Title
	}
	return &inv, fmt.Sprintf("Invitation for \"%s\" %s.", title, strings.ToLower(to.Label())), nil
}

type ListingSummary struct {
	ID                uint     `json:"id"`
	Title             string   `json:"title"`
	BandName          string   `json:"band_name"`
	Description       string   `json:"description"`
	Location          string   `json:"location"`
	InstrumentsNeeded []string `json:"instruments_needed"`
	Genres            []string `json:"genres"`
	IsActive          bool     `json:"is_active"`
	BandAdmin         string   `json:"band_admin"`
	CreatedAt         string   `json:"created_at"`
}

// ListingSummary is the JSON detail shown in the invitation dialogs.
func (s *InvitationService) ListingSummary(listingID uint) (*ListingSummary, error) {
	var listing models.Listing
	if err := s.db.Preload("BandAdmin").First(&listing, listingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("Listing not found.")
		}
		return nil, err
	}
	summary := &ListingSummary{
		ID:                listing.ID,
		Title:             listing.Title,
		BandName:          listing.BandName,
		Description:       listing.Description,
		Location:          listing.Location,
		InstrumentsNeeded: listing.InstrumentLabels(),
		Genres:            listing.GenreLabels(),
		IsActive:          listing.IsActive,
		CreatedAt:         listing.CreatedAt.Format("Jan 02, 2006"),
	}
	if listing.BandAdmin != nil {
		summary.BandAdmin = listing.BandAdmin.Username
	}
	return summary, nil
}
