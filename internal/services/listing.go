package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/harmonix/backend/internal/config"
	"github.com/harmonix/backend/internal/models"
	"github.com/harmonix/backend/pkg/response"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	maxListingInstruments = 3
	maxListingGenres      = 3
)

type ListingService struct {
	db  *gorm.DB
	cfg *config.ListingsConfig
}

func NewListingService(db *gorm.DB, cfg *config.ListingsConfig) *ListingService {
	return &ListingService{db: db, cfg: cfg}
}

// ListingRequest is the create/edit form. IsActive is ignored on create.
type ListingRequest struct {
	Title             string   `json:"title" form:"title"`
	BandName          string   `json:"band_name" form:"band_name"`
	Description       string   `json:"description" form:"description"`
	InstrumentsNeeded []string `json:"instruments_needed" form:"instruments_needed"`
	Genres            []string `json:"genres" form:"genres"`
	Location          string   `json:"location" form:"location"`
	IsActive          *bool    `json:"is_active" form:"is_active"`
}

type ListingEditView struct {
	Listing             *models.Listing `json:"listing"`
	SelectedInstruments []string        `json:"selected_instruments"`
	SelectedGenres      []string        `json:"selected_genres"`
	InstrumentChoices   []models.Choice `json:"instrument_choices"`
	GenreChoices        []models.Choice `json:"genre_choices"`
}

type ListingDetail struct {
	Listing         *models.Listing      `json:"listing"`
	IsOwner         bool                 `json:"is_owner"`
	UserHasApplied  bool                 `json:"user_has_applied"`
	UserApplication *models.Application  `json:"user_application,omitempty"`
	CanApply        bool                 `json:"can_apply"`
	Applications    []models.Application `json:"applications,omitempty"`
}

type validatedListing struct {
	title, bandName, description, location string
	instruments, genres                    models.StringList
}

func (s *ListingService) validate(req *ListingRequest) (*validatedListing, error) {
	v := &validatedListing{
		title:       strings.TrimSpace(req.Title),
		bandName:    strings.TrimSpace(req.BandName),
		description: strings.TrimSpace(req.Description),
		location:    strings.TrimSpace(req.Location),
		instruments: models.Instruments.Normalize(req.InstrumentsNeeded),
		genres:      models.Genres.Normalize(req.Genres),
	}

	fields := FieldErrors{}
	if msg := validateLength(v.title, "Title", 10, 80, ""); msg != "" {
		fields.Add("title", msg)
	}
	if msg := validateLength(v.bandName, "Band name", 2, 50, ""); msg != "" {
		fields.Add("band_name", msg)
	}
	if msg := validateLength(v.description, "Description", 50, 500, " to provide enough detail"); msg != "" {
		fields.Add("description", msg)
	}
	switch n := len(v.instruments); {
	case n == 0:
		fields.Add("instruments_needed", "At least one instrument must be selected.")
	case n > maxListingInstruments:
		fields.Add("instruments_needed", fmt.Sprintf("Maximum %d instruments can be selected. Choose your primary needs.", maxListingInstruments))
	}
	switch n := len(v.genres); {
	case n == 0:
		fields.Add("genres", "At least one genre must be selected.")
	case n > maxListingGenres:
		fields.Add("genres", fmt.Sprintf("Maximum %d genres can be selected. Choose your main styles.", maxListingGenres))
	}
	if msg := validateLocation(v.location, s.cfg.StrictLocation); msg != "" {
		fields.Add("location", msg)
	}

	if !fields.Empty() {
		return nil, response.NewValidation(fields)
	}
	return v, nil
}

// Create stores a new active listing owned by the calling band admin.
func (s *ListingService) Create(ownerID uint, role models.Role, req *ListingRequest) (*models.Listing, error) {
	if !role.IsBandAdmin() {
		return nil, response.NewForbidden("Only band admins can create listings.")
	}
	v, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	listing := &models.Listing{
		Title:             v.title,
		BandName:          v.bandName,
		Description:       v.description,
		InstrumentsNeeded: v.instruments,
		Genres:            v.genres,
		Location:          v.location,
		IsActive:          true,
		BandAdminID:       ownerID,
	}
	if err := s.db.Create(listing).Error; err != nil {
		return nil, err
	}
	return listing, nil
}

// Update edits a listing the caller owns.
func (s *ListingService) Update(id, userID uint, req *ListingRequest) (*models.Listing, error) {
	listing, err := s.ownedListing(id, userID, "You can only edit your own listings.")
	if err != nil {
		return nil, err
	}
	v, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	listing.Title = v.title
	listing.BandName = v.bandName
	listing.Description = v.description
	listing.InstrumentsNeeded = v.instruments
	listing.Genres = v.genres
	listing.Location = v.location
	if req.IsActive != nil {
		listing.IsActive = *req.IsActive
	}
	if err := s.db.Omit(clause.Associations).Save(listing).Error; err != nil {
		return nil, err
	}
	return listing, nil
}

// EditView returns the listing with its stored values mapped back to the
// canonical keys the edit form selects.
func (s *ListingService) EditView(id, userID uint) (*ListingEditView, error) {
	listing, err := s.ownedListing(id, userID, "You can only edit your own listings.")
	if err != nil {
		return nil, err
	}
	return &ListingEditView{
		Listing:             listing,
		SelectedInstruments: models.Instruments.Keys(listing.InstrumentsNeeded),
		SelectedGenres:      models.Genres.Keys(listing.Genres),
		InstrumentChoices:   models.Instruments.Choices(),
		GenreChoices:        models.Genres.Choices(),
	}, nil
}

// Delete removes a listing with its applications and invitations.
func (s *ListingService) Delete(id, userID uint) (string, error) {
	listing, err := s.ownedListing(id, userID, "You can only delete your own listings.")
	if err != nil {
		return "", err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("listing_id = ?", listing.ID).Delete(&models.Application{}).Error; err != nil {
			return err
		}
		if err := tx.Where("listing_id = ?", listing.ID).Delete(&models.Invitation{}).Error; err != nil {
			return err
		}
		return tx.Delete(listing).Error
	})
	if err != nil {
		return "", err
	}
	return listing.Title, nil
}

// Detail assembles the listing page for the viewer.
func (s *ListingService) Detail(id, userID uint, role models.Role) (*ListingDetail, error) {
	listing, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	detail := &ListingDetail{
		Listing: listing,
		IsOwner: listing.BandAdminID == userID,
	}

	if role.IsMusician() {
		var app models.Application
		err := s.db.Where("musician_id = ? AND listing_id = ?", userID, listing.ID).First(&app).Error
		switch {
		case err == nil:
			detail.UserApplication = &app
			detail.UserHasApplied = app.Status.Submitted()
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, err
		}
		detail.CanApply = !detail.UserHasApplied && listing.IsActive
	}

	if detail.IsOwner {
		if err := s.db.Preload("Musician").
			Where("listing_id = ? AND status <> ?", listing.ID, models.ApplicationDraft).
			Order("created_at DESC").
			Find(&detail.Applications).Error; err != nil {
			return nil, err
		}
	}
	return detail, nil
}

// Get loads a listing with its owner.
func (s *ListingService) Get(id uint) (*models.Listing, error) {
	var listing models.Listing
	if err := s.db.Preload("BandAdmin").First(&listing, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("Listing not found.")
		}
		return nil, err
	}
	return &listing, nil
}

func (s *ListingService) ownedListing(id, userID uint, forbidden string) (*models.Listing, error) {
	listing, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if listing.BandAdminID != userID {
		return nil, response.NewForbidden(forbidden)
	}
	return listing, nil
}
