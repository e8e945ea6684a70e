package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/harmonix/backend/internal/models"
	"github.com/harmonix/backend/pkg/response"
	"gorm.io/gorm"
)

const alreadyApplied = "You have already applied to this listing."

var errUnknownRole = response.NewForbidden("This page is not available for your account type.")

type ApplicationService struct {
	db *gorm.DB
}

func NewApplicationService(db *gorm.DB) *ApplicationService {
	return &ApplicationService{db: db}
}

type ApplyRequest struct {
	Message string `json:"message" form:"message"`
	// Draft saves without submitting
	Draft bool `json:"draft" form:"draft"`
}

type StatusRequest struct {
	Status string `json:"status" form:"status"`
}

type ApplyResult struct {
	Application *models.Application `json:"application"`
	Message     string              `json:"message"`
}

// Apply saves or submits the caller's application to an active listing.
// There is at most one row per musician and listing: a draft is updated in
// place and promoted to pending on submit.
func (s *ApplicationService) Apply(listingID, musicianID uint, role models.Role, req *ApplyRequest) (*ApplyResult, error) {
	if !role.IsMusician() {
		return nil, response.NewForbidden("Only musicians can apply to listings.")
	}

	var listing models.Listing
	if err := s.db.Where("is_active = ?", true).First(&listing, listingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("Listing not found.")
		}
		return nil, err
	}

	message := strings.TrimSpace(req.Message)
	var result *ApplyResult

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var existing models.Application
		err := tx.Where("musician_id = ? AND listing_id = ?", musicianID, listing.ID).First(&existing).Error
		switch {
		case err == nil:
			if existing.Status.Submitted() {
				return response.NewConflict(alreadyApplied)
			}
			existing.Message = message
			msg := "Your draft application has been saved."
			if !req.Draft {
				existing.Status = models.ApplicationPending
				msg = fmt.Sprintf("Your application to '%s' has been submitted!", listing.Title)
			}
			if err := tx.Model(&existing).Updates(map[string]interface{}{
				"message": existing.Message,
				"status":  existing.Status,
			}).Error; err != nil {
				return err
			}
			result = &ApplyResult{Application: &existing, Message: msg}
			return nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		app := &models.Application{
			MusicianID: musicianID,
			ListingID:  listing.ID,
			Message:    message,
			Status:     models.ApplicationPending,
		}
		msg := fmt.Sprintf("Your application to '%s' has been submitted!", listing.Title)
		if req.Draft {
			app.Status = models.ApplicationDraft
			msg = "Your draft application has been saved."
		}
		if err := tx.Create(app).Error; err != nil {
			return err
		}
		result = &ApplyResult{Application: app, Message: msg}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, response.NewConflict(alreadyApplied)
		}
		return nil, err
	}
	return result, nil
}

// UpdateStatus accepts or rejects a pending application on the caller's listing.
func (s *ApplicationService) UpdateStatus(id, userID uint, req *StatusRequest) (*models.Application, error) {
	app, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if app.Listing == nil || app.Listing.BandAdminID != userID {
		return nil, response.NewForbidden("You can only manage applications to your own listings.")
	}

	to := models.ApplicationStatus(req.Status)
	if to != models.ApplicationAccepted && to != models.ApplicationRejected {
		return nil, response.NewBadRequest("Invalid status provided.")
	}
	if !app.Status.CanTransition(to) {
		return nil, response.NewBadRequest(fmt.Sprintf("A %s application cannot be %s.", strings.ToLower(app.Status.Label()), to))
	}

	// guard against a concurrent change between load and write
	result := s.db.Model(&models.Application{}).
		Where("id = ? AND status = ?", app.ID, app.Status).
		Update("status", to)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, response.NewConflict("This application was changed by someone else. Please reload.")
	}
	app.Status = to
	return app, nil
}

// Withdraw deletes the caller's draft or pending application and returns
// the listing title.
func (s *ApplicationService) Withdraw(id, userID uint) (string, error) {
	app, err := s.get(id)
	if err != nil {
		return "", err
	}
	if app.MusicianID != userID {
		return "", response.NewForbidden("You can only withdraw your own applications.")
	}
	if !app.Status.Withdrawable() {
		return "", response.NewBadRequest("Only draft or pending applications can be withdrawn.")
	}

	result := s.db.Where("id = ? AND status IN ?", app.ID,
		[]models.ApplicationStatus{models.ApplicationDraft, models.ApplicationPending}).
		Delete(&models.Application{})
	if result.Error != nil {
		return "", result.Error
	}
	if result.RowsAffected == 0 {
		return "", response.NewConflict("This application was changed by someone else. Please reload.")
	}

	title := ""
	if app.Listing != nil {
		title = app.Listing.Title
	}
	return title, nil
}

type MyApplicationsResponse struct {
	// Received is true when the list holds applications to the caller's listings
	Received     bool                 `json:"received"`
	Applications []models.Application `json:"applications"`
}

// MyApplications lists a musician's own applications (drafts included), the
// submitted applications to a band admin's listings, or every submitted
// application for an administrator.
func (s *ApplicationService) MyApplications(userID uint, role models.Role) (*MyApplicationsResponse, error) {
	query := s.db.Preload("Listing").Preload("Listing.BandAdmin").Preload("Musician").
		Order("applications.created_at DESC").Order("applications.id DESC")
	resp := &MyApplicationsResponse{}

	switch role {
	case models.RoleMusician:
		query = query.Where("musician_id = ?", userID)
	case models.RoleBand:
		resp.Received = true
		query = query.
			Joins("JOIN listings ON listings.id = applications.listing_id").
			Where("listings.band_admin_id = ? AND applications.status <> ?", userID, models.ApplicationDraft)
	case models.RoleAdmin:
		resp.Received = true
		query = query.Where("applications.status <> ?", models.ApplicationDraft)
	default:
		return nil, errUnknownRole
	}

	if err := query.Find(&resp.Applications).Error; err != nil {
		return nil, err
	}
	if resp.Applications == nil {
		resp.Applications = []models.Application{}
	}
	return resp, nil
}

func (s *ApplicationService) get(id uint) (*models.Application, error) {
	var app models.Application
	if err := s.db.Preload("Listing").Preload("Musician").First(&app, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("Application not found.")
		}
		return nil, err
	}
	return &app, nil
}
