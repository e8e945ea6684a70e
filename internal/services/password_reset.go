package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harmonix/backend/internal/config"
	"github.com/harmonix/backend/internal/models"
	"github.com/harmonix/backend/internal/utils"
	"github.com/harmonix/backend/pkg/logger"
	"github.com/harmonix/backend/pkg/response"
	"gorm.io/gorm"
)

const (
	PasswordResetDonePath     = "/accounts/password-reset/done"
	PasswordResetCompletePath = "/accounts/reset/complete"
)

// EmailDispatcher queues an email for background delivery.
type EmailDispatcher interface {
	Dispatch(msg *EmailMessage) (*models.EmailDelivery, error)
}

type PasswordResetService struct {
	db       *gorm.DB
	tokens   *utils.ResetTokenGenerator
	mailer   EmailDispatcher
	baseURL  string
	validFor time.Duration
}

func NewPasswordResetService(db *gorm.DB, secret string, cfg *config.PasswordResetConfig, mailer EmailDispatcher) *PasswordResetService {
	validFor := time.Duration(cfg.TimeoutHours) * time.Hour
	return &PasswordResetService{
		db:       db,
		tokens:   utils.NewResetTokenGenerator(secret, validFor),
		mailer:   mailer,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		validFor: validFor,
	}
}

type PasswordResetRequest struct {
	Email string `json:"email" form:"email"`
}

type SetPasswordRequest struct {
	NewPassword1 string `json:"new_password1" form:"new_password1"`
	NewPassword2 string `json:"new_password2" form:"new_password2"`
}

// ResetCheck is the confirm step's view of a link. An invalid link is a
// normal outcome, not an error.
type ResetCheck struct {
	Valid    bool   `json:"valid"`
	Username string `json:"username,omitempty"`
}

// RequestReset queues a reset email when an active account has this address.
// The outcome is the same whether or not one does; only a malformed address
// is reported back.
func (s *PasswordResetService) RequestReset(req *PasswordResetRequest) error {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if msg := validateEmail(email); msg != "" {
		return response.NewValidation(FieldErrors{"email": msg})
	}

	var user models.User
	err := s.db.Where("email = ? AND is_active = ?", email, true).First(&user).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error().Err(err).Msg("[PasswordReset] user lookup failed")
		}
		return nil
	}

	resetURL := s.ResetURL(&user)
	msg, err := RenderPasswordReset(user.Email, user.Username, resetURL, s.validFor)
	if err != nil {
		logger.Error().Err(err).Uint("user_id", user.ID).Msg("[PasswordReset] render failed")
		return nil
	}
	if _, err := s.mailer.Dispatch(msg); err != nil {
		logger.Error().Err(err).Uint("user_id", user.ID).Msg("[PasswordReset] dispatch failed")
		return nil
	}

	LogInfo("accounts", "password_reset_requested", "Password reset email queued", &user.ID, "", "", nil)
	return nil
}

// ResetURL builds the confirm link for user.
func (s *PasswordResetService) ResetURL(user *models.User) string {
	return fmt.Sprintf("%s/accounts/reset/%s/%s/", s.baseURL, utils.EncodeUID(user.ID), s.MakeToken(user))
}

func (s *PasswordResetService) MakeToken(user *models.User) string {
	return s.tokens.MakeToken(resetSubject(user))
}

// CheckReset validates a confirm link without revealing why it failed.
func (s *PasswordResetService) CheckReset(uidb64, token string) *ResetCheck {
	user, ok := s.userForToken(uidb64, token)
	if !ok {
		return &ResetCheck{Valid: false}
	}
	return &ResetCheck{Valid: true, Username: user.Username}
}

// CompleteReset stores a new password for a valid link. The link stops
// working afterwards because the password hash is part of the token.
func (s *PasswordResetService) CompleteReset(uidb64, token string, req *SetPasswordRequest) error {
	user, ok := s.userForToken(uidb64, token)
	if !ok {
		return response.NewBadRequest("The password reset link was invalid, possibly because it has already been used. Please request a new password reset.")
	}

	fields := FieldErrors{}
	if msg := validatePassword(req.NewPassword1); msg != "" {
		fields.Add("new_password1", msg)
	}
	if req.NewPassword1 != req.NewPassword2 {
		fields.Add("new_password2", "Passwords do not match.")
	}
	if !fields.Empty() {
		return response.NewValidation(fields)
	}

	hash, err := utils.HashPassword(req.NewPassword1)
	if err != nil {
		return err
	}
	if err := s.db.Model(user).Update("password", hash).Error; err != nil {
		return err
	}

	LogInfo("accounts", "password_reset_completed", "Password changed through reset link", &user.ID, "", "", nil)
	return nil
}

func (s *PasswordResetService) userForToken(uidb64, token string) (*models.User, bool) {
	id, err := utils.DecodeUID(uidb64)
	if err != nil {
		return nil, false
	}
	var user models.User
	if err := s.db.Where("is_active = ?", true).First(&user, id).Error; err != nil {
		return nil, false
	}
	if !s.tokens.CheckToken(resetSubject(&user), token) {
		return nil, false
	}
	return &user, true
}

func resetSubject(user *models.User) utils.ResetSubject {
	return utils.ResetSubject{
		UserID:       user.ID,
		PasswordHash: user.Password,
	}
}
