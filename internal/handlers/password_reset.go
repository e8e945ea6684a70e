package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/harmonix/backend/internal/config"
	"github.com/harmonix/backend/internal/services"
	"github.com/harmonix/backend/pkg/response"
	"gorm.io/gorm"
)

type PasswordResetHandler struct {
	resetService *services.PasswordResetService
}

func NewPasswordResetHandler(db *gorm.DB, cfg *config.Config, mailer services.EmailDispatcher) *PasswordResetHandler {
	return &PasswordResetHandler{
		resetService: services.NewPasswordResetService(db, cfg.Session.Secret, &cfg.PasswordReset, mailer),
	}
}

// RequestReset answers with the same redirect whether or not the address
// belongs to an account.
// POST /accounts/password-reset
func (h *PasswordResetHandler) RequestReset(c *gin.Context) {
	var req services.PasswordResetRequest
	if !bind(c, &req) {
		return
	}
	if err := h.resetService.RequestReset(&req); err != nil {
		response.Error(c, err)
		return
	}
	response.Redirect(c, "", services.PasswordResetDonePath)
}

// GET /accounts/password-reset/done
func (h *PasswordResetHandler) Done(c *gin.Context) {
	response.Message(c, "We've emailed you instructions for setting your password, if an account exists with the email you entered. You should receive them shortly.", nil)
}

// Confirm reports whether a reset link can still be used.
// GET /accounts/reset/:uidb64/:token
func (h *PasswordResetHandler) Confirm(c *gin.Context) {
	response.Success(c, h.resetService.CheckReset(c.Param("uidb64"), c.Param("token")))
}

// SetPassword stores the new password for a valid link.
// POST /accounts/reset/:uidb64/:token
func (h *PasswordResetHandler) SetPassword(c *gin.Context) {
	var req services.SetPasswordRequest
	if !bind(c, &req) {
		return
	}
	if err := h.resetService.CompleteReset(c.Param("uidb64"), c.Param("token"), &req); err != nil {
		response.Error(c, err)
		return
	}
	response.Redirect(c, "", services.PasswordResetCompletePath)
}

// GET /accounts/reset/complete
func (h *PasswordResetHandler) Complete(c *gin.Context) {
	response.Redirect(c, "Your password has been set. You may go ahead and log in now.", loginPath)
}
