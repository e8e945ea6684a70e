package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/harmonix/backend/internal/middleware"
	"github.com/harmonix/backend/internal/services"
	"github.com/harmonix/backend/pkg/response"
	"gorm.io/gorm"
)

type InvitationHandler struct {
	invitationService *services.InvitationService
}

func NewInvitationHandler(db *gorm.DB) *InvitationHandler {
	return &InvitationHandler{
		invitationService: services.NewInvitationService(db),
	}
}

// InvitePage lists musicians to invite and the caller's active listings.
// GET /invitations/invite
func (h *InvitationHandler) InvitePage(c *gin.Context) {
	var filter services.MusicianFilter
	if !bindQuery(c, &filter) {
		return
	}

	page, err := h.invitationService.InvitePage(middleware.GetUserID(c), &filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, page)
}

// Send invites a musician to a listing. The endpoint is JSON only.
// POST /invitations/send
func (h *InvitationHandler) Send(c *gin.Context) {
	var req services.SendInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Musician and listing are required.")
		return
	}

	inv, msg, err := h.invitationService.Send(middleware.GetUserID(c), middleware.GetRole(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, msg, inv)
}

// GET /invitations/received
func (h *InvitationHandler) Received(c *gin.Context) {
	invitations, err := h.invitationService.Received(middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"invitations": invitations})
}

// GET /invitations/sent
func (h *InvitationHandler) Sent(c *gin.Context) {
	invitations, err := h.invitationService.Sent(middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"invitations": invitations})
}

// Respond accepts or declines an invitation.
// POST /invitations/respond
func (h *InvitationHandler) Respond(c *gin.Context) {
	var req services.RespondInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invitation and response are required.")
		return
	}

	inv, msg, err := h.invitationService.Respond(middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, msg, inv)
}

// ListingDetail is the JSON listing summary used by the invitation dialogs.
// GET /invitations/listing/:id
func (h *InvitationHandler) ListingDetail(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	summary, err := h.invitationService.ListingSummary(id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, summary)
}
