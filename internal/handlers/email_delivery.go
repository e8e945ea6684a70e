package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/harmonix/backend/internal/services"
	"github.com/harmonix/backend/pkg/response"
)

type EmailDeliveryHandler struct {
	deliveries *services.EmailDeliveryService
}

func NewEmailDeliveryHandler(deliveries *services.EmailDeliveryService) *EmailDeliveryHandler {
	return &EmailDeliveryHandler{deliveries: deliveries}
}

// GET /admin/email-deliveries
func (h *EmailDeliveryHandler) List(c *gin.Context) {
	var req services.EmailDeliveryListRequest
	if !bindQuery(c, &req) {
		return
	}

	resp, err := h.deliveries.List(&req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, resp)
}

// Retry re-enqueues a failed delivery with a fresh attempt budget.
// POST /admin/email-deliveries/:id/retry
func (h *EmailDeliveryHandler) Retry(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	delivery, err := h.deliveries.Retry(id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, "Email delivery queued for another attempt.", delivery)
}
