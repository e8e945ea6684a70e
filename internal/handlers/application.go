package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/harmonix/backend/internal/middleware"
	"github.com/harmonix/backend/internal/services"
	"github.com/harmonix/backend/pkg/response"
	"gorm.io/gorm"
)

const myApplicationsPath = "/applications/my-applications"

type ApplicationHandler struct {
	applicationService *services.ApplicationService
}

func NewApplicationHandler(db *gorm.DB) *ApplicationHandler {
	return &ApplicationHandler{
		applicationService: services.NewApplicationService(db),
	}
}

// Apply saves a draft or submits an application.
// POST /applications/apply/:listing_id
func (h *ApplicationHandler) Apply(c *gin.Context) {
	listingID, ok := pathID(c, "listing_id")
	if !ok {
		return
	}
	var req services.ApplyRequest
	if !bind(c, &req) {
		return
	}

	result, err := h.applicationService.Apply(listingID, middleware.GetUserID(c), middleware.GetRole(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	status := http.StatusCreated
	if req.Draft {
		status = http.StatusOK
	}
	c.JSON(status, response.Response{
		Success:  true,
		Message:  result.Message,
		Data:     result.Application,
		Redirect: listingPath(listingID),
	})
}

// UpdateStatus accepts or rejects an application.
// POST /applications/status/:id
func (h *ApplicationHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.StatusRequest
	if !bind(c, &req) {
		return
	}

	app, err := h.applicationService.UpdateStatus(id, middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	username := ""
	if app.Musician != nil {
		username = app.Musician.Username
	}
	c.JSON(http.StatusOK, response.Response{
		Success:  true,
		Message:  fmt.Sprintf("Application from %s has been %s.", username, strings.ToLower(app.Status.Label())),
		Data:     app,
		Redirect: listingPath(app.ListingID),
	})
}

// Withdraw deletes the caller's draft or pending application.
// POST /applications/withdraw/:id
func (h *ApplicationHandler) Withdraw(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	title, err := h.applicationService.Withdraw(id, middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Redirect(c, fmt.Sprintf("Your application to '%s' has been withdrawn.", title), myApplicationsPath)
}

// GET /applications/my-applications
func (h *ApplicationHandler) MyApplications(c *gin.Context) {
	resp, err := h.applicationService.MyApplications(middleware.GetUserID(c), middleware.GetRole(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, resp)
}
