package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/harmonix/backend/internal/config"
	"github.com/harmonix/backend/internal/middleware"
	"github.com/harmonix/backend/internal/services"
	"github.com/harmonix/backend/pkg/response"
	"gorm.io/gorm"
)

type ListingHandler struct {
	listingService *services.ListingService
}

func NewListingHandler(db *gorm.DB, cfg *config.Config) *ListingHandler {
	return &ListingHandler{
		listingService: services.NewListingService(db, &cfg.Listings),
	}
}

// Feed lists listings for the caller's role.
// GET /listings/
func (h *ListingHandler) Feed(c *gin.Context) {
	var req services.FeedRequest
	if !bindQuery(c, &req) {
		return
	}

	resp, err := h.listingService.Feed(middleware.GetUserID(c), middleware.GetRole(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, resp)
}

// CreateForm returns the catalog for a new listing.
// GET /listings/create
func (h *ListingHandler) CreateForm(c *gin.Context) {
	response.Success(c, catalog())
}

// POST /listings/create
func (h *ListingHandler) Create(c *gin.Context) {
	var req services.ListingRequest
	if !bind(c, &req) {
		return
	}

	listing, err := h.listingService.Create(middleware.GetUserID(c), middleware.GetRole(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Response{
		Success:  true,
		Message:  fmt.Sprintf("Listing \"%s\" has been created successfully!", listing.Title),
		Data:     listing,
		Redirect: listingPath(listing.ID),
	})
}

// GET /listings/:id
func (h *ListingHandler) Detail(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	detail, err := h.listingService.Detail(id, middleware.GetUserID(c), middleware.GetRole(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, detail)
}

// GET /listings/:id/edit
func (h *ListingHandler) EditForm(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	view, err := h.listingService.EditView(id, middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, view)
}

// POST /listings/:id/edit
func (h *ListingHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.ListingRequest
	if !bind(c, &req) {
		return
	}

	listing, err := h.listingService.Update(id, middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Response{
		Success:  true,
		Message:  fmt.Sprintf("Listing \"%s\" has been updated successfully!", listing.Title),
		Data:     listing,
		Redirect: listingPath(listing.ID),
	})
}

// POST /listings/:id/delete
func (h *ListingHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	title, err := h.listingService.Delete(id, middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Redirect(c, fmt.Sprintf("Listing \"%s\" has been deleted successfully.", title), feedPath)
}
