package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/harmonix/backend/internal/models"
	"github.com/harmonix/backend/internal/services"
	"gorm.io/gorm"
)

// HealthHandler reports the state of the database and the email pipeline.
type HealthHandler struct {
	db    *gorm.DB
	queue services.TaskQueue
}

func NewHealthHandler(db *gorm.DB, queue services.TaskQueue) *HealthHandler {
	return &HealthHandler{db: db, queue: queue}
}

// GET /health
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"
	code := http.StatusOK

	dbStatus := "ok"
	sqlDB, err := h.db.DB()
	if err != nil {
		dbStatus = "error: " + err.Error()
	} else if err := sqlDB.Ping(); err != nil {
		dbStatus = "error: " + err.Error()
	}
	if dbStatus != "ok" {
		overall = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	queueMode := "sync"
	if h.queue != nil && h.queue.IsAsync() {
		queueMode = "async (Redis)"
	}

	var pendingEmails int64
	if dbStatus == "ok" {
		h.db.Model(&models.EmailDelivery{}).
			Where("status IN ?", []models.DeliveryStatus{models.DeliveryPending, models.DeliveryRetrying}).
			Count(&pendingEmails)
	}

	c.JSON(code, gin.H{
		"status":  overall,
		"service": "harmonix",
		"components": gin.H{
			"database":       dbStatus,
			"queue_mode":     queueMode,
			"pending_emails": pendingEmails,
		},
	})
}
