package alerts

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/chaingive/fraudguard/internal/pagination"
	"github.com/chaingive/fraudguard/internal/validation"
)

// Handler provides HTTP endpoints for fraud alerts
type Handler struct {
	service *Service
}

// NewHandler creates a new alerts handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up alert routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/fraud/alerts", h.ListAlerts)
	r.POST("/fraud/alerts/:alertId/acknowledge", h.AcknowledgeAlert)
	r.POST("/fraud/false-positive", h.ReportFalsePositive)
}

// ListAlerts handles GET /fraud/alerts
func (h *Handler) ListAlerts(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "userId query parameter is required",
		})
		return
	}

	var acknowledged *bool
	if raw := c.Query("acknowledged"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_request",
				"message": "acknowledged must be true or false",
			})
			return
		}
		acknowledged = &parsed
	}

	limit := pagination.DefaultLimit
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = pagination.ClampLimit(parsed)
		}
	}

	alerts, next, err := h.service.List(c.Request.Context(), userID, acknowledged, c.Query("cursor"), limit)
	if err != nil {
		status := http.StatusInternalServerError
		msg := "Failed to list alerts"
		if strings.Contains(err.Error(), "invalid cursor") {
			status = http.StatusBadRequest
			msg = "Invalid cursor"
		}
		c.JSON(status, gin.H{
			"error":   "list_failed",
			"message": msg,
		})
		return
	}
	if alerts == nil {
		alerts = []*FraudAlert{}
	}
	c.JSON(http.StatusOK, gin.H{
		"alerts":     alerts,
		"count":      len(alerts),
		"nextCursor": next,
	})
}

// AcknowledgeRequest identifies the acknowledging user
type AcknowledgeRequest struct {
	UserID string `json:"userId" binding:"required"`
}

// AcknowledgeAlert handles POST /fraud/alerts/:alertId/acknowledge
func (h *Handler) AcknowledgeAlert(c *gin.Context) {
	var req AcknowledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "userId is required",
		})
		return
	}

	alert, err := h.service.Acknowledge(c.Request.Context(), req.UserID, c.Param("alertId"))
	if errors.Is(err, ErrAlertNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "Alert not found",
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "acknowledge_failed",
			"message": "Failed to acknowledge alert",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"alert": alert})
}

// FalsePositiveRequest reports an alert as a false positive
type FalsePositiveRequest struct {
	UserID        string `json:"userId" binding:"required"`
	TransactionID string `json:"transactionId" binding:"required"`
	Reason        string `json:"reason" binding:"required"`
}

// ReportFalsePositive handles POST /fraud/false-positive
func (h *Handler) ReportFalsePositive(c *gin.Context) {
	var req FalsePositiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "userId, transactionId, and reason are required",
		})
		return
	}

	if errs := validation.Validate(
		validation.MaxLength("reason", req.Reason, 2000),
	); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_failed",
			"message": errs.Error(),
		})
		return
	}

	alert, err := h.service.ReportFalsePositive(c.Request.Context(),
		req.UserID, req.TransactionID, validation.SanitizeString(req.Reason, 2000))
	if errors.Is(err, ErrAlertNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "No alert found for this transaction",
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "report_failed",
			"message": "Failed to report false positive",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"alert": alert})
}
