package review

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/chaingive/fraudguard/internal/fraud"
	"github.com/chaingive/fraudguard/internal/validation"
)

// Handler provides HTTP endpoints for manual reviews
type Handler struct {
	service *Service
}

// NewHandler creates a new review handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up review routes. Callers gate these behind the
// reviewer role.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/fraud/review", h.ReviewDecision)
	r.GET("/fraud/reviews/pending", h.PendingReviews)
}

// ReviewRequest records a reviewer decision
type ReviewRequest struct {
	TransactionID string `json:"transactionId" binding:"required"`
	Decision      string `json:"decision" binding:"required"`
	ReviewerID    string `json:"reviewerId" binding:"required"`
	Reason        string `json:"reason"`
	Notes         string `json:"notes"`
}

// ReviewDecision handles POST /fraud/review
func (h *Handler) ReviewDecision(c *gin.Context) {
	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "transactionId, decision, and reviewerId are required",
		})
		return
	}

	if errs := validation.Validate(
		validation.MaxLength("reason", req.Reason, 2000),
		validation.MaxLength("notes", req.Notes, 4000),
	); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_failed",
			"message": errs.Error(),
		})
		return
	}

	rc, err := h.service.Review(c.Request.Context(), req.TransactionID,
		Decision(req.Decision), req.ReviewerID,
		validation.SanitizeString(req.Reason, 2000), validation.SanitizeString(req.Notes, 4000))
	if errors.Is(err, ErrInvalidDecision) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_decision",
			"message": "decision must be approve, deny, or escalate",
		})
		return
	}
	if errors.Is(err, fraud.ErrCheckNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "No fraud check found for this transaction",
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "review_failed",
			"message": "Failed to record review",
		})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"review": rc})
}

// PendingReviews handles GET /fraud/reviews/pending
func (h *Handler) PendingReviews(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	riskFilter := c.Query("riskLevel")
	if riskFilter != "" {
		if errs := validation.Validate(
			validation.OneOf("riskLevel", riskFilter, "medium", "high"),
		); len(errs) > 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "validation_failed",
				"message": errs.Error(),
			})
			return
		}
	}

	result, err := h.service.Pending(c.Request.Context(), page, limit, riskFilter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "pending_failed",
			"message": "Failed to list pending reviews",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"reviews": result.Items,
		"meta":    result.Meta,
	})
}
