package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aiverso/aiverso-backend/internal/logger"
	"github.com/aiverso/aiverso-backend/internal/requestdata"
	"github.com/aiverso/aiverso-backend/internal/services"
)

type ReviewHandler struct {
	log           *logger.Logger
	reviewService services.ReviewService
}

func NewReviewHandler(log *logger.Logger, reviewService services.ReviewService) *ReviewHandler {
	return &ReviewHandler{
		log:           log.With("handler", "ReviewHandler"),
		reviewService: reviewService,
	}
}

func (h *ReviewHandler) CreateReview(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var req struct {
		CourseID uuid.UUID `json:"course_id"`
		Rating   int       `json:"rating"`
		Comment  string    `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.CourseID == uuid.Nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", fmt.Errorf("course_id and rating required"))
		return
	}
	review, err := h.reviewService.CreateReview(c.Request.Context(), rd.UserID, req.CourseID, req.Rating, req.Comment)
	if err != nil {
		RespondServiceError(c, h.log, err)
		return
	}
	RespondCreated(c, gin.H{"review": review})
}

func (h *ReviewHandler) ListByCourse(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_course_id", fmt.Errorf("invalid course id"))
		return
	}
	reviews, err := h.reviewService.ListByCourse(c.Request.Context(), courseID)
	if err != nil {
		RespondServiceError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"reviews": reviews})
}
