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

type EnrollmentHandler struct {
	log               *logger.Logger
	enrollmentService services.EnrollmentService
	progressService   services.ProgressService
}

func NewEnrollmentHandler(log *logger.Logger, enrollmentService services.EnrollmentService, progressService services.ProgressService) *EnrollmentHandler {
	return &EnrollmentHandler{
		log:               log.With("handler", "EnrollmentHandler"),
		enrollmentService: enrollmentService,
		progressService:   progressService,
	}
}

func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var req struct {
		CourseID uuid.UUID `json:"course_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.CourseID == uuid.Nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", fmt.Errorf("course_id required"))
		return
	}
	enrollment, err := h.enrollmentService.Enroll(c.Request.Context(), rd.UserID, req.CourseID)
	if err != nil {
		RespondServiceError(c, h.log, err)
		return
	}
	RespondCreated(c, gin.H{"enrollment": enrollment})
}

func (h *EnrollmentHandler) Unenroll(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	// The course can come as a path param or a JSON body.
	var courseID uuid.UUID
	if raw := c.Param("course_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_course_id", fmt.Errorf("invalid course id"))
			return
		}
		courseID = parsed
	} else {
		var req struct {
			CourseID uuid.UUID `json:"course_id"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.CourseID == uuid.Nil {
			RespondError(c, http.StatusBadRequest, "invalid_course_id", fmt.Errorf("course_id required"))
			return
		}
		courseID = req.CourseID
	}
	if err := h.enrollmentService.Unenroll(c.Request.Context(), rd.UserID, courseID); err != nil {
		RespondServiceError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"message": "unenrolled"})
}

func (h *EnrollmentHandler) ListMine(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	enrollments, err := h.enrollmentService.ListByUser(c.Request.Context(), rd.UserID)
	if err != nil {
		RespondServiceError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"enrollments": enrollments})
}

func (h *EnrollmentHandler) CompleteModule(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var req struct {
		CourseID uuid.UUID `json:"course_id"`
		ModuleID uuid.UUID `json:"module_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.CourseID == uuid.Nil || req.ModuleID == uuid.Nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", fmt.Errorf("course_id and module_id required"))
		return
	}
	result, err := h.progressService.CompleteModule(c.Request.Context(), rd.UserID, req.CourseID, req.ModuleID)
	if err != nil {
		RespondServiceError(c, h.log, err)
		return
	}
	RespondOK(c, result)
}
