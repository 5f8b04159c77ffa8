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

type CourseGenHandler struct {
	log        *logger.Logger
	genService services.CourseGenService
}

func NewCourseGenHandler(log *logger.Logger, genService services.CourseGenService) *CourseGenHandler {
	return &CourseGenHandler{
		log:        log.With("handler", "CourseGenHandler"),
		genService: genService,
	}
}

// GenerateSimple blocks until the model answers or the deadline passes.
func (h *CourseGenHandler) GenerateSimple(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var req services.GenerateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", fmt.Errorf("invalid request body"))
		return
	}
	if req.Locale == "" {
		req.Locale = rd.Locale
	}
	course, modules, err := h.genService.GenerateSimple(c.Request.Context(), rd.UserID, req)
	if err != nil {
		RespondServiceError(c, h.log, err)
		return
	}
	RespondCreated(c, gin.H{"course": course, "modules": modules})
}

// GenerateAdvanced queues a run and returns immediately.
func (h *CourseGenHandler) GenerateAdvanced(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var req services.GenerateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", fmt.Errorf("invalid request body"))
		return
	}
	if req.Locale == "" {
		req.Locale = rd.Locale
	}
	course, run, err := h.genService.EnqueueAdvanced(c.Request.Context(), rd.UserID, req)
	if err != nil {
		RespondServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusAccepted, Envelope{Success: true, Data: gin.H{"course": course, "run": run}})
}

func (h *CourseGenHandler) GetRun(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	runID, err := uuid.Parse(c.Param("run_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_run_id", fmt.Errorf("invalid run id"))
		return
	}
	run, err := h.genService.GetRun(c.Request.Context(), rd.UserID, runID)
	if err != nil {
		RespondServiceError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"run": run})
}
