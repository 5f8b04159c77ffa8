package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aiverso/aiverso-backend/internal/logger"
	"github.com/aiverso/aiverso-backend/internal/repos"
	"github.com/aiverso/aiverso-backend/internal/requestdata"
	"github.com/aiverso/aiverso-backend/internal/services"
)

type CourseHandler struct {
	log           *logger.Logger
	courseService services.CourseService
}

func NewCourseHandler(log *logger.Logger, courseService services.CourseService) *CourseHandler {
	return &CourseHandler{
		log:           log.With("handler", "CourseHandler"),
		courseService: courseService,
	}
}

func (h *CourseHandler) ListCourses(c *gin.Context) {
	filter := repos.CourseFilter{
		Topic:      c.Query("topic"),
		Difficulty: c.Query("difficulty"),
	}
	if raw := c.Query("generated"); raw != "" {
		v := raw == "true"
		filter.Generated = &v
	}
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			filter.Limit = n
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			filter.Offset = n
		}
	}

	courses, err := h.courseService.List(c.Request.Context(), filter)
	if err != nil {
		RespondServiceError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"courses": courses})
}

func (h *CourseHandler) GetCourse(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_course_id", fmt.Errorf("invalid course id"))
		return
	}

	var userID *uuid.UUID
	if rd := requestdata.GetRequestData(c.Request.Context()); rd != nil && rd.UserID != uuid.Nil {
		uid := rd.UserID
		userID = &uid
	}

	detail, err := h.courseService.Get(c.Request.Context(), courseID, userID)
	if err != nil {
		RespondServiceError(c, h.log, err)
		return
	}
	RespondOK(c, detail)
}
