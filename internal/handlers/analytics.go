package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aiverso/aiverso-backend/internal/logger"
	"github.com/aiverso/aiverso-backend/internal/requestdata"
	"github.com/aiverso/aiverso-backend/internal/services"
)

type AnalyticsHandler struct {
	log              *logger.Logger
	analyticsService services.AnalyticsService
}

func NewAnalyticsHandler(log *logger.Logger, analyticsService services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{
		log:              log.With("handler", "AnalyticsHandler"),
		analyticsService: analyticsService,
	}
}

func (h *AnalyticsHandler) GetUserAnalytics(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	analytics, err := h.analyticsService.GetUserAnalytics(c.Request.Context(), rd.UserID)
	if err != nil {
		RespondServiceError(c, h.log, err)
		return
	}
	RespondOK(c, analytics)
}
