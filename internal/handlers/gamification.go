package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aiverso/aiverso-backend/internal/logger"
	"github.com/aiverso/aiverso-backend/internal/requestdata"
	"github.com/aiverso/aiverso-backend/internal/services"
)

type GamificationHandler struct {
	log                 *logger.Logger
	gamificationService services.GamificationService
}

func NewGamificationHandler(log *logger.Logger, gamificationService services.GamificationService) *GamificationHandler {
	return &GamificationHandler{
		log:                 log.With("handler", "GamificationHandler"),
		gamificationService: gamificationService,
	}
}

// CheckBadges evaluates every trigger and returns only freshly awarded badges.
func (h *GamificationHandler) CheckBadges(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	awarded, err := h.gamificationService.CheckBadges(c.Request.Context(), rd.UserID)
	if err != nil {
		RespondServiceError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"awarded": awarded})
}

func (h *GamificationHandler) GetXPLog(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	entries, err := h.gamificationService.GetXPLog(c.Request.Context(), rd.UserID, limit)
	if err != nil {
		RespondServiceError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"entries": entries})
}

func (h *GamificationHandler) GetLeaderboard(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	var viewer *uuid.UUID
	if rd := requestdata.GetRequestData(c.Request.Context()); rd != nil && rd.UserID != uuid.Nil {
		id := rd.UserID
		viewer = &id
	}
	entries, me, err := h.gamificationService.GetLeaderboard(c.Request.Context(), viewer, limit)
	if err != nil {
		RespondServiceError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"leaderboard": entries, "me": me})
}
