package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aiverso/aiverso-backend/internal/logger"
	"github.com/aiverso/aiverso-backend/internal/repos"
	"github.com/aiverso/aiverso-backend/internal/services"
)

type KGHandler struct {
	log       *logger.Logger
	kgService services.KGService
}

func NewKGHandler(log *logger.Logger, kgService services.KGService) *KGHandler {
	return &KGHandler{
		log:       log.With("handler", "KGHandler"),
		kgService: kgService,
	}
}

func (h *KGHandler) ListEntities(c *gin.Context) {
	filter := repos.KGEntityFilter{
		Query: c.Query("q"),
		Type:  c.Query("type"),
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
	entities, err := h.kgService.ListEntities(c.Request.Context(), filter)
	if err != nil {
		RespondServiceError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"entities": entities})
}

func (h *KGHandler) GetEntity(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_entity_id", fmt.Errorf("invalid entity id"))
		return
	}
	detail, err := h.kgService.GetEntity(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, h.log, err)
		return
	}
	RespondOK(c, detail)
}
