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

type ArticleHandler struct {
	log         *logger.Logger
	newsService services.NewsService
}

func NewArticleHandler(log *logger.Logger, newsService services.NewsService) *ArticleHandler {
	return &ArticleHandler{
		log:         log.With("handler", "ArticleHandler"),
		newsService: newsService,
	}
}

func (h *ArticleHandler) ListArticles(c *gin.Context) {
	filter := repos.ArticleFilter{
		Category: c.Query("category"),
		Source:   c.Query("source"),
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
	articles, err := h.newsService.ListArticles(c.Request.Context(), filter)
	if err != nil {
		RespondServiceError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"articles": articles})
}

func (h *ArticleHandler) GetArticle(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_article_id", fmt.Errorf("invalid article id"))
		return
	}
	var userID *uuid.UUID
	if rd := requestdata.GetRequestData(c.Request.Context()); rd != nil && rd.UserID != uuid.Nil {
		uid := rd.UserID
		userID = &uid
	}
	article, err := h.newsService.GetArticle(c.Request.Context(), id, userID)
	if err != nil {
		RespondServiceError(c, h.log, err)
		return
	}
	if article == nil {
		RespondError(c, http.StatusNotFound, "article_not_found", fmt.Errorf("article not found"))
		return
	}
	RespondOK(c, gin.H{"article": article})
}

// RefreshArticles triggers an immediate feed refresh.
func (h *ArticleHandler) RefreshArticles(c *gin.Context) {
	inserted, err := h.newsService.Refresh(c.Request.Context())
	if err != nil {
		RespondServiceError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"new_articles": inserted})
}
