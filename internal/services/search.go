package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/aiverso/aiverso-backend/internal/logger"
	"github.com/aiverso/aiverso-backend/internal/repos"
	"github.com/aiverso/aiverso-backend/internal/types"
)

// SearchResults groups matches across the three searchable collections.
type SearchResults struct {
	Query    string            `json:"query"`
	Courses  []*types.Course   `json:"courses"`
	Articles []*types.Article  `json:"articles"`
	Entities []*types.KGEntity `json:"entities"`
}

type SearchService interface {
	Search(ctx context.Context, query string, limit int, userID *uuid.UUID) (*SearchResults, error)
}

type searchService struct {
	db  *gorm.DB
	log *logger.Logger

	courseRepo  repos.CourseRepo
	articleRepo repos.ArticleRepo
	kgRepo      repos.KGEntityRepo
	eventRepo   repos.UserEventRepo
}

func NewSearchService(
	db *gorm.DB,
	baseLog *logger.Logger,
	courseRepo repos.CourseRepo,
	articleRepo repos.ArticleRepo,
	kgRepo repos.KGEntityRepo,
	eventRepo repos.UserEventRepo,
) SearchService {
	return &searchService{
		db:          db,
		log:         baseLog.With("service", "SearchService"),
		courseRepo:  courseRepo,
		articleRepo: articleRepo,
		kgRepo:      kgRepo,
		eventRepo:   eventRepo,
	}
}

func (s *searchService) Search(ctx context.Context, query string, limit int, userID *uuid.UUID) (*SearchResults, error) {
	query = strings.TrimSpace(query)
	results := &SearchResults{
		Query:    query,
		Courses:  []*types.Course{},
		Articles: []*types.Article{},
		Entities: []*types.KGEntity{},
	}
	if query == "" {
		return results, nil
	}
	if limit <= 0 || limit > 25 {
		limit = 10
	}

	courses, err := s.courseRepo.Search(ctx, nil, query, limit)
	if err != nil {
		return nil, err
	}
	articles, err := s.articleRepo.Search(ctx, nil, query, limit)
	if err != nil {
		return nil, err
	}
	entities, err := s.kgRepo.List(ctx, nil, repos.KGEntityFilter{Query: query, Limit: limit})
	if err != nil {
		return nil, err
	}
	results.Courses = courses
	results.Articles = articles
	results.Entities = entities

	if userID != nil && *userID != uuid.Nil {
		payload, _ := json.Marshal(map[string]string{"query": query})
		if _, err := s.eventRepo.Create(ctx, nil, []*types.UserEvent{{
			ID:     uuid.New(),
			UserID: *userID,
			Type:   types.UserEventSearched,
			Data:   datatypes.JSON(payload),
		}}); err != nil {
			s.log.Warn("record search event failed", "error", err)
		}
	}
	return results, nil
}
