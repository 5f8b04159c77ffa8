package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/aiverso/aiverso-backend/internal/logger"
	"github.com/aiverso/aiverso-backend/internal/repos"
	"github.com/aiverso/aiverso-backend/internal/types"
)

// feedItem is the JSON shape the configured feeds return.
type feedItem struct {
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	TitleEn     string    `json:"title_en"`
	TitleEs     string    `json:"title_es"`
	SummaryEn   string    `json:"summary_en"`
	SummaryEs   string    `json:"summary_es"`
	Category    string    `json:"category"`
	PublishedAt time.Time `json:"published_at"`
}

type NewsService interface {
	ListArticles(ctx context.Context, filter repos.ArticleFilter) ([]*types.Article, error)
	GetArticle(ctx context.Context, id uuid.UUID, userID *uuid.UUID) (*types.Article, error)
	// Refresh fetches every configured feed and returns the number of new
	// articles stored.
	Refresh(ctx context.Context) (int, error)
	// StartScheduler refreshes on the given cron expression until ctx ends.
	StartScheduler(ctx context.Context, cronExpr string) error
}

type newsService struct {
	db  *gorm.DB
	log *logger.Logger

	articleRepo repos.ArticleRepo
	eventRepo   repos.UserEventRepo

	client *resty.Client
	feeds  []string
	cron   *cron.Cron
}

func NewNewsService(
	db *gorm.DB,
	baseLog *logger.Logger,
	articleRepo repos.ArticleRepo,
	eventRepo repos.UserEventRepo,
	feeds []string,
) NewsService {
	client := resty.New().
		SetTimeout(20 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(2 * time.Second)

	return &newsService{
		db:          db,
		log:         baseLog.With("service", "NewsService"),
		articleRepo: articleRepo,
		eventRepo:   eventRepo,
		client:      client,
		feeds:       feeds,
	}
}

func (s *newsService) ListArticles(ctx context.Context, filter repos.ArticleFilter) ([]*types.Article, error) {
	return s.articleRepo.List(ctx, nil, filter)
}

func (s *newsService) GetArticle(ctx context.Context, id uuid.UUID, userID *uuid.UUID) (*types.Article, error) {
	articles, err := s.articleRepo.GetByIDs(ctx, nil, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(articles) == 0 || articles[0] == nil {
		return nil, nil
	}
	if userID != nil && *userID != uuid.Nil {
		aid := id
		if _, err := s.eventRepo.Create(ctx, nil, []*types.UserEvent{{
			ID:        uuid.New(),
			UserID:    *userID,
			ArticleID: &aid,
			Type:      types.UserEventArticleViewed,
		}}); err != nil {
			s.log.Warn("record article view failed", "article_id", id, "error", err)
		}
	}
	return articles[0], nil
}

func (s *newsService) Refresh(ctx context.Context) (int, error) {
	total := 0
	var lastErr error

	for _, feed := range s.feeds {
		items, err := s.fetchFeed(ctx, feed)
		if err != nil {
			s.log.Warn("feed fetch failed", "feed", feed, "error", err)
			lastErr = err
			continue
		}

		now := time.Now()
		articles := make([]*types.Article, 0, len(items))
		for _, it := range items {
			if strings.TrimSpace(it.URL) == "" || strings.TrimSpace(it.TitleEn) == "" {
				continue
			}
			published := it.PublishedAt
			if published.IsZero() {
				published = now
			}
			articles = append(articles, &types.Article{
				ID:          uuid.New(),
				Source:      it.Source,
				URL:         it.URL,
				TitleEn:     it.TitleEn,
				TitleEs:     it.TitleEs,
				SummaryEn:   it.SummaryEn,
				SummaryEs:   it.SummaryEs,
				Category:    it.Category,
				PublishedAt: published,
				FetchedAt:   now,
			})
		}

		inserted, err := s.articleRepo.UpsertByURL(ctx, nil, articles)
		if err != nil {
			s.log.Warn("article upsert failed", "feed", feed, "error", err)
			lastErr = err
			continue
		}
		total += inserted
	}

	if total == 0 && lastErr != nil {
		return 0, fmt.Errorf("news refresh: %w", lastErr)
	}
	s.log.Info("news refresh finished", "new_articles", total, "feeds", len(s.feeds))
	return total, nil
}

func (s *newsService) fetchFeed(ctx context.Context, url string) ([]feedItem, error) {
	var items []feedItem
	resp, err := s.client.R().
		SetContext(ctx).
		SetResult(&items).
		Get(url)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("feed %s returned %d", url, resp.StatusCode())
	}
	return items, nil
}

func (s *newsService) StartScheduler(ctx context.Context, cronExpr string) error {
	if cronExpr == "" {
		cronExpr = "@every 30m"
	}
	c := cron.New()
	_, err := c.AddFunc(cronExpr, func() {
		refreshCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := s.Refresh(refreshCtx); err != nil {
			s.log.Warn("scheduled news refresh failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid news cron %q: %w", cronExpr, err)
	}
	c.Start()
	s.cron = c

	go func() {
		<-ctx.Done()
		c.Stop()
	}()
	return nil
}
