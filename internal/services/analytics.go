package services

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/aiverso/aiverso-backend/internal/logger"
	"github.com/aiverso/aiverso-backend/internal/repos"
	"github.com/aiverso/aiverso-backend/internal/types"
)

// CategoryCount is one entry of the "top categories" aggregate.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

type UserAnalytics struct {
	Enrollments      int              `json:"enrollments"`
	CompletedCourses int              `json:"completed_courses"`
	CompletionRate   float64          `json:"completion_rate"`
	TotalXP          int64            `json:"total_xp"`
	XPByWeek         []repos.WeeklyXP `json:"xp_by_week"`
	TopCategories    []CategoryCount  `json:"top_categories"`
}

type AnalyticsService interface {
	GetUserAnalytics(ctx context.Context, userID uuid.UUID) (*UserAnalytics, error)
}

type analyticsService struct {
	db  *gorm.DB
	log *logger.Logger

	enrollmentRepo repos.EnrollmentRepo
	xpLogRepo      repos.XPLogRepo
	eventRepo      repos.UserEventRepo
	articleRepo    repos.ArticleRepo
	courseRepo     repos.CourseRepo
}

func NewAnalyticsService(
	db *gorm.DB,
	baseLog *logger.Logger,
	enrollmentRepo repos.EnrollmentRepo,
	xpLogRepo repos.XPLogRepo,
	eventRepo repos.UserEventRepo,
	articleRepo repos.ArticleRepo,
	courseRepo repos.CourseRepo,
) AnalyticsService {
	return &analyticsService{
		db:             db,
		log:            baseLog.With("service", "AnalyticsService"),
		enrollmentRepo: enrollmentRepo,
		xpLogRepo:      xpLogRepo,
		eventRepo:      eventRepo,
		articleRepo:    articleRepo,
		courseRepo:     courseRepo,
	}
}

func (s *analyticsService) GetUserAnalytics(ctx context.Context, userID uuid.UUID) (*UserAnalytics, error) {
	out := &UserAnalytics{
		XPByWeek:      []repos.WeeklyXP{},
		TopCategories: []CategoryCount{},
	}

	// independent aggregates run concurrently
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := s.enrollmentRepo.CountByUserID(gctx, nil, userID)
		if err != nil {
			return err
		}
		out.Enrollments = int(n)
		return nil
	})
	g.Go(func() error {
		n, err := s.enrollmentRepo.CountCompletedByUserID(gctx, nil, userID)
		if err != nil {
			return err
		}
		out.CompletedCourses = int(n)
		return nil
	})
	g.Go(func() error {
		total, err := s.xpLogRepo.SumByUserID(gctx, nil, userID)
		if err != nil {
			return err
		}
		out.TotalXP = total
		return nil
	})
	g.Go(func() error {
		weekly, err := s.xpLogRepo.WeeklyTotalsByUserID(gctx, nil, userID, 8)
		if err != nil {
			return err
		}
		out.XPByWeek = weekly
		return nil
	})

	var events []*types.UserEvent
	g.Go(func() error {
		rows, err := s.eventRepo.GetRecentByUserID(gctx, nil, userID, 200)
		if err != nil {
			return err
		}
		events = rows
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if out.Enrollments > 0 {
		out.CompletionRate = float64(out.CompletedCourses) / float64(out.Enrollments)
	}
	out.TopCategories = s.topCategories(ctx, events, 5)
	return out, nil
}

// topCategories tallies the course topics and article categories the user
// interacted with recently.
func (s *analyticsService) topCategories(ctx context.Context, events []*types.UserEvent, limit int) []CategoryCount {
	courseIDs := make([]uuid.UUID, 0)
	articleIDs := make([]uuid.UUID, 0)
	seenCourse := map[uuid.UUID]bool{}
	seenArticle := map[uuid.UUID]bool{}
	for _, ev := range events {
		if ev == nil {
			continue
		}
		if ev.CourseID != nil && !seenCourse[*ev.CourseID] {
			seenCourse[*ev.CourseID] = true
			courseIDs = append(courseIDs, *ev.CourseID)
		}
		if ev.ArticleID != nil && !seenArticle[*ev.ArticleID] {
			seenArticle[*ev.ArticleID] = true
			articleIDs = append(articleIDs, *ev.ArticleID)
		}
	}

	counts := map[string]int{}

	courses, err := s.courseRepo.GetByIDs(ctx, nil, courseIDs)
	if err != nil {
		s.log.Warn("load courses for analytics failed", "error", err)
	}
	topicOf := map[uuid.UUID]string{}
	for _, c := range courses {
		if c != nil {
			topicOf[c.ID] = c.Topic
		}
	}

	articles, err := s.articleRepo.GetByIDs(ctx, nil, articleIDs)
	if err != nil {
		s.log.Warn("load articles for analytics failed", "error", err)
	}
	categoryOf := map[uuid.UUID]string{}
	for _, a := range articles {
		if a != nil {
			categoryOf[a.ID] = a.Category
		}
	}

	for _, ev := range events {
		if ev == nil {
			continue
		}
		if ev.CourseID != nil {
			if t := topicOf[*ev.CourseID]; t != "" {
				counts[t]++
			}
		}
		if ev.ArticleID != nil {
			if c := categoryOf[*ev.ArticleID]; c != "" {
				counts[c]++
			}
		}
	}

	out := make([]CategoryCount, 0, len(counts))
	for k, v := range counts {
		out = append(out, CategoryCount{Category: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
