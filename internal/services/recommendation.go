package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aiverso/aiverso-backend/internal/logger"
	"github.com/aiverso/aiverso-backend/internal/repos"
	"github.com/aiverso/aiverso-backend/internal/types"
)

// RecommendationItem is one ranked feed entry. Exactly one of Course or
// Article is set.
type RecommendationItem struct {
	Kind    string         `json:"kind"` // course | article
	Course  *types.Course  `json:"course,omitempty"`
	Article *types.Article `json:"article,omitempty"`
	Score   float64        `json:"score"`
	Reasons []string       `json:"reasons"`
}

// RecommendationInput is everything the pure scorer looks at.
type RecommendationInput struct {
	Locale       string
	RecentEvents []*types.UserEvent
	Enrollments  []*types.Enrollment
	Courses      []*types.Course
	Articles     []*types.Article
	Now          time.Time
}

type RecommendationService interface {
	GetFeed(ctx context.Context, userID uuid.UUID, limit int) ([]RecommendationItem, error)
}

type recommendationService struct {
	db  *gorm.DB
	log *logger.Logger

	courseRepo     repos.CourseRepo
	articleRepo    repos.ArticleRepo
	enrollmentRepo repos.EnrollmentRepo
	eventRepo      repos.UserEventRepo
	userRepo       repos.UserRepo
}

func NewRecommendationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	courseRepo repos.CourseRepo,
	articleRepo repos.ArticleRepo,
	enrollmentRepo repos.EnrollmentRepo,
	eventRepo repos.UserEventRepo,
	userRepo repos.UserRepo,
) RecommendationService {
	return &recommendationService{
		db:             db,
		log:            baseLog.With("service", "RecommendationService"),
		courseRepo:     courseRepo,
		articleRepo:    articleRepo,
		enrollmentRepo: enrollmentRepo,
		eventRepo:      eventRepo,
		userRepo:       userRepo,
	}
}

func (s *recommendationService) GetFeed(ctx context.Context, userID uuid.UUID, limit int) ([]RecommendationItem, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	users, err := s.userRepo.GetByIDs(ctx, nil, []uuid.UUID{userID})
	if err != nil {
		return nil, err
	}
	locale := "en"
	if len(users) > 0 && users[0] != nil && users[0].PreferredLocale != "" {
		locale = users[0].PreferredLocale
	}

	recentEvents, err := s.eventRepo.GetRecentByUserID(ctx, nil, userID, 100)
	if err != nil {
		return nil, err
	}
	enrollments, err := s.enrollmentRepo.GetByUserIDs(ctx, nil, []uuid.UUID{userID})
	if err != nil {
		return nil, err
	}
	courses, err := s.courseRepo.List(ctx, nil, repos.CourseFilter{Limit: 100})
	if err != nil {
		return nil, err
	}
	articles, err := s.articleRepo.List(ctx, nil, repos.ArticleFilter{Limit: 100})
	if err != nil {
		return nil, err
	}

	items := ScoreRecommendations(RecommendationInput{
		Locale:       locale,
		RecentEvents: recentEvents,
		Enrollments:  enrollments,
		Courses:      courses,
		Articles:     articles,
		Now:          time.Now(),
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// ScoreRecommendations is the pure scorer: weigh candidates against the
// user's recent activity, rank descending, and attach readable reasons.
func ScoreRecommendations(in RecommendationInput) []RecommendationItem {
	if in.Now.IsZero() {
		in.Now = time.Now()
	}

	// topic/category affinity from recent events
	topicWeight := map[string]float64{}
	categoryWeight := map[string]float64{}
	courseByID := map[uuid.UUID]*types.Course{}
	for _, c := range in.Courses {
		if c != nil {
			courseByID[c.ID] = c
		}
	}
	articleByID := map[uuid.UUID]*types.Article{}
	for _, a := range in.Articles {
		if a != nil {
			articleByID[a.ID] = a
		}
	}

	var lastCompleted *types.Course
	for _, ev := range in.RecentEvents {
		if ev == nil {
			continue
		}
		w := eventAffinityWeight(ev.Type)
		if ev.CourseID != nil {
			if c, ok := courseByID[*ev.CourseID]; ok {
				topicWeight[normKey(c.Topic)] += w
				if ev.Type == types.UserEventCourseCompleted && lastCompleted == nil {
					lastCompleted = c
				}
			}
		}
		if ev.ArticleID != nil {
			if a, ok := articleByID[*ev.ArticleID]; ok {
				categoryWeight[normKey(a.Category)] += w
			}
		}
	}

	enrolledCourse := map[uuid.UUID]*types.Enrollment{}
	for _, e := range in.Enrollments {
		if e != nil {
			enrolledCourse[e.CourseID] = e
		}
	}

	seenArticle := map[uuid.UUID]bool{}
	for _, ev := range in.RecentEvents {
		if ev != nil && ev.ArticleID != nil && ev.Type == types.UserEventArticleViewed {
			seenArticle[*ev.ArticleID] = true
		}
	}

	items := make([]RecommendationItem, 0, len(in.Courses)+len(in.Articles))

	for _, c := range in.Courses {
		if c == nil {
			continue
		}
		if e, ok := enrolledCourse[c.ID]; ok && e.CompletedAt != nil {
			continue // finished courses never resurface
		}

		score := 0.0
		reasons := []string{}

		if e, ok := enrolledCourse[c.ID]; ok {
			// in-progress courses float to the top
			score += 3.0
			reasons = append(reasons, fmt.Sprintf("You are %d%% through this course", e.ProgressPercentage))
		}
		if w := topicWeight[normKey(c.Topic)]; w > 0 {
			score += w
			reasons = append(reasons, fmt.Sprintf("Because you have been exploring %s", c.Topic))
		}
		if lastCompleted != nil && c.ID != lastCompleted.ID {
			if normKey(c.Topic) == normKey(lastCompleted.Topic) {
				score += 1.5
				reasons = append(reasons, fmt.Sprintf("Because you completed %s", lastCompleted.Title(in.Locale)))
			}
			if difficultyAdjacent(lastCompleted.Difficulty, c.Difficulty) {
				score += 1.0
				reasons = append(reasons, fmt.Sprintf("A natural next step after a %s course", lastCompleted.Difficulty))
			}
		}
		score += recencyBoost(c.CreatedAt, in.Now)
		if localeMatches(in.Locale, c.TitleEs) {
			score += 0.5
		}
		if len(reasons) == 0 {
			reasons = append(reasons, "Popular on the platform")
		}

		items = append(items, RecommendationItem{
			Kind:    "course",
			Course:  c,
			Score:   score,
			Reasons: reasons,
		})
	}

	for _, a := range in.Articles {
		if a == nil || seenArticle[a.ID] {
			continue
		}
		score := 0.0
		reasons := []string{}

		if w := categoryWeight[normKey(a.Category)]; w > 0 {
			score += w
			reasons = append(reasons, fmt.Sprintf("More %s news for you", a.Category))
		}
		if w := topicWeight[normKey(a.Category)]; w > 0 {
			score += w * 0.5
		}
		score += recencyBoost(a.PublishedAt, in.Now)
		if localeMatches(in.Locale, a.TitleEs) {
			score += 0.5
		}
		if len(reasons) == 0 {
			reasons = append(reasons, "Recently published")
		}

		items = append(items, RecommendationItem{
			Kind:    "article",
			Article: a,
			Score:   score,
			Reasons: reasons,
		})
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].Score > items[j].Score })
	return items
}

func eventAffinityWeight(kind string) float64 {
	switch kind {
	case types.UserEventCourseCompleted:
		return 2.0
	case types.UserEventModuleCompleted, types.UserEventCourseEnrolled:
		return 1.0
	case types.UserEventCourseViewed, types.UserEventArticleViewed:
		return 0.5
	default:
		return 0.25
	}
}

func difficultyAdjacent(completed, candidate string) bool {
	order := map[string]int{
		DifficultyBeginner:     0,
		DifficultyIntermediate: 1,
		DifficultyAdvanced:     2,
	}
	a, okA := order[completed]
	b, okB := order[candidate]
	if !okA || !okB {
		return false
	}
	return b == a || b == a+1
}

// recencyBoost decays linearly over thirty days, max 1.0.
func recencyBoost(t time.Time, now time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	age := now.Sub(t)
	if age < 0 {
		age = 0
	}
	days := age.Hours() / 24
	if days >= 30 {
		return 0
	}
	return 1.0 - days/30
}

func localeMatches(locale, esText string) bool {
	return locale == "es" && strings.TrimSpace(esText) != ""
}

func normKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
