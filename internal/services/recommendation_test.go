package services

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/aiverso/aiverso-backend/internal/types"
)

func recCourse(topic, difficulty string, createdAt time.Time) *types.Course {
	return &types.Course{
		ID:         uuid.New(),
		TitleEn:    "Course on " + topic,
		TitleEs:    "Curso sobre " + topic,
		Topic:      topic,
		Difficulty: difficulty,
		Duration:   DurationMedium,
		CreatedAt:  createdAt,
	}
}

func recArticle(category string, publishedAt time.Time) *types.Article {
	return &types.Article{
		ID:          uuid.New(),
		TitleEn:     "News about " + category,
		Category:    category,
		PublishedAt: publishedAt,
	}
}

func itemFor(t *testing.T, items []RecommendationItem, id uuid.UUID) *RecommendationItem {
	t.Helper()
	for i := range items {
		if items[i].Course != nil && items[i].Course.ID == id {
			return &items[i]
		}
		if items[i].Article != nil && items[i].Article.ID == id {
			return &items[i]
		}
	}
	t.Fatalf("item %s not in results", id)
	return nil
}

func hasReasonPrefix(item *RecommendationItem, prefix string) bool {
	for _, r := range item.Reasons {
		if strings.HasPrefix(r, prefix) {
			return true
		}
	}
	return false
}

func TestScoreRecommendationsInProgressFirst(t *testing.T) {
	now := time.Now()
	inProgress := recCourse("llms", DifficultyBeginner, now.Add(-60*24*time.Hour))
	fresh := recCourse("robotics", DifficultyBeginner, now.Add(-1*24*time.Hour))

	items := ScoreRecommendations(RecommendationInput{
		Locale: "en",
		Enrollments: []*types.Enrollment{
			{ID: uuid.New(), CourseID: inProgress.ID, ProgressPercentage: 40},
		},
		Courses: []*types.Course{fresh, inProgress},
		Now:     now,
	})

	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].Course == nil || items[0].Course.ID != inProgress.ID {
		t.Fatalf("expected in-progress course first, got %+v", items[0])
	}
	if !hasReasonPrefix(&items[0], "You are 40%") {
		t.Fatalf("missing progress reason, got %v", items[0].Reasons)
	}
}

func TestScoreRecommendationsSkipsCompleted(t *testing.T) {
	now := time.Now()
	done := recCourse("nlp", DifficultyBeginner, now)
	other := recCourse("vision", DifficultyBeginner, now)
	completedAt := now.Add(-time.Hour)

	items := ScoreRecommendations(RecommendationInput{
		Locale: "en",
		Enrollments: []*types.Enrollment{
			{ID: uuid.New(), CourseID: done.ID, ProgressPercentage: 100, CompletedAt: &completedAt},
		},
		Courses: []*types.Course{done, other},
		Now:     now,
	})

	for _, it := range items {
		if it.Course != nil && it.Course.ID == done.ID {
			t.Fatal("completed course resurfaced in the feed")
		}
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
}

func TestScoreRecommendationsTopicAffinity(t *testing.T) {
	now := time.Now()
	viewed := recCourse("llms", DifficultyBeginner, now.Add(-40*24*time.Hour))
	sameTopic := recCourse("LLMs", DifficultyBeginner, now.Add(-40*24*time.Hour))
	offTopic := recCourse("robotics", DifficultyBeginner, now.Add(-40*24*time.Hour))
	userID := uuid.New()

	items := ScoreRecommendations(RecommendationInput{
		Locale: "en",
		RecentEvents: []*types.UserEvent{
			{UserID: userID, CourseID: &viewed.ID, Type: types.UserEventCourseViewed},
		},
		Courses: []*types.Course{offTopic, sameTopic, viewed},
		Now:     now,
	})

	same := itemFor(t, items, sameTopic.ID)
	off := itemFor(t, items, offTopic.ID)
	if same.Score <= off.Score {
		t.Fatalf("topic affinity not applied: same=%f off=%f", same.Score, off.Score)
	}
	if !hasReasonPrefix(same, "Because you have been exploring") {
		t.Fatalf("missing affinity reason, got %v", same.Reasons)
	}
}

func TestScoreRecommendationsCompletedFollowUp(t *testing.T) {
	now := time.Now()
	completed := recCourse("agents", DifficultyBeginner, now.Add(-40*24*time.Hour))
	nextStep := recCourse("agents", DifficultyIntermediate, now.Add(-40*24*time.Hour))
	tooHard := recCourse("agents", DifficultyAdvanced, now.Add(-40*24*time.Hour))
	userID := uuid.New()
	doneAt := now.Add(-time.Hour)

	items := ScoreRecommendations(RecommendationInput{
		Locale: "en",
		RecentEvents: []*types.UserEvent{
			{UserID: userID, CourseID: &completed.ID, Type: types.UserEventCourseCompleted},
		},
		Enrollments: []*types.Enrollment{
			{ID: uuid.New(), CourseID: completed.ID, ProgressPercentage: 100, CompletedAt: &doneAt},
		},
		Courses: []*types.Course{tooHard, nextStep, completed},
		Now:     now,
	})

	next := itemFor(t, items, nextStep.ID)
	hard := itemFor(t, items, tooHard.ID)
	if next.Score <= hard.Score {
		t.Fatalf("adjacent difficulty not preferred: next=%f hard=%f", next.Score, hard.Score)
	}
	if !hasReasonPrefix(next, "Because you completed") {
		t.Fatalf("missing completion reason, got %v", next.Reasons)
	}
}

func TestScoreRecommendationsArticles(t *testing.T) {
	now := time.Now()
	seen := recArticle("research", now.Add(-2*24*time.Hour))
	sameCategory := recArticle("research", now.Add(-3*24*time.Hour))
	stale := recArticle("industry", now.Add(-90*24*time.Hour))
	userID := uuid.New()

	items := ScoreRecommendations(RecommendationInput{
		Locale: "en",
		RecentEvents: []*types.UserEvent{
			{UserID: userID, ArticleID: &seen.ID, Type: types.UserEventArticleViewed},
		},
		Articles: []*types.Article{stale, sameCategory, seen},
		Now:      now,
	})

	for _, it := range items {
		if it.Article != nil && it.Article.ID == seen.ID {
			t.Fatal("already-seen article resurfaced")
		}
	}
	same := itemFor(t, items, sameCategory.ID)
	old := itemFor(t, items, stale.ID)
	if same.Score <= old.Score {
		t.Fatalf("category affinity not applied: same=%f stale=%f", same.Score, old.Score)
	}
	if !hasReasonPrefix(old, "Recently published") {
		t.Fatalf("expected fallback reason, got %v", old.Reasons)
	}
}

func TestScoreRecommendationsLocaleBoost(t *testing.T) {
	now := time.Now().Add(-40 * 24 * time.Hour)
	bilingual := recCourse("ethics", DifficultyBeginner, now)
	englishOnly := recCourse("safety", DifficultyBeginner, now)
	englishOnly.TitleEs = ""

	items := ScoreRecommendations(RecommendationInput{
		Locale:  "es",
		Courses: []*types.Course{englishOnly, bilingual},
		Now:     time.Now(),
	})

	bi := itemFor(t, items, bilingual.ID)
	en := itemFor(t, items, englishOnly.ID)
	if bi.Score <= en.Score {
		t.Fatalf("locale boost not applied: bilingual=%f english=%f", bi.Score, en.Score)
	}
}

func TestRecencyBoost(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name string
		t    time.Time
		want float64
	}{
		{"zero time", time.Time{}, 0},
		{"brand new", now, 1.0},
		{"thirty days old", now.Add(-30 * 24 * time.Hour), 0},
		{"older than window", now.Add(-365 * 24 * time.Hour), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := recencyBoost(tc.t, now)
			if diff := got - tc.want; diff > 0.01 || diff < -0.01 {
				t.Fatalf("recencyBoost = %f, want %f", got, tc.want)
			}
		})
	}
}
