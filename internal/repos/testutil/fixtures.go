package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aiverso/aiverso-backend/internal/types"
)

func SeedUser(tb testing.TB, tx *gorm.DB) *types.User {
	tb.Helper()
	u := &types.User{
		ID:              uuid.New(),
		Email:           fmt.Sprintf("user-%s@example.com", uuid.NewString()[:8]),
		Password:        "$2a$10$abcdefghijklmnopqrstuv",
		DisplayName:     "Test User",
		PreferredLocale: "en",
	}
	if err := tx.Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	p := &types.UserProfile{
		ID:     uuid.New(),
		UserID: u.ID,
		Locale: u.PreferredLocale,
	}
	if err := tx.Create(p).Error; err != nil {
		tb.Fatalf("seed user profile: %v", err)
	}
	return u
}

func SeedCourse(tb testing.TB, tx *gorm.DB, topic string) *types.Course {
	tb.Helper()
	c := &types.Course{
		ID:            uuid.New(),
		TitleEn:       "Course on " + topic,
		TitleEs:       "Curso sobre " + topic,
		DescriptionEn: "A course about " + topic,
		Topic:         topic,
		Difficulty:    "beginner",
		Duration:      "medium",
		Generated:     true,
	}
	if err := tx.Create(c).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	return c
}

func SeedModules(tb testing.TB, tx *gorm.DB, courseID uuid.UUID, n int) []*types.CourseModule {
	tb.Helper()
	out := make([]*types.CourseModule, 0, n)
	for i := 0; i < n; i++ {
		m := &types.CourseModule{
			ID:               uuid.New(),
			CourseID:         courseID,
			Index:            i,
			TitleEn:          fmt.Sprintf("Module %d", i+1),
			BodyEn:           "Lesson body",
			EstimatedMinutes: 10,
		}
		if err := tx.Create(m).Error; err != nil {
			tb.Fatalf("seed module: %v", err)
		}
		out = append(out, m)
	}
	return out
}

func SeedEnrollment(tb testing.TB, tx *gorm.DB, userID, courseID uuid.UUID) *types.Enrollment {
	tb.Helper()
	e := &types.Enrollment{
		ID:       uuid.New(),
		UserID:   userID,
		CourseID: courseID,
	}
	if err := tx.Create(e).Error; err != nil {
		tb.Fatalf("seed enrollment: %v", err)
	}
	return e
}

func SeedArticle(tb testing.TB, tx *gorm.DB, category string, publishedAt time.Time) *types.Article {
	tb.Helper()
	a := &types.Article{
		ID:          uuid.New(),
		Source:      "test-feed",
		URL:         "https://example.com/articles/" + uuid.NewString(),
		TitleEn:     "Article about " + category,
		SummaryEn:   "Summary",
		Category:    category,
		PublishedAt: publishedAt,
		FetchedAt:   time.Now().UTC(),
	}
	if err := tx.Create(a).Error; err != nil {
		tb.Fatalf("seed article: %v", err)
	}
	return a
}
