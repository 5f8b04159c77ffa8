package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aiverso/aiverso-backend/internal/events"
	"github.com/aiverso/aiverso-backend/internal/handlers"
	"github.com/aiverso/aiverso-backend/internal/middleware"
	"github.com/aiverso/aiverso-backend/internal/repos"
	"github.com/aiverso/aiverso-backend/internal/repos/testutil"
	"github.com/aiverso/aiverso-backend/internal/services"
	"github.com/aiverso/aiverso-backend/internal/types"
)

type noopGenerator struct{}

func (noopGenerator) GenerateJSON(ctx context.Context, userID *uuid.UUID, purpose, system, user string) (string, error) {
	return "", errors.New("no model in tests")
}

func (noopGenerator) GenerateImage(ctx context.Context, prompt string) (string, error) {
	return "", errors.New("no model in tests")
}

type harness struct {
	db     *gorm.DB
	router *gin.Engine
}

// newHarness wires the router exactly like the server entrypoint, minus
// the background worker, the news scheduler and external providers.
func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.DB(t)
	log := testutil.Logger(t)

	userRepo := repos.NewUserRepo(db, log)
	userTokenRepo := repos.NewUserTokenRepo(db, log)
	userProfileRepo := repos.NewUserProfileRepo(db, log)
	courseRepo := repos.NewCourseRepo(db, log)
	courseModuleRepo := repos.NewCourseModuleRepo(db, log)
	enrollmentRepo := repos.NewEnrollmentRepo(db, log)
	moduleProgressRepo := repos.NewModuleProgressRepo(db, log)
	reviewRepo := repos.NewReviewRepo(db, log)
	xpLogRepo := repos.NewXPLogRepo(db, log)
	badgeRepo := repos.NewBadgeRepo(db, log)
	userBadgeRepo := repos.NewUserBadgeRepo(db, log)
	articleRepo := repos.NewArticleRepo(db, log)
	kgEntityRepo := repos.NewKGEntityRepo(db, log)
	kgRelationRepo := repos.NewKGRelationRepo(db, log)
	courseGenRunRepo := repos.NewCourseGenerationRunRepo(db, log)
	userEventRepo := repos.NewUserEventRepo(db, log)

	hub := events.NewHub(log)

	authService := services.NewAuthService(db, log, userRepo, userProfileRepo, userTokenRepo, "test-secret", time.Hour, 24*time.Hour)
	gamificationService := services.NewGamificationService(db, log, hub, nil, userProfileRepo, xpLogRepo, badgeRepo, userBadgeRepo, enrollmentRepo, reviewRepo)
	userService := services.NewUserService(db, log, userRepo, userProfileRepo, badgeRepo, userBadgeRepo)
	courseService := services.NewCourseService(db, log, courseRepo, courseModuleRepo, reviewRepo, enrollmentRepo, userEventRepo, courseGenRunRepo)
	enrollmentService := services.NewEnrollmentService(db, log, hub, courseRepo, enrollmentRepo, userEventRepo, gamificationService)
	progressService := services.NewProgressService(db, log, hub, courseModuleRepo, enrollmentRepo, moduleProgressRepo, userProfileRepo, userEventRepo, gamificationService)
	reviewService := services.NewReviewService(db, log, courseRepo, reviewRepo, enrollmentRepo, userProfileRepo, gamificationService)
	kgService := services.NewKGService(db, log, kgEntityRepo, kgRelationRepo)
	searchService := services.NewSearchService(db, log, courseRepo, articleRepo, kgEntityRepo, userEventRepo)
	newsService := services.NewNewsService(db, log, articleRepo, userEventRepo, nil)
	recommendationService := services.NewRecommendationService(db, log, courseRepo, articleRepo, enrollmentRepo, userEventRepo, userRepo)
	analyticsService := services.NewAnalyticsService(db, log, enrollmentRepo, xpLogRepo, userEventRepo, articleRepo, courseRepo)
	courseGenService := services.NewCourseGenService(db, log, services.DefaultCourseGenConfig(), hub, courseRepo, courseModuleRepo, courseGenRunRepo, noopGenerator{})

	if err := gamificationService.SeedBadges(context.Background()); err != nil {
		t.Fatalf("seed badges: %v", err)
	}

	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	router := NewRouter(RouterConfig{
		AuthMiddleware:        authMiddleware,
		AuthHandler:           handlers.NewAuthHandler(log, authService),
		UserHandler:           handlers.NewUserHandler(log, userService),
		CourseHandler:         handlers.NewCourseHandler(log, courseService),
		EnrollmentHandler:     handlers.NewEnrollmentHandler(log, enrollmentService, progressService),
		ReviewHandler:         handlers.NewReviewHandler(log, reviewService),
		CourseGenHandler:      handlers.NewCourseGenHandler(log, courseGenService),
		ArticleHandler:        handlers.NewArticleHandler(log, newsService),
		KGHandler:             handlers.NewKGHandler(log, kgService),
		SearchHandler:         handlers.NewSearchHandler(log, searchService),
		GamificationHandler:   handlers.NewGamificationHandler(log, gamificationService),
		RecommendationHandler: handlers.NewRecommendationHandler(log, recommendationService),
		AnalyticsHandler:      handlers.NewAnalyticsHandler(log, analyticsService),
		EventsHandler:         handlers.NewEventsHandler(log, hub),
	})

	return &harness{db: db, router: router}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (h *harness) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec.Code, env
}

// registerAndLogin creates a fresh account through the API and returns
// the user id and an access token.
func (h *harness) registerAndLogin(t *testing.T) (uuid.UUID, string) {
	t.Helper()
	return h.registerAndLoginLocale(t, "en")
}

func (h *harness) registerAndLoginLocale(t *testing.T, locale string) (uuid.UUID, string) {
	t.Helper()
	email := "user-" + uuid.NewString()[:8] + "@example.com"

	code, env := h.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"email":        email,
		"password":     "sup3r-secret",
		"display_name": "Test User",
		"locale":       locale,
	})
	if code != http.StatusCreated {
		t.Fatalf("register status = %d, body error = %+v", code, env.Error)
	}
	var regData struct {
		User types.User `json:"user"`
	}
	if err := json.Unmarshal(env.Data, &regData); err != nil {
		t.Fatalf("decode register data: %v", err)
	}

	code, env = h.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    email,
		"password": "sup3r-secret",
	})
	if code != http.StatusOK {
		t.Fatalf("login status = %d, body error = %+v", code, env.Error)
	}
	var loginData struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(env.Data, &loginData); err != nil {
		t.Fatalf("decode login data: %v", err)
	}
	if loginData.AccessToken == "" {
		t.Fatal("empty access token")
	}
	return regData.User.ID, loginData.AccessToken
}

func TestHealthcheck(t *testing.T) {
	h := newHarness(t)
	req := httptest.NewRequest(http.MethodGet, "/healthcheck", nil)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	h := newHarness(t)
	code, env := h.do(t, http.MethodGet, "/api/me", "", nil)
	if code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", code)
	}
	if env.Success {
		t.Fatal("success = true on an unauthorized response")
	}
}

func TestEnrollTwiceConflicts(t *testing.T) {
	h := newHarness(t)
	userID, token := h.registerAndLogin(t)
	course := testutil.SeedCourse(t, h.db, "prompt engineering")

	code, env := h.do(t, http.MethodPost, "/api/courses/enroll", token, gin.H{"course_id": course.ID})
	if code != http.StatusCreated {
		t.Fatalf("first enroll status = %d, error = %+v", code, env.Error)
	}

	code, env = h.do(t, http.MethodPost, "/api/courses/enroll", token, gin.H{"course_id": course.ID})
	if code != http.StatusConflict {
		t.Fatalf("second enroll status = %d, want 409", code)
	}
	if env.Error == nil || env.Error.Code != "already_enrolled" {
		t.Fatalf("error = %+v, want code already_enrolled", env.Error)
	}

	var count int64
	if err := h.db.Model(&types.Enrollment{}).
		Where("user_id = ? AND course_id = ?", userID, course.ID).
		Count(&count).Error; err != nil {
		t.Fatalf("count enrollments: %v", err)
	}
	if count != 1 {
		t.Fatalf("enrollment rows = %d, want exactly 1", count)
	}
}

func TestEnrollUnknownCourse(t *testing.T) {
	h := newHarness(t)
	_, token := h.registerAndLogin(t)

	code, env := h.do(t, http.MethodPost, "/api/courses/enroll", token, gin.H{"course_id": uuid.New()})
	if code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", code)
	}
	if env.Error == nil || env.Error.Code != "course_not_found" {
		t.Fatalf("error = %+v, want code course_not_found", env.Error)
	}
}

func TestModuleCompletionFinishesCourse(t *testing.T) {
	h := newHarness(t)
	userID, token := h.registerAndLogin(t)
	course := testutil.SeedCourse(t, h.db, "reinforcement learning")
	modules := testutil.SeedModules(t, h.db, course.ID, 2)

	code, env := h.do(t, http.MethodPost, "/api/courses/enroll", token, gin.H{"course_id": course.ID})
	if code != http.StatusCreated {
		t.Fatalf("enroll status = %d, error = %+v", code, env.Error)
	}

	complete := func(moduleID uuid.UUID) services.ProgressResult {
		code, env := h.do(t, http.MethodPost, "/api/progress/complete", token, gin.H{
			"course_id": course.ID,
			"module_id": moduleID,
		})
		if code != http.StatusOK {
			t.Fatalf("complete status = %d, error = %+v", code, env.Error)
		}
		var result services.ProgressResult
		if err := json.Unmarshal(env.Data, &result); err != nil {
			t.Fatalf("decode progress result: %v", err)
		}
		return result
	}

	first := complete(modules[0].ID)
	if first.CourseCompleted {
		t.Fatal("course completed after one of two modules")
	}
	if first.ModulesDone != 1 || first.ModulesTotal != 2 {
		t.Fatalf("progress = %d/%d, want 1/2", first.ModulesDone, first.ModulesTotal)
	}

	second := complete(modules[1].ID)
	if !second.CourseCompleted {
		t.Fatal("course not completed after all modules")
	}

	// repeating the last module is a no-op
	again := complete(modules[1].ID)
	if !again.AlreadyDone {
		t.Fatal("repeat completion not reported as already done")
	}

	var profile types.UserProfile
	if err := h.db.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		t.Fatalf("load profile: %v", err)
	}
	if profile.TotalXP < 2*services.XPAmountModuleCompleted+services.XPAmountCourseCompleted {
		t.Fatalf("total_xp = %d, expected at least module and completion awards", profile.TotalXP)
	}
	if profile.CoursesCompleted != 1 {
		t.Fatalf("courses_completed = %d, want 1", profile.CoursesCompleted)
	}
}

func TestGenerationRunLifecycle(t *testing.T) {
	h := newHarness(t)
	_, token := h.registerAndLogin(t)

	code, env := h.do(t, http.MethodPost, "/api/courses/generate-advanced", token, gin.H{
		"topic":      "diffusion models",
		"difficulty": "intermediate",
		"duration":   "short",
		"locale":     "es",
	})
	if code != http.StatusAccepted {
		t.Fatalf("enqueue status = %d, error = %+v", code, env.Error)
	}
	var enqueued struct {
		Run types.CourseGenerationRun `json:"run"`
	}
	if err := json.Unmarshal(env.Data, &enqueued); err != nil {
		t.Fatalf("decode enqueue data: %v", err)
	}
	if enqueued.Run.Status != "queued" {
		t.Fatalf("run status = %q, want queued", enqueued.Run.Status)
	}

	code, env = h.do(t, http.MethodGet, "/api/courses/generate/"+enqueued.Run.ID.String(), token, nil)
	if code != http.StatusOK {
		t.Fatalf("get run status = %d, error = %+v", code, env.Error)
	}

	// the course detail carries the latest run
	code, env = h.do(t, http.MethodGet, "/api/courses/"+enqueued.Run.CourseID.String(), token, nil)
	if code != http.StatusOK {
		t.Fatalf("get course status = %d, error = %+v", code, env.Error)
	}
	var detail services.CourseDetail
	if err := json.Unmarshal(env.Data, &detail); err != nil {
		t.Fatalf("decode course detail: %v", err)
	}
	if detail.GenerationRun == nil || detail.GenerationRun.ID != enqueued.Run.ID {
		t.Fatalf("generation_run = %+v, want run %s", detail.GenerationRun, enqueued.Run.ID)
	}
	if detail.GenerationRun.Status != "queued" {
		t.Fatalf("generation_run status = %q, want queued", detail.GenerationRun.Status)
	}

	// another user must not see the run
	_, otherToken := h.registerAndLogin(t)
	code, env = h.do(t, http.MethodGet, "/api/courses/generate/"+enqueued.Run.ID.String(), otherToken, nil)
	if code != http.StatusNotFound {
		t.Fatalf("cross-user get run status = %d, want 404", code)
	}
	if env.Error == nil || env.Error.Code != "run_not_found" {
		t.Fatalf("error = %+v, want code run_not_found", env.Error)
	}
}

func TestAdvancedGenerationUsesProfileLocale(t *testing.T) {
	h := newHarness(t)
	_, token := h.registerAndLoginLocale(t, "es")

	code, env := h.do(t, http.MethodPost, "/api/courses/generate-advanced", token, gin.H{
		"topic": "vision transformers",
	})
	if code != http.StatusAccepted {
		t.Fatalf("enqueue status = %d, error = %+v", code, env.Error)
	}
	var enqueued struct {
		Run types.CourseGenerationRun `json:"run"`
	}
	if err := json.Unmarshal(env.Data, &enqueued); err != nil {
		t.Fatalf("decode enqueue data: %v", err)
	}
	if enqueued.Run.Locale != "es" {
		t.Fatalf("run locale = %q, want the account's preferred es", enqueued.Run.Locale)
	}
}

func TestUnenrollWithBody(t *testing.T) {
	h := newHarness(t)
	userID, token := h.registerAndLogin(t)
	course := testutil.SeedCourse(t, h.db, "speech recognition")

	code, env := h.do(t, http.MethodPost, "/api/courses/enroll", token, gin.H{"course_id": course.ID})
	if code != http.StatusCreated {
		t.Fatalf("enroll status = %d, error = %+v", code, env.Error)
	}

	code, env = h.do(t, http.MethodDelete, "/api/courses/enroll", token, gin.H{"course_id": course.ID})
	if code != http.StatusOK {
		t.Fatalf("unenroll status = %d, error = %+v", code, env.Error)
	}

	var count int64
	if err := h.db.Model(&types.Enrollment{}).
		Where("user_id = ? AND course_id = ?", userID, course.ID).
		Count(&count).Error; err != nil {
		t.Fatalf("count enrollments: %v", err)
	}
	if count != 0 {
		t.Fatalf("enrollment rows = %d, want 0", count)
	}

	// the path-param form still works
	code, env = h.do(t, http.MethodPost, "/api/courses/enroll", token, gin.H{"course_id": course.ID})
	if code != http.StatusCreated {
		t.Fatalf("re-enroll status = %d, error = %+v", code, env.Error)
	}
	code, _ = h.do(t, http.MethodDelete, "/api/courses/enroll/"+course.ID.String(), token, nil)
	if code != http.StatusOK {
		t.Fatalf("path-param unenroll status = %d", code)
	}

	code, env = h.do(t, http.MethodDelete, "/api/courses/enroll", token, gin.H{})
	if code != http.StatusBadRequest {
		t.Fatalf("empty-body unenroll status = %d, want 400", code)
	}
	if env.Error == nil || env.Error.Code != "invalid_course_id" {
		t.Fatalf("error = %+v, want code invalid_course_id", env.Error)
	}
}

func TestReviewCountsAsDailyActivity(t *testing.T) {
	h := newHarness(t)
	userID, token := h.registerAndLogin(t)
	course := testutil.SeedCourse(t, h.db, "model evaluation")

	code, env := h.do(t, http.MethodPost, "/api/reviews", token, gin.H{
		"course_id": course.ID,
		"rating":    4,
	})
	if code != http.StatusForbidden {
		t.Fatalf("review before enrolling status = %d, want 403", code)
	}

	code, env = h.do(t, http.MethodPost, "/api/courses/enroll", token, gin.H{"course_id": course.ID})
	if code != http.StatusCreated {
		t.Fatalf("enroll status = %d, error = %+v", code, env.Error)
	}

	code, env = h.do(t, http.MethodPost, "/api/reviews", token, gin.H{
		"course_id": course.ID,
		"rating":    4,
		"comment":   "Solid coverage of the basics.",
	})
	if code != http.StatusCreated {
		t.Fatalf("review status = %d, error = %+v", code, env.Error)
	}

	code, env = h.do(t, http.MethodPost, "/api/reviews", token, gin.H{
		"course_id": course.ID,
		"rating":    5,
	})
	if code != http.StatusConflict {
		t.Fatalf("duplicate review status = %d, want 409", code)
	}
	if env.Error == nil || env.Error.Code != "already_reviewed" {
		t.Fatalf("error = %+v, want code already_reviewed", env.Error)
	}

	var profile types.UserProfile
	if err := h.db.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		t.Fatalf("load profile: %v", err)
	}
	if profile.ReviewsWritten != 1 {
		t.Fatalf("reviews_written = %d, want 1", profile.ReviewsWritten)
	}
	if profile.StreakDays < 1 {
		t.Fatalf("streak_days = %d, the review should count as daily activity", profile.StreakDays)
	}
	if profile.TotalXP < services.XPAmountReviewWritten {
		t.Fatalf("total_xp = %d, want at least the review award", profile.TotalXP)
	}
}

func TestPublicCourseListing(t *testing.T) {
	h := newHarness(t)
	course := testutil.SeedCourse(t, h.db, "graph neural networks")

	code, env := h.do(t, http.MethodGet, "/api/courses/"+course.ID.String(), "", nil)
	if code != http.StatusOK {
		t.Fatalf("get course status = %d, error = %+v", code, env.Error)
	}
	var detail services.CourseDetail
	if err := json.Unmarshal(env.Data, &detail); err != nil {
		t.Fatalf("decode course detail: %v", err)
	}
	if detail.Course == nil || detail.Course.ID != course.ID {
		t.Fatalf("unexpected course in detail: %+v", detail.Course)
	}

	code, env = h.do(t, http.MethodGet, "/api/courses/"+uuid.NewString(), "", nil)
	if code != http.StatusNotFound {
		t.Fatalf("missing course status = %d, want 404", code)
	}
}
