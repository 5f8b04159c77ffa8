package main

import (
	"context"
	"fmt"
	"os"
	"time"

	redisclient "github.com/aiverso/aiverso-backend/internal/clients/redis"
	"github.com/aiverso/aiverso-backend/internal/db"
	"github.com/aiverso/aiverso-backend/internal/events"
	"github.com/aiverso/aiverso-backend/internal/handlers"
	"github.com/aiverso/aiverso-backend/internal/logger"
	"github.com/aiverso/aiverso-backend/internal/middleware"
	"github.com/aiverso/aiverso-backend/internal/repos"
	"github.com/aiverso/aiverso-backend/internal/server"
	"github.com/aiverso/aiverso-backend/internal/services"
	"github.com/aiverso/aiverso-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	refreshTokenTTL := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)
	newsFeeds := utils.GetEnvAsList("NEWS_FEEDS", []string{}, log)
	newsCron := utils.GetEnv("NEWS_CRON", "@every 30m", log)
	genTimeoutSec := utils.GetEnvAsInt("GENERATION_TIMEOUT_SEC", 45, log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	userTokenRepo := repos.NewUserTokenRepo(thePG, log)
	userProfileRepo := repos.NewUserProfileRepo(thePG, log)
	courseRepo := repos.NewCourseRepo(thePG, log)
	courseModuleRepo := repos.NewCourseModuleRepo(thePG, log)
	enrollmentRepo := repos.NewEnrollmentRepo(thePG, log)
	moduleProgressRepo := repos.NewModuleProgressRepo(thePG, log)
	reviewRepo := repos.NewReviewRepo(thePG, log)
	xpLogRepo := repos.NewXPLogRepo(thePG, log)
	badgeRepo := repos.NewBadgeRepo(thePG, log)
	userBadgeRepo := repos.NewUserBadgeRepo(thePG, log)
	articleRepo := repos.NewArticleRepo(thePG, log)
	kgEntityRepo := repos.NewKGEntityRepo(thePG, log)
	kgRelationRepo := repos.NewKGRelationRepo(thePG, log)
	courseGenRunRepo := repos.NewCourseGenerationRunRepo(thePG, log)
	userEventRepo := repos.NewUserEventRepo(thePG, log)
	aiCallLogRepo := repos.NewAICallLogRepo(thePG, log)

	// Event hub
	log.Info("Setting up event hub now...")
	hub := events.NewHub(log)

	// Redis leaderboard (optional; endpoints degrade without it)
	leaderboard, err := redisclient.NewLeaderboard(log)
	if err != nil {
		log.Warn("Redis leaderboard unavailable", "error", err)
		leaderboard = nil
	}

	// LLM providers: primary plus optional fallback, tried in order.
	log.Info("Setting up LLM providers from main...")
	providers := []services.LLMProvider{}
	primary, err := services.NewOpenAICompatProvider(log, services.ProviderConfig{
		Name:       "openai",
		BaseURL:    utils.GetEnv("OPENAI_BASE_URL", "https://api.openai.com", log),
		APIKey:     os.Getenv("OPENAI_API_KEY"),
		Model:      utils.GetEnv("OPENAI_MODEL", "gpt-4o-mini", log),
		TimeoutSec: genTimeoutSec,
		MaxRetries: 2,
	})
	if err != nil {
		log.Error("Could not init primary LLM provider", "error", err)
		os.Exit(1)
	}
	providers = append(providers, primary)
	if fallbackKey := os.Getenv("LLM_FALLBACK_API_KEY"); fallbackKey != "" {
		fallback, err := services.NewOpenAICompatProvider(log, services.ProviderConfig{
			Name:       "fallback",
			BaseURL:    utils.GetEnv("LLM_FALLBACK_BASE_URL", "https://api.openai.com", log),
			APIKey:     fallbackKey,
			Model:      utils.GetEnv("LLM_FALLBACK_MODEL", "gpt-4o-mini", log),
			TimeoutSec: genTimeoutSec,
			MaxRetries: 1,
		})
		if err != nil {
			log.Warn("Could not init fallback LLM provider", "error", err)
		} else {
			providers = append(providers, fallback)
		}
	}
	textGen, err := services.NewFallbackGenerator(log, providers, aiCallLogRepo)
	if err != nil {
		log.Error("Could not init text generator", "error", err)
		os.Exit(1)
	}

	// Services
	log.Info("Setting up Services from main...")
	authService := services.NewAuthService(thePG, log, userRepo, userProfileRepo, userTokenRepo, jwtSecretKey, time.Duration(accessTokenTTL)*time.Second, time.Duration(refreshTokenTTL)*time.Second)
	gamificationService := services.NewGamificationService(thePG, log, hub, leaderboard, userProfileRepo, xpLogRepo, badgeRepo, userBadgeRepo, enrollmentRepo, reviewRepo)
	userService := services.NewUserService(thePG, log, userRepo, userProfileRepo, badgeRepo, userBadgeRepo)
	courseService := services.NewCourseService(thePG, log, courseRepo, courseModuleRepo, reviewRepo, enrollmentRepo, userEventRepo, courseGenRunRepo)
	enrollmentService := services.NewEnrollmentService(thePG, log, hub, courseRepo, enrollmentRepo, userEventRepo, gamificationService)
	progressService := services.NewProgressService(thePG, log, hub, courseModuleRepo, enrollmentRepo, moduleProgressRepo, userProfileRepo, userEventRepo, gamificationService)
	reviewService := services.NewReviewService(thePG, log, courseRepo, reviewRepo, enrollmentRepo, userProfileRepo, gamificationService)
	kgService := services.NewKGService(thePG, log, kgEntityRepo, kgRelationRepo)
	searchService := services.NewSearchService(thePG, log, courseRepo, articleRepo, kgEntityRepo, userEventRepo)
	newsService := services.NewNewsService(thePG, log, articleRepo, userEventRepo, newsFeeds)
	recommendationService := services.NewRecommendationService(thePG, log, courseRepo, articleRepo, enrollmentRepo, userEventRepo, userRepo)
	analyticsService := services.NewAnalyticsService(thePG, log, enrollmentRepo, xpLogRepo, userEventRepo, articleRepo, courseRepo)

	genCfg := services.DefaultCourseGenConfig()
	genCfg.SyncTimeout = time.Duration(genTimeoutSec) * time.Second
	courseGenService := services.NewCourseGenService(thePG, log, genCfg, hub, courseRepo, courseModuleRepo, courseGenRunRepo, textGen)

	ctx := context.Background()
	courseGenService.StartWorker(ctx)
	if err := newsService.StartScheduler(ctx, newsCron); err != nil {
		log.Warn("News scheduler not started", "error", err)
	}
	if err := gamificationService.SeedBadges(ctx); err != nil {
		log.Warn("Badge seeding failed", "error", err)
	}

	// Handlers
	log.Info("Setting up handlers from main...")
	authHandler := handlers.NewAuthHandler(log, authService)
	userHandler := handlers.NewUserHandler(log, userService)
	courseHandler := handlers.NewCourseHandler(log, courseService)
	enrollmentHandler := handlers.NewEnrollmentHandler(log, enrollmentService, progressService)
	reviewHandler := handlers.NewReviewHandler(log, reviewService)
	courseGenHandler := handlers.NewCourseGenHandler(log, courseGenService)
	articleHandler := handlers.NewArticleHandler(log, newsService)
	kgHandler := handlers.NewKGHandler(log, kgService)
	searchHandler := handlers.NewSearchHandler(log, searchService)
	gamificationHandler := handlers.NewGamificationHandler(log, gamificationService)
	recommendationHandler := handlers.NewRecommendationHandler(log, recommendationService)
	analyticsHandler := handlers.NewAnalyticsHandler(log, analyticsService)
	eventsHandler := handlers.NewEventsHandler(log, hub)

	// Middleware
	log.Info("Setting up middleware from main...")
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		AuthMiddleware:        authMiddleware,
		AuthHandler:           authHandler,
		UserHandler:           userHandler,
		CourseHandler:         courseHandler,
		EnrollmentHandler:     enrollmentHandler,
		ReviewHandler:         reviewHandler,
		CourseGenHandler:      courseGenHandler,
		ArticleHandler:        articleHandler,
		KGHandler:             kgHandler,
		SearchHandler:         searchHandler,
		GamificationHandler:   gamificationHandler,
		RecommendationHandler: recommendationHandler,
		AnalyticsHandler:      analyticsHandler,
		EventsHandler:         eventsHandler,
		AllowOrigins:          utils.GetEnvAsList("ALLOW_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}, log),
	})

	port := utils.GetEnv("PORT", "8080", log)
	log.Info("Server listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server failed", "error", err)
	}
}
