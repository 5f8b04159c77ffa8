package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/aiverso/aiverso-backend/internal/handlers"
	"github.com/aiverso/aiverso-backend/internal/middleware"
)

type RouterConfig struct {
	AuthMiddleware *middleware.AuthMiddleware

	AuthHandler           *handlers.AuthHandler
	UserHandler           *handlers.UserHandler
	CourseHandler         *handlers.CourseHandler
	EnrollmentHandler     *handlers.EnrollmentHandler
	ReviewHandler         *handlers.ReviewHandler
	CourseGenHandler      *handlers.CourseGenHandler
	ArticleHandler        *handlers.ArticleHandler
	KGHandler             *handlers.KGHandler
	SearchHandler         *handlers.SearchHandler
	GamificationHandler   *handlers.GamificationHandler
	RecommendationHandler *handlers.RecommendationHandler
	AnalyticsHandler      *handlers.AnalyticsHandler
	EventsHandler         *handlers.EventsHandler

	AllowOrigins []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")

	// ===============
	// || Public    ||
	// ===============
	api.POST("/auth/register", cfg.AuthHandler.Register)
	api.POST("/auth/login", cfg.AuthHandler.Login)

	public := api.Group("/")
	public.Use(cfg.AuthMiddleware.OptionalAuth())
	public.GET("/articles", cfg.ArticleHandler.ListArticles)
	public.GET("/articles/:id", cfg.ArticleHandler.GetArticle)
	public.GET("/kg/entities", cfg.KGHandler.ListEntities)
	public.GET("/kg/entities/:id", cfg.KGHandler.GetEntity)
	public.GET("/search", cfg.SearchHandler.Search)
	public.GET("/courses", cfg.CourseHandler.ListCourses)
	public.GET("/courses/:id", cfg.CourseHandler.GetCourse)
	public.GET("/courses/:id/reviews", cfg.ReviewHandler.ListByCourse)
	public.GET("/leaderboard", cfg.GamificationHandler.GetLeaderboard)

	// ===============
	// || Protected ||
	// ===============
	protected := api.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	// Auth + profile
	protected.POST("/auth/refresh", cfg.AuthHandler.Refresh)
	protected.POST("/auth/logout", cfg.AuthHandler.Logout)
	protected.GET("/me", cfg.UserHandler.GetMe)
	protected.PATCH("/me", cfg.UserHandler.UpdateMe)
	// Learning
	protected.GET("/enrollments", cfg.EnrollmentHandler.ListMine)
	protected.POST("/courses/enroll", cfg.EnrollmentHandler.Enroll)
	protected.DELETE("/courses/enroll", cfg.EnrollmentHandler.Unenroll)
	protected.DELETE("/courses/enroll/:course_id", cfg.EnrollmentHandler.Unenroll)
	protected.POST("/progress/complete", cfg.EnrollmentHandler.CompleteModule)
	protected.POST("/reviews", cfg.ReviewHandler.CreateReview)
	// Generation
	protected.POST("/generate-course-simple", cfg.CourseGenHandler.GenerateSimple)
	protected.POST("/courses/generate-advanced", cfg.CourseGenHandler.GenerateAdvanced)
	protected.GET("/courses/generate/:run_id", cfg.CourseGenHandler.GetRun)
	// Gamification + personalization
	protected.POST("/badges/check", cfg.GamificationHandler.CheckBadges)
	protected.GET("/xp/log", cfg.GamificationHandler.GetXPLog)
	protected.GET("/recommendations", cfg.RecommendationHandler.GetFeed)
	protected.GET("/analytics", cfg.AnalyticsHandler.GetUserAnalytics)
	protected.GET("/events/stream", cfg.EventsHandler.Stream)
	// Admin
	protected.POST("/admin/articles/refresh", cfg.ArticleHandler.RefreshArticles)

	return router
}
