package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizroom-backend/internal/config"
	"github.com/stemsi/quizroom-backend/internal/handler"
	"github.com/stemsi/quizroom-backend/internal/middleware"
	"github.com/stemsi/quizroom-backend/internal/model"
	"github.com/stemsi/quizroom-backend/internal/response"
	"github.com/stemsi/quizroom-backend/internal/service"
)

// publicCacheAge bounds how stale the public quiz status may be.
const publicCacheAge = 5 * time.Second

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth          *handler.AuthHandler
	StudentPortal *handler.StudentPortalHandler
	Admin         *handler.AdminHandler
	Question      *handler.QuestionHandler
	Setting       *handler.SettingHandler
	WS            *handler.WSHandler
	System        *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// authLimiter, when non-nil, throttles the login and registration routes.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
	authLimiter *middleware.RateLimiter,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.Brotli())

	router.GET("/health", handlers.System.Health)

	// ─── 0. Public Group (No Auth) ─────────────────────────────────────
	publicAPI := router.Group("/api/v1/public")
	publicAPI.Use(middleware.CacheControl(publicCacheAge))
	{
		publicAPI.GET("/quiz-status", handlers.Setting.QuizStatus)
		publicAPI.GET("/subjects", handlers.Question.Subjects)
	}

	// ─── 1. Auth Group ─────────────────────────────────────────────────
	auth := router.Group("/api/v1/auth")
	{
		limited := auth.Group("")
		if authLimiter != nil {
			limited.Use(authLimiter.Middleware())
		}
		limited.POST("/register", handlers.Auth.Register)
		limited.POST("/login", handlers.Auth.Login)

		session := auth.Group("")
		session.Use(
			middleware.RequireJWT(authService),
			middleware.CheckLatestLogin(authService),
			middleware.NoStore(),
		)
		session.GET("/me", handlers.Auth.Me)
		session.POST("/logout", handlers.Auth.Logout)
	}

	// ─── 2. Student Group (JWT + Latest Login) ─────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireJWT(authService),
		middleware.CheckLatestLogin(authService),
		middleware.RequireRole(model.RoleStudent),
		middleware.NoStore(),
	)
	{
		studentAPI.GET("/questions", handlers.Question.Bank)
		studentAPI.GET("/attempt", handlers.StudentPortal.GetAttempt)
		studentAPI.POST("/answers", handlers.StudentPortal.Autosave)
		studentAPI.POST("/start-time", handlers.StudentPortal.RecordStartTime)
		studentAPI.POST("/submit", handlers.StudentPortal.Submit)
		studentAPI.GET("/results", handlers.StudentPortal.GetResults)
	}

	// ─── 3. WebSocket Group (Student WS Auth + Latest Login) ────────────
	ws := router.Group("/ws/v1")
	ws.Use(
		middleware.RequireWSAuth(authService),
		middleware.CheckLatestLogin(authService),
		middleware.RequireRole(model.RoleStudent),
	)
	{
		ws.GET("/student/quiz", handlers.WS.QuizStream)
	}

	// ─── 4. Admin Group (JWT + Role) ───────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(
		middleware.RequireJWT(authService),
		middleware.CheckLatestLogin(authService),
		middleware.RequireRole(model.RoleAdmin),
		middleware.NoStore(),
	)
	{
		questions := adminAPI.Group("/questions")
		{
			questions.GET("", handlers.Question.ListQuestions)
			questions.POST("", handlers.Question.CreateQuestion)
			questions.POST("/import", handlers.Question.ImportQuestions)
			questions.GET("/:id", handlers.Question.GetQuestion)
			questions.PUT("/:id", handlers.Question.UpdateQuestion)
			questions.DELETE("/:id", handlers.Question.DeleteQuestion)
		}

		settings := adminAPI.Group("/settings")
		{
			settings.GET("", handlers.Setting.GetAllSettings)
			settings.PUT("", handlers.Setting.UpdateSettings)
		}

		adminAPI.GET("/attempts", handlers.Admin.ListAttempts)
		adminAPI.DELETE("/attempts/:user_id", handlers.Admin.ResetAttempt)
		adminAPI.GET("/violations/:user_id", handlers.Admin.GetViolations)

		// System Monitoring
		adminAPI.GET("/system/metrics", handlers.System.SystemMetricsSSE)
	}

	return router
}
