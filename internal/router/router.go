package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/poil524/final-project-sub000/internal/config"
	"github.com/poil524/final-project-sub000/internal/handler"
	"github.com/poil524/final-project-sub000/internal/middleware"
	"github.com/poil524/final-project-sub000/internal/response"
	"github.com/poil524/final-project-sub000/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Test       *handler.TestHandler
	Submission *handler.SubmissionHandler
	Evaluation *handler.EvaluationHandler
	Media      *handler.MediaHandler
	WS         *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Signed media delivery. Signature verification happens in the handler,
	// so the route itself is public; caching is safe because objects are
	// immutable under a given key.
	mediaGroup := router.Group("/media")
	mediaGroup.Use(middleware.CacheControl(86400))
	{
		mediaGroup.GET("/:key", handlers.Media.ServeMedia)
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for submission routes (30 requests per minute per IP).
	submitLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Student Group (JWT) ────────────────────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(middleware.RequireRole(authService, service.RoleStudent))
	{
		studentAPI.GET("/tests", handlers.Test.ListAvailableTests)
		studentAPI.GET("/tests/:test_id", handlers.Test.FetchTest)
		studentAPI.POST("/tests/:test_id/submit", submitLimiter.Middleware(), handlers.Submission.SubmitTest)

		studentAPI.GET("/results", handlers.Submission.ListMyResults)
		studentAPI.GET("/results/:result_id", handlers.Submission.GetMyResult)
		studentAPI.POST("/results/:result_id/evaluations", handlers.Evaluation.RequestEvaluation)
		studentAPI.GET("/evaluations", handlers.Evaluation.ListMyEvaluations)

		studentAPI.GET("/media/:key/url", handlers.Media.SignMediaURL)
	}

	// ─── 2. Author Group (Teacher/Admin JWT) ───────────────────────────
	authorAPI := router.Group("/api/v1/author")
	authorAPI.Use(middleware.RequireRole(authService, service.RoleTeacher, service.RoleAdmin))
	{
		authorAPI.GET("/tests", handlers.Test.ListTests)
		authorAPI.POST("/tests", handlers.Test.CreateTest)
		authorAPI.GET("/tests/:test_id", handlers.Test.GetTest)
		authorAPI.PUT("/tests/:test_id", handlers.Test.UpdateTest)
		authorAPI.DELETE("/tests/:test_id", handlers.Test.DeleteTest)

		authorAPI.GET("/evaluations", handlers.Evaluation.ListAssignedEvaluations)
		authorAPI.POST("/evaluations/:evaluation_id/complete", handlers.Evaluation.CompleteEvaluation)

		authorAPI.GET("/media/:key/url", handlers.Media.SignMediaURL)
	}

	// ─── 3. Admin Group (JWT) ──────────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireRole(authService, service.RoleAdmin))
	{
		adminAPI.POST("/tests/:test_id/approve", handlers.Test.ApproveTest)

		adminAPI.GET("/evaluations", handlers.Evaluation.ListEvaluationQueue)
		adminAPI.POST("/evaluations/:evaluation_id/assign", handlers.Evaluation.AssignEvaluation)
	}

	// ─── 4. WebSocket Group (Admin WS Auth) ────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireWSAuth(authService, service.RoleAdmin))
	{
		ws.GET("/admin/evaluations/stream", handlers.WS.EvaluationStream)
	}

	return router
}
