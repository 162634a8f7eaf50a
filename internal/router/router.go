package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/hirelens/hirelens-backend/internal/config"
	"github.com/hirelens/hirelens-backend/internal/handler"
	"github.com/hirelens/hirelens-backend/internal/middleware"
	"github.com/hirelens/hirelens-backend/internal/response"
	"github.com/hirelens/hirelens-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Session *handler.SessionHandler
	WS      *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	tokens *service.TokenService,
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

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── 1. Session Start (Public) ─────────────────────────────────────
	publicAPI := router.Group("/api/v1")
	{
		publicAPI.POST("/assessments/:assessment_id/start", handlers.Session.StartPreAuthored)
		publicAPI.POST("/sessions/generated/start", handlers.Session.StartGenerated)
	}

	// ─── 2. Session Operations (JWT, token bound to one session) ──────
	sessionAPI := router.Group("/api/v1/sessions")
	sessionAPI.Use(middleware.RequireCandidateJWT(tokens))
	{
		sessionAPI.POST("/:session_id/begin", handlers.Session.Begin)
		sessionAPI.GET("/:session_id/state", handlers.Session.GetState)
		sessionAPI.POST("/:session_id/advance", handlers.Session.Advance)
		sessionAPI.POST("/:session_id/navigate", handlers.Session.Navigate)
		sessionAPI.POST("/:session_id/mark", handlers.Session.Mark)
		sessionAPI.POST("/:session_id/submit", handlers.Session.SubmitNow)
		sessionAPI.POST("/:session_id/retry-submit", handlers.Session.RetrySubmit)
	}

	// ─── 3. WebSocket Group (WS Auth via query token) ──────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireCandidateWSAuth(tokens))
	{
		ws.GET("/sessions/:session_id/stream", handlers.WS.SessionStream)
	}

	return router
}
