package api

import (
	"github.com/gin-gonic/gin"

	"github.com/bcalm/launchpad_server/config"
	"github.com/bcalm/launchpad_server/internal/api/handler"
	"github.com/bcalm/launchpad_server/internal/api/middleware"
	"github.com/bcalm/launchpad_server/internal/pkg/logger"
)

type Router struct {
	cvHandler         *handler.CVHandler
	analysisHandler   *handler.AnalysisHandler
	websocketHandler  *handler.WebSocketHandler
	onboardingHandler *handler.OnboardingHandler
	analyticsHandler  *handler.AnalyticsHandler
	healthHandler     *handler.HealthHandler
	cfg               *config.Config
}

func NewRouter(
	cvHandler *handler.CVHandler,
	analysisHandler *handler.AnalysisHandler,
	websocketHandler *handler.WebSocketHandler,
	onboardingHandler *handler.OnboardingHandler,
	analyticsHandler *handler.AnalyticsHandler,
	healthHandler *handler.HealthHandler,
	cfg *config.Config,
) *Router {
	return &Router{
		cvHandler:         cvHandler,
		analysisHandler:   analysisHandler,
		websocketHandler:  websocketHandler,
		onboardingHandler: onboardingHandler,
		analyticsHandler:  analyticsHandler,
		healthHandler:     healthHandler,
		cfg:               cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(logger.GinLogger())
	engine.Use(middleware.CORS(r.cfg.CORS))
	// multipart bodies above this spill to disk
	engine.MaxMultipartMemory = r.cfg.Upload.MaxSize + 1<<20

	api := engine.Group("/api/v1")
	{
		api.GET("/health", r.healthHandler.Health)
		api.GET("/ws", r.websocketHandler.Handle)
		api.POST("/analytics/track", r.analyticsHandler.Track)

		// anonymous uploads are allowed
		api.POST("/cv/upload", middleware.OptionalAuth(r.cfg.JWT.Secret), r.cvHandler.Upload)

		jobs := api.Group("/analysis/jobs")
		{
			jobs.GET("/:id", r.analysisHandler.GetJob)
			jobs.POST("/:id/callback", middleware.CallbackSecret(r.cfg.Scorer.CallbackSecret), r.analysisHandler.Callback)
			jobs.GET("", middleware.Auth(r.cfg.JWT.Secret), r.analysisHandler.ListJobs)
		}

		onboarding := api.Group("/onboarding")
		onboarding.Use(middleware.Auth(r.cfg.JWT.Secret))
		{
			onboarding.GET("/status", r.onboardingHandler.Status)
			onboarding.POST("/update", r.onboardingHandler.Update)
			onboarding.POST("/complete", r.onboardingHandler.Complete)
		}
	}

	return engine
}
