// Package router wires handlers and middleware into the gin engine.
package router

import (
	"github.com/NomadCrew/feedback-hub-backend/config"
	_ "github.com/NomadCrew/feedback-hub-backend/docs"
	"github.com/NomadCrew/feedback-hub-backend/handlers"
	"github.com/NomadCrew/feedback-hub-backend/internal/websocket"
	"github.com/NomadCrew/feedback-hub-backend/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Dependencies struct holds all dependencies required for setting up routes.
type Dependencies struct {
	Config          *config.Config
	FeedbackHandler *handlers.FeedbackHandler
	HealthHandler   *handlers.HealthHandler
	WSHandler       *websocket.Handler
}

// SetupRouter configures and returns the main Gin engine with all routes defined.
func SetupRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	if err := r.SetTrustedProxies(deps.Config.Server.TrustedProxies); err != nil {
		_ = r.SetTrustedProxies(nil)
	}

	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.SecurityHeadersMiddleware(&deps.Config.Server))
	r.Use(middleware.CORSMiddleware(&deps.Config.Server))
	r.Use(middleware.ErrorHandler())

	r.GET("/health", deps.HealthHandler.DetailedHealth)
	r.GET("/health/liveness", deps.HealthHandler.LivenessCheck)
	r.GET("/health/readiness", deps.HealthHandler.ReadinessCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/v1")
	{
		feedback := v1.Group("/feedback")
		{
			feedback.POST("", deps.FeedbackHandler.SubmitFeedback)
			feedback.GET("/latest", deps.FeedbackHandler.GetLatestFeedback)
			if deps.WSHandler != nil {
				feedback.GET("/latest/ws", deps.WSHandler.HandleWebSocket)
			}
		}
	}

	return r
}
