package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"carpool/internal/handler"
	"carpool/internal/middleware"
	internalRedis "carpool/internal/redis"
	"carpool/internal/service"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	Engine       *service.BookingEngine
	SessionStore internalRedis.SessionStoreInterface
	RedisClient  *redis.Client // optional, enables Idempotency-Key replay
	NewRelicApp  *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	accountHandler := handler.NewAccountHandler(deps.Engine, deps.SessionStore)
	rideHandler := handler.NewRideHandler(deps.Engine)
	healthHandler := handler.NewHealthHandler(deps.Engine)

	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.PersistenceWarningMiddleware(deps.Engine))

	router.GET("/health", healthHandler.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Public routes.
		v1.POST("/accounts/register", accountHandler.Register)
		v1.GET("/accounts/:username", accountHandler.Profile)
		v1.POST("/sessions", accountHandler.Login)

		// Everything below acts on behalf of the session user.
		auth := v1.Group("")
		auth.Use(middleware.SessionMiddleware(deps.SessionStore))
		auth.Use(middleware.IdempotencyMiddleware(deps.RedisClient))

		auth.DELETE("/sessions", accountHandler.Logout)

		me := auth.Group("/me")
		{
			me.GET("", accountHandler.Me)
			me.POST("/topup", accountHandler.TopUp)
			me.GET("/rides", rideHandler.MyRides)
			me.GET("/rides/rateable", rideHandler.Rateable)
			me.POST("/cancel", rideHandler.CancelActive)
			me.POST("/rate-captain", rideHandler.RateLatestCaptain)
		}

		rides := auth.Group("/rides")
		{
			rides.POST("", rideHandler.CreateRide)
			rides.GET("", rideHandler.ListBookable)
			rides.GET("/:id", rideHandler.GetRide)
			rides.POST("/:id/book", rideHandler.BookSeat)
			rides.POST("/:id/cancel", rideHandler.CancelRide)
			rides.POST("/:id/complete", rideHandler.CompleteRide)
			rides.POST("/:id/rate-passenger", rideHandler.RatePassenger)
			rides.POST("/:id/rate-captain", rideHandler.RateCaptain)
		}
	}

	return router
}
