package api

import (
	"github.com/gin-gonic/gin"

	"github.com/Domenick1991/airline-ticketing/internal/metrics"
)

type RouterConfig struct {
	JWTSigningKey string
	AdminGroup    string
}

// NewRouter mounts every handler under /api/v1. limiter and m may be nil.
func NewRouter(
	cfg RouterConfig,
	flightHandler *FlightHandler,
	bookingHandler *BookingHandler,
	profileHandler *ProfileHandler,
	limiter *RateLimiter,
	m *metrics.Metrics,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), Monitor(m))
	if limiter != nil {
		router.Use(limiter.Middleware())
	}

	v1 := router.Group("/api/v1", Identity(cfg.JWTSigningKey, cfg.AdminGroup))
	flightHandler.Register(v1, RequireAdmin())
	bookingHandler.Register(v1)
	profileHandler.Register(v1)
	return router
}
