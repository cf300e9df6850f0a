package router

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/ezhealth/appointment-api/internal/handler/health"
	"github.com/ezhealth/appointment-api/internal/handler/prometheus"
	"github.com/ezhealth/appointment-api/internal/middleware"
)

// Handler is a feature handler that mounts its own routes and role guards.
type Handler interface {
	RegisterRoutes(*gin.RouterGroup, *middleware.AuthMiddleware)
}

type RouterConfig struct {
	RateLimitEnabled bool
	RateLimit        rate.Limit
	RateBurst        int
	CORSConfig       middleware.CORSConfig
	RequestTimeout   time.Duration
	// MaxBodySize caps non-multipart bodies; uploads carry their own limit.
	MaxBodySize int64
	MediaRoot   string
	MediaURL    string
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	metrics  *prometheus.Handler
	health   *health.Handler
	handlers []Handler
	config   RouterConfig
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	metrics *prometheus.Handler,
	health *health.Handler,
	config RouterConfig,
	handlers ...Handler,
) *Router {
	engine := gin.New()
	engine.HandleMethodNotAllowed = true

	r := &Router{
		engine:   engine,
		auth:     auth,
		metrics:  metrics,
		health:   health,
		handlers: handlers,
		config:   config,
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
		metrics.Middleware(),
		middleware.CORS(config.CORSConfig),
	)

	if config.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
		engine.Use(limiter.RateLimit())
	}

	return r
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")
	api.Use(
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig()),
		middleware.Timeout(r.config.RequestTimeout),
	)
	if r.config.MaxBodySize > 0 {
		api.Use(bodyLimit(r.config.MaxBodySize))
	}

	r.health.RegisterRoutes(api)
	api.GET("/metrics", r.metrics.Handler())

	for _, h := range r.handlers {
		h.RegisterRoutes(api, r.auth)
	}

	if r.config.MediaRoot != "" && r.config.MediaURL != "" {
		r.engine.Static(r.config.MediaURL, r.config.MediaRoot)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func bodyLimit(max int64) gin.HandlerFunc {
	limit := middleware.SizeLimit(max)
	return func(c *gin.Context) {
		if strings.HasPrefix(c.ContentType(), "multipart/") {
			c.Next()
			return
		}
		limit(c)
	}
}
