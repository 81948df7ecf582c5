package handler

import (
	"cryoner-gateway/internal/adapter/http/middleware"
	redisStore "cryoner-gateway/internal/adapter/storage/redis"
	"cryoner-gateway/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	IntakeSvc      ports.IntakeService
	Engine         ports.PaymentEngine
	OrderRepo      ports.OrderRepository
	SessionRepo    ports.SessionRepository
	AuthSvc        ports.AuthService
	TokenSvc       ports.TokenService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public checkout flow ---
	checkoutHandler := NewCheckoutHandler(deps.IntakeSvc, deps.Engine, deps.OrderRepo)
	checkout := v1.Group("/checkout")
	{
		checkout.POST("", rl("checkout"), checkoutHandler.Create)
		checkout.GET("/:orderId", rl("checkout"), checkoutHandler.Status)
		checkout.POST("/:orderId/check", rl("checkout"), checkoutHandler.Check)
	}

	sessionHandler := NewSessionHandler(deps.SessionRepo)
	sessions := v1.Group("/sessions")
	{
		sessions.POST("", rl("sessions"), sessionHandler.Create)
		sessions.GET("/:id", rl("sessions"), sessionHandler.Get)
		sessions.DELETE("/:id", rl("sessions"), sessionHandler.Delete)
	}

	orderHandler := NewOrderHandler(deps.OrderRepo, deps.Engine)
	v1.GET("/orders/:orderId", rl("checkout"), orderHandler.Get)

	authHandler := NewAuthHandler(deps.AuthSvc)
	v1.POST("/auth/login", rl("auth_login"), authHandler.Login)

	// --- Admin routes (JWT-authenticated) ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	adminHandler := NewAdminHandler(deps.OrderRepo)
	admin := v1.Group("/admin", jwtAuth)
	{
		admin.GET("/orders", rl("admin"), adminHandler.List)
		admin.GET("/orders/export", rl("admin"), adminHandler.Export)
		admin.PUT("/orders/:orderId/status", rl("admin"), adminHandler.UpdateStatus)
		admin.GET("/stats", rl("admin"), adminHandler.Stats)
	}

	return r
}
