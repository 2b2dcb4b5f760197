// internal/interfaces/http/server.go
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/booking"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/payment"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/interfaces/http/handlers"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
	"github.com/your-org/storefront-backend/internal/interfaces/http/routes"
	"github.com/your-org/storefront-backend/internal/pkg/auth"
	"github.com/your-org/storefront-backend/internal/pkg/email"
	"github.com/your-org/storefront-backend/internal/pkg/pdf"
	"gorm.io/gorm"
)

// Server represents the HTTP server
type Server struct {
	config      *config.Config
	gin         *gin.Engine
	httpServer  *http.Server
	db          *gorm.DB
	redisClient *redis.Client
	log         logrus.FieldLogger
	startedAt   time.Time
}

// NewServer creates a new HTTP server instance
func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, log logrus.FieldLogger) *Server {
	return &Server{
		config:      cfg,
		db:          db,
		redisClient: redisClient,
		log:         log,
	}
}

// Handler builds the engine without listening, for Start and for tests
func (s *Server) Handler() (http.Handler, error) {
	if s.gin != nil {
		return s.gin, nil
	}

	if s.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.gin = gin.New()
	if err := s.gin.SetTrustedProxies(s.config.Security.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}
	handlers.RegisterValidation()

	s.setupMiddleware()
	s.setupRoutes()
	return s.gin, nil
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}

	s.httpServer = &http.Server{
		Addr:         ":" + s.config.Server.Port,
		Handler:      handler,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}
	s.startedAt = time.Now()

	s.log.WithFields(logrus.Fields{
		"port":     s.config.Server.Port,
		"base_url": fmt.Sprintf("http://localhost:%s/api/v1", s.config.Server.Port),
	}).Info("HTTP server starting")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	s.log.Info("Shutting down HTTP server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.log.Info("HTTP server stopped gracefully")
	return nil
}

// setupMiddleware configures all middleware for the server
func (s *Server) setupMiddleware() {
	s.gin.Use(gin.Recovery())
	s.gin.Use(middleware.RequestID())
	s.gin.Use(middleware.Logger(s.log))
	s.gin.Use(middleware.CORS(s.config))
	s.gin.Use(middleware.SecurityHeaders())
	s.gin.Use(middleware.RateLimit(s.config.Security.RateLimitPerMinute, s.redisClient, s.log))
	s.gin.Use(middleware.BodyLimit(s.config.Server.MaxBodyBytes))
	s.gin.Use(middleware.Timeout(s.config.Server.RequestTimeout))
}

// setupRoutes wires repositories, services and handlers, then mounts them
func (s *Server) setupRoutes() {
	s.gin.GET("/health", s.healthCheck)
	s.gin.GET("/ready", s.readinessCheck)

	apiV1 := s.gin.Group("/api/v1")
	apiV1.GET("/health", s.healthCheck)
	apiV1.GET("/ready", s.readinessCheck)
	routes.SetupRoutes(apiV1, s.buildHandlers())
}

func (s *Server) buildHandlers() *routes.Handlers {
	notifier := email.NewEmailService(s.config, s.log.WithField("component", "email"))
	invoices := pdf.NewService(s.config)

	products := product.NewService(s.db)
	carts := cart.NewService(
		cart.NewUserStore(s.db),
		cart.NewGuestStore(s.redisClient, s.config.Cart.GuestTTL, s.log),
		products,
		s.log.WithField("component", "cart"),
	)
	orders := order.NewService(order.NewRepository(s.db), products, carts, notifier, s.config, s.log.WithField("component", "order"))
	bookings := booking.NewService(booking.NewRepository(s.db), notifier, s.config, s.log.WithField("component", "booking"))
	payments := payment.NewService(
		payment.NewPaystackClient(s.config),
		payment.NewRepository(s.db),
		orders,
		bookings,
		s.config,
		s.log.WithField("component", "payment"),
	)

	jwtManager := auth.NewJWTManager(s.config)
	admins := auth.NewAdminSet(s.config.Auth.AdminEmails)
	sessions := handlers.NewSessions(s.config)

	return &routes.Handlers{
		Products:     handlers.NewProductHandler(products, s.log),
		Cart:         handlers.NewCartHandler(carts, sessions, s.log),
		Orders:       handlers.NewOrderHandler(orders, invoices, sessions, s.log),
		Payments:     handlers.NewPaymentHandler(payments, s.log),
		Bookings:     handlers.NewBookingHandler(bookings, s.log),
		RequireAuth:  middleware.AuthMiddleware(jwtManager, admins),
		OptionalAuth: middleware.OptionalAuthMiddleware(jwtManager, admins),
	}
}

// checkDependencies pings the database and redis
func (s *Server) checkDependencies(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	sqlDB, err := s.db.DB()
	if err != nil {
		return "database connection error", err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return "database ping failed", err
	}
	if err := s.redisClient.Ping(ctx).Err(); err != nil {
		return "redis ping failed", err
	}
	return "", nil
}

// healthCheck handles health check requests
func (s *Server) healthCheck(c *gin.Context) {
	if reason, err := s.checkDependencies(c.Request.Context()); err != nil {
		s.log.WithError(err).Warn("Health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  reason,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"timestamp":   time.Now().UTC(),
		"version":     s.config.App.Version,
		"environment": s.config.App.Environment,
	})
}

// readinessCheck handles readiness check requests
func (s *Server) readinessCheck(c *gin.Context) {
	if reason, err := s.checkDependencies(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"error":  reason,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	})
}
