package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/application/checkout"
	"github.com/storefront/backend/internal/domain/promotion"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/cache"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/persistence"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"github.com/storefront/backend/internal/interfaces/http/handler"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/storefront/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Storefront Promotions API",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize tracing; a disabled config yields a no-op provider
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if err := telemetry.RegisterGormTracing(db.DB, cfg.Telemetry, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	// Initialize repositories
	var promotionRepo promotion.Repository = persistence.NewGormPromotionRepository(db.DB)
	couponRepo := persistence.NewGormCouponRepository(db.DB)
	orderHistory := persistence.NewGormOrderHistoryRepository(db.DB)

	// Optional Redis cache in front of the promotion store
	if cfg.Cache.Enabled {
		cached, err := cache.NewCachedPromotionRepository(promotionRepo, cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
			cache.WithPromotionTTL(cfg.Cache.PromotionTTL),
			cache.WithPromotionCacheLogger(log),
		)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			if err := cached.Close(); err != nil {
				log.Error("Error closing Redis client", zap.Error(err))
			}
		}()
		promotionRepo = cached
		log.Info("Promotion cache enabled", zap.Duration("ttl", cfg.Cache.PromotionTTL))
	}

	// Build domain services
	campaignConfig, err := campaignConfigFromSettings(cfg.Campaign)
	if err != nil {
		log.Fatal("Invalid campaign configuration", zap.Error(err))
	}

	engine := promotion.NewEngine(promotionRepo, log)
	manager := promotion.NewManager(engine, orderHistory, campaignConfig, log)
	validator := promotion.NewCouponValidator(couponRepo)
	display := promotion.NewDisplayService(promotionRepo)

	// Application services
	discountService := checkout.NewDiscountService(manager, validator, display, couponRepo, log)

	// Setup validator with JSON tag names
	middleware.SetupValidator()

	// Setup Gin engine
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	ginEngine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := ginEngine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Failed to set trusted proxies", zap.Error(err))
		}
	}

	ginEngine.Use(middleware.RequestID())
	ginEngine.Use(logger.Recovery(log))
	ginEngine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	ginEngine.Use(middleware.SpanErrorMarker())
	ginEngine.Use(logger.GinMiddleware(log))
	ginEngine.Use(middleware.Secure())

	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	ginEngine.Use(middleware.CORSWithConfig(corsConfig))

	ginEngine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		ginEngine.Use(middleware.RateLimit(rateLimiter))
	}

	// Health endpoint outside the versioned API
	ginEngine.GET("/health", healthHandler(db))

	// Resolve customer identity from bearer tokens; anonymous is fine
	jwtService := auth.NewJWTService(cfg.JWT)
	ginEngine.Use(middleware.CustomerIdentityWithConfig(middleware.IdentityConfig{
		JWTService: jwtService,
		Logger:     log,
	}))

	// Register API routes
	checkoutHandler := handler.NewCheckoutHandler(discountService)
	if cfg.HTTP.RateLimitEnabled {
		// Coupon lookups get a quarter of the global budget so codes
		// cannot be enumerated by brute force
		couponLimit := cfg.HTTP.RateLimitRequests / 4
		if couponLimit < 1 {
			couponLimit = 1
		}
		couponLimiter := middleware.NewRateLimiter(couponLimit, cfg.HTTP.RateLimitWindow)
		checkoutHandler.UseCouponGuard(middleware.CouponRateLimit(couponLimiter))
	}

	r := router.NewRouter(ginEngine, router.WithAPIVersion("v1"))
	r.Register(checkoutHandler)
	r.Register(handler.NewPromotionHandler(discountService, cfg.Campaign.DisplayDefaultLimit))
	r.Register(handler.NewSystemHandler())
	r.Setup()

	// Simple ping at the API root for basic liveness checks
	ginEngine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        ginEngine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// campaignConfigFromSettings parses the decimal strings carried by the
// configuration layer into the domain campaign config
func campaignConfigFromSettings(cfg config.CampaignConfig) (promotion.CampaignConfig, error) {
	percent, err := decimal.NewFromString(cfg.FirstOrderPercent)
	if err != nil {
		return promotion.CampaignConfig{}, err
	}
	threshold, err := decimal.NewFromString(cfg.HighValueThreshold)
	if err != nil {
		return promotion.CampaignConfig{}, err
	}

	caps := make(map[string]decimal.Decimal)
	if cfg.FirstOrderMaxAmount != "" {
		v, err := decimal.NewFromString(cfg.FirstOrderMaxAmount)
		if err != nil {
			return promotion.CampaignConfig{}, err
		}
		caps[promotion.CapFirstOrderMax] = v
	}
	if cfg.HighValueMaxAmount != "" {
		v, err := decimal.NewFromString(cfg.HighValueMaxAmount)
		if err != nil {
			return promotion.CampaignConfig{}, err
		}
		caps[promotion.CapHighValueMax] = v
	}

	intents := make([]promotion.Intent, 0, len(cfg.ProtectedIntents))
	for _, raw := range cfg.ProtectedIntents {
		intents = append(intents, promotion.Intent(raw))
	}

	return promotion.CampaignConfig{
		FirstOrderPercent:  percent,
		Caps:               caps,
		ProtectedIntents:   intents,
		HighValueThreshold: threshold,
	}, nil
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
