package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ordering-service/controllers"
	"ordering-service/database"
	logger_pkg "ordering-service/logger"
	"ordering-service/middleware"
	"ordering-service/models"
	aws_pkg "ordering-service/pkg/aws"
	"ordering-service/repository"
	"ordering-service/routes"
	"ordering-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	logger, err := logger_pkg.New(getEnv("APP_ENV", "development"))
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	cfg, err := LoadConfig()
	if err != nil {
		logger.Fatal("Config load failed", zap.Error(err))
	}

	// --- Databases ---
	db, err := database.ConnectPostgres(cfg.Postgres, logger,
		&models.InventoryItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.SnapshotEntry{},
	)
	if err != nil {
		logger.Fatal("DB connection failed", zap.Error(err))
	}

	if err := database.ConnectMongo(cfg.MongoURL, cfg.MongoDBName); err != nil {
		logger.Fatal("Catalog DB connection failed", zap.Error(err))
	}

	redisClient := database.NewRedisClient(cfg.RedisURL)

	// --- AWS setup ---
	awsCfg, err := aws_pkg.LoadAWSConfig(context.Background())
	if err != nil {
		logger.Fatal("Failed to load AWS config", zap.Error(err))
	}
	snsClient := aws_pkg.NewSNSClient(awsCfg)

	// CloudWatch metrics (non-fatal)
	metricsClient, err := aws_pkg.NewMetricsClient(context.Background())
	if err != nil {
		logger.Warn("CloudWatch metrics client init failed (non-fatal)", zap.Error(err))
	}

	// --- HTTP router ---
	r := gin.New()
	r.Use(gin.Recovery())

	// CloudWatch HTTP metrics middleware
	r.Use(func(c *gin.Context) {
		if metricsClient == nil || !metricsClient.IsEnabled() {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		go func(path, method string, status int, dur time.Duration) {
			mctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			dims := map[string]string{"Service": "ordering-service", "Method": method, "Path": path}
			_ = metricsClient.RecordCount(mctx, aws_pkg.MetricHTTPRequests, dims)
			_ = metricsClient.RecordLatency(mctx, aws_pkg.MetricHTTPLatency, dur, dims)
			if status >= 400 {
				_ = metricsClient.RecordCount(mctx, aws_pkg.MetricHTTPErrors, dims)
			}
		}(c.Request.URL.Path, c.Request.Method, c.Writer.Status(), time.Since(start))
	})

	r.Use(logger_pkg.RequestLogger(logger))

	// Request timeout middleware
	r.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	r.Use(middleware.RateLimitMiddleware())

	// --- Dependency injection ---
	catalogRepo := repository.NewCatalogRepository(database.Mongo)
	catalogProvider := services.NewCachedCatalogProvider(
		services.NewMongoCatalogProvider(catalogRepo),
		redisClient,
		5*time.Minute,
		logger,
	)
	inventoryRepo := repository.NewGormInventoryRepository(db)
	orderRepo := repository.NewGormOrderRepository(db)
	txManager := repository.NewGormTxManager(db, 5*time.Second)

	pricingService := services.NewPricingService(catalogProvider, inventoryRepo, cfg.ConsumptionDefaults, logger)

	var promoClient services.PromotionClient
	if cfg.PromotionServiceURL != "" {
		promoClient = services.NewHTTPPromotionClient(cfg.PromotionServiceURL)
	}
	var loyaltyClient services.LoyaltyClient
	if cfg.LoyaltyServiceURL != "" {
		loyaltyClient = services.NewHTTPLoyaltyClient(cfg.LoyaltyServiceURL)
	}

	orderService := services.NewOrderService(
		orderRepo,
		inventoryRepo,
		pricingService,
		txManager,
		snsClient,
		metricsClient,
		promoClient,
		loyaltyClient,
		services.OrderServiceConfig{
			TaxRate:           cfg.TaxRate,
			OrderTopicArn:     cfg.OrderEventsTopicARN,
			InventoryTopicArn: cfg.InventoryAlertsTopicARN,
		},
		logger,
	)
	inventoryService := services.NewInventoryService(inventoryRepo, logger)

	orderController := controllers.NewOrderController(orderService)
	inventoryController := controllers.NewInventoryController(inventoryService)

	routes.RegisterRoutes(r, orderController, inventoryController, cfg.AllowedOrigins)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "service": "ordering-service"})
	})

	// --- Checkout queue consumer ---
	queueURL := cfg.CheckoutQueueURL
	if queueURL == "" && cfg.CheckoutQueueName != "" {
		queueURL, err = aws_pkg.GetQueueURL(context.Background(), awsCfg, cfg.CheckoutQueueName)
		if err != nil {
			logger.Warn("Checkout queue lookup failed, consumer disabled",
				zap.String("queue", cfg.CheckoutQueueName),
				zap.Error(err),
			)
			queueURL = ""
		}
	}

	var consumerCancel context.CancelFunc
	if queueURL != "" {
		idemStore := services.NewRedisIdempotencyStore(redisClient)
		checkoutConsumer := services.NewSQSCheckoutConsumer(
			aws_pkg.NewSQSConsumer(awsCfg, queueURL),
			orderService,
			idemStore,
			metricsClient,
			logger,
		)

		var consumerCtx context.Context
		consumerCtx, consumerCancel = context.WithCancel(context.Background())
		go checkoutConsumer.Start(consumerCtx)
	} else {
		logger.Info("No checkout queue configured, consumer disabled")
	}

	// --- HTTP server ---
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		logger.Info("Ordering Service started", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Initiating graceful shutdown...")

	if consumerCancel != nil {
		consumerCancel()
	}

	httpShutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(httpShutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	if err := database.Close(); err != nil {
		logger.Error("Database close error", zap.Error(err))
	}
	if err := database.CloseMongo(); err != nil {
		logger.Error("Catalog DB close error", zap.Error(err))
	}
	if err := redisClient.Close(); err != nil {
		logger.Error("Redis close error", zap.Error(err))
	}

	logger.Info("Ordering Service stopped gracefully")
}
