package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cold-storage-marketplace/internal/api"
	apimw "cold-storage-marketplace/internal/api/middleware"
	"cold-storage-marketplace/internal/cache"
	"cold-storage-marketplace/internal/config"
	"cold-storage-marketplace/internal/database"
	"cold-storage-marketplace/internal/jobs"
	"cold-storage-marketplace/internal/logger"
	"cold-storage-marketplace/internal/modules/admin"
	"cold-storage-marketplace/internal/modules/booking"
	"cold-storage-marketplace/internal/modules/catalog"
	"cold-storage-marketplace/internal/modules/logistics"
	"cold-storage-marketplace/internal/modules/pricing"
	"cold-storage-marketplace/internal/modules/review"
	"cold-storage-marketplace/internal/modules/user"
	"cold-storage-marketplace/pkg/email"
	"cold-storage-marketplace/pkg/events"
	"cold-storage-marketplace/pkg/payment"
	"cold-storage-marketplace/pkg/utils"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// submissionHoldTTL bounds how long a crashed request can block its attempt key.
const submissionHoldTTL = 2 * time.Minute

func main() {
	// 1. --- Configuration & Logging ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	flush, err := logger.Init(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to initialise logger: %v", err)
	}
	defer flush()

	location, err := time.LoadLocation(cfg.Jobs.Location)
	if err != nil {
		zap.L().Fatal("invalid jobs.location", zap.String("location", cfg.Jobs.Location), zap.Error(err))
	}

	ctx := context.Background()

	// 2. --- Database, Cache & Broker ---
	dbPool, err := database.Connect(ctx, cfg.Database.URL)
	if err != nil {
		zap.L().Fatal("unable to connect to database", zap.Error(err))
	}
	defer dbPool.Close()

	if cfg.Database.MigrateOnBoot {
		if err := database.Migrate(ctx, dbPool); err != nil {
			zap.L().Fatal("database migration failed", zap.Error(err))
		}
	}

	stores, err := cache.NewStores(ctx, cfg.Redis, submissionHoldTTL, cfg.Payment.ResultTTL)
	if err != nil {
		zap.L().Fatal("unable to connect to redis", zap.Error(err))
	}
	defer stores.Close()

	publisher, err := events.NewRabbitPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
	if err != nil {
		zap.L().Fatal("unable to connect to rabbitmq", zap.Error(err))
	}
	defer publisher.Close()

	// 3. --- Email Service Initialization ---
	templateManager, err := email.NewTemplateManager()
	if err != nil {
		zap.L().Fatal("failed to parse email templates", zap.Error(err))
	}
	emailer, err := email.NewSender(ctx, email.Options{
		Driver:           cfg.Email.Driver,
		Region:           cfg.AWS.Region,
		From:             cfg.Email.From,
		FromName:         cfg.Email.FromName,
		ConfigurationSet: cfg.Email.ConfigurationSet,
	})
	if err != nil {
		zap.L().Fatal("failed to create email sender", zap.Error(err))
	}

	googleOAuthConfig := &oauth2.Config{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.Google.RedirectURL,
		Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
		Endpoint:     google.Endpoint,
	}

	// 4. --- Dependency Injection (Wiring everything up) ---
	guard := stores.Guard
	gateway := payment.NewSimulatedGateway(stores.Payments, cfg.Payment.Latency, cfg.Payment.DeclineSuffix)
	calculator := pricing.NewCalculator(pricing.DiscountPolicy{
		Enabled: cfg.Pricing.LongStayDiscountEnabled,
		MinDays: cfg.Pricing.LongStayMinDays,
		Rate:    decimal.NewFromFloat(cfg.Pricing.LongStayRate),
	})

	// --- User Module ---
	userRepo := user.NewRepository(dbPool)
	denyList := stores.DenyList
	userService := user.NewService(userRepo, denyList, emailer, templateManager,
		cfg.JWT.Secret, cfg.JWT.TTL, cfg.Server.ClientOrigin, googleOAuthConfig)
	userHandler := user.NewHandler(userService, strings.HasPrefix(cfg.Server.ClientOrigin, "https://"))

	// --- Catalog Module ---
	warehouseRepo := stores.Warehouses(catalog.NewRepository(dbPool), cfg.Redis.CacheTTL)
	catalogHandler := catalog.NewHandler(catalog.NewService(warehouseRepo, calculator))

	// --- Booking Module ---
	bookingRepo := booking.NewRepository(dbPool)
	bookingService := booking.NewService(bookingRepo, warehouseRepo, calculator, gateway, guard, publisher, templateManager, location)
	bookingHandler := booking.NewHandler(bookingService)

	// --- Logistics Module ---
	logisticsService := logistics.NewService(
		logistics.NewRepository(dbPool),
		stores.Selections,
		gateway, guard, publisher, location,
	)
	logisticsHandler := logistics.NewHandler(logisticsService)

	// --- Review Module ---
	reviewService := review.NewService(review.NewRepository(dbPool), warehouseRepo)
	reviewHandler := review.NewHandler(reviewService)

	// --- Admin Module ---
	adminService := admin.NewService(admin.NewRepository(dbPool), warehouseRepo, bookingRepo, bookingService, userService, reviewService, guard)
	adminHandler := admin.NewHandler(adminService)

	// 5. --- Echo & Middleware ---
	e := echo.New()
	e.HideBanner = true
	e.Validator = utils.GetValidator()
	e.Use(middleware.RequestID())
	e.Use(apimw.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  []string{"http://localhost:5173", cfg.Server.ClientOrigin},
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch, http.MethodOptions},
		AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		ExposeHeaders: []string{booking.StateHeader, logistics.StateHeader, echo.HeaderContentDisposition},
	}))

	api.SetupRoutes(e,
		userHandler,
		catalogHandler,
		bookingHandler,
		logisticsHandler,
		reviewHandler,
		adminHandler,
		userRepo,
		denyList,
		cfg.JWT.Secret,
	)

	// 6. --- Scheduled Jobs ---
	scheduler, err := jobs.NewScheduler(cfg.Jobs, bookingRepo)
	if err != nil {
		zap.L().Fatal("failed to schedule jobs", zap.Error(err))
	}
	scheduler.Start()

	// 7. --- Start Server with graceful shutdown logic ---
	go func() {
		zap.L().Info("starting http server", zap.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("shutting down the server, an error occurred", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("server forced to shutdown", zap.Error(err))
	}
	scheduler.Stop(shutdownCtx)
	zap.L().Info("server exiting")
}
