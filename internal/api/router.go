package api

import (
	"net/http"

	"cold-storage-marketplace/internal/api/middleware"
	"cold-storage-marketplace/internal/modules/admin"
	"cold-storage-marketplace/internal/modules/booking"
	"cold-storage-marketplace/internal/modules/catalog"
	"cold-storage-marketplace/internal/modules/logistics"
	"cold-storage-marketplace/internal/modules/review"
	"cold-storage-marketplace/internal/modules/user"

	"github.com/labstack/echo/v4"
)

// SetupRoutes sets up all the API endpoints for the application.
func SetupRoutes(
	e *echo.Echo,
	userHandler *user.Handler,
	catalogHandler *catalog.Handler,
	bookingHandler *booking.Handler,
	logisticsHandler *logistics.Handler,
	reviewHandler *review.Handler,
	adminHandler *admin.Handler,
	profiles middleware.ProfileFinder,
	revocations middleware.RevocationChecker,
	jwtSecret string,
) {
	// Signed-in routes: a valid token whose profile still exists.
	authMiddleware := []echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.SessionLoader(profiles, revocations),
	}
	// Workflow submissions: anonymous callers reach the service, which answers
	// with the path to resume at after sign-in.
	optionalAuth := []echo.MiddlewareFunc{
		middleware.OptionalJWTAuth(jwtSecret),
		middleware.SessionLoader(profiles, revocations),
	}
	adminRequired := []echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.SessionLoader(profiles, revocations),
		middleware.AdminRequired(),
	}

	// --- Public Routes ---
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"message": "Welcome to the Cold Storage Marketplace!"})
	})
	e.GET("/healthz", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	authGroup := e.Group("/auth")
	{
		authGroup.POST("/signup", userHandler.Signup)
		authGroup.POST("/login", userHandler.Login)
		authGroup.POST("/logout", userHandler.Logout, authMiddleware...)
		authGroup.GET("/google/login", userHandler.GoogleLogin)
		authGroup.GET("/google/callback", userHandler.GoogleCallback)
	}

	// --- Catalog & Reviews ---
	warehouseGroup := e.Group("/warehouses")
	{
		warehouseGroup.GET("", catalogHandler.ListWarehouses)
		warehouseGroup.GET("/:id", catalogHandler.GetWarehouse)
		warehouseGroup.GET("/:id/quote", catalogHandler.GetQuote)
		warehouseGroup.GET("/:id/reviews", reviewHandler.ListReviews)
		warehouseGroup.POST("/:id/reviews", reviewHandler.CreateReview, authMiddleware...)
		warehouseGroup.POST("/:id/bookings", bookingHandler.CreateBooking, optionalAuth...)
	}

	// --- User (Customer) Routes ---
	profileGroup := e.Group("/profile", authMiddleware...)
	{
		profileGroup.GET("", userHandler.GetProfile)
		profileGroup.PUT("", userHandler.UpdateProfile)
	}

	// --- Booking Routes ---
	bookingGroup := e.Group("/bookings", authMiddleware...)
	{
		bookingGroup.GET("", bookingHandler.ListMyBookings)
		bookingGroup.GET("/:id", bookingHandler.GetBooking)
		bookingGroup.GET("/:id/receipt", bookingHandler.GetReceipt)
		bookingGroup.PUT("/:id/cancel", bookingHandler.CancelBooking)
	}

	// --- Logistics Routes ---
	logisticsGroup := e.Group("/logistics")
	{
		logisticsGroup.GET("/plans", logisticsHandler.ListPlans)
		logisticsGroup.POST("/plans/:planId/select", logisticsHandler.SelectPlan)
		logisticsGroup.POST("/plans/:planId/subscribe", logisticsHandler.Subscribe, optionalAuth...)
		logisticsGroup.GET("/subscriptions", logisticsHandler.ListMySubscriptions, authMiddleware...)
	}

	// --- Admin Routes ---
	adminGroup := e.Group("/admin", adminRequired...)
	{
		adminGroup.GET("/stats", adminHandler.GetStats)

		// Warehouse Management
		adminGroup.GET("/warehouses", adminHandler.ListWarehouses)
		adminGroup.POST("/warehouses", adminHandler.CreateWarehouse)
		adminGroup.PUT("/warehouses/:id", adminHandler.UpdateWarehouse)
		adminGroup.DELETE("/warehouses/:id", adminHandler.DeleteWarehouse)

		// Booking Management
		adminGroup.GET("/bookings", adminHandler.ListBookings)
		adminGroup.GET("/bookings/export", adminHandler.ExportBookings)
		adminGroup.PUT("/bookings/:id/status", adminHandler.UpdateBookingStatus)
		adminGroup.DELETE("/bookings/:id", adminHandler.DeleteBooking)

		// User Management
		adminGroup.GET("/users", adminHandler.ListUsers)
		adminGroup.PUT("/users/:id/role", adminHandler.UpdateUserRole)
		adminGroup.DELETE("/users/:id", adminHandler.DeleteUser)

		// Review Moderation
		adminGroup.GET("/reviews", adminHandler.ListReviews)
		adminGroup.DELETE("/reviews/:id", adminHandler.DeleteReview)
	}
}
