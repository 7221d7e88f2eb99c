// internal/router/router.go
package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/agrilink/agrilink-backend/internal/cache"
	"github.com/agrilink/agrilink-backend/internal/config"
	"github.com/agrilink/agrilink-backend/internal/handlers"
	"github.com/agrilink/agrilink-backend/internal/i18n"
	"github.com/agrilink/agrilink-backend/internal/llm"
	"github.com/agrilink/agrilink-backend/internal/middleware"
	"github.com/agrilink/agrilink-backend/internal/oauth"
	"github.com/agrilink/agrilink-backend/internal/services"
	"github.com/agrilink/agrilink-backend/internal/utils"
)

// Dependencies carries the outbound clients built by the caller. Any of them
// may be nil; the features that need them then answer ServiceUnavailable.
type Dependencies struct {
	Storage *services.StorageService
	Cache   cache.Cache
	LLM     llm.Client
	Google  oauth.GoogleVerifier
	Payment services.PaymentGateway
}

// Initialize wires services, handlers and routes. The returned func stops
// the rate limiter janitors.
func Initialize(db *gorm.DB, cfg *config.Config, deps Dependencies) (*gin.Engine, func()) {
	// Initialize services
	notificationService := services.NewNotificationService(cfg)
	authService := services.NewAuthService(db, cfg, deps.Google, notificationService)
	userService := services.NewUserService(db, deps.Storage)
	loanService := services.NewLoanService(db, notificationService)
	repaymentService := services.NewRepaymentService(db, deps.Payment, loanService)
	productService := services.NewProductService(db)
	advisorService := services.NewAdvisorService(deps.LLM, time.Duration(cfg.LLM.TimeoutSeconds)*time.Second)
	weatherService := services.NewWeatherService(cfg.Weather, deps.Cache)
	adminService := services.NewAdminService(db)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	loanHandler := handlers.NewLoanHandler(loanService, deps.Storage)
	repaymentHandler := handlers.NewRepaymentHandler(repaymentService)
	productHandler := handlers.NewProductHandler(productService, deps.Storage)
	advisorHandler := handlers.NewAdvisorHandler(advisorService)
	weatherHandler := handlers.NewWeatherHandler(weatherService)
	adminHandler := handlers.NewAdminHandler(adminService, loanService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)
	utils.SetExposeErrorDetails(cfg.IsDevelopment())

	limiters := middleware.NewRateLimiters(cfg.RateLimit)

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Frontend.AllowedOrigins))
	r.Use(middleware.I18nMiddleware(cfg.I18n.DefaultLocale))

	if deps.Storage != nil && deps.Storage.IsLocal() {
		r.Static("/uploads", cfg.Storage.LocalDir)
	}

	api := r.Group("/api")
	api.Use(limiters.General.Middleware())
	api.Use(middleware.AuditLogMiddleware(db))

	// Health check
	api.GET("/health", func(c *gin.Context) {
		utils.SuccessResponse(c, gin.H{
			"message":     i18n.T(utils.GetLangFromContext(c), i18n.KeyHealthy),
			"timestamp":   time.Now().UTC(),
			"environment": cfg.Environment,
		})
	})

	// protected routes need a valid token and a still-active account
	protected := []gin.HandlerFunc{middleware.AuthRequired(), middleware.ActiveAccount(db)}

	// Authentication routes
	auth := api.Group("/auth")
	{
		public := auth.Group("")
		public.Use(limiters.Auth.Middleware())
		{
			public.POST("/register", authHandler.Register)
			public.POST("/login", authHandler.Login)
			public.POST("/google", authHandler.GoogleLogin)
			public.POST("/refresh", authHandler.RefreshToken)
		}

		profile := auth.Group("/profile")
		profile.Use(protected...)
		{
			profile.GET("", authHandler.GetProfile)
			profile.PUT("", authHandler.UpdateProfile)
		}
	}

	// User routes
	users := api.Group("/users")
	{
		me := users.Group("/me")
		me.Use(protected...)
		{
			me.POST("/avatar", limiters.Upload.Middleware(), userHandler.UploadAvatar)
			me.DELETE("", userHandler.DeleteAccount)
		}

		users.GET("/:id", userHandler.GetPublicProfile)
	}

	// Loan routes
	loans := api.Group("/loans")
	{
		loans.POST("/calculate", loanHandler.Calculate)

		owned := loans.Group("")
		owned.Use(protected...)
		{
			owned.POST("/apply", loanHandler.ApplyForLoan)
			owned.GET("/user", loanHandler.GetUserLoans)
			owned.GET("/:id", loanHandler.GetLoan)
			owned.PUT("/:id", loanHandler.UpdateLoan)
			owned.DELETE("/:id", loanHandler.CancelLoan)
			owned.POST("/:id/documents", limiters.Upload.Middleware(), loanHandler.UploadDocument)
			owned.POST("/:id/repayments/intent", repaymentHandler.CreateIntent)
			owned.POST("/:id/repayments/confirm", repaymentHandler.ConfirmIntent)
		}
	}

	// Product routes
	products := api.Group("/products")
	{
		products.GET("", productHandler.GetProducts)
		products.GET("/categories", productHandler.GetCategories)

		owned := products.Group("")
		owned.Use(protected...)
		{
			owned.GET("/seller/me", productHandler.GetMyProducts)
			owned.POST("", productHandler.CreateProduct)
			owned.POST("/upload-images", limiters.Upload.Middleware(), productHandler.UploadProductImages)
			owned.PUT("/:id", productHandler.UpdateProduct)
			owned.DELETE("/:id", productHandler.DeleteProduct)
			owned.POST("/:id/reviews", productHandler.AddReview)
			owned.DELETE("/:id/reviews/:reviewId", productHandler.DeleteReview)
			owned.POST("/:id/favorite", productHandler.ToggleFavorite)
		}

		products.GET("/:id", productHandler.GetProduct)
		products.GET("/:id/reviews", productHandler.GetReviews)
	}

	// AI advisor routes
	ai := api.Group("/ai")
	ai.Use(protected...)
	{
		ai.POST("/crop-recommendation", advisorHandler.CropRecommendation)
		ai.POST("/planting-advice", advisorHandler.PlantingAdvice)
		ai.POST("/pest-diagnosis", advisorHandler.PestDiagnosis)
	}

	// Weather routes
	api.GET("/weather/:location", weatherHandler.GetCurrentWeather)

	// Admin routes
	admin := api.Group("/admin")
	admin.Use(protected...)
	admin.Use(middleware.AdminRequired())
	{
		admin.GET("/dashboard/stats", adminHandler.GetDashboardStats)

		adminUsers := admin.Group("/users")
		{
			adminUsers.GET("", adminHandler.GetUsers)
			adminUsers.PUT("/:id/status", adminHandler.UpdateUserStatus)
		}

		adminLoans := admin.Group("/loans")
		{
			adminLoans.GET("", adminHandler.GetLoans)
			adminLoans.PUT("/:id/approve", adminHandler.ApproveLoan)
			adminLoans.PUT("/:id/reject", adminHandler.RejectLoan)
			adminLoans.PUT("/:id/disburse", adminHandler.DisburseLoan)
			adminLoans.PUT("/:id/default", adminHandler.MarkDefault)
			adminLoans.POST("/:id/payments", adminHandler.RecordPayment)
			adminLoans.POST("/:id/notes", adminHandler.AddNote)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		utils.NotFoundResponse(c, i18n.KeyRouteNotFound)
	})

	return r, limiters.Stop
}
