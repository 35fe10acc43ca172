package router

import (
	"strings"
	"time"

	"github.com/onegreenvn/stockplus-backend/internal/config"
	"github.com/onegreenvn/stockplus-backend/internal/handlers"
	"github.com/onegreenvn/stockplus-backend/internal/middleware"
	"github.com/onegreenvn/stockplus-backend/internal/services"
	"github.com/onegreenvn/stockplus-backend/internal/services/auth"
	"github.com/onegreenvn/stockplus-backend/internal/services/excel"
	"github.com/onegreenvn/stockplus-backend/internal/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// registerValidators adds the custom binding rules used by the request models
func registerValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	err := v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return utils.IsPhone(fl.Field().String())
	})
	if err != nil {
		logrus.Warnf("Failed to register phone validator: %v", err)
	}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "*" {
			cfg.AllowAllOrigins = true
			cfg.AllowOrigins = nil
			return cfg
		}
		if origin != "" {
			cfg.AllowOrigins = append(cfg.AllowOrigins, origin)
		}
	}
	if len(cfg.AllowOrigins) == 0 {
		cfg.AllowAllOrigins = true
	}
	return cfg
}

// SetupRouter wires services, handlers and routes. otpService carries the configured
// notifier so OTP delivery is decided by the caller.
func SetupRouter(cfg *config.Config, db *gorm.DB, otpService *services.OTPService) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	registerValidators()

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	// Create services
	authService := auth.NewAuthService(db, cfg.JWT)
	userService := services.NewUserService(db, otpService, authService, cfg.StaffQuota)
	catalogService := services.NewCatalogService(db)
	stockService := services.NewStockService(db)
	saleService := services.NewSaleService(db)
	reportService := services.NewReportService(db)
	excelService := excel.NewExcelService(cfg.ExportsDir, cfg.ShopName)

	bearerTokenMiddleware := middleware.NewBearerTokenMiddleware(authService, db)

	// Create handlers with services
	authHandler := handlers.NewAuthHandler(authService, userService)
	accountHandler := handlers.NewAccountHandler(userService)
	profileHandler := handlers.NewProfileHandler(userService)
	adminHandler := handlers.NewAdminHandler(userService)
	catalogHandler := handlers.NewCatalogHandler(catalogService)
	stockHandler := handlers.NewStockHandler(stockService)
	saleHandler := handlers.NewSaleHandler(saleService)
	reportHandler := handlers.NewReportHandler(reportService, excelService)

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API v1 routes
	api := r.Group("/api/v1")
	{
		// Health check
		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status": "ok",
				"time":   time.Now().Format(time.RFC3339),
			})
		})

		// Auth routes (public)
		authPublic := api.Group("/auth")
		{
			authPublic.POST("/login", authHandler.Login)
			authPublic.POST("/refresh", authHandler.RefreshToken)
			authPublic.POST("/check-username", authHandler.CheckUsername)
		}

		signup := api.Group("/signup")
		{
			signup.POST("/send-otp", accountHandler.SignupSendOTP)
			signup.POST("/verify-otp", accountHandler.SignupVerifyOTP)
			signup.POST("/complete", accountHandler.CompleteSignup)
		}

		forgot := api.Group("/forgot-password")
		{
			forgot.POST("/send-otp", accountHandler.ForgotPasswordSendOTP)
			forgot.POST("/verify-otp", accountHandler.ForgotPasswordVerifyOTP)
			forgot.POST("/reset", accountHandler.ResetPassword)
		}

		api.POST("/superuser/create", accountHandler.CreateFirstSuperuser)

		// Protected routes
		protected := api.Group("")
		protected.Use(bearerTokenMiddleware.BearerTokenAuthMiddleware())
		{
			authProtected := protected.Group("/auth")
			{
				authProtected.POST("/logout", authHandler.Logout)
				authProtected.POST("/change-password", authHandler.ChangePassword)
				authProtected.GET("/profile", profileHandler.GetProfile)
				authProtected.PATCH("/profile", profileHandler.UpdateProfile)
				authProtected.POST("/fcm-token", profileHandler.UpdateFCMToken)
				authProtected.GET("/dashboard", profileHandler.Dashboard)
				authProtected.GET("/recovery-contacts", profileHandler.ListRecoveryContacts)
				authProtected.POST("/recovery-contacts", profileHandler.AddRecoveryContact)
				authProtected.POST("/recovery-contacts/verify", profileHandler.VerifyRecoveryContact)
			}

			admins := protected.Group("/admins")
			{
				admins.POST("", adminHandler.CreateAdmin)
				admins.GET("", adminHandler.ListAdmins)
			}

			staff := protected.Group("/staff")
			{
				staff.POST("", adminHandler.CreateStaff)
				staff.GET("", adminHandler.ListStaff)
				staff.PATCH("/:id", adminHandler.UpdateStaff)
				staff.POST("/:id/activate", adminHandler.ActivateStaff)
				staff.POST("/:id/deactivate", adminHandler.DeactivateStaff)
			}

			locations := protected.Group("/locations")
			{
				locations.GET("", catalogHandler.ListLocations)
				locations.POST("", catalogHandler.CreateLocation)
				locations.PUT("/:id", catalogHandler.UpdateLocation)
				locations.DELETE("/:id", catalogHandler.DeleteLocation)
			}

			categories := protected.Group("/categories")
			{
				categories.GET("", catalogHandler.ListCategories)
				categories.POST("", catalogHandler.CreateCategory)
				categories.GET("/:id", catalogHandler.GetCategory)
				categories.PUT("/:id", catalogHandler.UpdateCategory)
				categories.DELETE("/:id", catalogHandler.DeleteCategory)
			}

			groups := protected.Group("/product-groups")
			{
				groups.GET("", catalogHandler.ListGroups)
				groups.POST("", catalogHandler.CreateGroup)
				groups.GET("/:id", catalogHandler.GetGroup)
				groups.PUT("/:id", catalogHandler.UpdateGroup)
				groups.DELETE("/:id", catalogHandler.DeleteGroup)
			}

			subGroups := protected.Group("/product-subgroups")
			{
				subGroups.GET("", catalogHandler.ListSubGroups)
				subGroups.POST("", catalogHandler.CreateSubGroup)
				subGroups.DELETE("/:id", catalogHandler.DeleteSubGroup)
			}

			batches := protected.Group("/stock-batches")
			{
				batches.POST("", stockHandler.ReceiveBatch)
				batches.GET("", stockHandler.ListBatches)
				batches.GET("/:id", stockHandler.GetBatch)
				batches.DELETE("/:id", stockHandler.DeleteBatch)
			}

			units := protected.Group("/units")
			{
				units.GET("/lookup", stockHandler.LookupUnit)
				units.GET("/:code/barcode.png", stockHandler.UnitBarcode)
			}

			sales := protected.Group("/sales")
			{
				sales.POST("", saleHandler.CreateSale)
				sales.GET("", saleHandler.ListSales)
				sales.GET("/bill", saleHandler.GetByBillNo)
			}

			reports := protected.Group("/reports")
			{
				reports.GET("/dashboard", reportHandler.Dashboard)
				reports.GET("/detailed", reportHandler.DetailedReport)
				reports.GET("/detailed/export", reportHandler.ExportReport)
			}
		}
	}

	return r
}
