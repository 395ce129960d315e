// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/arborvest/arbor-backend/internal/config"
	"github.com/arborvest/arbor-backend/internal/handlers"
	"github.com/arborvest/arbor-backend/internal/middleware"
	"github.com/arborvest/arbor-backend/internal/services"
	"github.com/arborvest/arbor-backend/internal/utils"
)

func Initialize(db *gorm.DB, cfg *config.Config) *gin.Engine {
	// Initialize services
	notificationService := services.NewNotificationService(db, cfg)
	var certificates services.CertificateStore
	if storageService, err := services.NewStorageService(cfg); err != nil {
		logrus.WithError(err).Warn("Certificate storage unavailable, continuing without it")
	} else {
		certificates = storageService
	}

	auditService := services.NewAuditService(db)
	fraudService := services.NewFraudService(db, cfg)
	userService := services.NewUserService(db)
	treeService := services.NewTreeService(db)
	gateway := services.NewStripeGateway(cfg)

	authService := services.NewAuthService(db, cfg)
	investmentService := services.NewInvestmentService(db, cfg, gateway, fraudService, auditService, userService, treeService, notificationService)
	webhookService := services.NewWebhookService(db, cfg, investmentService, auditService, notificationService, certificates)
	adminService := services.NewAdminService(db, fraudService, auditService, notificationService)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	treeHandler := handlers.NewTreeHandler(treeService)
	investmentHandler := handlers.NewInvestmentHandler(investmentService)
	webhookHandler := handlers.NewWebhookHandler(cfg, webhookService)
	adminHandler := handlers.NewAdminHandler(adminService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS())
	r.Use(middleware.I18nMiddleware())
	r.Use(middleware.GeneralRateLimit())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// Gateway callbacks sit outside /v1: no auth, signature-verified.
	webhooks := r.Group("/webhooks")
	webhooks.Use(middleware.WebhookRateLimit())
	{
		webhooks.POST("/stripe", webhookHandler.HandleStripeWebhook)
	}

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", middleware.AuthRequired(), authHandler.Logout)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.GET("/verify-email/:token", authHandler.VerifyEmail)
			auth.GET("/me", middleware.AuthRequired(), authHandler.GetProfile)
		}

		// User routes
		users := v1.Group("/users")
		users.Use(middleware.AuthRequired())
		{
			users.GET("/me/eligibility", userHandler.GetEligibility)
			users.PUT("/profile", userHandler.UpdateProfile)
		}

		// Tree catalog (public)
		trees := v1.Group("/trees")
		{
			trees.GET("", treeHandler.GetTrees)
			trees.GET("/:id", treeHandler.GetTree)
			trees.GET("/:id/bounds", treeHandler.GetInvestmentBounds)
		}

		// Investment lifecycle routes
		investments := v1.Group("/investments")
		investments.Use(middleware.AuthRequired())
		{
			investments.POST("", investmentHandler.InitiatePurchase)
			investments.GET("", investmentHandler.GetInvestments)
			investments.GET("/:id", investmentHandler.GetInvestment)
			investments.POST("/:id/confirm", investmentHandler.ConfirmPurchase)
			investments.POST("/:id/cancel", investmentHandler.CancelPurchase)
			investments.POST("/:id/topup", investmentHandler.TopUp)
		}

		// Payment routes
		payments := v1.Group("/payments")
		payments.Use(middleware.AuthRequired())
		{
			payments.GET("/history", investmentHandler.GetPaymentHistory)
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			admin.GET("/dashboard", adminHandler.GetDashboard)

			adminUsers := admin.Group("/users")
			{
				adminUsers.GET("", adminHandler.GetUsers)
				adminUsers.PUT("/:id/status", adminHandler.UpdateUserStatus)
				adminUsers.PUT("/:id/verification", adminHandler.SetVerificationLevel)
			}

			adminInvestments := admin.Group("/investments")
			{
				adminInvestments.POST("/:id/mature", adminHandler.MarkInvestmentMatured)
				adminInvestments.POST("/:id/sell", adminHandler.MarkInvestmentSold)
			}

			admin.GET("/transactions", adminHandler.GetTransactions)

			adminFraud := admin.Group("/fraud-alerts")
			{
				adminFraud.GET("", adminHandler.GetFraudAlerts)
				adminFraud.POST("/:id/resolve", adminHandler.ResolveFraudAlert)
			}

			admin.GET("/audit-logs", adminHandler.GetAuditLogs)
		}
	}

	return r
}
