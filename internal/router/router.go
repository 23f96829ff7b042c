// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/trade-registry/internal/config"
	"github.com/javajoker/trade-registry/internal/events"
	"github.com/javajoker/trade-registry/internal/handlers"
	"github.com/javajoker/trade-registry/internal/metrics"
	"github.com/javajoker/trade-registry/internal/middleware"
	"github.com/javajoker/trade-registry/internal/models"
	"github.com/javajoker/trade-registry/internal/services"
	"github.com/javajoker/trade-registry/internal/utils"
	"github.com/javajoker/trade-registry/internal/workflow"
)

// Dependencies are the long-lived components built by cmd/server.
type Dependencies struct {
	DB                  *gorm.DB
	Config              *config.Config
	Logger              logrus.FieldLogger
	Engine              *workflow.Engine
	Hub                 *events.Hub
	Metrics             *metrics.Metrics
	Gatherer            prometheus.Gatherer
	NotificationService *services.NotificationService
}

func Initialize(deps Dependencies) (*gin.Engine, error) {
	db, cfg := deps.DB, deps.Config

	// Initialize services
	storageService, err := services.NewStorageService(cfg)
	if err != nil {
		return nil, err
	}
	authService := services.NewAuthService(db, cfg)
	userService := services.NewUserService(db)
	requestService := services.NewRequestService(db)
	lookupService := services.NewLookupService(db)
	paymentService := services.NewPaymentService(db, cfg, deps.Engine)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	requestHandler := handlers.NewRequestHandler(deps.Engine, requestService, storageService)
	lookupHandler := handlers.NewLookupHandler(lookupService)
	notificationHandler := handlers.NewNotificationHandler(deps.NotificationService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	streamHandler := handlers.NewStreamHandler(deps.Hub, deps.Metrics.StreamClients)

	utils.SetJWTSecret(cfg.JWT.SecretKey)

	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.CORS(cfg.Frontend.BaseURL))
	r.Use(middleware.I18nMiddleware())
	r.Use(middleware.GeneralRateLimit())
	r.Use(middleware.AuditLogMiddleware(db, deps.Logger))

	r.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		dbStatus := "up"
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			status = http.StatusServiceUnavailable
			dbStatus = "down"
		}
		c.JSON(status, gin.H{
			"status":      http.StatusText(status),
			"database":    dbStatus,
			"subscribers": deps.Hub.Subscribers(),
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))

	v1 := r.Group("/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/login", middleware.AuthRateLimit(), authHandler.Login)
			auth.POST("/refresh", middleware.AuthRateLimit(), authHandler.RefreshToken)
			auth.GET("/me", middleware.AuthRequired(), authHandler.Me)
			auth.PUT("/password", middleware.AuthRequired(), userHandler.ChangePassword)
		}

		protected := v1.Group("")
		protected.Use(middleware.AuthRequired())

		lookups := protected.Group("/lookups")
		{
			lookups.GET("/statuses", lookupHandler.Statuses)
			lookups.GET("/provinces", lookupHandler.Provinces)
			lookups.GET("/company-types", lookupHandler.CompanyTypes)
			lookups.GET("/business-purposes", lookupHandler.BusinessPurposes)
		}

		requests := protected.Group("/requests")
		{
			requests.POST("",
				middleware.RolesRequired(models.RoleAdmin, models.RoleProvinceAdmin, models.RoleProvinceEmployee),
				requestHandler.Submit)
			requests.GET("", requestHandler.List)
			requests.GET("/available", requestHandler.ListAvailable)
			requests.GET("/:id", requestHandler.Get)
			requests.GET("/:id/actions", requestHandler.AvailableActions)
			requests.GET("/:id/name-check", requestHandler.NameCheck)
			requests.GET("/:id/documents/preview", requestHandler.PreviewDocument)

			requests.POST("/:id/claim", requestHandler.Claim)
			requests.POST("/:id/release", requestHandler.Release)
			requests.POST("/:id/request-payment", requestHandler.RequestPayment)
			requests.POST("/:id/forward-ip", requestHandler.ForwardToIP)
			requests.POST("/:id/ip-report", requestHandler.SubmitIPReport)
			requests.POST("/:id/forward-director", requestHandler.ForwardToDirector)
			requests.POST("/:id/escalate", requestHandler.Escalate)
			requests.POST("/:id/leadership-response", requestHandler.LeadershipResponse)
			requests.POST("/:id/accept", requestHandler.Accept)
			requests.POST("/:id/reject", requestHandler.Reject)

			reservation := requests.Group("/:id/reservation")
			{
				reservation.POST("/grant", requestHandler.GrantReservation)
				reservation.POST("/finalize", requestHandler.FinalizeReservation)
				reservation.POST("/cancel", requestHandler.CancelReservation)
				reservation.POST("/strike-off", requestHandler.StrikeOff)
			}
		}

		protected.POST("/uploads", requestHandler.Upload)

		invoices := protected.Group("/invoices")
		{
			invoices.GET("/:id", paymentHandler.GetInvoice)
			invoices.POST("/:id/payment-intent", paymentHandler.CreatePaymentIntent)
			invoices.POST("/:id/confirm", paymentHandler.ConfirmPayment)
			invoices.POST("/:id/receipt", paymentHandler.RecordReceipt)
		}

		notifications := protected.Group("/notifications")
		{
			notifications.GET("", notificationHandler.List)
			notifications.PUT("/read-all", notificationHandler.MarkAllRead)
			notifications.PUT("/:id/read", notificationHandler.MarkRead)
		}

		protected.GET("/stream", streamHandler.Stream)

		users := protected.Group("/users")
		users.Use(middleware.AdminRequired())
		{
			users.GET("", userHandler.List)
			users.POST("", userHandler.Create)
			users.PUT("/:id/status", userHandler.UpdateStatus)
		}
	}

	return r, nil
}
