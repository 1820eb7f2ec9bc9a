package app

import (
	"net/http"

	"pgstay/internal/domain"
	"pgstay/internal/metrics"
	"pgstay/internal/middleware"
	"pgstay/internal/modules/agreement"
	"pgstay/internal/modules/booking"
	"pgstay/internal/modules/identity"
	"pgstay/internal/modules/notification"
	"pgstay/internal/modules/payment"
	"pgstay/internal/modules/settlement"
	"pgstay/internal/modules/tenancy"
	"pgstay/internal/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Router builds the HTTP surface under /api/v1.
func (a *App) Router() *gin.Engine {
	prod := a.Config.IsProduction()
	if prod {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestLogger(logger.Component(a.Log, "http")))
	r.Use(middleware.CORS(a.Config.CORSAllowedOrigins))
	r.Use(metrics.Middleware())

	r.GET("/healthz", a.health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	identityHandler := identity.NewHandler(a.Identity, prod)
	bookingHandler := booking.NewHandler(a.Bookings, prod)
	tenancyHandler := tenancy.NewHandler(a.Tenancies, prod)
	agreementHandler := agreement.NewHandler(a.Agreements, prod)
	paymentHandler := payment.NewHandler(a.Payments, prod, logger.Component(a.Log, "payment"))
	settlementHandler := settlement.NewHandler(a.Settlements, prod)
	notificationHandler := notification.NewHandler(a.Notifications, a.Hub, a.Config.CORSAllowedOrigins, prod, logger.Component(a.Log, "notification"))

	v1 := r.Group("/api/v1")
	{
		paymentHandler.RegisterPublicRoutes(v1)
		agreementHandler.RegisterPublicRoutes(v1)

		protected := v1.Group("")
		protected.Use(middleware.Auth(a.Identity))
		{
			identityHandler.RegisterRoutes(protected)
			bookingHandler.RegisterRoutes(protected)
			tenancyHandler.RegisterTenantRoutes(protected)
			agreementHandler.RegisterProtectedRoutes(protected)
			paymentHandler.RegisterProtectedRoutes(protected)
			notificationHandler.RegisterRoutes(protected)

			owner := protected.Group("/owner")
			owner.Use(middleware.RequireRole(domain.RoleOwner))
			bookingHandler.RegisterOwnerRoutes(owner)
			tenancyHandler.RegisterOwnerRoutes(owner)
			settlementHandler.RegisterOwnerRoutes(owner)

			admin := protected.Group("/admin")
			admin.Use(middleware.AdminOnly())
			settlementHandler.RegisterAdminRoutes(admin)
			identityHandler.RegisterAdminRoutes(admin)
			agreementHandler.RegisterAdminRoutes(admin)
		}
	}
	return r
}

func (a *App) health(c *gin.Context) {
	sqlDB, err := a.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "down"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "up"})
}
