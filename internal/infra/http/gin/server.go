package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"shortlet/internal/infra/config"
	"shortlet/internal/infra/obs"
)

type Handlers struct {
	Auth           AuthHTTP
	Listing        ListingHTTP
	Realtor        RealtorHTTP
	Booking        BookingHTTP
	Payment        PaymentHTTP
	Me             MeHTTP
	Admin          AdminHTTP
	AuthMiddleware gin.HandlerFunc
	Metrics        http.Handler
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg, obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)
	if h.Metrics != nil {
		router.GET("/metrics", gin.WrapH(h.Metrics))
	}

	api := router.Group("/api/v1")
	if h.Auth != nil {
		api.POST("/auth/register", h.Auth.Register)
		api.POST("/auth/login", h.Auth.Login)
		api.POST("/auth/logout", h.Auth.Logout)
		api.GET("/auth/me", h.Auth.Me)
	}
	if h.Listing != nil {
		api.GET("/listings", h.Listing.Search)
		api.GET("/listings/:id", h.Listing.Get)
		api.GET("/listings/:id/quote", h.Listing.Quote)
		api.GET("/listings/:id/reviews", h.Listing.Reviews)
	}
	if h.Realtor != nil {
		realtor := api.Group("/realtor")
		realtor.POST("/listings", h.Realtor.CreateListing)
		realtor.POST("/listings/:id/publish", h.Realtor.PublishListing)
		realtor.GET("/bookings", h.Realtor.Bookings)
		realtor.GET("/wallet", h.Realtor.Wallet)
		realtor.GET("/payouts", h.Realtor.Payouts)
		realtor.POST("/payouts", h.Realtor.RequestPayout)
	}
	if h.Booking != nil {
		bookings := api.Group("/bookings")
		bookings.POST("", h.Booking.Create)
		bookings.GET("/:id", h.Booking.Get)
		bookings.POST("/:id/cancel", h.Booking.Cancel)
		bookings.POST("/:id/checkin", h.Booking.CheckIn)
		bookings.POST("/:id/checkout", h.Booking.CheckOut)
		bookings.POST("/:id/disputes", h.Booking.OpenDispute)
		bookings.POST("/:id/reviews", h.Booking.Review)
		bookings.PATCH("/:id/reviews", h.Booking.EditReview)
		bookings.POST("/:id/payments", h.Booking.InitializePayment)
	}
	if h.Payment != nil {
		api.GET("/payments/:reference/verify", h.Payment.Verify)
		api.POST("/payments/webhook", h.Payment.Webhook)
	}
	if h.Me != nil {
		api.GET("/me/bookings", h.Me.ListBookings)
	}
	if h.Admin != nil {
		admin := api.Group("/admin")
		admin.GET("/bookings", h.Admin.Bookings)
		admin.GET("/disputes", h.Admin.Disputes)
		admin.GET("/stats", h.Admin.Stats)
		admin.POST("/disputes/:id/resolve", h.Admin.ResolveDispute)
		admin.POST("/bookings/:id/refund", h.Admin.RefundBooking)
		admin.POST("/listings/:id/suspend", h.Admin.SuspendListing)
		admin.POST("/users/:id/block", h.Admin.BlockUser)
		admin.POST("/escrows/:id/release", h.Admin.ReleaseEscrow)
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
