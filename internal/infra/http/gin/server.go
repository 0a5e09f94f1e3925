package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"staysync/internal/infra/config"
	"staysync/internal/infra/obs"
)

type BookingHTTP interface {
	Reserve(c *gin.Context)
	ChangeStatus(c *gin.Context)
	Quote(c *gin.Context)
	Settlement(c *gin.Context)
	ListMine(c *gin.Context)
}

type AvailabilityHTTP interface {
	Check(c *gin.Context)
}

type SyncHTTP interface {
	Connect(c *gin.Context)
}

type Handlers struct {
	Booking      BookingHTTP
	Availability AvailabilityHTTP
	Sync         SyncHTTP
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept", "Idempotency-Key",
			"X-Identity", "X-Role", "X-Owned-Properties",
		},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))
	router.Use(IdentityMiddleware{}.Handle)

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Booking != nil {
		api.POST("/bookings", h.Booking.Reserve)
		api.PATCH("/bookings/:id/status", h.Booking.ChangeStatus)
		api.GET("/bookings/:id/settlement", h.Booking.Settlement)
		api.GET("/me/bookings", h.Booking.ListMine)
		api.GET("/properties/:id/quote", h.Booking.Quote)
	}
	if h.Availability != nil {
		api.GET("/properties/:id/availability", h.Availability.Check)
	}
	if h.Sync != nil {
		api.GET("/sync", h.Sync.Connect)
	}

	return &http.Server{Addr: cfg.HTTPAddr, Handler: router}
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
