package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"parking_allocator/internal/api/handler"
	"parking_allocator/internal/api/middleware"
	"parking_allocator/internal/domain"
	"parking_allocator/internal/metrics"
	"parking_allocator/internal/service"
)

// Services groups what the router exposes. LPR, Idempotency and DB may be nil.
type Services struct {
	Auth         *service.AuthService
	Parking      *service.ParkingService
	Reservations *service.ReservationService
	Users        *service.UserService
	Reports      *service.ReportService
	LPR          *service.LPRService
	Idempotency  middleware.KeyClaimer
	DB           handler.Pinger
}

func SetupRouter(s Services, authMw *middleware.AuthMiddleware, limiter *middleware.RateLimiter,
	wsManager *handler.WebSocketManager, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(metrics.Middleware())

	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID, Idempotency-Key")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	healthH := handler.NewHealthHandler(s.DB)
	r.GET("/health", healthH.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	if wsManager != nil {
		wsHandler := handler.NewWebSocketHandler(wsManager)
		r.GET("/ws", authMw.Authenticate(), wsHandler.HandleWebSocket)
	}

	authHandler := handler.NewAuthHandler(s.Auth)
	authRoutes := r.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
	}

	v1 := r.Group("/api/v1")
	v1.Use(authMw.Authenticate())
	{
		lotH := handler.NewParkingLotHandler(s.Parking)
		lotRoutes := v1.Group("/parking-lots")
		{
			lotRoutes.POST("", authMw.AuthorizeRole(domain.RoleAdmin), lotH.CreateParkingLot)
			lotRoutes.GET("", lotH.GetAllParkingLots)
			lotRoutes.GET("/:id", lotH.GetParkingLotByID)
			lotRoutes.PUT("/:id", authMw.AuthorizeRole(domain.RoleAdmin), lotH.UpdateParkingLot)
			lotRoutes.DELETE("/:id", authMw.AuthorizeRole(domain.RoleAdmin), lotH.DeleteParkingLot)
			lotRoutes.GET("/:id/spots", lotH.GetLotAvailability)
			lotRoutes.GET("/:id/next-spot", lotH.NextAvailableSpot)
		}

		spotH := handler.NewParkingSpotHandler(s.Parking)
		v1.DELETE("/parking-spots/:spot_id", authMw.AuthorizeRole(domain.RoleAdmin), spotH.DeleteParkingSpot)

		reservationH := handler.NewReservationHandler(s.Reservations)
		reservationRoutes := v1.Group("/reservations")
		{
			booking := []gin.HandlerFunc{}
			if limiter != nil {
				booking = append(booking, limiter.Limit())
			}
			if s.Idempotency != nil {
				booking = append(booking, middleware.Idempotency(s.Idempotency))
			}
			booking = append(booking, reservationH.OpenReservation)

			reservationRoutes.POST("", booking...)
			reservationRoutes.GET("", reservationH.ListReservations)
			reservationRoutes.GET("/:id", reservationH.GetReservation)
			reservationRoutes.GET("/:id/quote", reservationH.QuoteRelease)
			reservationRoutes.POST("/:id/release", reservationH.CloseReservation)
		}

		userH := handler.NewUserHandler(s.Users)
		userRoutes := v1.Group("/users")
		userRoutes.Use(authMw.AuthorizeRole(domain.RoleAdmin))
		{
			userRoutes.GET("", userH.ListUsers)
			userRoutes.DELETE("/:id", userH.DeleteUser)
		}
		v1.GET("/profile", userH.GetProfile)
		v1.PUT("/profile", userH.UpdateProfile)

		reportH := handler.NewReportHandler(s.Reports)
		reportRoutes := v1.Group("/reports")
		{
			reportRoutes.GET("/lots", reportH.LotStats)
			reportRoutes.GET("/users", reportH.UserStats)
		}

		if s.LPR != nil {
			lprH := handler.NewLPRHandler(s.LPR)
			v1.POST("/lpr/vehicle-number", lprH.ReadVehicleNumber)
		}
	}
	return r
}
