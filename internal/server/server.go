package server

import (
	"ai-build-shop/internal/config"
	"ai-build-shop/internal/handler"
	mw "ai-build-shop/internal/middleware"
	"ai-build-shop/internal/service"
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Services are the application services the HTTP layer depends on.
type Services struct {
	Auth      service.AuthService
	Catalog   service.CatalogService
	Checkout  service.CheckoutService
	Reconcile service.ReconcileService
	Order     service.OrderService
}

type Server struct {
	echo           *echo.Echo
	log            *zap.Logger
	cfg            *config.Config
	auth           service.AuthService
	paymentHandler *handler.PaymentHandler
	userHandler    *handler.UserHandler
	orderHandler   *handler.OrderHandler
	catalogHandler *handler.CatalogHandler
}

func NewServer(cfg *config.Config, services *Services, log *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.NewHTTPErrorHandler(log)
	e.Validator = handler.NewValidator()
	e.IPExtractor = echo.ExtractIPFromXFFHeader()

	s := &Server{
		echo:           e,
		log:            log,
		cfg:            cfg,
		auth:           services.Auth,
		paymentHandler: handler.NewPaymentHandler(services.Checkout, services.Reconcile),
		userHandler:    handler.NewUserHandler(services.Auth, cfg.Auth.CookieName, cfg.Environment.IsProduction()),
		orderHandler:   handler.NewOrderHandler(services.Order),
		catalogHandler: handler.NewCatalogHandler(services.Catalog),
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	skipInfra := func(c echo.Context) bool {
		p := c.Request().URL.Path
		return p == "/metrics" || p == "/api/health"
	}

	s.echo.Use(middleware.RequestID())
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper:      skipInfra,
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("path", v.URIPath),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
				zap.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				s.log.Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			s.log.Info("request", fields...)
			return nil
		},
	}))
	s.echo.Use(mw.Metrics())
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.BodyLimit("1M"))
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{appOrigin(s.cfg.BaseURL)},
		AllowMethods:     []string{http.MethodGet, http.MethodPost},
		AllowHeaders:     []string{echo.HeaderContentType},
		AllowCredentials: true,
	}))
	s.echo.Use(mw.LoadSession(s.auth, s.cfg.Auth.CookieName, s.log))
}

func (s *Server) setupRoutes() {
	authLimiter := middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(s.cfg.RateLimit.AuthPerSecond)))
	checkoutLimiter := middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(s.cfg.RateLimit.CheckoutPerSecond)))

	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// -------- auth --------
	auth := api.Group("/auth", authLimiter)
	auth.POST("/register", s.userHandler.Register)
	auth.POST("/login", s.userHandler.Login)
	auth.POST("/logout", s.userHandler.Logout)
	auth.GET("/me", s.userHandler.Me, mw.RequireAuth())

	// -------- catalog --------
	api.GET("/catalog/:type", s.catalogHandler.List)
	api.GET("/catalog/:type/:id", s.catalogHandler.Get)

	// -------- payments --------
	payments := api.Group("/payments")
	payments.POST("/checkout", s.paymentHandler.Checkout, mw.RequireAuth(), checkoutLimiter)
	payments.GET("/session-status", s.paymentHandler.SessionStatus, mw.RequireAuth())
	payments.POST("/webhook", s.paymentHandler.Webhook)

	// -------- orders --------
	api.GET("/orders", s.orderHandler.ListMine, mw.RequireAuth())
	api.GET("/admin/orders", s.orderHandler.ListAll, mw.RequireAdmin())

	// -------- gateway redirects --------
	s.echo.GET("/checkout/success", s.paymentHandler.HandleSuccess)
	s.echo.GET("/checkout/cancel", s.paymentHandler.HandleCancel)
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ServeHTTP lets tests drive the full middleware stack.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func appOrigin(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return strings.TrimRight(baseURL, "/")
	}
	return u.Scheme + "://" + u.Host
}
