// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"errors"
	"strings"
	"time"

	"github.com/amirphl/smm-panel/app/dto"
	"github.com/amirphl/smm-panel/app/handlers"
	"github.com/amirphl/smm-panel/app/middleware"
	"github.com/amirphl/smm-panel/config"
	"github.com/amirphl/smm-panel/docs"
	"github.com/amirphl/smm-panel/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cache"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/xid"
	"go.uber.org/zap"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	Shutdown(timeout time.Duration) error
	GetApp() *fiber.App
}

// Handlers groups every handler the router mounts
type Handlers struct {
	Auth         *handlers.AuthHandler
	Wallet       *handlers.WalletHandler
	Deposit      *handlers.DepositHandler
	AdminDeposit *handlers.AdminDepositHandler
	Withdrawal   *handlers.WithdrawalHandler
	Referral     *handlers.ReferralHandler
	Order        *handlers.OrderHandler
	Events       *handlers.EventsHandler
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app      *fiber.App
	handlers Handlers
	auth     *middleware.AuthMiddleware
	cfg      *config.ProductionConfig
	logger   *zap.Logger
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(h Handlers, auth *middleware.AuthMiddleware, cfg *config.ProductionConfig, zl *zap.Logger) Router {
	if zl == nil {
		zl = zap.NewNop()
	}
	bodyLimit := cfg.Server.BodyLimit
	// multipart overhead on top of the largest proof upload
	if floor := cfg.Deposit.MaxProofSize + 1024*1024; bodyLimit < floor {
		bodyLimit = floor
	}

	r := &FiberRouter{handlers: h, auth: auth, cfg: cfg, logger: zl}
	r.app = fiber.New(fiber.Config{
		AppName:      "SMM Panel API",
		ServerHeader: "smm-panel",
		ErrorHandler: r.errorHandler,
		BodyLimit:    bodyLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ProxyHeader:  cfg.Server.ProxyHeader,
		TrustProxy:   len(cfg.Server.TrustedProxies) > 0,
		TrustProxyConfig: fiber.TrustProxyConfig{
			Proxies: cfg.Server.TrustedProxies,
		},
	})
	return r
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	h := r.handlers
	r.setupMiddleware()

	r.app.Get("/health", r.healthCheck)
	if r.cfg.Metrics.Enabled {
		path := r.cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.app.Get(path, adaptor.HTTPHandler(promhttp.Handler()))
	}
	if env := r.cfg.Deployment.Environment; env == "development" || env == "local" {
		r.app.Get("/swagger", r.serveSwaggerUI)
		r.app.Get("/swagger.json", r.serveSwaggerJSON)
	}

	// provider callbacks are authenticated by signature, not by token
	r.app.Post("/cryptomus-webhook", h.Deposit.CryptomusWebhook)

	global := r.rateLimiter(r.cfg.Security.GlobalRateLimit, 2000)
	user := r.auth.Authenticate()
	admin := r.auth.AdminAuthenticate()

	// legacy top-level paths kept for existing clients
	r.app.Post("/deposit/bank", global, user, h.Deposit.BankDeposit)
	r.app.Post("/create-cryptomus-payment", global, user, h.Deposit.CreateCryptomusPayment)
	r.app.Post("/withdraw", global, user, h.Withdrawal.Withdraw)

	adm := r.app.Group("/admin", global, admin)
	adm.Get("/deposits", h.AdminDeposit.List)
	adm.Get("/deposits/export", h.AdminDeposit.Export)
	adm.Get("/deposits/:id/proof", h.AdminDeposit.Proof)
	adm.Post("/deposits/:id/approve", h.AdminDeposit.Approve)
	adm.Post("/deposits/:id/reject", h.AdminDeposit.Reject)
	adm.Get("/withdrawals", h.Withdrawal.AdminList)
	adm.Get("/withdrawals/export", h.Withdrawal.Export)
	adm.Post("/withdrawals/:id/approve", h.Withdrawal.Approve)
	adm.Post("/withdrawals/:id/reject", h.Withdrawal.Reject)

	api := r.app.Group("/api/v1")
	api.Get("/health", r.healthCheck)

	authLimit := r.rateLimiter(r.cfg.Security.AuthRateLimit, 20)
	auth := api.Group("/auth", authLimit)
	auth.Post("/login", h.Auth.Login)
	auth.Post("/refresh", h.Auth.Refresh)
	auth.Post("/logout", user, h.Auth.Logout)
	api.Post("/admin/auth/login", authLimit, h.Auth.AdminLogin)

	// the stream outlives any per-minute budget
	api.Get("/events", user, h.Events.Stream)

	api.Get("/wallet", global, user, h.Wallet.Wallet)
	api.Post("/wallet/transfer", global, user, h.Wallet.Transfer)
	api.Get("/deposits", global, user, h.Deposit.ListDeposits)
	api.Get("/bank-accounts", global, user, h.Withdrawal.ListBankAccounts)
	api.Post("/bank-accounts", global, user, h.Withdrawal.AddBankAccount)
	api.Get("/withdrawals", global, user, h.Withdrawal.ListWithdrawals)
	api.Get("/referrals/summary", global, user, h.Referral.Summary)
	api.Post("/referrals/withdraw", global, user, h.Referral.Withdraw)
	api.Get("/smm/services", global, user, h.Order.SMMServices)
	api.Get("/smm/orders", global, user, h.Order.ListSMMOrders)
	api.Post("/smm/orders", global, user, h.Order.CreateSMMOrder)
	api.Get("/sms/orders", global, user, h.Order.ListSMSOrders)
	api.Post("/sms/orders", global, user, h.Order.CreateSMSOrder)
	api.Get("/products", global, user, h.Order.ListProducts)
	api.Post("/products/:id/purchase", global, user, h.Order.PurchaseProduct)

	r.app.Use(r.notFoundHandler)

	r.logger.Info("routes configured")
}

func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header:    "X-Request-ID",
		Generator: generateRequestID,
	}))

	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			r.logger.Error("panic recovered",
				zap.Any("error", e),
				zap.Any("request_id", c.Locals("requestid")),
				zap.String("path", c.Path()),
				zap.String("method", c.Method()),
				zap.String("ip", c.IP()),
				zap.Stack("stack"),
			)
		},
	}))

	r.app.Use(middleware.Metrics(r.cfg.Metrics.Path))

	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:             "1; mode=block",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             "DENY",
		HSTSMaxAge:                31536000,
		ContentSecurityPolicy:     "default-src 'self'; script-src 'self' 'unsafe-inline' https://unpkg.com; style-src 'self' 'unsafe-inline' https://unpkg.com; img-src 'self' data: https:; frame-ancestors 'none';",
		ReferrerPolicy:            "strict-origin-when-cross-origin",
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "cross-origin",
		XDNSPrefetchControl:       "off",
		XDownloadOptions:          "noopen",
		XPermittedCrossDomain:     "none",
	}))

	maxAge := r.cfg.Security.CORSMaxAge
	if maxAge <= 0 {
		maxAge = utils.CORSMaxAge
	}
	r.app.Use(cors.New(cors.Config{
		AllowOrigins:     r.cfg.Security.AllowedOrigins,
		AllowMethods:     r.cfg.Security.AllowedMethods,
		AllowHeaders:     r.cfg.Security.AllowedHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: r.cfg.Security.AllowCredentials,
		MaxAge:           maxAge,
	}))

	r.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
		Next: func(c fiber.Ctx) bool {
			// proofs are already compressed and the event stream must not be buffered
			return strings.HasSuffix(c.Path(), "/proof") || c.Path() == "/api/v1/events"
		},
	}))

	r.app.Use(cache.New(cache.Config{
		Next: func(c fiber.Ctx) bool {
			return c.Method() != fiber.MethodGet || !strings.HasSuffix(c.Path(), "/health")
		},
		Expiration:          10 * time.Second,
		DisableCacheControl: false,
	}))

	r.app.Use(logger.New(logger.Config{
		Format:     `{"time":"${time}","request_id":"${locals:requestid}","level":"info","method":"${method}","path":"${path}","ip":"${ip}","user_agent":"${ua}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent}}` + "\n",
		TimeFormat: time.RFC3339,
		TimeZone:   "UTC",
		Next: func(c fiber.Ctx) bool {
			return strings.HasSuffix(c.Path(), "/health")
		},
	}))
}

func (r *FiberRouter) rateLimiter(limit, fallback int) fiber.Handler {
	if limit <= 0 {
		limit = fallback
	}
	window := r.cfg.Security.RateLimitWindow
	if window <= 0 {
		window = time.Minute
	}
	return limiter.New(limiter.Config{
		Max:        limit,
		Expiration: window,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many requests. Please try again later.",
				Error:   dto.ErrorDetail{Code: dto.CodeRateLimited},
			})
		},
	})
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	r.logger.Info("starting server", zap.String("address", address))
	return r.app.Listen(address, fiber.ListenConfig{DisableStartupMessage: true})
}

// Shutdown drains in-flight requests
func (r *FiberRouter) Shutdown(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return r.app.ShutdownWithTimeout(timeout)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "Service is healthy",
		Data: fiber.Map{
			"status":    "ok",
			"timestamp": utils.UTCNow().Unix(),
			"version":   r.cfg.Deployment.Version,
			"service":   "smm-panel-api",
		},
	})
}

func (r *FiberRouter) serveSwaggerUI(c fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(swaggerUIPage)
}

func (r *FiberRouter) serveSwaggerJSON(c fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.SendString(docs.SwaggerInfo.ReadDoc())
}

func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: dto.CodeNotFound,
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": c.Locals("requestid"),
			},
		},
	})
}

func (r *FiberRouter) errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "An internal server error occurred"
	errCode := dto.CodeInternal

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		if code < fiber.StatusInternalServerError {
			message = fe.Message
			errCode = dto.CodeRequestError
		}
	}
	if code >= fiber.StatusInternalServerError {
		r.logger.Error("request failed", zap.Int("status", code), zap.Any("request_id", c.Locals("requestid")), zap.Error(err))
	}

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code: errCode,
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": c.Locals("requestid"),
			},
		},
	})
}

// request ids sort by creation time
func generateRequestID() string {
	return xid.New().String()
}

const swaggerUIPage = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>SMM Panel API</title>
    <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui.css" />
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui-bundle.js"></script>
    <script>
        window.onload = function() {
            SwaggerUIBundle({ url: '/swagger.json', dom_id: '#swagger-ui', deepLinking: true });
        };
    </script>
</body>
</html>`
