// Package httpapi wires the HTTP transport (Gin) to the payment services,
// middleware, and route handlers. It centralizes tracing, correlation IDs,
// logging with redaction, panic recovery, metrics, CORS, security headers,
// bearer auth, idempotency, and rate limiting.
//
// The provider webhook is mounted outside the authenticated API group: it is
// authenticated by its signature and must never be throttled.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tbourn/creator-payments/internal/config"
	"github.com/tbourn/creator-payments/internal/events"
	"github.com/tbourn/creator-payments/internal/http/handlers"
	"github.com/tbourn/creator-payments/internal/http/middleware"
	"github.com/tbourn/creator-payments/internal/payments"
	"github.com/tbourn/creator-payments/internal/repo"
	"github.com/tbourn/creator-payments/internal/services"
)

// Deps are the collaborators the routes are built from.
type Deps struct {
	Store     *repo.Store
	Provider  payments.Provider
	Publisher events.Publisher
	Verifier  middleware.TokenVerifier

	// Redis is optional. When set, rate limits are shared across instances.
	Redis *redis.Client
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII and secret scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. gzip, CORS, and security headers
//
// Inside the API group: BearerAuth, then the idempotency validator on
// POST /payouts (so replays can bypass the limiter), then the rate limiter.
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true
	handlers.RegisterValidators()

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(1 << 20))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics", "/webhooks"})))
	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      true,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := deps.Store.Ping(ctx); err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("readiness check failed")
			handlers.Fail(c, http.StatusServiceUnavailable, handlers.ErrCodeUnavailable, "database unavailable")
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← store/provider/bus
	pc := cfg.Payments
	checkoutSvc := &services.CheckoutService{
		Store:           deps.Store,
		Provider:        deps.Provider,
		FeePercent:      pc.PlatformFeePercent,
		DefaultCurrency: pc.DefaultCurrency,
		Location:        pc.Location(),
		SlotMinutes:     pc.SlotMinutes,
		SuccessURL:      pc.SuccessURL,
		CancelURL:       pc.CancelURL,
	}
	webhookSvc := &services.WebhookService{
		Store:       deps.Store,
		Provider:    deps.Provider,
		Publisher:   deps.Publisher,
		SlotMinutes: pc.SlotMinutes,
	}
	withdrawalSvc := &services.WithdrawalService{
		Store:           deps.Store,
		Provider:        deps.Provider,
		Publisher:       deps.Publisher,
		Cooldown:        pc.Cooldown,
		MinKeyLen:       pc.MinIdempotencyKeyLen,
		DefaultCurrency: pc.DefaultCurrency,
	}
	purchaseSvc := &services.PurchaseService{Store: deps.Store}
	h := handlers.New(checkoutSvc, webhookSvc, withdrawalSvc, purchaseSvc)

	// Provider webhooks: signature-authenticated, never rate limited.
	r.POST("/webhooks/stripe", h.StripeWebhook)

	var limiter middleware.Limiter = middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst)
	if deps.Redis != nil {
		limiter = middleware.NewRedisLimiter(deps.Redis, cfg.RateRPS, cfg.RateBurst)
	}
	throttle := middleware.RateLimit(limiter, middleware.KeyByUserOrIP())
	idem := middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MinLen: pc.MinIdempotencyKeyLen, MaxLen: 200},
		payoutKeyLookup(deps.Store),
	)

	api := groupWithPrefix(r, cfg.APIBasePath)
	api.Use(middleware.BearerAuth(deps.Verifier))
	{
		api.POST("/checkout/sessions", throttle, h.CreateCheckout)

		api.POST("/payouts", idem, throttle, h.CreatePayout)
		api.GET("/payouts", throttle, h.ListPayouts)

		api.GET("/purchases", throttle, h.ListPurchases)
	}
}

// payoutKeyLookup reports whether key already produced a payout for userID.
// A key held by another creator is not a replay; the service rejects it.
func payoutKeyLookup(store *repo.Store) middleware.IdempotencyLookup {
	return func(ctx context.Context, userID, key string) (bool, error) {
		p, err := store.GetPayoutByKey(ctx, key)
		if errors.Is(err, repo.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return p.CreatorID == userID, nil
	}
}

// corsMiddleware returns the CORS chain. With no allowlist every origin is
// accepted without credentials; otherwise allowed origins are echoed.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	methods := []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	headers := []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey}
	expose := []string{"X-Request-ID", "Content-Length", "Retry-After"}

	if len(origins) == 0 {
		return []gin.HandlerFunc{
			// ACAO: * even without an Origin header, for health probes and curl.
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(cors.Config{
				AllowAllOrigins:  true,
				AllowMethods:     methods,
				AllowHeaders:     headers,
				ExposeHeaders:    expose,
				AllowCredentials: false, // must remain false with AllowAllOrigins
				MaxAge:           12 * time.Hour,
			}),
		}
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     methods,
			AllowHeaders:     headers,
			ExposeHeaders:    expose,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}),
	}
}

// limitBody caps the request body size to maxBytes using
// http.MaxBytesReader. Oversized bodies fail on read.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
