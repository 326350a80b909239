// Package httpapi wires the HTTP transport (Gin) to the marketplace services,
// middleware, and route handlers. It centralizes the cross-cutting concerns:
// tracing, correlation IDs, redacting logs, panic recovery, metrics, CORS,
// security headers, idempotency, rate limiting, and principal resolution.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate the correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after the logger
//  5. Body size limiter
//  6. Metrics
//  7. Authenticate: resolve the principal (guest fallback)
//  8. Idempotency validator (before the rate limiter so replays bypass it)
//  9. Rate limiter (per user/IP)
//  10. CORS and security headers
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/campuswriters/go-market-backend/docs"
	"github.com/campuswriters/go-market-backend/internal/config"
	"github.com/campuswriters/go-market-backend/internal/http/handlers"
	"github.com/campuswriters/go-market-backend/internal/http/middleware"
	"github.com/campuswriters/go-market-backend/internal/repo"
	"github.com/campuswriters/go-market-backend/internal/secrets"
	"github.com/campuswriters/go-market-backend/internal/services"
)

// RegisterRoutes attaches all middleware and endpoints to the given engine
// and returns the request service so the caller can hand it to the job
// runner.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, vault *secrets.Vault, cfg config.Config) *services.RequestService {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{middleware.HeaderEmail},
	}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(1 << 20))
	r.Use(middleware.Metrics())
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/vault.
	profileSvc := services.NewProfileService(db, vault)
	requestSvc := services.NewRequestService(db, vault, cfg.Market.RetentionWindow, cfg.Market.CostUnit)
	requestSvc.IdemTTL = cfg.IdempotencyTTL
	ratingSvc := services.NewRatingService(db)

	r.Use(middleware.Authenticate(profileSvc))
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		func(ctx context.Context, userID, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, userID, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	registerCORS(r, cfg)

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	h := handlers.New(requestSvc, ratingSvc, profileSvc)

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Open listing is browsable by guests; everything that writes is
		// fenced by RequireUser.
		api.GET("/requests", h.ListRequests)
		api.POST("/requests", middleware.RequireUser(), h.CreateRequest)
		api.POST("/requests/:id/accept", middleware.RequireUser(), h.AcceptRequest)
		api.DELETE("/requests/:id", middleware.RequireUser(), h.DeleteRequest)

		// Ratings
		api.POST("/requests/:id/rating", middleware.RequireUser(), h.SubmitRating)
		api.GET("/users/:id/ratings", h.ListUserRatings)

		// Profiles
		api.GET("/users/:id", h.GetUser)
		api.PATCH("/me", middleware.RequireUser(), h.UpdateMe)
		api.PUT("/me/status", middleware.RequireUser(), h.SetWriterStatus)
		api.PUT("/me/contact", middleware.RequireUser(), h.SetContact)
		api.PUT("/me/portfolio", middleware.RequireUser(), h.UpsertPortfolio)
	}

	return requestSvc
}

// registerCORS applies the CORS posture: allow-all when no origins are
// configured, strict allowlist otherwise.
func registerCORS(r *gin.Engine, cfg config.Config) {
	allowHeaders := []string{
		"Origin", "Content-Type", "Accept",
		middleware.HeaderSubject, middleware.HeaderEmail, middleware.HeaderName,
		middleware.HeaderPicture, middleware.HeaderRole,
		middleware.HeaderIdempotencyKey,
	}

	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
		return
	}

	allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
	for _, o := range cfg.CORS.AllowedOrigins {
		allowed[o] = struct{}{}
	}
	r.Use(func(c *gin.Context) {
		if origin := c.GetHeader("Origin"); origin != "" {
			if _, ok := allowed[origin]; ok {
				h := c.Writer.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}
		}
		c.Next()
	})
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     allowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
}

// limitBody caps the request body size using http.MaxBytesReader; oversized
// bodies error on read downstream.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" or empty as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
