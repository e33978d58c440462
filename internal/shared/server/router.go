package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"resume-matcher/internal/services/health"
	"resume-matcher/internal/shared/config"
	"resume-matcher/internal/shared/metrics"
	"resume-matcher/internal/shared/server/middleware"
	"resume-matcher/internal/shared/server/respond"
	"resume-matcher/internal/shared/telemetry"
	"resume-matcher/internal/web"
)

const (
	rateGroupDefault = "DEFAULT"
	rateGroupAnalyze = "ANALYZE"
)

// RouterDeps carries the handlers mounted by NewRouter.
type RouterDeps struct {
	Config  config.Config
	Pages   *web.Handler
	API     *web.APIHandler
	Limiter *middleware.RateLimiter
	Health  *health.Service
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	// Forwarded headers are honoured only from listed proxies; analysis limits
	// key on the client IP.
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		telemetry.Warn("server.trusted_proxies_invalid", map[string]any{
			"trusted_proxies": cfg.TrustedProxies,
			"error":           err.Error(),
		})
		_ = r.SetTrustedProxies(nil)
	}

	var errorPage gin.HandlerFunc
	if deps.Pages != nil {
		errorPage = deps.Pages.RenderPanic
	}

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(errorPage),
		middleware.CORS(cfg.CORSAllowOrigin),
		middleware.Session(middleware.SessionOptions{
			TTL:    cfg.SessionTTL,
			Secure: !cfg.IsDevLike(),
		}),
		middleware.RateLimit(middleware.RateLimitConfig{
			DefaultGroup: rateGroupDefault,
			GroupFor:     rateGroupFor,
			Limiter:      deps.Limiter,
			OnLimited:    rateLimited,
			Rules: map[string]middleware.RateLimitRule{
				rateGroupDefault: {Rate: 10, Burst: 40},
				rateGroupAnalyze: {Rate: cfg.AnalyzeRate, Burst: cfg.AnalyzeBurst, Scope: middleware.ScopeClientIP},
			},
		}),
	)

	if deps.Pages != nil {
		deps.Pages.RegisterRoutes(r)
	}
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		status := deps.Health.Status(c.Request.Context())
		code := http.StatusOK
		if !status.OK {
			code = http.StatusServiceUnavailable
		}
		respond.JSON(c, code, status)
	})
	if deps.API != nil {
		deps.API.RegisterRoutes(api)
	}

	r.NoRoute(func(c *gin.Context) {
		respond.Error(c, http.StatusNotFound, "not_found", "route not found", nil)
	})

	return r
}

// rateGroupFor puts analysis submissions in their own, stricter bucket.
func rateGroupFor(c *gin.Context) string {
	if c.Request.Method != http.MethodPost {
		return rateGroupDefault
	}
	switch c.FullPath() {
	case "/analyze", "/api/v1/analyses":
		return rateGroupAnalyze
	default:
		return rateGroupDefault
	}
}

// rateLimited keeps the JSON envelope for API clients and answers form posts
// with plain text the browser can show.
func rateLimited(c *gin.Context, retryAfter time.Duration) {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		middleware.RateLimitedJSON(c, retryAfter)
		return
	}
	c.String(http.StatusTooManyRequests,
		"Too many requests. Please wait %d seconds and try again.",
		middleware.RetryAfterSeconds(retryAfter))
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
