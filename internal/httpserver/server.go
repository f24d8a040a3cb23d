package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/storefront/internal/metrics"
	"github.com/Skotchmaster/storefront/internal/middleware/csrf"
	loggingmw "github.com/Skotchmaster/storefront/internal/middleware/logging"
)

type Options struct {
	CORSOrigins   []string
	SecureCookies bool
}

// csrfExempt are the endpoints a browser reaches before it holds a session.
var csrfExempt = []string{
	"/api/v1/register",
	"/api/v1/login",
	"/api/v1/refresh",
	"/api/v1/logout",
}

func NewEcho(log *slog.Logger, o Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(loggingmw.RequestLogger(log))
	e.Use(metrics.Middleware())
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		ReferrerPolicy:     "same-origin",
	}))
	if len(o.CORSOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     o.CORSOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization, "X-CSRF-Token", HeaderIdempotencyKey},
			AllowCredentials: true,
		}))
	}

	cfg := csrf.DefaultConfig()
	cfg.Secure = o.SecureCookies
	cfg.Skipper = csrf.BearerSkipper
	cfg.SkipPaths = csrfExempt
	e.Use(csrf.Middleware(cfg))

	return e
}
