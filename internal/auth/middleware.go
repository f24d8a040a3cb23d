package auth

import (
	"net/http"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
)

const (
	principalKey = "principal"

	// DefaultLookup takes a bearer header first and falls back to the access cookie.
	DefaultLookup = "header:Authorization:Bearer ,cookie:" + AccessCookie
	// SocketLookup also accepts ?access_token= since browsers cannot set
	// headers on a websocket handshake.
	SocketLookup = DefaultLookup + ",query:access_token"
)

// Authenticate verifies the request credential on every call and stores the
// resulting Principal in the echo context.
func Authenticate(t *Tokens, lookup string) echo.MiddlewareFunc {
	if lookup == "" {
		lookup = DefaultLookup
	}
	return echojwt.WithConfig(echojwt.Config{
		TokenLookup: lookup,
		ContextKey:  principalKey,
		ParseTokenFunc: func(c echo.Context, credential string) (interface{}, error) {
			p, err := t.Verify(credential)
			if err != nil {
				return nil, err
			}
			return p, nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			l := logging.FromContext(c.Request().Context()).With("handler", "auth.authenticate")
			l.Warn("auth_error", "status", 401, "reason", "unauthenticated", "error", err)
			return echo.NewHTTPError(http.StatusUnauthorized, "unauthenticated")
		},
	})
}

func PrincipalFrom(c echo.Context) (Principal, bool) {
	p, ok := c.Get(principalKey).(Principal)
	if !ok || p.UserID == 0 {
		return Principal{}, false
	}
	return p, true
}

// SetPrincipal is used by handler tests that bypass Authenticate.
func SetPrincipal(c echo.Context, p Principal) {
	c.Set(principalKey, p)
}

func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, ok := PrincipalFrom(c)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "unauthenticated")
		}
		if !p.IsAdmin() {
			l := logging.FromContext(c.Request().Context()).With("handler", "auth.require_admin")
			l.Warn("auth_error", "status", 403, "reason", "admin role required", "user_id", p.UserID)
			return echo.NewHTTPError(http.StatusForbidden, "admin role required")
		}
		return next(c)
	}
}
