package csrf

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEcho(cfg Config) *echo.Echo {
	e := echo.New()
	e.Use(Middleware(cfg))
	ok := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }
	e.GET("/api/v1/products", ok)
	e.POST("/api/v1/orders", ok)
	e.POST("/api/v1/login", ok)
	return e
}

func fetchToken(t *testing.T, e *echo.Echo) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "XSRF-TOKEN", cookies[0].Name)
	assert.Equal(t, cookies[0].Value, rec.Header().Get("X-CSRF-Token"))
	return cookies[0]
}

func post(e *echo.Echo, path string, mutate func(*http.Request)) int {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.Host = "shop.test"
	req.Header.Set("Origin", "http://shop.test")
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec.Code
}

func TestMiddleware_DoubleSubmit(t *testing.T) {
	e := newEcho(DefaultConfig())
	cookie := fetchToken(t, e)

	assert.Equal(t, http.StatusForbidden, post(e, "/api/v1/orders", nil))

	assert.Equal(t, http.StatusForbidden, post(e, "/api/v1/orders", func(r *http.Request) {
		r.AddCookie(cookie)
		r.Header.Set("X-CSRF-Token", "wrong")
	}))

	assert.Equal(t, http.StatusNoContent, post(e, "/api/v1/orders", func(r *http.Request) {
		r.AddCookie(cookie)
		r.Header.Set("X-CSRF-Token", cookie.Value)
	}))
}

func TestMiddleware_RejectsForeignOrigin(t *testing.T) {
	e := newEcho(DefaultConfig())
	cookie := fetchToken(t, e)

	code := post(e, "/api/v1/orders", func(r *http.Request) {
		r.Header.Set("Origin", "http://evil.test")
		r.AddCookie(cookie)
		r.Header.Set("X-CSRF-Token", cookie.Value)
	})
	assert.Equal(t, http.StatusForbidden, code)
}

func TestMiddleware_Skips(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Skipper = BearerSkipper
	cfg.SkipPaths = []string{"/api/v1/login"}
	e := newEcho(cfg)

	assert.Equal(t, http.StatusNoContent, post(e, "/api/v1/login", nil))
	assert.Equal(t, http.StatusNoContent, post(e, "/api/v1/orders", func(r *http.Request) {
		r.Header.Set(echo.HeaderAuthorization, "Bearer abc")
	}))
	assert.Equal(t, http.StatusForbidden, post(e, "/api/v1/orders", nil))
}

func TestSecureCompare(t *testing.T) {
	assert.True(t, secureCompare("abc", "abc"))
	assert.False(t, secureCompare("abc", "abd"))
	assert.False(t, secureCompare("", ""))
	assert.False(t, secureCompare("abc", "ab"))
}
