package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/auth"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
)

type AuthHandler struct {
	Svc           *service.AuthService
	SecureCookies bool
}

func (h *AuthHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	u, err := h.Svc.Register(ctx, req)
	if err != nil {
		return httpError(l, "register", err)
	}
	l.Info("register_success", "user_id", u.ID)
	return c.JSON(http.StatusCreated, echo.Map{"user": transport.NewUserResponse(u)})
}

func (h *AuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	res, err := h.Svc.Login(ctx, req)
	if err != nil {
		return httpError(l, "login", err)
	}
	h.setCookies(c, res)
	l.Info("login_success", "user_id", res.User.ID)
	return c.JSON(http.StatusOK, tokenBody(res))
}

// Refresh reads the refresh token from the body first and the cookie second.
func (h *AuthHandler) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.refresh")

	token := refreshToken(c)
	if token == "" {
		l.Warn("refresh_error", "status", 401, "reason", "missing refresh token")
		return echo.NewHTTPError(http.StatusUnauthorized, "missing refresh token")
	}
	res, err := h.Svc.Refresh(ctx, token)
	if err != nil {
		return httpError(l, "refresh", err)
	}
	h.setCookies(c, res)
	return c.JSON(http.StatusOK, tokenBody(res))
}

func (h *AuthHandler) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.logout")

	if err := h.Svc.Logout(ctx, refreshToken(c)); err != nil {
		return httpError(l, "logout", err)
	}
	c.SetCookie(auth.DeleteCookie(auth.AccessCookie, "/", h.SecureCookies))
	c.SetCookie(auth.DeleteCookie(auth.RefreshCookie, "/", h.SecureCookies))
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) setCookies(c echo.Context, res *transport.LoginResult) {
	c.SetCookie(auth.CreateCookie(auth.AccessCookie, res.AccessToken, "/", res.AccessExp, h.SecureCookies))
	c.SetCookie(auth.CreateCookie(auth.RefreshCookie, res.RefreshToken, "/", res.RefreshExp, h.SecureCookies))
}

func refreshToken(c echo.Context) string {
	var req transport.RefreshRequest
	if err := c.Bind(&req); err == nil && req.RefreshToken != "" {
		return req.RefreshToken
	}
	if ck, err := c.Cookie(auth.RefreshCookie); err == nil {
		return ck.Value
	}
	return ""
}

func tokenBody(res *transport.LoginResult) echo.Map {
	return echo.Map{
		"access_token":  res.AccessToken,
		"refresh_token": res.RefreshToken,
		"expires_at":    res.AccessExp.Unix(),
		"user":          transport.NewUserResponse(res.User),
	}
}

type ProfileHandler struct {
	Svc *service.UserService
}

func (h *ProfileHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "profile.get")

	p, err := principal(c)
	if err != nil {
		return err
	}
	u, err := h.Svc.Profile(ctx, p.UserID)
	if err != nil {
		return httpError(l, "get_profile", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": transport.NewUserResponse(u)})
}

func (h *ProfileHandler) Update(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "profile.update")

	p, err := principal(c)
	if err != nil {
		return err
	}
	var req transport.ProfileRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("update_profile_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	u, err := h.Svc.UpdateProfile(ctx, p.UserID, req)
	if err != nil {
		return httpError(l, "update_profile", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": transport.NewUserResponse(u)})
}
