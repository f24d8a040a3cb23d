package httpserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/auth"
	"github.com/Skotchmaster/storefront/internal/service"
)

// httpError maps service errors onto the HTTP taxonomy and logs the
// failure under op. Unknown errors become a 500 with a generic message.
func httpError(l *slog.Logger, op string, err error) *echo.HTTPError {
	code, msg := http.StatusInternalServerError, "internal error"
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrPriceMismatch):
		code, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrNotFound):
		code, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrConflict), errors.Is(err, service.ErrDuplicateRequest):
		code, msg = http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrInvalidRefreshToken):
		code, msg = http.StatusUnauthorized, err.Error()
	}

	if code >= 500 {
		l.Error(op+"_error", "status", code, "error", err)
	} else {
		l.Warn(op+"_error", "status", code, "reason", msg)
	}
	return echo.NewHTTPError(code, msg)
}

func principal(c echo.Context) (auth.Principal, error) {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		return auth.Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "unauthenticated")
	}
	return p, nil
}

func pathID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return uint(id), nil
}
