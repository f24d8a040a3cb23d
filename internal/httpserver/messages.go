package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/realtime"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/internal/util"
)

type MessageHandler struct {
	Svc *service.MessageService
	Hub *realtime.Hub
}

func (h *MessageHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "messages.list")

	p, err := principal(c)
	if err != nil {
		return err
	}
	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	offset, limit := util.Calculate(page, util.ParseIntDefault(c.QueryParam("size"), util.MaxPageSize))

	msgs, err := h.Svc.List(ctx, p.UserID, offset, limit)
	if err != nil {
		return httpError(l, "list_messages", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"messages": transport.NewMessageResponses(msgs)})
}

func (h *MessageHandler) Send(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "messages.send")

	p, err := principal(c)
	if err != nil {
		return err
	}
	var req transport.SendMessageRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("send_message_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	m, err := h.Svc.Send(ctx, p.UserID, req)
	if err != nil {
		return httpError(l, "send_message", err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": transport.NewMessageResponse(m)})
}

func (h *MessageHandler) Users(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "messages.users")

	p, err := principal(c)
	if err != nil {
		return err
	}
	users, err := h.Svc.Users(ctx, p.UserID)
	if err != nil {
		return httpError(l, "list_users", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"users": transport.NewUserSummaries(users)})
}

// Socket upgrades to a websocket that receives the caller's new messages.
func (h *MessageHandler) Socket(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "messages.socket")

	p, err := principal(c)
	if err != nil {
		return err
	}
	if h.Hub == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "realtime disabled")
	}
	if err := h.Hub.ServeWS(c.Response(), c.Request(), p.UserID); err != nil {
		// the upgrader has already written the failure response
		l.Warn("ws_upgrade_error", "user_id", p.UserID, "error", err)
	}
	return nil
}
