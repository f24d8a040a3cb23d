package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/internal/util"
)

const HeaderIdempotencyKey = "X-Idempotency-Key"

type OrderHandler struct {
	Svc *service.OrderService
}

func (h *OrderHandler) PlaceOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.place")

	p, err := principal(c)
	if err != nil {
		return err
	}

	var req transport.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("place_order_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	key := c.Request().Header.Get(HeaderIdempotencyKey)
	if len(key) > 128 {
		l.Warn("place_order_error", "status", 400, "reason", "idempotency key too long")
		return echo.NewHTTPError(http.StatusBadRequest, "idempotency key too long")
	}

	res, err := h.Svc.PlaceOrder(ctx, service.PlaceOrderInput{
		UserID:         p.UserID,
		IdempotencyKey: key,
		Items:          req.Items,
	})
	if err != nil {
		return httpError(l, "place_order", err)
	}

	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	} else {
		l.Info("order_placed", "order_id", res.Order.ID, "user_id", p.UserID, "items", len(res.Order.Items))
	}
	return c.JSON(status, echo.Map{"order": transport.NewOrderResponse(res.Order)})
}

func (h *OrderHandler) ListMine(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.list_mine")

	p, err := principal(c)
	if err != nil {
		return err
	}
	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	offset, limit := util.Calculate(page, util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize))

	total, orders, err := h.Svc.ListUserOrders(ctx, p.UserID, offset, limit)
	if err != nil {
		return httpError(l, "list_orders", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"orders": transport.NewOrderResponses(orders),
		"meta":   util.NewMeta(page, offset, limit, total),
	})
}

func (h *OrderHandler) ListAll(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.list_all")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	offset, limit := util.Calculate(page, util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize))

	total, orders, err := h.Svc.ListAllOrders(ctx, offset, limit)
	if err != nil {
		return httpError(l, "list_orders", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"data": transport.NewOrderResponses(orders),
		"meta": util.NewMeta(page, offset, limit, total),
	})
}

// UpdateStatus takes the order id from the path when present, otherwise
// from the body.
func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.update_status")

	var req transport.UpdateOrderStatusRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("update_status_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if c.Param("id") != "" {
		id, err := pathID(c)
		if err != nil {
			return err
		}
		req.ID = id
	}

	order, err := h.Svc.UpdateStatus(ctx, req.ID, req.Status)
	if err != nil {
		return httpError(l, "update_status", err)
	}
	l.Info("order_status_updated", "order_id", order.ID, "status", order.Status)
	return c.JSON(http.StatusOK, echo.Map{"order": transport.NewOrderResponse(order)})
}
