package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/metrics"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/transport"
)

const idempotencyScope = "orders"

// IdempotencyStore is satisfied by idempotency.RedisStore.
type IdempotencyStore interface {
	TryLock(ctx context.Context, scope, key string) (bool, error)
	Remember(ctx context.Context, scope, key, value string) error
	Recall(ctx context.Context, scope, key string) (string, bool, error)
	Release(ctx context.Context, scope, key string) error
}

type OrderService struct {
	Repo   *repo.GormRepo
	Events EventPublisher
	Idem   IdempotencyStore
	Index  ProductIndex

	// PriceTolerance bounds |submitted price - catalog price| per unit.
	PriceTolerance decimal.Decimal
}

type PlaceOrderInput struct {
	UserID         uint
	IdempotencyKey string
	Items          []transport.CartItem
}

type PlaceOrderResult struct {
	Order    *models.Order
	Replayed bool
}

// PlaceOrder validates the cart, reserves stock and records the order as a
// single transaction. Either everything commits or nothing does.
func (s *OrderService) PlaceOrder(ctx context.Context, in PlaceOrderInput) (res *PlaceOrderResult, err error) {
	defer func() { metrics.OrdersPlaced.WithLabelValues(orderResult(res, err)).Inc() }()

	if len(in.Items) == 0 {
		return nil, ErrEmptyCart
	}
	if err := validateCart(in.Items); err != nil {
		return nil, err
	}

	if in.IdempotencyKey == "" || s.Idem == nil {
		order, err := s.place(ctx, in)
		if err != nil {
			return nil, err
		}
		return &PlaceOrderResult{Order: order}, nil
	}
	return s.placeOnce(ctx, in)
}

func (s *OrderService) placeOnce(ctx context.Context, in PlaceOrderInput) (*PlaceOrderResult, error) {
	l := logging.FromContext(ctx).With("svc", "order.place_once")
	scope := idempotencyScope + ":" + strconv.FormatUint(uint64(in.UserID), 10)

	if prev, ok, err := s.Idem.Recall(ctx, scope, in.IdempotencyKey); err == nil && ok {
		if order, err := s.replay(ctx, in.UserID, prev); err == nil {
			return &PlaceOrderResult{Order: order, Replayed: true}, nil
		}
	} else if err != nil {
		l.Warn("idempotency_recall_error", "error", err)
	}

	locked, err := s.Idem.TryLock(ctx, scope, in.IdempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("idempotency lock: %w", err)
	}
	if !locked {
		return nil, ErrDuplicateRequest
	}

	order, err := s.place(ctx, in)
	if err != nil {
		if rerr := s.Idem.Release(context.WithoutCancel(ctx), scope, in.IdempotencyKey); rerr != nil {
			l.Warn("idempotency_release_error", "error", rerr)
		}
		return nil, err
	}

	// a failed Remember keeps the lock until it expires, so retries in that
	// window get ErrDuplicateRequest instead of a second order
	if err := s.Idem.Remember(ctx, scope, in.IdempotencyKey, strconv.FormatUint(uint64(order.ID), 10)); err != nil {
		l.Warn("idempotency_remember_error", "order_id", order.ID, "error", err)
		return &PlaceOrderResult{Order: order}, nil
	}
	if err := s.Idem.Release(context.WithoutCancel(ctx), scope, in.IdempotencyKey); err != nil {
		l.Warn("idempotency_release_error", "error", err)
	}
	return &PlaceOrderResult{Order: order}, nil
}

func (s *OrderService) replay(ctx context.Context, userID uint, orderID string) (*models.Order, error) {
	id, err := strconv.ParseUint(orderID, 10, 64)
	if err != nil {
		return nil, err
	}
	order, err := s.Repo.GetOrder(ctx, uint(id))
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrNotFound
	}
	return order, nil
}

func validateCart(items []transport.CartItem) error {
	for i, it := range items {
		if it.ProductID == 0 {
			return fmt.Errorf("%w: items[%d].productId required", ErrValidation, i)
		}
		if it.Quantity <= 0 {
			return fmt.Errorf("%w: items[%d].quantity must be > 0", ErrValidation, i)
		}
		if it.Price.IsNegative() {
			return fmt.Errorf("%w: items[%d].price must be >= 0", ErrValidation, i)
		}
	}
	return nil
}

func (s *OrderService) place(ctx context.Context, in PlaceOrderInput) (*models.Order, error) {
	demand := make(map[uint]int, len(in.Items))
	ids := make([]uint, 0, len(in.Items))
	for _, it := range in.Items {
		if _, seen := demand[it.ProductID]; !seen {
			ids = append(ids, it.ProductID)
		}
		demand[it.ProductID] += it.Quantity
	}
	// rows are always locked in the same order so concurrent carts cannot deadlock
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var order *models.Order
	var touched []models.Product
	err := s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		locked, err := tx.LockProducts(ctx, ids)
		if err != nil {
			return err
		}
		byID := make(map[uint]*models.Product, len(locked))
		for i := range locked {
			byID[locked[i].ID] = &locked[i]
		}

		reserved := make(map[uint]int, len(ids))
		for _, it := range in.Items {
			p, ok := byID[it.ProductID]
			if !ok {
				return &InsufficientStockError{ProductID: it.ProductID}
			}
			reserved[p.ID] += it.Quantity
			if reserved[p.ID] > p.Stock {
				return &InsufficientStockError{ProductID: p.ID, Name: p.Name}
			}
			if it.Price.Sub(p.Price).Abs().GreaterThan(s.PriceTolerance) {
				return &PriceMismatchError{ProductID: p.ID, Name: p.Name}
			}
		}

		o := &models.Order{UserID: in.UserID, Status: models.OrderStatusPending}
		if err := tx.CreateOrder(ctx, o); err != nil {
			return err
		}

		items := make([]models.OrderItem, 0, len(in.Items))
		for _, it := range in.Items {
			items = append(items, models.OrderItem{
				OrderID:   o.ID,
				ProductID: it.ProductID,
				Quantity:  it.Quantity,
				Price:     it.Price,
			})
		}
		if err := tx.CreateOrderItems(ctx, items); err != nil {
			return err
		}

		for _, id := range ids {
			if err := tx.DecrementStock(ctx, id, demand[id]); err != nil {
				if errors.Is(err, repo.ErrStockConflict) {
					return &InsufficientStockError{ProductID: id, Name: byID[id].Name}
				}
				return err
			}
		}

		for _, id := range ids {
			byID[id].Stock -= demand[id]
		}
		touched = locked

		for i := range items {
			items[i].Product = &models.Product{ID: items[i].ProductID, Name: byID[items[i].ProductID].Name}
		}
		o.Items = items
		order = o
		return nil
	})
	if err != nil {
		var stockErr *InsufficientStockError
		var priceErr *PriceMismatchError
		if errors.As(err, &stockErr) || errors.As(err, &priceErr) {
			return nil, err
		}
		return nil, fmt.Errorf("place order: %w", err)
	}

	publish(ctx, s.Events, TopicOrders, strconv.FormatUint(uint64(order.UserID), 10), map[string]any{
		"type":    "order_created",
		"orderID": order.ID,
		"userID":  order.UserID,
		"status":  order.Status,
		"items":   len(order.Items),
	})
	for i := range touched {
		reindexProduct(ctx, s.Index, &touched[i])
	}
	return order, nil
}

func orderResult(res *PlaceOrderResult, err error) string {
	switch {
	case err == nil && res != nil && res.Replayed:
		return "replayed"
	case err == nil:
		return "created"
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrValidation), errors.Is(err, ErrPriceMismatch):
		return "invalid"
	case errors.Is(err, ErrDuplicateRequest):
		return "duplicate"
	default:
		return "error"
	}
}

func (s *OrderService) ListUserOrders(ctx context.Context, userID uint, offset, limit int) (int64, []models.Order, error) {
	return s.Repo.ListUserOrders(ctx, userID, offset, limit)
}

func (s *OrderService) ListAllOrders(ctx context.Context, offset, limit int) (int64, []models.Order, error) {
	return s.Repo.ListAllOrders(ctx, offset, limit)
}

// UpdateStatus overwrites the status of an order. Any known status may
// follow any other.
func (s *OrderService) UpdateStatus(ctx context.Context, id uint, status string) (*models.Order, error) {
	if id == 0 {
		return nil, fmt.Errorf("%w: id required", ErrValidation)
	}
	st, ok := models.ParseOrderStatus(status)
	if !ok {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}

	if err := s.Repo.UpdateOrderStatus(ctx, id, st); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	order, err := s.Repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	publish(ctx, s.Events, TopicOrders, strconv.FormatUint(uint64(order.UserID), 10), map[string]any{
		"type":    "order_status_changed",
		"orderID": order.ID,
		"userID":  order.UserID,
		"status":  order.Status,
	})
	return order, nil
}
