package shop

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/safar/go-sql-shop/internal/database"
	"github.com/safar/go-sql-shop/internal/events"
	"github.com/safar/go-sql-shop/internal/models"
	"github.com/safar/go-sql-shop/internal/store"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type CreateOrderRequest struct {
	UserID    uuid.UUID           `json:"user_id"`
	ProductID uuid.UUID           `json:"product_id"`
	Quantity  int                 `json:"quantity"`
	Status    *models.OrderStatus `json:"status,omitempty"`
}

func (r CreateOrderRequest) Validate() error {
	if err := requireID("user_id", r.UserID); err != nil {
		return err
	}
	if err := requireID("product_id", r.ProductID); err != nil {
		return err
	}
	if err := requireQuantity(r.Quantity); err != nil {
		return err
	}
	return validateStatus(r.Status)
}

// UpdateOrderRequest changes only the fields that are set. Any valid status
// may be set, including moving an order out of a terminal state.
type UpdateOrderRequest struct {
	Quantity *int                `json:"quantity,omitempty"`
	Status   *models.OrderStatus `json:"status,omitempty"`
}

func (r UpdateOrderRequest) Validate() error {
	if r.Quantity != nil {
		if err := requireQuantity(*r.Quantity); err != nil {
			return err
		}
	}
	return validateStatus(r.Status)
}

func (r UpdateOrderRequest) empty() bool {
	return r.Quantity == nil && r.Status == nil
}

func validateStatus(status *models.OrderStatus) error {
	if status != nil && !status.Valid() {
		return database.InvalidInput("unknown order status %q", *status)
	}
	return nil
}

func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*models.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	status := models.OrderStatusPending
	if req.Status != nil {
		status = *req.Status
	}

	var order *models.Order
	err := database.WithTransaction(ctx, s.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		if err := ensureUser(ctx, tx, req.UserID); err != nil {
			return err
		}
		if err := store.ShareLockProduct(ctx, tx, req.ProductID); err != nil {
			return err
		}

		id, err := store.InsertOrder(ctx, tx, req.UserID, req.ProductID, req.Quantity, status)
		if err != nil {
			return err
		}

		order, err = store.GetOrder(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "order created",
		slog.String("order_id", order.ID.String()),
		slog.String("user_id", order.UserID.String()),
		slog.String("status", string(order.Status)))
	s.publish(ctx, events.New(events.OrderCreated, order.UserID, *order))
	return order, nil
}

// ListOrders returns every order, newest first.
func (s *Service) ListOrders(ctx context.Context) ([]models.Order, error) {
	return store.ListOrders(ctx, s.db)
}

// ListUserOrders returns the user's orders, newest first. An unknown user
// is ErrUserNotFound; a known user without orders is an empty slice.
func (s *Service) ListUserOrders(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	if err := ensureUser(ctx, s.db, userID); err != nil {
		return nil, err
	}
	return store.ListOrdersByUser(ctx, s.db, userID)
}

func (s *Service) ListUserOrdersPage(ctx context.Context, userID uuid.UUID, cursor string, limit int) (*store.CursorPage, error) {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	if err := ensureUser(ctx, s.db, userID); err != nil {
		return nil, err
	}
	return store.ListOrdersCursor(ctx, s.db, userID, cursor, limit)
}

func (s *Service) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return store.GetOrder(ctx, s.db, id)
}

func (s *Service) UpdateOrder(ctx context.Context, id uuid.UUID, req UpdateOrderRequest) (*models.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.empty() {
		return store.GetOrder(ctx, s.db, id)
	}

	order, err := store.UpdateOrder(ctx, s.db, id, store.OrderUpdate{
		Quantity: req.Quantity,
		Status:   req.Status,
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "order updated",
		slog.String("order_id", order.ID.String()),
		slog.String("status", string(order.Status)))
	s.publish(ctx, events.New(events.OrderUpdated, order.UserID, *order))
	return order, nil
}

// CancelOrder moves a non-terminal order to cancelled. The status is read
// under a row lock so a concurrent update cannot slip in between the check
// and the write.
func (s *Service) CancelOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order *models.Order
	err := database.WithTransaction(ctx, s.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		current, err := store.LockOrderStatus(ctx, tx, id)
		if err != nil {
			return err
		}
		if !current.Cancellable() {
			return fmt.Errorf("%w: cannot cancel order with status %s", database.ErrInvalidTransition, current)
		}

		cancelled := models.OrderStatusCancelled
		order, err = store.UpdateOrder(ctx, tx, id, store.OrderUpdate{Status: &cancelled})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "order cancelled", slog.String("order_id", order.ID.String()))
	s.publish(ctx, events.New(events.OrderCancelled, order.UserID, *order))
	return order, nil
}

// RemoveOrder deletes the order and returns it as it was.
func (s *Service) RemoveOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := store.DeleteOrder(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "order deleted", slog.String("order_id", order.ID.String()))
	s.publish(ctx, events.New(events.OrderDeleted, order.UserID, *order))
	return order, nil
}
