package shop

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/safar/go-sql-shop/internal/database"
	"github.com/safar/go-sql-shop/internal/events"
	"github.com/safar/go-sql-shop/internal/models"
	"github.com/safar/go-sql-shop/internal/store"
)

type CheckoutRequest struct {
	UserID uuid.UUID `json:"user_id"`
}

// Checkout turns every cart item of the user into a pending order and
// clears those items, all in one transaction. The user row lock serializes
// checkouts and cart inserts for the same user; a second checkout waiting
// on the lock sees an empty cart. The cart rows are locked too, so a
// quantity change either lands before the read or fails after the delete.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) ([]models.Order, error) {
	if err := requireID("user_id", req.UserID); err != nil {
		return nil, err
	}

	var orders []models.Order
	err := database.WithRetry(ctx, s.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		orders = nil

		if err := store.LockUser(ctx, tx, req.UserID); err != nil {
			return err
		}

		items, err := store.LockCartItemsByUser(ctx, tx, req.UserID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return database.ErrCartEmpty
		}

		consumed := make([]uuid.UUID, 0, len(items))
		for _, item := range items {
			id, err := store.InsertOrder(ctx, tx, req.UserID, item.ProductID, item.Quantity, models.OrderStatusPending)
			if err != nil {
				return fmt.Errorf("create order for cart item %s: %w", item.ID, err)
			}

			order, err := store.GetOrder(ctx, tx, id)
			if err != nil {
				return err
			}

			orders = append(orders, *order)
			consumed = append(consumed, item.ID)
		}

		removed, err := store.DeleteCartItems(ctx, tx, req.UserID, consumed)
		if err != nil {
			return err
		}
		if removed != int64(len(consumed)) {
			return database.ErrCartChanged
		}

		return nil
	})
	if err != nil {
		s.countCheckout(checkoutOutcome(err))
		return nil, err
	}

	s.countCheckout("success")
	s.log.InfoContext(ctx, "checkout completed",
		slog.String("user_id", req.UserID.String()),
		slog.Int("orders", len(orders)))
	s.publish(ctx, events.New(events.CheckoutCompleted, req.UserID, orders...))
	return orders, nil
}

func checkoutOutcome(err error) string {
	switch {
	case errors.Is(err, database.ErrCartEmpty):
		return "empty_cart"
	case errors.Is(err, database.ErrNotFound):
		return "not_found"
	case errors.Is(err, database.ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}
