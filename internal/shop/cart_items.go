package shop

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"
	"github.com/safar/go-sql-shop/internal/database"
	"github.com/safar/go-sql-shop/internal/models"
	"github.com/safar/go-sql-shop/internal/store"
)

type CreateCartItemRequest struct {
	UserID    uuid.UUID `json:"user_id"`
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

func (r CreateCartItemRequest) Validate() error {
	if err := requireID("user_id", r.UserID); err != nil {
		return err
	}
	if err := requireID("product_id", r.ProductID); err != nil {
		return err
	}
	return requireQuantity(r.Quantity)
}

type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity"`
}

func (r UpdateCartItemRequest) Validate() error {
	if r.Quantity != nil {
		return requireQuantity(*r.Quantity)
	}
	return nil
}

// CreateCartItem adds a product to a user's cart. The product is share
// locked so it cannot disappear between the existence check and the insert.
func (s *Service) CreateCartItem(ctx context.Context, req CreateCartItemRequest) (*models.CartItem, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var item *models.CartItem
	err := database.WithTransaction(ctx, s.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		if err := ensureUser(ctx, tx, req.UserID); err != nil {
			return err
		}
		if err := store.ShareLockProduct(ctx, tx, req.ProductID); err != nil {
			return err
		}

		id, err := store.InsertCartItem(ctx, tx, req.UserID, req.ProductID, req.Quantity)
		if err != nil {
			return err
		}

		item, err = store.GetCartItem(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "cart item added",
		slog.String("cart_item_id", item.ID.String()),
		slog.String("user_id", item.UserID.String()))
	return item, nil
}

func (s *Service) ListCartItems(ctx context.Context) ([]models.CartItem, error) {
	return store.ListCartItems(ctx, s.db)
}

func (s *Service) GetCartItem(ctx context.Context, id uuid.UUID) (*models.CartItem, error) {
	return store.GetCartItem(ctx, s.db, id)
}

func (s *Service) UpdateCartItem(ctx context.Context, id uuid.UUID, req UpdateCartItemRequest) (*models.CartItem, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Quantity == nil {
		return store.GetCartItem(ctx, s.db, id)
	}
	return store.UpdateCartItemQuantity(ctx, s.db, id, *req.Quantity)
}

// RemoveCartItem deletes the item and returns it as it was.
func (s *Service) RemoveCartItem(ctx context.Context, id uuid.UUID) (*models.CartItem, error) {
	item, err := store.DeleteCartItem(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "cart item removed", slog.String("cart_item_id", id.String()))
	return item, nil
}
