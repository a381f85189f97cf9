package shop

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/safar/go-sql-shop/internal/database"
	"github.com/safar/go-sql-shop/internal/models"
	"github.com/safar/go-sql-shop/internal/store"
	"github.com/shopspring/decimal"
)

type CreateProductRequest struct {
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
}

func (r *CreateProductRequest) Validate() error {
	r.SKU = strings.TrimSpace(r.SKU)
	r.Name = strings.TrimSpace(r.Name)

	if r.SKU == "" {
		return database.InvalidInput("sku is required")
	}
	if r.Name == "" {
		return database.InvalidInput("name is required")
	}
	return validatePrice(r.Price)
}

type UpdateProductRequest struct {
	SKU         *string          `json:"sku,omitempty"`
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
}

func (r UpdateProductRequest) Validate() error {
	if r.SKU != nil && strings.TrimSpace(*r.SKU) == "" {
		return database.InvalidInput("sku must not be empty")
	}
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return database.InvalidInput("name must not be empty")
	}
	if r.Price != nil {
		return validatePrice(*r.Price)
	}
	return nil
}

func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return database.InvalidInput("price must not be negative, got %s", price)
	}
	if !price.Equal(price.Round(2)) {
		return database.InvalidInput("price has more than two decimal places: %s", price)
	}
	return nil
}

func (s *Service) CreateProduct(ctx context.Context, req CreateProductRequest) (*models.Product, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	product, err := store.CreateProduct(ctx, s.db, req.SKU, req.Name, req.Description, req.Price)
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID.String()),
		slog.String("sku", product.SKU))
	return product, nil
}

func (s *Service) ListProducts(ctx context.Context, page, pageSize int) (*store.OffsetPage, error) {
	return store.ListProducts(ctx, s.db, page, pageSize)
}

func (s *Service) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return store.GetProduct(ctx, s.db, id)
}

func (s *Service) UpdateProduct(ctx context.Context, id uuid.UUID, req UpdateProductRequest) (*models.Product, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	return store.UpdateProduct(ctx, s.db, id, store.ProductUpdate{
		SKU:         req.SKU,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
	})
}

// RemoveProduct deletes a product that no order references. Cart items
// holding it are removed with it.
func (s *Service) RemoveProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := store.DeleteProduct(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "product deleted", slog.String("product_id", id.String()))
	return product, nil
}
