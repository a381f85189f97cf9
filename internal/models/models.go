package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Version      int       `json:"version"`
}

// UserSummary is the slice of a user embedded in joined records.
type UserSummary struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
}

type Product struct {
	ID          uuid.UUID       `json:"id"`
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Version     int             `json:"version"`
}

type CartItem struct {
	ID        uuid.UUID    `json:"id"`
	UserID    uuid.UUID    `json:"user_id"`
	ProductID uuid.UUID    `json:"product_id"`
	Quantity  int          `json:"quantity"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	User      *UserSummary `json:"user,omitempty"`
	Product   *Product     `json:"product,omitempty"`
}

type Order struct {
	ID        uuid.UUID    `json:"id"`
	UserID    uuid.UUID    `json:"user_id"`
	ProductID uuid.UUID    `json:"product_id"`
	Quantity  int          `json:"quantity"`
	Status    OrderStatus  `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	Version   int          `json:"version"`
	User      *UserSummary `json:"user,omitempty"`
	Product   *Product     `json:"product,omitempty"`
}

// Total is the product's unit price times the ordered quantity. Orders
// loaded without their product have a zero total.
func (o Order) Total() decimal.Decimal {
	if o.Product == nil {
		return decimal.Zero
	}
	return o.Product.Price.Mul(decimal.NewFromInt(int64(o.Quantity)))
}

type OrderStats struct {
	UserID       uuid.UUID           `json:"userId"`
	TotalOrders  int                 `json:"totalOrders"`
	TotalSpent   decimal.Decimal     `json:"totalSpent"`
	StatusCounts map[OrderStatus]int `json:"statusCounts"`
}
