package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/safar/go-sql-shop/internal/models"
)

type Type string

const (
	OrderCreated      Type = "order.created"
	OrderUpdated      Type = "order.updated"
	OrderCancelled    Type = "order.cancelled"
	OrderDeleted      Type = "order.deleted"
	CheckoutCompleted Type = "checkout.completed"
)

// Event describes a committed change to one or more orders of a user.
type Event struct {
	ID         uuid.UUID  `json:"id"`
	Type       Type       `json:"type"`
	UserID     uuid.UUID  `json:"user_id"`
	Orders     []OrderRef `json:"orders"`
	OccurredAt time.Time  `json:"occurred_at"`
}

type OrderRef struct {
	ID        uuid.UUID          `json:"id"`
	ProductID uuid.UUID          `json:"product_id"`
	Quantity  int                `json:"quantity"`
	Status    models.OrderStatus `json:"status"`
}

func New(t Type, userID uuid.UUID, orders ...models.Order) Event {
	refs := make([]OrderRef, 0, len(orders))
	for _, o := range orders {
		refs = append(refs, OrderRef{
			ID:        o.ID,
			ProductID: o.ProductID,
			Quantity:  o.Quantity,
			Status:    o.Status,
		})
	}

	return Event{
		ID:         uuid.New(),
		Type:       t,
		UserID:     userID,
		Orders:     refs,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher delivers events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

func (NopPublisher) Close() error { return nil }
