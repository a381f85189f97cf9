package shop

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/safar/go-sql-shop/internal/database"
	"github.com/safar/go-sql-shop/internal/models"
	"github.com/safar/go-sql-shop/internal/store"
	"github.com/shopspring/decimal"
)

// UserOrderStats is computed from the user's current orders on every call.
// The existence check and the read share one snapshot.
func (s *Service) UserOrderStats(ctx context.Context, userID uuid.UUID) (*models.OrderStats, error) {
	opts := database.TxOptions{IsolationLevel: sql.LevelRepeatableRead, ReadOnly: true}

	var orders []models.Order
	err := database.WithTransaction(ctx, s.db, opts, func(tx *sql.Tx) error {
		if err := ensureUser(ctx, tx, userID); err != nil {
			return err
		}

		var err error
		orders, err = store.ListOrdersByUser(ctx, tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	stats := aggregateStats(userID, orders)
	return &stats, nil
}

// aggregateStats counts every order regardless of status, cancelled ones
// included. Statuses with no orders are absent from StatusCounts.
func aggregateStats(userID uuid.UUID, orders []models.Order) models.OrderStats {
	stats := models.OrderStats{
		UserID:       userID,
		TotalSpent:   decimal.Zero,
		StatusCounts: make(map[models.OrderStatus]int),
	}

	for _, order := range orders {
		stats.TotalOrders++
		stats.TotalSpent = stats.TotalSpent.Add(order.Total())
		stats.StatusCounts[order.Status]++
	}

	return stats
}
