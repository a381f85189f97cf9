package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/safar/go-sql-shop/internal/database"
	"github.com/safar/go-sql-shop/internal/models"
)

// Order joined with the user summary and the full product.
const orderColumns = `
	o.id, o.user_id, o.product_id, o.quantity, o.status, o.created_at, o.updated_at, o.version,
	u.id, u.email, u.name,
	p.id, p.sku, p.name, p.description, p.price, p.created_at, p.updated_at, p.version`

const orderJoin = `
	FROM orders o
	JOIN users u ON u.id = o.user_id
	JOIN products p ON p.id = o.product_id`

type OrderUpdate struct {
	Quantity *int
	Status   *models.OrderStatus
}

func scanOrder(row rowScanner) (*models.Order, error) {
	order := &models.Order{
		User:    &models.UserSummary{},
		Product: &models.Product{},
	}
	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.ProductID,
		&order.Quantity,
		&order.Status,
		&order.CreatedAt,
		&order.UpdatedAt,
		&order.Version,
		&order.User.ID,
		&order.User.Email,
		&order.User.Name,
		&order.Product.ID,
		&order.Product.SKU,
		&order.Product.Name,
		&order.Product.Description,
		&order.Product.Price,
		&order.Product.CreatedAt,
		&order.Product.UpdatedAt,
		&order.Product.Version,
	)
	return order, err
}

func collectOrders(rows *sql.Rows) ([]models.Order, error) {
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}

func InsertOrder(ctx context.Context, q database.Querier, userID, productID uuid.UUID, quantity int, status models.OrderStatus) (uuid.UUID, error) {
	id := uuid.New()
	_, err := q.ExecContext(ctx,
		`INSERT INTO orders (id, user_id, product_id, quantity, status, created_at, updated_at, version)
		 VALUES ($1, $2, $3, $4, $5, clock_timestamp(), clock_timestamp(), 1)`,
		id, userID, productID, quantity, status)
	if err != nil {
		switch {
		case database.IsForeignKeyViolation(err, "orders_user_id_fkey"):
			return uuid.Nil, database.ErrUserNotFound
		case database.IsForeignKeyViolation(err, "orders_product_id_fkey"):
			return uuid.Nil, database.ErrProductNotFound
		}
		return uuid.Nil, fmt.Errorf("create order: %w", err)
	}
	return id, nil
}

func GetOrder(ctx context.Context, q database.Querier, id uuid.UUID) (*models.Order, error) {
	query := `SELECT ` + orderColumns + orderJoin + ` WHERE o.id = $1`

	order, err := scanOrder(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	return order, nil
}

// LockOrderStatus reads the order's status under a row lock held until tx ends.
func LockOrderStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID) (models.OrderStatus, error) {
	var status models.OrderStatus
	err := tx.QueryRowContext(ctx,
		`SELECT status FROM orders WHERE id = $1 FOR UPDATE`,
		id).Scan(&status)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", database.ErrOrderNotFound
		}
		return "", fmt.Errorf("lock order: %w", err)
	}
	return status, nil
}

func ListOrders(ctx context.Context, q database.Querier) ([]models.Order, error) {
	query := `SELECT ` + orderColumns + orderJoin + ` ORDER BY o.created_at DESC, o.id DESC`

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return collectOrders(rows)
}

func ListOrdersByUser(ctx context.Context, q database.Querier, userID uuid.UUID) ([]models.Order, error) {
	query := `SELECT ` + orderColumns + orderJoin + `
		WHERE o.user_id = $1
		ORDER BY o.created_at DESC, o.id DESC`

	rows, err := q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders for user: %w", err)
	}
	return collectOrders(rows)
}

func ListOrdersCursor(ctx context.Context, q database.Querier, userID uuid.UUID, cursor string, limit int) (*CursorPage, error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, database.InvalidInput("malformed cursor")
	}

	query := `SELECT ` + orderColumns + orderJoin + `
		WHERE o.user_id = $1
		  AND (o.created_at, o.id) < ($2, $3)
		ORDER BY o.created_at DESC, o.id DESC
		LIMIT $4`

	rows, err := q.QueryContext(ctx, query, userID, cursorData.CreatedAt, cursorData.ID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	orders, err := collectOrders(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		lastOrder := orders[len(orders)-1]
		nextCursor = EncodeCursor(OrderCursor{
			CreatedAt: lastOrder.CreatedAt,
			ID:        lastOrder.ID,
		})
	}

	return &CursorPage{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// UpdateOrder applies the non-nil fields of upd and returns the joined record.
func UpdateOrder(ctx context.Context, q database.Querier, id uuid.UUID, upd OrderUpdate) (*models.Order, error) {
	query := `
		UPDATE orders o
		SET quantity = COALESCE($2, o.quantity),
		    status = COALESCE($3, o.status),
		    updated_at = clock_timestamp(),
		    version = o.version + 1
		FROM users u, products p
		WHERE o.id = $1
		  AND u.id = o.user_id
		  AND p.id = o.product_id
		RETURNING ` + orderColumns

	order, err := scanOrder(q.QueryRowContext(ctx, query, id, upd.Quantity, upd.Status))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("update order: %w", err)
	}

	return order, nil
}

// DeleteOrder removes the order and returns it as it was before deletion.
func DeleteOrder(ctx context.Context, q database.Querier, id uuid.UUID) (*models.Order, error) {
	query := `
		DELETE FROM orders o
		USING users u, products p
		WHERE o.id = $1
		  AND u.id = o.user_id
		  AND p.id = o.product_id
		RETURNING ` + orderColumns

	order, err := scanOrder(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("delete order: %w", err)
	}

	return order, nil
}
