package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/safar/go-sql-shop/internal/database"
	"github.com/safar/go-sql-shop/internal/models"
)

// Cart item joined with the user summary and the full product.
const cartItemColumns = `
	c.id, c.user_id, c.product_id, c.quantity, c.created_at, c.updated_at,
	u.id, u.email, u.name,
	p.id, p.sku, p.name, p.description, p.price, p.created_at, p.updated_at, p.version`

const cartItemJoin = `
	FROM cart_items c
	JOIN users u ON u.id = c.user_id
	JOIN products p ON p.id = c.product_id`

func scanCartItem(row rowScanner) (*models.CartItem, error) {
	item := &models.CartItem{
		User:    &models.UserSummary{},
		Product: &models.Product{},
	}
	err := row.Scan(
		&item.ID,
		&item.UserID,
		&item.ProductID,
		&item.Quantity,
		&item.CreatedAt,
		&item.UpdatedAt,
		&item.User.ID,
		&item.User.Email,
		&item.User.Name,
		&item.Product.ID,
		&item.Product.SKU,
		&item.Product.Name,
		&item.Product.Description,
		&item.Product.Price,
		&item.Product.CreatedAt,
		&item.Product.UpdatedAt,
		&item.Product.Version,
	)
	return item, err
}

func collectCartItems(rows *sql.Rows) ([]models.CartItem, error) {
	defer rows.Close()

	items := []models.CartItem{}
	for rows.Next() {
		item, err := scanCartItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, *item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

func InsertCartItem(ctx context.Context, q database.Querier, userID, productID uuid.UUID, quantity int) (uuid.UUID, error) {
	id := uuid.New()
	_, err := q.ExecContext(ctx,
		`INSERT INTO cart_items (id, user_id, product_id, quantity, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, NOW(), NOW())`,
		id, userID, productID, quantity)
	if err != nil {
		switch {
		case database.IsForeignKeyViolation(err, "cart_items_user_id_fkey"):
			return uuid.Nil, database.ErrUserNotFound
		case database.IsForeignKeyViolation(err, "cart_items_product_id_fkey"):
			return uuid.Nil, database.ErrProductNotFound
		}
		return uuid.Nil, fmt.Errorf("create cart item: %w", err)
	}
	return id, nil
}

func GetCartItem(ctx context.Context, q database.Querier, id uuid.UUID) (*models.CartItem, error) {
	query := `SELECT ` + cartItemColumns + cartItemJoin + ` WHERE c.id = $1`

	item, err := scanCartItem(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrCartItemNotFound
		}
		return nil, fmt.Errorf("get cart item: %w", err)
	}

	return item, nil
}

func ListCartItems(ctx context.Context, q database.Querier) ([]models.CartItem, error) {
	query := `SELECT ` + cartItemColumns + cartItemJoin + ` ORDER BY c.created_at, c.id`

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	return collectCartItems(rows)
}

func ListCartItemsByUser(ctx context.Context, q database.Querier, userID uuid.UUID) ([]models.CartItem, error) {
	query := `SELECT ` + cartItemColumns + cartItemJoin + `
		WHERE c.user_id = $1
		ORDER BY c.created_at, c.id`

	rows, err := q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list cart items for user: %w", err)
	}
	return collectCartItems(rows)
}

// LockCartItemsByUser reads the user's cart and row locks every item until
// tx ends. Concurrent quantity updates or removals of those items wait, and
// an update that committed first is the version returned here.
func LockCartItemsByUser(ctx context.Context, tx *sql.Tx, userID uuid.UUID) ([]models.CartItem, error) {
	query := `SELECT ` + cartItemColumns + cartItemJoin + `
		WHERE c.user_id = $1
		ORDER BY c.created_at, c.id
		FOR UPDATE OF c`

	rows, err := tx.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("lock cart items for user: %w", err)
	}
	return collectCartItems(rows)
}

func UpdateCartItemQuantity(ctx context.Context, q database.Querier, id uuid.UUID, quantity int) (*models.CartItem, error) {
	query := `
		UPDATE cart_items c
		SET quantity = $2,
		    updated_at = NOW()
		FROM users u, products p
		WHERE c.id = $1
		  AND u.id = c.user_id
		  AND p.id = c.product_id
		RETURNING ` + cartItemColumns

	item, err := scanCartItem(q.QueryRowContext(ctx, query, id, quantity))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrCartItemNotFound
		}
		return nil, fmt.Errorf("update cart item: %w", err)
	}

	return item, nil
}

// DeleteCartItem removes the item and returns it as it was before deletion.
func DeleteCartItem(ctx context.Context, q database.Querier, id uuid.UUID) (*models.CartItem, error) {
	query := `
		DELETE FROM cart_items c
		USING users u, products p
		WHERE c.id = $1
		  AND u.id = c.user_id
		  AND p.id = c.product_id
		RETURNING ` + cartItemColumns

	item, err := scanCartItem(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrCartItemNotFound
		}
		return nil, fmt.Errorf("delete cart item: %w", err)
	}

	return item, nil
}

// DeleteCartItems removes the given items of one user in a single statement.
// Zero matches is not an error.
func DeleteCartItems(ctx context.Context, q database.Querier, userID uuid.UUID, ids []uuid.UUID) (int64, error) {
	idStrings := make([]string, len(ids))
	for i, id := range ids {
		idStrings[i] = id.String()
	}

	result, err := q.ExecContext(ctx,
		`DELETE FROM cart_items WHERE user_id = $1 AND id = ANY($2::uuid[])`,
		userID, pq.Array(idStrings))
	if err != nil {
		return 0, fmt.Errorf("clear cart: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}

	return rowsAffected, nil
}
