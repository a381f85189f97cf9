package shop

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/safar/go-sql-shop/internal/auth"
	"github.com/safar/go-sql-shop/internal/database"
	"github.com/safar/go-sql-shop/internal/events"
	"github.com/safar/go-sql-shop/internal/models"
	"github.com/safar/go-sql-shop/internal/store"
	"github.com/safar/go-sql-shop/internal/store/storetest"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func mustIssuer(t *testing.T) *auth.Issuer {
	t.Helper()
	issuer, err := auth.NewIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("New issuer: %v", err)
	}
	return issuer
}

func newTestService(t *testing.T) (*Service, *sql.DB, *recordingPublisher) {
	db := storetest.NewDB(t)
	pub := &recordingPublisher{}
	return New(Deps{DB: db, Publisher: pub}), db, pub
}

func seedUser(t *testing.T, svc *Service, email string) *models.User {
	t.Helper()
	user, err := svc.CreateUser(context.Background(), CreateUserRequest{
		Email:    email,
		Name:     "Test User",
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("Create user: %v", err)
	}
	return user
}

func seedProduct(t *testing.T, svc *Service, sku string, price string) *models.Product {
	t.Helper()
	product, err := svc.CreateProduct(context.Background(), CreateProductRequest{
		SKU:   sku,
		Name:  "Product " + sku,
		Price: decimal.RequireFromString(price),
	})
	if err != nil {
		t.Fatalf("Create product: %v", err)
	}
	return product
}

func addToCart(t *testing.T, svc *Service, userID, productID uuid.UUID, quantity int) *models.CartItem {
	t.Helper()
	item, err := svc.CreateCartItem(context.Background(), CreateCartItemRequest{
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
	})
	if err != nil {
		t.Fatalf("Add to cart: %v", err)
	}
	return item
}

func cartSize(t *testing.T, db *sql.DB, userID uuid.UUID) int {
	t.Helper()
	items, err := store.ListCartItemsByUser(context.Background(), db, userID)
	if err != nil {
		t.Fatalf("List cart: %v", err)
	}
	return len(items)
}

func orderCount(t *testing.T, db *sql.DB, userID uuid.UUID) int {
	t.Helper()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM orders WHERE user_id = $1`, userID).Scan(&n); err != nil {
		t.Fatalf("Count orders: %v", err)
	}
	return n
}

func TestCreateOrderDefaultsToPending(t *testing.T) {
	svc, _, pub := newTestService(t)
	ctx := context.Background()

	user := seedUser(t, svc, "default@example.com")
	product := seedProduct(t, svc, "DEF-001", "9.99")

	order, err := svc.CreateOrder(ctx, CreateOrderRequest{UserID: user.ID, ProductID: product.ID, Quantity: 2})
	if err != nil {
		t.Fatalf("Create order: %v", err)
	}

	if order.Status != models.OrderStatusPending {
		t.Errorf("Expected pending, got %s", order.Status)
	}
	if order.User == nil || order.User.ID != user.ID || order.Product == nil || order.Product.ID != product.ID {
		t.Errorf("Expected joined user and product, got %+v %+v", order.User, order.Product)
	}
	if got := pub.types(); len(got) != 1 || got[0] != events.OrderCreated {
		t.Errorf("Expected one order.created event, got %v", got)
	}
}

func TestCreateOrderUnknownReferences(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	user := seedUser(t, svc, "unknown@example.com")
	product := seedProduct(t, svc, "UNK-001", "1.00")

	_, err := svc.CreateOrder(ctx, CreateOrderRequest{UserID: uuid.New(), ProductID: product.ID, Quantity: 1})
	if !errors.Is(err, database.ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}

	_, err = svc.CreateOrder(ctx, CreateOrderRequest{UserID: user.ID, ProductID: uuid.New(), Quantity: 1})
	if !errors.Is(err, database.ErrProductNotFound) {
		t.Errorf("Expected ErrProductNotFound, got %v", err)
	}

	if n := orderCount(t, db, user.ID); n != 0 {
		t.Errorf("Failed creates must not persist orders, found %d", n)
	}
}

func TestCancelOrder(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	user := seedUser(t, svc, "cancel@example.com")
	product := seedProduct(t, svc, "CAN-001", "3.00")

	order, err := svc.CreateOrder(ctx, CreateOrderRequest{UserID: user.ID, ProductID: product.ID, Quantity: 1})
	if err != nil {
		t.Fatalf("Create order: %v", err)
	}

	cancelled, err := svc.CancelOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("Cancel order: %v", err)
	}
	if cancelled.Status != models.OrderStatusCancelled {
		t.Errorf("Expected cancelled, got %s", cancelled.Status)
	}

	if _, err := svc.CancelOrder(ctx, order.ID); !errors.Is(err, database.ErrInvalidTransition) {
		t.Errorf("Second cancel should be ErrInvalidTransition, got %v", err)
	}

	if _, err := svc.CancelOrder(ctx, uuid.New()); !errors.Is(err, database.ErrOrderNotFound) {
		t.Errorf("Expected ErrOrderNotFound, got %v", err)
	}
}

func TestCancelDeliveredOrderLeavesStatus(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	user := seedUser(t, svc, "delivered@example.com")
	product := seedProduct(t, svc, "DLV-001", "3.00")

	delivered := models.OrderStatusDelivered
	order, err := svc.CreateOrder(ctx, CreateOrderRequest{UserID: user.ID, ProductID: product.ID, Quantity: 1, Status: &delivered})
	if err != nil {
		t.Fatalf("Create order: %v", err)
	}

	if _, err := svc.CancelOrder(ctx, order.ID); !errors.Is(err, database.ErrInvalidTransition) {
		t.Fatalf("Expected ErrInvalidTransition, got %v", err)
	}

	after, err := svc.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("Get order: %v", err)
	}
	if after.Status != models.OrderStatusDelivered || after.Version != order.Version {
		t.Errorf("Order should be untouched, got status %s version %d", after.Status, after.Version)
	}

	// Administrative update can still move it anywhere in the enumeration.
	pending := models.OrderStatusPending
	updated, err := svc.UpdateOrder(ctx, order.ID, UpdateOrderRequest{Status: &pending})
	if err != nil {
		t.Fatalf("Update order: %v", err)
	}
	if updated.Status != models.OrderStatusPending {
		t.Errorf("Expected pending after update, got %s", updated.Status)
	}
}

func TestUpdateOrderWithoutFieldsReturnsCurrent(t *testing.T) {
	svc, _, pub := newTestService(t)
	ctx := context.Background()

	user := seedUser(t, svc, "noop@example.com")
	product := seedProduct(t, svc, "NOP-001", "3.00")

	order, err := svc.CreateOrder(ctx, CreateOrderRequest{UserID: user.ID, ProductID: product.ID, Quantity: 4})
	if err != nil {
		t.Fatalf("Create order: %v", err)
	}

	same, err := svc.UpdateOrder(ctx, order.ID, UpdateOrderRequest{})
	if err != nil {
		t.Fatalf("Update order: %v", err)
	}
	if same.Version != order.Version || same.Quantity != 4 {
		t.Errorf("Empty update should not write, got %+v", same)
	}
	if len(pub.types()) != 1 {
		t.Errorf("Empty update should not publish, got %v", pub.types())
	}
}

func TestListUserOrders(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.ListUserOrders(ctx, uuid.New()); !errors.Is(err, database.ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound for unknown user, got %v", err)
	}

	user := seedUser(t, svc, "empty@example.com")
	orders, err := svc.ListUserOrders(ctx, user.ID)
	if err != nil {
		t.Fatalf("List orders: %v", err)
	}
	if orders == nil || len(orders) != 0 {
		t.Errorf("Expected empty non-nil slice, got %v", orders)
	}
}

func TestRemoveOrderReturnsPriorState(t *testing.T) {
	svc, _, pub := newTestService(t)
	ctx := context.Background()

	user := seedUser(t, svc, "remove@example.com")
	product := seedProduct(t, svc, "REM-001", "3.00")

	order, err := svc.CreateOrder(ctx, CreateOrderRequest{UserID: user.ID, ProductID: product.ID, Quantity: 6})
	if err != nil {
		t.Fatalf("Create order: %v", err)
	}

	removed, err := svc.RemoveOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("Remove order: %v", err)
	}
	if removed.ID != order.ID || removed.Quantity != 6 || removed.Status != models.OrderStatusPending {
		t.Errorf("Removed order does not match prior state: %+v", removed)
	}

	types := pub.types()
	if types[len(types)-1] != events.OrderDeleted {
		t.Errorf("Expected order.deleted last, got %v", types)
	}
}

func TestUnknownIDsFailWithoutSideEffects(t *testing.T) {
	svc, db, pub := newTestService(t)
	ctx := context.Background()

	user := seedUser(t, svc, "missing@example.com")
	product := seedProduct(t, svc, "MISS-001", "3.00")
	item := addToCart(t, svc, user.ID, product.ID, 2)
	order, err := svc.CreateOrder(ctx, CreateOrderRequest{UserID: user.ID, ProductID: product.ID, Quantity: 1})
	if err != nil {
		t.Fatalf("Create order: %v", err)
	}
	eventsBefore := len(pub.types())

	missing := uuid.New()
	shipped := models.OrderStatusShipped
	tests := []struct {
		name string
		want error
		call func() error
	}{
		{"update order", database.ErrOrderNotFound, func() error {
			_, err := svc.UpdateOrder(ctx, missing, UpdateOrderRequest{Quantity: ptr(3), Status: &shipped})
			return err
		}},
		{"cancel order", database.ErrOrderNotFound, func() error {
			_, err := svc.CancelOrder(ctx, missing)
			return err
		}},
		{"remove order", database.ErrOrderNotFound, func() error {
			_, err := svc.RemoveOrder(ctx, missing)
			return err
		}},
		{"get order", database.ErrOrderNotFound, func() error {
			_, err := svc.GetOrder(ctx, missing)
			return err
		}},
		{"update cart item", database.ErrCartItemNotFound, func() error {
			_, err := svc.UpdateCartItem(ctx, missing, UpdateCartItemRequest{Quantity: ptr(9)})
			return err
		}},
		{"remove cart item", database.ErrCartItemNotFound, func() error {
			_, err := svc.RemoveCartItem(ctx, missing)
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}

	after, err := svc.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("Get order: %v", err)
	}
	if after.Version != order.Version || after.Quantity != 1 || after.Status != models.OrderStatusPending {
		t.Errorf("Existing order changed: %+v", after)
	}

	cartAfter, err := svc.GetCartItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("Get cart item: %v", err)
	}
	if cartAfter.Quantity != 2 {
		t.Errorf("Existing cart item changed: %+v", cartAfter)
	}

	if n := orderCount(t, db, user.ID); n != 1 {
		t.Errorf("Expected 1 order, got %d", n)
	}
	if got := len(pub.types()); got != eventsBefore {
		t.Errorf("Failed operations must not publish, events went from %d to %d", eventsBefore, got)
	}
}

func TestCheckoutConvertsCart(t *testing.T) {
	svc, db, pub := newTestService(t)
	ctx := context.Background()

	user := seedUser(t, svc, "checkout@example.com")
	p1 := seedProduct(t, svc, "CHK-001", "10.00")
	p2 := seedProduct(t, svc, "CHK-002", "2.50")

	addToCart(t, svc, user.ID, p1.ID, 2)
	addToCart(t, svc, user.ID, p2.ID, 3)

	orders, err := svc.Checkout(ctx, CheckoutRequest{UserID: user.ID})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	if len(orders) != 2 {
		t.Fatalf("Expected 2 orders, got %d", len(orders))
	}
	want := []struct {
		product  uuid.UUID
		quantity int
	}{{p1.ID, 2}, {p2.ID, 3}}
	for i, o := range orders {
		if o.ProductID != want[i].product || o.Quantity != want[i].quantity {
			t.Errorf("Order %d: expected %s x%d, got %s x%d", i, want[i].product, want[i].quantity, o.ProductID, o.Quantity)
		}
		if o.Status != models.OrderStatusPending {
			t.Errorf("Order %d: expected pending, got %s", i, o.Status)
		}
		if o.User == nil || o.Product == nil {
			t.Errorf("Order %d should be joined", i)
		}
	}

	if n := cartSize(t, db, user.ID); n != 0 {
		t.Errorf("Cart should be empty after checkout, has %d items", n)
	}

	types := pub.types()
	if types[len(types)-1] != events.CheckoutCompleted {
		t.Errorf("Expected checkout.completed last, got %v", types)
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	user := seedUser(t, svc, "emptycart@example.com")

	_, err := svc.Checkout(ctx, CheckoutRequest{UserID: user.ID})
	if !errors.Is(err, database.ErrCartEmpty) || !errors.Is(err, database.ErrInvalidState) {
		t.Errorf("Expected ErrCartEmpty, got %v", err)
	}
	if n := orderCount(t, db, user.ID); n != 0 {
		t.Errorf("Expected no orders, got %d", n)
	}

	if _, err := svc.Checkout(ctx, CheckoutRequest{UserID: uuid.New()}); !errors.Is(err, database.ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound for unknown user, got %v", err)
	}
}

func TestCheckoutRollsBackOnFailure(t *testing.T) {
	svc, db, pub := newTestService(t)
	ctx := context.Background()

	user := seedUser(t, svc, "rollback@example.com")
	good := seedProduct(t, svc, "RB-001", "1.00")
	bad := seedProduct(t, svc, "RB-002", "1.00")

	addToCart(t, svc, user.ID, good.ID, 1)
	addToCart(t, svc, user.ID, bad.ID, 1)

	_, err := db.Exec(fmt.Sprintf(`
		CREATE FUNCTION reject_order() RETURNS trigger AS $$
		BEGIN
			IF NEW.product_id = '%s' THEN
				RAISE EXCEPTION 'order rejected';
			END IF;
			RETURN NEW;
		END;
		$$ LANGUAGE plpgsql;
		CREATE TRIGGER reject_order BEFORE INSERT ON orders
			FOR EACH ROW EXECUTE FUNCTION reject_order();`, bad.ID))
	if err != nil {
		t.Fatalf("Install trigger: %v", err)
	}

	if _, err := svc.Checkout(ctx, CheckoutRequest{UserID: user.ID}); err == nil {
		t.Fatal("Expected checkout to fail")
	}

	if n := orderCount(t, db, user.ID); n != 0 {
		t.Errorf("Failed checkout must leave no orders, found %d", n)
	}
	if n := cartSize(t, db, user.ID); n != 2 {
		t.Errorf("Failed checkout must leave the cart intact, has %d items", n)
	}
	for _, typ := range pub.types() {
		if typ == events.CheckoutCompleted {
			t.Error("Failed checkout must not publish checkout.completed")
		}
	}
}

func TestConcurrentCheckoutCreatesNoDuplicates(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	user := seedUser(t, svc, "race@example.com")
	product := seedProduct(t, svc, "RACE-001", "1.00")
	for i := 0; i < 3; i++ {
		addToCart(t, svc, user.ID, product.ID, i+1)
	}

	const concurrency = 5
	var mu sync.Mutex
	successes, emptyCarts := 0, 0

	var g errgroup.Group
	for i := 0; i < concurrency; i++ {
		g.Go(func() error {
			_, err := svc.Checkout(ctx, CheckoutRequest{UserID: user.ID})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, database.ErrCartEmpty):
				emptyCarts++
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("Unexpected checkout error: %v", err)
	}

	if successes != 1 || emptyCarts != concurrency-1 {
		t.Errorf("Expected 1 success and %d empty carts, got %d and %d", concurrency-1, successes, emptyCarts)
	}
	if n := orderCount(t, db, user.ID); n != 3 {
		t.Errorf("Expected exactly 3 orders, got %d", n)
	}
}

func TestCheckoutWaitsForPendingQuantityChange(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	user := seedUser(t, svc, "pending-qty@example.com")
	product := seedProduct(t, svc, "PQ-001", "2.00")
	item := addToCart(t, svc, user.ID, product.ID, 1)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("Begin tx: %v", err)
	}
	if _, err := store.UpdateCartItemQuantity(ctx, tx, item.ID, 5); err != nil {
		tx.Rollback()
		t.Fatalf("Update quantity: %v", err)
	}

	var g errgroup.Group
	var orders []models.Order
	g.Go(func() error {
		var err error
		orders, err = svc.Checkout(ctx, CheckoutRequest{UserID: user.ID})
		return err
	})

	time.Sleep(200 * time.Millisecond)
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit quantity change: %v", err)
	}

	if err := g.Wait(); err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if len(orders) != 1 || orders[0].Quantity != 5 {
		t.Fatalf("Checkout should order the committed quantity 5, got %+v", orders)
	}
	if n := cartSize(t, db, user.ID); n != 0 {
		t.Errorf("Cart should be empty, has %d items", n)
	}
}

func TestQuantityUpdateRacingCheckoutIsNeverLost(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	product := seedProduct(t, svc, "RQ-001", "2.00")

	for round := 0; round < 5; round++ {
		user := seedUser(t, svc, fmt.Sprintf("race-qty-%d@example.com", round))
		item := addToCart(t, svc, user.ID, product.ID, 1)

		var (
			g         errgroup.Group
			orders    []models.Order
			updateErr error
		)
		g.Go(func() error {
			var err error
			orders, err = svc.Checkout(ctx, CheckoutRequest{UserID: user.ID})
			return err
		})
		g.Go(func() error {
			_, updateErr = svc.UpdateCartItem(ctx, item.ID, UpdateCartItemRequest{Quantity: ptr(5)})
			return nil
		})
		if err := g.Wait(); err != nil {
			t.Fatalf("Round %d checkout: %v", round, err)
		}

		if len(orders) != 1 {
			t.Fatalf("Round %d: expected 1 order, got %d", round, len(orders))
		}
		switch {
		case updateErr == nil:
			if orders[0].Quantity != 5 {
				t.Errorf("Round %d: update committed but order has quantity %d", round, orders[0].Quantity)
			}
		case errors.Is(updateErr, database.ErrCartItemNotFound):
			if orders[0].Quantity != 1 {
				t.Errorf("Round %d: update failed but order has quantity %d", round, orders[0].Quantity)
			}
		default:
			t.Fatalf("Round %d update: %v", round, updateErr)
		}

		if n := cartSize(t, db, user.ID); n != 0 {
			t.Errorf("Round %d: cart should be empty, has %d items", round, n)
		}
	}
}

func TestCheckoutPublishFailureIsNotSurfaced(t *testing.T) {
	svc, _, pub := newTestService(t)
	pub.err = errors.New("broker down")
	ctx := context.Background()

	user := seedUser(t, svc, "broker@example.com")
	product := seedProduct(t, svc, "BRK-001", "1.00")
	addToCart(t, svc, user.ID, product.ID, 1)

	orders, err := svc.Checkout(ctx, CheckoutRequest{UserID: user.ID})
	if err != nil {
		t.Fatalf("Checkout should succeed despite publish failure: %v", err)
	}
	if len(orders) != 1 {
		t.Errorf("Expected 1 order, got %d", len(orders))
	}
}

func TestUserOrderStats(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	user := seedUser(t, svc, "stats@example.com")
	ten := seedProduct(t, svc, "STAT-010", "10.00")
	five := seedProduct(t, svc, "STAT-005", "5.00")

	if _, err := svc.CreateOrder(ctx, CreateOrderRequest{UserID: user.ID, ProductID: ten.ID, Quantity: 2}); err != nil {
		t.Fatalf("Create order: %v", err)
	}
	second, err := svc.CreateOrder(ctx, CreateOrderRequest{UserID: user.ID, ProductID: five.ID, Quantity: 1})
	if err != nil {
		t.Fatalf("Create order: %v", err)
	}
	if _, err := svc.CancelOrder(ctx, second.ID); err != nil {
		t.Fatalf("Cancel order: %v", err)
	}

	stats, err := svc.UserOrderStats(ctx, user.ID)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}

	if stats.TotalOrders != 2 {
		t.Errorf("Expected 2 orders, got %d", stats.TotalOrders)
	}
	if !stats.TotalSpent.Equal(decimal.NewFromInt(25)) {
		t.Errorf("Expected total spent 25, got %s", stats.TotalSpent)
	}
	if stats.StatusCounts[models.OrderStatusPending] != 1 || stats.StatusCounts[models.OrderStatusCancelled] != 1 {
		t.Errorf("Unexpected status counts: %v", stats.StatusCounts)
	}

	if _, err := svc.UserOrderStats(ctx, uuid.New()); !errors.Is(err, database.ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
}

func TestCartItemManager(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	user := seedUser(t, svc, "cartmgr@example.com")
	product := seedProduct(t, svc, "CM-001", "4.00")

	if _, err := svc.CreateCartItem(ctx, CreateCartItemRequest{UserID: uuid.New(), ProductID: product.ID, Quantity: 1}); !errors.Is(err, database.ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
	if _, err := svc.CreateCartItem(ctx, CreateCartItemRequest{UserID: user.ID, ProductID: uuid.New(), Quantity: 1}); !errors.Is(err, database.ErrProductNotFound) {
		t.Errorf("Expected ErrProductNotFound, got %v", err)
	}

	item := addToCart(t, svc, user.ID, product.ID, 1)
	if item.User == nil || item.User.Email != "cartmgr@example.com" || item.Product == nil {
		t.Errorf("Expected joined cart item, got %+v", item)
	}

	updated, err := svc.UpdateCartItem(ctx, item.ID, UpdateCartItemRequest{Quantity: ptr(7)})
	if err != nil {
		t.Fatalf("Update cart item: %v", err)
	}
	if updated.Quantity != 7 {
		t.Errorf("Expected quantity 7, got %d", updated.Quantity)
	}

	removed, err := svc.RemoveCartItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("Remove cart item: %v", err)
	}
	if removed.Quantity != 7 {
		t.Errorf("Removed item should report quantity 7, got %d", removed.Quantity)
	}

	if _, err := svc.GetCartItem(ctx, item.ID); !errors.Is(err, database.ErrCartItemNotFound) {
		t.Errorf("Expected ErrCartItemNotFound, got %v", err)
	}
	if _, err := svc.UpdateCartItem(ctx, item.ID, UpdateCartItemRequest{Quantity: ptr(1)}); !errors.Is(err, database.ErrCartItemNotFound) {
		t.Errorf("Expected ErrCartItemNotFound on update, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	db := storetest.NewDB(t)
	issuer := mustIssuer(t)
	svc := New(Deps{DB: db, Issuer: issuer})
	ctx := context.Background()

	user := seedUser(t, svc, "login@example.com")

	token, err := svc.Login(ctx, LoginRequest{Email: "login@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	claims, err := issuer.Verify(token.AccessToken)
	if err != nil {
		t.Fatalf("Verify token: %v", err)
	}
	if claims.Subject != user.ID.String() {
		t.Errorf("Expected subject %s, got %s", user.ID, claims.Subject)
	}

	for _, req := range []LoginRequest{
		{Email: "login@example.com", Password: "wrong-password"},
		{Email: "nobody@example.com", Password: "correct-horse"},
	} {
		if _, err := svc.Login(ctx, req); !errors.Is(err, database.ErrBadCredentials) {
			t.Errorf("Login(%s): expected ErrBadCredentials, got %v", req.Email, err)
		}
	}
}
