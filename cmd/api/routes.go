package main

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/safar/go-sql-shop/internal/auth"
	"github.com/safar/go-sql-shop/internal/idempotency"
	"github.com/safar/go-sql-shop/internal/metrics"
	"github.com/safar/go-sql-shop/internal/shop"
)

type api struct {
	svc         *shop.Service
	db          *sql.DB
	issuer      *auth.Issuer
	log         *slog.Logger
	metrics     *metrics.ServerMetrics
	gatherer    prometheus.Gatherer
	idempotency *idempotency.Middleware
}

func (a *api) routes() http.Handler {
	mux := http.NewServeMux()

	a.handle(mux, "POST /auth/login", "login", a.login)

	a.handle(mux, "POST /users", "create_user", a.createUser)
	a.handle(mux, "GET /users", "list_users", a.requireAuth(a.listUsers))
	a.handle(mux, "GET /users/{id}", "get_user", a.requireAuth(a.getUser))
	a.handle(mux, "PATCH /users/{id}", "update_user", a.requireAuth(a.updateUser))
	a.handle(mux, "DELETE /users/{id}", "delete_user", a.requireAuth(a.deleteUser))

	a.handle(mux, "POST /products", "create_product", a.createProduct)
	a.handle(mux, "GET /products", "list_products", a.listProducts)
	a.handle(mux, "GET /products/{id}", "get_product", a.getProduct)
	a.handle(mux, "PATCH /products/{id}", "update_product", a.updateProduct)
	a.handle(mux, "DELETE /products/{id}", "delete_product", a.deleteProduct)

	a.handle(mux, "POST /cart-items", "create_cart_item", a.createCartItem)
	a.handle(mux, "GET /cart-items", "list_cart_items", a.listCartItems)
	a.handle(mux, "GET /cart-items/{id}", "get_cart_item", a.getCartItem)
	a.handle(mux, "PATCH /cart-items/{id}", "update_cart_item", a.updateCartItem)
	a.handle(mux, "DELETE /cart-items/{id}", "delete_cart_item", a.deleteCartItem)

	a.handle(mux, "POST /orders", "create_order", a.createOrder)
	a.handle(mux, "POST /orders/checkout", "checkout", a.withIdempotency(a.checkout))
	a.handle(mux, "GET /orders", "list_orders", a.listOrders)
	a.handle(mux, "GET /orders/user/{userId}", "list_user_orders", a.listUserOrders)
	a.handle(mux, "GET /orders/user/{userId}/stats", "user_order_stats", a.userOrderStats)
	a.handle(mux, "GET /orders/{id}", "get_order", a.getOrder)
	a.handle(mux, "PATCH /orders/{id}", "update_order", a.updateOrder)
	a.handle(mux, "PATCH /orders/{id}/cancel", "cancel_order", a.cancelOrder)
	a.handle(mux, "DELETE /orders/{id}", "delete_order", a.deleteOrder)

	mux.HandleFunc("GET /healthz", a.healthz)
	if a.gatherer != nil {
		mux.Handle("GET /metrics", metrics.Handler(a.gatherer))
	}

	return a.logRequests(mux)
}

func (a *api) handle(mux *http.ServeMux, pattern, name string, h http.HandlerFunc) {
	var handler http.Handler = h
	if a.metrics != nil {
		handler = a.metrics.Wrap(name, handler)
	}
	mux.Handle(pattern, handler)
}

func (a *api) withIdempotency(h http.HandlerFunc) http.HandlerFunc {
	if a.idempotency == nil {
		return h
	}
	return a.idempotency.Wrap(h).ServeHTTP
}

func (a *api) healthz(w http.ResponseWriter, r *http.Request) {
	if err := a.db.PingContext(r.Context()); err != nil {
		a.log.WarnContext(r.Context(), "health check failed", slog.Any("err", err))
		respondError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
