package main

import (
	"net/http"
	"strconv"

	"github.com/safar/go-sql-shop/internal/database"
	"github.com/safar/go-sql-shop/internal/shop"
)

func (a *api) createOrder(w http.ResponseWriter, r *http.Request) {
	var req shop.CreateOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.respondErr(w, r, err)
		return
	}

	order, err := a.svc.CreateOrder(r.Context(), req)
	if err != nil {
		a.respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, order)
}

func (a *api) checkout(w http.ResponseWriter, r *http.Request) {
	var req shop.CheckoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.respondErr(w, r, err)
		return
	}

	orders, err := a.svc.Checkout(r.Context(), req)
	if err != nil {
		a.respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, orders)
}

func (a *api) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := a.svc.ListOrders(r.Context())
	if err != nil {
		a.respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, orders)
}

// listUserOrders returns the full list, or a cursor page when limit or
// cursor is given.
func (a *api) listUserOrders(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		a.respondErr(w, r, err)
		return
	}

	q := r.URL.Query()
	if !q.Has("limit") && !q.Has("cursor") {
		orders, err := a.svc.ListUserOrders(r.Context(), userID)
		if err != nil {
			a.respondErr(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, orders)
		return
	}

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			a.respondErr(w, r, database.InvalidInput("limit must be a positive integer"))
			return
		}
	}

	page, err := a.svc.ListUserOrdersPage(r.Context(), userID, q.Get("cursor"), limit)
	if err != nil {
		a.respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, page)
}

func (a *api) userOrderStats(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		a.respondErr(w, r, err)
		return
	}

	stats, err := a.svc.UserOrderStats(r.Context(), userID)
	if err != nil {
		a.respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

func (a *api) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.respondErr(w, r, err)
		return
	}

	order, err := a.svc.GetOrder(r.Context(), id)
	if err != nil {
		a.respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

func (a *api) updateOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.respondErr(w, r, err)
		return
	}

	var req shop.UpdateOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.respondErr(w, r, err)
		return
	}

	order, err := a.svc.UpdateOrder(r.Context(), id, req)
	if err != nil {
		a.respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

func (a *api) cancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.respondErr(w, r, err)
		return
	}

	order, err := a.svc.CancelOrder(r.Context(), id)
	if err != nil {
		a.respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

func (a *api) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.respondErr(w, r, err)
		return
	}

	order, err := a.svc.RemoveOrder(r.Context(), id)
	if err != nil {
		a.respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}
