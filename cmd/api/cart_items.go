package main

import (
	"net/http"

	"github.com/safar/go-sql-shop/internal/shop"
)

func (a *api) createCartItem(w http.ResponseWriter, r *http.Request) {
	var req shop.CreateCartItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.respondErr(w, r, err)
		return
	}

	item, err := a.svc.CreateCartItem(r.Context(), req)
	if err != nil {
		a.respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, item)
}

func (a *api) listCartItems(w http.ResponseWriter, r *http.Request) {
	items, err := a.svc.ListCartItems(r.Context())
	if err != nil {
		a.respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, items)
}

func (a *api) getCartItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.respondErr(w, r, err)
		return
	}

	item, err := a.svc.GetCartItem(r.Context(), id)
	if err != nil {
		a.respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, item)
}

func (a *api) updateCartItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.respondErr(w, r, err)
		return
	}

	var req shop.UpdateCartItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.respondErr(w, r, err)
		return
	}

	item, err := a.svc.UpdateCartItem(r.Context(), id, req)
	if err != nil {
		a.respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, item)
}

func (a *api) deleteCartItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.respondErr(w, r, err)
		return
	}

	item, err := a.svc.RemoveCartItem(r.Context(), id)
	if err != nil {
		a.respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, item)
}
