package main

import (
	"net/http"

	"github.com/safar/go-sql-shop/internal/shop"
)

func (a *api) createProduct(w http.ResponseWriter, r *http.Request) {
	var req shop.CreateProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.respondErr(w, r, err)
		return
	}

	product, err := a.svc.CreateProduct(r.Context(), req)
	if err != nil {
		a.respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, product)
}

func (a *api) listProducts(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)

	result, err := a.svc.ListProducts(r.Context(), page, pageSize)
	if err != nil {
		a.respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (a *api) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.respondErr(w, r, err)
		return
	}

	product, err := a.svc.GetProduct(r.Context(), id)
	if err != nil {
		a.respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, product)
}

func (a *api) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.respondErr(w, r, err)
		return
	}

	var req shop.UpdateProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.respondErr(w, r, err)
		return
	}

	product, err := a.svc.UpdateProduct(r.Context(), id, req)
	if err != nil {
		a.respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, product)
}

func (a *api) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.respondErr(w, r, err)
		return
	}

	product, err := a.svc.RemoveProduct(r.Context(), id)
	if err != nil {
		a.respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, product)
}
