package main

import (
	"net/http"

	"github.com/safar/go-sql-shop/internal/shop"
)

func (a *api) login(w http.ResponseWriter, r *http.Request) {
	var req shop.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.respondErr(w, r, err)
		return
	}

	token, err := a.svc.Login(r.Context(), req)
	if err != nil {
		a.respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, token)
}

func (a *api) createUser(w http.ResponseWriter, r *http.Request) {
	var req shop.CreateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.respondErr(w, r, err)
		return
	}

	user, err := a.svc.CreateUser(r.Context(), req)
	if err != nil {
		a.respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, user)
}

func (a *api) listUsers(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)

	result, err := a.svc.ListUsers(r.Context(), page, pageSize)
	if err != nil {
		a.respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (a *api) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.respondErr(w, r, err)
		return
	}
	if err := requireSelf(r, id); err != nil {
		a.respondErr(w, r, err)
		return
	}

	user, err := a.svc.GetUser(r.Context(), id)
	if err != nil {
		a.respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

func (a *api) updateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.respondErr(w, r, err)
		return
	}
	if err := requireSelf(r, id); err != nil {
		a.respondErr(w, r, err)
		return
	}

	var req shop.UpdateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.respondErr(w, r, err)
		return
	}

	user, err := a.svc.UpdateUser(r.Context(), id, req)
	if err != nil {
		a.respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

func (a *api) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.respondErr(w, r, err)
		return
	}
	if err := requireSelf(r, id); err != nil {
		a.respondErr(w, r, err)
		return
	}

	user, err := a.svc.RemoveUser(r.Context(), id)
	if err != nil {
		a.respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}
