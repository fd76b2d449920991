package response

import (
	"encoding/json"
	"net/http"
)

// JSON writes data with the given status. Responses are never cached since
// balances and session state change underneath them.
func JSON(w http.ResponseWriter, status int, data any) {
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// OK writes a 200 JSON response
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Created writes a 201 JSON response pointing at the new resource
func Created(w http.ResponseWriter, location string, data any) {
	w.Header().Set("Location", location)
	JSON(w, http.StatusCreated, data)
}

// NoContent writes a 204 response
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
