package httpx

import (
	"encoding/json"
	"net/http"
)

// Envelope status values. Every body the bridge writes carries one.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// WriteJSON writes a JSON response with the given status code.
// It automatically sets the Content-Type header and Cache-Control headers.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// ErrorBody is the failure envelope.
type ErrorBody struct {
	Status  string `json:"status" example:"error"`
	Mensaje string `json:"mensaje" example:"account inactive"`
}

// WriteError writes {"status":"error","mensaje":reason} with the given code.
func WriteError(w http.ResponseWriter, code int, reason string) {
	WriteJSON(w, code, ErrorBody{Status: StatusError, Mensaje: reason})
}

// NoCache sets the Cache-Control and Pragma headers to prevent caching.
// Token responses must never be cached.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}
