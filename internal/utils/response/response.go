// Package response provides helpers for writing consistent JSON HTTP responses.
//
// Every response of the contacts API is an envelope: a JSON object with at
// least a "message" key. Success responses add one payload key ("data",
// "contact", "contacts" or "savedContact"); error responses carry only
// the message.
package response

import (
	"encoding/json"
	"net/http"
)

// Response is the envelope for responses without a payload.
//
//	{ "message": "Requested Contact not found." }
type Response struct {
	Message string `json:"message"`
}

// Standard messages shared by every route.
const (
	MessageNotFound = "Requested Contact not found."
)

// ─────────────────────────────────────────────────────────────────────────────
// WriteJSON writes a JSON-encoded response with the given HTTP status code.
//
// IMPORTANT ORDER: Header() → WriteHeader() → body writes.
// Once WriteHeader is called (or the first Write), headers are locked.
// ─────────────────────────────────────────────────────────────────────────────
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// Message wraps a plain message into the envelope.
func Message(msg string) Response {
	return Response{Message: msg}
}

// Error wraps any Go error into the envelope. The error text is the message.
//
// Example usage:
//
//	response.WriteJSON(w, http.StatusInternalServerError,
//	    response.Error(err))
func Error(err error) Response {
	return Response{Message: err.Error()}
}
