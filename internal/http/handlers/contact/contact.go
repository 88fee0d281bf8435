// Package contact contains all HTTP handlers related to the Contact resource.
//
// HANDLER PATTERN USED HERE: THE CLOSURE / FACTORY PATTERN
// ────────────────────────────────────────────────────────
// Each exported function receives its dependency (the storage) once, when
// the route is registered, and returns the http.HandlerFunc that runs on
// every request:
//
//	r.HandleFunc("/contacts", contact.New(store)).Methods(http.MethodPost)
//
// Every handler makes exactly one storage call and writes exactly one
// response. Storage errors never escape: they become JSON envelopes.
package contact

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/aanand-mishra/contacts-api/internal/logger"
	"github.com/aanand-mishra/contacts-api/internal/storage"
	"github.com/aanand-mishra/contacts-api/internal/types"
	"github.com/aanand-mishra/contacts-api/internal/utils/response"
)

// Success messages.
const (
	MessageCreated   = "New Contact created successfully."
	MessageListed    = "Requested Contacts retrieved successfully."
	MessageRetrieved = "Requested Contact retrieved successfully."
	MessageUpdated   = "Requested Contact updated successfully."
	MessageDeleted   = "Requested Contact deleted successfully."
)

// Success envelopes. The payload key differs per route.
type (
	CreateResponse struct {
		Message string        `json:"message"`
		Data    types.Contact `json:"data"`
	}
	ListResponse struct {
		Message  string          `json:"message"`
		Contacts []types.Contact `json:"contacts"`
	}
	GetResponse struct {
		Message string        `json:"message"`
		Contact types.Contact `json:"contact"`
	}
	UpdateResponse struct {
		Message      string        `json:"message"`
		SavedContact types.Contact `json:"savedContact"`
	}
)

// ─────────────────────────────────────────────────────────────────────────────
// New handles POST /contacts
// Creates a new contact from the request body.
//
// Request body (JSON or urlencoded), every field optional:
//
//	{ "name": "Ada", "email": "ada@x.io", "country": "UK" }
//
// Success response (200 OK):
//
//	{ "message": "New Contact created successfully.",
//	  "data": { "id": "66f1…", "name": "Ada", "email": "ada@x.io", "country": "UK" } }
//
// Error responses:
//
//	400 Bad Request  — body cannot be decoded
//	500 Internal     — storage error
//
// ─────────────────────────────────────────────────────────────────────────────
func New(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		log.Info("creating a contact")

		fields, ok := readFields(w, r)
		if !ok {
			return
		}

		created, err := store.CreateContact(r.Context(), fields)
		if err != nil {
			writeStoreError(w, r, log, err, http.StatusInternalServerError)
			return
		}

		log.Info("contact created", slog.String("id", created.ID))
		response.WriteJSON(w, http.StatusOK, CreateResponse{Message: MessageCreated, Data: created})
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetList handles GET /contacts
// Returns every contact. An empty collection gives "contacts": [].
// ─────────────────────────────────────────────────────────────────────────────
func GetList(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		log.Info("getting all contacts")

		contacts, err := store.GetContacts(r.Context())
		if err != nil {
			writeStoreError(w, r, log, err, http.StatusInternalServerError)
			return
		}
		if contacts == nil {
			contacts = []types.Contact{}
		}

		response.WriteJSON(w, http.StatusOK, ListResponse{Message: MessageListed, Contacts: contacts})
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetByID handles GET /contacts/{id}
//
// Error responses:
//
//	404 Not Found    — no contact has that id
//	500 Internal     — storage error, including a malformed id
//
// ─────────────────────────────────────────────────────────────────────────────
func GetByID(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		log := logger.FromContext(r.Context()).With(slog.String("id", id))
		log.Info("getting a contact")

		c, err := store.GetContactByID(r.Context(), id)
		if err != nil {
			writeStoreError(w, r, log, err, http.StatusInternalServerError)
			return
		}

		response.WriteJSON(w, http.StatusOK, GetResponse{Message: MessageRetrieved, Contact: c})
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Update handles PUT /contacts/{id}
// Replaces name, email and country. Fields absent from the body are removed
// from the contact.
//
// Error responses:
//
//	400 Bad Request  — body cannot be decoded, or the store rejected the write
//	404 Not Found    — no contact has that id (nothing is created)
//	500 Internal     — any other storage error
//
// ─────────────────────────────────────────────────────────────────────────────
func Update(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		log := logger.FromContext(r.Context()).With(slog.String("id", id))
		log.Info("updating a contact")

		fields, ok := readFields(w, r)
		if !ok {
			return
		}

		saved, err := store.UpdateContactByID(r.Context(), id, fields)
		if errors.Is(err, storage.ErrRejected) {
			writeStoreError(w, r, log, err, http.StatusBadRequest)
			return
		}
		if err != nil {
			writeStoreError(w, r, log, err, http.StatusInternalServerError)
			return
		}

		log.Info("contact updated")
		response.WriteJSON(w, http.StatusOK, UpdateResponse{Message: MessageUpdated, SavedContact: saved})
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Delete handles DELETE /contacts/{id}
// Permanently removes a contact. A second delete of the same id is a 404.
// ─────────────────────────────────────────────────────────────────────────────
func Delete(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		log := logger.FromContext(r.Context()).With(slog.String("id", id))
		log.Info("deleting a contact")

		if _, err := store.DeleteContactByID(r.Context(), id); err != nil {
			writeStoreError(w, r, log, err, http.StatusInternalServerError)
			return
		}

		log.Info("contact deleted")
		response.WriteJSON(w, http.StatusOK, response.Message(MessageDeleted))
	}
}

// writeStoreError answers 404 for storage.ErrNotFound and status otherwise.
func writeStoreError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error, status int) {
	if errors.Is(err, storage.ErrNotFound) {
		log.Info("contact not found")
		response.WriteJSON(w, http.StatusNotFound, response.Message(response.MessageNotFound))
		return
	}

	level := slog.LevelError
	if status < http.StatusInternalServerError {
		level = slog.LevelWarn
	}
	log.Log(r.Context(), level, "storage error", slog.String("error", err.Error()), slog.Int("status", status))
	response.WriteJSON(w, status, response.Error(err))
}
