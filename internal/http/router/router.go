// Package router assembles the HTTP handler of the service.
//
// Route table:
//
//	POST   /contacts        → create a new contact
//	GET    /contacts        → list all contacts
//	GET    /contacts/{id}   → get one contact by ID
//	PUT    /contacts/{id}   → update a contact
//	DELETE /contacts/{id}   → delete a contact
//	GET    /healthz         → the process is up
//	GET    /readyz          → the store answers a ping
//	GET    /metrics         → Prometheus exposition
package router

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/VictoriaMetrics/metrics"
	"github.com/gorilla/mux"

	"github.com/aanand-mishra/contacts-api/internal/http/handlers/contact"
	"github.com/aanand-mishra/contacts-api/internal/http/middleware"
	"github.com/aanand-mishra/contacts-api/internal/storage"
	"github.com/aanand-mishra/contacts-api/internal/utils/response"
)

// New returns the service handler. Request metrics are registered in set.
func New(store storage.Storage, log *slog.Logger, set *metrics.Set) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(cannot)
	r.MethodNotAllowedHandler = http.HandlerFunc(cannot)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		response.WriteJSON(w, http.StatusOK, response.Message("ok"))
	}).Methods(http.MethodGet)

	r.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(r.Context()); err != nil {
			response.WriteJSON(w, http.StatusServiceUnavailable, response.Error(err))
			return
		}
		response.WriteJSON(w, http.StatusOK, response.Message("ok"))
	}).Methods(http.MethodGet)

	r.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		set.WritePrometheus(w)
		metrics.WriteProcessMetrics(w)
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/contacts").Subrouter()
	api.NotFoundHandler = r.NotFoundHandler
	api.MethodNotAllowedHandler = r.MethodNotAllowedHandler
	api.Use(
		middleware.Logger(log),
		middleware.Metrics(set),
		middleware.Recover(),
	)
	// "/contacts/" is the collection too
	for _, path := range []string{"", "/"} {
		api.HandleFunc(path, contact.New(store)).Methods(http.MethodPost)
		api.HandleFunc(path, contact.GetList(store)).Methods(http.MethodGet)
	}
	api.HandleFunc("/{id}", contact.GetByID(store)).Methods(http.MethodGet)
	api.HandleFunc("/{id}", contact.Update(store)).Methods(http.MethodPut)
	api.HandleFunc("/{id}", contact.Delete(store)).Methods(http.MethodDelete)

	return r
}

// cannot answers unknown routes and methods with a JSON envelope.
func cannot(w http.ResponseWriter, r *http.Request) {
	response.WriteJSON(w, http.StatusNotFound, response.Message(fmt.Sprintf("Cannot %s %s", r.Method, r.URL.Path)))
}
