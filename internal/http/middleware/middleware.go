// Package middleware holds the gorilla/mux middlewares wrapped around every
// API route: request id and access log, metrics, panic recovery.
package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/aanand-mishra/contacts-api/internal/logger"
	"github.com/aanand-mishra/contacts-api/internal/utils/response"
)

// HeaderRequestID is read from the request and echoed on the response.
const HeaderRequestID = "X-Request-Id"

// statusRecorder remembers the status code written by the handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// Status is the written status, or 200 when the handler wrote nothing.
func (r *statusRecorder) Status() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

func record(w http.ResponseWriter) *statusRecorder {
	if rec, ok := w.(*statusRecorder); ok {
		return rec
	}
	return &statusRecorder{ResponseWriter: w}
}

// routeTemplate is the matched route pattern, e.g. "/contacts/{id}", so
// that log lines and metric labels do not grow with every id.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}

// Logger returns a middleware that stores a request-scoped *slog.Logger in
// the request context and logs the request after it has terminated.
func Logger(parent *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(HeaderRequestID)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(HeaderRequestID, id)
			log := parent.With(slog.String("request_id", id))

			rec, start := record(w), time.Now()
			next.ServeHTTP(rec, r.WithContext(logger.WithContext(r.Context(), log)))

			log.LogAttrs(r.Context(), slog.LevelInfo,
				strings.Join([]string{r.Method, routeTemplate(r), r.Proto}, " "),
				slog.String("from", r.RemoteAddr),
				slog.String("ua", r.UserAgent()),
				slog.Int("status", rec.Status()),
				slog.Duration("dur", time.Since(start)),
			)
		})
	}
}

// Metrics returns a middleware counting requests and timing them per
// method, route and status in set.
func Metrics(set *metrics.Set) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec, start := record(w), time.Now()
			next.ServeHTTP(rec, r)

			labels := `{method="` + r.Method + `",path="` + routeTemplate(r) + `",status="` + strconv.Itoa(rec.Status()) + `"}`
			set.GetOrCreateCounter("http_requests_total" + labels).Inc()
			set.GetOrCreateHistogram("http_request_duration_seconds" + labels).UpdateDuration(start)
		})
	}
}

// Recover returns a middleware that recovers from a panic in the handler,
// logs the value and answers 500 with a JSON envelope if nothing was
// written yet.
func Recover() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := record(w)
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}
				logger.FromContext(r.Context()).Error("panic occurred", slog.Any("recovered", v))
				if rec.status == 0 {
					response.WriteJSON(rec, http.StatusInternalServerError,
						response.Message(http.StatusText(http.StatusInternalServerError)))
				}
			}()
			next.ServeHTTP(rec, r)
		})
	}
}
