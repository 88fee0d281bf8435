package router_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/VictoriaMetrics/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/contacts-api/internal/http/middleware"
	"github.com/aanand-mishra/contacts-api/internal/http/router"
	"github.com/aanand-mishra/contacts-api/internal/storage"
	"github.com/aanand-mishra/contacts-api/internal/storage/memory"
	"github.com/aanand-mishra/contacts-api/internal/types"
)

// envelope is the union of every response shape.
type envelope struct {
	Message      string          `json:"message"`
	Data         *types.Contact  `json:"data"`
	Contact      *types.Contact  `json:"contact"`
	Contacts     []types.Contact `json:"contacts"`
	SavedContact *types.Contact  `json:"savedContact"`
}

func newServer(t *testing.T, store storage.Storage) *httptest.Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(router.New(store, log, metrics.NewSet()))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, contentType, body string) (int, envelope, map[string]any) {
	t.Helper()

	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "application/json; charset=utf-8", resp.Header.Get("Content-Type"))

	var env envelope
	require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	var generic map[string]any
	require.NoError(t, json.Unmarshal(raw, &generic))
	return resp.StatusCode, env, generic
}

func doJSON(t *testing.T, srv *httptest.Server, method, path, body string) (int, envelope, map[string]any) {
	t.Helper()
	return do(t, srv, method, path, "application/json", body)
}

func TestCreate(t *testing.T) {
	srv := newServer(t, memory.New())

	status, env, raw := doJSON(t, srv, http.MethodPost, "/contacts", `{"name":"Ada","email":"ada@x.io","country":"UK"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "New Contact created successfully.", env.Message)
	require.NotNil(t, env.Data)
	assert.NotEmpty(t, env.Data.ID)
	assert.Equal(t, "Ada", *env.Data.Name)
	assert.Equal(t, "ada@x.io", *env.Data.Email)
	assert.Equal(t, "UK", *env.Data.Country)
	assert.Len(t, raw, 2)
}

func TestCreateThenGet(t *testing.T) {
	srv := newServer(t, memory.New())

	_, created, _ := doJSON(t, srv, http.MethodPost, "/contacts", `{"name":"Ada","country":"UK"}`)
	require.NotNil(t, created.Data)

	status, got, raw := doJSON(t, srv, http.MethodGet, "/contacts/"+created.Data.ID, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Requested Contact retrieved successfully.", got.Message)
	assert.Equal(t, created.Data, got.Contact)

	// absent attributes are omitted, not null
	contact := raw["contact"].(map[string]any)
	assert.NotContains(t, contact, "email")
}

func TestCreateFormEncoded(t *testing.T) {
	srv := newServer(t, memory.New())

	form := url.Values{"name": {"Ada"}, "email": {""}}
	status, env, _ := do(t, srv, http.MethodPost, "/contacts", "application/x-www-form-urlencoded", form.Encode())
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, env.Data)
	assert.Equal(t, "Ada", *env.Data.Name)
	require.NotNil(t, env.Data.Email)
	assert.Empty(t, *env.Data.Email)
	assert.Nil(t, env.Data.Country)
}

func TestCreateWithoutFields(t *testing.T) {
	for name, req := range map[string][2]string{
		"empty json body":      {"application/json", ""},
		"empty object":         {"application/json", "{}"},
		"no content type":      {"", `{"name":"ignored"}`},
		"unsupported content":  {"text/plain", "name=ignored"},
		"unknown keys ignored": {"application/json", `{"phone":"123"}`},
	} {
		t.Run(name, func(t *testing.T) {
			srv := newServer(t, memory.New())

			status, env, _ := do(t, srv, http.MethodPost, "/contacts", req[0], req[1])
			require.Equal(t, http.StatusOK, status)
			require.NotNil(t, env.Data)
			assert.NotEmpty(t, env.Data.ID)
			assert.Equal(t, types.Contact{ID: env.Data.ID}, *env.Data)
		})
	}
}

func TestCreateBadBody(t *testing.T) {
	store := &countingStore{Storage: memory.New()}
	srv := newServer(t, store)

	status, env, _ := doJSON(t, srv, http.MethodPost, "/contacts", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.NotEmpty(t, env.Message)

	status, _, _ = doJSON(t, srv, http.MethodPost, "/contacts", `{"name":42}`)
	assert.Equal(t, http.StatusBadRequest, status)

	assert.Zero(t, store.calls.Load())
}

func TestCreateBodyTooLarge(t *testing.T) {
	store := &countingStore{Storage: memory.New()}
	h := router.New(store, slog.New(slog.NewTextHandler(io.Discard, nil)), metrics.NewSet())

	body := `{"name":"` + strings.Repeat("a", 200<<10) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/contacts", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "request body too large")
	assert.Zero(t, store.calls.Load())
}

func TestCreateJSONArray(t *testing.T) {
	srv := newServer(t, memory.New())

	status, env, _ := doJSON(t, srv, http.MethodPost, "/contacts", `[{"name":"Ada"}]`)
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, env.Data)
	assert.Equal(t, types.Contact{ID: env.Data.ID}, *env.Data)
}

func TestTrailingSlash(t *testing.T) {
	srv := newServer(t, memory.New())

	status, env, _ := doJSON(t, srv, http.MethodPost, "/contacts/", `{"name":"Ada"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "New Contact created successfully.", env.Message)

	status, env, _ = doJSON(t, srv, http.MethodGet, "/contacts/", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Requested Contacts retrieved successfully.", env.Message)
	assert.Len(t, env.Contacts, 1)
}

func TestUppercaseID(t *testing.T) {
	srv := newServer(t, memory.New())

	_, created, _ := doJSON(t, srv, http.MethodPost, "/contacts", `{"name":"Ada"}`)

	status, got, _ := doJSON(t, srv, http.MethodGet, "/contacts/"+strings.ToUpper(created.Data.ID), "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, created.Data.ID, got.Contact.ID)
}

func TestList(t *testing.T) {
	srv := newServer(t, memory.New())

	status, env, raw := doJSON(t, srv, http.MethodGet, "/contacts", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Requested Contacts retrieved successfully.", env.Message)
	assert.Equal(t, []any{}, raw["contacts"])

	var ids []string
	for _, name := range []string{"a", "b", "c"} {
		_, created, _ := doJSON(t, srv, http.MethodPost, "/contacts", `{"name":"`+name+`"}`)
		ids = append(ids, created.Data.ID)
	}
	status, _, _ = doJSON(t, srv, http.MethodDelete, "/contacts/"+ids[1], "")
	require.Equal(t, http.StatusOK, status)

	_, env, _ = doJSON(t, srv, http.MethodGet, "/contacts", "")
	require.Len(t, env.Contacts, 2)
	assert.ElementsMatch(t, []string{ids[0], ids[2]}, []string{env.Contacts[0].ID, env.Contacts[1].ID})
}

func TestGetAbsent(t *testing.T) {
	srv := newServer(t, memory.New())

	status, _, raw := doJSON(t, srv, http.MethodGet, "/contacts/000000000000000000000000", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, map[string]any{"message": "Requested Contact not found."}, raw)
}

func TestMalformedID(t *testing.T) {
	srv := newServer(t, memory.New())

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		status, env, _ := doJSON(t, srv, method, "/contacts/not-a-valid-id", `{}`)
		assert.Equal(t, http.StatusInternalServerError, status, method)
		assert.Contains(t, env.Message, "invalid contact id", method)
	}

	// the server is still alive
	status, _, _ := doJSON(t, srv, http.MethodGet, "/contacts", "")
	assert.Equal(t, http.StatusOK, status)
}

func TestUpdate(t *testing.T) {
	srv := newServer(t, memory.New())

	_, created, _ := doJSON(t, srv, http.MethodPost, "/contacts", `{"name":"Ada","email":"ada@x.io","country":"UK"}`)
	id := created.Data.ID

	for i := 0; i < 2; i++ {
		status, env, raw := doJSON(t, srv, http.MethodPut, "/contacts/"+id, `{"name":"Ada Lovelace","country":"GB"}`)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "Requested Contact updated successfully.", env.Message)
		require.NotNil(t, env.SavedContact)
		assert.Equal(t, id, env.SavedContact.ID)
		assert.Equal(t, "Ada Lovelace", *env.SavedContact.Name)
		assert.Equal(t, "GB", *env.SavedContact.Country)
		assert.Nil(t, env.SavedContact.Email)
		assert.Contains(t, raw, "savedContact")
	}

	_, got, _ := doJSON(t, srv, http.MethodGet, "/contacts/"+id, "")
	assert.Equal(t, types.Contact{ID: id, Name: ptr("Ada Lovelace"), Country: ptr("GB")}, *got.Contact)
}

func TestUpdateFormEncoded(t *testing.T) {
	srv := newServer(t, memory.New())

	_, created, _ := doJSON(t, srv, http.MethodPost, "/contacts", `{"name":"Ada","email":"ada@x.io"}`)
	id := created.Data.ID

	form := url.Values{"name": {"Grace"}, "country": {"US"}}
	status, env, _ := do(t, srv, http.MethodPut, "/contacts/"+id, "application/x-www-form-urlencoded", form.Encode())
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, env.SavedContact)
	assert.Equal(t, types.Contact{ID: id, Name: ptr("Grace"), Country: ptr("US")}, *env.SavedContact)
}

func TestUpdateBadBody(t *testing.T) {
	store := &countingStore{Storage: memory.New()}
	srv := newServer(t, store)

	_, created, _ := doJSON(t, srv, http.MethodPost, "/contacts", `{"name":"Ada"}`)
	path := "/contacts/" + created.Data.ID

	for _, body := range []string{`{"name":`, `{"name":"Grace"} garbage`, `{"name":true}`} {
		status, env, _ := doJSON(t, srv, http.MethodPut, path, body)
		assert.Equal(t, http.StatusBadRequest, status, body)
		assert.Contains(t, env.Message, "invalid JSON body", body)
	}
	// only the create reached the store
	assert.EqualValues(t, 1, store.calls.Load())

	_, got, _ := doJSON(t, srv, http.MethodGet, path, "")
	assert.Equal(t, "Ada", *got.Contact.Name)
}

func TestUpdateAbsentDoesNotCreate(t *testing.T) {
	srv := newServer(t, memory.New())

	status, env, _ := doJSON(t, srv, http.MethodPut, "/contacts/000000000000000000000000", `{"name":"x"}`)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Requested Contact not found.", env.Message)

	_, list, _ := doJSON(t, srv, http.MethodGet, "/contacts", "")
	assert.Empty(t, list.Contacts)
}

func TestDeleteTwice(t *testing.T) {
	srv := newServer(t, memory.New())

	_, created, _ := doJSON(t, srv, http.MethodPost, "/contacts", `{"name":"Ada"}`)
	path := "/contacts/" + created.Data.ID

	status, _, raw := doJSON(t, srv, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]any{"message": "Requested Contact deleted successfully."}, raw)

	status, _, raw = doJSON(t, srv, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, map[string]any{"message": "Requested Contact not found."}, raw)

	status, _, _ = doJSON(t, srv, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestStoreErrors(t *testing.T) {
	srv := newServer(t, storage.Unavailable{Err: errors.New("connection refused")})
	id := storage.NewID()

	for _, req := range [][2]string{
		{http.MethodPost, "/contacts"},
		{http.MethodGet, "/contacts"},
		{http.MethodGet, "/contacts/" + id},
		{http.MethodPut, "/contacts/" + id},
		{http.MethodDelete, "/contacts/" + id},
	} {
		status, env, _ := doJSON(t, srv, req[0], req[1], `{"name":"Ada"}`)
		assert.Equal(t, http.StatusInternalServerError, status, req)
		assert.Contains(t, env.Message, "connection refused", req)
	}

	status, env, _ := doJSON(t, srv, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Contains(t, env.Message, "connection refused")
}

func TestUpdateRejected(t *testing.T) {
	srv := newServer(t, rejectingStore{Storage: memory.New()})

	status, env, _ := doJSON(t, srv, http.MethodPut, "/contacts/"+storage.NewID(), `{"email":"dup@x.io"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Message, "duplicate key")
}

func TestPanicIsRecovered(t *testing.T) {
	srv := newServer(t, panickingStore{Storage: memory.New()})

	status, env, _ := doJSON(t, srv, http.MethodGet, "/contacts", "")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Internal Server Error", env.Message)

	status, _, _ = doJSON(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, status)
}

func TestUnknownRoute(t *testing.T) {
	srv := newServer(t, memory.New())

	status, env, _ := doJSON(t, srv, http.MethodGet, "/students", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Cannot GET /students", env.Message)

	status, env, _ = doJSON(t, srv, http.MethodPatch, "/contacts/"+storage.NewID(), "{}")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, env.Message, "Cannot PATCH")
}

func TestOneStoreCallPerRequest(t *testing.T) {
	store := &countingStore{Storage: memory.New()}
	srv := newServer(t, store)

	_, created, _ := doJSON(t, srv, http.MethodPost, "/contacts", `{"name":"Ada"}`)
	doJSON(t, srv, http.MethodGet, "/contacts", "")
	doJSON(t, srv, http.MethodGet, "/contacts/"+created.Data.ID, "")
	doJSON(t, srv, http.MethodPut, "/contacts/"+created.Data.ID, `{"name":"Grace"}`)
	doJSON(t, srv, http.MethodDelete, "/contacts/"+created.Data.ID, "")

	assert.EqualValues(t, 5, store.calls.Load())
}

func TestRequestID(t *testing.T) {
	srv := newServer(t, memory.New())

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/contacts", nil)
	require.NoError(t, err)
	req.Header.Set(middleware.HeaderRequestID, "abc-123")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "abc-123", resp.Header.Get(middleware.HeaderRequestID))

	resp, err = srv.Client().Get(srv.URL + "/contacts")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Len(t, resp.Header.Get(middleware.HeaderRequestID), 36)
}

func TestMetrics(t *testing.T) {
	srv := newServer(t, memory.New())
	doJSON(t, srv, http.MethodGet, "/contacts/000000000000000000000000", "")

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `http_requests_total{method="GET",path="/contacts/{id}",status="404"} 1`)
	assert.Contains(t, string(body), `http_request_duration_seconds_count{method="GET",path="/contacts/{id}",status="404"} 1`)
}

func ptr(s string) *string { return &s }

type countingStore struct {
	storage.Storage
	calls atomic.Int64
}

func (s *countingStore) CreateContact(ctx context.Context, f types.ContactFields) (types.Contact, error) {
	s.calls.Add(1)
	return s.Storage.CreateContact(ctx, f)
}

func (s *countingStore) GetContacts(ctx context.Context) ([]types.Contact, error) {
	s.calls.Add(1)
	return s.Storage.GetContacts(ctx)
}

func (s *countingStore) GetContactByID(ctx context.Context, id string) (types.Contact, error) {
	s.calls.Add(1)
	return s.Storage.GetContactByID(ctx, id)
}

func (s *countingStore) UpdateContactByID(ctx context.Context, id string, f types.ContactFields) (types.Contact, error) {
	s.calls.Add(1)
	return s.Storage.UpdateContactByID(ctx, id, f)
}

func (s *countingStore) DeleteContactByID(ctx context.Context, id string) (types.Contact, error) {
	s.calls.Add(1)
	return s.Storage.DeleteContactByID(ctx, id)
}

type rejectingStore struct{ storage.Storage }

func (rejectingStore) UpdateContactByID(context.Context, string, types.ContactFields) (types.Contact, error) {
	return types.Contact{}, storage.Fail("test.UpdateContactByID", storage.Rejected(errors.New("E11000 duplicate key")))
}

type panickingStore struct{ storage.Storage }

func (panickingStore) GetContacts(context.Context) ([]types.Contact, error) {
	panic("driver exploded")
}
