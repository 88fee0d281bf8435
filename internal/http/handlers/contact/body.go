package contact

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/aanand-mishra/contacts-api/internal/types"
	"github.com/aanand-mishra/contacts-api/internal/utils/response"
)

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 100 << 10

// readFields decodes the contact fields from the request body and writes
// the error response itself when it cannot. Supported bodies:
//
//	application/json                   { "name": "Ada" }
//	application/x-www-form-urlencoded  name=Ada
//
// Any other content type, or no body at all, yields an empty field set.
// Values are passed on untouched: no trimming, no validation.
func readFields(w http.ResponseWriter, r *http.Request) (types.ContactFields, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	fields, err := decodeFields(r)
	if err == nil {
		return fields, true
	}

	status := http.StatusBadRequest
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		status = http.StatusRequestEntityTooLarge
	}
	response.WriteJSON(w, status, response.Error(err))
	return types.ContactFields{}, false
}

func decodeFields(r *http.Request) (types.ContactFields, error) {
	var fields types.ContactFields

	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return fields, nil
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return fields, nil
	}

	switch {
	case mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"):
		return decodeJSON(r.Body)

	case mediaType == "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return types.ContactFields{}, fmt.Errorf("invalid form body: %w", err)
		}
		fields.Name = formValue(r, "name")
		fields.Email = formValue(r, "email")
		fields.Country = formValue(r, "country")
		return fields, nil

	default:
		return fields, nil
	}
}

// decodeJSON reads a single JSON object or array. An array is valid but
// carries no fields. Scalars, trailing data and non-string field values are
// errors.
func decodeJSON(body io.Reader) (types.ContactFields, error) {
	var fields types.ContactFields

	dec := json.NewDecoder(body)
	var raw json.RawMessage
	err := dec.Decode(&raw)
	if errors.Is(err, io.EOF) {
		// empty body: every field absent
		return fields, nil
	}
	if err != nil {
		return fields, fmt.Errorf("invalid JSON body: %w", err)
	}
	if tok, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err != nil {
			return fields, fmt.Errorf("invalid JSON body: %w", err)
		}
		return fields, fmt.Errorf("invalid JSON body: unexpected %v after top-level value", tok)
	}

	switch raw[0] {
	case '[':
		return fields, nil
	case '{':
		if err := json.Unmarshal(raw, &fields); err != nil {
			return types.ContactFields{}, fmt.Errorf("invalid JSON body: %w", err)
		}
		return fields, nil
	default:
		return fields, errors.New("invalid JSON body: expected an object or an array")
	}
}

// formValue returns the first body value for key, or nil if key is absent.
func formValue(r *http.Request, key string) *string {
	values, ok := r.PostForm[key]
	if !ok || len(values) == 0 {
		return nil
	}
	return &values[0]
}
