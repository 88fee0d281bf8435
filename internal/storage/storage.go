// Package storage defines the Storage interface, a contract that any
// database backend must satisfy to serve the contacts API, together with
// the errors every backend reports through.
//
// WHY AN INTERFACE?
// ─────────────────
// Handlers (HTTP layer) should not know or care which database they are
// talking to. The concrete adapters live in sub-packages:
//
//   - storage/mongodb: MongoDB collection (the default)
//   - storage/sqldb:   SQLite or PostgreSQL through database/sql
//   - storage/memory:  in-process map, for local runs and tests
//
// Writing tests = pass the memory adapter or any other value that satisfies
// the interface. No real database needed for handler tests.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/aanand-mishra/contacts-api/internal/types"
)

// Storage is the contact persistence contract.
//
// Every method performs exactly one round-trip to the backing store.
// Failures other than ErrNotFound are returned as *StoreError.
type Storage interface {
	// CreateContact inserts a new record and returns it with its new ID.
	CreateContact(ctx context.Context, fields types.ContactFields) (types.Contact, error)

	// GetContacts returns every record, in store-defined order.
	// Returns an empty slice (not nil) if there are no contacts.
	GetContacts(ctx context.Context) ([]types.Contact, error)

	// GetContactByID fetches a single record. Returns ErrNotFound if no
	// record has that ID.
	GetContactByID(ctx context.Context, id string) (types.Contact, error)

	// UpdateContactByID replaces name, email and country of an existing
	// record and returns the record after the update. It never creates a
	// record: an unknown ID yields ErrNotFound.
	UpdateContactByID(ctx context.Context, id string, fields types.ContactFields) (types.Contact, error)

	// DeleteContactByID removes a record and returns it as it was just
	// before deletion, or ErrNotFound.
	DeleteContactByID(ctx context.Context, id string) (types.Contact, error)

	// Ping checks that the backing store is reachable.
	Ping(ctx context.Context) error
}

var (
	// ErrNotFound means no record matches the requested ID.
	ErrNotFound = errors.New("storage: contact not found")

	// ErrInvalidID means the ID is not in the store's identifier format.
	// It is always wrapped in a *StoreError.
	ErrInvalidID = errors.New("storage: invalid contact id")

	// ErrRejected means the store refused the write itself (validation
	// rule, unique index, constraint). It is always wrapped in a *StoreError.
	ErrRejected = errors.New("storage: write rejected")
)

// StoreError is any failure that originates in the persistence layer:
// connectivity loss, malformed identifier, rejected write.
type StoreError struct {
	Op  string // adapter operation, e.g. "mongodb.GetContactByID"
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Fail wraps err in a *StoreError for op. ErrNotFound and nil pass through
// unchanged, so adapters can call it on every return path.
func Fail(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// Rejected marks cause as a write the store refused.
func Rejected(cause error) error {
	return fmt.Errorf("%w: %w", ErrRejected, cause)
}
