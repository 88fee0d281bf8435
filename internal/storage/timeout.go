package storage

import (
	"context"
	"time"

	"github.com/aanand-mishra/contacts-api/internal/types"
)

// WithTimeout bounds every operation of s to d. A zero or negative d
// returns s unchanged, so a hung store call hangs its request.
func WithTimeout(s Storage, d time.Duration) Storage {
	if d <= 0 {
		return s
	}
	return &timeoutStorage{next: s, d: d}
}

type timeoutStorage struct {
	next Storage
	d    time.Duration
}

func (t *timeoutStorage) CreateContact(ctx context.Context, fields types.ContactFields) (types.Contact, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.next.CreateContact(ctx, fields)
}

func (t *timeoutStorage) GetContacts(ctx context.Context) ([]types.Contact, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.next.GetContacts(ctx)
}

func (t *timeoutStorage) GetContactByID(ctx context.Context, id string) (types.Contact, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.next.GetContactByID(ctx, id)
}

func (t *timeoutStorage) UpdateContactByID(ctx context.Context, id string, fields types.ContactFields) (types.Contact, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.next.UpdateContactByID(ctx, id, fields)
}

func (t *timeoutStorage) DeleteContactByID(ctx context.Context, id string) (types.Contact, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.next.DeleteContactByID(ctx, id)
}

func (t *timeoutStorage) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.next.Ping(ctx)
}
