package storage

import (
	"context"

	"github.com/aanand-mishra/contacts-api/internal/types"
)

// Unavailable is the Storage used when no store client could be built at
// startup (missing or malformed connection string). The HTTP listener still
// starts; every operation fails with a *StoreError carrying Err.
type Unavailable struct {
	Err error
}

var _ Storage = Unavailable{}

func (u Unavailable) fail(op string) error {
	return &StoreError{Op: "unavailable." + op, Err: u.Err}
}

func (u Unavailable) CreateContact(context.Context, types.ContactFields) (types.Contact, error) {
	return types.Contact{}, u.fail("CreateContact")
}

func (u Unavailable) GetContacts(context.Context) ([]types.Contact, error) {
	return nil, u.fail("GetContacts")
}

func (u Unavailable) GetContactByID(context.Context, string) (types.Contact, error) {
	return types.Contact{}, u.fail("GetContactByID")
}

func (u Unavailable) UpdateContactByID(context.Context, string, types.ContactFields) (types.Contact, error) {
	return types.Contact{}, u.fail("UpdateContactByID")
}

func (u Unavailable) DeleteContactByID(context.Context, string) (types.Contact, error) {
	return types.Contact{}, u.fail("DeleteContactByID")
}

func (u Unavailable) Ping(context.Context) error {
	return u.fail("Ping")
}
