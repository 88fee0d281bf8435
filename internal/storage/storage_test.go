package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/contacts-api/internal/storage"
	"github.com/aanand-mishra/contacts-api/internal/storage/memory"
	"github.com/aanand-mishra/contacts-api/internal/types"
)

func TestFail(t *testing.T) {
	assert.NoError(t, storage.Fail("op", nil))
	assert.Same(t, storage.ErrNotFound, storage.Fail("op", storage.ErrNotFound))

	cause := errors.New("connection reset")
	err := storage.Fail("mongodb.GetContacts", cause)

	var se *storage.StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "mongodb.GetContacts", se.Op)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "mongodb.GetContacts: connection reset", err.Error())

	// already wrapped errors keep their original operation
	again := storage.Fail("outer", err)
	require.ErrorAs(t, again, &se)
	assert.Equal(t, "mongodb.GetContacts", se.Op)
}

func TestRejected(t *testing.T) {
	cause := errors.New("duplicate key")
	err := storage.Fail("op", storage.Rejected(cause))
	assert.ErrorIs(t, err, storage.ErrRejected)
	assert.ErrorIs(t, err, cause)
}

func TestParseID(t *testing.T) {
	id := storage.NewID()
	require.Len(t, id, 24)

	oid, err := storage.ParseID(id)
	require.NoError(t, err)
	assert.Equal(t, id, oid.Hex())

	_, err = storage.ParseID("not-a-valid-id")
	assert.ErrorIs(t, err, storage.ErrInvalidID)
}

func TestUnavailable(t *testing.T) {
	cause := errors.New("no connection string")
	s := storage.Unavailable{Err: cause}
	ctx := context.Background()

	_, err := s.CreateContact(ctx, types.ContactFields{})
	assertStoreError(t, err, cause)
	_, err = s.GetContacts(ctx)
	assertStoreError(t, err, cause)
	_, err = s.GetContactByID(ctx, storage.NewID())
	assertStoreError(t, err, cause)
	_, err = s.UpdateContactByID(ctx, storage.NewID(), types.ContactFields{})
	assertStoreError(t, err, cause)
	_, err = s.DeleteContactByID(ctx, storage.NewID())
	assertStoreError(t, err, cause)
	assertStoreError(t, s.Ping(ctx), cause)
}

func assertStoreError(t *testing.T, err, cause error) {
	t.Helper()
	var se *storage.StoreError
	require.ErrorAs(t, err, &se)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, storage.ErrNotFound)
}

type deadlineProbe struct {
	storage.Storage
	deadline time.Time
	ok       bool
}

func (p *deadlineProbe) GetContacts(ctx context.Context) ([]types.Contact, error) {
	p.deadline, p.ok = ctx.Deadline()
	return p.Storage.GetContacts(ctx)
}

func TestWithTimeout(t *testing.T) {
	probe := &deadlineProbe{Storage: memory.New()}

	assert.Same(t, storage.Storage(probe), storage.WithTimeout(probe, 0))

	s := storage.WithTimeout(probe, time.Minute)
	_, err := s.GetContacts(context.Background())
	require.NoError(t, err)
	require.True(t, probe.ok)
	assert.WithinDuration(t, time.Now().Add(time.Minute), probe.deadline, 5*time.Second)
}
