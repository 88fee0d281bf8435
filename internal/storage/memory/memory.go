// Package memory provides an in-process implementation of storage.Storage.
//
// Records live in a slice in insertion order, with an index from ID to
// position. Nothing survives a restart: use it for local runs and tests.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/aanand-mishra/contacts-api/internal/storage"
	"github.com/aanand-mishra/contacts-api/internal/types"
)

// Memory implements storage.Storage.
type Memory struct {
	mu       sync.Mutex
	index    map[string]int
	contacts []types.Contact
}

var _ storage.Storage = (*Memory)(nil)

// New returns a store seeded with cs. Seed records without an ID get one.
func New(cs ...types.Contact) *Memory {
	m := &Memory{index: make(map[string]int, len(cs))}
	for _, c := range cs {
		if c.ID == "" {
			c.ID = storage.NewID()
		}
		m.index[c.ID] = len(m.contacts)
		m.contacts = append(m.contacts, clone(c))
	}
	return m
}

func (m *Memory) CreateContact(ctx context.Context, fields types.ContactFields) (types.Contact, error) {
	if err := ctx.Err(); err != nil {
		return types.Contact{}, storage.Fail("memory.CreateContact", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c := fields.Apply(types.Contact{ID: storage.NewID()})
	for _, taken := m.index[c.ID]; taken; _, taken = m.index[c.ID] {
		c.ID = storage.NewID()
	}
	m.index[c.ID] = len(m.contacts)
	m.contacts = append(m.contacts, clone(c))
	return clone(c), nil
}

func (m *Memory) GetContacts(ctx context.Context) ([]types.Contact, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.Fail("memory.GetContacts", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]types.Contact, 0, len(m.contacts))
	for _, c := range m.contacts {
		out = append(out, clone(c))
	}
	return out, nil
}

func (m *Memory) GetContactByID(ctx context.Context, id string) (types.Contact, error) {
	const op = "memory.GetContactByID"
	i, err := m.lookup(ctx, op, id)
	if err != nil {
		return types.Contact{}, err
	}
	defer m.mu.Unlock()
	return clone(m.contacts[i]), nil
}

func (m *Memory) UpdateContactByID(ctx context.Context, id string, fields types.ContactFields) (types.Contact, error) {
	const op = "memory.UpdateContactByID"
	i, err := m.lookup(ctx, op, id)
	if err != nil {
		return types.Contact{}, err
	}
	defer m.mu.Unlock()
	m.contacts[i] = clone(fields.Apply(m.contacts[i]))
	return clone(m.contacts[i]), nil
}

func (m *Memory) DeleteContactByID(ctx context.Context, id string) (types.Contact, error) {
	const op = "memory.DeleteContactByID"
	i, err := m.lookup(ctx, op, id)
	if err != nil {
		return types.Contact{}, err
	}
	defer m.mu.Unlock()

	c := m.contacts[i]
	delete(m.index, c.ID)
	m.contacts = slices.Delete(m.contacts, i, i+1)
	for j := i; j < len(m.contacts); j++ {
		m.index[m.contacts[j].ID] = j
	}
	return c, nil
}

func (m *Memory) Ping(ctx context.Context) error {
	return storage.Fail("memory.Ping", ctx.Err())
}

// lookup validates id and returns its position with m.mu held. Hex digits
// match in either case.
// On error the lock is not held.
func (m *Memory) lookup(ctx context.Context, op, id string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, storage.Fail(op, err)
	}
	oid, err := storage.ParseID(id)
	if err != nil {
		return 0, storage.Fail(op, err)
	}

	m.mu.Lock()
	i, ok := m.index[oid.Hex()]
	if !ok {
		m.mu.Unlock()
		return 0, storage.ErrNotFound
	}
	return i, nil
}

// clone copies the optional fields so callers never share memory with the
// stored record.
func clone(c types.Contact) types.Contact {
	c.Name = cloneString(c.Name)
	c.Email = cloneString(c.Email)
	c.Country = cloneString(c.Country)
	return c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
