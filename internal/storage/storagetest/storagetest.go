// Package storagetest checks that a storage.Storage implementation honours
// the contract every adapter shares.
package storagetest

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/contacts-api/internal/storage"
	"github.com/aanand-mishra/contacts-api/internal/types"
)

// Ptr returns a pointer to s.
func Ptr(s string) *string { return &s }

// Run executes the contract tests. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) storage.Storage) {
	t.Helper()

	t.Run("CreateThenGet", func(t *testing.T) {
		s, ctx := newStore(t), context.Background()

		created, err := s.CreateContact(ctx, types.ContactFields{
			Name:    Ptr("Ada"),
			Email:   Ptr("ada@x.io"),
			Country: Ptr("UK"),
		})
		require.NoError(t, err)
		require.NotEmpty(t, created.ID)
		assert.Equal(t, "Ada", *created.Name)

		got, err := s.GetContactByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created, got)
	})

	t.Run("CreateWithAbsentFields", func(t *testing.T) {
		s, ctx := newStore(t), context.Background()

		created, err := s.CreateContact(ctx, types.ContactFields{Email: Ptr("")})
		require.NoError(t, err)

		got, err := s.GetContactByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Nil(t, got.Name)
		assert.Nil(t, got.Country)
		require.NotNil(t, got.Email)
		assert.Empty(t, *got.Email)
	})

	t.Run("IDsAreUnique", func(t *testing.T) {
		s, ctx := newStore(t), context.Background()

		seen := map[string]bool{}
		for i := 0; i < 20; i++ {
			c, err := s.CreateContact(ctx, types.ContactFields{Name: Ptr("same")})
			require.NoError(t, err)
			require.False(t, seen[c.ID], "duplicate id %s", c.ID)
			seen[c.ID] = true
		}
	})

	t.Run("UpdateThenGet", func(t *testing.T) {
		s, ctx := newStore(t), context.Background()

		created, err := s.CreateContact(ctx, types.ContactFields{
			Name:    Ptr("Ada"),
			Email:   Ptr("ada@x.io"),
			Country: Ptr("UK"),
		})
		require.NoError(t, err)

		fields := types.ContactFields{Name: Ptr("Ada Lovelace"), Country: Ptr("GB")}
		updated, err := s.UpdateContactByID(ctx, created.ID, fields)
		require.NoError(t, err)
		want := types.Contact{ID: created.ID, Name: Ptr("Ada Lovelace"), Country: Ptr("GB")}
		assert.Equal(t, want, updated)

		got, err := s.GetContactByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, want, got)

		again, err := s.UpdateContactByID(ctx, created.ID, fields)
		require.NoError(t, err)
		assert.Equal(t, want, again)
	})

	t.Run("AbsentID", func(t *testing.T) {
		s, ctx := newStore(t), context.Background()
		id := storage.NewID()

		_, err := s.GetContactByID(ctx, id)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		_, err = s.UpdateContactByID(ctx, id, types.ContactFields{Name: Ptr("x")})
		assert.ErrorIs(t, err, storage.ErrNotFound)

		_, err = s.DeleteContactByID(ctx, id)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		// no upsert
		all, err := s.GetContacts(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("MalformedID", func(t *testing.T) {
		s, ctx := newStore(t), context.Background()

		for name, call := range map[string]func() error{
			"get": func() error { _, err := s.GetContactByID(ctx, "not-a-valid-id"); return err },
			"update": func() error {
				_, err := s.UpdateContactByID(ctx, "not-a-valid-id", types.ContactFields{})
				return err
			},
			"delete": func() error { _, err := s.DeleteContactByID(ctx, "not-a-valid-id"); return err },
		} {
			err := call()
			var se *storage.StoreError
			assert.ErrorAs(t, err, &se, name)
			assert.ErrorIs(t, err, storage.ErrInvalidID, name)
			assert.NotErrorIs(t, err, storage.ErrNotFound, name)
		}
	})

	t.Run("IDCaseInsensitive", func(t *testing.T) {
		s, ctx := newStore(t), context.Background()

		created, err := s.CreateContact(ctx, types.ContactFields{Name: Ptr("Ada")})
		require.NoError(t, err)
		upper := strings.ToUpper(created.ID)

		got, err := s.GetContactByID(ctx, upper)
		require.NoError(t, err)
		assert.Equal(t, created, got)

		updated, err := s.UpdateContactByID(ctx, upper, types.ContactFields{Name: Ptr("Grace")})
		require.NoError(t, err)
		assert.Equal(t, created.ID, updated.ID)
		assert.Equal(t, "Grace", *updated.Name)

		deleted, err := s.DeleteContactByID(ctx, upper)
		require.NoError(t, err)
		assert.Equal(t, created.ID, deleted.ID)

		_, err = s.GetContactByID(ctx, created.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("DeleteIsPermanent", func(t *testing.T) {
		s, ctx := newStore(t), context.Background()

		created, err := s.CreateContact(ctx, types.ContactFields{Name: Ptr("Ada")})
		require.NoError(t, err)

		deleted, err := s.DeleteContactByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created, deleted)

		_, err = s.GetContactByID(ctx, created.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		_, err = s.DeleteContactByID(ctx, created.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("ListCountsSurvivors", func(t *testing.T) {
		s, ctx := newStore(t), context.Background()

		empty, err := s.GetContacts(ctx)
		require.NoError(t, err)
		assert.NotNil(t, empty)
		assert.Empty(t, empty)

		var ids []string
		for _, name := range []string{"a", "b", "c", "d", "e"} {
			c, err := s.CreateContact(ctx, types.ContactFields{Name: Ptr(name)})
			require.NoError(t, err)
			ids = append(ids, c.ID)
		}
		for _, id := range ids[1:3] {
			_, err := s.DeleteContactByID(ctx, id)
			require.NoError(t, err)
		}

		all, err := s.GetContacts(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)

		got := map[string]bool{}
		for _, c := range all {
			got[c.ID] = true
		}
		assert.Equal(t, map[string]bool{ids[0]: true, ids[3]: true, ids[4]: true}, got)
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, newStore(t).Ping(context.Background()))
	})
}
