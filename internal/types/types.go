// Package types holds the data structures shared by the HTTP layer and the
// storage adapters. Keeping them in one place prevents import cycles:
// handlers, storage, and utils can all import types without depending on
// each other.
package types

// Contact is a person record as it is stored and returned to clients.
//
// ID is assigned by the storage adapter on creation and never changes.
// The other fields are optional: a nil pointer means the attribute is absent
// from the record and the key is omitted from the JSON output.
type Contact struct {
	ID      string  `json:"id"`
	Name    *string `json:"name,omitempty"`
	Email   *string `json:"email,omitempty"`
	Country *string `json:"country,omitempty"`
}

// ContactFields is the mutable part of a Contact, as read from a request body.
//
// No validation tags: any value, including an absent one, is accepted and
// passed to the store as-is.
type ContactFields struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Country *string `json:"country"`
}

// Apply returns a copy of c with its mutable fields replaced by f.
// Absent fields in f clear the corresponding attribute.
func (f ContactFields) Apply(c Contact) Contact {
	c.Name = f.Name
	c.Email = f.Email
	c.Country = f.Country
	return c
}
