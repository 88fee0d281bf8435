package storage

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Contact IDs are MongoDB ObjectIDs in their 24 character hex form, whatever
// the backend. Clients therefore see the same identifier format everywhere.

// NewID returns a fresh identifier.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// ParseID checks that id is a well-formed identifier and returns it as an
// ObjectID. The error wraps ErrInvalidID.
func ParseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w %q: %w", ErrInvalidID, id, err)
	}
	return oid, nil
}
