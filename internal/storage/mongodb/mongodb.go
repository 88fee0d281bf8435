// Package mongodb provides the MongoDB implementation of storage.Storage.
//
// Contacts are documents in a single collection:
//
//	{ "_id": ObjectId, "name": string?, "email": string?, "country": string? }
//
// Absent attributes are absent keys, never nulls. The driver's client is
// one long-lived value shared by every request; its connection pool is the
// only pooling there is.
package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/aanand-mishra/contacts-api/internal/config"
	"github.com/aanand-mishra/contacts-api/internal/storage"
	"github.com/aanand-mishra/contacts-api/internal/types"
)

// codeDocumentValidationFailure is returned when a write breaks the
// collection's $jsonSchema or validator.
const codeDocumentValidationFailure = 121

// ErrNoURL is returned by New when no connection string is configured.
var ErrNoURL = errors.New("mongodb: connection string is not set")

// MongoDB implements storage.Storage on a *mongo.Collection.
type MongoDB struct {
	coll *mongo.Collection
}

var _ storage.Storage = (*MongoDB)(nil)

// contactDocument is the stored shape of a contact.
type contactDocument struct {
	ID      primitive.ObjectID `bson:"_id,omitempty"`
	Name    *string            `bson:"name,omitempty"`
	Email   *string            `bson:"email,omitempty"`
	Country *string            `bson:"country,omitempty"`
}

func (d contactDocument) contact() types.Contact {
	return types.Contact{ID: d.ID.Hex(), Name: d.Name, Email: d.Email, Country: d.Country}
}

// New builds a client for cfg.URL. The database is the one named in the URL
// path, or cfg.Database when the URL has none.
//
// mongo.Connect does not wait for the server: an unreachable host is only
// noticed by the first operation or by Ping.
func New(ctx context.Context, cfg config.Storage) (*MongoDB, error) {
	if cfg.URL == "" {
		return nil, ErrNoURL
	}

	cs, err := connstring.ParseAndValidate(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("mongodb.New: parse url: %w", err)
	}
	database := cfg.Database
	if cs.Database != "" {
		database = cs.Database
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("mongodb.New: connect: %w", err)
	}
	return NewWithCollection(client.Database(database).Collection(cfg.Collection)), nil
}

// NewWithCollection wraps an existing collection.
func NewWithCollection(coll *mongo.Collection) *MongoDB {
	return &MongoDB{coll: coll}
}

// Disconnect closes the client's connections.
func (m *MongoDB) Disconnect(ctx context.Context) error {
	return m.coll.Database().Client().Disconnect(ctx)
}

func (m *MongoDB) CreateContact(ctx context.Context, fields types.ContactFields) (types.Contact, error) {
	const op = "mongodb.CreateContact"

	doc := contactDocument{
		ID:      primitive.NewObjectID(),
		Name:    fields.Name,
		Email:   fields.Email,
		Country: fields.Country,
	}
	if _, err := m.coll.InsertOne(ctx, doc); err != nil {
		return types.Contact{}, storage.Fail(op, classify(err))
	}
	return doc.contact(), nil
}

func (m *MongoDB) GetContacts(ctx context.Context) ([]types.Contact, error) {
	const op = "mongodb.GetContacts"

	cur, err := m.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, storage.Fail(op, err)
	}
	var docs []contactDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, storage.Fail(op, err)
	}

	contacts := make([]types.Contact, 0, len(docs))
	for _, d := range docs {
		contacts = append(contacts, d.contact())
	}
	return contacts, nil
}

func (m *MongoDB) GetContactByID(ctx context.Context, id string) (types.Contact, error) {
	const op = "mongodb.GetContactByID"

	oid, err := storage.ParseID(id)
	if err != nil {
		return types.Contact{}, storage.Fail(op, err)
	}
	return decode(op, m.coll.FindOne(ctx, bson.M{"_id": oid}))
}

// UpdateContactByID sets the present fields and unsets the absent ones in
// a single findAndModify, returning the document after the update.
func (m *MongoDB) UpdateContactByID(ctx context.Context, id string, fields types.ContactFields) (types.Contact, error) {
	const op = "mongodb.UpdateContactByID"

	oid, err := storage.ParseID(id)
	if err != nil {
		return types.Contact{}, storage.Fail(op, err)
	}
	res := m.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		updateDocument(fields),
		options.FindOneAndUpdate().SetReturnDocument(options.After).SetUpsert(false),
	)
	return decode(op, res)
}

func (m *MongoDB) DeleteContactByID(ctx context.Context, id string) (types.Contact, error) {
	const op = "mongodb.DeleteContactByID"

	oid, err := storage.ParseID(id)
	if err != nil {
		return types.Contact{}, storage.Fail(op, err)
	}
	return decode(op, m.coll.FindOneAndDelete(ctx, bson.M{"_id": oid}))
}

func (m *MongoDB) Ping(ctx context.Context) error {
	return storage.Fail("mongodb.Ping", m.coll.Database().Client().Ping(ctx, nil))
}

// updateDocument renders fields as $set / $unset operators. Empty
// operators are left out, the server rejects them.
func updateDocument(fields types.ContactFields) bson.D {
	set, unset := bson.D{}, bson.D{}
	for _, f := range []struct {
		key   string
		value *string
	}{
		{"name", fields.Name},
		{"email", fields.Email},
		{"country", fields.Country},
	} {
		if f.value != nil {
			set = append(set, bson.E{Key: f.key, Value: *f.value})
		} else {
			unset = append(unset, bson.E{Key: f.key, Value: ""})
		}
	}

	update := bson.D{}
	if len(set) > 0 {
		update = append(update, bson.E{Key: "$set", Value: set})
	}
	if len(unset) > 0 {
		update = append(update, bson.E{Key: "$unset", Value: unset})
	}
	return update
}

func decode(op string, res *mongo.SingleResult) (types.Contact, error) {
	var doc contactDocument
	err := res.Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return types.Contact{}, storage.ErrNotFound
	}
	if err != nil {
		return types.Contact{}, storage.Fail(op, classify(err))
	}
	return doc.contact(), nil
}

// classify marks writes the server refused as storage.ErrRejected.
func classify(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return storage.Rejected(err)
	}
	var se mongo.ServerError
	if errors.As(err, &se) && se.HasErrorCode(codeDocumentValidationFailure) {
		return storage.Rejected(err)
	}
	return err
}
