// Package sqldb provides a relational implementation of the
// storage.Storage interface using Go's standard database/sql package.
//
// Two drivers are supported:
//
//   - "sqlite3"  (github.com/mattn/go-sqlite3): a single file on disk, no
//     server process. The URL is the file path.
//   - "postgres" (github.com/lib/pq): the URL is a libpq connection string.
//
// Both drivers register themselves with database/sql in their init()
// functions. Their error types are also inspected to tell constraint
// violations apart from other failures.
//
// IDs are stored in lowercase hex. Lookups canonicalise the requested id
// first, so an uppercase id finds the same row.
//
// ONE STATEMENT PER OPERATION
// ───────────────────────────
// Update and delete use RETURNING (SQLite >= 3.35, every PostgreSQL) so the
// record after the update, or before the delete, comes back from the same
// statement. No read-modify-write, no transaction.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/aanand-mishra/contacts-api/internal/config"
	"github.com/aanand-mishra/contacts-api/internal/storage"
	"github.com/aanand-mishra/contacts-api/internal/types"
)

// Supported driver names.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// SQLDB is the concrete implementation of storage.Storage.
// It holds a *sql.DB which is a connection pool managed by database/sql.
// A single *sql.DB is safe for concurrent use by multiple goroutines.
type SQLDB struct {
	Db *sql.DB

	insert, selectAll, selectOne, update, remove *sql.Stmt
}

var _ storage.Storage = (*SQLDB)(nil)

// New opens the database, creates the contacts table if it does not already
// exist, prepares every statement and returns a ready-to-use *SQLDB.
func New(ctx context.Context, cfg config.Storage) (*SQLDB, error) {
	if cfg.Driver != DriverSQLite && cfg.Driver != DriverPostgres {
		return nil, fmt.Errorf("sqldb.New: unsupported driver %q", cfg.Driver)
	}

	// sql.Open does NOT open a real connection yet; it just validates
	// the driver name and data source name (DSN).
	db, err := sql.Open(cfg.Driver, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("sqldb.New: open db: %w", err)
	}
	if cfg.Driver == DriverSQLite {
		// one writer at a time, otherwise concurrent requests get SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}

	s, err := setup(ctx, db, cfg.Driver, cfg.Collection)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func setup(ctx context.Context, db *sql.DB, driver, table string) (*SQLDB, error) {
	if table == "" {
		table = "contacts"
	}
	q := queries{driver: driver, table: pq.QuoteIdentifier(table)}

	// CREATE TABLE IF NOT EXISTS is idempotent: safe to run on every startup.
	// id is the 24 character hex identifier shared by all adapters; the
	// other columns are nullable because every attribute is optional.
	if _, err := db.ExecContext(ctx, q.createTable()); err != nil {
		return nil, fmt.Errorf("sqldb.New: create table: %w", err)
	}

	s := &SQLDB{Db: db}
	for _, p := range []struct {
		dst   **sql.Stmt
		query string
	}{
		{&s.insert, q.insert()},
		{&s.selectAll, q.selectAll()},
		{&s.selectOne, q.selectOne()},
		{&s.update, q.update()},
		{&s.remove, q.remove()},
	} {
		stmt, err := db.PrepareContext(ctx, p.query)
		if err != nil {
			s.closeStmts()
			return nil, fmt.Errorf("sqldb.New: prepare %q: %w", p.query, err)
		}
		*p.dst = stmt
	}
	return s, nil
}

// Close releases the prepared statements and the connection pool.
func (s *SQLDB) Close() error {
	s.closeStmts()
	return s.Db.Close()
}

func (s *SQLDB) closeStmts() {
	for _, stmt := range []*sql.Stmt{s.insert, s.selectAll, s.selectOne, s.update, s.remove} {
		if stmt != nil {
			stmt.Close()
		}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// CreateContact inserts a new row. The ID is generated here rather than by
// the database so that every backend hands out the same identifier format.
//
// Absent fields are written as SQL NULL.
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLDB) CreateContact(ctx context.Context, fields types.ContactFields) (types.Contact, error) {
	const op = "sqldb.CreateContact"

	c := fields.Apply(types.Contact{ID: storage.NewID()})
	if _, err := s.insert.ExecContext(ctx, c.ID, null(c.Name), null(c.Email), null(c.Country)); err != nil {
		return types.Contact{}, storage.Fail(op, classify(err))
	}
	return c, nil
}

func (s *SQLDB) GetContacts(ctx context.Context) ([]types.Contact, error) {
	const op = "sqldb.GetContacts"

	rows, err := s.selectAll.QueryContext(ctx)
	if err != nil {
		return nil, storage.Fail(op, err)
	}
	defer rows.Close() // must close rows to free the DB connection

	contacts := make([]types.Contact, 0)
	for rows.Next() {
		c, err := scan(rows)
		if err != nil {
			return nil, storage.Fail(op, fmt.Errorf("scan row: %w", err))
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Fail(op, fmt.Errorf("rows iteration: %w", err))
	}
	return contacts, nil
}

func (s *SQLDB) GetContactByID(ctx context.Context, id string) (types.Contact, error) {
	const op = "sqldb.GetContactByID"
	oid, err := storage.ParseID(id)
	if err != nil {
		return types.Contact{}, storage.Fail(op, err)
	}
	return one(op, s.selectOne.QueryRowContext(ctx, oid.Hex()))
}

func (s *SQLDB) UpdateContactByID(ctx context.Context, id string, fields types.ContactFields) (types.Contact, error) {
	const op = "sqldb.UpdateContactByID"
	oid, err := storage.ParseID(id)
	if err != nil {
		return types.Contact{}, storage.Fail(op, err)
	}
	// argument order matches the placeholders: name, email, country, id
	return one(op, s.update.QueryRowContext(ctx,
		null(fields.Name), null(fields.Email), null(fields.Country), oid.Hex()))
}

func (s *SQLDB) DeleteContactByID(ctx context.Context, id string) (types.Contact, error) {
	const op = "sqldb.DeleteContactByID"
	oid, err := storage.ParseID(id)
	if err != nil {
		return types.Contact{}, storage.Fail(op, err)
	}
	return one(op, s.remove.QueryRowContext(ctx, oid.Hex()))
}

func (s *SQLDB) Ping(ctx context.Context) error {
	return storage.Fail("sqldb.Ping", s.Db.PingContext(ctx))
}

func null(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

type scanner interface {
	Scan(dest ...any) error
}

// scan reads the columns in the order every query selects them.
// Scanning into **string leaves the pointer nil for SQL NULL.
func scan(row scanner) (types.Contact, error) {
	var c types.Contact
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Country)
	return c, err
}

func one(op string, row *sql.Row) (types.Contact, error) {
	c, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Contact{}, storage.ErrNotFound
	}
	if err != nil {
		return types.Contact{}, storage.Fail(op, classify(err))
	}
	return c, nil
}

// classify marks constraint violations as storage.ErrRejected.
func classify(err error) error {
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && liteErr.Code == sqlite3.ErrConstraint {
		return storage.Rejected(err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Class() == "23" { // integrity_constraint_violation
		return storage.Rejected(err)
	}
	return err
}

// queries renders the SQL for a driver. SQLite takes ? placeholders,
// PostgreSQL takes $n.
type queries struct {
	driver string
	table  string
}

func (q queries) args(n int) []string {
	out := make([]string, n)
	for i := range out {
		if q.driver == DriverPostgres {
			out[i] = "$" + strconv.Itoa(i+1)
		} else {
			out[i] = "?"
		}
	}
	return out
}

const columns = "id, name, email, country"

func (q queries) createTable() string {
	return `CREATE TABLE IF NOT EXISTS ` + q.table + ` (
		id      TEXT PRIMARY KEY,
		name    TEXT,
		email   TEXT,
		country TEXT
	)`
}

func (q queries) insert() string {
	return "INSERT INTO " + q.table + " (" + columns + ") VALUES (" + strings.Join(q.args(4), ", ") + ")"
}

func (q queries) selectAll() string {
	return "SELECT " + columns + " FROM " + q.table
}

func (q queries) selectOne() string {
	return "SELECT " + columns + " FROM " + q.table + " WHERE id = " + q.args(1)[0] + " LIMIT 1"
}

func (q queries) update() string {
	a := q.args(4)
	return "UPDATE " + q.table + " SET name = " + a[0] + ", email = " + a[1] + ", country = " + a[2] +
		" WHERE id = " + a[3] + " RETURNING " + columns
}

func (q queries) remove() string {
	return "DELETE FROM " + q.table + " WHERE id = " + q.args(1)[0] + " RETURNING " + columns
}
