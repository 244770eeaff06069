// Package exprstore is a SQLite-backed cache-capable namespace store: one
// struct wrapping a *sql.DB, a schema created in init, and a wrapDBError
// translator around the driver's error shapes. Unlike
// exprlang.CachedNamespace, a Store's cache survives process restarts.
package exprstore

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strconv"

	"modernc.org/sqlite"

	"github.com/dekarrin/exprlang"
)

var _ exprlang.CacheableNamespace = (*Store)(nil)

// ErrAlreadyExists is returned from CacheCreate when a row for name is
// already present.
var ErrAlreadyExists = errors.New("cache entry already exists")

// ErrNotFound is what wrapDBError translates sql.ErrNoRows into. Lookup
// does not return it: a missing row is reported through Lookup's bool
// return instead.
var ErrNotFound = errors.New("cache entry not found")

// Store resolves Namespace lookups against a cache table persisted to a
// SQLite database file, and implements exprlang.CacheableNamespace.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path and
// ensures its cache table exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, wrapDBError(err)
	}

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) init() error {
	const stmt = `CREATE TABLE IF NOT EXISTS cache_entries (
		key TEXT NOT NULL PRIMARY KEY,
		value REAL NOT NULL
	);`
	_, err := s.db.Exec(stmt)
	if err != nil {
		return wrapDBError(err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Lookup resolves name(args...) against the cache table, rendering the
// call key into keybuf[:0] to avoid allocating on every call. It
// implements exprlang.Namespace, taking the same []byte scratch buffer
// signature as Slab.Scratch so a Store can back either a live
// Parser/Compiler/Evaluator cycle or exprserver's HTTP façade directly.
func (s *Store) Lookup(name string, args []float64, keybuf []byte) (float64, bool) {
	key := string(renderCallKey(keybuf[:0], name, args))

	row := s.db.QueryRow(`SELECT value FROM cache_entries WHERE key = ?;`, key)

	var v float64
	if err := row.Scan(&v); err != nil {
		return 0, false
	}
	return v, true
}

// CacheCreate inserts a new cache row for the bare name name, failing
// with ErrAlreadyExists if one is already present.
func (s *Store) CacheCreate(name string, v float64) error {
	_, err := s.db.Exec(`INSERT INTO cache_entries (key, value) VALUES (?, ?);`, name, v)
	if err != nil {
		return wrapDBError(err)
	}
	return nil
}

// CacheSet inserts or overwrites the cache row for name.
func (s *Store) CacheSet(name string, v float64) {
	s.db.Exec(`INSERT INTO cache_entries (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value;`, name, v)
}

// CacheClear deletes every row from the cache table, logging (rather than
// returning) any failure so Store satisfies exprlang.CacheableNamespace's
// CacheClear() signature directly.
func (s *Store) CacheClear() {
	if _, err := s.db.Exec(`DELETE FROM cache_entries;`); err != nil {
		log.Printf("exprstore: cache clear failed: %s", wrapDBError(err).Error())
	}
}

// ClearChecked is CacheClear with the error surfaced, for callers (an
// admin HTTP handler, tests) that need to confirm the delete actually
// succeeded instead of having the failure only reach the log.
func (s *Store) ClearChecked() error {
	_, err := s.db.Exec(`DELETE FROM cache_entries;`)
	if err != nil {
		return wrapDBError(err)
	}
	return nil
}

// renderCallKey appends a call's cache key to buf and returns the
// result, reusing buf's backing array across calls the way Slab.Scratch
// does: just name when args is empty, otherwise "name , a1 , a2 , …".
// Matching the key scheme the in-memory cached namespace uses is what
// lets a cache entry written through one CacheableNamespace adapter be
// read back correctly through another.
func renderCallKey(buf []byte, name string, args []float64) []byte {
	buf = append(buf, name...)
	for _, a := range args {
		buf = append(buf, " , "...)
		buf = strconv.AppendFloat(buf, a, 'g', -1, 64)
	}
	return buf
}

// sqliteConstraintViolation is the SQLite primary result code for a
// constraint violation (SQLITE_CONSTRAINT). The driver reports extended
// codes like SQLITE_CONSTRAINT_PRIMARYKEY; the low byte is the primary
// code.
const sqliteConstraintViolation = 19

func wrapDBError(err error) error {
	if err == nil {
		return nil
	}

	sqliteErr := &sqlite.Error{}
	if errors.As(err, &sqliteErr) {
		if sqliteErr.Code()&0xff == sqliteConstraintViolation {
			return ErrAlreadyExists
		}
		return fmt.Errorf("exprstore: %s", sqlite.ErrorCodeString[sqliteErr.Code()])
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("exprstore: %w", err)
}
