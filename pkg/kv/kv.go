// Package kv defines the ordered key-value substrate contract HelixDB's
// storage engine is built on (spec.md §2 "KV substrate").
//
// The substrate provides ACID write transactions, read snapshots, range
// iteration in key order, and — since most real KV engines (BadgerDB
// included) have no native LMDB-style dup-sorted database — a convention for
// emulating multi-value sets: a logical (key, member) pair is stored as one
// physical key `key ‖ member` with an empty value, and prefix iteration over
// `key` yields every member in byte order. pkg/storage relies on that
// convention for out_edges/in_edges/secondary index tables.
package kv

import "context"

// Txn is a single read or write transaction against the substrate.
//
// A read Txn offers snapshot isolation: it observes the database exactly as
// it was when the transaction began, regardless of concurrent writers. A
// write Txn is the only one of its kind active process-wide (single-writer,
// spec.md §5); it observes its own prior writes immediately.
type Txn interface {
	// Get fetches the value for key. Returns ErrKeyNotFound if absent.
	Get(key []byte) ([]byte, error)

	// Set writes key=value. Only valid on a write transaction.
	Set(key, value []byte) error

	// Delete removes key. Only valid on a write transaction.
	Delete(key []byte) error

	// Iterator returns a forward iterator over every key with the given
	// prefix, in ascending byte order. The caller must call Close when
	// done.
	Iterator(prefix []byte) Iterator

	// Discard abandons the transaction without committing. Always safe to
	// call, including after Commit.
	Discard()
}

// WriteTxn is a Txn that can be committed. Opened via DB.Update.
type WriteTxn interface {
	Txn
	Commit() error
}

// Iterator walks a key range in ascending order.
type Iterator interface {
	// Valid reports whether the iterator currently points at an entry.
	Valid() bool
	// Next advances the iterator.
	Next()
	// Key returns the current key. Valid only while Valid() is true and
	// until the next call to Next.
	Key() []byte
	// Value returns the current value, copying out of any substrate-owned
	// buffer so it outlives the iterator (spec.md §3 "Ownership").
	Value() ([]byte, error)
	// Close releases iterator resources. Idempotent.
	Close()
}

// DB is an opened substrate environment, shared by reference across
// goroutines (spec.md §5 "Shared resources").
type DB interface {
	// View runs fn against a new read-only snapshot. Multiple View calls
	// run concurrently with each other and with an in-flight Update.
	View(ctx context.Context, fn func(Txn) error) error

	// Update runs fn against a new write transaction. At most one Update
	// is active at a time process-wide; callers may block waiting for the
	// writer lock. fn's return value controls commit: a non-nil error
	// aborts the transaction and no change becomes visible.
	Update(ctx context.Context, fn func(WriteTxn) error) error

	// Close releases the substrate's file handles.
	Close() error
}
