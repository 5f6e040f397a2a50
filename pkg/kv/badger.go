package kv

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
)

// ErrKeyNotFound mirrors badger.ErrKeyNotFound without leaking the Badger
// type into callers that only depend on pkg/kv.
var ErrKeyNotFound = errors.New("kv: key not found")

// Options configures the Badger-backed substrate.
type Options struct {
	// Dir is the directory holding the substrate's files. Required unless
	// InMemory is set.
	Dir string

	// InMemory runs the substrate entirely in RAM; used by tests and by
	// ephemeral engine instances.
	InMemory bool

	// SyncWrites forces an fsync after every committed write transaction.
	SyncWrites bool
}

// badgerDB adapts *badger.DB to the DB interface.
type badgerDB struct {
	db *badger.DB
}

// Open opens (creating if necessary) a Badger-backed substrate at the
// configured directory, applying the same memory-constrained defaults the
// teacher engine used for containerized deployments.
func Open(opts Options) (DB, error) {
	bopts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		// Badger refuses a directory in in-memory mode, so Dir is ignored.
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	if opts.SyncWrites {
		bopts = bopts.WithSyncWrites(true)
	}
	bopts = bopts.
		WithLogger(nil).
		WithMemTableSize(16 << 20).
		WithValueLogFileSize(64 << 20).
		WithNumMemtables(2).
		WithNumLevelZeroTables(2).
		WithNumLevelZeroTablesStall(4).
		WithValueThreshold(1024).
		WithBlockCacheSize(32 << 20).
		WithIndexCacheSize(16 << 20)

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, err
	}
	return &badgerDB{db: db}, nil
}

func (b *badgerDB) View(ctx context.Context, fn func(Txn) error) error {
	return b.db.View(func(txn *badger.Txn) error {
		return fn(&badgerTxn{txn: txn})
	})
}

func (b *badgerDB) Update(ctx context.Context, fn func(WriteTxn) error) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return fn(&badgerTxn{txn: txn, writable: true})
	})
}

func (b *badgerDB) Close() error {
	return b.db.Close()
}

// badgerTxn adapts *badger.Txn to Txn/WriteTxn. Badger commits the
// transaction itself when Update's callback returns nil, so Commit here is
// a no-op retained to satisfy the WriteTxn interface for callers that
// compose multiple substrates behind the same contract.
type badgerTxn struct {
	txn      *badger.Txn
	writable bool
}

func (t *badgerTxn) Get(key []byte) ([]byte, error) {
	item, err := t.txn.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return item.ValueCopy(nil)
}

func (t *badgerTxn) Set(key, value []byte) error {
	return t.txn.Set(key, value)
}

func (t *badgerTxn) Delete(key []byte) error {
	return t.txn.Delete(key)
}

func (t *badgerTxn) Iterator(prefix []byte) Iterator {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := t.txn.NewIterator(opts)
	it.Seek(prefix)
	return &badgerIterator{it: it, prefix: prefix}
}

func (t *badgerTxn) Discard() {
	t.txn.Discard()
}

func (t *badgerTxn) Commit() error {
	return nil
}

type badgerIterator struct {
	it     *badger.Iterator
	prefix []byte
}

func (i *badgerIterator) Valid() bool {
	return i.it.ValidForPrefix(i.prefix)
}

func (i *badgerIterator) Next() {
	i.it.Next()
}

func (i *badgerIterator) Key() []byte {
	return i.it.Item().KeyCopy(nil)
}

func (i *badgerIterator) Value() ([]byte, error) {
	return i.it.Item().ValueCopy(nil)
}

func (i *badgerIterator) Close() {
	i.it.Close()
}
