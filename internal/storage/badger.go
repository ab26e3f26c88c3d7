package storage

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

const badgerIndexKey = "index/vaults"

// Badger implements Provider backed by an embedded BadgerDB key-value store.
// Keys are "vault/<id>/<collection>"; the vault index lives under its own
// prefix so DeleteVault never touches it.
type Badger struct {
	db *badger.DB
}

// NewBadger opens (or creates) a BadgerDB at dir. Pass empty dir to run
// in-memory, which is what the tests use.
func NewBadger(dir string, logger *slog.Logger) (*Badger, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(dir)
	}
	if logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("storage: open badger: %w", err)
	}
	return &Badger{db: db}, nil
}

func vaultKey(vaultID, collection string) []byte {
	return []byte("vault/" + vaultID + "/" + collection)
}

// Read returns the stored collection bytes, or (nil, nil) when absent.
func (b *Badger) Read(vaultID, collection string) ([]byte, error) {
	return b.get(vaultKey(vaultID, collection))
}

// Write stores the bytes for a vault collection.
func (b *Badger) Write(vaultID, collection string, data []byte) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(vaultKey(vaultID, collection), data)
	})
	if err != nil {
		return fmt.Errorf("storage: badger write %s/%s: %w", vaultID, collection, err)
	}
	return nil
}

// DeleteVault removes every key under the vault's prefix.
func (b *Badger) DeleteVault(vaultID string) error {
	prefix := []byte("vault/" + vaultID + "/")
	err := b.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()

		var keys [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("storage: badger delete vault %s: %w", vaultID, err)
	}
	return nil
}

// ReadIndex returns the global vault index, or (nil, nil) when absent.
func (b *Badger) ReadIndex() ([]byte, error) {
	return b.get([]byte(badgerIndexKey))
}

// WriteIndex stores the global vault index.
func (b *Badger) WriteIndex(data []byte) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(badgerIndexKey), data)
	})
	if err != nil {
		return fmt.Errorf("storage: badger write index: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (b *Badger) Close() error {
	return b.db.Close()
}

func (b *Badger) get(key []byte) ([]byte, error) {
	var out []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: badger read %s: %w", key, err)
	}
	return out, nil
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

var _ Provider = (*Badger)(nil)
