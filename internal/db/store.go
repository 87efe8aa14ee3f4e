package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"

	"github.com/evdata/evdata/internal/common"
)

// maxConflictRetries bounds how often Update retries a conflicting transaction.
const maxConflictRetries = 5

type Store struct {
	db *badger.DB
}

func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	opts := badger.DefaultOptions(filepath.Join(dataDir, "badger"))
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Get(namespace, key string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		value, err = readValue(txn, namespace+key)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, common.NotFoundf("key not found: %s", key)
	}
	return value, err
}

func (s *Store) Set(namespace, key string, value []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(namespace+key), value)
	})
}

// Update reads the current value, passes it to fn and writes the returned
// value in the same transaction. A missing key yields NotFound without
// calling fn.
func (s *Store) Update(namespace, key string, fn func([]byte) ([]byte, error)) error {
	fullKey := namespace + key
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = s.db.Update(func(txn *badger.Txn) error {
			current, err := readValue(txn, fullKey)
			if err != nil {
				return err
			}
			next, err := fn(current)
			if err != nil {
				return err
			}
			return txn.Set([]byte(fullKey), next)
		})
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}
	if errors.Is(err, badger.ErrKeyNotFound) {
		return common.NotFoundf("key not found: %s", key)
	}
	return err
}

func (s *Store) Delete(namespace, key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(namespace + key))
	})
}

// Scan calls fn with every value under namespace+prefix, in key order.
func (s *Store) Scan(namespace, prefix string, fn func(key string, value []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		fullPrefix := []byte(namespace + prefix)
		for it.Seek(fullPrefix); it.ValidForPrefix(fullPrefix); it.Next() {
			item := it.Item()
			key := string(item.Key())[len(namespace):]
			if err := item.Value(func(val []byte) error { return fn(key, val) }); err != nil {
				return err
			}
		}
		return nil
	})
}

func readValue(txn *badger.Txn, key string) ([]byte, error) {
	item, err := txn.Get([]byte(key))
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}
