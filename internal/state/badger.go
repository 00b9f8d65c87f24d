package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// badgerRecord is the on-disk encoding of one entry.
type badgerRecord struct {
	Value    []byte            `json:"value"`
	ETag     string            `json:"etag"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// BadgerStore is a Badger-backed state store for single-node persistence.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadgerStore opens (or creates) the Badger database at path.
func OpenBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("state: opening badger at %s: %w", path, err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Get(ctx context.Context, key string) (*Item, error) {
	var rec badgerRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return &Item{Key: key, Value: rec.Value, ETag: rec.ETag, Metadata: rec.Metadata}, nil
}

func (s *BadgerStore) Set(ctx context.Context, req *SetRequest) (string, error) {
	etag := newETag()
	err := s.db.Update(func(txn *badger.Txn) error {
		return setInTxn(txn, req, etag)
	})
	if err != nil {
		return "", err
	}
	return etag, nil
}

func (s *BadgerStore) Delete(ctx context.Context, req *DeleteRequest) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return deleteInTxn(txn, req)
	})
}

func (s *BadgerStore) Multi(ctx context.Context, ops []TransactionOp) error {
	// A single Update callback gives transaction atomicity for free.
	return s.db.Update(func(txn *badger.Txn) error {
		for _, op := range ops {
			if op.Delete {
				if err := deleteInTxn(txn, &op.Del); err != nil {
					return err
				}
				continue
			}
			if err := setInTxn(txn, &op.Set, newETag()); err != nil {
				return err
			}
		}
		return nil
	})
}

func setInTxn(txn *badger.Txn, req *SetRequest, etag string) error {
	if conditional(req.ETag, req.FirstWrite) {
		if err := checkETag(txn, req.Key, req.ETag); err != nil {
			return err
		}
	}
	buf, err := json.Marshal(badgerRecord{Value: req.Value, ETag: etag, Metadata: req.Metadata})
	if err != nil {
		return err
	}
	return txn.Set([]byte(req.Key), buf)
}

func deleteInTxn(txn *badger.Txn, req *DeleteRequest) error {
	if conditional(req.ETag, req.FirstWrite) {
		if err := checkETag(txn, req.Key, req.ETag); err != nil {
			return err
		}
	}
	err := txn.Delete([]byte(req.Key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	return err
}

func checkETag(txn *badger.Txn, key, etag string) error {
	item, err := txn.Get([]byte(key))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrETagMismatch
		}
		return err
	}
	var rec badgerRecord
	if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &rec) }); err != nil {
		return err
	}
	if rec.ETag != etag {
		return ErrETagMismatch
	}
	return nil
}

func (s *BadgerStore) Ping(ctx context.Context) error {
	if s.db.IsClosed() {
		return errors.New("state: badger database is closed")
	}
	return nil
}

func (s *BadgerStore) Close() error { return s.db.Close() }
