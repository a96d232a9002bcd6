package store

import (
	"encoding/json"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v3"

	"github.com/daideguchi/dental-ai-counseling-system/internal/pipeline"
)

// ErrNotFound is returned when no record exists for a session ID.
var ErrNotFound = errors.New("record not found")

// RecordStore persists processed transcript results in an embedded badger
// database keyed by session ID.
type RecordStore struct {
	db *badger.DB
}

// Open opens (or creates) the store at path.
func Open(path string) (*RecordStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open record store: %w", err)
	}
	return &RecordStore{db: db}, nil
}

// Close releases the underlying database.
func (s *RecordStore) Close() error {
	return s.db.Close()
}

// Put saves one result under its session ID.
func (s *RecordStore) Put(res *pipeline.Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(res.SessionID), data)
	})
	if err != nil {
		return fmt.Errorf("save record %s: %w", res.SessionID, err)
	}
	return nil
}

// Get loads the result for a session ID.
func (s *RecordStore) Get(sessionID string) (*pipeline.Result, error) {
	var res pipeline.Result
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(sessionID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &res)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load record %s: %w", sessionID, err)
	}
	return &res, nil
}

// List returns every stored result.
func (s *RecordStore) List() ([]*pipeline.Result, error) {
	var out []*pipeline.Result
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var res pipeline.Result
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &res)
			})
			if err != nil {
				return err
			}
			out = append(out, &res)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return out, nil
}
