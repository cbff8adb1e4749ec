// Package catalog implements the durable vm_id -> VM record mapping.
// It is a thin, single-writer/multi-reader wrapper over go.etcd.io/bbolt,
// the Go analogue of the embedded KV store (redb) the reference
// implementation uses: one bucket ("vms"), values are JSON-serialized
// vm.Record, every write is a single atomic transaction.
package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"

	bolt "go.etcd.io/bbolt"

	"github.com/onkernel/glidex/lib/errs"
	"github.com/onkernel/glidex/lib/vm"
)

var bucketName = []byte("vms")

// Store is the catalog's on-disk handle.
type Store struct {
	db *bolt.DB
}

// Open creates the parent directory if absent, opens (or creates) the
// database file, and ensures the vms bucket exists.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errs.PersistenceWrap("create catalog directory", err)
		}
	}

	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, errs.PersistenceWrap("open catalog database", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errs.PersistenceWrap("create vms bucket", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// LoadAll returns every record in the catalog, in unspecified order.
func (s *Store) LoadAll() ([]*vm.Record, error) {
	var records []*vm.Record
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		return b.ForEach(func(k, v []byte) error {
			var rec vm.Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			records = append(records, &rec)
			return nil
		})
	})
	if err != nil {
		return nil, errs.PersistenceWrap("load all records", err)
	}
	return records, nil
}

// Save inserts or replaces the record under vm.ID, atomically.
func (s *Store) Save(rec *vm.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return errs.PersistenceWrap("marshal record", err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		return b.Put([]byte(rec.ID), data)
	})
	if err != nil {
		return errs.PersistenceWrap("save record", err)
	}
	return nil
}

// Delete removes the key; it is a no-op if the id is absent.
func (s *Store) Delete(id string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		return b.Delete([]byte(id))
	})
	if err != nil {
		return errs.PersistenceWrap("delete record", err)
	}
	return nil
}

// UpdateState performs a read-modify-write of just the state field within a
// single transaction. It fails with errs.ErrNotFound if the key is absent
// at the moment of the read.
func (s *Store) UpdateState(id string, newState vm.State) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		data := b.Get([]byte(id))
		if data == nil {
			return errs.NotFound(id)
		}
		var rec vm.Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		rec.State = newState
		updated, err := json.Marshal(&rec)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), updated)
	})
	if err != nil {
		return err
	}
	return nil
}
