package settlement

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "github.com/boltdb/bolt"
)

const escrowBucket = "escrows"

// BoltStore is a durable, single-file Store implementation backed by BoltDB.
// It suits single-node deployments that must survive restarts without an
// external database process.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) a BoltDB database at path and ensures the
// escrow bucket exists.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(escrowBucket))
		return err
	})
	if err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("create escrow bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Close releases the database file lock.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Get implements Store.
func (s *BoltStore) Get(_ context.Context, id string) (*Record, error) {
	var r Record
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(escrowBucket)).Get([]byte(id))
		if v == nil {
			return ErrEscrowNotFound
		}
		return json.Unmarshal(v, &r)
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Put implements Store.
func (s *BoltStore) Put(_ context.Context, r *Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal escrow: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(escrowBucket)).Put([]byte(r.ID), data)
	})
}

// ListByTenant implements Store. Full-bucket scan; escrow counts per node
// stay small enough that an index is not worth the bookkeeping.
func (s *BoltStore) ListByTenant(ctx context.Context, tenantEmail string) ([]*Record, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := []*Record{}
	for _, r := range all {
		if r.TenantEmail == tenantEmail {
			out = append(out, r)
		}
	}
	return out, nil
}

// List implements Store.
func (s *BoltStore) List(_ context.Context) ([]*Record, error) {
	out := []*Record{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(escrowBucket)).ForEach(func(_, v []byte) error {
			var r Record
			if err := json.Unmarshal(v, &r); err != nil {
				return err
			}
			out = append(out, &r)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sortByCreation(out)
	return out, nil
}
