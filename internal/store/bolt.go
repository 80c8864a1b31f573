package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "github.com/boltdb/bolt"
)

const snapshotBucket = "snapshots"

// BoltJournal appends snapshots to a single bolt file, keyed by a
// monotonically increasing sequence.
type BoltJournal struct {
	db *bolt.DB
}

func OpenBolt(path string) (*BoltJournal, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(snapshotBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltJournal{db: db}, nil
}

func (j *BoltJournal) Close() error {
	return j.db.Close()
}

func (j *BoltJournal) Record(_ context.Context, s Snapshot) error {
	if s.RecordedAt.IsZero() {
		s.RecordedAt = time.Now().UTC()
	}
	v, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return j.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(snapshotBucket))
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return b.Put(key, v)
	})
}

// All returns every snapshot in recording order.
func (j *BoltJournal) All() ([]Snapshot, error) {
	return j.filter(func(Snapshot) bool { return true })
}

// History returns the snapshots of a payment and its transactions in
// recording order.
func (j *BoltJournal) History(_ context.Context, paymentID string) ([]Snapshot, error) {
	out, err := j.filter(func(s Snapshot) bool {
		return s.PaymentID == paymentID || (s.Kind == "payment" && s.ID == paymentID)
	})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

func (j *BoltJournal) filter(keep func(Snapshot) bool) ([]Snapshot, error) {
	var out []Snapshot
	err := j.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(snapshotBucket)).ForEach(func(k, v []byte) error {
			var s Snapshot
			if err := json.Unmarshal(v, &s); err != nil {
				return fmt.Errorf("snapshot %x: %w", k, err)
			}
			if keep(s) {
				out = append(out, s)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
