package store

import (
	"context"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.mongodb.org/mongo-driver/bson"
)

// Bolt keeps snapshots in a local file, one BSON document per scene.
type Bolt struct {
	db     *bolt.DB
	bucket []byte
}

func NewBolt(path, bucket string) (*Bolt, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	b := &Bolt{db: db, bucket: []byte(bucket)}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(b.bucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

func (b *Bolt) Save(_ context.Context, snap *Snapshot) error {
	doc, err := bson.Marshal(snap)
	if err != nil {
		return err
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(b.bucket).Put([]byte(snap.Scene), doc)
	})
}

func (b *Bolt) Load(_ context.Context, scene string) (*Snapshot, error) {
	var snap *Snapshot
	err := b.db.View(func(tx *bolt.Tx) error {
		doc := tx.Bucket(b.bucket).Get([]byte(scene))
		if doc == nil {
			return nil
		}
		// bolt memory is only valid inside the transaction
		snap = &Snapshot{}
		return bson.Unmarshal(append([]byte(nil), doc...), snap)
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (b *Bolt) Close(context.Context) error { return b.db.Close() }
