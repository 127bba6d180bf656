package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strings"

	bolt "go.etcd.io/bbolt"

	v1alpha1 "github.com/klubi/claw/pkg/apis/v1alpha1"
)

var (
	tasksBucket  = []byte("tasks")
	eventsBucket = []byte("events")
)

// BoltStore persists tasks to a BoltDB file on disk. Each task's transcript
// lives in its own nested bucket under "events", keyed by sequence number.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) a BoltDB database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}

	// Ensure the buckets exist.
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{tasksBucket, eventsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// ---------- Tasks ----------

func (b *BoltStore) CreateTask(task *v1alpha1.Task) error {
	if err := validateTask(task); err != nil {
		return err
	}
	raw, err := json.Marshal(task)
	if err != nil {
		return err
	}
	key := []byte(taskKey(task.Metadata.Project, task.Metadata.Name))

	return b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(tasksBucket)
		if bkt.Get(key) != nil {
			return ErrAlreadyExists
		}
		return bkt.Put(key, raw)
	})
}

func (b *BoltStore) GetTask(project, name string) (*v1alpha1.Task, error) {
	var task v1alpha1.Task
	err := b.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(tasksBucket).Get([]byte(taskKey(project, name)))
		if raw == nil {
			return ErrNotFound
		}
		return json.Unmarshal(raw, &task)
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (b *BoltStore) UpdateTask(task *v1alpha1.Task) error {
	if err := validateTask(task); err != nil {
		return err
	}
	raw, err := json.Marshal(task)
	if err != nil {
		return err
	}
	key := []byte(taskKey(task.Metadata.Project, task.Metadata.Name))

	return b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(tasksBucket)
		if bkt.Get(key) == nil {
			return ErrNotFound
		}
		return bkt.Put(key, raw)
	})
}

func (b *BoltStore) DeleteTask(project, name string) error {
	key := []byte(taskKey(project, name))

	return b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(tasksBucket)
		if bkt.Get(key) == nil {
			return ErrNotFound
		}
		if err := bkt.Delete(key); err != nil {
			return err
		}
		events := tx.Bucket(eventsBucket)
		if events.Bucket(key) != nil {
			return events.DeleteBucket(key)
		}
		return nil
	})
}

func (b *BoltStore) ListTasks(project string) ([]*v1alpha1.Task, error) {
	prefix := taskPrefix(project)
	var results []*v1alpha1.Task

	err := b.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(tasksBucket).Cursor()
		for k, v := c.Seek([]byte(prefix)); k != nil && strings.HasPrefix(string(k), prefix); k, v = c.Next() {
			var task v1alpha1.Task
			if err := json.Unmarshal(v, &task); err != nil {
				return fmt.Errorf("decoding %s: %w", k, err)
			}
			results = append(results, &task)
		}
		return nil
	})
	return results, err
}

// ---------- Events ----------

func (b *BoltStore) AppendEvent(project, name string, evt v1alpha1.Event) (v1alpha1.Event, error) {
	key := []byte(taskKey(project, name))

	err := b.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(tasksBucket).Get(key) == nil {
			return ErrNotFound
		}
		bkt, err := tx.Bucket(eventsBucket).CreateBucketIfNotExists(key)
		if err != nil {
			return err
		}
		seq, err := bkt.NextSequence()
		if err != nil {
			return err
		}
		evt.Seq = int(seq)
		raw, err := json.Marshal(evt)
		if err != nil {
			return err
		}
		return bkt.Put(seqKey(seq), raw)
	})
	if err != nil {
		return v1alpha1.Event{}, err
	}
	return evt, nil
}

func (b *BoltStore) Events(project, name string, since int) ([]v1alpha1.Event, error) {
	key := []byte(taskKey(project, name))
	var results []v1alpha1.Event

	err := b.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(tasksBucket).Get(key) == nil {
			return ErrNotFound
		}
		bkt := tx.Bucket(eventsBucket).Bucket(key)
		if bkt == nil {
			return nil
		}
		start := uint64(0)
		if since > 0 {
			start = uint64(since)
		}
		c := bkt.Cursor()
		for k, v := c.Seek(seqKey(start + 1)); k != nil; k, v = c.Next() {
			var evt v1alpha1.Event
			if err := json.Unmarshal(v, &evt); err != nil {
				return err
			}
			results = append(results, evt)
		}
		return nil
	})
	return results, err
}

// ---------- Close ----------

func (b *BoltStore) Close() error {
	return b.db.Close()
}

// seqKey encodes a sequence number so that byte order matches numeric order.
func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}
