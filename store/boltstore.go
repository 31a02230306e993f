package store

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/bitfsorg/libsale-go/event"
)

var (
	bucketEntries  = []byte("entries")
	bucketEvents   = []byte("events")
	bucketEventIDs = []byte("event_ids")
)

// BoltStore wraps a bbolt database holding the registry and the event log.
type BoltStore struct {
	db  *bbolt.DB
	log *zap.Logger
}

// OpenBoltStore opens or creates the bbolt database at dbPath.
// The parent directory is created if it does not exist. log may be nil.
func OpenBoltStore(dbPath string, log *zap.Logger) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("store: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("store: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketEntries, bucketEvents, bucketEventIDs} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: create buckets: %w", err)
	}

	if log == nil {
		log = zap.NewNop()
	}
	return &BoltStore{db: db, log: log}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error { return s.db.Close() }

// Registry returns a RegistryStore backed by this database.
func (s *BoltStore) Registry() *BoltRegistryStore { return &BoltRegistryStore{db: s.db} }

// Events returns the event log backed by this database.
func (s *BoltStore) Events() *BoltEventLog { return &BoltEventLog{db: s.db, log: s.log} }

func indexKey(i uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, i)
	return k
}

func encodeGob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGob(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// ---------------------------------------------------------------------------
// BoltRegistryStore implements RegistryStore.
// ---------------------------------------------------------------------------

// BoltRegistryStore persists registry entries in bbolt.
type BoltRegistryStore struct {
	db *bbolt.DB
}

// Compile-time interface check.
var _ RegistryStore = (*BoltRegistryStore)(nil)

// PutEntry inserts or replaces the entry at e.Index.
func (s *BoltRegistryStore) PutEntry(e *Entry) error {
	if e == nil {
		return fmt.Errorf("%w: entry", ErrNilParam)
	}
	data, err := encodeGob(e)
	if err != nil {
		return fmt.Errorf("store: encode entry: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEntries).Put(indexKey(e.Index), data)
	})
}

// GetEntry retrieves the entry at index.
func (s *BoltRegistryStore) GetEntry(index uint64) (*Entry, error) {
	var e Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketEntries).Get(indexKey(index))
		if data == nil {
			return fmt.Errorf("%w: %d", ErrEntryNotFound, index)
		}
		if err := decodeGob(data, &e); err != nil {
			return fmt.Errorf("store: decode entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// DeleteEntry removes the entry at index.
func (s *BoltRegistryStore) DeleteEntry(index uint64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		if b.Get(indexKey(index)) == nil {
			return fmt.Errorf("%w: %d", ErrEntryNotFound, index)
		}
		return b.Delete(indexKey(index))
	})
}

// ListEntries returns all entries ordered by index.
func (s *BoltRegistryStore) ListEntries() ([]*Entry, error) {
	var out []*Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEntries).ForEach(func(_, v []byte) error {
			var e Entry
			if err := decodeGob(v, &e); err != nil {
				return fmt.Errorf("store: decode entry: %w", err)
			}
			out = append(out, &e)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CountEntries returns the number of stored entries.
func (s *BoltRegistryStore) CountEntries() (uint64, error) {
	var n uint64
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = uint64(tx.Bucket(bucketEntries).Stats().KeyN)
		return nil
	})
	return n, err
}

// ---------------------------------------------------------------------------
// BoltEventLog is an append-only event.Sink.
// ---------------------------------------------------------------------------

// BoltEventLog appends every emitted event to bbolt. Each record is
// addressed by the double SHA-256 of its sequence number and encoding.
type BoltEventLog struct {
	db  *bbolt.DB
	log *zap.Logger
}

// Compile-time interface check.
var _ event.Sink = (*BoltEventLog)(nil)

// Emit implements event.Sink. Write failures are logged; emitters never
// see them.
func (l *BoltEventLog) Emit(e event.Event) {
	if _, err := l.Append(e); err != nil {
		l.log.Error("event log append failed", zap.String("event", e.Name), zap.Error(err))
	}
}

// Append stores e and returns its id.
func (l *BoltEventLog) Append(e event.Event) (chainhash.Hash, error) {
	data, err := encodeGob(e)
	if err != nil {
		return chainhash.Hash{}, fmt.Errorf("store: encode event: %w", err)
	}
	var id chainhash.Hash
	err = l.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEvents)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		key := indexKey(seq)
		id = chainhash.DoubleHashH(append(key, data...))
		if err := b.Put(key, data); err != nil {
			return fmt.Errorf("put event: %w", err)
		}
		return tx.Bucket(bucketEventIDs).Put(id[:], key)
	})
	if err != nil {
		return chainhash.Hash{}, fmt.Errorf("store: append event: %w", err)
	}
	return id, nil
}

// GetEvent retrieves an event by id.
func (l *BoltEventLog) GetEvent(id chainhash.Hash) (*event.Event, error) {
	var e event.Event
	err := l.db.View(func(tx *bbolt.Tx) error {
		key := tx.Bucket(bucketEventIDs).Get(id[:])
		if key == nil {
			return fmt.Errorf("%w: %s", ErrEventNotFound, id)
		}
		data := tx.Bucket(bucketEvents).Get(key)
		if data == nil {
			return fmt.Errorf("%w: %s", ErrEventNotFound, id)
		}
		return decodeGob(data, &e)
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListEvents returns every stored event in append order.
func (l *BoltEventLog) ListEvents() ([]*event.Event, error) {
	var out []*event.Event
	err := l.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEvents).ForEach(func(_, v []byte) error {
			var e event.Event
			if err := decodeGob(v, &e); err != nil {
				return fmt.Errorf("store: decode event: %w", err)
			}
			out = append(out, &e)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
