package badger

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/felixgeelhaar/orderflow/domain/audit"
)

// Journal is a BadgerDB-backed implementation of audit.Journal.
// Entries are keyed by record ID and a per-record sequence, so a prefix
// scan returns them in append order.
type Journal struct {
	db        *badger.DB
	keyPrefix string
	retention time.Duration
	retries   int
	gcStop    chan struct{}
	gcWg      sync.WaitGroup
	closeOnce sync.Once
}

// NewJournal opens a BadgerDB journal with the given configuration.
func NewJournal(cfg Config, opts ...Option) (*Journal, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	j := &Journal{
		db:        db,
		keyPrefix: cfg.KeyPrefix,
		retention: cfg.Retention,
		retries:   max(cfg.ConflictRetries, 1),
		gcStop:    make(chan struct{}),
	}

	if cfg.GCInterval > 0 && !cfg.InMemory {
		j.startGC(cfg.GCInterval, cfg.GCDiscardRatio)
	}
	return j, nil
}

// startGC starts the value log garbage collection goroutine.
func (j *Journal) startGC(interval time.Duration, discardRatio float64) {
	j.gcWg.Add(1)
	go func() {
		defer j.gcWg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-j.gcStop:
				return
			case <-ticker.C:
				for j.db.RunValueLogGC(discardRatio) == nil {
				}
			}
		}
	}()
}

// Key format: prefix:audit:recordID:sequence (8 bytes, big-endian)
func (j *Journal) entryKey(recordID string, seq uint64) []byte {
	seqBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(seqBytes, seq)
	return append([]byte(j.keyPrefix+"audit:"+recordID+":"), seqBytes...)
}

// Key format: prefix:auditseq:recordID
func (j *Journal) seqKey(recordID string) []byte {
	return []byte(j.keyPrefix + "auditseq:" + recordID)
}

// Append adds an entry after the record's last one.
func (j *Journal) Append(ctx context.Context, entry audit.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := entry.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	for attempt := 0; attempt < j.retries; attempt++ {
		err = j.db.Update(func(txn *badger.Txn) error {
			var seq uint64
			item, err := txn.Get(j.seqKey(entry.RecordID))
			switch {
			case err == nil:
				if err := item.Value(func(val []byte) error {
					if len(val) == 8 {
						seq = binary.BigEndian.Uint64(val)
					}
					return nil
				}); err != nil {
					return err
				}
			case !errors.Is(err, badger.ErrKeyNotFound):
				return err
			}

			seq++
			e := badger.NewEntry(j.entryKey(entry.RecordID, seq), data)
			if j.retention > 0 {
				e = e.WithTTL(j.retention)
			}
			if err := txn.SetEntry(e); err != nil {
				return err
			}
			seqBytes := make([]byte, 8)
			binary.BigEndian.PutUint64(seqBytes, seq)
			return txn.Set(j.seqKey(entry.RecordID), seqBytes)
		})
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}
	if err != nil {
		return errors.Join(audit.ErrJournalUnavailable, err)
	}
	return nil
}

// List returns a record's entries, oldest first.
func (j *Journal) List(ctx context.Context, recordID string) ([]audit.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := []byte(j.keyPrefix + "audit:" + recordID + ":")
	var entries []audit.Entry

	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var e audit.Entry
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			}); err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Join(audit.ErrJournalUnavailable, err)
	}
	return entries, nil
}

// Close stops garbage collection and closes the database.
func (j *Journal) Close() error {
	var err error
	j.closeOnce.Do(func() {
		close(j.gcStop)
		j.gcWg.Wait()
		err = j.db.Close()
	})
	return err
}

var _ audit.Journal = (*Journal)(nil)
