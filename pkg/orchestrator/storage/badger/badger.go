package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	badgerv3 "github.com/dgraph-io/badger/v3"

	"github.com/sentinel-bridge/sentinel/pkg/hostChain"
	"github.com/sentinel-bridge/sentinel/pkg/orchestrator/storage"
	"github.com/sentinel-bridge/sentinel/pkg/sentinelConfig"
)

const (
	prefixSubmission = "submission:%d:%s" // instanceId:kind
	prefixScan       = "submission:"
)

// BadgerSubmissionStore implements the SubmissionStore interface using
// BadgerDB, so the journal survives restarts.
type BadgerSubmissionStore struct {
	db       *badgerv3.DB
	mu       sync.RWMutex
	closed   bool
	closeCh  chan struct{}
	gcTicker *time.Ticker
}

// NewBadgerSubmissionStore creates a new BadgerDB-backed submission store
func NewBadgerSubmissionStore(cfg *sentinelConfig.BadgerConfig) (*BadgerSubmissionStore, error) {
	if cfg == nil {
		return nil, errors.New("badger config is nil")
	}

	opts := badgerv3.DefaultOptions(cfg.Dir)
	opts.Logger = nil // Disable BadgerDB's default logging

	if cfg.InMemory {
		opts.InMemory = true
	}
	if cfg.ValueLogFileSize > 0 {
		opts.ValueLogFileSize = int64(cfg.ValueLogFileSize)
	}

	db, err := badgerv3.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	s := &BadgerSubmissionStore{
		db:      db,
		closeCh: make(chan struct{}),
	}

	// Start garbage collection routine
	s.gcTicker = time.NewTicker(5 * time.Minute)
	go s.runGC()

	return s, nil
}

func (s *BadgerSubmissionStore) runGC() {
	for {
		select {
		case <-s.gcTicker.C:
			s.mu.RLock()
			if s.closed {
				s.mu.RUnlock()
				return
			}
			s.mu.RUnlock()

			_ = s.db.RunValueLogGC(0.5)
		case <-s.closeCh:
			return
		}
	}
}

func (s *BadgerSubmissionStore) SaveSubmission(ctx context.Context, record *storage.SubmissionRecord) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return storage.ErrStoreClosed
	}
	s.mu.RUnlock()

	if record == nil {
		return errors.New("submission record is nil")
	}

	key := fmt.Sprintf(prefixSubmission, record.InstanceId, record.Kind)
	value, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal submission record: %w", err)
	}

	return s.db.Update(func(txn *badgerv3.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

func (s *BadgerSubmissionStore) GetSubmission(ctx context.Context, instanceId hostChain.InstanceId, kind storage.SubmissionKind) (*storage.SubmissionRecord, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, storage.ErrStoreClosed
	}
	s.mu.RUnlock()

	key := fmt.Sprintf(prefixSubmission, instanceId, kind)

	var record storage.SubmissionRecord
	err := s.db.View(func(txn *badgerv3.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if errors.Is(err, badgerv3.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})
	if err != nil {
		return nil, err
	}

	return &record, nil
}

func (s *BadgerSubmissionStore) ListSubmissions(ctx context.Context) ([]*storage.SubmissionRecord, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, storage.ErrStoreClosed
	}
	s.mu.RUnlock()

	var records []*storage.SubmissionRecord
	err := s.db.View(func(txn *badgerv3.Txn) error {
		opts := badgerv3.DefaultIteratorOptions
		opts.Prefix = []byte(prefixScan)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var record storage.SubmissionRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &record)
			})
			if err != nil {
				return err
			}
			records = append(records, &record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}

func (s *BadgerSubmissionStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrStoreClosed
	}

	s.closed = true
	s.gcTicker.Stop()
	close(s.closeCh)

	return s.db.Close()
}
