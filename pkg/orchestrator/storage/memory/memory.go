package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/sentinel-bridge/sentinel/pkg/hostChain"
	"github.com/sentinel-bridge/sentinel/pkg/orchestrator/storage"
)

type recordKey struct {
	instanceId hostChain.InstanceId
	kind       storage.SubmissionKind
}

// InMemorySubmissionStore implements SubmissionStore with in-memory storage
type InMemorySubmissionStore struct {
	mu      sync.RWMutex
	closed  bool
	records map[recordKey]*storage.SubmissionRecord
}

// NewInMemorySubmissionStore creates a new in-memory submission store
func NewInMemorySubmissionStore() *InMemorySubmissionStore {
	return &InMemorySubmissionStore{
		records: make(map[recordKey]*storage.SubmissionRecord),
	}
}

func (s *InMemorySubmissionStore) SaveSubmission(ctx context.Context, record *storage.SubmissionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrStoreClosed
	}

	if record == nil {
		return fmt.Errorf("submission record cannot be nil")
	}

	// Clone the record to avoid external modifications
	recordCopy := *record
	s.records[recordKey{record.InstanceId, record.Kind}] = &recordCopy

	return nil
}

func (s *InMemorySubmissionStore) GetSubmission(ctx context.Context, instanceId hostChain.InstanceId, kind storage.SubmissionKind) (*storage.SubmissionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrStoreClosed
	}

	record, exists := s.records[recordKey{instanceId, kind}]
	if !exists {
		return nil, storage.ErrNotFound
	}

	recordCopy := *record
	return &recordCopy, nil
}

func (s *InMemorySubmissionStore) ListSubmissions(ctx context.Context) ([]*storage.SubmissionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrStoreClosed
	}

	records := make([]*storage.SubmissionRecord, 0, len(s.records))
	for _, record := range s.records {
		recordCopy := *record
		records = append(records, &recordCopy)
	}

	return records, nil
}

func (s *InMemorySubmissionStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrStoreClosed
	}

	s.closed = true
	s.records = nil

	return nil
}
