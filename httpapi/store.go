package httpapi

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/MNasiifu/automobile-association-sub000/permit"
	"github.com/MNasiifu/automobile-association-sub000/records"
)

// RecordStore looks up verification records. An unknown id is not an error:
// it yields a record with Found false so the not-found certificate renders.
type RecordStore interface {
	Lookup(ctx context.Context, id string) (permit.VerificationRecord, error)
}

// MemoryStore is a RecordStore over a fixed set of records.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]permit.VerificationRecord
}

func NewMemoryStore(recs ...permit.VerificationRecord) *MemoryStore {
	s := &MemoryStore{records: make(map[string]permit.VerificationRecord, len(recs))}
	for _, r := range recs {
		s.Put(r)
	}
	return s
}

// LoadMemoryStore reads a JSON array of records in the records file format.
func LoadMemoryStore(r io.Reader) (*MemoryStore, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	list, err := records.ParseList(data)
	if err != nil {
		return nil, err
	}
	return NewMemoryStore(list...), nil
}

// Put stores rec, replacing any record with the same id.
func (s *MemoryStore) Put(rec permit.VerificationRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec
}

// Replace swaps the whole record set.
func (s *MemoryStore) Replace(other *MemoryStore) {
	other.mu.RLock()
	next := make(map[string]permit.VerificationRecord, len(other.records))
	for k, v := range other.records {
		next[k] = v
	}
	other.mu.RUnlock()

	s.mu.Lock()
	s.records = next
	s.mu.Unlock()
}

func (s *MemoryStore) Lookup(ctx context.Context, id string) (permit.VerificationRecord, error) {
	if err := ctx.Err(); err != nil {
		return permit.VerificationRecord{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.records[id]; ok {
		return rec, nil
	}
	return permit.VerificationRecord{ID: id}, nil
}
