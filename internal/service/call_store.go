package service

import (
	"context"
	"sync"
	"time"

	"github.com/GoPolymarket/unifygate/internal/model"
	"github.com/GoPolymarket/unifygate/internal/pkg/logger"
	"github.com/google/uuid"
)

// MemoryCallStore keeps the most recent call records in a fixed ring when no
// database is configured. It is a bounded development log: once the ring is full the
// oldest records are overwritten, and the first eviction is logged.
type MemoryCallStore struct {
	mu        sync.Mutex
	maxSize   int
	records   []*model.CallRecord
	nextIndex int
	evicted   uint64
}

func NewMemoryCallStore(maxSize int) *MemoryCallStore {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &MemoryCallStore{
		maxSize: maxSize,
		records: make([]*model.CallRecord, 0, maxSize),
	}
}

func (b *MemoryCallStore) Insert(ctx context.Context, rec *model.CallRecord) error {
	if rec == nil {
		return nil
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	cp := *rec

	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.records) < b.maxSize {
		b.records = append(b.records, &cp)
		b.nextIndex = len(b.records) % b.maxSize
		return nil
	}
	if b.evicted == 0 {
		logger.Warn("memory call store full, evicting oldest records; configure a database to retain all calls",
			"capacity", b.maxSize)
	}
	b.evicted++
	b.records[b.nextIndex] = &cp
	b.nextIndex = (b.nextIndex + 1) % b.maxSize
	return nil
}

// Evicted reports how many records have been overwritten.
func (b *MemoryCallStore) Evicted() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.evicted
}

func (b *MemoryCallStore) List(ctx context.Context, q model.CallQuery) ([]*model.CallRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	limit := q.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	results := make([]*model.CallRecord, 0, limit)
	total := len(b.records)
	for i := 0; i < total; i++ {
		idx := (b.nextIndex + total - 1 - i) % total
		rec := b.records[idx]
		if rec.UserID != q.UserID {
			continue
		}
		if q.InstallationID != "" && rec.InstallationID != q.InstallationID {
			continue
		}
		if q.From != nil && rec.CreatedAt.Before(*q.From) {
			continue
		}
		if q.To != nil && rec.CreatedAt.After(*q.To) {
			continue
		}
		cp := *rec
		results = append(results, &cp)
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}
