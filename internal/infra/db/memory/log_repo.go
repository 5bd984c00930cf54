// Package memory is an in-process cache store. Records live for the life of
// the process; it backs the "memory" storage driver and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domain "github.com/bryanwahyu/logtriage/internal/domain/logs"
)

type LogRepository struct {
	mu      sync.RWMutex
	records map[domain.Fingerprint]domain.LogRecord

	// err, when set, is returned by every operation as a storage failure.
	err error
}

func NewLogRepository() *LogRepository {
	return &LogRepository{records: make(map[domain.Fingerprint]domain.LogRecord)}
}

func (r *LogRepository) Lookup(ctx context.Context, fp domain.Fingerprint) (*domain.LogRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.err != nil {
		return nil, domain.Unavailable("memory lookup", r.err)
	}
	rec, ok := r.records[fp]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// Insert keeps the first record stored for a fingerprint.
func (r *LogRepository) Insert(ctx context.Context, rec *domain.LogRecord) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, domain.Unavailable("memory insert", r.err)
	}
	if _, ok := r.records[rec.Fingerprint]; ok {
		return false, nil
	}
	stored := *rec
	if stored.UploadedAt.IsZero() {
		stored.UploadedAt = time.Now().UTC()
	}
	r.records[rec.Fingerprint] = stored
	return true, nil
}

func (r *LogRepository) ListAll(ctx context.Context) ([]*domain.LogRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.err != nil {
		return nil, domain.Unavailable("memory list", r.err)
	}
	out := make([]*domain.LogRecord, 0, len(r.records))
	for _, rec := range r.records {
		rec := rec
		out = append(out, &rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].Fingerprint > out[j].Fingerprint
		}
		return out[i].UploadedAt.After(out[j].UploadedAt)
	})
	return out, nil
}

// Check implements the health checker.
func (r *LogRepository) Check(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.err != nil {
		return domain.Unavailable("memory check", r.err)
	}
	return nil
}

// SetErr toggles failure injection.
func (r *LogRepository) SetErr(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}
