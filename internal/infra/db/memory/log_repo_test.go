package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	domain "github.com/bryanwahyu/logtriage/internal/domain/logs"
)

func TestLogRepository_InsertIfAbsent(t *testing.T) {
	ctx := context.Background()
	r := NewLogRepository()
	fp := domain.NewFingerprint("x")

	ok, err := r.Insert(ctx, &domain.LogRecord{Fingerprint: fp, Filename: "first.log"})
	if err != nil || !ok {
		t.Fatalf("first insert: ok=%v err=%v", ok, err)
	}
	ok, err = r.Insert(ctx, &domain.LogRecord{Fingerprint: fp, Filename: "second.log"})
	if err != nil || ok {
		t.Fatalf("second insert: ok=%v err=%v", ok, err)
	}
	got, err := r.Lookup(ctx, fp)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got.Filename != "first.log" {
		t.Errorf("filename = %q, first writer should win", got.Filename)
	}
}

func TestLogRepository_ConcurrentInsert(t *testing.T) {
	ctx := context.Background()
	r := NewLogRepository()
	fp := domain.NewFingerprint("race")

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := r.Insert(ctx, &domain.LogRecord{Fingerprint: fp})
			if err != nil {
				t.Errorf("Insert: %v", err)
				return
			}
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Errorf("wins = %d, want exactly 1", wins)
	}
}

func TestLogRepository_ListAllOrder(t *testing.T) {
	ctx := context.Background()
	r := NewLogRepository()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"a", "b", "c"} {
		_, _ = r.Insert(ctx, &domain.LogRecord{
			Fingerprint: domain.NewFingerprint(name),
			Filename:    name,
			UploadedAt:  base.Add(time.Duration(i) * time.Hour),
		})
	}
	list, err := r.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(list) != 3 || list[0].Filename != "c" || list[2].Filename != "a" {
		t.Errorf("unexpected order: %v, %v, %v", list[0].Filename, list[1].Filename, list[2].Filename)
	}
}

func TestLogRepository_Failure(t *testing.T) {
	ctx := context.Background()
	r := NewLogRepository()
	r.SetErr(errors.New("disk gone"))
	if _, err := r.Lookup(ctx, "x"); !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Errorf("Lookup err = %v", err)
	}
	if _, err := r.Insert(ctx, &domain.LogRecord{}); !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Errorf("Insert err = %v", err)
	}
	if _, err := r.ListAll(ctx); !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Errorf("ListAll err = %v", err)
	}
}

func TestLogRepository_SetErrIsSynchronized(t *testing.T) {
	ctx := context.Background()
	r := NewLogRepository()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.SetErr(errors.New("flaky"))
			r.SetErr(nil)
		}()
		go func() {
			defer wg.Done()
			_, _ = r.Lookup(ctx, "x")
		}()
	}
	wg.Wait()
	r.SetErr(nil)
	if err := r.Check(ctx); err != nil {
		t.Errorf("Check after clearing = %v", err)
	}
}

func TestLogRepository_CanceledContext(t *testing.T) {
	r := NewLogRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Lookup(ctx, "x"); !errors.Is(err, context.Canceled) || errors.Is(err, domain.ErrStorageUnavailable) {
		t.Errorf("Lookup err = %v, want context.Canceled", err)
	}
	if _, err := r.Insert(ctx, &domain.LogRecord{Fingerprint: "x"}); !errors.Is(err, context.Canceled) {
		t.Errorf("Insert err = %v", err)
	}
}
