package storage

import (
	"testing"

	domain "github.com/bryanwahyu/logtriage/internal/domain/logs"
)

func TestKey(t *testing.T) {
	fp := domain.NewFingerprint("hello")
	if got, want := Key(fp), string(fp)+".log"; got != want {
		t.Errorf("Key = %q, want %q", got, want)
	}
}
