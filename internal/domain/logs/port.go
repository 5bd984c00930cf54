package logs

import "context"

// Repository is the cache store for analyzed logs.
//
// Lookup returns (nil, nil) on a miss. Insert stores the record only if no record
// with the same fingerprint exists; otherwise it is a silent no-op and reports
// inserted=false. Uniqueness must be enforced atomically by the backend.
// ListAll returns every record, most recent upload first.
type Repository interface {
	Lookup(ctx context.Context, fp Fingerprint) (*LogRecord, error)
	Insert(ctx context.Context, rec *LogRecord) (inserted bool, err error)
	ListAll(ctx context.Context) ([]*LogRecord, error)
}

// ArchiveStore keeps a copy of sanitized uploads, keyed by fingerprint.
type ArchiveStore interface {
	Put(ctx context.Context, fp Fingerprint, sanitized []byte) (string, error)
}
