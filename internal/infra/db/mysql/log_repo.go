package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	domain "github.com/bryanwahyu/logtriage/internal/domain/logs"
)

const schema = `
CREATE TABLE IF NOT EXISTS log_records (
  fingerprint   CHAR(64)     NOT NULL PRIMARY KEY,
  filename      VARCHAR(255) NOT NULL,
  upload_time   DATETIME(6)  NOT NULL,
  size_bytes    BIGINT       NOT NULL,
  analysis_json JSON         NOT NULL,
  severity      VARCHAR(32)  NOT NULL,
  INDEX idx_log_records_upload_time (upload_time)
);`

type LogRepository struct {
	db *sql.DB
}

func NewLogRepository(db *sql.DB) *LogRepository {
	return &LogRepository{db: db}
}

// Migrate creates the log_records table if it does not exist.
func (r *LogRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return domain.Unavailable("mysql migrate", err)
	}
	return nil
}

func (r *LogRepository) Lookup(ctx context.Context, fp domain.Fingerprint) (*domain.LogRecord, error) {
	const q = `
SELECT fingerprint, filename, upload_time, size_bytes, analysis_json, severity
FROM log_records
WHERE fingerprint=?;`

	rec, err := scanRecord(r.db.QueryRowContext(ctx, q, string(fp)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Unavailable("mysql lookup", err)
	}
	return rec, nil
}

// Insert uses INSERT IGNORE against the primary key, so a duplicate
// fingerprint affects zero rows instead of failing.
func (r *LogRepository) Insert(ctx context.Context, rec *domain.LogRecord) (bool, error) {
	const q = `
INSERT IGNORE INTO log_records
  (fingerprint, filename, upload_time, size_bytes, analysis_json, severity)
VALUES (?,?,?,?,?,?);`

	analysis, err := domain.MarshalAnalysis(rec.Analysis)
	if err != nil {
		return false, err
	}
	uploaded := rec.UploadedAt
	if uploaded.IsZero() {
		uploaded = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx, q,
		string(rec.Fingerprint), stringOrDash(rec.Filename), uploaded.UTC(),
		rec.SizeBytes, analysis, stringOrDash(rec.Severity))
	if err != nil {
		return false, domain.Unavailable("mysql insert", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, domain.Unavailable("mysql insert", err)
	}
	return n == 1, nil
}

func (r *LogRepository) ListAll(ctx context.Context) ([]*domain.LogRecord, error) {
	const q = `
SELECT fingerprint, filename, upload_time, size_bytes, analysis_json, severity
FROM log_records
ORDER BY upload_time DESC, fingerprint DESC;`

	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, domain.Unavailable("mysql list", err)
	}
	defer rows.Close()

	var out []*domain.LogRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, domain.Unavailable("mysql list", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Unavailable("mysql list", err)
	}
	return out, nil
}

// Check pings the database.
func (r *LogRepository) Check(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return domain.Unavailable("mysql check", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*domain.LogRecord, error) {
	var (
		rec      domain.LogRecord
		fp       string
		analysis string
	)
	if err := s.Scan(&fp, &rec.Filename, &rec.UploadedAt, &rec.SizeBytes, &analysis, &rec.Severity); err != nil {
		return nil, err
	}
	a, err := domain.UnmarshalAnalysis(analysis)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", fp, err)
	}
	rec.Fingerprint = domain.Fingerprint(fp)
	rec.UploadedAt = rec.UploadedAt.UTC()
	rec.Analysis = a
	return &rec, nil
}
