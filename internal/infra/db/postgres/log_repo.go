package postgres

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
  fingerprint   CHAR(64)     PRIMARY KEY,
  filename      TEXT         NOT NULL,
  upload_time   TIMESTAMPTZ  NOT NULL,
  size_bytes    BIGINT       NOT NULL,
  analysis_json JSONB        NOT NULL,
  severity      TEXT         NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_log_records_upload_time ON log_records (upload_time DESC);`

type LogRepository struct{ db *sql.DB }

func NewLogRepository(db *sql.DB) *LogRepository { return &LogRepository{db: db} }

// Migrate creates the log_records table if it does not exist.
func (r *LogRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return domain.Unavailable("postgres migrate", err)
	}
	return nil
}

func (r *LogRepository) Lookup(ctx context.Context, fp domain.Fingerprint) (*domain.LogRecord, error) {
	const q = `
SELECT fingerprint, filename, upload_time, size_bytes, analysis_json, severity
FROM log_records
WHERE fingerprint = $1;`

	rec, err := scanRecord(r.db.QueryRowContext(ctx, q, string(fp)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, domain.Unavailable("postgres lookup", err)
	}
	return rec, nil
}

// Insert stores rec unless the fingerprint already exists.
func (r *LogRepository) Insert(ctx context.Context, rec *domain.LogRecord) (bool, error) {
	const q = `
INSERT INTO log_records
  (fingerprint, filename, upload_time, size_bytes, analysis_json, severity)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (fingerprint) DO NOTHING;`

	analysis, err := domain.MarshalAnalysis(rec.Analysis)
	if err != nil {
		return false, err
	}
	uploaded := rec.UploadedAt
	if uploaded.IsZero() {
		uploaded = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, q,
		string(rec.Fingerprint), rec.Filename, uploaded, rec.SizeBytes, analysis, rec.Severity)
	if err != nil {
		return false, domain.Unavailable("postgres insert", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, domain.Unavailable("postgres insert", err)
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
		return nil, domain.Unavailable("postgres list", err)
	}
	defer rows.Close()

	var out []*domain.LogRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, domain.Unavailable("postgres list", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Unavailable("postgres list", err)
	}
	return out, nil
}

func (r *LogRepository) Check(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return domain.Unavailable("postgres check", err)
	}
	return nil
}

func scanRecord(s interface{ Scan(...any) error }) (*domain.LogRecord, error) {
	var (
		rec      domain.LogRecord
		fp       string
		analysis []byte
	)
	if err := s.Scan(&fp, &rec.Filename, &rec.UploadedAt, &rec.SizeBytes, &analysis, &rec.Severity); err != nil {
		return nil, err
	}
	a, err := domain.UnmarshalAnalysis(string(analysis))
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", fp, err)
	}
	rec.Fingerprint = domain.Fingerprint(fp)
	rec.UploadedAt = rec.UploadedAt.UTC()
	rec.Analysis = a
	return &rec, nil
}
