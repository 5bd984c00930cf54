package sqlite

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/bryanwahyu/logtriage/internal/domain/logs"
)

// logRecordRow maps the log_records table. The fingerprint primary key is the
// uniqueness constraint that makes Insert first-writer-wins.
type logRecordRow struct {
	Fingerprint  string    `gorm:"column:fingerprint;primaryKey;size:64"`
	Filename     string    `gorm:"column:filename;not null"`
	UploadTime   time.Time `gorm:"column:upload_time;not null;index"`
	SizeBytes    int64     `gorm:"column:size_bytes;not null"`
	AnalysisJSON string    `gorm:"column:analysis_json;type:text;not null"`
	Severity     string    `gorm:"column:severity;size:32"`
}

func (logRecordRow) TableName() string { return "log_records" }

type LogRepository struct {
	db *gorm.DB
}

func NewLogRepository(db *gorm.DB) *LogRepository {
	return &LogRepository{db: db}
}

func (r *LogRepository) Lookup(ctx context.Context, fp domain.Fingerprint) (*domain.LogRecord, error) {
	var row logRecordRow
	err := r.db.WithContext(ctx).Where("fingerprint = ?", string(fp)).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Unavailable("sqlite lookup", err)
	}
	return row.toDomain()
}

// Insert relies on ON CONFLICT DO NOTHING; RowsAffected tells whether this
// call stored the record.
func (r *LogRepository) Insert(ctx context.Context, rec *domain.LogRecord) (bool, error) {
	row, err := fromDomain(rec)
	if err != nil {
		return false, err
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "fingerprint"}}, DoNothing: true}).
		Create(&row)
	if res.Error != nil {
		return false, domain.Unavailable("sqlite insert", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *LogRepository) ListAll(ctx context.Context) ([]*domain.LogRecord, error) {
	var rows []logRecordRow
	err := r.db.WithContext(ctx).
		Order("upload_time DESC").
		Order("fingerprint DESC").
		Find(&rows).Error
	if err != nil {
		return nil, domain.Unavailable("sqlite list", err)
	}
	out := make([]*domain.LogRecord, 0, len(rows))
	for i := range rows {
		rec, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Check pings the underlying connection.
func (r *LogRepository) Check(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return domain.Unavailable("sqlite check", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return domain.Unavailable("sqlite check", err)
	}
	return nil
}

// Close releases the database handle.
func (r *LogRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func fromDomain(rec *domain.LogRecord) (logRecordRow, error) {
	analysis, err := domain.MarshalAnalysis(rec.Analysis)
	if err != nil {
		return logRecordRow{}, err
	}
	uploaded := rec.UploadedAt
	if uploaded.IsZero() {
		uploaded = time.Now().UTC()
	}
	return logRecordRow{
		Fingerprint:  string(rec.Fingerprint),
		Filename:     rec.Filename,
		UploadTime:   uploaded.UTC(),
		SizeBytes:    rec.SizeBytes,
		AnalysisJSON: analysis,
		Severity:     rec.Severity,
	}, nil
}

func (row logRecordRow) toDomain() (*domain.LogRecord, error) {
	a, err := domain.UnmarshalAnalysis(row.AnalysisJSON)
	if err != nil {
		return nil, err
	}
	return &domain.LogRecord{
		Fingerprint: domain.Fingerprint(row.Fingerprint),
		Filename:    row.Filename,
		UploadedAt:  row.UploadTime.UTC(),
		SizeBytes:   row.SizeBytes,
		Analysis:    a,
		Severity:    row.Severity,
	}, nil
}
