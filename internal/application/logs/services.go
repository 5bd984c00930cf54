package logs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bryanwahyu/logtriage/internal/application"
	domain "github.com/bryanwahyu/logtriage/internal/domain/logs"
	"github.com/bryanwahyu/logtriage/internal/domain/redact"
)

// Analyzer produces a structured triage for sanitized text.
type Analyzer interface {
	Analyze(ctx context.Context, sanitized string) (domain.Analysis, error)
}

// Service runs the upload pipeline: redact, fingerprint, look up, analyze on
// a miss, and persist successful analyses. It holds no per-request state and
// is safe for concurrent use.
type Service struct {
	Repo     domain.Repository
	Analyzer Analyzer
	Redactor *redact.Redactor
	Archive  domain.ArchiveStore // optional
	Clock    application.Clock
	Logger   *slog.Logger
}

//
// ==== USE CASES ====
//

// ProcessCommand is one uploaded log.
type ProcessCommand struct {
	Filename  string
	Content   string
	SizeBytes int64
}

// ProcessResult is what the presentation layer shows for an upload.
type ProcessResult struct {
	Source      domain.Source      `json:"source"`
	Fingerprint domain.Fingerprint `json:"fingerprint"`
	Analysis    domain.Analysis    `json:"analysis"`
	Sanitized   string             `json:"sanitized"`
	Redactions  int                `json:"redactions"`
	Persisted   bool               `json:"persisted"`

	// Failure holds the analyzer error when Analysis is a failure result.
	Failure error `json:"-"`
}

// Process runs the pipeline for one upload.
//
// A cache hit returns the stored analysis without calling the analyzer.
// Analyzer failures come back as a failure Analysis with a nil error and are
// never stored. A storage failure during lookup aborts with an error matching
// domain.ErrStorageUnavailable; a storage failure while persisting returns the
// fresh result together with that error. A canceled ctx is reported as the
// context error, never as a storage failure.
func (s *Service) Process(ctx context.Context, cmd ProcessCommand) (ProcessResult, error) {
	sanitized, counts := s.redactor().RedactAndCount(cmd.Content)
	fp := domain.NewFingerprint(sanitized)
	res := ProcessResult{Fingerprint: fp, Sanitized: sanitized, Redactions: counts.Total()}

	log := s.logger().With("fingerprint", fp.Short(), "filename", cmd.Filename)

	existing, err := s.Repo.Lookup(ctx, fp)
	if err != nil {
		err = storageErr(ctx, "lookup", err)
		log.Error("cache lookup failed", "err", err)
		return res, err
	}
	if existing != nil {
		log.Info("cache hit", "first_seen", existing.UploadedAt)
		res.Source = domain.SourceCacheHit
		res.Analysis = existing.Analysis
		res.Persisted = true
		return res, nil
	}

	res.Source = domain.SourceFreshAnalysis
	log.Info("cache miss, analyzing", "size_bytes", cmd.SizeBytes, "redactions", res.Redactions)

	analysis, err := s.analyze(ctx, sanitized)
	if err != nil {
		log.Warn("analysis failed", "err", err)
		res.Analysis = domain.FailedAnalysis(err)
		res.Failure = err
		return res, nil
	}
	res.Analysis = analysis

	rec := &domain.LogRecord{
		Fingerprint: fp,
		Filename:    cmd.Filename,
		UploadedAt:  s.now(),
		SizeBytes:   cmd.SizeBytes,
		Analysis:    analysis,
		Severity:    analysis.Severity,
	}
	inserted, err := s.Repo.Insert(ctx, rec)
	if err != nil {
		log.Error("persisting analysis failed", "err", err)
		return res, storageErr(ctx, "insert", err)
	}
	res.Persisted = true
	if !inserted {
		// another upload of the same content won the race; its record stands
		log.Info("record already present, kept first writer")
		return res, nil
	}

	if s.Archive != nil {
		if url, err := s.Archive.Put(ctx, fp, []byte(sanitized)); err != nil {
			log.Warn("archiving sanitized log failed", "err", err)
		} else {
			log.Debug("archived sanitized log", "url", url)
		}
	}
	return res, nil
}

func (s *Service) analyze(ctx context.Context, sanitized string) (domain.Analysis, error) {
	if s.Analyzer == nil {
		return domain.Analysis{}, fmt.Errorf("%w: no analyzer configured", domain.ErrAnalysisFailed)
	}
	a, err := s.Analyzer.Analyze(ctx, sanitized)
	if err != nil {
		if !errors.Is(err, domain.ErrAnalysisFailed) {
			err = fmt.Errorf("%w: %w", domain.ErrAnalysisFailed, err)
		}
		return domain.Analysis{}, err
	}
	if a.Failed() {
		return domain.Analysis{}, fmt.Errorf("%w: %s", domain.ErrAnalysisFailed, a.RootCause)
	}
	return a, nil
}

// History lists every stored record, most recent first.
func (s *Service) History(ctx context.Context) ([]*domain.LogRecord, error) {
	recs, err := s.Repo.ListAll(ctx)
	if err != nil {
		return nil, storageErr(ctx, "list", err)
	}
	return recs, nil
}

// Get returns one stored record or domain.ErrNotFound.
func (s *Service) Get(ctx context.Context, fp domain.Fingerprint) (*domain.LogRecord, error) {
	rec, err := s.Repo.Lookup(ctx, fp)
	if err != nil {
		return nil, storageErr(ctx, "lookup", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, fp)
	}
	return rec, nil
}

// Summary counts stored records by severity.
func (s *Service) Summary(ctx context.Context) (domain.SeverityCounts, error) {
	recs, err := s.History(ctx)
	if err != nil {
		return domain.SeverityCounts{}, err
	}
	return domain.CountSeverities(recs), nil
}

// PreviewResult shows what would be sent to the analyzer.
type PreviewResult struct {
	Fingerprint domain.Fingerprint `json:"fingerprint"`
	Sanitized   string             `json:"sanitized"`
	Redactions  redact.Counts      `json:"redactions"`
}

// Preview redacts and fingerprints raw text without touching storage or the analyzer.
func (s *Service) Preview(raw string) PreviewResult {
	sanitized, counts := s.redactor().RedactAndCount(raw)
	return PreviewResult{
		Fingerprint: domain.NewFingerprint(sanitized),
		Sanitized:   sanitized,
		Redactions:  counts,
	}
}

// helper

var defaultRedactor = redact.Default()

func (s *Service) redactor() *redact.Redactor {
	if s.Redactor == nil {
		return defaultRedactor
	}
	return s.Redactor
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return application.SystemClock{}.Now()
	}
	return s.Clock.Now()
}

// storageErr classifies a repository error. A canceled or expired request
// context is the caller's doing and is returned as is, not as an outage.
func storageErr(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", op, ctxErr)
	}
	if errors.Is(err, domain.ErrStorageUnavailable) {
		return err
	}
	return domain.Unavailable(op, err)
}
