package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	applogs "github.com/bryanwahyu/logtriage/internal/application/logs"
	domain "github.com/bryanwahyu/logtriage/internal/domain/logs"
	"github.com/bryanwahyu/logtriage/internal/middleware"
)

const defaultMaxUploadBytes = 10 << 20

// multipartOverhead is the allowance for form boundaries and part headers on
// top of the file size limit.
const multipartOverhead = 1 << 20

type Options struct {
	MaxUploadBytes int64
	CORSOrigins    []string
	// RateLimiter guards the upload and redact routes; nil disables it.
	RateLimiter *middleware.RateLimiter
	Health      map[string]middleware.HealthChecker
	Logger      *slog.Logger
}

type Router struct {
	svc       *applogs.Service
	maxUpload int64
	logger    *slog.Logger
}

func NewRouter(svc *applogs.Service, opts Options) http.Handler {
	r := &Router{svc: svc, maxUpload: opts.MaxUploadBytes, logger: opts.Logger}
	if r.maxUpload <= 0 {
		r.maxUpload = defaultMaxUploadBytes
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RequestLogger(r.logger))
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader, "Retry-After"},
		MaxAge:         300,
	}))

	mux.Get("/health", middleware.HealthHandler(opts.Health))
	mux.Get("/health/live", middleware.LivenessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/v1", func(rt chi.Router) {
		rt.Group(func(limited chi.Router) {
			if opts.RateLimiter != nil {
				limited.Use(opts.RateLimiter.Handler)
			}
			limited.Post("/logs", r.wrap(r.handleUpload))
			limited.Post("/redact", r.wrap(r.handleRedact))
		})
		rt.Get("/logs", r.wrap(r.handleHistory))
		rt.Get("/logs/{fingerprint}", r.wrap(r.handleGet))
		rt.Get("/summary", r.wrap(r.handleSummary))
	})

	return mux
}

// httpError carries a status chosen by the handler.
type httpError struct {
	status int
	msg    string
}

func (e *httpError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &httpError{status: http.StatusBadRequest, msg: fmt.Sprintf(format, args...)}
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		var he *httpError
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &he):
			writeError(w, req, he.status, he.msg)
		case errors.As(err, &tooLarge):
			writeError(w, req, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds %d bytes", r.maxUpload))
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			r.logger.Debug("request abandoned", "path", req.URL.Path, "err", err)
			writeError(w, req, http.StatusRequestTimeout, "request canceled")
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, req, http.StatusNotFound, "not found")
		case errors.Is(err, domain.ErrStorageUnavailable):
			middleware.IncrementStorageErrors()
			writeError(w, req, http.StatusServiceUnavailable, "cache unreachable")
		default:
			r.logger.Error("request failed", "path", req.URL.Path, "err", err,
				"request_id", middleware.GetRequestID(req.Context()))
			writeError(w, req, http.StatusInternalServerError, "internal error")
		}
	}
}

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func writeError(w http.ResponseWriter, req *http.Request, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg, RequestID: middleware.GetRequestID(req.Context())})
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

type uploadResponse struct {
	applogs.ProcessResult
	Error string `json:"error,omitempty"`
}

// POST /v1/logs
// Multipart field "file", or a raw body with ?filename=.
func (r *Router) handleUpload(w http.ResponseWriter, req *http.Request) error {
	filename, content, err := r.readUpload(w, req)
	if err != nil {
		return err
	}
	if err := middleware.ValidateFilename(filename); err != nil {
		return badRequest("%s", err.Error())
	}
	if len(content) == 0 {
		return badRequest("empty upload")
	}
	middleware.IncrementUploads()

	res, err := r.svc.Process(req.Context(), applogs.ProcessCommand{
		Filename:  filename,
		Content:   toText(content),
		SizeBytes: int64(len(content)),
	})
	if err != nil {
		if res.Source == domain.SourceFreshAnalysis && errors.Is(err, domain.ErrStorageUnavailable) {
			// analysis succeeded but could not be stored
			middleware.IncrementFreshAnalyses()
			middleware.IncrementStorageErrors()
			return writeJSON(w, http.StatusServiceUnavailable, uploadResponse{ProcessResult: res, Error: "cache unreachable"})
		}
		return err
	}

	switch {
	case res.Source == domain.SourceCacheHit:
		middleware.IncrementCacheHits()
	case res.Analysis.Failed():
		middleware.IncrementAnalysesFailed()
	default:
		middleware.IncrementFreshAnalyses()
	}
	return writeJSON(w, http.StatusOK, uploadResponse{ProcessResult: res})
}

func (r *Router) readUpload(w http.ResponseWriter, req *http.Request) (string, []byte, error) {
	mediaType, _, _ := mime.ParseMediaType(req.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		req.Body = http.MaxBytesReader(w, req.Body, r.maxUpload+multipartOverhead)
		if err := req.ParseMultipartForm(r.maxUpload); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return "", nil, err
			}
			return "", nil, badRequest("invalid multipart form: %v", err)
		}
		defer req.MultipartForm.RemoveAll()
		file, header, err := req.FormFile("file")
		if err != nil {
			return "", nil, badRequest("missing form field %q", "file")
		}
		defer file.Close()
		content, err := io.ReadAll(io.LimitReader(file, r.maxUpload+1))
		if err != nil {
			return "", nil, err
		}
		if int64(len(content)) > r.maxUpload {
			return "", nil, &http.MaxBytesError{Limit: r.maxUpload}
		}
		return filepath.Base(middleware.SanitizeString(header.Filename)), content, nil
	}

	req.Body = http.MaxBytesReader(w, req.Body, r.maxUpload)
	content, err := io.ReadAll(req.Body)
	if err != nil {
		return "", nil, err
	}
	filename := middleware.SanitizeString(req.URL.Query().Get("filename"))
	if filename == "" {
		filename = "upload.log"
	}
	return filename, content, nil
}

// toText decodes uploaded bytes as UTF-8, replacing invalid sequences.
func toText(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), "\uFFFD")
}

// GET /v1/logs?limit=
func (r *Router) handleHistory(w http.ResponseWriter, req *http.Request) error {
	list, err := r.svc.History(req.Context())
	if err != nil {
		return err
	}
	if raw := req.URL.Query().Get("limit"); raw != "" {
		n, err := middleware.ValidateLimit(raw)
		if err != nil {
			return badRequest("%s", err.Error())
		}
		if n < len(list) {
			list = list[:n]
		}
	}
	if list == nil {
		list = []*domain.LogRecord{}
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/logs/{fingerprint}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	fp := chi.URLParam(req, "fingerprint")
	if err := middleware.ValidateFingerprint(fp); err != nil {
		return badRequest("%s", err.Error())
	}
	rec, err := r.svc.Get(req.Context(), domain.Fingerprint(fp))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, rec)
}

// GET /v1/summary
func (r *Router) handleSummary(w http.ResponseWriter, req *http.Request) error {
	summary, err := r.svc.Summary(req.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, summary)
}

// POST /v1/redact
// Returns what would be sent to the analyzer for the body, without storing it.
func (r *Router) handleRedact(w http.ResponseWriter, req *http.Request) error {
	req.Body = http.MaxBytesReader(w, req.Body, r.maxUpload)
	content, err := io.ReadAll(req.Body)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, r.svc.Preview(toText(content)))
}
