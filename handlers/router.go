// Package handlers exposes the upload pipeline over HTTP.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jalad-shrimali/cdr-insight/analysis"
	"github.com/jalad-shrimali/cdr-insight/cdr"
	"github.com/jalad-shrimali/cdr-insight/ingest"
	"github.com/jalad-shrimali/cdr-insight/pipeline"
	"github.com/jalad-shrimali/cdr-insight/store"
)

// Service is the part of pipeline.Pipeline the routes use.
type Service interface {
	Upload(ctx context.Context, name string, data []byte) (store.Batch, error)
	Batch(ctx context.Context, id string) (store.Batch, error)
	Records(ctx context.Context, id string) ([]cdr.Record, error)
	Result(ctx context.Context, id string, t analysis.Type) ([]byte, error)
	Profile(ctx context.Context, id, number string) (*analysis.NumberProfile, error)
	Export(ctx context.Context, id string, w io.Writer) error
	ExportRecords(ctx context.Context, id string, w io.Writer) error
}

type Router struct {
	svc       Service
	log       *slog.Logger
	maxUpload int64
}

// NewRouter mounts the routes. maxUpload caps the multipart body in bytes.
func NewRouter(svc Service, log *slog.Logger, maxUpload int64) http.Handler {
	r := &Router{svc: svc, log: log, maxUpload: maxUpload}
	mux := chi.NewRouter()
	mux.Use(r.logRequests)

	mux.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Post("/upload", r.wrap(r.handleUpload))
	mux.Route("/batches/{id}", func(rt chi.Router) {
		rt.Get("/", r.wrap(r.handleBatch))
		rt.Get("/records", r.wrap(r.handleRecords))
		rt.Get("/records.csv", r.wrap(r.handleRecordsCSV))
		rt.Get("/analysis/{type}", r.wrap(r.handleAnalysis))
		rt.Get("/numbers/{number}", r.wrap(r.handleProfile))
		rt.Get("/export.xlsx", r.wrap(r.handleExport))
	})
	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

type statusError struct {
	code int
	msg  string
}

func (e *statusError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &statusError{code: http.StatusBadRequest, msg: fmt.Sprintf(format, args...)}
}

func tooLarge(limit int64) error {
	return &statusError{code: http.StatusRequestEntityTooLarge, msg: fmt.Sprintf("upload exceeds %d bytes", limit)}
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		var se *statusError
		switch {
		case errors.As(err, &se):
			http.Error(w, se.msg, se.code)
		case errors.Is(err, store.ErrNotFound), errors.Is(err, pipeline.ErrUnknownAnalysis):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, pipeline.ErrBatchNotReady):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, ingest.ErrUnreadable), errors.Is(err, ingest.ErrNoRows), errors.Is(err, ingest.ErrNoRecords):
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		default:
			r.log.Error("request failed", "method", req.Method, "path", req.URL.Path, "err", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

// POST /upload, multipart field "file"
func (r *Router) handleUpload(w http.ResponseWriter, req *http.Request) error {
	if req.ContentLength > r.maxUpload {
		return tooLarge(r.maxUpload)
	}
	req.Body = http.MaxBytesReader(w, req.Body, r.maxUpload)
	file, hdr, err := req.FormFile("file")
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return tooLarge(r.maxUpload)
		}
		return badRequest("file: %v", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return badRequest("read upload: %v", err)
	}
	b, err := r.svc.Upload(req.Context(), hdr.Filename, data)
	if err != nil {
		var unprocessable bool
		for _, s := range []error{ingest.ErrUnreadable, ingest.ErrNoRows, ingest.ErrNoRecords} {
			unprocessable = unprocessable || errors.Is(err, s)
		}
		if unprocessable && b.ID != "" {
			return writeJSON(w, http.StatusUnprocessableEntity, b)
		}
		return err
	}
	return writeJSON(w, http.StatusCreated, b)
}

// GET /batches/{id}
func (r *Router) handleBatch(w http.ResponseWriter, req *http.Request) error {
	b, err := r.svc.Batch(req.Context(), chi.URLParam(req, "id"))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, b)
}

// GET /batches/{id}/records
func (r *Router) handleRecords(w http.ResponseWriter, req *http.Request) error {
	recs, err := r.svc.Records(req.Context(), chi.URLParam(req, "id"))
	if err != nil {
		return err
	}
	if recs == nil {
		recs = []cdr.Record{}
	}
	return writeJSON(w, http.StatusOK, recs)
}

// GET /batches/{id}/analysis/{type}
func (r *Router) handleAnalysis(w http.ResponseWriter, req *http.Request) error {
	data, err := r.svc.Result(req.Context(), chi.URLParam(req, "id"), analysis.Type(chi.URLParam(req, "type")))
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(data)
	return err
}

// GET /batches/{id}/numbers/{number}
func (r *Router) handleProfile(w http.ResponseWriter, req *http.Request) error {
	p, err := r.svc.Profile(req.Context(), chi.URLParam(req, "id"), chi.URLParam(req, "number"))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, p)
}

// GET /batches/{id}/export.xlsx
func (r *Router) handleExport(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	var buf bytes.Buffer
	if err := r.svc.Export(req.Context(), id, &buf); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_all_reports.xlsx"`, id))
	_, err := buf.WriteTo(w)
	return err
}

// GET /batches/{id}/records.csv
func (r *Router) handleRecordsCSV(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	var buf bytes.Buffer
	if err := r.svc.ExportRecords(req.Context(), id, &buf); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_records.csv"`, id))
	_, err := buf.WriteTo(w)
	return err
}

func writeJSON(w http.ResponseWriter, code int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}

/* ──────────── request log ──────────── */

type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

func (r *Router) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, req)
		r.log.Info("http",
			"method", req.Method,
			"path", req.URL.Path,
			"status", rw.statusCode,
			"duration", time.Since(start),
			"bytes", rw.written,
		)
	})
}
