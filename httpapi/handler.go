// Package httpapi serves certificates over HTTP: PDF download, HTML
// preview, health and Prometheus metrics.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MNasiifu/automobile-association-sub000/certerrors"
	"github.com/MNasiifu/automobile-association-sub000/observability"
	"github.com/MNasiifu/automobile-association-sub000/permit"
	"github.com/MNasiifu/automobile-association-sub000/pipeline"
)

// StatusClientClosedRequest is reported when the caller went away.
const StatusClientClosedRequest = 499

// RenderedAtLayout formats the "Verified on" footer stamp.
const RenderedAtLayout = "2 January 2006 15:04 MST"

// Generator is the part of pipeline.Service the handlers need.
type Generator interface {
	Generate(ctx context.Context, rec permit.VerificationRecord, status permit.StatusClassification, renderedAt string) (*permit.ExportArtifact, error)
	Markup(ctx context.Context, rec permit.VerificationRecord, status permit.StatusClassification, renderedAt string) (string, error)
}

type Handler struct {
	gen      Generator
	store    RecordStore
	logger   observability.Logger
	now      func() time.Time
	gatherer prometheus.Gatherer
}

type Option func(*Handler)

func WithLogger(l observability.Logger) Option { return func(h *Handler) { h.logger = l } }
func WithClock(now func() time.Time) Option    { return func(h *Handler) { h.now = now } }

// WithGatherer exposes g on /metrics. Without it /metrics is not mounted.
func WithGatherer(g prometheus.Gatherer) Option { return func(h *Handler) { h.gatherer = g } }

func New(gen Generator, store RecordStore, opts ...Option) *Handler {
	h := &Handler{
		gen:    gen,
		store:  store,
		logger: observability.NopLogger{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/healthz", h.HandleHealth)
	r.Get("/certificates/{id}", h.HandleCertificate)
	r.Get("/certificates/{id}/preview", h.HandlePreview)
	if h.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}
}

// Router returns a chi router with request ids and panic recovery.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	h.Register(r)
	return r
}

func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleCertificate renders and streams the PDF for the record id.
func (h *Handler) HandleCertificate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rec, status, renderedAt, ok := h.lookup(w, r)
	if !ok {
		return
	}

	art, err := h.gen.Generate(ctx, rec, status, renderedAt)
	if err != nil {
		h.fail(w, r, "generate certificate", err)
		return
	}

	etag := `"` + art.Digest + `"`
	w.Header().Set("ETag", etag)
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", strconv.Itoa(len(art.Bytes)))
	w.Header().Set("Content-Disposition", contentDisposition(art.SuggestedFilename))
	w.WriteHeader(http.StatusOK)

	saver := pipeline.WriterSaver{W: w}
	if err := saver.Save(ctx, art.SuggestedFilename, art.Bytes); err != nil {
		h.logger.Warn("certificate response interrupted",
			observability.String("request_id", middleware.GetReqID(ctx)),
			observability.String("record_id", rec.ID),
			observability.Error("error", err),
		)
	}
}

// HandlePreview returns the composed HTML page.
func (h *Handler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	rec, status, renderedAt, ok := h.lookup(w, r)
	if !ok {
		return
	}
	markup, err := h.gen.Markup(r.Context(), rec, status, renderedAt)
	if err != nil {
		h.fail(w, r, "compose preview", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(markup))
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (permit.VerificationRecord, permit.StatusClassification, string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "error_description": "missing record id"})
		return permit.VerificationRecord{}, permit.StatusClassification{}, "", false
	}
	rec, err := h.store.Lookup(r.Context(), id)
	if err != nil {
		h.fail(w, r, "lookup record", err)
		return permit.VerificationRecord{}, permit.StatusClassification{}, "", false
	}
	now := h.now()
	return rec, permit.Classify(rec, now), now.Format(RenderedAtLayout), true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	code := certerrors.CodeOf(err)
	if code == "" && errors.Is(err, context.Canceled) {
		code = certerrors.CodeCanceled
	}
	status := StatusFor(code)
	h.logger.Error(op+" failed",
		observability.String("request_id", middleware.GetReqID(r.Context())),
		observability.String("code", string(code)),
		observability.Int("status", status),
		observability.Error("error", err),
	)
	body := map[string]string{"error": string(code)}
	if code == "" {
		body["error"] = "internal"
	}
	writeJSON(w, status, body)
}

// StatusFor maps a failure code to an HTTP status.
func StatusFor(code certerrors.Code) int {
	switch code {
	case certerrors.CodePersistenceFailed:
		return http.StatusBadGateway
	case certerrors.CodeCanceled:
		return StatusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

// contentDisposition quotes and escapes name as a filename parameter.
func contentDisposition(name string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": name}); v != "" {
		return v
	}
	return "attachment"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
