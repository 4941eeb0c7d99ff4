package muxer

import (
	"errors"
	"log/slog"
	"net/http"

	"vreddit-mux/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
)

// Fixed plain-text error bodies. No structured error payload is returned.
const (
	msgBadURL = "bad url"
	msgWTF    = "wtf"
)

// Handler exposes the muxing pipeline over HTTP using go-chi.
type Handler struct {
	svc     *Service
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewHandler returns a Handler that uses the given Service, Logger, and
// optional Metrics. Metrics may be nil to disable metric recording (e.g. in
// tests).
func NewHandler(svc *Service, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{svc: svc, log: log, metrics: m}
}

// GetVideo handles GET /{id}: fetch, select, mux, deliver. The identifier is
// validated before any upstream traffic happens.
func (h *Handler) GetVideo(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	id, err := ParseMediaID(raw)
	if err != nil {
		h.log.Info("rejected media id", slog.String("id", raw))
		writeError(w, http.StatusInternalServerError, msgWTF)
		return
	}

	outcome, err := h.svc.MuxVideo(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrMuxFailed) && h.metrics != nil {
			h.metrics.IncMuxFailures()
		}
		h.respondError(w, err, "mux pipeline failed", slog.String("id", string(id)))
		return
	}

	if outcome.RedirectURL != "" {
		h.log.Info("no audio rendition, redirecting to raw stream",
			slog.String("id", string(id)),
			slog.String("target", outcome.RedirectURL))
		http.Redirect(w, r, outcome.RedirectURL, http.StatusFound)
		return
	}

	if h.metrics != nil {
		h.metrics.IncMuxJobs()
	}
	h.log.Info("streaming artifact",
		slog.String("id", string(id)),
		slog.String("path", outcome.Artifact.Path))
	outcome.Artifact.ServeAndRemove(w, r)
}

// ResolvePost handles the catch-all GET /*: any unmatched path is treated as
// a content-post path and resolved to a redirect at the identifier endpoint.
func (h *Handler) ResolvePost(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")

	target, cached, err := h.svc.ResolvePost(r.Context(), path)
	if err != nil {
		h.respondError(w, err, "post resolution failed", slog.String("path", path))
		return
	}

	if h.metrics != nil {
		if cached {
			h.metrics.IncCacheHits()
		} else {
			h.metrics.IncCacheMisses()
		}
	}
	h.log.Info("post resolved",
		slog.String("path", path),
		slog.String("target", target),
		slog.Bool("cached", cached))
	http.Redirect(w, r, target, http.StatusFound)
}

// respondError maps pipeline failures onto the two client-visible messages:
// malformed upstream documents are the client's fault (400), everything else
// (shape, transport, encoder) is a 500.
func (h *Handler) respondError(w http.ResponseWriter, err error, msg string, attrs ...any) {
	attrs = append(attrs, slog.String("error", err.Error()))
	switch {
	case errors.Is(err, ErrBadManifest), errors.Is(err, ErrBadListing):
		h.log.Info(msg, attrs...)
		writeError(w, http.StatusBadRequest, msgBadURL)
	default:
		h.log.Error(msg, attrs...)
		writeError(w, http.StatusInternalServerError, msgWTF)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(msg))
}
