package muxer

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestRouter mirrors the production route layout: identifier endpoint
// first, catch-all post resolution behind it.
func newTestRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/{id}", h.GetVideo)
	r.Get("/*", h.ResolvePost)
	return r
}

func TestHandler_GetVideo_invalid_id_skips_upstream(t *testing.T) {
	ts, calls := newUpstream(t, http.StatusOK, sampleManifest)
	enc := &fakeEncoder{dir: t.TempDir()}
	svc := NewService(NewManifestClient(ts.URL, "", ts.Client()), nil, enc, "http://localhost:8080")
	r := newTestRouter(NewHandler(svc, newTestLogger(), nil))

	req := httptest.NewRequest(http.MethodGet, "/UPPER", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if rec.Body.String() != "wtf" {
		t.Errorf("expected wtf body, got %q", rec.Body.String())
	}
	if *calls != 0 {
		t.Errorf("invalid id must not reach upstream, saw %d fetches", *calls)
	}
}

func TestHandler_GetVideo_bad_manifest(t *testing.T) {
	ts, _ := newUpstream(t, http.StatusOK, "not xml at all")
	enc := &fakeEncoder{dir: t.TempDir()}
	svc := NewService(NewManifestClient(ts.URL, "", ts.Client()), nil, enc, "http://localhost:8080")
	r := newTestRouter(NewHandler(svc, newTestLogger(), nil))

	req := httptest.NewRequest(http.MethodGet, "/abc123", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if rec.Body.String() != "bad url" {
		t.Errorf("expected bad url body, got %q", rec.Body.String())
	}
}

func TestHandler_GetVideo_missing_video_set(t *testing.T) {
	ts, _ := newUpstream(t, http.StatusOK, audioOnlyManifest)
	enc := &fakeEncoder{dir: t.TempDir()}
	svc := NewService(NewManifestClient(ts.URL, "", ts.Client()), nil, enc, "http://localhost:8080")
	r := newTestRouter(NewHandler(svc, newTestLogger(), nil))

	req := httptest.NewRequest(http.MethodGet, "/abc123", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if enc.calls != 0 {
		t.Errorf("encoder must not run without a video set, got %d calls", enc.calls)
	}
}

func TestHandler_GetVideo_video_only_redirects(t *testing.T) {
	ts, _ := newUpstream(t, http.StatusOK, videoOnlyManifest)
	enc := &fakeEncoder{dir: t.TempDir()}
	svc := NewService(NewManifestClient(ts.URL, "", ts.Client()), nil, enc, "http://localhost:8080")
	r := newTestRouter(NewHandler(svc, newTestLogger(), nil))

	req := httptest.NewRequest(http.MethodGet, "/abc123", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Errorf("expected 302, got %d", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != ts.URL+"/abc123/DASH_720.mp4" {
		t.Errorf("redirect target: %s", got)
	}
	if enc.calls != 0 {
		t.Errorf("encoder must not run for a video-only manifest, got %d calls", enc.calls)
	}
}

func TestHandler_GetVideo_success_removes_artifact(t *testing.T) {
	ts, _ := newUpstream(t, http.StatusOK, sampleManifest)
	enc := &fakeEncoder{dir: t.TempDir(), data: []byte("muxed output")}
	svc := NewService(NewManifestClient(ts.URL, "", ts.Client()), nil, enc, "http://localhost:8080")
	r := newTestRouter(NewHandler(svc, newTestLogger(), nil))

	req := httptest.NewRequest(http.MethodGet, "/abc123", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "video/mp4" {
		t.Errorf("expected video/mp4, got %s", rec.Header().Get("Content-Type"))
	}
	if rec.Body.String() != "muxed output" {
		t.Errorf("unexpected body: %q", rec.Body.String())
	}

	entries, err := os.ReadDir(enc.dir)
	if err != nil {
		t.Fatalf("read artifact dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("artifact should be removed once the response completed, found %d files", len(entries))
	}
}

func TestHandler_GetVideo_encoder_failure(t *testing.T) {
	ts, _ := newUpstream(t, http.StatusOK, sampleManifest)
	enc := &fakeEncoder{dir: t.TempDir(), fail: true}
	svc := NewService(NewManifestClient(ts.URL, "", ts.Client()), nil, enc, "http://localhost:8080")
	r := newTestRouter(NewHandler(svc, newTestLogger(), nil))

	req := httptest.NewRequest(http.MethodGet, "/abc123", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("encoder failure must not be delivered, expected 500, got %d", rec.Code)
	}
	if rec.Body.String() != "wtf" {
		t.Errorf("expected wtf body, got %q", rec.Body.String())
	}
}

func TestHandler_ResolvePost_redirects(t *testing.T) {
	ts, _ := newUpstream(t, http.StatusOK, regularPostListing(streamHost+"/abc123/DASHPlaylist.mpd"))
	resolver := NewResolver(ts.URL, streamHost, "", ts.Client(), NewResolutionCache(16))
	svc := NewService(nil, resolver, nil, "https://mux.example.com")
	r := newTestRouter(NewHandler(svc, newTestLogger(), nil))

	req := httptest.NewRequest(http.MethodGet, "/r/videos/comments/xyz/title", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "https://mux.example.com/abc123" {
		t.Errorf("redirect target: %s", got)
	}

	// Same path again: same target, served from cache.
	rec2 := httptest.NewRecorder()
	r.ServeHTTP(rec2, httptest.NewRequest(http.MethodGet, "/r/videos/comments/xyz/title", nil))
	if got := rec2.Header().Get("Location"); got != "https://mux.example.com/abc123" {
		t.Errorf("cached redirect target diverged: %s", got)
	}
}

func TestHandler_ResolvePost_non_post_thing(t *testing.T) {
	body := `[{"kind":"Listing","data":{"children":[{"kind":"more","data":{}}]}}]`
	ts, _ := newUpstream(t, http.StatusOK, body)
	resolver := NewResolver(ts.URL, streamHost, "", ts.Client(), nil)
	svc := NewService(nil, resolver, nil, "https://mux.example.com")
	r := newTestRouter(NewHandler(svc, newTestLogger(), nil))

	req := httptest.NewRequest(http.MethodGet, "/r/videos/comments/xyz/title", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if rec.Body.String() != "wtf" {
		t.Errorf("expected wtf body, got %q", rec.Body.String())
	}
}

func TestHandler_ResolvePost_bad_listing(t *testing.T) {
	ts, _ := newUpstream(t, http.StatusNotFound, "no such post")
	resolver := NewResolver(ts.URL, streamHost, "", ts.Client(), nil)
	svc := NewService(nil, resolver, nil, "https://mux.example.com")
	r := newTestRouter(NewHandler(svc, newTestLogger(), nil))

	req := httptest.NewRequest(http.MethodGet, "/r/videos/comments/xyz/title", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if rec.Body.String() != "bad url" {
		t.Errorf("expected bad url body, got %q", rec.Body.String())
	}
}
