package media

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"crownworks/internal/config"
	"crownworks/internal/logging"
	"crownworks/internal/testsupport"
)

func newTestProcessor(t *testing.T, opts ...testsupport.ConfigOption) (*Processor, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return NewProcessor(cfg, logging.NewNop()), cfg
}

func serveBytes(t *testing.T, contentType string, data []byte) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write(data)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestImportFromURLArchivesSourceAndOptimized(t *testing.T) {
	proc, cfg := newTestProcessor(t, testsupport.WithMissingTools())
	payload := []byte("fake-jpeg-bytes")
	server := serveBytes(t, "image/jpeg", payload)

	record, err := proc.ImportFromURL(context.Background(), server.URL+"/smile-makeover.jpg", "")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if record.Type != KindImage {
		t.Fatalf("expected image kind, got %q", record.Type)
	}
	if record.Title != "smile makeover" {
		t.Fatalf("expected title inferred from path, got %q", record.Title)
	}
	if !strings.HasPrefix(record.SourceURL, "/media/source/") {
		t.Fatalf("unexpected source URL %q", record.SourceURL)
	}

	sourcePath := filepath.Join(cfg.Paths.SourceDir, filepath.Base(record.SourceURL))
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		t.Fatalf("read archived source: %v", err)
	}
	if string(data) != string(payload) {
		t.Fatalf("archived bytes differ from served bytes")
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.OptimizedDir, filepath.Base(record.OptimizedURL))); err != nil {
		t.Fatalf("optimized derivative missing: %v", err)
	}
}

func TestImportFromURLRejectsNon2xx(t *testing.T) {
	proc, _ := newTestProcessor(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	t.Cleanup(server.Close)

	_, err := proc.ImportFromURL(context.Background(), server.URL+"/gone.png", "")
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Fatalf("expected status code in error, got %q", err.Error())
	}
}

func TestImportFromURLRejectsUnsupportedContentType(t *testing.T) {
	proc, _ := newTestProcessor(t)
	server := serveBytes(t, "text/html; charset=utf-8", []byte("<html></html>"))

	_, err := proc.ImportFromURL(context.Background(), server.URL+"/page", "")
	if !errors.Is(err, ErrUnsupportedMedia) {
		t.Fatalf("expected ErrUnsupportedMedia, got %v", err)
	}
}

func TestImportFromURLRejectsBadScheme(t *testing.T) {
	proc, _ := newTestProcessor(t)
	if _, err := proc.ImportFromURL(context.Background(), "ftp://example.com/file.jpg", ""); err == nil {
		t.Fatal("expected error for non-http scheme")
	}
}

func TestProcessUploadLeavesStagedFileInPlace(t *testing.T) {
	proc, cfg := newTestProcessor(t, testsupport.WithMissingTools())
	staged := testsupport.StageUpload(t, cfg, "before-after.png", []byte("fake-png"))

	record, err := proc.ProcessUpload(context.Background(), Upload{
		Path:         staged,
		OriginalName: "before-after.png",
		MimeType:     "image/png",
	}, "Before and after")
	if err != nil {
		t.Fatalf("process upload: %v", err)
	}
	if record.Source != "Upload" {
		t.Fatalf("expected Upload source, got %q", record.Source)
	}
	if record.Title != "Before and after" {
		t.Fatalf("expected explicit title preserved, got %q", record.Title)
	}
	if _, err := os.Stat(staged); err != nil {
		t.Fatalf("staged file should remain for caller cleanup: %v", err)
	}
}

func TestProcessUploadRejectsUnsupportedMime(t *testing.T) {
	proc, cfg := newTestProcessor(t)
	staged := testsupport.StageUpload(t, cfg, "notes.pdf", []byte("%PDF"))

	_, err := proc.ProcessUpload(context.Background(), Upload{
		Path:         staged,
		OriginalName: "notes.pdf",
		MimeType:     "application/pdf",
	}, "")
	if !errors.Is(err, ErrUnsupportedMedia) {
		t.Fatalf("expected ErrUnsupportedMedia, got %v", err)
	}
}

func TestOptimizeFallsBackWhenToolMissing(t *testing.T) {
	proc, cfg := newTestProcessor(t, testsupport.WithMissingTools())
	staged := testsupport.StageUpload(t, cfg, "clinic.mp4", []byte("fake-video"))

	record, err := proc.ProcessUpload(context.Background(), Upload{
		Path:         staged,
		OriginalName: "clinic.mp4",
		MimeType:     "video/mp4",
	}, "")
	if err != nil {
		t.Fatalf("process upload: %v", err)
	}
	optimized := filepath.Join(cfg.Paths.OptimizedDir, filepath.Base(record.OptimizedURL))
	data, err := os.ReadFile(optimized)
	if err != nil {
		t.Fatalf("read fallback copy: %v", err)
	}
	if string(data) != "fake-video" {
		t.Fatalf("fallback copy should preserve original bytes")
	}
	if filepath.Ext(optimized) != ".mp4" {
		t.Fatalf("fallback copy should keep original extension, got %q", filepath.Ext(optimized))
	}
}

func TestOptimizeFallsBackWhenToolProducesNoOutput(t *testing.T) {
	proc, cfg := newTestProcessor(t, testsupport.WithStubbedTools())
	staged := testsupport.StageUpload(t, cfg, "crown.jpg", []byte("fake-jpeg"))

	record, err := proc.ProcessUpload(context.Background(), Upload{
		Path:         staged,
		OriginalName: "crown.jpg",
		MimeType:     "image/jpeg",
	}, "")
	if err != nil {
		t.Fatalf("process upload: %v", err)
	}
	if filepath.Ext(record.OptimizedURL) != ".jpg" {
		t.Fatalf("expected copy-through extension, got %q", filepath.Ext(record.OptimizedURL))
	}
}

func TestSourceLabel(t *testing.T) {
	cases := map[string]string{
		"https://www.instagram.com/p/abc":       "Instagram",
		"https://youtu.be/xyz":                  "YouTube",
		"https://m.youtube.com/watch?v=1":       "YouTube",
		"https://www.tiktok.com/@lab/video/9":   "TikTok",
		"https://vimeo.com/123":                 "Vimeo",
		"https://www.dentallabsupply.com/a.jpg": "Dentallabsupply",
		"not a url":                             "Web",
	}
	for input, want := range cases {
		if got := SourceLabel(input); got != want {
			t.Errorf("SourceLabel(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestKindForMimeHandlesParameters(t *testing.T) {
	kind, ok := kindForMime("image/jpeg; charset=binary")
	if !ok || kind != KindImage {
		t.Fatalf("expected image kind, got %q ok=%v", kind, ok)
	}
	if _, ok := kindForMime("application/octet-stream"); ok {
		t.Fatal("octet-stream should not be accepted")
	}
}
