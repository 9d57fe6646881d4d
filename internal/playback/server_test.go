package playback

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/vidsplit/vidsplit/internal/logging"
)

func writeServedFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "output_segment_1.mp4")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing file: %v", err)
	}
	return path
}

func serve(t *testing.T, path, rangeHeader string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/segment", nil)
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	rec := httptest.NewRecorder()
	if err := NewFileServer(logging.NewNopLogger()).ServeFile(rec, req, path); err != nil {
		t.Fatalf("ServeFile: %v", err)
	}
	return rec
}

func TestServeFile_WholeFile(t *testing.T) {
	path := writeServedFile(t, "0123456789")

	rec := serve(t, path, "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Accept-Ranges"); got != "bytes" {
		t.Errorf("Accept-Ranges = %q", got)
	}
	if got := rec.Header().Get("Content-Type"); got != "video/mp4" {
		t.Errorf("Content-Type = %q, want video/mp4", got)
	}
	body, _ := io.ReadAll(rec.Body)
	if string(body) != "0123456789" {
		t.Errorf("body = %q", body)
	}
}

func TestServeFile_PartialContent(t *testing.T) {
	path := writeServedFile(t, "0123456789")

	rec := serve(t, path, "bytes=2-5")

	if rec.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", rec.Code)
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes 2-5/10" {
		t.Errorf("Content-Range = %q", got)
	}
	if got := rec.Header().Get("Content-Length"); got != "4" {
		t.Errorf("Content-Length = %q", got)
	}
	body, _ := io.ReadAll(rec.Body)
	if string(body) != "2345" {
		t.Errorf("body = %q, want %q", body, "2345")
	}
}

func TestServeFile_SuffixRange(t *testing.T) {
	path := writeServedFile(t, "0123456789")

	rec := serve(t, path, "bytes=-3")

	if rec.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if string(body) != "789" {
		t.Errorf("body = %q, want %q", body, "789")
	}
}

func TestServeFile_UnsatisfiableRange(t *testing.T) {
	path := writeServedFile(t, "0123456789")

	rec := serve(t, path, "bytes=50-60")

	if rec.Code != http.StatusRequestedRangeNotSatisfiable {
		t.Fatalf("status = %d, want 416", rec.Code)
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes */10" {
		t.Errorf("Content-Range = %q", got)
	}
}

func TestServeFile_MalformedRangeServesWholeFile(t *testing.T) {
	path := writeServedFile(t, "0123456789")

	rec := serve(t, path, "chunks=0-4")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for malformed range", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if string(body) != "0123456789" {
		t.Errorf("body = %q", body)
	}
}

func TestServeFile_Missing(t *testing.T) {
	rec := serve(t, filepath.Join(t.TempDir(), "gone.mp4"), "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestContentTypeFor(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/out/clip.mp4", "video/mp4"},
		{"/out/clip.MP4", "video/mp4"},
		{"/out/clip.mkv", "video/x-matroska"},
		{"/out/clip.webm", "video/webm"},
		{"/out/clip.xyz", "application/octet-stream"},
	}

	for _, tt := range tests {
		if got := contentTypeFor(tt.path); got != tt.want {
			t.Errorf("contentTypeFor(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
