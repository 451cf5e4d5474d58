package preload

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"tripimg/config"
	"tripimg/misc"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		img.Set(x, 0, color.NRGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("unable to encode png: %v", err)
	}
	return buf.Bytes()
}

func newTestServer(t *testing.T, pngData []byte) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/images/ok.png", func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != misc.GetUserAgent() {
			http.Error(w, "bad agent "+ua, http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngData)
	})
	mux.HandleFunc("/images/logo.svg", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/svg+xml; charset=utf-8")
		w.Write([]byte(`<svg xmlns="http://www.w3.org/2000/svg" width="1" height="1"></svg>`))
	})
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body>not an image</body></html>"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestLoader(t *testing.T, images config.ImagesConfig) *HTTPLoader {
	t.Helper()
	l, err := NewHTTPLoader(&images, &config.PreloadConfig{
		Timeout:           time.Second,
		HTTPTimeout:       5 * time.Second,
		RequestsPerSecond: 100,
		Burst:             10,
	}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewHTTPLoader: %v", err)
	}
	return l
}

func TestHTTPLoader_Load(t *testing.T) {
	srv := newTestServer(t, testPNG(t, 3, 2))
	l := newTestLoader(t, config.ImagesConfig{BaseURL: srv.URL})
	ctx := context.Background()

	tests := []struct {
		name    string
		ref     string
		wantErr error
		anyErr  bool
	}{
		{name: "absolute", ref: srv.URL + "/images/ok.png"},
		{name: "root relative", ref: "/images/ok.png"},
		{name: "svg by content type", ref: "/images/logo.svg"},
		{name: "not an image", ref: "/page", wantErr: ErrNotImage},
		{name: "missing", ref: "/images/missing.png", anyErr: true},
		{name: "relative", ref: "images/ok.png", wantErr: ErrUnresolvable},
		{name: "empty", ref: "", wantErr: ErrUnresolvable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := l.Load(ctx, tt.ref)
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Load(%q) error = %v, want %v", tt.ref, err, tt.wantErr)
				}
			case tt.anyErr:
				if err == nil {
					t.Errorf("Load(%q) expected error", tt.ref)
				}
			default:
				if err != nil {
					t.Errorf("Load(%q) unexpected error: %v", tt.ref, err)
				}
			}
		})
	}
}

func TestHTTPLoader_AssetsDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "images"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "images", "bangkok.png"), testPNG(t, 5, 4), 0o644); err != nil {
		t.Fatal(err)
	}
	l := newTestLoader(t, config.ImagesConfig{AssetsDir: dir, BaseURL: "http://127.0.0.1:1"})
	ctx := context.Background()

	if err := l.Load(ctx, "/images/bangkok.png?v=2"); err != nil {
		t.Errorf("Load from assets dir: %v", err)
	}
	if err := l.Load(ctx, "/../images/bangkok.png"); err != nil {
		t.Errorf("cleaned path should stay inside assets dir: %v", err)
	}
	if err := l.Load(ctx, "/images/none.png"); err == nil || !strings.Contains(err.Error(), "unable to open") {
		t.Errorf("expected open error, got %v", err)
	}

	size, err := l.Probe(ctx, "/images/bangkok.png")
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if size != image.Pt(5, 4) {
		t.Errorf("Probe size = %v, want 5x4", size)
	}
}

func TestHTTPLoader_NoRoot(t *testing.T) {
	l := newTestLoader(t, config.ImagesConfig{})
	if err := l.Load(context.Background(), "/images/hero.jpg"); !errors.Is(err, ErrUnresolvable) {
		t.Errorf("expected ErrUnresolvable, got %v", err)
	}
}

func TestHTTPLoader_Probe(t *testing.T) {
	srv := newTestServer(t, testPNG(t, 3, 2))
	l := newTestLoader(t, config.ImagesConfig{BaseURL: srv.URL})

	size, err := l.Probe(context.Background(), srv.URL+"/images/ok.png")
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if size.X != 3 || size.Y != 2 {
		t.Errorf("Probe size = %v, want 3x2", size)
	}
	if _, err := l.Probe(context.Background(), "/page"); err == nil {
		t.Error("expected decode error for html page")
	}
}

func TestHTTPLoader_WithPreloader(t *testing.T) {
	srv := newTestServer(t, testPNG(t, 1, 1))
	l := newTestLoader(t, config.ImagesConfig{BaseURL: srv.URL})
	p := New(l, zaptest.NewLogger(t))

	p.Preload(context.Background(), []string{"/images/ok.png", "/page"}, Options{Priority: true, Timeout: 5 * time.Second})
	if !p.IsPreloaded("/images/ok.png") {
		t.Errorf("image state = %s", p.State("/images/ok.png"))
	}
	if st := p.State("/page"); st != StateFailed {
		t.Errorf("page state = %s, want %s", st, StateFailed)
	}
}
