package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"tripimg/config"
	"tripimg/imagemap"
)

func setupEnv(t *testing.T) *LocalEnv {
	t.Helper()
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	env := EnvFromContext(ContextWithEnv(context.Background()))
	env.Cfg = cfg
	env.Log = zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))
	return env
}

func TestInitialize_Defaults(t *testing.T) {
	env := setupEnv(t)
	if err := env.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if env.Table != imagemap.Embedded() {
		t.Error("expected embedded image table")
	}
	if env.Loader == nil || env.Preloader == nil {
		t.Error("loader and preloader must be set")
	}
	if env.Metadata == nil {
		t.Error("metadata is enabled by default")
	}
}

func TestInitialize_TableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "images.yaml")
	data := []byte("version: 1\nimages:\n  bangkok: /images/bkk.jpg\n  default: /images/default.jpg\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	env := setupEnv(t)
	env.Cfg.Images.TablePath = path
	env.Cfg.Metadata.Enable = false
	if err := env.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if got := env.Table.Resolve("Bangkok"); got != "/images/bkk.jpg" {
		t.Errorf("Resolve = %q", got)
	}
	if env.Metadata != nil {
		t.Error("metadata store should not be created when disabled")
	}
}

func TestInitialize_BadTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "images.yaml")
	if err := os.WriteFile(path, []byte("version: 1\nimages:\n  bangkok: /images/bkk.jpg\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	env := setupEnv(t)
	env.Cfg.Images.TablePath = path
	if err := env.Initialize(); err == nil {
		t.Error("expected error for table without default entry")
	}
}

func TestInitialize_MetadataFromAssets(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "data"), 0o755); err != nil {
		t.Fatal(err)
	}
	doc := []byte(`{"items":[{"name":"Wat Arun","license":"CC0"}]}`)
	if err := os.WriteFile(filepath.Join(dir, "data", "th_images.json"), doc, 0o644); err != nil {
		t.Fatal(err)
	}

	env := setupEnv(t)
	env.Cfg.Images.AssetsDir = dir
	if err := env.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	env.Metadata.Load(context.Background())
	if a := env.Metadata.Attribution("wat arun"); a == nil || a.License != "CC0" {
		t.Errorf("attribution = %+v", a)
	}
}

func TestInitialize_MetadataAbsoluteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attribution.json")
	if err := os.WriteFile(path, []byte(`{"items":[{"name":"Hero","source":"unsplash"}]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	env := setupEnv(t)
	// existing file wins over site base URL
	env.Cfg.Metadata.Path = path
	if err := env.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	env.Metadata.Load(context.Background())
	if !env.Metadata.Loaded() {
		t.Fatal("metadata not loaded from absolute file")
	}
	if a := env.Metadata.Attribution("hero"); a == nil || a.Source != "unsplash" {
		t.Errorf("attribution = %+v", a)
	}
}
