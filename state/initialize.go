package state

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"tripimg/imagemap"
	"tripimg/metadata"
	"tripimg/preload"
)

// newLocalEnv creates a new LocalEnv instance with default values
func newLocalEnv() *LocalEnv {
	return &LocalEnv{
		start:    time.Now(),
		Registry: prometheus.NewRegistry(),
	}
}

// Initialize builds image table, preloader and metadata store from loaded
// configuration. Cfg and Log must be set.
func (e *LocalEnv) Initialize() (err error) {
	if e.Table, err = e.loadTable(); err != nil {
		return err
	}
	e.Log.Debug("Image table ready", zap.Int("entries", e.Table.Len()), zap.String("default", e.Table.Default()))

	if e.Loader, err = preload.NewHTTPLoader(&e.Cfg.Images, &e.Cfg.Preload, e.Log); err != nil {
		return fmt.Errorf("unable to prepare image loader: %w", err)
	}
	e.Preloader = preload.New(e.Loader, e.Log, preload.WithRegisterer(e.Registry))

	if e.Cfg.Metadata.Enable {
		e.Metadata = metadata.NewStore(e.metadataFetcher(), e.Log)
	}
	return nil
}

func (e *LocalEnv) loadTable() (*imagemap.Table, error) {
	if len(e.Cfg.Images.TablePath) == 0 {
		return imagemap.Embedded(), nil
	}
	table, err := imagemap.LoadFile(e.Cfg.Images.TablePath)
	if err != nil {
		return nil, fmt.Errorf("unable to load image table: %w", err)
	}
	return table, nil
}

// metadataFetcher picks document source: absolute URL is requested as is,
// existing local file is read directly, root-relative path is resolved against
// assets directory or site base URL and anything else is a local file.
func (e *LocalEnv) metadataFetcher() metadata.Fetcher {
	path := e.Cfg.Metadata.Path
	client := &http.Client{Timeout: e.Cfg.Preload.HTTPTimeout}

	switch {
	case strings.HasPrefix(path, "http://"), strings.HasPrefix(path, "https://"):
		return metadata.HTTPFetcher(client, "", path)
	case filepath.IsAbs(path) && fileExists(path):
		return metadata.FileFetcher(path)
	case strings.HasPrefix(path, "/") && len(e.Cfg.Images.AssetsDir) > 0:
		return metadata.FileFetcher(filepath.Join(e.Cfg.Images.AssetsDir, filepath.FromSlash(path)))
	case strings.HasPrefix(path, "/") && len(e.Cfg.Images.BaseURL) > 0:
		return metadata.HTTPFetcher(client, e.Cfg.Images.BaseURL, path)
	}
	return metadata.FileFetcher(path)
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}
