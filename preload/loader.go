package preload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/h2non/filetype"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"tripimg/config"
	"tripimg/imageurl"
	"tripimg/misc"
)

var (
	ErrNotImage     = errors.New("content is not an image")
	ErrUnresolvable = errors.New("reference cannot be resolved")
)

// filetype needs that many bytes to recognize any of its types
const sniffLen = 261

// HTTPLoader fetches images referenced by the table. Absolute references are
// requested directly, root-relative ones are read from local assets
// directory or requested from site base URL.
type HTTPLoader struct {
	client *http.Client
	assets string
	base   *url.URL
	log    *zap.Logger
}

func NewHTTPLoader(images *config.ImagesConfig, pre *config.PreloadConfig, log *zap.Logger) (*HTTPLoader, error) {
	l := &HTTPLoader{
		assets: images.AssetsDir,
		log:    log.Named("loader"),
	}
	if len(images.BaseURL) > 0 {
		base, err := url.Parse(images.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("unable to parse base url: %w", err)
		}
		l.base = base
	}
	limiters := newHostLimiters(pre.RequestsPerSecond, pre.Burst, l.log)
	l.client = &http.Client{
		Timeout:   pre.HTTPTimeout,
		Transport: limiters.RoundTripper(http.DefaultTransport),
	}
	return l, nil
}

// Load reads referenced image completely, making sure it is an image.
func (l *HTTPLoader) Load(ctx context.Context, ref string) error {
	rc, ctype, err := l.open(ctx, ref)
	if err != nil {
		return err
	}
	defer rc.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(rc, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("unable to read %q: %w", ref, err)
	}
	head = head[:n]
	if !isImage(head, ctype) {
		return fmt.Errorf("%w: %q (%s)", ErrNotImage, ref, ctype)
	}
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return fmt.Errorf("unable to read %q: %w", ref, err)
	}
	return nil
}

// Probe decodes referenced image and returns its dimensions as displayed,
// with EXIF orientation applied.
func (l *HTTPLoader) Probe(ctx context.Context, ref string) (image.Point, error) {
	rc, _, err := l.open(ctx, ref)
	if err != nil {
		return image.Point{}, err
	}
	defer rc.Close()

	img, err := imaging.Decode(rc, imaging.AutoOrientation(true))
	if err != nil {
		return image.Point{}, fmt.Errorf("unable to decode %q: %w", ref, err)
	}
	return img.Bounds().Size(), nil
}

func isImage(head []byte, ctype string) bool {
	if filetype.IsImage(head) {
		return true
	}
	// svg is text and cannot be sniffed reliably
	if mt, _, err := mime.ParseMediaType(ctype); err == nil && mt == "image/svg+xml" {
		return true
	}
	return len(ctype) == 0 && bytes.Contains(head, []byte("<svg"))
}

func (l *HTTPLoader) open(ctx context.Context, ref string) (io.ReadCloser, string, error) {
	switch {
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return l.get(ctx, imageurl.Proxied(ref))
	case strings.HasPrefix(ref, "//"):
		return l.get(ctx, imageurl.Proxied("https:"+ref))
	case strings.HasPrefix(ref, "/"):
		if len(l.assets) > 0 {
			return l.openFile(ref)
		}
		if l.base != nil {
			u, err := url.Parse(ref)
			if err != nil {
				return nil, "", fmt.Errorf("%w: %q: %w", ErrUnresolvable, ref, err)
			}
			return l.get(ctx, l.base.ResolveReference(u).String())
		}
	}
	return nil, "", fmt.Errorf("%w: %q", ErrUnresolvable, ref)
}

func (l *HTTPLoader) openFile(ref string) (io.ReadCloser, string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %q: %w", ErrUnresolvable, ref, err)
	}
	// cleaning rooted path keeps it inside assets directory
	name := filepath.Join(l.assets, filepath.FromSlash(path.Clean(u.Path)))
	f, err := os.Open(name)
	if err != nil {
		return nil, "", fmt.Errorf("unable to open image file: %w", err)
	}
	return f, mime.TypeByExtension(filepath.Ext(name)), nil
}

func (l *HTTPLoader) get(ctx context.Context, u string) (io.ReadCloser, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, "", fmt.Errorf("unable to create request for %q: %w", u, err)
	}
	req.Header.Set("User-Agent", misc.GetUserAgent())
	req.Header.Set("Accept", "image/avif,image/webp,image/*,*/*;q=0.8")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("unable to request %q: %w", u, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, "", fmt.Errorf("unexpected status %q for %q", resp.Status, u)
	}
	l.log.Debug("Image requested", zap.String("url", u), zap.String("content-type", resp.Header.Get("Content-Type")))
	return resp.Body, resp.Header.Get("Content-Type"), nil
}
