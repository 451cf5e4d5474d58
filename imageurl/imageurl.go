// Package imageurl rewrites image references for delivery: proxy-safe
// Wikimedia URLs, Unsplash resizing parameters, responsive source sets and
// inline placeholders.
package imageurl

import (
	"encoding/base64"
	"fmt"
	"html"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// Format of the image requested from optimizing CDN.
type Format string

const (
	FormatWebP Format = "webp"
	FormatAVIF Format = "avif"
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
)

const (
	DefaultQuality          = 80
	DefaultPlaceholderColor = "#f3f4f6"
)

// DefaultSizes are widths used by SrcSet when none are given.
var DefaultSizes = []int{320, 480, 640, 800, 1024, 1200, 1600}

// Options for Optimize. Zero Width, Height and Blur are not set, zero
// Quality means DefaultQuality and empty Format means FormatWebP.
type Options struct {
	Width   int
	Height  int
	Quality int
	Format  Format
	Blur    int
}

func isWikimedia(host string) bool {
	host = strings.ToLower(host)
	return strings.HasSuffix(host, "wikipedia.org") || strings.HasSuffix(host, "wikimedia.org")
}

func isUnsplash(host string) bool {
	return strings.HasSuffix(strings.ToLower(host), "unsplash.com")
}

// Proxied returns reference suitable for direct fetching. Wikipedia and
// Wikimedia URLs are switched to https and their path is re-encoded in
// canonical form, everything else, including malformed input, is returned
// unchanged.
func Proxied(ref string) string {
	u, err := url.Parse(ref)
	if err != nil || !isWikimedia(u.Hostname()) {
		return ref
	}
	if u.Scheme == "http" {
		u.Scheme = "https"
	}
	// Path is already decoded, dropping raw form makes String escape it again
	u.RawPath = ""
	return u.String()
}

// Optimize sets Unsplash transformation parameters on src. Other sources are
// returned as is.
func Optimize(src string, opts Options) string {
	u, err := url.Parse(src)
	if err != nil || !isUnsplash(u.Hostname()) {
		return src
	}
	if opts.Quality <= 0 {
		opts.Quality = DefaultQuality
	}
	if opts.Format == "" {
		opts.Format = FormatWebP
	}

	q := u.Query()
	if opts.Width > 0 {
		q.Set("w", strconv.Itoa(opts.Width))
	}
	if opts.Height > 0 {
		q.Set("h", strconv.Itoa(opts.Height))
	}
	q.Set("q", strconv.Itoa(opts.Quality))
	if opts.Blur > 0 {
		q.Set("blur", strconv.Itoa(opts.Blur))
	}
	switch opts.Format {
	case FormatWebP, FormatAVIF:
		q.Set("fm", string(opts.Format))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// SrcSet builds value of srcset attribute with src optimized for every
// width in sizes (DefaultSizes when empty).
func SrcSet(src string, sizes []int, quality int) string {
	if len(sizes) == 0 {
		sizes = DefaultSizes
	}
	parts := make([]string, 0, len(sizes))
	for _, size := range sizes {
		parts = append(parts, fmt.Sprintf("%s %dw", Optimize(src, Options{Width: size, Quality: quality}), size))
	}
	return strings.Join(parts, ", ")
}

// OptimalSize returns pixel width to request for container of given CSS width.
func OptimalSize(width int, dpr float64) int {
	if dpr <= 0 {
		dpr = 1
	}
	return int(math.Ceil(float64(width) * dpr))
}

// Placeholder returns SVG data URI of a solid rectangle with "Loading..."
// caption.
func Placeholder(width, height int, color string) string {
	if color == "" {
		color = DefaultPlaceholderColor
	}
	svg := fmt.Sprintf(`<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">`+
		`<rect width="100%%" height="100%%" fill="%s"/>`+
		`<text x="50%%" y="50%%" text-anchor="middle" dy=".3em" fill="#9ca3af" font-family="system-ui">Loading...</text>`+
		`</svg>`, width, height, html.EscapeString(color))
	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(svg))
}
