package fallback

import (
	"tripimg/common"
)

// Guard tracks image displayed by a single element and makes sure fallback
// is applied at most once: when fallback itself fails the element keeps it
// and no further substitution happens.
// NOTE: not to be used concurrently, it belongs to one element.
type Guard struct {
	src      string
	category common.Category
	name     string
	failed   bool
}

// NewGuard starts tracking element showing src. Category and name select the
// fallback.
func NewGuard(src string, category common.Category, name string) *Guard {
	return &Guard{src: src, category: category, name: name}
}

// Src returns reference element should display now.
func (g *Guard) Src() string {
	return g.src
}

// Failed reports whether fallback has been applied.
func (g *Guard) Failed() bool {
	return g.failed
}

// OnError handles load error of the displayed image. It returns reference to
// display and whether it has changed.
func (g *Guard) OnError() (string, bool) {
	if g.failed {
		return g.src, false
	}
	g.failed = true
	g.src = For(g.category, g.name)
	return g.src, true
}

// Reset starts tracking new source, as if element was re-rendered.
func (g *Guard) Reset(src string) {
	g.src, g.failed = src, false
}
