// Package imagemap maps place and activity names to displayable image
// references.
package imagemap

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/maruel/natural"
	"go.uber.org/multierr"
	yaml "gopkg.in/yaml.v3"
)

// DefaultKey is reserved table key, its reference is returned for every
// name which is not in the table.
const DefaultKey = "default"

var (
	ErrNoDefault      = errors.New("image table has no default entry")
	ErrEmptyReference = errors.New("empty image reference")
	ErrEmptyKey       = errors.New("empty image key")
	ErrKeyCollision   = errors.New("image keys collide after normalization")
)

//go:embed images.yaml
var embeddedTable []byte

// Table is immutable mapping from canonical key to image reference. It is
// safe for concurrent use.
type Table struct {
	entries map[string]string
	def     string
}

// New builds table from raw entries. Keys are normalized, entry with
// DefaultKey is required. All problems found are reported at once.
func New(entries map[string]string) (*Table, error) {
	raw := make([]string, 0, len(entries))
	for k := range entries {
		raw = append(raw, k)
	}
	slices.SortFunc(raw, byNatural)

	var (
		err    error
		t      = &Table{entries: make(map[string]string, len(entries))}
		origin = make(map[string]string, len(entries))
	)
	for _, k := range raw {
		ref := entries[k]
		key := Normalize(k)
		switch {
		case len(key) == 0:
			err = multierr.Append(err, fmt.Errorf("%w: %q", ErrEmptyKey, k))
			continue
		case len(ref) == 0:
			err = multierr.Append(err, fmt.Errorf("%w: %q", ErrEmptyReference, k))
			continue
		}
		if prev, ok := t.entries[key]; ok && prev != ref {
			err = multierr.Append(err, fmt.Errorf("%w: %q and %q", ErrKeyCollision, origin[key], k))
			continue
		}
		t.entries[key] = ref
		origin[key] = k
	}

	def, ok := t.entries[DefaultKey]
	if !ok || len(def) == 0 {
		err = multierr.Append(err, ErrNoDefault)
	}
	if err != nil {
		return nil, err
	}
	t.def = def
	return t, nil
}

type tableFile struct {
	Version int               `yaml:"version"`
	Images  map[string]string `yaml:"images"`
}

// Parse reads table in YAML form:
//
//	version: 1
//	images:
//	  bangkok: /images/bangkok.jpg
//	  default: /images/bangkok.jpg
func Parse(data []byte) (*Table, error) {
	var f tableFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("unable to decode image table: %w", err)
	}
	if f.Version != 1 {
		return nil, fmt.Errorf("unsupported image table version %d", f.Version)
	}
	return New(f.Images)
}

// LoadFile reads and parses table from file.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read image table: %w", err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("image table %q: %w", path, err)
	}
	return t, nil
}

var embedded = sync.OnceValues(func() (*Table, error) {
	return Parse(embeddedTable)
})

// Embedded returns table compiled into the program. It panics if the
// compiled table is broken, which could only happen at build time.
func Embedded() *Table {
	t, err := embedded()
	if err != nil {
		panic(fmt.Sprintf("embedded image table is broken: %v", err))
	}
	return t
}

// Resolve returns image reference for name. It never fails: unknown names
// get the default reference.
func (t *Table) Resolve(name string) string {
	if ref, ok := t.entries[Normalize(name)]; ok {
		return ref
	}
	return t.def
}

// Lookup returns reference registered under exactly this canonical key.
func (t *Table) Lookup(key string) (string, bool) {
	ref, ok := t.entries[key]
	return ref, ok
}

func (t *Table) Default() string {
	return t.def
}

func (t *Table) Len() int {
	return len(t.entries)
}

// Keys returns all canonical keys in natural order.
func (t *Table) Keys() []string {
	keys := make([]string, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, byNatural)
	return keys
}

func byNatural(a, b string) int {
	switch {
	case natural.Less(a, b):
		return -1
	case natural.Less(b, a):
		return 1
	}
	return 0
}
