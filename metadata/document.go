// Package metadata gives best effort access to image attribution data
// generated offline for place images.
package metadata

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gosimple/slug"

	"tripimg/imagemap"
)

// DefaultPath is location of metadata document relative to site root.
const DefaultPath = "/data/th_images.json"

type Attribution struct {
	Author  string
	License string
	Source  string
}

// Item describes single image. Optional fields are nil when absent from the
// document.
type Item struct {
	Name        string
	Slug        string
	LocalPath   *string
	Attribution *Attribution
	FileTitle   *string
	CreditHTML  *string
	Type        *string
	Parent      *string
	Group       *string
}

// item mirrors JSON produced by the fetching script.
type item struct {
	Name       string  `json:"name"`
	Slug       string  `json:"slug"`
	FileTitle  *string `json:"fileTitle"`
	Local      *string `json:"local"`
	File       *string `json:"file"`
	Source     *string `json:"source"`
	AuthorHTML *string `json:"author_html"`
	License    *string `json:"license"`
	CreditHTML *string `json:"credit_html"`
	Type       *string `json:"type"`
	Parent     *string `json:"parent"`
	Group      *string `json:"group"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (it *Item) UnmarshalJSON(data []byte) error {
	var raw item
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*it = Item{
		Name:       raw.Name,
		Slug:       raw.Slug,
		LocalPath:  raw.Local,
		FileTitle:  raw.FileTitle,
		CreditHTML: raw.CreditHTML,
		Type:       raw.Type,
		Parent:     raw.Parent,
		Group:      raw.Group,
	}
	if it.LocalPath == nil {
		it.LocalPath = raw.File
	}
	if len(it.Slug) == 0 && len(it.Name) > 0 {
		it.Slug = slug.Make(it.Name)
	}
	if a := (Attribution{Author: deref(raw.AuthorHTML), License: deref(raw.License), Source: deref(raw.Source)}); a != (Attribution{}) {
		it.Attribution = &a
	}
	return nil
}

// Document is the whole metadata file.
type Document struct {
	Items       []Item     `json:"items"`
	GeneratedAt *time.Time `json:"generated_at,omitempty"`

	index map[string]*Item
}

// Decode parses metadata document.
func Decode(data []byte) (*Document, error) {
	doc := &Document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("unable to decode image metadata: %w", err)
	}
	doc.buildIndex()
	return doc, nil
}

func (d *Document) buildIndex() {
	d.index = make(map[string]*Item, len(d.Items))
	for i := range d.Items {
		key := imagemap.Normalize(d.Items[i].Name)
		if _, exists := d.index[key]; !exists {
			d.index[key] = &d.Items[i]
		}
	}
}

// Find returns first item with matching name, ignoring case and surrounding
// spaces.
func (d *Document) Find(name string) *Item {
	if d == nil || d.index == nil {
		return nil
	}
	return d.index[imagemap.Normalize(name)]
}
