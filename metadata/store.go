package metadata

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Store loads metadata document once and answers attribution queries. Load
// never fails: on any problem empty document is returned and next Load will
// try again.
type Store struct {
	fetch Fetcher
	log   *zap.Logger
	group singleflight.Group

	mu  sync.RWMutex
	doc *Document
}

func NewStore(fetch Fetcher, log *zap.Logger) *Store {
	return &Store{
		fetch: fetch,
		log:   log.Named("metadata"),
	}
}

func (s *Store) cached() *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc
}

// Load returns metadata document, fetching it if necessary. Concurrent
// callers share single fetch.
func (s *Store) Load(ctx context.Context) *Document {
	if doc := s.cached(); doc != nil {
		return doc
	}

	// shared fetch outlives any single caller
	fctx := context.WithoutCancel(ctx)
	v, _, _ := s.group.Do("load", func() (any, error) {
		if doc := s.cached(); doc != nil {
			return doc, nil
		}

		data, err := s.fetch(fctx)
		var doc *Document
		if err == nil {
			doc, err = Decode(data)
		}
		if err != nil {
			s.log.Warn("Could not load image metadata, continuing without attribution", zap.Error(err))
			empty := &Document{}
			empty.buildIndex()
			return empty, nil
		}

		s.mu.Lock()
		s.doc = doc
		s.mu.Unlock()

		s.log.Debug("Image metadata loaded", zap.Int("items", len(doc.Items)))
		return doc, nil
	})
	return v.(*Document)
}

// Loaded reports whether document was successfully loaded.
func (s *Store) Loaded() bool {
	return s.cached() != nil
}

// Attribution returns attribution of named image. It is nil when document
// has not been loaded, name is unknown or item carries no attribution.
func (s *Store) Attribution(name string) *Attribution {
	it := s.cached().Find(name)
	if it == nil || it.Attribution == nil {
		return nil
	}
	a := *it.Attribution
	return &a
}

// Item returns metadata of named image or nil.
func (s *Store) Item(name string) *Item {
	return s.cached().Find(name)
}
