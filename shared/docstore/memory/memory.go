// Package memory is an in-process docstore.Store.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/catalyst-codex/codex/shared/docstore"
	"github.com/catalyst-codex/codex/shared/errors"
	"github.com/google/uuid"
)

type entry struct {
	seq  int64 // insertion order, the tie breaker of every query
	data map[string]any
}

type Store struct {
	mu          sync.RWMutex
	seq         int64
	collections map[string]map[string]*entry
	newID       func() string
}

func New() *Store {
	return &Store{
		collections: make(map[string]map[string]*entry),
		newID:       uuid.NewString,
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return docstore.Document{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.collections[collection][id]
	if !ok {
		return docstore.Document{}, errors.NotFound("Document not found")
	}
	return toDocument(id, e)
}

func (s *Store) Add(ctx context.Context, collection string, data any) (string, error) {
	id := s.newID()
	if err := s.Set(ctx, collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, data any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !docstore.ValidCollection(collection) {
		return fmt.Errorf("invalid collection name %q", collection)
	}
	obj, err := docstore.NormalizeObject(data)
	if err != nil {
		return err
	}
	delete(obj, "id") // ids live beside the data, never inside it

	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[collection]
	if !ok {
		coll = make(map[string]*entry)
		s.collections[collection] = coll
	}
	if e, exists := coll[id]; exists {
		e.data = obj
		return nil
	}
	s.seq++
	coll[id] = &entry{seq: s.seq, data: obj}
	return nil
}

func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	normalized, err := docstore.NormalizeObject(fields)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.collections[collection][id]
	if !ok {
		return errors.NotFound("Document not found")
	}
	for k, v := range normalized {
		e.data[k] = v
	}
	return nil
}

func (s *Store) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	filters := make([]docstore.Filter, len(q.Filters))
	for i, f := range q.Filters {
		v, err := docstore.Normalize(f.Value)
		if err != nil {
			return nil, err
		}
		filters[i] = docstore.Filter{Field: f.Field, Value: v}
	}

	s.mu.RLock()
	type match struct {
		id string
		e  *entry
	}
	var matches []match
	for id, e := range s.collections[q.Collection] {
		if matchesAll(e.data, filters) {
			matches = append(matches, match{id, e})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].e.seq < matches[j].e.seq
	})
	sort.SliceStable(matches, func(i, j int) bool {
		for _, o := range q.Orders {
			c := docstore.Compare(matches[i].e.data[o.Field], matches[j].e.data[o.Field])
			if o.Direction == docstore.Desc {
				c = -c
			}
			if c != 0 {
				return c < 0
			}
		}
		return false
	})
	if q.Limit > 0 && len(matches) > q.Limit {
		matches = matches[:q.Limit]
	}

	docs := make([]docstore.Document, 0, len(matches))
	for _, m := range matches {
		doc, err := toDocument(m.id, m.e)
		if err != nil {
			s.mu.RUnlock()
			return nil, err
		}
		docs = append(docs, doc)
	}
	s.mu.RUnlock()
	return docs, nil
}

// Count returns the number of documents in collection
func (s *Store) Count(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

func matchesAll(data map[string]any, filters []docstore.Filter) bool {
	for _, f := range filters {
		v, ok := data[f.Field]
		if !ok || !docstore.Equal(v, f.Value) {
			return false
		}
	}
	return true
}

func toDocument(id string, e *entry) (docstore.Document, error) {
	raw, err := json.Marshal(e.data)
	if err != nil {
		return docstore.Document{}, fmt.Errorf("failed to encode document %s: %w", id, err)
	}
	return docstore.Document{ID: id, Data: raw}, nil
}
