// Package docstore defines the document store contract the forum persists to:
// schema-less JSON documents grouped in collections, read back by id or by
// queries made of equality filters and a compound ordering.
//
// Two backends implement it: docstore/memory (in process) and docstore/pg
// (PostgreSQL JSONB). Neither offers transactions or batched writes.
package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
)

type Store interface {
	// Get returns a not-found error when the document is absent.
	Get(ctx context.Context, collection, id string) (Document, error)
	// Add stores data under a generated id and returns that id.
	Add(ctx context.Context, collection string, data any) (string, error)
	// Set overwrites the document wholesale, creating it when absent.
	Set(ctx context.Context, collection, id string, data any) error
	// Update merges top-level fields into an existing document.
	// It returns a not-found error when the document is absent.
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	Query(ctx context.Context, q Query) ([]Document, error)
	Ping(ctx context.Context) error
}

type Document struct {
	ID   string
	Data json.RawMessage
}

func (d Document) Decode(v any) error {
	if err := json.Unmarshal(d.Data, v); err != nil {
		return fmt.Errorf("failed to decode document %s: %w", d.ID, err)
	}
	return nil
}

// Decode is Document.Decode for a value type.
func Decode[T any](d Document) (T, error) {
	var v T
	err := d.Decode(&v)
	return v, err
}

type Direction int

const (
	Asc Direction = iota
	Desc
)

type Filter struct {
	Field string
	Value any
}

type Order struct {
	Field     string
	Direction Direction
}

// Query selects documents of one collection. Documents that compare equal
// under every Order keep insertion order.
type Query struct {
	Collection string
	Filters    []Filter
	Orders     []Order
	Limit      int // 0 means no limit
}

func Collection(name string) Query {
	return Query{Collection: name}
}

func (q Query) Where(field string, value any) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Field: field, Value: value})
	return q
}

func (q Query) OrderBy(field string, direction Direction) Query {
	q.Orders = append(append([]Order(nil), q.Orders...), Order{Field: field, Direction: direction})
	return q
}

func (q Query) WithLimit(n int) Query {
	q.Limit = n
	return q
}

var fieldRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks collection and field names, which backends may interpolate.
func (q Query) Validate() error {
	if !fieldRe.MatchString(q.Collection) {
		return fmt.Errorf("invalid collection name %q", q.Collection)
	}
	for _, f := range q.Filters {
		if !fieldRe.MatchString(f.Field) {
			return fmt.Errorf("invalid filter field %q", f.Field)
		}
	}
	for _, o := range q.Orders {
		if !fieldRe.MatchString(o.Field) {
			return fmt.Errorf("invalid order field %q", o.Field)
		}
	}
	if q.Limit < 0 {
		return fmt.Errorf("invalid limit %d", q.Limit)
	}
	return nil
}

func ValidCollection(name string) bool {
	return fieldRe.MatchString(name)
}
