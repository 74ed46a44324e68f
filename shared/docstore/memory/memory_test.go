package memory

import (
	"context"
	"testing"

	"github.com/catalyst-codex/codex/shared/docstore"
	"github.com/catalyst-codex/codex/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	Id     string `json:"id,omitempty"`
	Group  string `json:"group"`
	Rank   int    `json:"rank"`
	Pinned bool   `json:"pinned"`
}

func ids(docs []docstore.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

func TestGetSetUpdate(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.Get(ctx, "items", "missing")
	assert.True(t, errors.IsNotFound(err))

	require.NoError(t, s.Set(ctx, "items", "a", item{Id: "ignored", Group: "g", Rank: 1}))
	doc, err := s.Get(ctx, "items", "a")
	require.NoError(t, err)
	got, err := docstore.Decode[item](doc)
	require.NoError(t, err)
	assert.Equal(t, item{Group: "g", Rank: 1}, got, "id must not be stored inside data")

	require.NoError(t, s.Update(ctx, "items", "a", map[string]any{"rank": 5}))
	doc, err = s.Get(ctx, "items", "a")
	require.NoError(t, err)
	got, err = docstore.Decode[item](doc)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Rank)
	assert.Equal(t, "g", got.Group)

	err = s.Update(ctx, "items", "missing", map[string]any{"rank": 1})
	assert.True(t, errors.IsNotFound(err))

	// Set overwrites wholesale
	require.NoError(t, s.Set(ctx, "items", "a", map[string]any{"group": "h"}))
	doc, err = s.Get(ctx, "items", "a")
	require.NoError(t, err)
	assert.JSONEq(t, `{"group":"h"}`, string(doc.Data))
}

func TestAddGeneratesIds(t *testing.T) {
	ctx := context.Background()
	s := New()
	id1, err := s.Add(ctx, "items", item{Group: "g"})
	require.NoError(t, err)
	id2, err := s.Add(ctx, "items", item{Group: "g"})
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)
	assert.Equal(t, 2, s.Count("items"))
}

func TestQuery(t *testing.T) {
	ctx := context.Background()
	s := New()
	seed := []struct {
		id string
		item
	}{
		{"a", item{Group: "x", Rank: 2}},
		{"b", item{Group: "x", Rank: 3, Pinned: true}},
		{"c", item{Group: "y", Rank: 9}},
		{"d", item{Group: "x", Rank: 2}},
		{"e", item{Group: "x", Rank: 7}},
	}
	for _, it := range seed {
		require.NoError(t, s.Set(ctx, "items", it.id, it.item))
	}

	t.Run("filter keeps insertion order", func(t *testing.T) {
		docs, err := s.Query(ctx, docstore.Collection("items").Where("group", "x"))
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "d", "e"}, ids(docs))
	})

	t.Run("ascending order is stable on ties", func(t *testing.T) {
		docs, err := s.Query(ctx, docstore.Collection("items").Where("group", "x").OrderBy("rank", docstore.Asc))
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "d", "b", "e"}, ids(docs))
	})

	t.Run("compound order", func(t *testing.T) {
		q := docstore.Collection("items").
			Where("group", "x").
			OrderBy("pinned", docstore.Desc).
			OrderBy("rank", docstore.Desc)
		docs, err := s.Query(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "e", "a", "d"}, ids(docs))
	})

	t.Run("numeric filter matches ints", func(t *testing.T) {
		docs, err := s.Query(ctx, docstore.Collection("items").Where("rank", 9))
		require.NoError(t, err)
		assert.Equal(t, []string{"c"}, ids(docs))
	})

	t.Run("limit", func(t *testing.T) {
		docs, err := s.Query(ctx, docstore.Collection("items").OrderBy("rank", docstore.Desc).WithLimit(2))
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "e"}, ids(docs))
	})

	t.Run("unknown collection is empty", func(t *testing.T) {
		docs, err := s.Query(ctx, docstore.Collection("nothing"))
		require.NoError(t, err)
		assert.Empty(t, docs)
	})

	t.Run("invalid field name", func(t *testing.T) {
		_, err := s.Query(ctx, docstore.Collection("items").Where("rank; DROP", 1))
		assert.Error(t, err)
	})
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := New()
	_, err := s.Get(ctx, "items", "a")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.Set(ctx, "items", "a", item{}), context.Canceled)
}
