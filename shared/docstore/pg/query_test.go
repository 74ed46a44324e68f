package pg

import (
	"testing"

	"github.com/catalyst-codex/codex/shared/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildQuery(t *testing.T) {
	q := docstore.Collection("threads").
		Where("categoryId", "c1").
		OrderBy("isPinned", docstore.Desc).
		OrderBy("lastPostAt", docstore.Desc).
		WithLimit(5)

	sql, args, err := buildQuery(q)
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT id, data FROM documents WHERE collection = $1 AND data @> $2::jsonb"+
			" ORDER BY data -> 'isPinned' DESC NULLS LAST, data -> 'lastPostAt' DESC NULLS LAST, seq ASC LIMIT $3",
		sql)
	require.Len(t, args, 3)
	assert.Equal(t, "threads", args[0])
	assert.JSONEq(t, `{"categoryId":"c1"}`, args[1].(string))
	assert.Equal(t, 5, args[2])
}

func TestBuildQueryNoFilters(t *testing.T) {
	sql, args, err := buildQuery(docstore.Collection("categories").OrderBy("sortOrder", docstore.Asc))
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, data FROM documents WHERE collection = $1 ORDER BY data -> 'sortOrder' ASC NULLS FIRST, seq ASC", sql)
	assert.Equal(t, []any{"categories"}, args)
}

func TestBuildQueryRejectsBadField(t *testing.T) {
	_, _, err := buildQuery(docstore.Collection("posts").OrderBy("a' OR 1=1 --", docstore.Asc))
	assert.Error(t, err)
}
