package docstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryBuilderDoesNotAlias(t *testing.T) {
	base := Collection("posts").Where("threadId", "t1")
	a := base.OrderBy("createdAt", Asc)
	b := base.OrderBy("createdAt", Desc)

	assert.Len(t, base.Orders, 0)
	assert.Equal(t, Asc, a.Orders[0].Direction)
	assert.Equal(t, Desc, b.Orders[0].Direction)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Collection("threads").Where("categoryId", "c").OrderBy("isPinned", Desc).Validate())
	assert.Error(t, Collection("bad name").Validate())
	assert.Error(t, Collection("threads").OrderBy("x'y", Asc).Validate())
	assert.Error(t, Collection("threads").WithLimit(-1).Validate())
}

func TestCompare(t *testing.T) {
	assert.Equal(t, -1, Compare(false, true))
	assert.Equal(t, 0, Compare(true, true))
	assert.Equal(t, 1, Compare(float64(3), float64(2)))
	assert.Equal(t, -1, Compare("2025-01-01T00:00:00.000000000Z", "2025-01-02T00:00:00.000000000Z"))
	assert.Equal(t, -1, Compare(nil, false), "missing fields sort first")
	assert.Equal(t, -1, Compare(float64(100), "1"), "numbers sort before strings")
	assert.Equal(t, 1, Compare([]any{"a", "b"}, []any{"a"}))
}

func TestNormalizeObject(t *testing.T) {
	obj, err := NormalizeObject(struct {
		N int  `json:"n"`
		B bool `json:"b"`
	}{N: 3, B: true})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"n": float64(3), "b": true}, obj)

	_, err = NormalizeObject([]int{1})
	assert.Error(t, err)
}
