package docstore

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type sample struct {
	ID    string   `json:"id"`
	Count int64    `json:"count"`
	Tags  []string `json:"tags"`
}

func TestMarshalUnmarshal(t *testing.T) {
	in := sample{ID: "x", Count: 1700000000123, Tags: []string{"a", "b"}}

	doc, err := Marshal(in)
	require.NoError(t, err)
	require.Equal(t, "x", doc["id"])

	var out sample
	require.NoError(t, Unmarshal(doc, &out))
	require.Empty(t, cmp.Diff(in, out))
}

func TestUnmarshal_TypeMismatch(t *testing.T) {
	var out sample
	require.Error(t, Unmarshal(Document{"count": "many"}, &out))
}

func TestClone_IsDeep(t *testing.T) {
	src := Document{
		"nested": map[string]any{"k": "v"},
		"list":   []any{map[string]any{"a": 1.0}},
	}
	cp := Clone(src)
	cp["nested"].(map[string]any)["k"] = "changed"
	cp["list"].([]any)[0].(map[string]any)["a"] = 2.0

	require.Equal(t, "v", src["nested"].(map[string]any)["k"])
	require.Equal(t, 1.0, src["list"].([]any)[0].(map[string]any)["a"])
	require.Nil(t, Clone(nil))
}
