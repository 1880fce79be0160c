package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorTree_Add(t *testing.T) {
	tree := ErrorTree{}

	tree.Add(nil, "document is invalid")
	tree.Add([]string{"title"}, "title is required")
	tree.Add([]string{"title"}, "second message")
	tree.Add([]string{"creators", "0", "name"}, "name is required")

	assert.Equal(t, ErrorTree{
		GlobalKey: []string{"document is invalid"},
		"title":   []string{"title is required", "second message"},
		"creators": ErrorTree{
			"0": ErrorTree{
				"name": []string{"name is required"},
			},
		},
	}, tree)
}

func TestErrorTree_LeafAndBranchCollide(t *testing.T) {
	t.Run("branch after leaf", func(t *testing.T) {
		tree := ErrorTree{}
		tree.Add([]string{"dates"}, "Invalid type")
		tree.Add([]string{"dates", "issued"}, "Does not match format 'date'")

		assert.Equal(t, ErrorTree{
			"dates": ErrorTree{
				GlobalKey: []string{"Invalid type"},
				"issued":  []string{"Does not match format 'date'"},
			},
		}, tree)
	})

	t.Run("leaf after branch", func(t *testing.T) {
		tree := ErrorTree{}
		tree.Add([]string{"dates", "issued"}, "Does not match format 'date'")
		tree.Add([]string{"dates"}, "Invalid type")

		assert.Equal(t, []string{"Invalid type"}, tree.Messages("dates"))
		assert.Equal(t, []string{"Does not match format 'date'"}, tree.Messages("dates", "issued"))
	})
}

func TestErrorTree_UnderscorePropertyIsNotGlobal(t *testing.T) {
	schema := map[string]any{
		"properties":           map[string]any{"_": map[string]any{"type": "integer"}},
		"additionalProperties": false,
	}

	tree, err := NewEngine().Validate(t.Context(), map[string]any{"_": "x", "z": 1}, schema)
	require.NoError(t, err)

	assert.Equal(t, []string{"Additional property z is not allowed"}, tree.Messages())
	assert.Equal(t, []string{"Invalid type. Expected: integer, given: string"}, tree.Messages("_"))
}

func TestErrorTree_Merge(t *testing.T) {
	tree := ErrorTree{}
	tree.Add([]string{"title"}, "first")

	other := ErrorTree{}
	other.Add(nil, "global")
	other.Add([]string{"title"}, "second")
	other.Add([]string{"dates", "issued"}, "bad date")

	tree.merge(other)

	assert.Equal(t, []string{"global"}, tree.Messages())
	assert.Equal(t, []string{"first", "second"}, tree.Messages("title"))
	assert.Equal(t, []string{"bad date"}, tree.Messages("dates", "issued"))
	assert.Equal(t, 4, tree.size())
}

func TestErrorTree_Messages(t *testing.T) {
	tree := ErrorTree{}
	tree.Add([]string{"a", "b"}, "m")

	assert.Equal(t, []string{"m"}, tree.Messages("a", "b"))
	assert.Nil(t, tree.Messages("a", "b", "c"))
	assert.Nil(t, tree.Messages("missing"))
	assert.Nil(t, tree.Messages())
}

func TestErrorTree_Flatten(t *testing.T) {
	tree := ErrorTree{}
	tree.Add(nil, "global")
	tree.Add([]string{"dates"}, "Invalid type")
	tree.Add([]string{"dates", "issued"}, "bad date")
	tree.Add([]string{"subjects", "1"}, "not a member")

	assert.Equal(t, map[string][]string{
		"":             {"global"},
		"dates":        {"Invalid type"},
		"dates/issued": {"bad date"},
		"subjects/1":   {"not a member"},
	}, tree.Flatten())

	assert.True(t, ErrorTree{}.Empty())
	assert.False(t, tree.Empty())
}

func TestErrorTree_UnmarshalJSON(t *testing.T) {
	var tree ErrorTree

	require.NoError(t, json.Unmarshal([]byte(`{"":["bad"],"creators":{"0":{"name":["name is required"]}}}`), &tree))
	assert.Equal(t, []string{"bad"}, tree.Messages())
	assert.Equal(t, []string{"name is required"}, tree.Messages("creators", "0", "name"))

	assert.Error(t, json.Unmarshal([]byte(`{"title":[1]}`), &tree))
	assert.Error(t, json.Unmarshal([]byte(`{"title":"required"}`), &tree))
}
