package fakestitch

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatches(t *testing.T) {
	doc := map[string]any{
		"name":   "Alice",
		"salary": json.Number("120000"),
		"dept":   "eng",
	}

	tests := []struct {
		name  string
		query map[string]any
		want  bool
	}{
		{"empty", map[string]any{}, true},
		{"nil", nil, true},
		{"equality", map[string]any{"name": "Alice"}, true},
		{"equality miss", map[string]any{"name": "Bob"}, false},
		{"number equality", map[string]any{"salary": 120000}, true},
		{"missing field", map[string]any{"title": "cto"}, false},
		{"$gt", map[string]any{"salary": map[string]any{"$gt": json.Number("100000")}}, true},
		{"$lte", map[string]any{"salary": map[string]any{"$lte": 100000}}, false},
		{"$in", map[string]any{"dept": map[string]any{"$in": []any{"ops", "eng"}}}, true},
		{"$nin", map[string]any{"dept": map[string]any{"$nin": []any{"eng"}}}, false},
		{"$ne", map[string]any{"dept": map[string]any{"$ne": "ops"}}, true},
		{"$exists", map[string]any{"title": map[string]any{"$exists": false}}, true},
		{"$or", map[string]any{"$or": []any{
			map[string]any{"name": "Bob"},
			map[string]any{"dept": "eng"},
		}}, true},
		{"$and", map[string]any{"$and": []any{
			map[string]any{"name": "Alice"},
			map[string]any{"dept": "ops"},
		}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := matches(doc, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchesMalformed(t *testing.T) {
	doc := map[string]any{"name": "Alice"}

	for _, q := range []map[string]any{
		{"name": map[string]any{"$regexish": "A"}},
		{"$where": "true"},
		{"$or": "not-an-array"},
		{"name": map[string]any{"$in": "Alice"}},
	} {
		_, err := matches(doc, q)
		assert.Error(t, err, "%v", q)
	}
}

func TestSortAndProject(t *testing.T) {
	docs := []map[string]any{
		{"_id": "1", "name": "Carol", "age": json.Number("41")},
		{"_id": "2", "name": "Alice", "age": json.Number("29")},
		{"_id": "3", "name": "Bob", "age": json.Number("35")},
	}

	var byAge sortSpec
	require.NoError(t, json.Unmarshal([]byte(`{"age":-1}`), &byAge))
	sortDocs(docs, byAge)
	assert.Equal(t, "Carol", docs[0]["name"])
	assert.Equal(t, "Alice", docs[2]["name"])

	var bad sortSpec
	require.Error(t, json.Unmarshal([]byte(`{"age":2}`), &bad))
	require.Error(t, json.Unmarshal([]byte(`{"age":"up"}`), &bad))

	assert.Equal(t, map[string]any{"_id": "1", "name": "Carol"}, project(docs[0], map[string]any{"name": 1}))
	assert.Equal(t, map[string]any{"name": "Carol"}, project(docs[0], map[string]any{"name": true, "_id": 0}))
}

func TestSortKeepsKeyOrder(t *testing.T) {
	docs := []map[string]any{
		{"_id": "1", "dept": "ops", "name": "Alice"},
		{"_id": "2", "dept": "eng", "name": "Bob"},
		{"_id": "3", "dept": "eng", "name": "Alice"},
	}

	// Alphabetical key order would sort by dept first and give 3, 2, 1.
	var spec sortSpec
	require.NoError(t, json.Unmarshal([]byte(`{"name":1,"dept":1}`), &spec))
	require.Equal(t, sortSpec{{field: "name", dir: 1}, {field: "dept", dir: 1}}, spec)

	sortDocs(docs, spec)
	ids := []any{docs[0]["_id"], docs[1]["_id"], docs[2]["_id"]}
	assert.Equal(t, []any{"3", "1", "2"}, ids)

	require.NoError(t, json.Unmarshal([]byte(`{"dept":1,"name":-1}`), &spec))
	sortDocs(docs, spec)
	ids = []any{docs[0]["_id"], docs[1]["_id"], docs[2]["_id"]}
	assert.Equal(t, []any{"2", "3", "1"}, ids)
}
