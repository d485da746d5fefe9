package search

import (
	"github.com/tidwall/gjson"

	"github.com/bdpiprava/esquery/maps"
)

// Hit is one search result with its _source flattened into dotted paths
type Hit struct {
	ID     string
	Index  string
	Score  float64
	Type   string
	Values map[string]any
}

// NewHit reads one element of hits.hits.
//
// Every object key is stored under its dotted path, intermediate objects included.
// Values of the same path inside a list of objects are gathered into a list,
// a single value is kept as a scalar.
func NewHit(node gjson.Result) Hit {
	values := make(map[string]any)
	node.Get("_source").ForEach(func(key, value gjson.Result) bool {
		collectValues(key.String(), value.Value(), values)
		return true
	})

	return Hit{
		ID:     node.Get("_id").String(),
		Index:  node.Get("_index").String(),
		Score:  node.Get("_score").Float(),
		Type:   node.Get("_type").String(),
		Values: values,
	}
}

// Value returns the flattened value at path
func (h Hit) Value(path string) (any, bool) {
	value, ok := h.Values[path]
	return value, ok
}

func collectValues(field string, value any, values map[string]any) {
	values[field] = value

	switch v := value.(type) {
	case []any:
		grouped := maps.NewMulti[string, any]()
		for _, item := range v {
			object, ok := item.(map[string]any)
			if !ok {
				continue
			}
			for key, nested := range object {
				grouped.Put(field+"."+key, nested)
			}
		}
		grouped.Each(func(key string, nested []any) {
			if len(nested) == 1 {
				collectValues(key, nested[0], values)
				return
			}
			collectValues(key, nested, values)
		})
	case map[string]any:
		for key, nested := range v {
			collectValues(field+"."+key, nested, values)
		}
	}
}
