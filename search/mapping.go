package search

import (
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// MappingNode is one field of a mapping, Children is nil unless the field has properties
type MappingNode struct {
	Name     string
	Type     string
	Children []*MappingNode
}

// HasChildren reports whether the node is an object with nested properties
func (n *MappingNode) HasChildren() bool {
	return len(n.Children) > 0
}

// Child returns the nested field with the given name
func (n *MappingNode) Child(name string) (*MappingNode, bool) {
	for _, child := range n.Children {
		if child.Name == name {
			return child, true
		}
	}
	return nil, false
}

// Mapping is the field tree of one index, Type is set only for legacy typed mappings
type Mapping struct {
	Index string
	Type  string
	Nodes []*MappingNode
}

// MappingField is a leaf of a mapping addressed by its dotted path
type MappingField struct {
	Path  string
	Type  string
	Index string
}

// Node returns the top level field with the given name
func (m Mapping) Node(name string) (*MappingNode, bool) {
	for _, node := range m.Nodes {
		if node.Name == name {
			return node, true
		}
	}
	return nil, false
}

// Fields returns the leaves of the mapping in document order
func (m Mapping) Fields() []MappingField {
	fields := make([]MappingField, 0)
	var walk func(prefix string, node *MappingNode)
	walk = func(prefix string, node *MappingNode) {
		path := node.Name
		if prefix != "" {
			path = prefix + "." + node.Name
		}
		if !node.HasChildren() {
			fields = append(fields, MappingField{Path: path, Type: node.Type, Index: m.Index})
			return
		}
		for _, child := range node.Children {
			walk(path, child)
		}
	}
	for _, node := range m.Nodes {
		walk("", node)
	}
	return fields
}

// ParseMappings reads a _mapping response.
// Indices without mappings are skipped, typed mappings yield one Mapping per type.
func ParseMappings(content string) ([]Mapping, error) {
	if !gjson.Valid(content) {
		return nil, errors.New("mapping response is not valid JSON")
	}

	mappings := make([]Mapping, 0)
	gjson.Parse(content).ForEach(func(index, properties gjson.Result) bool {
		indexMapping := properties.Get("mappings")
		if !indexMapping.IsObject() {
			return true
		}

		if indexMapping.Get("properties").Exists() {
			mappings = append(mappings, Mapping{Index: index.String(), Nodes: parseNodes(indexMapping)})
			return true
		}

		indexMapping.ForEach(func(typeName, typeMapping gjson.Result) bool {
			if typeMapping.IsObject() {
				mappings = append(mappings, Mapping{
					Index: index.String(),
					Type:  typeName.String(),
					Nodes: parseNodes(typeMapping),
				})
			}
			return true
		})
		return true
	})
	return mappings, nil
}

func parseNodes(mapping gjson.Result) []*MappingNode {
	properties := mapping.Get("properties")
	if !properties.IsObject() {
		return nil
	}

	nodes := make([]*MappingNode, 0)
	properties.ForEach(func(name, field gjson.Result) bool {
		if field.IsObject() {
			nodes = append(nodes, newMappingNode(name.String(), field))
		}
		return true
	})
	return nodes
}

func newMappingNode(name string, field gjson.Result) *MappingNode {
	node := &MappingNode{Name: name}
	if fieldType := field.Get("type"); fieldType.Type == gjson.String {
		node.Type = fieldType.String()
	}
	if field.Get("properties").Exists() {
		node.Children = parseNodes(field)
		if node.Children == nil {
			node.Children = []*MappingNode{}
		}
	}
	return node
}
