package search

import (
	"strings"

	"github.com/samber/lo"

	"github.com/bdpiprava/esquery/maps"
)

// ResultRow is one hit with its absolute position in the result set, starting at 1
type ResultRow struct {
	Number int64
	Hit    Hit
}

// Column is one column of the result table
type Column struct {
	Name   string
	fields []MappingField
	value  func(ResultRow) any
}

// Value returns the cell of row in this column
func (c Column) Value(row ResultRow) any {
	return c.value(row)
}

// Fields returns the mapping fields backing the column, nil for metadata columns
func (c Column) Fields() []MappingField {
	return c.fields
}

// Tooltip describes the mapped type of the column.
// When indices map the field with different types each type is listed with its indices.
func (c Column) Tooltip() string {
	if len(c.fields) == 0 {
		return ""
	}

	byType := maps.NewMulti[string, string]()
	for _, field := range c.fields {
		if field.Type != "" {
			byType.Put(field.Type, field.Index)
		}
	}

	switch {
	case byType.Len() == 0:
		return c.Name
	case len(c.fields) == 1 || byType.Len() == 1:
		return c.Name + ": " + byType.Keys()[0]
	}

	lines := []string{c.Name}
	byType.Each(func(fieldType string, indices []string) {
		lines = append(lines, "("+strings.Join(lo.Uniq(indices), ", ")+"): "+fieldType)
	})
	return strings.Join(lines, "\n")
}

// ResultTable is the tabular view of one page of hits
type ResultTable struct {
	Columns []Column
	Rows    []ResultRow
	Summary string
}

// ResultTable projects the hits of the response into rows and columns.
// Metadata columns come first, followed by one column per mapped leaf field
// holding a non-null value in at least one hit of the page.
func (c *ResponseContext) ResultTable() ResultTable {
	from := c.From()
	rows := lo.Map(c.Hits(), func(hit Hit, i int) ResultRow {
		return ResultRow{Number: int64(i) + from + 1, Hit: hit}
	})

	return ResultTable{
		Columns: buildColumns(c.Mappings(), rows),
		Rows:    rows,
		Summary: c.Summary(),
	}
}

func buildColumns(mappings []Mapping, rows []ResultRow) []Column {
	columns := []Column{
		{Name: "#", value: func(r ResultRow) any { return r.Number }},
		{Name: "_index", value: func(r ResultRow) any { return r.Hit.Index }},
		{Name: "_type", value: func(r ResultRow) any { return r.Hit.Type }},
		{Name: "_id", value: func(r ResultRow) any { return r.Hit.ID }},
		{Name: "_score", value: func(r ResultRow) any { return r.Hit.Score }},
	}

	fields := maps.NewMulti[string, MappingField]()
	for _, mapping := range mappings {
		for _, field := range mapping.Fields() {
			fields.Put(field.Path, field)
		}
	}

	fields.Each(func(path string, mapped []MappingField) {
		hasValue := lo.ContainsBy(rows, func(r ResultRow) bool {
			return r.Hit.Values[path] != nil
		})
		if !hasValue {
			return
		}
		columns = append(columns, Column{
			Name:   path,
			fields: mapped,
			value:  func(r ResultRow) any { return r.Hit.Values[path] },
		})
	})
	return columns
}
