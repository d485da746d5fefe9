package search

import (
	"github.com/pkg/errors"
)

// Index represents one row of _cat/indices
type Index struct {
	Name             string       `json:"index"`
	Health           HealthStatus `json:"health,omitempty"`
	Status           IndexStatus  `json:"status"`
	UUID             string       `json:"uuid"`
	Primaries        string       `json:"pri"`
	Replicas         string       `json:"rep"`
	Documents        string       `json:"docs.count"`
	DeletedDocuments string       `json:"docs.deleted"`
	Size             string       `json:"store.size"`
	PrimarySize      string       `json:"pri.store.size"`
}

// Indices represents the list of index
type Indices []Index

// Names returns the index names in order
func (i Indices) Names() []string {
	names := make([]string, 0, len(i))
	for _, index := range i {
		names = append(names, index.Name)
	}
	return names
}

// Find returns the index with the given name
func (i Indices) Find(name string) (Index, bool) {
	for _, index := range i {
		if index.Name == name {
			return index, true
		}
	}
	return Index{}, false
}

// ParseIndices reads the output of _cat/indices?v.
// Health is empty for closed indices, rows without an index name are skipped.
func ParseIndices(content string) (Indices, error) {
	table := ParseTable(content)
	if len(table.Header) == 0 {
		return Indices{}, nil
	}
	if _, ok := table.Column("index"); !ok {
		return nil, errors.Errorf("unexpected _cat/indices header: %v", table.Header)
	}

	indices := make(Indices, 0, len(table.Rows))
	for _, record := range table.Records() {
		if record["index"] == "" {
			continue
		}
		health, _ := ParseHealthStatus(record["health"])
		status, _ := ParseIndexStatus(record["status"])
		indices = append(indices, Index{
			Name:             record["index"],
			Health:           health,
			Status:           status,
			UUID:             record["uuid"],
			Primaries:        record["pri"],
			Replicas:         record["rep"],
			Documents:        record["docs.count"],
			DeletedDocuments: record["docs.deleted"],
			Size:             record["store.size"],
			PrimarySize:      record["pri.store.size"],
		})
	}
	return indices, nil
}
