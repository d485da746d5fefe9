package search

import (
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// TableEntry is one name/value row of an info table
type TableEntry struct {
	Name  string
	Value string
}

// ClusterInfo returns the rows describing a cluster
func ClusterInfo(stats ClusterStats) []TableEntry {
	return []TableEntry{
		{Name: "name", Value: stats.ClusterName},
		{Name: "version", Value: strings.Join(stats.Nodes.Versions, ", ")},
		{Name: "health", Value: stats.Status.String()},
		{Name: "size", Value: humanize.IBytes(uint64(max(0, stats.Indices.Store.SizeInBytes)))},
		{Name: "documents", Value: strconv.FormatInt(stats.Indices.Docs.Count, 10)},
		{Name: "deleted documents", Value: strconv.FormatInt(stats.Indices.Docs.Deleted, 10)},
		{Name: "nodes", Value: strconv.Itoa(stats.Nodes.Count.Total)},
		{Name: "indices", Value: strconv.Itoa(stats.Indices.Count)},
		{Name: "shards", Value: strconv.Itoa(stats.Indices.Shards.Total)},
		{Name: "primary shards", Value: strconv.Itoa(stats.Indices.Shards.Primaries)},
	}
}

// IndexInfoEntries returns the rows describing an index.
// The types row is only present for indices with legacy typed mappings.
func IndexInfoEntries(index Index, info IndexInfo) []TableEntry {
	entries := []TableEntry{
		{Name: "name", Value: index.Name},
		{Name: "health", Value: index.Health.String()},
		{Name: "status", Value: index.Status.String()},
		{Name: "aliases", Value: strings.Join(info.AliasNames(), ", ")},
	}
	if types := info.MappingTypes(); len(types) > 0 {
		entries = append(entries, TableEntry{Name: "types", Value: strings.Join(types, ", ")})
	}

	created := ""
	if createdAt := info.Settings.Index.CreatedAt(); !createdAt.IsZero() {
		created = createdAt.UTC().Format(time.DateTime)
	}
	return append(entries,
		TableEntry{Name: "creation date", Value: created},
		TableEntry{Name: "size", Value: index.Size},
		TableEntry{Name: "documents", Value: index.Documents},
		TableEntry{Name: "deleted documents", Value: index.DeletedDocuments},
		TableEntry{Name: "primary shards", Value: index.Primaries},
		TableEntry{Name: "replica shards", Value: index.Replicas},
	)
}
