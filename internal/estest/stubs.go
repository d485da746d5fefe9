package estest

import (
	"fmt"
	"strings"
)

// CatIndicesHeader is the header row of _cat/indices?v
const CatIndicesHeader = "health status index    uuid                   pri rep docs.count docs.deleted store.size pri.store.size"

// OK returns a stub answering method and path with status 200 and body
func OK(method, path, body string) Stub {
	return Stub{
		Request:  Request{Method: method, Path: path},
		Response: Response{Status: 200, Body: body},
	}
}

// Failure returns a stub answering method and path with the given status and an Elasticsearch error body
func Failure(method, path string, status int, reason string) Stub {
	return Stub{
		Request: Request{Method: method, Path: path},
		Response: Response{
			Status: status,
			Body:   fmt.Sprintf(`{"error":{"type":"exception","reason":%q},"status":%d}`, reason, status),
		},
	}
}

// ClusterStats returns a _cluster/stats stub for a single node cluster
func ClusterStats(name, health string) Stub {
	return OK("GET", "/_cluster/stats", fmt.Sprintf(`{
  "cluster_name": %q,
  "status": %q,
  "indices": {"count": 0, "shards": {"total": 0, "primaries": 0}, "docs": {"count": 0, "deleted": 0}, "store": {"size_in_bytes": 0}},
  "nodes": {"count": {"total": 1}, "versions": ["7.17.10"]}
}`, name, health))
}

// CatIndices returns a _cat/indices stub listing the given rows under CatIndicesHeader
func CatIndices(rows ...string) Stub {
	lines := append([]string{CatIndicesHeader}, rows...)
	return OK("GET", "/_cat/indices", strings.Join(lines, "\n")+"\n")
}

// CatIndex formats one _cat/indices row aligned to CatIndicesHeader, name is at most 8 characters
func CatIndex(health, status, name string, docs int) string {
	return fmt.Sprintf("%-6s %-6s %-8s %-22s %-3s %-3s %-10d %-12d %-10s %s",
		health, status, name, "uuid-"+name, "1", "1", docs, 0, "10kb", "10kb")
}

// Root returns a GET / stub answering like a node of the given version
func Root(version string) Stub {
	return OK("GET", "/", fmt.Sprintf(`{
  "name": "node-1",
  "cluster_name": "docker-cluster",
  "version": {"number": %q, "lucene_version": "8.11.1"},
  "tagline": "You Know, for Search"
}`, version))
}
