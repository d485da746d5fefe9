package search

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// ClusterStats is the subset of _cluster/stats shown for a cluster
type ClusterStats struct {
	ClusterName string       `json:"cluster_name"`
	Status      HealthStatus `json:"status"`
	Indices     struct {
		Count  int `json:"count"`
		Shards struct {
			Total     int `json:"total"`
			Primaries int `json:"primaries"`
		} `json:"shards"`
		Docs struct {
			Count   int64 `json:"count"`
			Deleted int64 `json:"deleted"`
		} `json:"docs"`
		Store struct {
			SizeInBytes int64 `json:"size_in_bytes"`
		} `json:"store"`
	} `json:"indices"`
	Nodes struct {
		Count struct {
			Total int `json:"total"`
		} `json:"count"`
		Versions []string `json:"versions"`
	} `json:"nodes"`
}

// ParseClusterStats reads a _cluster/stats response, the health status is required
func ParseClusterStats(content string) (ClusterStats, error) {
	var stats ClusterStats
	if err := json.Unmarshal([]byte(content), &stats); err != nil {
		return ClusterStats{}, errors.Wrap(err, "failed to parse cluster stats")
	}

	status, ok := ParseHealthStatus(string(stats.Status))
	if !ok {
		return ClusterStats{}, errors.Errorf("unknown cluster health status %q", stats.Status)
	}
	stats.Status = status
	return stats, nil
}

// ServerInfo is the subset of the root endpoint response used to test a connection
type ServerInfo struct {
	Name          string
	ClusterName   string
	Version       string
	Distribution  string
	LuceneVersion string
}

// ParseServerInfo reads the response of GET /, a response without version number is rejected
func ParseServerInfo(content string) (ServerInfo, error) {
	if !gjson.Valid(content) {
		return ServerInfo{}, errors.New("failed to parse server info")
	}

	root := gjson.Parse(content)
	info := ServerInfo{
		Name:          root.Get("name").String(),
		ClusterName:   root.Get("cluster_name").String(),
		Version:       root.Get("version.number").String(),
		Distribution:  root.Get("version.distribution").String(),
		LuceneVersion: root.Get("version.lucene_version").String(),
	}
	if info.Version == "" {
		return ServerInfo{}, errors.New("response does not look like an Elasticsearch or OpenSearch node")
	}
	if info.Distribution == "" {
		info.Distribution = "elasticsearch"
	}
	return info, nil
}
