package search

import (
	"encoding/json"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// IndexSetting represents the index settings
type IndexSetting struct {
	CreationDate     string  `json:"creation_date"`
	NumberOfShards   string  `json:"number_of_shards"`
	NumberOfReplicas string  `json:"number_of_replicas"`
	UUID             string  `json:"uuid"`
	Blocks           *Blocks `json:"blocks"`
	ProvidedName     string  `json:"provided_name"`
}

// CreatedAt returns the creation date, zero when the setting is missing or malformed
func (s IndexSetting) CreatedAt() time.Time {
	millis, err := strconv.ParseInt(s.CreationDate, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(millis)
}

// Blocks represents the blocks on index
type Blocks struct {
	Write    string `json:"write"`
	Read     string `json:"read"`
	Metadata string `json:"metadata"`
	ReadOnly string `json:"read_only"`
}

// SettingsRoot is wrapper for one index settings
type SettingsRoot struct {
	Index IndexSetting `json:"index"`
}

// IndexInfo is the description of one index returned by GET /<index>
type IndexInfo struct {
	Aliases  map[string]json.RawMessage `json:"aliases"`
	Mappings json.RawMessage            `json:"mappings"`
	Settings SettingsRoot               `json:"settings"`
}

// AliasNames returns the alias names sorted
func (i IndexInfo) AliasNames() []string {
	names := make([]string, 0, len(i.Aliases))
	for name := range i.Aliases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MappingTypes returns the type names of legacy typed mappings, nil for typeless mappings
func (i IndexInfo) MappingTypes() []string {
	mappings := gjson.ParseBytes(i.Mappings)
	if !mappings.IsObject() || mappings.Get("properties").Exists() {
		return nil
	}

	var types []string
	mappings.ForEach(func(key, _ gjson.Result) bool {
		types = append(types, key.String())
		return true
	})
	return types
}

// GetIndexResponse is the response of GET /<index>, keyed by index name
type GetIndexResponse map[string]IndexInfo

// ParseIndexInfo returns the description of index from a GET /<index> response
func ParseIndexInfo(content, index string) (IndexInfo, error) {
	var response GetIndexResponse
	if err := json.Unmarshal([]byte(content), &response); err != nil {
		return IndexInfo{}, errors.Wrap(err, "failed to parse index info")
	}

	info, ok := response[index]
	if !ok {
		return IndexInfo{}, errors.Errorf("index %s not found in response", index)
	}
	return info, nil
}
