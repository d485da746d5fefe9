package search

import (
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// CreateIndexSettings describes an index to create
type CreateIndexSettings struct {
	NumberOfShards   int
	NumberOfReplicas *int
	// Mappings is the raw JSON of the mappings section, ignored when empty
	Mappings string
	Aliases  []string
}

// GetBody returns the JSON body of the create index request
func (c *CreateIndexSettings) GetBody() (string, error) {
	shards := c.NumberOfShards
	if shards <= 0 {
		shards = 1
	}

	body, err := sjson.Set("{}", "settings.index.number_of_shards", shards)
	if err != nil {
		return "", err
	}
	if c.NumberOfReplicas != nil {
		if body, err = sjson.Set(body, "settings.index.number_of_replicas", *c.NumberOfReplicas); err != nil {
			return "", err
		}
	}

	if c.Mappings != "" {
		if !gjson.Valid(c.Mappings) {
			return "", errors.New("mappings is not valid JSON")
		}
		if body, err = sjson.SetRaw(body, "mappings", c.Mappings); err != nil {
			return "", err
		}
	}

	for _, alias := range c.Aliases {
		if body, err = sjson.SetRaw(body, "aliases."+escapePath(alias), "{}"); err != nil {
			return "", err
		}
	}
	return body, nil
}

// escapePath escapes characters with a meaning in gjson/sjson paths
func escapePath(key string) string {
	escaped := make([]byte, 0, len(key))
	for i := 0; i < len(key); i++ {
		switch key[i] {
		case '.', '*', '?', '|', '#', '@', '\\', '!', '=', '<', '>', '%', ':':
			escaped = append(escaped, '\\')
		}
		escaped = append(escaped, key[i])
	}
	return string(escaped)
}
