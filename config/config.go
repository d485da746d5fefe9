package config

import (
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/bdpiprava/esquery/internal"
	"github.com/bdpiprava/esquery/xhttp"
)

// ErrInvalidConfiguration is returned for cluster configurations that cannot be used
var ErrInvalidConfiguration = errors.New("invalid cluster configuration")

// DefaultPageSize is used when the config file does not set one
const DefaultPageSize int64 = 20

// Flavor selects the index management API of a cluster
type Flavor string

const (
	Elasticsearch Flavor = "elasticsearch"
	OpenSearch    Flavor = "opensearch"
)

// Credentials is the basic auth user of a cluster
type Credentials struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// SSLConfig points at the trust and key stores of a cluster
type SSLConfig struct {
	TrustStorePath     string `yaml:"trust_store_path"`
	TrustStorePassword string `yaml:"trust_store_password"`
	KeyStorePath       string `yaml:"key_store_path"`
	KeyStorePassword   string `yaml:"key_store_password"`
	SelfSigned         bool   `yaml:"self_signed"`
}

// ClusterConfiguration is how to reach one cluster, it is replaced wholesale on edit
type ClusterConfiguration struct {
	ID          string       `yaml:"id"`
	Label       string       `yaml:"label"`
	URL         string       `yaml:"url"`
	Flavor      Flavor       `yaml:"flavor"`
	Credentials *Credentials `yaml:"credentials"`
	SSL         *SSLConfig   `yaml:"ssl"`
}

// Host returns the URL without trailing slash
func (c ClusterConfiguration) Host() string {
	return strings.TrimRight(strings.TrimSpace(c.URL), "/")
}

// IsOpenSearch reports whether the cluster is an OpenSearch cluster
func (c ClusterConfiguration) IsOpenSearch() bool {
	return strings.EqualFold(string(c.Flavor), string(OpenSearch))
}

// TLSMaterial returns the key material of the cluster, zero when no SSL config is set
func (c ClusterConfiguration) TLSMaterial() xhttp.TLSMaterial {
	if c.SSL == nil {
		return xhttp.TLSMaterial{}
	}
	return xhttp.TLSMaterial{
		TrustStorePath:     c.SSL.TrustStorePath,
		TrustStorePassword: c.SSL.TrustStorePassword,
		KeyStorePath:       c.SSL.KeyStorePath,
		KeyStorePassword:   c.SSL.KeyStorePassword,
		SelfSigned:         c.SSL.SelfSigned,
	}
}

// Validate checks the label, URL and flavor
func (c ClusterConfiguration) Validate() error {
	if strings.TrimSpace(c.Label) == "" {
		return errors.Wrap(ErrInvalidConfiguration, "label is required")
	}

	parsed, err := url.Parse(c.Host())
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return errors.Wrapf(ErrInvalidConfiguration, "cluster %s: url %q must be an absolute http(s) URL", c.Label, c.URL)
	}

	switch Flavor(strings.ToLower(string(c.Flavor))) {
	case "", Elasticsearch, OpenSearch:
	default:
		return errors.Wrapf(ErrInvalidConfiguration, "cluster %s: unknown flavor %q", c.Label, c.Flavor)
	}
	return nil
}

// normalize fills the defaults of an accepted configuration
func (c ClusterConfiguration) normalize() ClusterConfiguration {
	c.Label = strings.TrimSpace(c.Label)
	c.URL = c.Host()
	c.Flavor = Flavor(strings.ToLower(string(c.Flavor)))
	if c.Flavor == "" {
		c.Flavor = Elasticsearch
	}
	return c
}

// Config is the content of .esquery.config.yaml
type Config struct {
	LogLevel        string                 `yaml:"log_level"`
	AutoRefresh     time.Duration          `yaml:"auto_refresh"`
	DefaultPageSize int64                  `yaml:"default_page_size"`
	Clusters        []ClusterConfiguration `yaml:"clusters"`
}

// Load reads the config file discovered from ESQUERY_CONFIG_LOCATION or the working directory
func Load() (Config, error) {
	cfg, err := internal.ReadConfigAs[Config]()
	if err != nil {
		return Config{}, err
	}
	return cfg.withDefaults(), nil
}

// LoadFile reads the config file at path
func LoadFile(path string) (Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "failed to read config file %s", path)
	}

	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "failed to unmarshal config from file %s", path)
	}
	return cfg.withDefaults(), nil
}

func (c Config) withDefaults() Config {
	if c.DefaultPageSize <= 0 {
		c.DefaultPageSize = DefaultPageSize
	}
	return c
}

// NewStore returns a memory store holding the clusters of the config
func (c Config) NewStore() (*MemoryStore, error) {
	store := NewMemoryStore()
	for _, cluster := range c.Clusters {
		if err := store.Put(cluster); err != nil {
			return nil, err
		}
	}
	return store, nil
}
