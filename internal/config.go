package internal

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var configFileMatcher = regexp.MustCompile(`(?i)^\.esquery\.config\.(yaml|yml)$`)

const (
	EnvConfigLocation     = "ESQUERY_CONFIG_LOCATION"
	EnvDisableConfigCache = "ESQUERY_DISABLE_CONFIG_CACHE"
)

// ErrConfigNotFound is returned when no config file is found from the working directory up to the root
var ErrConfigNotFound = errors.New("config file not found")

// cache holds the content of the last config file read and where it came from
type cache struct {
	content      []byte
	path         string
	loadedViaEnv bool
	err          error
}

var (
	cacheMu     sync.Mutex
	configCache *cache
)

// ReadConfigAs reads the config file and unmarshal it into the given type
func ReadConfigAs[T any]() (T, error) {
	var config T
	content, path, err := readConfig()
	if err != nil {
		return config, err
	}

	err = yaml.Unmarshal(content, &config)
	if err != nil {
		return config, errors.Wrapf(err, "failed to unmarshal config from file %s", path)
	}

	return config, nil
}

// ReadConfigFile read the config file as byte array
// 1. read the file from environment variable ESQUERY_CONFIG_LOCATION, if set
// 2. look for .esquery.config.yaml from the current working directory up to the root
func ReadConfigFile() ([]byte, error) {
	content, _, err := readConfig()
	return content, err
}

// ConfigFilePath returns the location of the config file that would be read
func ConfigFilePath() (string, error) {
	_, path, err := readConfig()
	return path, err
}

func readConfig() ([]byte, string, error) {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	_, cacheDisabled := os.LookupEnv(EnvDisableConfigCache)
	if !cacheDisabled && configCache != nil {
		return configCache.content, configCache.path, configCache.err
	}

	location := strings.TrimSpace(os.Getenv(EnvConfigLocation))
	if location != "" {
		configCache = readConfigFile(location, true)
		return configCache.content, configCache.path, configCache.err
	}

	wd, err := os.Getwd()
	if err != nil {
		configCache = &cache{err: errors.Wrap(err, "failed to resolve working directory")}
		return nil, "", configCache.err
	}

	location, err = locateConfigFile(wd)
	if err != nil {
		configCache = &cache{err: err}
		return nil, "", err
	}

	configCache = readConfigFile(location, false)
	return configCache.content, configCache.path, configCache.err
}

// locateConfigFile finds the config file in the current directory or its parent
func locateConfigFile(workingDir string) (string, error) {
	currentDir := filepath.Clean(workingDir)
	info, err := os.Stat(currentDir)
	if err != nil {
		return "", err
	}

	if !info.IsDir() {
		currentDir = filepath.Dir(currentDir)
	}

	for {
		path, err := containsConfigFile(currentDir)
		if err != nil {
			return "", err
		}

		if path != "" {
			return path, nil
		}

		// go up one level
		parent := filepath.Dir(currentDir)
		if currentDir == parent || parent == "" {
			break
		}
		currentDir = parent
	}

	return "", ErrConfigNotFound
}

// readConfigFile reads the content of the file and returns the cache struct
func readConfigFile(path string, loadedViaEnv bool) *cache {
	content, err := os.ReadFile(path)
	return &cache{
		content:      content,
		err:          errors.Wrapf(err, "failed to read config file %s", path),
		path:         path,
		loadedViaEnv: loadedViaEnv,
	}
}

// containsConfigFile returns file name if the directory contains a config file
func containsConfigFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	for _, entry := range entries {
		if !entry.IsDir() && configFileMatcher.MatchString(entry.Name()) {
			return filepath.Join(dir, entry.Name()), nil
		}
	}

	return "", nil
}
