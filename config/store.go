package config

import (
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Store is where cluster configurations are read from, keyed by label
type Store interface {
	Get(label string) (ClusterConfiguration, bool)
	Put(config ClusterConfiguration) error
	Remove(label string) bool
	List() []ClusterConfiguration
}

// MemoryStore is a Store kept in memory, safe for concurrent use
type MemoryStore struct {
	mu      sync.RWMutex
	labels  []string
	configs map[string]ClusterConfiguration
}

// NewMemoryStore returns an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{configs: make(map[string]ClusterConfiguration)}
}

// Get returns the configuration of label
func (s *MemoryStore) Get(label string) (ClusterConfiguration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	config, ok := s.configs[label]
	return config, ok
}

// Put validates and stores config, replacing any configuration with the same label
func (s *MemoryStore) Put(config ClusterConfiguration) error {
	if err := config.Validate(); err != nil {
		return err
	}
	config = config.normalize()

	s.mu.Lock()
	defer s.mu.Unlock()
	if config.ID == "" {
		config.ID = uuid.NewString()
		if existing, ok := s.configs[config.Label]; ok {
			config.ID = existing.ID
		}
	}
	for label, existing := range s.configs {
		if existing.ID == config.ID && label != config.Label {
			return errors.Wrapf(ErrInvalidConfiguration, "id %s is already used by cluster %s", config.ID, label)
		}
	}
	if _, ok := s.configs[config.Label]; !ok {
		s.labels = append(s.labels, config.Label)
	}
	s.configs[config.Label] = config
	return nil
}

// Remove deletes the configuration of label and reports whether it existed
func (s *MemoryStore) Remove(label string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.configs[label]; !ok {
		return false
	}
	delete(s.configs, label)
	s.labels = slices.DeleteFunc(s.labels, func(l string) bool { return l == label })
	return true
}

// List returns the configurations in insertion order
func (s *MemoryStore) List() []ClusterConfiguration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	configs := make([]ClusterConfiguration, 0, len(s.labels))
	for _, label := range s.labels {
		configs = append(configs, s.configs[label])
	}
	return configs
}
