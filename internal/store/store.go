// Package store persists the last applied shaping settings per interface.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"tcshaper/internal/traffic"
)

// Store is a JSON file mapping interface names to their last applied config.
// A missing file is an empty store.
type Store struct {
	mu   sync.Mutex
	path string
}

// New returns a Store backed by path. The file is created on first Save.
func New(path string) *Store {
	return &Store{path: path}
}

// Get returns the saved config for iface and whether one exists.
func (s *Store) Get(iface string) (traffic.InterfaceConfig, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return traffic.InterfaceConfig{}, false, err
	}
	cfg, ok := data[iface]
	return cfg, ok, nil
}

// All returns every saved config sorted by interface name.
func (s *Store) All() ([]traffic.InterfaceConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]traffic.InterfaceConfig, 0, len(data))
	for _, cfg := range data {
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Interface < out[j].Interface })
	return out, nil
}

// Save records cfg under iface, replacing any previous entry.
func (s *Store) Save(iface string, cfg traffic.InterfaceConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return err
	}
	cfg.Interface = iface
	data[iface] = cfg
	return s.write(data)
}

// Delete removes the entry for iface. Deleting a missing entry is not an error.
func (s *Store) Delete(iface string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := data[iface]; !ok {
		return nil
	}
	delete(data, iface)
	return s.write(data)
}

func (s *Store) load() (map[string]traffic.InterfaceConfig, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]traffic.InterfaceConfig{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	data := map[string]traffic.InterfaceConfig{}
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return data, nil
}

// write replaces the file atomically through a temp file in the same directory.
func (s *Store) write(data map[string]traffic.InterfaceConfig) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	raw = append(raw, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".interface_configs-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}
