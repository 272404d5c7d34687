package tenant

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Store exposes read-only tenant lookup.
type Store interface {
	List() []Tenant
	FindByID(id string) (Tenant, bool)
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	items []Tenant
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied tenants.
func NewMemoryStore(items []Tenant) *MemoryStore {
	return &MemoryStore{items: append([]Tenant(nil), items...)}
}

// List returns the configured tenants.
func (s *MemoryStore) List() []Tenant {
	return append([]Tenant(nil), s.items...)
}

// FindByID looks up a tenant by identifier.
func (s *MemoryStore) FindByID(id string) (Tenant, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Tenant{}, false
}

// Lookup returns the requested tenant, then the default tenant, then the built-in default.
func Lookup(s Store, id string) Tenant {
	if s != nil {
		if t, ok := s.FindByID(id); ok {
			return t
		}
		if t, ok := s.FindByID(DefaultID); ok {
			return t
		}
	}
	return Default()
}

// LoadDir reads every *.yaml / *.yml file in dir as one tenant.
// A missing directory yields an empty list.
func LoadDir(dir string) ([]Tenant, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read tenants dir: %w", err)
	}

	var tenants []Tenant
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		t, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		if t.ID == "" {
			t.ID = strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		}
		tenants = append(tenants, t)
	}

	sort.Slice(tenants, func(i, j int) bool { return tenants[i].ID < tenants[j].ID })
	return tenants, nil
}

func loadFile(path string) (Tenant, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Tenant{}, fmt.Errorf("read tenant %s: %w", path, err)
	}

	var t Tenant
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Tenant{}, fmt.Errorf("parse tenant %s: %w", path, err)
	}
	if t.Tone == "" {
		t.Tone = Default().Tone
	}
	return t, nil
}
