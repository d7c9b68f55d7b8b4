package feed

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/albertocavalcante/go-dnxdeps/semver"
)

// Memory is a Source backed by packages registered in process.
type Memory struct {
	name string

	mu       sync.RWMutex
	packages map[string][]*Package // lower(id) -> versions, ascending
}

// NewMemory returns a source holding pkgs.
func NewMemory(pkgs ...*Package) *Memory {
	m := &Memory{name: "memory", packages: make(map[string][]*Package)}
	for _, p := range pkgs {
		m.Add(p)
	}
	return m
}

// Add registers p, replacing any package with the same id and version.
func (m *Memory) Add(p *Package) {
	key := strings.ToLower(p.ID)

	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.packages[key]
	for i, existing := range list {
		if existing.Version.Equal(p.Version) {
			list[i] = p
			return
		}
	}
	list = append(list, p)
	sort.Slice(list, func(i, j int) bool {
		return semver.Compare(list[i].Version, list[j].Version) < 0
	})
	m.packages[key] = list
}

// Location returns "memory".
func (m *Memory) Location() string {
	return m.name
}

// Versions implements Source.
func (m *Memory) Versions(ctx context.Context, id string) ([]semver.Version, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := m.packages[strings.ToLower(id)]
	if len(list) == 0 {
		return nil, fmt.Errorf("%s: %w", id, ErrPackageNotFound)
	}
	out := make([]semver.Version, len(list))
	for i, p := range list {
		out[i] = p.Version
	}
	return out, nil
}

// Metadata implements Source.
func (m *Memory) Metadata(ctx context.Context, id string, v semver.Version) (*Package, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.packages[strings.ToLower(id)] {
		if p.Version.Equal(v) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%s@%s: %w", id, v, ErrPackageNotFound)
}

var _ Source = (*Memory)(nil)
