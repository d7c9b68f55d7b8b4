package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/albertocavalcante/go-dnxdeps/semver"
)

// Chain looks packages up in several sources in priority order.
//
// The first source that has any version of an id serves every later request for
// that id, so versions of one package never mix sources. ErrPackageNotFound moves on
// to the next source; any other error stops the lookup.
type Chain struct {
	sources []Source

	mu    sync.RWMutex
	owner map[string]int // lower(id) -> source index
}

// NewChain returns a chain over sources.
func NewChain(sources ...Source) *Chain {
	return &Chain{sources: sources, owner: make(map[string]int)}
}

// Location lists the locations of all sources.
func (c *Chain) Location() string {
	locs := make([]string, len(c.sources))
	for i, s := range c.sources {
		locs[i] = s.Location()
	}
	return strings.Join(locs, ", ")
}

// SourceFor returns the source that served id, if any lookup found it yet.
func (c *Chain) SourceFor(id string) (Source, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx, ok := c.owner[strings.ToLower(id)]
	if !ok {
		return nil, false
	}
	return c.sources[idx], true
}

// Versions implements Source.
func (c *Chain) Versions(ctx context.Context, id string) ([]semver.Version, error) {
	if src, ok := c.SourceFor(id); ok {
		return src.Versions(ctx, id)
	}

	for i, src := range c.sources {
		versions, err := src.Versions(ctx, id)
		if err == nil {
			c.remember(id, i)
			return versions, nil
		}
		if !errors.Is(err, ErrPackageNotFound) {
			return nil, fmt.Errorf("%s: %w", src.Location(), err)
		}
	}
	return nil, fmt.Errorf("%s in any source: %w", id, ErrPackageNotFound)
}

// Metadata implements Source. It asks the source that listed id's versions, or
// walks the chain when Versions has not been called for id.
func (c *Chain) Metadata(ctx context.Context, id string, v semver.Version) (*Package, error) {
	if src, ok := c.SourceFor(id); ok {
		return src.Metadata(ctx, id, v)
	}

	for i, src := range c.sources {
		p, err := src.Metadata(ctx, id, v)
		if err == nil {
			c.remember(id, i)
			return p, nil
		}
		if !errors.Is(err, ErrPackageNotFound) {
			return nil, fmt.Errorf("%s: %w", src.Location(), err)
		}
	}
	return nil, fmt.Errorf("%s@%s in any source: %w", id, v, ErrPackageNotFound)
}

func (c *Chain) remember(id string, idx int) {
	key := strings.ToLower(id)
	c.mu.Lock()
	if _, exists := c.owner[key]; !exists {
		c.owner[key] = idx
	}
	c.mu.Unlock()
}

var _ Source = (*Chain)(nil)
