package mrrg

import (
	"fmt"
	"sync"
)

// Provider hands out the resource graph of a hardware model for an II.
type Provider interface {
	ResourceGraph(ii int) (*Graph, error)
}

// BuildFunc builds the resource graph for one II.
type BuildFunc func(ii int) (*Graph, error)

// Cache memoizes resource graphs per II. A graph is built on first request and
// verified once.
type Cache struct {
	mu     sync.Mutex
	build  BuildFunc
	graphs map[int]*Graph
}

// NewCache creates a cache that builds graphs with the given function.
func NewCache(build BuildFunc) *Cache {
	return &Cache{
		build:  build,
		graphs: make(map[int]*Graph),
	}
}

// ResourceGraph returns the memoized graph for ii, building it if needed.
func (c *Cache) ResourceGraph(ii int) (*Graph, error) {
	if ii < 1 {
		return nil, fmt.Errorf("%w: II %d is not positive", ErrInvalid, ii)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if g, ok := c.graphs[ii]; ok {
		return g, nil
	}

	g, err := c.build(ii)
	if err != nil {
		return nil, fmt.Errorf("build resource graph for II=%d: %w", ii, err)
	}

	if err := g.Verify(); err != nil {
		return nil, err
	}

	c.graphs[ii] = g

	return g, nil
}

// Built returns the IIs that have been built so far.
func (c *Cache) Built() []int {
	c.mu.Lock()
	defer c.mu.Unlock()

	iis := make([]int, 0, len(c.graphs))
	for ii := range c.graphs {
		iis = append(iis, ii)
	}

	return iis
}
