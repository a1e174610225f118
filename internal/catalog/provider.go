// Package catalog provides the read-only list of parking locations.
package catalog

import (
	"context"
	"errors"
	"sync"

	"github.com/iliyamo/spot-saver/internal/model"
)

// Provider loads the catalog once and serves it for the process lifetime.
// A failed load is not cached; the next call retries.
type Provider struct {
	src Source

	mu     sync.Mutex
	loaded bool
	locs   []model.Location
	byID   map[string]int
}

// NewProvider returns a Provider reading from src.
func NewProvider(src Source) *Provider {
	return &Provider{src: src}
}

// ListLocations returns every location in catalog order.
func (p *Provider) ListLocations(ctx context.Context) ([]model.Location, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loaded {
		if err := p.load(ctx); err != nil {
			return nil, err
		}
	}
	out := make([]model.Location, len(p.locs))
	copy(out, p.locs)
	return out, nil
}

// Get returns the location with the given id.
func (p *Provider) Get(ctx context.Context, id string) (model.Location, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loaded {
		if err := p.load(ctx); err != nil {
			return model.Location{}, err
		}
	}
	i, ok := p.byID[id]
	if !ok {
		return model.Location{}, ErrLocationNotFound
	}
	return p.locs[i], nil
}

// Reload discards the cached catalog and fetches it again.  On failure the
// previous catalog is kept.
func (p *Provider) Reload(ctx context.Context) ([]model.Location, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.load(ctx); err != nil {
		return nil, err
	}
	out := make([]model.Location, len(p.locs))
	copy(out, p.locs)
	return out, nil
}

// load must be called with p.mu held.
func (p *Provider) load(ctx context.Context) error {
	raw, err := p.src.Fetch(ctx)
	if errors.Is(ctx.Err(), context.Canceled) {
		return ErrAbandoned
	}
	if err != nil {
		return &CatalogError{Err: err}
	}
	locs, err := deriveAll(raw)
	if err != nil {
		return &CatalogError{Err: err}
	}
	byID := make(map[string]int, len(locs))
	for i, l := range locs {
		byID[l.ID] = i
	}
	p.locs, p.byID, p.loaded = locs, byID, true
	return nil
}
