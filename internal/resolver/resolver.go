// Package resolver maps metadata ids and names to canonical metadata entities.
package resolver

import (
	"context"
	"fmt"

	"github.com/starford/lineagemap/internal/apperr"
	"github.com/starford/lineagemap/internal/models"
	"github.com/starford/lineagemap/internal/store"
)

// Resolver looks metadata up by id or by name.
//
// Names are not unique. By default the first match in store order wins; with
// strict set, more than one match is reported as apperr.ErrAmbiguous.
type Resolver struct {
	store  store.MetadataStore
	strict bool
}

// New creates a Resolver over the given metadata store.
func New(ms store.MetadataStore, strict bool) *Resolver {
	return &Resolver{store: ms, strict: strict}
}

// ByID returns the entity with the given id or apperr.ErrNotFound.
func (r *Resolver) ByID(ctx context.Context, id string) (*models.MetadataRef, error) {
	return r.store.GetMetadata(ctx, id)
}

// Name returns the display name of the entity with the given id.
func (r *Resolver) Name(ctx context.Context, id string) (string, error) {
	m, err := r.ByID(ctx, id)
	if err != nil {
		return "", err
	}
	return m.Name, nil
}

// ByName returns the entity for name. Zero matches is apperr.ErrNotFound.
func (r *Resolver) ByName(ctx context.Context, name string) (*models.MetadataRef, error) {
	matches, err := r.store.FindMetadataByName(ctx, name)
	if err != nil {
		return nil, err
	}
	switch {
	case len(matches) == 0:
		return nil, fmt.Errorf("metadata named %q: %w", name, apperr.ErrNotFound)
	case len(matches) > 1 && r.strict:
		return nil, fmt.Errorf("metadata named %q has %d matches: %w", name, len(matches), apperr.ErrAmbiguous)
	}
	return &matches[0], nil
}

// IDByName returns the id of the entity for name, following ByName's rules.
func (r *Resolver) IDByName(ctx context.Context, name string) (string, error) {
	m, err := r.ByName(ctx, name)
	if err != nil {
		return "", err
	}
	return m.ID, nil
}

// NameCache memoizes Name lookups for the duration of one request.
type NameCache struct {
	r     *Resolver
	names map[string]string
}

// NewNameCache returns an empty cache backed by r.
func (r *Resolver) NewNameCache() *NameCache {
	return &NameCache{r: r, names: make(map[string]string)}
}

// Name returns the cached name for id, resolving it on first use.
func (c *NameCache) Name(ctx context.Context, id string) (string, error) {
	if n, ok := c.names[id]; ok {
		return n, nil
	}
	n, err := c.r.Name(ctx, id)
	if err != nil {
		return "", err
	}
	c.names[id] = n
	return n, nil
}
