package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/starford/lineagemap/internal/apperr"
	"github.com/starford/lineagemap/internal/dataset"
	"github.com/starford/lineagemap/internal/models"
	"github.com/starford/lineagemap/internal/store"
)

var (
	_ store.EdgeStore     = (*MemEdgeStore)(nil)
	_ store.MetadataStore = (*MemMetadataStore)(nil)
	_ dataset.Source      = (*MemSource)(nil)
)

// === Edge Store ===

// MemEdgeStore is an in-memory store.EdgeStore. Setting SaveEdgeFn or
// DeleteEdgeFn intercepts the call; a nil override falls through to the
// in-memory behaviour.
type MemEdgeStore struct {
	SaveEdgeFn   func(ctx context.Context, e models.LineageEdge) (models.LineageEdge, error)
	DeleteEdgeFn func(ctx context.Context, id string) error

	mu    sync.Mutex
	edges []models.LineageEdge
	seq   int
	Saves int // number of successful SaveEdge calls
}

// NewMemEdgeStore returns a store holding edges in insertion order.
func NewMemEdgeStore(edges ...models.LineageEdge) *MemEdgeStore {
	m := &MemEdgeStore{}
	for _, e := range edges {
		if e.ID == "" {
			m.seq++
			e.ID = fmt.Sprintf("e%d", m.seq)
		}
		m.edges = append(m.edges, e)
	}
	return m
}

// SaveEdge implements store.EdgeStore.
func (m *MemEdgeStore) SaveEdge(ctx context.Context, e models.LineageEdge) (models.LineageEdge, error) {
	if m.SaveEdgeFn != nil {
		return m.SaveEdgeFn(ctx, e)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	e.UpdatedAt = now
	m.Saves++
	if e.ID != "" {
		for i := range m.edges {
			if m.edges[i].ID == e.ID {
				e.CreatedAt = m.edges[i].CreatedAt
				m.edges[i] = e
				return e, nil
			}
		}
	} else {
		m.seq++
		e.ID = fmt.Sprintf("e%d", m.seq)
	}
	e.CreatedAt = now
	m.edges = append(m.edges, e)
	return e, nil
}

// ListEdges implements store.EdgeStore.
func (m *MemEdgeStore) ListEdges(_ context.Context) ([]models.LineageEdge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.LineageEdge{}, m.edges...), nil
}

// GetEdge implements store.EdgeStore.
func (m *MemEdgeStore) GetEdge(_ context.Context, id string) (*models.LineageEdge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.edges {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, fmt.Errorf("edge %q: %w", id, apperr.ErrNotFound)
}

// EdgesFrom implements store.EdgeStore.
func (m *MemEdgeStore) EdgesFrom(_ context.Context, metaID string) ([]models.LineageEdge, error) {
	return m.filter(func(e models.LineageEdge) bool { return e.FromMetaID == metaID }), nil
}

// EdgesTo implements store.EdgeStore.
func (m *MemEdgeStore) EdgesTo(_ context.Context, metaID string) ([]models.LineageEdge, error) {
	return m.filter(func(e models.LineageEdge) bool { return e.ToMetaID == metaID }), nil
}

// DeleteEdge implements store.EdgeStore.
func (m *MemEdgeStore) DeleteEdge(ctx context.Context, id string) error {
	if m.DeleteEdgeFn != nil {
		return m.DeleteEdgeFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.edges {
		if e.ID == id {
			m.edges = append(m.edges[:i], m.edges[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("edge %q: %w", id, apperr.ErrNotFound)
}

func (m *MemEdgeStore) filter(keep func(models.LineageEdge) bool) []models.LineageEdge {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.LineageEdge{}
	for _, e := range m.edges {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// === Metadata Store ===

// MemMetadataStore is an in-memory store.MetadataStore.
type MemMetadataStore struct {
	GetMetadataFn func(ctx context.Context, id string) (*models.MetadataRef, error)

	mu      sync.Mutex
	entries []models.MetadataRef
	Lookups int // number of GetMetadata calls
}

// NewMemMetadataStore returns a store holding entries in registration order.
func NewMemMetadataStore(entries ...models.MetadataRef) *MemMetadataStore {
	return &MemMetadataStore{entries: append([]models.MetadataRef{}, entries...)}
}

// Meta is shorthand for a MetadataRef literal.
func Meta(id, name string) models.MetadataRef {
	return models.MetadataRef{ID: id, Name: name}
}

// GetMetadata implements store.MetadataStore.
func (m *MemMetadataStore) GetMetadata(ctx context.Context, id string) (*models.MetadataRef, error) {
	m.mu.Lock()
	m.Lookups++
	m.mu.Unlock()
	if m.GetMetadataFn != nil {
		return m.GetMetadataFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, fmt.Errorf("metadata %q: %w", id, apperr.ErrNotFound)
}

// FindMetadataByName implements store.MetadataStore.
func (m *MemMetadataStore) FindMetadataByName(_ context.Context, name string) ([]models.MetadataRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.MetadataRef{}
	for _, e := range m.entries {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out, nil
}

// UpsertMetadata implements store.MetadataStore.
func (m *MemMetadataStore) UpsertMetadata(_ context.Context, ref models.MetadataRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.entries {
		if m.entries[i].ID == ref.ID {
			m.entries[i] = ref
			return nil
		}
	}
	m.entries = append(m.entries, ref)
	return nil
}

// ListMetadata implements store.MetadataStore.
func (m *MemMetadataStore) ListMetadata(_ context.Context, limit, offset int) ([]models.MetadataRef, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := len(m.entries)
	if offset > total {
		offset = total
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return append([]models.MetadataRef{}, m.entries[offset:end]...), total, nil
}

// SearchMetadata implements store.MetadataStore with a case-insensitive substring match.
func (m *MemMetadataStore) SearchMetadata(_ context.Context, query string, limit int) ([]models.MetadataRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := strings.ToLower(query)
	out := []models.MetadataRef{}
	for _, e := range m.entries {
		if strings.Contains(strings.ToLower(e.Name), q) {
			out = append(out, e)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// === Dataset Source ===

// MemSource is an in-memory dataset.Source keyed by dataset name.
// Every dataset registered under a name is returned in registration order.
type MemSource struct {
	LoadRowsFn func(ctx context.Context, ref models.DatasetRef) ([]models.Row, error)

	refs []models.DatasetRef
	rows map[string][]models.Row
}

// NewMemSource returns an empty source.
func NewMemSource() *MemSource {
	return &MemSource{rows: make(map[string][]models.Row)}
}

// Add registers a dataset called name with the given rows and returns its ref.
func (s *MemSource) Add(name string, rows ...models.Row) models.DatasetRef {
	ref := models.DatasetRef{
		ID:     fmt.Sprintf("%s-%d.csv", name, len(s.refs)),
		Name:   name,
		Format: "csv",
	}
	s.refs = append(s.refs, ref)
	s.rows[ref.ID] = rows
	return ref
}

// FindDatasetsByName implements dataset.Source.
func (s *MemSource) FindDatasetsByName(_ context.Context, name string) ([]models.DatasetRef, error) {
	out := []models.DatasetRef{}
	for _, ref := range s.refs {
		if ref.Name == name {
			out = append(out, ref)
		}
	}
	return out, nil
}

// LoadRows implements dataset.Source.
func (s *MemSource) LoadRows(ctx context.Context, ref models.DatasetRef) ([]models.Row, error) {
	if s.LoadRowsFn != nil {
		return s.LoadRowsFn(ctx, ref)
	}
	rows, ok := s.rows[ref.ID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperr.ErrDatasetLoad, ref.ID)
	}
	return rows, nil
}
