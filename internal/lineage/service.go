// Package lineage builds lineage maps over the edge store and imports edges
// from tabular datasets.
package lineage

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/starford/lineagemap/internal/dataset"
	"github.com/starford/lineagemap/internal/resolver"
	"github.com/starford/lineagemap/internal/store"
)

// DefaultDataset is the dataset ImportLineage reads when no name is given.
const DefaultDataset = "DEFAULT_LINEAGE_MAP"

// VisitPolicy controls how the upstream and downstream passes of a lineage
// map share their visited set.
type VisitPolicy string

const (
	// VisitShared expands each id at most once across both directions.
	VisitShared VisitPolicy = "shared"
	// VisitPerDirection gives each direction its own visited set.
	VisitPerDirection VisitPolicy = "per_direction"
)

// UnresolvedPolicy controls what an import does with a row whose endpoint
// name matches no metadata.
type UnresolvedPolicy string

const (
	// UnresolvedNull stores the edge with an empty endpoint.
	UnresolvedNull UnresolvedPolicy = "null"
	// UnresolvedSkip drops the row.
	UnresolvedSkip UnresolvedPolicy = "skip"
	// UnresolvedFail aborts the import.
	UnresolvedFail UnresolvedPolicy = "fail"
)

// VisitPolicies and UnresolvedPolicies list the accepted policy values.
var (
	VisitPolicies      = []any{string(VisitShared), string(VisitPerDirection)}
	UnresolvedPolicies = []any{string(UnresolvedNull), string(UnresolvedSkip), string(UnresolvedFail)}
)

// Options configures a Service. Zero values select the defaults.
type Options struct {
	VisitPolicy      VisitPolicy
	UnresolvedPolicy UnresolvedPolicy
	// Strict turns duplicate dataset or metadata names into apperr.ErrAmbiguous.
	Strict         bool
	DefaultDataset string
	Logger         *slog.Logger
}

// Service coordinates the edge store, the metadata resolver and the dataset source.
type Service struct {
	edges    store.EdgeStore
	meta     *resolver.Resolver
	datasets dataset.Source
	opts     Options
	logger   *slog.Logger

	// importMu serializes imports: each one scans the stored edges and then
	// writes, and two interleaved imports would both miss the other's inserts.
	importMu sync.Mutex
}

// NewService creates a lineage service. datasets may be nil when imports are not used.
func NewService(edges store.EdgeStore, ms store.MetadataStore, datasets dataset.Source, opts Options) (*Service, error) {
	switch opts.VisitPolicy {
	case "":
		opts.VisitPolicy = VisitShared
	case VisitShared, VisitPerDirection:
	default:
		return nil, fmt.Errorf("lineage: unknown visit policy %q", opts.VisitPolicy)
	}
	switch opts.UnresolvedPolicy {
	case "":
		opts.UnresolvedPolicy = UnresolvedNull
	case UnresolvedNull, UnresolvedSkip, UnresolvedFail:
	default:
		return nil, fmt.Errorf("lineage: unknown unresolved policy %q", opts.UnresolvedPolicy)
	}
	if opts.DefaultDataset == "" {
		opts.DefaultDataset = DefaultDataset
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		edges:    edges,
		meta:     resolver.New(ms, opts.Strict),
		datasets: datasets,
		opts:     opts,
		logger:   logger,
	}, nil
}

// DefaultDatasetName returns the dataset imported when none is named.
func (s *Service) DefaultDatasetName() string {
	return s.opts.DefaultDataset
}
