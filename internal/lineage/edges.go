package lineage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/lineagemap/internal/apperr"
	"github.com/starford/lineagemap/internal/models"
)

// CreateEdge persists a new edge. No uniqueness check is made; use
// ImportLineage for upsert semantics.
func (s *Service) CreateEdge(ctx context.Context, fromMetaID, toMetaID, description string) (*models.LineageEdge, error) {
	e := models.LineageEdge{FromMetaID: fromMetaID, ToMetaID: toMetaID, Description: description}
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrInvalid, err)
	}
	saved, err := s.edges.SaveEdge(ctx, e)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrPersistence, err)
	}
	s.logger.Debug("lineage: edge created",
		slog.String("id", saved.ID),
		slog.String("from", saved.FromMetaID),
		slog.String("to", saved.ToMetaID))
	return &saved, nil
}

// ListEdges returns every edge in store order.
func (s *Service) ListEdges(ctx context.Context) ([]models.LineageEdge, error) {
	return s.edges.ListEdges(ctx)
}

// GetEdge returns the edge with the given id or apperr.ErrNotFound.
func (s *Service) GetEdge(ctx context.Context, id string) (*models.LineageEdge, error) {
	return s.edges.GetEdge(ctx, id)
}

// DeleteEdge removes the edge with the given id.
func (s *Service) DeleteEdge(ctx context.Context, id string) error {
	return s.edges.DeleteEdge(ctx, id)
}
