package lineage

import (
	"context"
	"fmt"

	"github.com/starford/lineagemap/internal/models"
	"github.com/starford/lineagemap/internal/resolver"
)

type direction int

const (
	upward direction = iota
	downward
)

func (d direction) String() string {
	if d == upward {
		return "upstream"
	}
	return "downstream"
}

// frame is one pending level of the depth-first walk: node's edges in the
// current direction and the index of the next one to visit.
type frame struct {
	node  *models.LineageMapNode
	edges []models.LineageEdge
	next  int
}

// GetLineageMap returns the lineage tree rooted at metaID: upstream sources
// under FromMapNodes and downstream consumers under ToMapNodes.
//
// Each id is expanded once. A second encounter yields a leaf with Circuit set.
// Under VisitShared the upstream pass runs first, so an id reachable in both
// directions is only expanded upstream.
func (s *Service) GetLineageMap(ctx context.Context, metaID string) (*models.LineageMapNode, error) {
	names := s.meta.NewNameCache()
	rootName, err := names.Name(ctx, metaID)
	if err != nil {
		return nil, err
	}
	root := models.NewLineageMapNode(metaID, nil, rootName)

	visited := map[string]struct{}{metaID: {}}
	if err := s.expand(ctx, root, upward, visited, names); err != nil {
		return nil, err
	}
	if s.opts.VisitPolicy == VisitPerDirection {
		visited = map[string]struct{}{metaID: {}}
	}
	if err := s.expand(ctx, root, downward, visited, names); err != nil {
		return nil, err
	}
	return root, nil
}

// expand walks from root in one direction, visiting children in edge fetch
// order and descending into each before moving to its next sibling.
func (s *Service) expand(ctx context.Context, root *models.LineageMapNode, dir direction, visited map[string]struct{}, names *resolver.NameCache) error {
	edges, err := s.neighbours(ctx, root.MetaID, dir)
	if err != nil {
		return err
	}
	stack := []*frame{{node: root, edges: edges}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		top := stack[len(stack)-1]
		if top.next == len(top.edges) {
			stack = stack[:len(stack)-1]
			continue
		}
		e := top.edges[top.next]
		top.next++

		otherID := e.ToMetaID
		if dir == upward {
			otherID = e.FromMetaID
		}
		// Imports under the null policy can leave an endpoint empty.
		if otherID == "" {
			continue
		}

		name, err := names.Name(ctx, otherID)
		if err != nil {
			return fmt.Errorf("lineage: %s of %q: %w", dir, top.node.MetaID, err)
		}
		desc := e.Description
		child := models.NewLineageMapNode(otherID, &desc, name)
		if dir == upward {
			top.node.FromMapNodes = append(top.node.FromMapNodes, child)
		} else {
			top.node.ToMapNodes = append(top.node.ToMapNodes, child)
		}

		if _, seen := visited[otherID]; seen {
			child.Circuit = true
			continue
		}
		visited[otherID] = struct{}{}

		childEdges, err := s.neighbours(ctx, otherID, dir)
		if err != nil {
			return err
		}
		stack = append(stack, &frame{node: child, edges: childEdges})
	}
	return nil
}

func (s *Service) neighbours(ctx context.Context, metaID string, dir direction) ([]models.LineageEdge, error) {
	var (
		edges []models.LineageEdge
		err   error
	)
	if dir == upward {
		edges, err = s.edges.EdgesTo(ctx, metaID)
	} else {
		edges, err = s.edges.EdgesFrom(ctx, metaID)
	}
	if err != nil {
		return nil, fmt.Errorf("lineage: %s edges of %q: %w", dir, metaID, err)
	}
	return edges, nil
}
