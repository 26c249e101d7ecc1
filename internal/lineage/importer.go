package lineage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/lineagemap/internal/apperr"
	"github.com/starford/lineagemap/internal/models"
)

// Dataset columns read by the importer.
const (
	ColFromMetaID      = "from_meta_id"
	ColFromMetaName    = "from_meta_name"
	ColFromMetaColName = "from_meta_col_name"
	ColToMetaID        = "to_meta_id"
	ColToMetaName      = "to_meta_name"
	ColToMetaColName   = "to_meta_col_name"
	ColDescription     = "description"
)

// Side names one endpoint of a row.
type Side string

const (
	SideFrom Side = "from"
	SideTo   Side = "to"
)

func (s Side) columns() (id, name, colName string) {
	if s == SideFrom {
		return ColFromMetaID, ColFromMetaName, ColFromMetaColName
	}
	return ColToMetaID, ColToMetaName, ColToMetaColName
}

// RowStatus is the outcome of importing one row.
type RowStatus string

const (
	RowCreated  RowStatus = "created"
	RowReplaced RowStatus = "replaced"
	RowSkipped  RowStatus = "skipped"
	RowFailed   RowStatus = "failed"
)

// RowResult reports what happened to one dataset row.
type RowResult struct {
	// Row is the zero-based index of the row in the dataset.
	Row        int                 `json:"row"`
	Status     RowStatus           `json:"status"`
	Edge       *models.LineageEdge `json:"edge,omitempty"`
	Unresolved []Side              `json:"unresolved,omitempty"`
	Error      string              `json:"error,omitempty"`
}

// ImportResult is the outcome of ImportLineage.
type ImportResult struct {
	Dataset  models.DatasetRef    `json:"dataset"`
	Edges    []models.LineageEdge `json:"edges"`
	Rows     []RowResult          `json:"rows"`
	Created  int                  `json:"created"`
	Replaced int                  `json:"replaced"`
	Skipped  int                  `json:"skipped"`
	Failed   int                  `json:"failed"`
}

func (r *ImportResult) add(rr RowResult) {
	r.Rows = append(r.Rows, rr)
	switch rr.Status {
	case RowCreated:
		r.Created++
	case RowReplaced:
		r.Replaced++
	case RowSkipped:
		r.Skipped++
	case RowFailed:
		r.Failed++
	}
	if rr.Edge != nil {
		r.Edges = append(r.Edges, *rr.Edge)
	}
}

// ImportLineage reads the dataset called datasetName (the configured default
// when empty) and upserts one edge per row. An edge equal by value to a
// stored one overwrites it in place instead of creating a duplicate.
//
// Rows are independent: a row that cannot be imported is reported in the
// result and the import carries on. The import as a whole fails when the
// dataset is missing or unreadable, when the unresolved policy is
// UnresolvedFail and an endpoint cannot be resolved, or when ctx ends; in the
// last two cases the rows already written stay written and the partial
// result is returned with the error.
//
// Imports on one Service run one at a time.
func (s *Service) ImportLineage(ctx context.Context, datasetName string) (*ImportResult, error) {
	if s.datasets == nil {
		return nil, fmt.Errorf("lineage: import: no dataset source configured")
	}
	if datasetName == "" {
		datasetName = s.opts.DefaultDataset
	}
	s.importMu.Lock()
	defer s.importMu.Unlock()

	refs, err := s.datasets.FindDatasetsByName(ctx, datasetName)
	if err != nil {
		return nil, fmt.Errorf("%w: find %q: %w", apperr.ErrDatasetLoad, datasetName, err)
	}
	switch {
	case len(refs) == 0:
		return nil, fmt.Errorf("dataset %q: %w", datasetName, apperr.ErrNotFound)
	case len(refs) > 1 && s.opts.Strict:
		return nil, fmt.Errorf("dataset %q has %d matches: %w", datasetName, len(refs), apperr.ErrAmbiguous)
	case len(refs) > 1:
		s.logger.Warn("lineage: duplicate dataset name, using first",
			slog.String("dataset", datasetName),
			slog.Int("matches", len(refs)),
			slog.String("path", refs[0].ID))
	}
	ref := refs[0]

	rows, err := s.datasets.LoadRows(ctx, ref)
	if err != nil {
		if errors.Is(err, apperr.ErrDatasetLoad) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", apperr.ErrDatasetLoad, ref.ID, err)
	}

	stored, err := s.edges.ListEdges(ctx)
	if err != nil {
		return nil, fmt.Errorf("lineage: list edges: %w", err)
	}
	index := make(map[models.EdgeKey]models.LineageEdge, len(stored))
	for _, e := range stored {
		if _, dup := index[e.Key()]; !dup {
			index[e.Key()] = e
		}
	}

	res := &ImportResult{Dataset: ref, Edges: []models.LineageEdge{}, Rows: []RowResult{}}
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		rr, err := s.importRow(ctx, i, row, index)
		if err != nil {
			return res, err
		}
		res.add(rr)
	}

	s.logger.Info("lineage: import finished",
		slog.String("dataset", ref.Name),
		slog.String("path", ref.ID),
		slog.Int("rows", len(rows)),
		slog.Int("created", res.Created),
		slog.Int("replaced", res.Replaced),
		slog.Int("skipped", res.Skipped),
		slog.Int("failed", res.Failed))
	return res, nil
}

// importRow resolves, upserts and reports a single row. A non-nil error
// aborts the whole import.
func (s *Service) importRow(ctx context.Context, i int, row models.Row, index map[models.EdgeKey]models.LineageEdge) (RowResult, error) {
	rr := RowResult{Row: i}
	ids := map[Side]string{}

	for _, side := range []Side{SideFrom, SideTo} {
		id, err := s.resolveEndpoint(ctx, row, side)
		switch {
		case err == nil:
			ids[side] = id
		case errors.Is(err, apperr.ErrUnresolved):
			s.logger.Warn("lineage: endpoint unresolved",
				slog.Int("row", i),
				slog.String("side", string(side)),
				slog.String("policy", string(s.opts.UnresolvedPolicy)),
				slog.String("error", err.Error()))
			switch s.opts.UnresolvedPolicy {
			case UnresolvedFail:
				return rr, fmt.Errorf("lineage: import row %d: %w", i, err)
			case UnresolvedSkip:
				rr.Status = RowSkipped
				rr.Unresolved = append(rr.Unresolved, side)
				rr.Error = err.Error()
				return rr, nil
			}
			rr.Unresolved = append(rr.Unresolved, side)
		default:
			s.logger.Warn("lineage: row failed",
				slog.Int("row", i),
				slog.String("side", string(side)),
				slog.String("error", err.Error()))
			rr.Status = RowFailed
			rr.Error = err.Error()
			return rr, nil
		}
	}

	desc, _ := row.Get(ColDescription)
	candidate := models.LineageEdge{FromMetaID: ids[SideFrom], ToMetaID: ids[SideTo], Description: desc}

	rr.Status = RowCreated
	if existing, ok := index[candidate.Key()]; ok {
		candidate.ID = existing.ID
		rr.Status = RowReplaced
	}

	saved, err := s.edges.SaveEdge(ctx, candidate)
	if err != nil {
		s.logger.Warn("lineage: row not saved", slog.Int("row", i), slog.String("error", err.Error()))
		rr.Status = RowFailed
		rr.Error = fmt.Errorf("%w: %w", apperr.ErrPersistence, err).Error()
		return rr, nil
	}
	index[saved.Key()] = saved
	rr.Edge = &saved
	return rr, nil
}

// resolveEndpoint returns the metadata id for one side of row.
//
// A non-empty id column is used as is. Otherwise the column-name column, or
// failing that the entity-name column, is looked up by name. An endpoint
// with no usable column, or whose name matches nothing, is apperr.ErrUnresolved.
func (s *Service) resolveEndpoint(ctx context.Context, row models.Row, side Side) (string, error) {
	idCol, nameCol, colNameCol := side.columns()
	if id := value(row, idCol); id != "" {
		return id, nil
	}

	name := value(row, colNameCol)
	if name == "" {
		name = value(row, nameCol)
	}
	if name == "" {
		return "", fmt.Errorf("%w: %s endpoint has no %s, %s or %s", apperr.ErrUnresolved, side, idCol, colNameCol, nameCol)
	}

	id, err := s.meta.IDByName(ctx, name)
	if errors.Is(err, apperr.ErrNotFound) {
		return "", fmt.Errorf("%w: %w", apperr.ErrUnresolved, err)
	}
	return id, err
}

// value returns the cell for col, treating an empty string as absent.
func value(row models.Row, col string) string {
	v, _ := row.Get(col)
	return v
}
