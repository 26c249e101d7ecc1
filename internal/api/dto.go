package api

import (
	"github.com/starford/lineagemap/internal/lineage"
	"github.com/starford/lineagemap/internal/models"
)

// CreateEdgeRequest is the request body for creating an edge.
type CreateEdgeRequest struct {
	FromMetaID  string `json:"from_meta_id" example:"0192f4c1-hive-orders" validate:"required"`
	ToMetaID    string `json:"to_meta_id" example:"0192f4c1-druid-orders" validate:"required"`
	Description string `json:"description" example:"Batch ingestion #1"`
}

// PutMetadataRequest is the request body for registering a metadata entity.
type PutMetadataRequest struct {
	Name string `json:"name" example:"Hive table #1" validate:"required"`
}

// EdgeListResponse wraps the edge listing.
type EdgeListResponse struct {
	Edges []models.LineageEdge `json:"edges" validate:"required"`
	Total int                  `json:"total" example:"3" validate:"required"`
}

// MetadataListResponse wraps paginated metadata listings.
type MetadataListResponse struct {
	Metadata []models.MetadataRef `json:"metadata" validate:"required"`
	Total    int                  `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps metadata search results.
type SearchResponse struct {
	Results []models.MetadataRef `json:"results" validate:"required"`
}

// DatasetListResponse wraps the dataset file listing.
type DatasetListResponse struct {
	Datasets []models.DatasetRef `json:"datasets" validate:"required"`
}

// DatasetUploadResponse is returned after a dataset file is written.
type DatasetUploadResponse struct {
	Path     string `json:"path" example:"team/DEFAULT_LINEAGE_MAP.csv" validate:"required"`
	Name     string `json:"name" example:"DEFAULT_LINEAGE_MAP" validate:"required"`
	Format   string `json:"format" example:"csv" validate:"required"`
	Size     int    `json:"size" example:"12345" validate:"required"`
	Checksum string `json:"checksum" example:"9f86d081884c7d65..." validate:"required"`
}

// ImportResponse is the outcome of an import (aliased from the domain layer).
type ImportResponse = lineage.ImportResult
