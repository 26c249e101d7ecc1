// Package models defines the domain types for lineagemap.
package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// MetadataRef is a metadata entity (dataset, table, or column) known to the
// metadata store. Names are display strings and are not unique.
type MetadataRef struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}

// Validate checks that the reference carries both an id and a name.
func (m MetadataRef) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.ID, validation.Required),
		validation.Field(&m.Name, validation.Required),
	)
}

// LineageEdge is a directed dependency FromMetaID -> ToMetaID.
//
// ID is assigned by the store and plays no part in Equal.
type LineageEdge struct {
	ID          string    `json:"id"`
	FromMetaID  string    `json:"from_meta_id"`
	ToMetaID    string    `json:"to_meta_id"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate checks the fields required when an edge is created explicitly.
func (e LineageEdge) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.FromMetaID, validation.Required),
		validation.Field(&e.ToMetaID, validation.Required),
	)
}

// EdgeKey is the value identity of an edge.
type EdgeKey struct {
	From        string
	To          string
	Description string
}

// Key returns the value identity of e.
func (e LineageEdge) Key() EdgeKey {
	return EdgeKey{From: e.FromMetaID, To: e.ToMetaID, Description: e.Description}
}

// Equal reports whether e and other describe the same dependency,
// regardless of store-assigned identity.
func (e LineageEdge) Equal(other LineageEdge) bool {
	return e.Key() == other.Key()
}

// LineageMapNode is one node of a rendered lineage tree.
type LineageMapNode struct {
	MetaID       string            `json:"meta_id"`
	Description  *string           `json:"description"`
	MetaName     string            `json:"meta_name"`
	FromMapNodes []*LineageMapNode `json:"from_map_nodes"`
	ToMapNodes   []*LineageMapNode `json:"to_map_nodes"`
	Circuit      bool              `json:"circuit"`
}

// NewLineageMapNode returns a node with empty (non-nil) child lists.
func NewLineageMapNode(metaID string, description *string, metaName string) *LineageMapNode {
	return &LineageMapNode{
		MetaID:       metaID,
		Description:  description,
		MetaName:     metaName,
		FromMapNodes: []*LineageMapNode{},
		ToMapNodes:   []*LineageMapNode{},
	}
}

// DatasetRef identifies a tabular dataset file.
type DatasetRef struct {
	// ID is the path relative to the datasets root.
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Format    string    `json:"format"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Row is one record of a dataset keyed by column name.
type Row map[string]string

// Get returns the value of col and whether the column is present.
func (r Row) Get(col string) (string, bool) {
	v, ok := r[col]
	return v, ok
}
