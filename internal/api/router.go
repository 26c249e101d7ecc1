package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/lineagemap/internal/lineage"
	"github.com/starford/lineagemap/internal/storage"
	"github.com/starford/lineagemap/internal/store"
)

// RouterConfig carries everything NewRouter mounts.
type RouterConfig struct {
	Lineage  *lineage.Service
	Metadata store.MetadataStore
	// Datasets, if non-nil, enables the /datasets routes.
	Datasets storage.Provider
	// Events receives graph change notifications; may be nil.
	Events Publisher
	// SSE, if non-nil, is mounted at GET /events inside the auth group.
	SSE http.Handler

	AuthEnabled bool
	Token       string
	// ImportLimit throttles POST /lineage/import per client.
	ImportLimit RateLimitConfig
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(cfg RouterConfig) chi.Router {
	h := NewHandler(cfg.Lineage, cfg.Metadata, cfg.Events)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(cfg.AuthEnabled, cfg.Token))

	// Edges CRUD.
	r.Get("/edges", h.ListEdges)
	r.Post("/edges", h.CreateEdge)
	r.Get("/edges/{id}", h.GetEdge)
	r.Delete("/edges/{id}", h.DeleteEdge)

	// Lineage maps and imports.
	r.With(RateLimiter(cfg.ImportLimit)).Post("/lineage/import", h.ImportLineage)
	r.Get("/lineage/{metaId}", h.GetLineageMap)

	// Metadata registry.
	r.Get("/metadata", h.ListMetadata)
	r.Get("/metadata/search", h.SearchMetadata)
	r.Get("/metadata/{id}", h.GetMetadata)
	r.Put("/metadata/{id}", h.PutMetadata)

	if cfg.Datasets != nil {
		dh := NewDatasetHandler(cfg.Datasets)
		r.Get("/datasets", dh.List)
		r.Put("/datasets/*", dh.Put)
		r.Delete("/datasets/*", dh.Delete)
	}

	// SSE endpoint (protected by same auth middleware).
	if cfg.SSE != nil {
		r.Get("/events", cfg.SSE.ServeHTTP)
	}

	return r
}
