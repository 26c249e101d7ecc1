package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/lineagemap/internal/apperr"
	"github.com/starford/lineagemap/internal/lineage"
	"github.com/starford/lineagemap/internal/models"
	"github.com/starford/lineagemap/internal/sse"
	"github.com/starford/lineagemap/internal/store"
)

// Publisher receives graph change notifications. *sse.Broker implements it.
type Publisher interface {
	PublishGraphEvent(kind string, data any)
}

type nopPublisher struct{}

func (nopPublisher) PublishGraphEvent(string, any) {}

// Handler holds API route handlers.
type Handler struct {
	svc    *lineage.Service
	meta   store.MetadataStore
	events Publisher
}

// NewHandler creates a new Handler. events may be nil.
func NewHandler(svc *lineage.Service, meta store.MetadataStore, events Publisher) *Handler {
	if events == nil {
		events = nopPublisher{}
	}
	return &Handler{svc: svc, meta: meta, events: events}
}

// ListEdges handles GET /api/edges.
//
//	@Summary		List every lineage edge
//	@Tags			edges
//	@Produce		json
//	@Success		200	{object}	EdgeListResponse
//	@Security		BearerAuth
//	@Router			/edges [get]
func (h *Handler) ListEdges(w http.ResponseWriter, r *http.Request) {
	edges, err := h.svc.ListEdges(r.Context())
	if err != nil {
		writeError(w, "list edges", err)
		return
	}
	writeJSON(w, http.StatusOK, EdgeListResponse{Edges: edges, Total: len(edges)})
}

// CreateEdge handles POST /api/edges.
//
//	@Summary		Create a lineage edge
//	@Tags			edges
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateEdgeRequest	true	"Edge to create"
//	@Success		201		{object}	models.LineageEdge
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/edges [post]
func (h *Handler) CreateEdge(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CreateEdgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	edge, err := h.svc.CreateEdge(r.Context(), req.FromMetaID, req.ToMetaID, req.Description)
	if err != nil {
		writeError(w, "create edge", err)
		return
	}
	h.events.PublishGraphEvent(sse.EdgeCreated, edge)
	writeJSON(w, http.StatusCreated, edge)
}

// GetEdge handles GET /api/edges/{id}.
//
//	@Summary		Get a lineage edge by id
//	@Tags			edges
//	@Produce		json
//	@Param			id	path		string	true	"Edge id"
//	@Success		200	{object}	models.LineageEdge
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/edges/{id} [get]
func (h *Handler) GetEdge(w http.ResponseWriter, r *http.Request) {
	edge, err := h.svc.GetEdge(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get edge", err)
		return
	}
	writeJSON(w, http.StatusOK, edge)
}

// DeleteEdge handles DELETE /api/edges/{id}.
//
//	@Summary		Delete a lineage edge
//	@Tags			edges
//	@Param			id	path	string	true	"Edge id"
//	@Success		204	"Edge deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/edges/{id} [delete]
func (h *Handler) DeleteEdge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.DeleteEdge(r.Context(), id); err != nil {
		writeError(w, "delete edge", err)
		return
	}
	h.events.PublishGraphEvent(sse.EdgeDeleted, map[string]string{"id": id})
	w.WriteHeader(http.StatusNoContent)
}

// GetLineageMap handles GET /api/lineage/{metaId}.
//
//	@Summary		Render the upstream and downstream lineage of a metadata entity
//	@Tags			lineage
//	@Produce		json
//	@Param			metaId	path		string	true	"Metadata id"
//	@Success		200		{object}	models.LineageMapNode
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/lineage/{metaId} [get]
func (h *Handler) GetLineageMap(w http.ResponseWriter, r *http.Request) {
	root, err := h.svc.GetLineageMap(r.Context(), chi.URLParam(r, "metaId"))
	if err != nil {
		writeError(w, "lineage map", err)
		return
	}
	writeJSON(w, http.StatusOK, root)
}

// ImportLineage handles POST /api/lineage/import.
//
//	@Summary		Upsert edges from a lineage dataset
//	@Tags			lineage
//	@Produce		json
//	@Param			dataset	query		string	false	"Dataset name (defaults to the configured dataset)"
//	@Success		200		{object}	ImportResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Failure		429		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/lineage/import [post]
func (h *Handler) ImportLineage(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("dataset")
	res, err := h.svc.ImportLineage(r.Context(), name)
	// A failed import may still have written rows before it stopped.
	if res != nil {
		h.events.PublishGraphEvent(sse.LineageImported, ImportSummary(res))
	}
	if err != nil {
		writeError(w, "import lineage", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ImportSummary is the SSE payload for a finished import.
func ImportSummary(res *lineage.ImportResult) map[string]any {
	return map[string]any{
		"dataset":  res.Dataset.Name,
		"path":     res.Dataset.ID,
		"created":  res.Created,
		"replaced": res.Replaced,
		"skipped":  res.Skipped,
		"failed":   res.Failed,
	}
}

// ListMetadata handles GET /api/metadata.
//
//	@Summary		List registered metadata entities
//	@Tags			metadata
//	@Produce		json
//	@Param			limit	query		int	false	"Page size"
//	@Param			offset	query		int	false	"Page offset"
//	@Success		200		{object}	MetadataListResponse
//	@Security		BearerAuth
//	@Router			/metadata [get]
func (h *Handler) ListMetadata(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	items, total, err := h.meta.ListMetadata(r.Context(), limit, offset)
	if err != nil {
		writeError(w, "list metadata", err)
		return
	}
	writeJSON(w, http.StatusOK, MetadataListResponse{Metadata: items, Total: total})
}

// GetMetadata handles GET /api/metadata/{id}.
//
//	@Summary		Get a metadata entity
//	@Tags			metadata
//	@Produce		json
//	@Param			id	path		string	true	"Metadata id"
//	@Success		200	{object}	models.MetadataRef
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/metadata/{id} [get]
func (h *Handler) GetMetadata(w http.ResponseWriter, r *http.Request) {
	m, err := h.meta.GetMetadata(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get metadata", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// PutMetadata handles PUT /api/metadata/{id}.
//
//	@Summary		Register or rename a metadata entity
//	@Tags			metadata
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Metadata id"
//	@Param			body	body		PutMetadataRequest	true	"Entity name"
//	@Success		200		{object}	models.MetadataRef
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/metadata/{id} [put]
func (h *Handler) PutMetadata(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req PutMetadataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	m := models.MetadataRef{ID: chi.URLParam(r, "id"), Name: req.Name}
	if err := m.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(apperr.ErrInvalid.Error()+": "+err.Error()))
		return
	}
	if err := h.meta.UpsertMetadata(r.Context(), m); err != nil {
		writeError(w, "put metadata", err)
		return
	}
	saved, err := h.meta.GetMetadata(r.Context(), m.ID)
	if err != nil {
		writeError(w, "put metadata", err)
		return
	}
	slog.Debug("metadata registered", slog.String("id", saved.ID), slog.String("name", saved.Name))
	writeJSON(w, http.StatusOK, saved)
}

// SearchMetadata handles GET /api/metadata/search.
//
//	@Summary		Search metadata by name
//	@Tags			metadata
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/metadata/search [get]
func (h *Handler) SearchMetadata(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.meta.SearchMetadata(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search metadata", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
