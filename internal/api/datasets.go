package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/lineagemap/internal/checksum"
	"github.com/starford/lineagemap/internal/models"
	"github.com/starford/lineagemap/internal/storage"
)

const maxUploadBytes = 50 << 20 // 50 MB

// DatasetHandler lists, accepts and removes dataset files.
type DatasetHandler struct {
	files storage.Provider
}

// NewDatasetHandler creates a handler over the datasets directory.
func NewDatasetHandler(files storage.Provider) *DatasetHandler {
	return &DatasetHandler{files: files}
}

// datasetPath extracts the file path after /api/datasets/.
// Supports encoded slashes (e.g. team%2Flineage.csv).
func datasetPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// List handles GET /api/datasets.
//
//	@Summary		List dataset files
//	@Tags			datasets
//	@Produce		json
//	@Success		200	{object}	DatasetListResponse
//	@Security		BearerAuth
//	@Router			/datasets [get]
func (h *DatasetHandler) List(w http.ResponseWriter, r *http.Request) {
	refs, err := h.files.List("")
	if err != nil {
		writeError(w, "list datasets", err)
		return
	}
	if refs == nil {
		refs = []models.DatasetRef{}
	}
	writeJSON(w, http.StatusOK, DatasetListResponse{Datasets: refs})
}

// Put handles PUT /api/datasets/* with the raw file as the body.
//
//	@Summary		Upload or replace a dataset file
//	@Tags			datasets
//	@Accept			octet-stream
//	@Produce		json
//	@Param			path	path		string	true	"Dataset path (.csv, .yaml, .yml, .json, .parquet)"
//	@Success		201		{object}	DatasetUploadResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/datasets/{path} [put]
func (h *DatasetHandler) Put(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	path := datasetPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	format := storage.FormatOf(path)
	if format == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("unsupported dataset extension"))
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or unreadable body"))
		return
	}
	if err := h.files.Write(path, body); err != nil {
		writeError(w, "write dataset", err)
		return
	}
	slog.Info("dataset uploaded", slog.String("path", path), slog.Int("size", len(body)))
	writeJSON(w, http.StatusCreated, DatasetUploadResponse{
		Path:     path,
		Name:     storage.DatasetName(path),
		Format:   format,
		Size:     len(body),
		Checksum: checksum.Sum(body),
	})
}

// Delete handles DELETE /api/datasets/*.
//
//	@Summary		Delete a dataset file
//	@Tags			datasets
//	@Param			path	path	string	true	"Dataset path"
//	@Success		204		"Dataset deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/datasets/{path} [delete]
func (h *DatasetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	path := datasetPath(r)
	if path == "" || storage.FormatOf(path) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("dataset path is required"))
		return
	}
	if err := h.files.Delete(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
			return
		}
		writeError(w, "delete dataset", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
