package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/facerec/internal/facerec"
)

var (
	errModelOutsideDir = errors.New("model path is outside the model directory")
	errRemoteModel     = errors.New("remote models are configured with FACEREC_EMBEDDING_URL")
)

// ModelsHandler handles model management endpoints.
type ModelsHandler struct {
	svc      FaceService
	modelDir string
}

// NewModelsHandler creates a new models handler. Reloading is only possible
// for files below modelDir; an empty modelDir disables it.
func NewModelsHandler(svc FaceService, modelDir string) *ModelsHandler {
	return &ModelsHandler{svc: svc, modelDir: modelDir}
}

// ReloadModelRequest names the model file to load, relative to the model
// directory.
type ReloadModelRequest struct {
	Path string `json:"path"`
}

// List returns the state of every model.
func (h *ModelsHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"models": h.svc.Models(),
	})
}

// resolveModelPath maps a requested path to a file inside dir.
func resolveModelPath(dir, p string) (string, error) {
	if strings.Contains(p, "://") {
		return "", errRemoteModel
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	full := p
	if !filepath.IsAbs(full) {
		full = filepath.Join(root, full)
	}
	full = filepath.Clean(full)

	rel, err := filepath.Rel(root, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errModelOutsideDir
	}
	return full, nil
}

// Reload loads a new file into one model. The previous model keeps serving
// requests when loading fails.
func (h *ModelsHandler) Reload(w http.ResponseWriter, r *http.Request) {
	kind := facerec.ModelKind(chi.URLParam(r, "kind"))

	if h.modelDir == "" {
		respondError(w, http.StatusForbidden, "model reloading is disabled, set FACEREC_MODEL_DIR")
		return
	}

	var req ReloadModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Path == "" {
		respondError(w, http.StatusBadRequest, "path is required")
		return
	}

	path, err := resolveModelPath(h.modelDir, req.Path)
	switch {
	case errors.Is(err, errRemoteModel):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		respondError(w, http.StatusForbidden, errModelOutsideDir.Error())
		return
	}

	if err := h.svc.Reload(kind, path); err != nil {
		if errors.Is(err, facerec.ErrUnknownModel) {
			respondError(w, http.StatusNotFound, "unknown model kind")
			return
		}
		respondFailure(w, r, err)
		return
	}

	log.Printf("Reloaded %s model from %s", kind, sanitizeForLog(path))
	respondJSON(w, http.StatusOK, map[string]any{
		"kind": kind,
		"path": path,
	})
}
