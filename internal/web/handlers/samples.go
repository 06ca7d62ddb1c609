package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/kozaktomas/facerec/internal/classify"
	"github.com/kozaktomas/facerec/internal/constants"
	"github.com/kozaktomas/facerec/internal/database"
	"github.com/kozaktomas/facerec/internal/embedding"
	"github.com/kozaktomas/facerec/internal/gallery"
	"github.com/kozaktomas/facerec/internal/samples"
)

// SamplesHandler handles the enrolled samples and classification endpoints.
type SamplesHandler struct {
	svc    FaceService
	repo   database.SampleWriter // nil without a database
	labels *LabelBook
}

// NewSamplesHandler creates a new samples handler. repo may be nil.
func NewSamplesHandler(svc FaceService, repo database.SampleWriter, labels *LabelBook) *SamplesHandler {
	return &SamplesHandler{
		svc:    svc,
		repo:   repo,
		labels: labels,
	}
}

// SetSamplesRequest replaces the enrolled samples. Embeddings and categories
// are parallel arrays.
type SetSamplesRequest struct {
	Embeddings [][]float32      `json:"embeddings"`
	Categories []int32          `json:"categories"`
	Labels     map[int32]string `json:"labels,omitempty"`
}

// ClassifyRequest classifies one embedding.
type ClassifyRequest struct {
	Embedding []float32 `json:"embedding"`
	Tolerance *float64  `json:"tolerance,omitempty"`
}

// SearchRequest looks up the nearest enrolled samples.
type SearchRequest struct {
	Embedding []float32 `json:"embedding"`
	K         int       `json:"k"`
}

// NeighborResponse is one enrolled sample near the query.
type NeighborResponse struct {
	Index    int     `json:"index"`
	Category *int32  `json:"category,omitempty"`
	Name     string  `json:"name,omitempty"`
	Distance float64 `json:"distance"`
}

func toEmbeddings(vs [][]float32) ([]embedding.Embedding, error) {
	out := make([]embedding.Embedding, len(vs))
	for i, v := range vs {
		e, err := embedding.FromSlice(v)
		if err != nil {
			return nil, fmt.Errorf("embedding %d: %w", i, err)
		}
		out[i] = e
	}
	return out, nil
}

// Put replaces the enrolled samples. With persist=true the samples are also
// written to the database, which requires one category per embedding.
func (h *SamplesHandler) Put(w http.ResponseWriter, r *http.Request) {
	var req SetSamplesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	embs, err := toEmbeddings(req.Embeddings)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	persist, _ := strconv.ParseBool(r.URL.Query().Get("persist"))
	if persist {
		if h.repo == nil {
			respondError(w, http.StatusServiceUnavailable, "database is not configured")
			return
		}
		if len(embs) != len(req.Categories) {
			respondError(w, http.StatusBadRequest, "persisting requires one category per embedding")
			return
		}
		list := make([]samples.Sample, len(embs))
		for i := range embs {
			list[i] = samples.Sample{Embedding: embs[i], Category: req.Categories[i]}
		}
		if err := h.repo.ReplaceGallery(r.Context(), database.FromSamples(list, nil), req.Labels); err != nil {
			respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to store gallery: %v", err))
			return
		}
	}

	h.svc.SetSamples(embs, req.Categories)
	if req.Labels != nil {
		h.labels.Set(gallery.Labels(req.Labels))
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"count":     h.svc.SampleCount(),
		"persisted": persist,
	})
}

// Get returns the number of enrolled samples.
func (h *SamplesHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"count": h.svc.SampleCount(),
	})
}

// Reload replaces the enrolled samples and labels with the database content.
func (h *SamplesHandler) Reload(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		respondError(w, http.StatusServiceUnavailable, "database is not configured")
		return
	}

	n, err := reloadSamples(r.Context(), h.svc, h.repo, h.labels)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"count": n,
	})
}

// reloadSamples loads the gallery from repo into svc and labels.
func reloadSamples(ctx context.Context, svc FaceService, repo database.SampleReader, labels *LabelBook) (int, error) {
	stored, err := repo.LoadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load samples: %w", err)
	}
	list, err := database.ToSamples(stored)
	if err != nil {
		return 0, fmt.Errorf("failed to convert samples: %w", err)
	}
	names, err := repo.Labels(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load labels: %w", err)
	}

	svc.SetSampleSet(list)
	labels.Set(gallery.Labels(names))
	log.Printf("Loaded %d samples and %d labels from database", len(list), len(names))
	return len(list), nil
}

// Classify returns the category of an embedding among the enrolled samples.
func (h *SamplesHandler) Classify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	e, err := embedding.FromSlice(req.Embedding)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var cat int
	if req.Tolerance != nil {
		if *req.Tolerance < 0 {
			respondError(w, http.StatusBadRequest, "invalid tolerance")
			return
		}
		cat = h.svc.ClassifyTolerance(e, *req.Tolerance)
	} else {
		cat = h.svc.Classify(e)
	}

	resp := map[string]any{
		"category": cat,
		"match":    cat != classify.NoMatch,
	}
	if cat != classify.NoMatch {
		resp["name"] = h.labels.Name(cat)
	}
	respondJSON(w, http.StatusOK, resp)
}

// Search returns the enrolled samples nearest to an embedding.
func (h *SamplesHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	e, err := embedding.FromSlice(req.Embedding)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	k := req.K
	if k <= 0 {
		k = constants.DefaultNearestLimit
	}
	k = min(k, constants.MaxNearestLimit)

	neighbors := h.svc.Nearest(e, k)
	out := make([]NeighborResponse, len(neighbors))
	for i, n := range neighbors {
		out[i] = NeighborResponse{Index: n.Index, Distance: n.Distance}
		if n.Known {
			cat := n.Category
			out[i].Category = &cat
			out[i].Name = h.labels.Name(int(cat))
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"neighbors": out,
		"count":     len(out),
	})
}
