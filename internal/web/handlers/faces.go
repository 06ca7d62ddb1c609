package handlers

import (
	"net/http"
	"strconv"

	"github.com/kozaktomas/facerec/internal/classify"
	"github.com/kozaktomas/facerec/internal/config"
	"github.com/kozaktomas/facerec/internal/facerec"
)

// FacesHandler handles detection and per-face inference endpoints.
type FacesHandler struct {
	config *config.Config
	svc    FaceService
	labels *LabelBook
}

// NewFacesHandler creates a new faces handler.
func NewFacesHandler(cfg *config.Config, svc FaceService, labels *LabelBook) *FacesHandler {
	return &FacesHandler{
		config: cfg,
		svc:    svc,
		labels: labels,
	}
}

// FaceResponse describes one detected face.
type FaceResponse struct {
	ID   string   `json:"id"`
	Rect rectJSON `json:"rect"`
}

// RecognizeResponse is a detected face with its embedding.
type RecognizeResponse struct {
	FaceResponse
	Embedding []float32 `json:"embedding"`
	Shape     [][2]int  `json:"shape"`
	Category  *int      `json:"category,omitempty"`
	Name      string    `json:"name,omitempty"`
	Match     *bool     `json:"match,omitempty"`
}

// GenderResponse is a detected face with its gender estimate.
type GenderResponse struct {
	FaceResponse
	facerec.GenderEstimate
}

// AgeResponse is a detected face with its age estimate.
type AgeResponse struct {
	FaceResponse
	facerec.AgeEstimate
}

func faceResponse(f *facerec.Face) FaceResponse {
	return FaceResponse{ID: f.ID, Rect: toRectJSON(f.Rectangle)}
}

// detectFaces reads the uploaded image and runs the detector selected by
// the cnn query parameter. It writes the error response itself.
func (h *FacesHandler) detectFaces(w http.ResponseWriter, r *http.Request) ([]*facerec.Face, bool) {
	data, err := readImage(w, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	cnn, _ := strconv.ParseBool(r.URL.Query().Get("cnn"))
	faces, err := h.svc.DetectBytes(data, cnn)
	if err != nil {
		respondFailure(w, r, err)
		return nil, false
	}
	return faces, true
}

// Detect returns the faces found in the uploaded image.
func (h *FacesHandler) Detect(w http.ResponseWriter, r *http.Request) {
	faces, ok := h.detectFaces(w, r)
	if !ok {
		return
	}

	out := make([]FaceResponse, len(faces))
	for i, f := range faces {
		out[i] = faceResponse(f)
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"faces": out,
		"count": len(out),
	})
}

// Recognize returns the embedding of every face in the uploaded image and,
// with classify=true, its category among the enrolled samples.
func (h *FacesHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	doClassify, _ := strconv.ParseBool(query.Get("classify"))
	tolerance := h.config.Classify.Tolerance
	if v := query.Get("tolerance"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil || t < 0 {
			respondError(w, http.StatusBadRequest, "invalid tolerance")
			return
		}
		tolerance = t
		doClassify = true
	}

	faces, ok := h.detectFaces(w, r)
	if !ok {
		return
	}

	out := make([]RecognizeResponse, 0, len(faces))
	for _, f := range faces {
		emb, shape, err := h.svc.Recognize(f)
		if err != nil {
			respondFailure(w, r, err)
			return
		}
		resp := RecognizeResponse{
			FaceResponse: faceResponse(f),
			Embedding:    emb.Slice(),
			Shape:        shapeJSON(shape),
		}
		if doClassify {
			var cat int
			if tolerance > 0 {
				cat = h.svc.ClassifyTolerance(emb, tolerance)
			} else {
				cat = h.svc.Classify(emb)
			}
			match := cat != classify.NoMatch
			resp.Category = &cat
			resp.Match = &match
			if match {
				resp.Name = h.labels.Name(cat)
			}
		}
		out = append(out, resp)
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"faces": out,
		"count": len(out),
	})
}

// Gender returns the gender estimate of every face in the uploaded image.
func (h *FacesHandler) Gender(w http.ResponseWriter, r *http.Request) {
	faces, ok := h.detectFaces(w, r)
	if !ok {
		return
	}

	out := make([]GenderResponse, 0, len(faces))
	for _, f := range faces {
		est, err := h.svc.Gender(f)
		if err != nil {
			respondFailure(w, r, err)
			return
		}
		out = append(out, GenderResponse{FaceResponse: faceResponse(f), GenderEstimate: est})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"faces": out,
		"count": len(out),
	})
}

// Age returns the age estimate of every face in the uploaded image.
func (h *FacesHandler) Age(w http.ResponseWriter, r *http.Request) {
	faces, ok := h.detectFaces(w, r)
	if !ok {
		return
	}

	out := make([]AgeResponse, 0, len(faces))
	for _, f := range faces {
		est, err := h.svc.Age(f)
		if err != nil {
			respondFailure(w, r, err)
			return
		}
		out = append(out, AgeResponse{FaceResponse: faceResponse(f), AgeEstimate: est})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"faces": out,
		"count": len(out),
	})
}
