package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/kozaktomas/facerec/internal/constants"
	"github.com/kozaktomas/facerec/internal/embedding"
	"github.com/kozaktomas/facerec/internal/facerec"
	"github.com/kozaktomas/facerec/internal/imaging"
	"github.com/kozaktomas/facerec/internal/model"
	"github.com/kozaktomas/facerec/internal/samples"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// FaceService is the part of the face service the handlers use.
type FaceService interface {
	DetectBytes(data []byte, cnn bool) ([]*facerec.Face, error)
	Recognize(face *facerec.Face) (embedding.Embedding, imaging.Shape, error)
	Gender(face *facerec.Face) (facerec.GenderEstimate, error)
	Age(face *facerec.Face) (facerec.AgeEstimate, error)

	SetSamples(embs []embedding.Embedding, cats []int32)
	SetSampleSet(list []samples.Sample)
	SampleCount() int
	Classify(e embedding.Embedding) int
	ClassifyTolerance(e embedding.Embedding, tolerance float64) int
	Nearest(e embedding.Embedding, k int) []samples.Neighbor

	Reload(kind facerec.ModelKind, path string) error
	Models() []facerec.ModelInfo
	NewTracker() *facerec.Tracker
}

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// errorResponse is the error envelope of every failed request.
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// respondError sends an error response for a malformed request.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

// statusForKind maps a failure kind to its HTTP status.
func statusForKind(kind model.Kind) int {
	switch kind {
	case model.ImageDecode:
		return http.StatusBadRequest
	case model.ResourceLoad:
		return http.StatusServiceUnavailable
	case model.Recognize:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondFailure sends an error returned by the face service.
func respondFailure(w http.ResponseWriter, r *http.Request, err error) {
	kind := model.KindOf(err)
	status := statusForKind(kind)
	if status == http.StatusInternalServerError {
		log.Printf("ERROR: %s %s: %v", r.Method, sanitizeForLog(r.URL.Path), err)
	}
	respondJSON(w, status, errorResponse{Error: err.Error(), Kind: kind.String()})
}

// readImage returns the uploaded image bytes: the multipart "file" field for
// multipart requests, otherwise the raw request body.
func readImage(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body := http.MaxBytesReader(w, r.Body, constants.MaxUploadSize)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		r.Body = body
		if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
			return nil, fmt.Errorf("failed to parse multipart form: %w", err)
		}
		file, _, err := r.FormFile(constants.MultipartImageField)
		if err != nil {
			return nil, fmt.Errorf("missing %q file: %w", constants.MultipartImageField, err)
		}
		defer file.Close()
		return io.ReadAll(file)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("empty request body")
	}
	return data, nil
}

// rectJSON is the wire form of a rectangle.
type rectJSON struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

func toRectJSON(r image.Rectangle) rectJSON {
	return rectJSON{Left: r.Min.X, Top: r.Min.Y, Right: r.Max.X, Bottom: r.Max.Y}
}

// shapeJSON converts landmarks to [x, y] pairs.
func shapeJSON(s imaging.Shape) [][2]int {
	out := make([][2]int, len(s))
	for i, p := range s {
		out[i] = [2]int{p.X, p.Y}
	}
	return out
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
