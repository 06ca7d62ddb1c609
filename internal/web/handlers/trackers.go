package handlers

import (
	"fmt"
	"image"
	"log"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kozaktomas/facerec/internal/constants"
	"github.com/kozaktomas/facerec/internal/facerec"
	"github.com/kozaktomas/facerec/internal/imaging"
	cmap "github.com/orcaman/concurrent-map/v2"
)

// TrackersHandler manages face tracking sessions. Each session owns one
// tracker; requests on different sessions run in parallel.
type TrackersHandler struct {
	svc      FaceService
	sessions cmap.ConcurrentMap[string, *facerec.Tracker]

	// slots counts sessions plus creations in progress, at most limit.
	slotsMu sync.Mutex
	slots   int
	limit   int
}

// NewTrackersHandler creates a new trackers handler.
func NewTrackersHandler(svc FaceService) *TrackersHandler {
	return &TrackersHandler{
		svc:      svc,
		sessions: cmap.New[*facerec.Tracker](),
		limit:    constants.MaxTrackers,
	}
}

func (h *TrackersHandler) reserve() bool {
	h.slotsMu.Lock()
	defer h.slotsMu.Unlock()
	if h.slots >= h.limit {
		return false
	}
	h.slots++
	return true
}

func (h *TrackersHandler) release() {
	h.slotsMu.Lock()
	h.slots--
	h.slotsMu.Unlock()
}

// TrackResponse is the tracked position after a frame.
type TrackResponse struct {
	ID         string   `json:"id"`
	Rect       rectJSON `json:"rect"`
	Confidence float64  `json:"confidence"`
}

// parseRect reads left, top, right and bottom query parameters.
func parseRect(r *http.Request) (image.Rectangle, error) {
	q := r.URL.Query()
	var v [4]int
	for i, name := range []string{"left", "top", "right", "bottom"} {
		n, err := strconv.Atoi(q.Get(name))
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("invalid %s", name)
		}
		v[i] = n
	}
	rect := image.Rect(v[0], v[1], v[2], v[3])
	if rect.Empty() {
		return image.Rectangle{}, fmt.Errorf("empty rectangle")
	}
	return rect, nil
}

// Create starts tracking the rectangle given in the query on the uploaded image.
func (h *TrackersHandler) Create(w http.ResponseWriter, r *http.Request) {
	rect, err := parseRect(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !h.reserve() {
		respondError(w, http.StatusTooManyRequests, "too many tracking sessions")
		return
	}
	stored := false
	defer func() {
		if !stored {
			h.release()
		}
	}()

	data, err := readImage(w, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	img, err := imaging.Decode(data)
	if err != nil {
		respondFailure(w, r, err)
		return
	}

	t := h.svc.NewTracker()
	if err := t.Start(img, rect); err != nil {
		t.Close()
		respondFailure(w, r, err)
		return
	}

	id := uuid.NewString()
	h.sessions.Set(id, t)
	stored = true
	respondJSON(w, http.StatusCreated, TrackResponse{
		ID:         id,
		Rect:       toRectJSON(rect),
		Confidence: 1,
	})
}

// Update moves a session onto the uploaded frame.
func (h *TrackersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	t, ok := h.sessions.Get(id)
	if !ok {
		respondError(w, http.StatusNotFound, "tracker not found")
		return
	}

	data, err := readImage(w, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	img, err := imaging.Decode(data)
	if err != nil {
		respondFailure(w, r, err)
		return
	}

	conf, err := t.Update(img)
	if err != nil {
		respondFailure(w, r, err)
		return
	}
	rect, err := t.Position()
	if err != nil {
		respondFailure(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, TrackResponse{
		ID:         id,
		Rect:       toRectJSON(rect),
		Confidence: conf,
	})
}

// Delete ends a session.
func (h *TrackersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	t, ok := h.sessions.Pop(id)
	if !ok {
		respondError(w, http.StatusNotFound, "tracker not found")
		return
	}
	h.release()
	if err := t.Close(); err != nil {
		log.Printf("WARNING: failed to close tracker %s: %v", id, err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Close ends every session.
func (h *TrackersHandler) Close() {
	for _, id := range h.sessions.Keys() {
		if t, ok := h.sessions.Pop(id); ok {
			h.release()
			t.Close()
		}
	}
}
