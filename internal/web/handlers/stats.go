package handlers

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/kozaktomas/facerec/internal/database"
)

const statsCacheTTL = time.Minute

// statsCache holds the cached database sample count with expiry
type statsCache struct {
	mu        sync.RWMutex
	stored    int
	valid     bool
	expiresAt time.Time
}

func (c *statsCache) get() (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.valid || time.Now().After(c.expiresAt) {
		return 0, false
	}
	return c.stored, true
}

func (c *statsCache) set(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stored = n
	c.valid = true
	c.expiresAt = time.Now().Add(statsCacheTTL)
}

// StatsHandler handles statistics endpoints
type StatsHandler struct {
	svc      FaceService
	repo     database.SampleReader // nil without a database
	trackers *TrackersHandler
	cache    statsCache
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(svc FaceService, repo database.SampleReader, trackers *TrackersHandler) *StatsHandler {
	return &StatsHandler{
		svc:      svc,
		repo:     repo,
		trackers: trackers,
	}
}

// StatsResponse represents the stats response
type StatsResponse struct {
	Samples       int  `json:"samples"`
	StoredSamples *int `json:"stored_samples,omitempty"`
	Trackers      int  `json:"trackers"`
	ModelsLoaded  int  `json:"models_loaded"`
	ModelsTotal   int  `json:"models_total"`
}

// Get returns service statistics
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{
		Samples: h.svc.SampleCount(),
	}
	if h.trackers != nil {
		resp.Trackers = h.trackers.sessions.Count()
	}
	for _, m := range h.svc.Models() {
		resp.ModelsTotal++
		if m.Loaded {
			resp.ModelsLoaded++
		}
	}

	if h.repo != nil {
		n, ok := h.cache.get()
		if !ok {
			var err error
			n, err = h.repo.Count(r.Context())
			if err != nil {
				log.Printf("WARNING: failed to count stored samples: %v", err)
			} else {
				h.cache.set(n)
				ok = true
			}
		}
		if ok {
			resp.StoredSamples = &n
		}
	}

	respondJSON(w, http.StatusOK, resp)
}
