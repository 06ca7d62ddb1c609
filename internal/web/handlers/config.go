package handlers

import (
	"net/http"

	"github.com/kozaktomas/facerec/internal/config"
)

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	config   *config.Config
	database bool
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config, database bool) *ConfigHandler {
	return &ConfigHandler{
		config:   cfg,
		database: database,
	}
}

// ConfigResponse represents the configuration response
type ConfigResponse struct {
	ChipSize     int     `json:"chip_size"`
	Padding      float64 `json:"padding"`
	Jittering    int     `json:"jittering"`
	MinImageSize int     `json:"min_image_size"`
	Tolerance    float64 `json:"tolerance"`
	RemoteEmbed  bool    `json:"remote_embedding"`
	ModelReload  bool    `json:"model_reload"`
	Database     bool    `json:"database"`
}

// Get returns the effective recognition settings
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	face := h.config.Face
	response := ConfigResponse{
		ChipSize:     face.Size,
		Padding:      face.Padding,
		Jittering:    face.Jittering,
		MinImageSize: face.MinImageSize,
		Tolerance:    h.config.Classify.Tolerance,
		RemoteEmbed:  h.config.Runtime.EmbeddingURL != "",
		ModelReload:  h.config.Runtime.ModelDir != "",
		Database:     h.database,
	}

	respondJSON(w, http.StatusOK, response)
}
