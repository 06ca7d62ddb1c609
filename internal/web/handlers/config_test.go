package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/facerec/internal/config"
	"github.com/kozaktomas/facerec/internal/facerec"
)

func TestNewConfigHandler(t *testing.T) {
	cfg := &config.Config{}

	handler := NewConfigHandler(cfg, false)

	if handler == nil {
		t.Fatal("expected non-nil handler")
		return
	}

	if handler.config != cfg {
		t.Error("expected handler to hold reference to config")
	}
}

func TestConfigHandler_Get(t *testing.T) {
	cfg := &config.Config{Face: facerec.DefaultConfig()}
	cfg.Classify.Tolerance = 0.2
	cfg.Runtime.EmbeddingURL = "http://embed:8000"
	handler := NewConfigHandler(cfg, true)

	req := httptest.NewRequest("GET", "/api/v1/config", nil)
	recorder := httptest.NewRecorder()

	handler.Get(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, recorder.Code)
	}
	if ct := recorder.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type 'application/json', got '%s'", ct)
	}

	var resp ConfigResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.ChipSize != 150 {
		t.Errorf("expected chip size 150, got %d", resp.ChipSize)
	}
	if resp.Padding != 0.25 {
		t.Errorf("expected padding 0.25, got %v", resp.Padding)
	}
	if resp.Tolerance != 0.2 {
		t.Errorf("expected tolerance 0.2, got %v", resp.Tolerance)
	}
	if !resp.RemoteEmbed {
		t.Error("expected remote embedding to be reported")
	}
	if !resp.Database {
		t.Error("expected database to be reported")
	}
	if resp.ModelReload {
		t.Error("expected model reload to be disabled without a model directory")
	}
}
