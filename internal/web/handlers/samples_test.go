package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kozaktomas/facerec/internal/database"
	"github.com/kozaktomas/facerec/internal/database/mock"
	"github.com/kozaktomas/facerec/internal/embedding"
	"github.com/kozaktomas/facerec/internal/samples"
)

func vectorJSON(v float32) string {
	b, _ := json.Marshal(filled(v).Slice())
	return string(b)
}

func TestSamplesHandler_PutAndGet(t *testing.T) {
	svc := newTestService(t, false)
	labels := NewLabelBook(nil)
	handler := NewSamplesHandler(svc, nil, labels)

	body := `{"embeddings": [` + vectorJSON(0.1) + `,` + vectorJSON(0.2) + `], "categories": [3, 4], "labels": {"3": "carol"}}`
	req := httptest.NewRequest("PUT", "/api/v1/samples", strings.NewReader(body))
	recorder := httptest.NewRecorder()

	handler.Put(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, recorder.Code, recorder.Body.String())
	}
	if svc.SampleCount() != 2 {
		t.Errorf("expected 2 samples, got %d", svc.SampleCount())
	}
	if labels.Name(3) != "carol" {
		t.Errorf("expected label carol, got %q", labels.Name(3))
	}

	req = httptest.NewRequest("GET", "/api/v1/samples", nil)
	recorder = httptest.NewRecorder()
	handler.Get(recorder, req)

	var result map[string]int
	json.Unmarshal(recorder.Body.Bytes(), &result)
	if result["count"] != 2 {
		t.Errorf("expected count 2, got %d", result["count"])
	}
}

func TestSamplesHandler_Put_Invalid(t *testing.T) {
	handler := NewSamplesHandler(newTestService(t, false), mock.NewMockSampleRepository(), NewLabelBook(nil))

	tests := []struct {
		name  string
		query string
		body  string
		want  int
	}{
		{"malformed json", "", `{"embeddings": [`, http.StatusBadRequest},
		{"wrong dimension", "", `{"embeddings": [[1, 2, 3]], "categories": [1]}`, http.StatusBadRequest},
		{"persist with missing categories", "?persist=true", `{"embeddings": [` + vectorJSON(1) + `], "categories": []}`, http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("PUT", "/api/v1/samples"+tc.query, strings.NewReader(tc.body))
			recorder := httptest.NewRecorder()

			handler.Put(recorder, req)

			if recorder.Code != tc.want {
				t.Errorf("expected status %d, got %d", tc.want, recorder.Code)
			}
		})
	}
}

func TestSamplesHandler_Put_Persist(t *testing.T) {
	repo := mock.NewMockSampleRepository()
	handler := NewSamplesHandler(newTestService(t, false), repo, NewLabelBook(nil))

	body := `{"embeddings": [` + vectorJSON(0.3) + `], "categories": [5], "labels": {"5": "eve"}}`
	req := httptest.NewRequest("PUT", "/api/v1/samples?persist=true", strings.NewReader(body))
	recorder := httptest.NewRecorder()

	handler.Put(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, recorder.Code, recorder.Body.String())
	}
	stored, _ := repo.LoadAll(context.Background())
	if len(stored) != 1 || stored[0].Category != 5 {
		t.Errorf("expected one stored sample of category 5, got %+v", stored)
	}
	names, _ := repo.Labels(context.Background())
	if names[5] != "eve" {
		t.Errorf("expected stored label eve, got %v", names)
	}
}

func TestSamplesHandler_Put_PersistFailureKeepsGallery(t *testing.T) {
	ctx := context.Background()
	repo := mock.NewMockSampleRepository()
	repo.ReplaceGallery(ctx, database.FromSamples([]samples.Sample{{Embedding: filled(0.1), Category: 1}}, nil), map[int32]string{1: "alice"})
	repo.SaveError = errors.New("labels table locked")

	svc := newTestService(t, false)
	labels := NewLabelBook(nil)
	handler := NewSamplesHandler(svc, repo, labels)

	body := `{"embeddings": [` + vectorJSON(0.3) + `,` + vectorJSON(0.4) + `], "categories": [5, 6], "labels": {"5": "eve"}}`
	req := httptest.NewRequest("PUT", "/api/v1/samples?persist=true", strings.NewReader(body))
	recorder := httptest.NewRecorder()

	handler.Put(recorder, req)

	if recorder.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, recorder.Code)
	}
	stored, _ := repo.LoadAll(ctx)
	if len(stored) != 1 || stored[0].Category != 1 {
		t.Errorf("stored samples changed after failed write: %+v", stored)
	}
	names, _ := repo.Labels(ctx)
	if len(names) != 1 || names[1] != "alice" {
		t.Errorf("stored labels changed after failed write: %v", names)
	}
	if svc.SampleCount() != 0 {
		t.Errorf("expected in-memory gallery untouched, got %d samples", svc.SampleCount())
	}
	if labels.Name(5) != "unknown" {
		t.Errorf("expected label book untouched, got %q", labels.Name(5))
	}
}

func TestSamplesHandler_Put_PersistWithoutDatabase(t *testing.T) {
	handler := NewSamplesHandler(newTestService(t, false), nil, NewLabelBook(nil))

	body := `{"embeddings": [` + vectorJSON(0.3) + `], "categories": [5]}`
	req := httptest.NewRequest("PUT", "/api/v1/samples?persist=true", strings.NewReader(body))
	recorder := httptest.NewRecorder()

	handler.Put(recorder, req)

	if recorder.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, recorder.Code)
	}
}

func TestSamplesHandler_Reload(t *testing.T) {
	repo := mock.NewMockSampleRepository()
	repo.ReplaceAll(context.Background(), database.FromSamples([]samples.Sample{
		{Embedding: filled(0.1), Category: 1},
		{Embedding: filled(0.2), Category: 2},
		{Embedding: filled(0.3), Category: 2},
	}, nil))
	repo.SaveLabels(context.Background(), map[int32]string{1: "alice", 2: "bob"})

	svc := newTestService(t, false)
	labels := NewLabelBook(nil)
	handler := NewSamplesHandler(svc, repo, labels)

	req := httptest.NewRequest("POST", "/api/v1/samples/reload", nil)
	recorder := httptest.NewRecorder()

	handler.Reload(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, recorder.Code, recorder.Body.String())
	}
	if svc.SampleCount() != 3 {
		t.Errorf("expected 3 samples, got %d", svc.SampleCount())
	}
	if labels.Name(2) != "bob" {
		t.Errorf("expected label bob, got %q", labels.Name(2))
	}
}

func TestSamplesHandler_Reload_Errors(t *testing.T) {
	t.Run("no database", func(t *testing.T) {
		handler := NewSamplesHandler(newTestService(t, false), nil, NewLabelBook(nil))
		recorder := httptest.NewRecorder()
		handler.Reload(recorder, httptest.NewRequest("POST", "/api/v1/samples/reload", nil))
		if recorder.Code != http.StatusServiceUnavailable {
			t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, recorder.Code)
		}
	})

	t.Run("load failure keeps samples", func(t *testing.T) {
		repo := mock.NewMockSampleRepository()
		repo.LoadError = errors.New("connection refused")
		svc := newTestService(t, false)
		svc.SetSampleSet([]samples.Sample{{Embedding: filled(1), Category: 1}})
		handler := NewSamplesHandler(svc, repo, NewLabelBook(nil))

		recorder := httptest.NewRecorder()
		handler.Reload(recorder, httptest.NewRequest("POST", "/api/v1/samples/reload", nil))

		if recorder.Code != http.StatusInternalServerError {
			t.Errorf("expected status %d, got %d", http.StatusInternalServerError, recorder.Code)
		}
		if svc.SampleCount() != 1 {
			t.Errorf("expected previous samples to remain, got %d", svc.SampleCount())
		}
	})
}

func TestSamplesHandler_Classify(t *testing.T) {
	svc := newTestService(t, false)
	svc.SetSampleSet([]samples.Sample{
		{Embedding: filled(0), Category: 1},
		{Embedding: filled(0), Category: 1},
		{Embedding: filled(1), Category: 2},
	})
	handler := NewSamplesHandler(svc, nil, NewLabelBook(map[int32]string{1: "alice"}))

	tests := []struct {
		name      string
		body      string
		wantCode  int
		wantCat   float64
		wantMatch bool
		wantName  string
	}{
		{"nearest wins", `{"embedding": ` + vectorJSON(0) + `}`, http.StatusOK, 1, true, "alice"},
		{"tolerance drops exact", `{"embedding": ` + vectorJSON(0) + `, "tolerance": 0.5}`, http.StatusOK, 2, true, "unknown"},
		{"everything too close", `{"embedding": ` + vectorJSON(0) + `, "tolerance": 500}`, http.StatusOK, -1, false, ""},
		{"negative tolerance", `{"embedding": ` + vectorJSON(0) + `, "tolerance": -1}`, http.StatusBadRequest, 0, false, ""},
		{"wrong dimension", `{"embedding": [1]}`, http.StatusBadRequest, 0, false, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/v1/classify", strings.NewReader(tc.body))
			recorder := httptest.NewRecorder()

			handler.Classify(recorder, req)

			if recorder.Code != tc.wantCode {
				t.Fatalf("expected status %d, got %d", tc.wantCode, recorder.Code)
			}
			if tc.wantCode != http.StatusOK {
				return
			}
			var result map[string]any
			json.Unmarshal(recorder.Body.Bytes(), &result)
			if result["category"] != tc.wantCat {
				t.Errorf("expected category %v, got %v", tc.wantCat, result["category"])
			}
			if result["match"] != tc.wantMatch {
				t.Errorf("expected match %v, got %v", tc.wantMatch, result["match"])
			}
			name, _ := result["name"].(string)
			if name != tc.wantName {
				t.Errorf("expected name %q, got %q", tc.wantName, name)
			}
		})
	}
}

func TestSamplesHandler_Search(t *testing.T) {
	svc := newTestService(t, false)
	svc.SetSamples(
		[]embedding.Embedding{filled(0), filled(0.1), filled(0.5)},
		[]int32{1, 2},
	)
	handler := NewSamplesHandler(svc, nil, NewLabelBook(map[int32]string{1: "alice", 2: "bob"}))

	req := httptest.NewRequest("POST", "/api/v1/samples/search", strings.NewReader(`{"embedding": `+vectorJSON(0)+`, "k": 3}`))
	recorder := httptest.NewRecorder()

	handler.Search(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, recorder.Code, recorder.Body.String())
	}
	var result struct {
		Neighbors []NeighborResponse `json:"neighbors"`
		Count     int                `json:"count"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if result.Count != 3 {
		t.Fatalf("expected 3 neighbours, got %d", result.Count)
	}
	if result.Neighbors[0].Index != 0 || result.Neighbors[0].Name != "alice" {
		t.Errorf("expected closest sample 0 (alice), got %+v", result.Neighbors[0])
	}
	if result.Neighbors[2].Category != nil {
		t.Errorf("expected sample without category to have none, got %d", *result.Neighbors[2].Category)
	}
}
