package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

func createTracker(t *testing.T, handler *TrackersHandler, frame []byte) TrackResponse {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/v1/trackers?left=20&top=10&right=50&bottom=40", bytes.NewReader(frame))
	recorder := httptest.NewRecorder()

	handler.Create(recorder, req)

	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, recorder.Code, recorder.Body.String())
	}
	var resp TrackResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return resp
}

func TestTrackersHandler_Lifecycle(t *testing.T) {
	handler := NewTrackersHandler(newTestService(t, false))
	defer handler.Close()
	frame := textured(t, 100, 80)

	created := createTracker(t, handler, frame)
	if created.ID == "" {
		t.Fatal("expected tracker id")
	}

	req := httptest.NewRequest("PUT", "/api/v1/trackers/"+created.ID, bytes.NewReader(frame))
	req = requestWithChiParams(req, map[string]string{"id": created.ID})
	recorder := httptest.NewRecorder()
	handler.Update(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, recorder.Code, recorder.Body.String())
	}
	var updated TrackResponse
	json.Unmarshal(recorder.Body.Bytes(), &updated)
	if updated.Rect != (rectJSON{Left: 20, Top: 10, Right: 50, Bottom: 40}) {
		t.Errorf("expected tracker to stay on an unchanged frame, got %+v", updated.Rect)
	}
	if updated.Confidence < 0.99 {
		t.Errorf("expected confidence near 1, got %v", updated.Confidence)
	}

	req = requestWithChiParams(httptest.NewRequest("DELETE", "/api/v1/trackers/"+created.ID, nil), map[string]string{"id": created.ID})
	recorder = httptest.NewRecorder()
	handler.Delete(recorder, req)
	if recorder.Code != http.StatusNoContent {
		t.Errorf("expected status %d, got %d", http.StatusNoContent, recorder.Code)
	}

	req = requestWithChiParams(httptest.NewRequest("PUT", "/api/v1/trackers/"+created.ID, bytes.NewReader(frame)), map[string]string{"id": created.ID})
	recorder = httptest.NewRecorder()
	handler.Update(recorder, req)
	if recorder.Code != http.StatusNotFound {
		t.Errorf("expected status %d after delete, got %d", http.StatusNotFound, recorder.Code)
	}
}

func TestTrackersHandler_Create_Invalid(t *testing.T) {
	handler := NewTrackersHandler(newTestService(t, false))
	defer handler.Close()

	tests := []struct {
		name  string
		query string
		body  []byte
		want  int
	}{
		{"missing rect", "", textured(t, 40, 40), http.StatusBadRequest},
		{"empty rect", "?left=10&top=10&right=10&bottom=20", textured(t, 40, 40), http.StatusBadRequest},
		{"bad image", "?left=0&top=0&right=10&bottom=10", []byte("nope"), http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/v1/trackers"+tc.query, bytes.NewReader(tc.body))
			recorder := httptest.NewRecorder()

			handler.Create(recorder, req)

			if recorder.Code != tc.want {
				t.Errorf("expected status %d, got %d: %s", tc.want, recorder.Code, recorder.Body.String())
			}
		})
	}
	if n := handler.sessions.Count(); n != 0 {
		t.Errorf("expected no sessions after failed creates, got %d", n)
	}
}

func TestTrackersHandler_Delete_Unknown(t *testing.T) {
	handler := NewTrackersHandler(newTestService(t, false))

	req := requestWithChiParams(httptest.NewRequest("DELETE", "/api/v1/trackers/nope", strings.NewReader("")), map[string]string{"id": "nope"})
	recorder := httptest.NewRecorder()
	handler.Delete(recorder, req)

	if recorder.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, recorder.Code)
	}
}

func TestTrackersHandler_ConcurrentCreateRespectsLimit(t *testing.T) {
	handler := NewTrackersHandler(newTestService(t, false))
	handler.limit = 4
	defer handler.Close()
	frame := textured(t, 100, 80)

	const callers = 16
	codes := make(chan int, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest("POST", "/api/v1/trackers?left=20&top=10&right=50&bottom=40", bytes.NewReader(frame))
			recorder := httptest.NewRecorder()
			handler.Create(recorder, req)
			codes <- recorder.Code
		}()
	}
	wg.Wait()
	close(codes)

	created, rejected := 0, 0
	for code := range codes {
		switch code {
		case http.StatusCreated:
			created++
		case http.StatusTooManyRequests:
			rejected++
		default:
			t.Errorf("unexpected status %d", code)
		}
	}
	if created != 4 || rejected != callers-4 {
		t.Errorf("expected 4 created and %d rejected, got %d and %d", callers-4, created, rejected)
	}
	if n := handler.sessions.Count(); n != 4 {
		t.Errorf("expected 4 sessions, got %d", n)
	}
}

func TestTrackersHandler_SlotsReleased(t *testing.T) {
	handler := NewTrackersHandler(newTestService(t, false))
	handler.limit = 1
	defer handler.Close()
	frame := textured(t, 100, 80)

	// A rectangle outside the frame fails to start.
	req := httptest.NewRequest("POST", "/api/v1/trackers?left=200&top=200&right=220&bottom=220", bytes.NewReader(frame))
	recorder := httptest.NewRecorder()
	handler.Create(recorder, req)
	if recorder.Code == http.StatusCreated {
		t.Fatal("expected create outside the frame to fail")
	}

	created := createTracker(t, handler, frame)

	req = httptest.NewRequest("POST", "/api/v1/trackers?left=20&top=10&right=50&bottom=40", bytes.NewReader(frame))
	recorder = httptest.NewRecorder()
	handler.Create(recorder, req)
	if recorder.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status %d at the limit, got %d", http.StatusTooManyRequests, recorder.Code)
	}

	req = requestWithChiParams(httptest.NewRequest("DELETE", "/api/v1/trackers/"+created.ID, nil), map[string]string{"id": created.ID})
	handler.Delete(httptest.NewRecorder(), req)

	createTracker(t, handler, frame)
}
