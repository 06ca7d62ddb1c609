// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"maps"
	"sync"

	"github.com/kozaktomas/facerec/internal/database"
)

// MockSampleRepository is an in-memory implementation of database.SampleWriter
type MockSampleRepository struct {
	mu      sync.RWMutex
	samples []database.StoredSample
	labels  map[int32]string

	// Error injection
	LoadError    error
	CountError   error
	LabelsError  error
	ReplaceError error
	SaveError    error

	ReplaceCalls int
}

var _ database.SampleWriter = (*MockSampleRepository)(nil)

// NewMockSampleRepository creates a new mock sample repository
func NewMockSampleRepository() *MockSampleRepository {
	return &MockSampleRepository{labels: make(map[int32]string)}
}

// LoadAll returns a copy of the stored samples
func (m *MockSampleRepository) LoadAll(ctx context.Context) ([]database.StoredSample, error) {
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]database.StoredSample, len(m.samples))
	copy(out, m.samples)
	return out, nil
}

// Count returns the number of stored samples
func (m *MockSampleRepository) Count(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.samples), nil
}

// Labels returns a copy of the stored labels
func (m *MockSampleRepository) Labels(ctx context.Context) (map[int32]string, error) {
	if m.LabelsError != nil {
		return nil, m.LabelsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.labels), nil
}

// ReplaceAll swaps the stored samples
func (m *MockSampleRepository) ReplaceAll(ctx context.Context, list []database.StoredSample) error {
	if m.ReplaceError != nil {
		return m.ReplaceError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replaceSamples(list)
	return nil
}

func (m *MockSampleRepository) replaceSamples(list []database.StoredSample) {
	m.ReplaceCalls++
	m.samples = make([]database.StoredSample, len(list))
	for i, s := range list {
		s.ID = int64(i + 1)
		s.Position = i
		m.samples[i] = s
	}
}

func (m *MockSampleRepository) replaceLabels(labels map[int32]string) {
	m.labels = maps.Clone(labels)
	if m.labels == nil {
		m.labels = make(map[int32]string)
	}
}

// SaveLabels replaces the stored labels
func (m *MockSampleRepository) SaveLabels(ctx context.Context, labels map[int32]string) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replaceLabels(labels)
	return nil
}

// ReplaceGallery swaps samples and labels together. An injected error leaves
// both unchanged, like a rolled back transaction.
func (m *MockSampleRepository) ReplaceGallery(ctx context.Context, list []database.StoredSample, labels map[int32]string) error {
	if m.ReplaceError != nil {
		return m.ReplaceError
	}
	if labels != nil && m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replaceSamples(list)
	if labels != nil {
		m.replaceLabels(labels)
	}
	return nil
}
