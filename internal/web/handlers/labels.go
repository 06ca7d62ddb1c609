package handlers

import (
	"sync"

	"github.com/kozaktomas/facerec/internal/gallery"
)

// LabelBook holds the category names shown next to classification results.
// It is replaced together with the samples.
type LabelBook struct {
	mu     sync.RWMutex
	labels gallery.Labels
}

// NewLabelBook creates a label book with the given labels.
func NewLabelBook(labels gallery.Labels) *LabelBook {
	return &LabelBook{labels: labels}
}

// Set replaces all labels.
func (b *LabelBook) Set(labels gallery.Labels) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.labels = labels
}

// Name returns the name of category cat, or "unknown".
func (b *LabelBook) Name(cat int) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.labels.Name(cat)
}
