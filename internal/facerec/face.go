package facerec

import (
	"image"
	"sync"

	"github.com/google/uuid"
	"github.com/kozaktomas/facerec/internal/imaging"
)

// Face is one detected face. It keeps the frame it was found on and caches
// its landmarks, so recognition, gender and age reuse a single landmark
// pass. A Face belongs to the caller that obtained it.
type Face struct {
	ID        string          `json:"id"`
	Rectangle image.Rectangle `json:"rect"`

	frame     image.Image
	frameRect image.Rectangle
	scale     int

	mu     sync.Mutex
	shape  imaging.Shape
	shaped bool
}

func newFace(frame image.Image, frameRect image.Rectangle, scale int) *Face {
	return &Face{
		ID:        uuid.NewString(),
		Rectangle: imaging.Downscale(frameRect, scale),
		frame:     frame,
		frameRect: frameRect,
		scale:     scale,
	}
}

// Shape returns the cached landmarks in image coordinates, or nil if they
// were not computed yet.
func (f *Face) Shape() imaging.Shape {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.shaped {
		return nil
	}
	return f.shape.Scale(f.scale)
}
