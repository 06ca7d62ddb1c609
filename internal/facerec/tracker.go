package facerec

import (
	"image"

	"github.com/kozaktomas/facerec/internal/model"
	"github.com/kozaktomas/facerec/internal/tracker"
)

// Tracker follows one face across frames. It may be shared between
// goroutines; calls are serialised.
type Tracker struct {
	res *model.Resource[*tracker.Tracker]
}

// NewTracker returns an idle tracker.
func (s *Service) NewTracker() *Tracker {
	res := model.NewResource("tracker", func(string) (*tracker.Tracker, error) {
		return tracker.New(), nil
	})
	// The loader cannot fail.
	_ = res.Load("")
	return &Tracker{res: res}
}

// Start begins tracking rect in img.
func (t *Tracker) Start(img image.Image, rect image.Rectangle) error {
	if img == nil {
		return model.ImageDecodeError("image is nil", nil)
	}
	_, err := model.Invoke(t.res, func(tr *tracker.Tracker) (struct{}, error) {
		return struct{}{}, tr.Start(img, rect)
	})
	return boundary("track start", err)
}

// Update moves the tracker onto the next frame and returns the match confidence.
func (t *Tracker) Update(img image.Image) (float64, error) {
	if img == nil {
		return 0, model.ImageDecodeError("image is nil", nil)
	}
	conf, err := model.Invoke(t.res, func(tr *tracker.Tracker) (float64, error) {
		return tr.Update(img)
	})
	return conf, boundary("track update", err)
}

// Position returns the current tracked rectangle.
func (t *Tracker) Position() (image.Rectangle, error) {
	r, err := model.Invoke(t.res, func(tr *tracker.Tracker) (image.Rectangle, error) {
		return tr.Position()
	})
	return r, boundary("track position", err)
}

// Close releases the tracker.
func (t *Tracker) Close() error {
	return t.res.Close()
}
