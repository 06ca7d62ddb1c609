// Package pigo detects frontal faces with a pixel intensity comparison cascade.
package pigo

import (
	"fmt"
	"image"
	"os"

	pigo "github.com/esimov/pigo/core"
	"github.com/kozaktomas/facerec/internal/imaging"
)

// minCascadeSize covers the cascade header: version, tree depth and tree count.
const minCascadeSize = 16

// Detector runs a pigo face cascade.
type Detector struct {
	classifier *pigo.Pigo

	MinSize     int
	MaxSize     int
	ShiftFactor float64
	ScaleFactor float64
	// MinQuality drops detections scoring below it.
	MinQuality float32
	// IoU is the clustering threshold for overlapping detections.
	IoU float64
}

// Load reads a pigo cascade file.
func Load(path string) (*Detector, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cascade: %w", err)
	}
	return New(data)
}

// New unpacks a cascade from its binary form.
func New(cascade []byte) (*Detector, error) {
	if len(cascade) < minCascadeSize {
		return nil, fmt.Errorf("cascade too short (%d bytes)", len(cascade))
	}
	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack cascade: %w", err)
	}
	return &Detector{
		classifier:  classifier,
		MinSize:     20,
		MaxSize:     1000,
		ShiftFactor: 0.1,
		ScaleFactor: 1.1,
		MinQuality:  5,
		IoU:         0.2,
	}, nil
}

// Detect returns square face rectangles in img coordinates.
func (d *Detector) Detect(img image.Image) ([]image.Rectangle, error) {
	g := imaging.Gray(img)
	b := g.Bounds()
	params := pigo.CascadeParams{
		MinSize:     d.MinSize,
		MaxSize:     min(d.MaxSize, max(b.Dx(), b.Dy())),
		ShiftFactor: d.ShiftFactor,
		ScaleFactor: d.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: g.Pix,
			Rows:   b.Dy(),
			Cols:   b.Dx(),
			Dim:    g.Stride,
		},
	}

	dets := d.classifier.RunCascade(params, 0)
	dets = d.classifier.ClusterDetections(dets, d.IoU)

	origin := img.Bounds().Min
	var rects []image.Rectangle
	for _, det := range dets {
		if det.Q < d.MinQuality {
			continue
		}
		half := det.Scale / 2
		r := image.Rect(det.Col-half, det.Row-half, det.Col+half, det.Row+half).Add(origin)
		if r = r.Intersect(img.Bounds()); !r.Empty() {
			rects = append(rects, r)
		}
	}
	return rects, nil
}
