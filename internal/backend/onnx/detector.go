package onnx

import (
	"fmt"
	"image"

	"github.com/kozaktomas/facerec/internal/imaging"
)

const (
	defaultScoreThreshold = 0.7
	defaultNMSThreshold   = 0.3
)

// Detector is an anchor-free CNN face detector producing normalised boxes
// and two-class scores per prior (Ultra-Light-Fast style outputs).
type Detector struct {
	net       *network
	scores    int
	boxes     int
	Threshold float32
	NMS       float64
}

// LoadDetector opens a CNN face detector.
func LoadDetector(path string) (*Detector, error) {
	net, err := openNetwork(path, 320)
	if err != nil {
		return nil, err
	}
	d := &Detector{net: net, scores: -1, boxes: -1, Threshold: defaultScoreThreshold, NMS: defaultNMSThreshold}
	for i, shape := range net.shapes {
		switch shape[len(shape)-1] {
		case 2:
			d.scores = i
		case 4:
			d.boxes = i
		}
	}
	if d.scores < 0 || d.boxes < 0 {
		_ = net.Close()
		return nil, fmt.Errorf("detector model %s needs score (..x2) and box (..x4) outputs", path)
	}
	return d, nil
}

// Detect returns face rectangles in img coordinates, most confident first.
func (d *Detector) Detect(img image.Image) ([]image.Rectangle, error) {
	res, err := d.net.run(img, img.Bounds(), symmetric)
	if err != nil {
		return nil, err
	}
	rects, scores := decodeBoxes(res[d.scores], res[d.boxes], img.Bounds(), d.Threshold)
	keep := imaging.Suppress(rects, scores, d.NMS)

	out := make([]image.Rectangle, len(keep))
	for i, k := range keep {
		out[i] = rects[k]
	}
	return out, nil
}

func (d *Detector) Close() error { return d.net.Close() }

// decodeBoxes turns per-prior [background, face] scores and normalised
// [x1, y1, x2, y2] boxes into rectangles inside bounds.
func decodeBoxes(scores, boxes []float32, bounds image.Rectangle, threshold float32) ([]image.Rectangle, []float32) {
	n := min(len(scores)/2, len(boxes)/4)
	w, h := float32(bounds.Dx()), float32(bounds.Dy())

	var rects []image.Rectangle
	var conf []float32
	for i := range n {
		s := scores[2*i+1]
		if s < threshold {
			continue
		}
		b := boxes[4*i : 4*i+4]
		r := image.Rect(
			bounds.Min.X+int(b[0]*w), bounds.Min.Y+int(b[1]*h),
			bounds.Min.X+int(b[2]*w), bounds.Min.Y+int(b[3]*h),
		).Intersect(bounds)
		if r.Empty() {
			continue
		}
		rects = append(rects, r)
		conf = append(conf, s)
	}
	return rects, conf
}
