package onnx

import (
	"fmt"
	"image"

	"github.com/kozaktomas/facerec/internal/imaging"
)

// landmarkPadding widens the face box before the crop fed to the regressor.
const landmarkPadding = 0.1

// Landmarks regresses five facial points from a face crop.
type Landmarks struct {
	net *network
}

// LoadLandmarks opens a five point landmark regressor with outputs
// [x0, y0, ... x4, y4] normalised to the crop.
func LoadLandmarks(path string) (*Landmarks, error) {
	net, err := openNetwork(path, 112)
	if err != nil {
		return nil, err
	}
	if got := len(net.outputs[0].GetData()); got != 2*imaging.FivePoints {
		_ = net.Close()
		return nil, fmt.Errorf("landmark model %s produces %d values, expected %d", path, got, 2*imaging.FivePoints)
	}
	return &Landmarks{net: net}, nil
}

// Predict returns the landmarks of the face in rect, in img coordinates.
func (l *Landmarks) Predict(img image.Image, rect image.Rectangle) (imaging.Shape, error) {
	crop := imaging.Pad(rect, landmarkPadding).Intersect(img.Bounds())
	if crop.Empty() {
		return nil, fmt.Errorf("face %v is outside the image", rect)
	}
	res, err := l.net.run(img, crop, unit)
	if err != nil {
		return nil, err
	}
	return toShape(res[0], crop), nil
}

func (l *Landmarks) Close() error { return l.net.Close() }

func toShape(v []float32, crop image.Rectangle) imaging.Shape {
	shape := make(imaging.Shape, len(v)/2)
	w, h := float32(crop.Dx()), float32(crop.Dy())
	for i := range shape {
		shape[i] = image.Pt(crop.Min.X+int(v[2*i]*w+0.5), crop.Min.Y+int(v[2*i+1]*h+0.5))
	}
	return shape
}
