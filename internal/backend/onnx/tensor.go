package onnx

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// fillNCHW writes the sr region of img, scaled to w x h, into dst as three
// planar RGB channels.
func fillNCHW(dst []float32, img image.Image, sr image.Rectangle, w, h int, norm normalization) {
	src := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(src, src.Bounds(), img, sr, draw.Src, nil)

	plane := w * h
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			o := src.PixOffset(x, y)
			i := y*w + x
			dst[i] = (float32(src.Pix[o]) - norm.mean) / norm.std
			dst[plane+i] = (float32(src.Pix[o+1]) - norm.mean) / norm.std
			dst[2*plane+i] = (float32(src.Pix[o+2]) - norm.mean) / norm.std
		}
	}
}

// probabilities returns v as a distribution. Outputs that already look like
// one are copied, anything else goes through softmax.
func probabilities(v []float32) []float32 {
	out := make([]float32, len(v))
	if len(v) == 0 {
		return out
	}
	var sum float64
	negative := false
	for _, x := range v {
		sum += float64(x)
		if x < 0 {
			negative = true
		}
	}
	if !negative && math.Abs(sum-1) < 1e-3 {
		copy(out, v)
		return out
	}

	maxV := float64(v[0])
	for _, x := range v[1:] {
		maxV = math.Max(maxV, float64(x))
	}
	sum = 0
	for i, x := range v {
		e := math.Exp(float64(x) - maxV)
		out[i] = float32(e)
		sum += e
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / sum)
	}
	return out
}
