package imaging

import (
	"image"

	"golang.org/x/image/draw"
)

// MaxUpsampleArea caps the area Upsample aims for, 16 megapixels.
const MaxUpsampleArea = 4096 * 4096

// Upsample doubles the image size until its area reaches minArea and returns
// the result with the total scale factor. minArea <= 0 disables upsampling;
// larger values than MaxUpsampleArea are lowered to it.
func Upsample(img image.Image, minArea int) (image.Image, int) {
	b := img.Bounds()
	if b.Empty() {
		return img, 1
	}

	w, h, scale := upsampleSize(b.Dx(), b.Dy(), minArea)
	if scale == 1 {
		return img, 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst, scale
}

// Downscale maps a rectangle found on an upsampled frame back to the source image.
func Downscale(r image.Rectangle, scale int) image.Rectangle {
	if scale <= 1 {
		return r
	}
	return image.Rect(r.Min.X/scale, r.Min.Y/scale, r.Max.X/scale, r.Max.Y/scale)
}

// upsampleSize returns the doubled size of a w x h image whose area first
// reaches min(minArea, MaxUpsampleArea), and the scale factor.
func upsampleSize(w, h, minArea int) (int, int, int) {
	if minArea <= 0 || w <= 0 || h <= 0 {
		return w, h, 1
	}
	target := int64(min(minArea, MaxUpsampleArea))
	scale := 1
	for int64(w)*int64(h) < target {
		w, h, scale = w*2, h*2, scale*2
	}
	return w, h, scale
}

// Resize scales img to exactly w x h.
func Resize(img image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// Gray converts img to an 8-bit luminance image with origin at (0, 0).
func Gray(img image.Image) *image.Gray {
	b := img.Bounds()
	if g, ok := img.(*image.Gray); ok && b.Min == (image.Point{}) && g.Stride == b.Dx() {
		return g
	}
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(g, g.Bounds(), img, b.Min, draw.Src)
	return g
}
