package imaging

import (
	"image"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Shape is an ordered list of facial landmarks.
//
// Five point shapes are ordered left eye, right eye, nose tip, left mouth
// corner, right mouth corner, as seen in the image.
type Shape []image.Point

// FivePoints is the landmark count used for alignment.
const FivePoints = 5

// canonical holds the five landmark positions of an aligned face in unit
// chip coordinates, without padding.
var canonical = [FivePoints][2]float64{
	{0.3419, 0.4616},
	{0.6565, 0.4598},
	{0.5002, 0.6405},
	{0.3710, 0.8247},
	{0.6315, 0.8232},
}

// Rect returns the bounding box of the landmarks.
func (s Shape) Rect() image.Rectangle {
	if len(s) == 0 {
		return image.Rectangle{}
	}
	r := image.Rectangle{Min: s[0], Max: s[0].Add(image.Pt(1, 1))}
	for _, p := range s[1:] {
		r = r.Union(image.Rectangle{Min: p, Max: p.Add(image.Pt(1, 1))})
	}
	return r
}

// Scale divides all landmark coordinates by factor.
func (s Shape) Scale(factor int) Shape {
	if factor <= 1 {
		return s
	}
	out := make(Shape, len(s))
	for i, p := range s {
		out[i] = p.Div(factor)
	}
	return out
}

// ExtractChip returns a size x size aligned face crop. A five point shape is
// aligned with a similarity transform onto the canonical layout; any other
// shape falls back to a padded crop of its bounding box, and an empty shape
// to a padded crop of rect.
func ExtractChip(img image.Image, shape Shape, rect image.Rectangle, size int, padding float64) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))

	if len(shape) == FivePoints {
		if m, ok := alignment(shape, size, padding); ok {
			draw.BiLinear.Transform(dst, m, img, img.Bounds(), draw.Src, nil)
			return dst
		}
	}

	box := rect
	if len(shape) > 0 {
		box = shape.Rect()
	}
	box = Pad(box, padding)
	if box.Empty() {
		return dst
	}
	draw.BiLinear.Scale(dst, dst.Bounds(), img, box, draw.Src, nil)
	return dst
}

// alignment fits a least squares similarity transform from the landmarks to
// the padded canonical layout. ok is false for degenerate shapes.
func alignment(shape Shape, size int, padding float64) (f64.Aff3, bool) {
	span := 1 + 2*padding
	var src, dst [FivePoints][2]float64
	var sx, sy, dx, dy float64
	for i := range FivePoints {
		src[i] = [2]float64{float64(shape[i].X), float64(shape[i].Y)}
		dst[i] = [2]float64{
			(canonical[i][0] + padding) / span * float64(size),
			(canonical[i][1] + padding) / span * float64(size),
		}
		sx += src[i][0]
		sy += src[i][1]
		dx += dst[i][0]
		dy += dst[i][1]
	}
	sx, sy, dx, dy = sx/FivePoints, sy/FivePoints, dx/FivePoints, dy/FivePoints

	var norm, dot, cross float64
	for i := range FivePoints {
		ux, uy := src[i][0]-sx, src[i][1]-sy
		vx, vy := dst[i][0]-dx, dst[i][1]-dy
		norm += ux*ux + uy*uy
		dot += ux*vx + uy*vy
		cross += ux*vy - uy*vx
	}
	if norm == 0 {
		return f64.Aff3{}, false
	}

	a, b := dot/norm, cross/norm
	return f64.Aff3{
		a, -b, dx - (a*sx - b*sy),
		b, a, dy - (b*sx + a*sy),
	}, true
}
