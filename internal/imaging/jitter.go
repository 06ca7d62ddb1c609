package imaging

import (
	"image"
	"math"
	"math/rand/v2"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

const (
	jitterZoom      = 0.1
	jitterRotate    = 3 * math.Pi / 180
	jitterTranslate = 0.02
)

// Jitter returns n copies of chip, each randomly zoomed, rotated, translated
// and possibly mirrored left to right.
func Jitter(chip image.Image, n int, rnd *rand.Rand) []*image.RGBA {
	b := chip.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	cx, cy := float64(b.Min.X)+w/2, float64(b.Min.Y)+h/2

	crops := make([]*image.RGBA, 0, n)
	for range n {
		s := 1 + (rnd.Float64()*2-1)*jitterZoom
		theta := (rnd.Float64()*2 - 1) * jitterRotate
		tx := (rnd.Float64()*2 - 1) * jitterTranslate * w
		ty := (rnd.Float64()*2 - 1) * jitterTranslate * h
		mirror := 1.0
		if rnd.IntN(2) == 1 {
			mirror = -1
		}

		cos, sin := s*math.Cos(theta), s*math.Sin(theta)
		a00, a01 := mirror*cos, -sin
		a10, a11 := mirror*sin, cos
		m := f64.Aff3{
			a00, a01, cx + tx - (a00*cx + a01*cy),
			a10, a11, cy + ty - (a10*cx + a11*cy),
		}

		dst := image.NewRGBA(b)
		draw.BiLinear.Transform(dst, m, chip, b, draw.Src, nil)
		crops = append(crops, dst)
	}
	return crops
}
