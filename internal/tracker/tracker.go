// Package tracker follows a single object across frames by normalised
// cross-correlation of a grey level template.
package tracker

import (
	"errors"
	"image"
	"math"

	"github.com/kozaktomas/facerec/internal/imaging"
)

var (
	// ErrNotStarted is returned by Update and Position before Start.
	ErrNotStarted = errors.New("tracker not started")
	// ErrEmptyRect is returned by Start when the rectangle has no pixels inside the image.
	ErrEmptyRect = errors.New("tracking rectangle is empty")
)

// State is the tracker lifecycle state.
type State int

const (
	Idle State = iota
	Tracking
)

func (s State) String() string {
	if s == Tracking {
		return "tracking"
	}
	return "idle"
}

// Tracker is not safe for concurrent use.
type Tracker struct {
	state    State
	rect     image.Rectangle
	template *image.Gray

	// Margin is the search window growth around the last position, as a
	// fraction of the object size.
	Margin float64
}

// New returns an idle tracker.
func New() *Tracker {
	return &Tracker{Margin: 0.5}
}

// State returns the current state.
func (t *Tracker) State() State { return t.state }

// Start begins tracking the object inside rect of img.
func (t *Tracker) Start(img image.Image, rect image.Rectangle) error {
	g := imaging.Gray(img)
	rect = rect.Sub(img.Bounds().Min).Intersect(g.Bounds())
	if rect.Empty() {
		return ErrEmptyRect
	}
	t.template = patch(g, rect)
	t.rect = rect
	t.state = Tracking
	return nil
}

// Update locates the object in the next frame and returns the correlation
// score of the match, between -1 and 1.
func (t *Tracker) Update(img image.Image) (float64, error) {
	if t.state != Tracking {
		return 0, ErrNotStarted
	}
	g := imaging.Gray(img)
	w, h := t.rect.Dx(), t.rect.Dy()
	if g.Bounds().Dx() < w || g.Bounds().Dy() < h {
		return 0, ErrEmptyRect
	}

	mx := int(float64(w) * t.Margin)
	my := int(float64(h) * t.Margin)
	minX, maxX := clamp(t.rect.Min.X-mx, 0, g.Bounds().Dx()-w), clamp(t.rect.Min.X+mx, 0, g.Bounds().Dx()-w)
	minY, maxY := clamp(t.rect.Min.Y-my, 0, g.Bounds().Dy()-h), clamp(t.rect.Min.Y+my, 0, g.Bounds().Dy()-h)

	// Coarse grid first, then a full resolution pass around the best cell.
	step := max(1, min(w, h)/16)
	best, bestScore := t.rect.Min, math.Inf(-1)
	search := func(x0, x1, y0, y1, s int) {
		for y := y0; y <= y1; y += s {
			for x := x0; x <= x1; x += s {
				if score := ncc(g, t.template, x, y); score > bestScore {
					best, bestScore = image.Pt(x, y), score
				}
			}
		}
	}
	search(minX, maxX, minY, maxY, step)
	if step > 1 {
		c := best
		search(max(minX, c.X-step), min(maxX, c.X+step), max(minY, c.Y-step), min(maxY, c.Y+step), 1)
	}

	t.rect = image.Rectangle{Min: best, Max: best.Add(image.Pt(w, h))}
	t.template = patch(g, t.rect)
	return bestScore, nil
}

// Position returns the last known object rectangle.
func (t *Tracker) Position() (image.Rectangle, error) {
	if t.state != Tracking {
		return image.Rectangle{}, ErrNotStarted
	}
	return t.rect, nil
}

// Close resets the tracker to Idle.
func (t *Tracker) Close() error {
	t.state = Idle
	t.template = nil
	t.rect = image.Rectangle{}
	return nil
}

func patch(g *image.Gray, r image.Rectangle) *image.Gray {
	p := image.NewGray(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := 0; y < r.Dy(); y++ {
		copy(p.Pix[y*p.Stride:y*p.Stride+r.Dx()], g.Pix[g.PixOffset(r.Min.X, r.Min.Y+y):])
	}
	return p
}

// ncc scores tpl placed at (x, y) in g. Flat regions score 0.
func ncc(g, tpl *image.Gray, x, y int) float64 {
	w, h := tpl.Rect.Dx(), tpl.Rect.Dy()
	n := float64(w * h)

	var sa, sb, saa, sbb, sab float64
	for j := 0; j < h; j++ {
		row := g.Pix[g.PixOffset(x, y+j):]
		trow := tpl.Pix[j*tpl.Stride:]
		for i := 0; i < w; i++ {
			a, b := float64(row[i]), float64(trow[i])
			sa += a
			sb += b
			saa += a * a
			sbb += b * b
			sab += a * b
		}
	}

	cov := sab - sa*sb/n
	va := saa - sa*sa/n
	vb := sbb - sb*sb/n
	if va <= 0 || vb <= 0 {
		if va <= 0 && vb <= 0 && sa == sb {
			return 1
		}
		return 0
	}
	return cov / math.Sqrt(va*vb)
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return min(max(v, lo), hi)
}
