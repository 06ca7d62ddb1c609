package imaging

import (
	"image"
	"sort"
)

// IoU returns the intersection over union of two rectangles.
func IoU(a, b image.Rectangle) float64 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}
	ia := area(inter)
	union := area(a) + area(b) - ia
	if union <= 0 {
		return 0
	}
	return ia / union
}

func area(r image.Rectangle) float64 {
	return float64(r.Dx()) * float64(r.Dy())
}

// Suppress performs non-maximum suppression. It returns the indices of the
// kept rectangles, highest score first. A rectangle is dropped when its IoU
// with an already kept one exceeds threshold.
func Suppress(rects []image.Rectangle, scores []float32, threshold float64) []int {
	n := min(len(rects), len(scores))
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return scores[order[i]] > scores[order[j]] })

	var kept []int
	for _, i := range order {
		overlaps := false
		for _, k := range kept {
			if IoU(rects[i], rects[k]) > threshold {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, i)
		}
	}
	return kept
}

// Pad grows r by frac of its size on every side.
func Pad(r image.Rectangle, frac float64) image.Rectangle {
	dx := int(float64(r.Dx()) * frac)
	dy := int(float64(r.Dy()) * frac)
	return image.Rect(r.Min.X-dx, r.Min.Y-dy, r.Max.X+dx, r.Max.Y+dy)
}

// Largest returns the index of the rectangle with the biggest area, or -1.
func Largest(rects []image.Rectangle) int {
	best, bestArea := -1, -1.0
	for i, r := range rects {
		if a := area(r); a > bestArea {
			best, bestArea = i, a
		}
	}
	return best
}
