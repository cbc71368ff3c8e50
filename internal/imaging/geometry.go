package imaging

import "image"

// BoundingBox is a face location in pixels: top-left corner plus size.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Valid reports whether the box has a positive size.
func (b BoundingBox) Valid() bool {
	return b.Width > 0 && b.Height > 0
}

// Rect returns the box as an image.Rectangle.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

// Area returns the box area in pixels, 0 for invalid boxes.
func (b BoundingBox) Area() int {
	if !b.Valid() {
		return 0
	}
	return b.Width * b.Height
}

// ClampTo intersects the box with bounds. Detectors may report boxes that
// start at negative coordinates or extend past the image edge.
func (b BoundingBox) ClampTo(bounds image.Rectangle) (image.Rectangle, bool) {
	r := b.Rect().Intersect(bounds)
	return r, !r.Empty()
}

// IoU calculates Intersection over Union between two boxes.
func IoU(a, b BoundingBox) float64 {
	if !a.Valid() || !b.Valid() {
		return 0
	}

	inter := a.Rect().Intersect(b.Rect())
	if inter.Empty() {
		return 0 // No intersection
	}
	intersection := float64(inter.Dx() * inter.Dy())

	union := float64(a.Area()+b.Area()) - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}
