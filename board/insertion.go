package board

import "math"

// Box is the vertical extent of a rendered item.
type Box struct {
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
}

// InsertionIndex returns where a dragged item lands for pointer position y:
// before the item whose midpoint is the closest one below the pointer, or at
// the end when the pointer is below every item.
func InsertionIndex(boxes []Box, y float64) int {
	best, bestOffset := len(boxes), math.Inf(-1)
	for i, b := range boxes {
		offset := y - b.Top - b.Height/2
		if offset < 0 && offset > bestOffset {
			best, bestOffset = i, offset
		}
	}
	return best
}
