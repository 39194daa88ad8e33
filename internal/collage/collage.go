// Package collage computes grid geometry for multi-image segments. The
// layout is pure arithmetic; compositing happens in the ffmpeg layer.
package collage

// Orientation classifies a source image's shape.
type Orientation string

const (
	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"
	Square    Orientation = "square"
	Unknown   Orientation = "unknown"
)

// aspect ratio slack before a dimension difference counts as an orientation
const orientationThreshold = 1.1

// Classify derives an orientation from probed dimensions. Unresolvable
// dimensions yield Unknown, which degrades to the row-major fallback.
func Classify(width, height int) Orientation {
	if width <= 0 || height <= 0 {
		return Unknown
	}
	w, h := float64(width), float64(height)
	if h > w*orientationThreshold {
		return Portrait
	}
	if w > h*orientationThreshold {
		return Landscape
	}
	return Square
}

// Position is one cell's top-left corner on the canvas.
type Position struct {
	X int
	Y int
}

// Layout is the derived grid geometry for one collage render.
type Layout struct {
	Cols       int
	Rows       int
	CellWidth  int
	CellHeight int
	Padding    int
	Positions  []Position
}

// DefaultPadding scales the gutter with the canvas.
func DefaultPadding(width, height int) int {
	min := width
	if height < min {
		min = height
	}
	padding := min / 40
	if padding < 20 {
		padding = 20
	}
	return padding
}

// Compute determines the grid shape and per-cell placement for the given
// image orientations on a width x height canvas. Shape rules: two
// landscapes stack into a column, any other pair sits side by side, three
// and four images share a 2x2 grid (the third centered under the first
// two), five or more fill rows of up to three.
func Compute(orientations []Orientation, width, height, padding int) Layout {
	count := len(orientations)
	if padding <= 0 {
		padding = DefaultPadding(width, height)
	}

	var cols, rows int
	switch {
	case count <= 1:
		cols, rows = 1, 1
	case count == 2:
		if orientations[0] == Landscape && orientations[1] == Landscape {
			cols, rows = 1, 2
		} else {
			cols, rows = 2, 1
		}
	case count <= 4:
		cols, rows = 2, 2
	default:
		cols = 3
		if count < cols {
			cols = count
		}
		rows = (count + cols - 1) / cols
	}

	cellW, cellH := cellSize(width, height, cols, rows, padding)

	return Layout{
		Cols:       cols,
		Rows:       rows,
		CellWidth:  cellW,
		CellHeight: cellH,
		Padding:    padding,
		Positions:  positions(count, cols, cellW, cellH, padding),
	}
}

func cellSize(width, height, cols, rows, padding int) (int, int) {
	usableW := width - padding*(cols+1)
	usableH := height - padding*(rows+1)
	cellW := usableW / cols
	cellH := usableH / rows
	if cellW < 1 {
		cellW = 1
	}
	if cellH < 1 {
		cellH = 1
	}
	return cellW, cellH
}

func positions(count, cols, cellW, cellH, padding int) []Position {
	colX := func(col int) int { return padding + col*(cellW+padding) }
	rowY := func(row int) int { return padding + row*(cellH+padding) }

	if count == 3 {
		// Center the third cell under the top pair.
		contentWidth := cols*cellW + (cols-1)*padding
		centerX := padding + (contentWidth-cellW)/2
		return []Position{
			{colX(0), rowY(0)},
			{colX(1), rowY(0)},
			{centerX, rowY(1)},
		}
	}

	result := make([]Position, 0, count)
	for i := 0; i < count; i++ {
		result = append(result, Position{colX(i % cols), rowY(i / cols)})
	}
	return result
}
