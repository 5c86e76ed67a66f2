package geom

// Point is a position in screen coordinates.
type Point struct {
	X int
	Y int
}

// Size is a width/height pair in pixels.
type Size struct {
	Width  int
	Height int
}

// Rect describes a rectangular region in screen coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Origin returns the top-left corner of r.
func (r Rect) Origin() Point {
	return Point{X: r.X, Y: r.Y}
}

// Dim returns the size of r.
func (r Rect) Dim() Size {
	return Size{Width: r.Width, Height: r.Height}
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Contains reports whether the point (x, y) lies inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// Intersect returns the intersection of r and o, or a zero Rect when they
// do not overlap.
func (r Rect) Intersect(o Rect) Rect {
	x1 := max(r.X, o.X)
	y1 := max(r.Y, o.Y)
	x2 := min(r.X+r.Width, o.X+o.Width)
	y2 := min(r.Y+r.Height, o.Y+o.Height)

	if x2 <= x1 || y2 <= y1 {
		return Rect{}
	}
	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// Overlap returns the overlapping area of r and o in square pixels.
func (r Rect) Overlap(o Rect) int {
	isect := r.Intersect(o)
	return isect.Width * isect.Height
}

// Inset shrinks r by px on all four sides. Width and height never go
// below 1.
func (r Rect) Inset(px int) Rect {
	out := Rect{
		X:      r.X + px,
		Y:      r.Y + px,
		Width:  r.Width - 2*px,
		Height: r.Height - 2*px,
	}
	if out.Width < 1 {
		out.Width = 1
	}
	if out.Height < 1 {
		out.Height = 1
	}
	return out
}
