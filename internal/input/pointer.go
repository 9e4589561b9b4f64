package input

const (
	cornerZone = 0.15
	sideZone   = 0.15
)

// PointerRouter interprets pointer positions inside the book area for the
// configured flip mode.
type PointerRouter struct {
	Mode FlipMode
}

// Click handles a click in click mode: the right half goes forward, the
// left half back. Other modes ignore clicks.
func (r PointerRouter) Click(x, width float64) (Command, bool) {
	if r.Mode != FlipClick || width <= 0 {
		return None, false
	}
	if x > width/2 {
		return NextPage, true
	}

	return PrevPage, true
}

// DragZone reports whether a press at (x, y) starts a drag and in which
// direction, as NextPage or PrevPage.
func (r PointerRouter) DragZone(x, y, width, height float64) (Command, bool) {
	if width <= 0 || height <= 0 || x < 0 || y < 0 || x > width || y > height {
		return None, false
	}

	left := x <= width*sideZone
	right := x >= width*(1-sideZone)

	switch r.Mode {
	case FlipSide:
	case FlipCorner:
		if y > height*cornerZone && y < height*(1-cornerZone) {
			return None, false
		}
		left = x <= width*cornerZone
		right = x >= width*(1-cornerZone)
	default:
		return None, false
	}

	switch {
	case right:
		return NextPage, true
	case left:
		return PrevPage, true
	}

	return None, false
}
