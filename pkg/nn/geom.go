package nn

// Rect is an axis-aligned box in image coordinates.
// We store the corners exactly as the detector emits them, so that width and height
// are always computed from the original values (x2 - x1), and never accumulate rounding.
type Rect struct {
	X1 float32 `json:"x1"`
	Y1 float32 `json:"y1"`
	X2 float32 `json:"x2"`
	Y2 float32 `json:"y2"`
}

// Create a rect from its top-left and bottom-right corners
func RectFromCorners(x1, y1, x2, y2 float32) Rect {
	return Rect{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

func (r Rect) Width() float32 {
	return r.X2 - r.X1
}

func (r Rect) Height() float32 {
	return r.Y2 - r.Y1
}

// Returns [x1, y1, x2, y2]
func (r Rect) Corners() [4]float32 {
	return [4]float32{r.X1, r.Y1, r.X2, r.Y2}
}

// Multiply x coordinates by sx, and y coordinates by sy.
// Used to map boxes from a downscaled image back to the original image.
func (r Rect) Scale(sx, sy float32) Rect {
	return Rect{
		X1: r.X1 * sx,
		Y1: r.Y1 * sy,
		X2: r.X2 * sx,
		Y2: r.Y2 * sy,
	}
}
