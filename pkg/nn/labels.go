package nn

// ObjectDetection is an object that a neural network has found in an image
type ObjectDetection struct {
	Class      int     `json:"class"`
	Confidence float32 `json:"confidence"`
	Box        Rect    `json:"box"`
}

// Returns the detection in the (x1, y1, x2, y2, confidence) form that detectors emit
func (o ObjectDetection) CornersAndConfidence() [5]float32 {
	c := o.Box.Corners()
	return [5]float32{c[0], c[1], c[2], c[3], o.Confidence}
}

// Return only the objects of the given class
func FilterClass(objects []ObjectDetection, class int) []ObjectDetection {
	out := []ObjectDetection{}
	for _, obj := range objects {
		if obj.Class == class {
			out = append(out, obj)
		}
	}
	return out
}
