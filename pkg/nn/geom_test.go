package nn

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCorners(t *testing.T) {
	r := RectFromCorners(10, 20, 30, 50)
	require.Equal(t, float32(20), r.Width())
	require.Equal(t, float32(30), r.Height())
	require.Equal(t, [4]float32{10, 20, 30, 50}, r.Corners())
}

func TestScale(t *testing.T) {
	r := RectFromCorners(10, 20, 30, 50).Scale(2, 2)
	require.Equal(t, [4]float32{20, 40, 60, 100}, r.Corners())

	// Axes scale independently
	r = RectFromCorners(10, 20, 30, 50).Scale(1.5, 2)
	require.Equal(t, [4]float32{15, 40, 45, 100}, r.Corners())
}

func TestClassIndex(t *testing.T) {
	require.Equal(t, COCOPerson, ClassIndex(COCOClasses, "person"))
	require.Equal(t, 2, ClassIndex(COCOClasses, "car"))
	require.Equal(t, -1, ClassIndex(COCOClasses, "unicorn"))

	cfg := &ModelConfig{}
	require.Equal(t, COCOPerson, cfg.ClassIndex("person"))
	cfg.Classes = []string{"background", "person"}
	require.Equal(t, 1, cfg.ClassIndex("person"))
}

func TestFilterClass(t *testing.T) {
	objs := []ObjectDetection{
		{Class: COCOPerson, Confidence: 0.9},
		{Class: 2, Confidence: 0.8},
		{Class: COCOPerson, Confidence: 0.1},
	}
	people := FilterClass(objs, COCOPerson)
	require.Len(t, people, 2)
	require.Equal(t, float32(0.1), people[1].Confidence)
	require.Empty(t, FilterClass(nil, COCOPerson))
	require.NotNil(t, FilterClass(nil, COCOPerson))

	obj := ObjectDetection{Class: COCOPerson, Confidence: 0.75, Box: RectFromCorners(1, 2, 3, 4)}
	require.Equal(t, [5]float32{1, 2, 3, 4, 0.75}, obj.CornersAndConfidence())

	params := NewDetectionParams()
	require.True(t, params.WantClass(5))
	params.Classes = []int{COCOPerson}
	require.True(t, params.WantClass(COCOPerson))
	require.False(t, params.WantClass(5))
}
