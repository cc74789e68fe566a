// Package nn is a Neural Network interface layer.
// To load a model, use the nnload package.
package nn

import (
	"context"
	"time"
)

// DefaultProbabilityThreshold is the minimum (exclusive) confidence for a detection to be kept
const DefaultProbabilityThreshold = 0.3

// Image formats understood by detectors
const (
	ImageFormatJPEG = "jpeg"
	ImageFormatPNG  = "png"
)

// NN object detection parameters.
// Detectors return every box they find. Confidence filtering is up to the caller.
type DetectionParams struct {
	Classes []int // If not empty, only these classes are returned
}

// Create a default DetectionParams object
func NewDetectionParams() *DetectionParams {
	return &DetectionParams{}
}

// Return true if the class passes the class filter
func (p *DetectionParams) WantClass(class int) bool {
	if len(p.Classes) == 0 {
		return true
	}
	for _, c := range p.Classes {
		if c == class {
			return true
		}
	}
	return false
}

// EncodedImage is a compressed image (eg a JPEG file), along with its dimensions.
// Detectors that live outside of our process receive the image in this form, so that
// we don't pay the cost of shipping raw pixels around.
type EncodedImage struct {
	Format string // eg "jpeg"
	Data   []byte
	Width  int
	Height int
}

// ObjectDetector is given an image, and returns zero or more detected objects
type ObjectDetector interface {
	// Close releases the model (you MUST call this when finished, because the model may be
	// held by a remote process)
	Close()

	// DetectObjects returns a list of objects detected in the image.
	// Box coordinates are relative to the image as it was given to the detector.
	DetectObjects(ctx context.Context, img EncodedImage, params *DetectionParams) ([]ObjectDetection, error)

	// Model Config.
	// Callers assume that ModelConfig will remain constant, so don't change it
	// once the detector has been created.
	Config() *ModelConfig
}

// InferenceTimer is implemented by detectors that can report how long the model itself took,
// excluding transport overhead.
type InferenceTimer interface {
	LastInferenceTime() time.Duration
}

// ModelConfig describes a loaded model
type ModelConfig struct {
	Architecture string   `json:"architecture"` // eg "faster_rcnn"
	Width        int      `json:"width"`        // Model input width, or zero if the model accepts any size
	Height       int      `json:"height"`       // Model input height, or zero if the model accepts any size
	Classes      []string `json:"classes"`      // eg ["person", "bicycle", "car", ...]
}

// Return the index of the named class in the model, or -1 if the model doesn't know the class.
// If the model doesn't publish a class list, then we assume COCO.
func (c *ModelConfig) ClassIndex(name string) int {
	classes := c.Classes
	if len(classes) == 0 {
		classes = COCOClasses
	}
	return ClassIndex(classes, name)
}
