// Package posetrack reads PoseTrack-style annotation files, and reads and writes the
// per-video detection files that pose estimators consume.
package posetrack

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	// ErrMalformedAnnotation is returned when an annotation file is not valid JSON, or doesn't have the expected shape
	ErrMalformedAnnotation = errors.New("malformed annotation file")

	// ErrNoFrames is returned when an annotation file has no frames, so we can't tell where its images live
	ErrNoFrames = errors.New("annotation has no frames")
)

// Annotation is the ground truth file for a single video.
// We only read the frame list. Everything else in the file is ignored.
type Annotation struct {
	AnnoList []AnnotatedFrame `json:"annolist"`
}

type AnnotatedFrame struct {
	Image []AnnotatedImage `json:"image"`
}

type AnnotatedImage struct {
	Name string `json:"name"` // eg "images/val/000342_mpii_test/000000.jpg"
}

// Load and parse an annotation file
func LoadAnnotation(filename string) (*Annotation, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return ParseAnnotation(raw)
}

func ParseAnnotation(raw []byte) (*Annotation, error) {
	anno := &Annotation{}
	if err := json.Unmarshal(raw, anno); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedAnnotation, err)
	}
	if anno.AnnoList == nil {
		return nil, fmt.Errorf("%w: missing 'annolist'", ErrMalformedAnnotation)
	}
	return anno, nil
}

func (a *Annotation) NumFrames() int {
	return len(a.AnnoList)
}

// FrameFolder returns the directory of the first frame's image, exactly as it is recorded
// in the annotation (usually relative to the dataset root).
// A first frame without a directory part (eg "000000.jpg") is ErrNoFrames.
func (a *Annotation) FrameFolder() (string, error) {
	if len(a.AnnoList) == 0 {
		return "", ErrNoFrames
	}
	first := a.AnnoList[0]
	if len(first.Image) == 0 || first.Image[0].Name == "" {
		return "", fmt.Errorf("%w: first frame has no image name", ErrNoFrames)
	}
	folder := filepath.Dir(first.Image[0].Name)
	if folder == "." {
		// A bare file name has no folder. Resolving it would walk the entire dataset.
		return "", fmt.Errorf("%w: '%v' has no folder", ErrNoFrames, first.Image[0].Name)
	}
	return folder, nil
}
