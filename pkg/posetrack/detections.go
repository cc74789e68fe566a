package posetrack

import (
	"encoding/json"
	"io"
	"os"

	"github.com/cyclopcam/framedet/pkg/iox"
)

// DetectionsVersion is written into every frame record
const DetectionsVersion = "1.0"

// FrameDetections holds the human candidates for one frame of a video.
// A detections file is a JSON array of these, one per frame, in frame order.
type FrameDetections struct {
	Version    string      `json:"version"`
	Image      ImageInfo   `json:"image"`
	Candidates []Candidate `json:"candidates"`
}

type ImageInfo struct {
	Folder string `json:"folder"` // Frame folder, as recorded in the annotation file
	Name   string `json:"name"`   // Frame file name, eg "000000.jpg"
	ID     int    `json:"id"`     // Zero-based index of the frame, in sorted order
}

// Candidate is a detection that survived the score threshold
type Candidate struct {
	DetBBox  [4]float32 `json:"det_bbox"` // [x, y, width, height]
	DetScore float32    `json:"det_score"`
}

// ConvertBox converts a detector box (x1, y1, x2, y2, score) into a candidate.
// Returns false if score <= threshold.
// The comparison is done in float64, so a float32 score of 0.3 is above a threshold of 0.3.
func ConvertBox(box [5]float32, threshold float64) (Candidate, bool) {
	score := box[4]
	if !(float64(score) > threshold) {
		return Candidate{}, false
	}
	return Candidate{
		DetBBox:  [4]float32{box[0], box[1], box[2] - box[0], box[3] - box[1]},
		DetScore: score,
	}, true
}

// Create an empty frame record
func NewFrameDetections(folder, name string, id int) FrameDetections {
	return FrameDetections{
		Version: DetectionsVersion,
		Image: ImageInfo{
			Folder: folder,
			Name:   name,
			ID:     id,
		},
		Candidates: []Candidate{},
	}
}

// Encode a detections document, indented the same way as the files that the
// PoseTrack tooling produces
func EncodeDetections(w io.Writer, frames []FrameDetections) error {
	if frames == nil {
		frames = []FrameDetections{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(frames)
}

// Write a detections document. The file is replaced atomically.
func WriteDetections(filename string, frames []FrameDetections) error {
	return iox.WriteFileAtomic(filename, func(w io.Writer) error {
		return EncodeDetections(w, frames)
	})
}

func ReadDetections(filename string) ([]FrameDetections, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	frames := []FrameDetections{}
	if err := json.Unmarshal(raw, &frames); err != nil {
		return nil, err
	}
	return frames, nil
}

// Total number of candidates in the document
func CountCandidates(frames []FrameDetections) int {
	n := 0
	for _, f := range frames {
		n += len(f.Candidates)
	}
	return n
}
