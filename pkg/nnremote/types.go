package nnremote

// LoadModelRequest asks the inference server to build a detector from a config file and a checkpoint
type LoadModelRequest struct {
	Config     string `json:"config"`     // Detector config file, as seen by the server
	Checkpoint string `json:"checkpoint"` // Checkpoint (weights) file, as seen by the server
	Device     string `json:"device"`     // eg "cuda:0" or "cpu"
}

// LoadModelResponse describes the model that the server loaded
type LoadModelResponse struct {
	ModelID      string   `json:"model_id"`
	Architecture string   `json:"architecture"`
	Width        int      `json:"width"`
	Height       int      `json:"height"`
	Classes      []string `json:"classes"`
}

// InferenceRequest runs the model on a single image
type InferenceRequest struct {
	ModelID string `json:"model_id"`
	Image   string `json:"image"`  // Base64-encoded image
	Format  string `json:"format"` // "jpeg" or "png"
}

// BoundingBox is a detected object's bounding box, in the coordinates of the image that was sent
type BoundingBox struct {
	X1         float32 `json:"x1"`
	Y1         float32 `json:"y1"`
	X2         float32 `json:"x2"`
	Y2         float32 `json:"y2"`
	Confidence float32 `json:"confidence"`
	ClassID    int     `json:"class_id"`
	ClassName  string  `json:"class_name"`
}

// InferenceResponse is the server's answer to an InferenceRequest
type InferenceResponse struct {
	BoundingBoxes   []BoundingBox `json:"bounding_boxes"`
	InferenceTimeMs float64       `json:"inference_time_ms"`
	FrameShape      []int         `json:"frame_shape"` // [height, width]
}
