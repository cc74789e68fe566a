// Package nnremote is an nn.ObjectDetector that runs inference on an external server.
// The server owns the model (config, weights, GPU). We ship it one encoded frame at a time,
// and get back boxes in (x1, y1, x2, y2, confidence, class) form.
package nnremote

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cyclopcam/framedet/pkg/nn"
	"github.com/cyclopcam/framedet/pkg/requests"
	"github.com/cyclopcam/logs"
)

const DefaultTimeout = 60 * time.Second

// ClientConfig contains connection settings for the inference server
type ClientConfig struct {
	ServerURL  string        // eg "http://localhost:8765"
	Timeout    time.Duration // Per request. Zero means DefaultTimeout.
	Retries    int           // Number of times to retry a failed inference request
	RetryDelay time.Duration // Wait between retries
}

var _ nn.InferenceTimer = (*Detector)(nil)

// Detector is a model that has been loaded on an inference server
type Detector struct {
	log        logs.Log
	serverURL  string
	httpClient *http.Client
	retries    int
	retryDelay time.Duration
	modelID    string
	config     nn.ModelConfig
	lastTiming time.Duration
}

// Return a client that is not yet attached to any model.
// Call LoadModel before DetectObjects.
func NewClient(log logs.Log, cfg ClientConfig) (*Detector, error) {
	u, err := url.Parse(cfg.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("Invalid inference server URL '%v'", cfg.ServerURL)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Detector{
		log:        log,
		serverURL:  strings.TrimRight(cfg.ServerURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		retries:    cfg.Retries,
		retryDelay: cfg.RetryDelay,
	}, nil
}

// HealthCheck returns nil if the inference server is ready
func (d *Detector) HealthCheck(ctx context.Context) error {
	if err := requests.RequestNoContent(ctx, d.httpClient, "GET", d.serverURL+"/health/ready"); err != nil {
		return fmt.Errorf("Inference server health check failed: %w", err)
	}
	return nil
}

// LoadModel asks the server to build the detector.
// This is the equivalent of init_detector(config, checkpoint, device).
func (d *Detector) LoadModel(ctx context.Context, req LoadModelRequest) error {
	if d.modelID != "" {
		return errors.New("Model already loaded")
	}
	resp, err := requests.RequestJSON[LoadModelResponse](ctx, d.httpClient, "POST", d.serverURL+"/api/v1/models", req)
	if err != nil {
		return fmt.Errorf("Failed to load model '%v' on %v: %w", req.Checkpoint, req.Device, err)
	}
	if resp.ModelID == "" {
		return errors.New("Inference server returned an empty model ID")
	}
	d.modelID = resp.ModelID
	d.config = nn.ModelConfig{
		Architecture: resp.Architecture,
		Width:        resp.Width,
		Height:       resp.Height,
		Classes:      resp.Classes,
	}
	d.log.Infof("Loaded model %v (%v, %v classes) on %v", d.modelID, d.config.Architecture, len(d.config.Classes), req.Device)
	return nil
}

// Close unloads the model from the server. Failure is logged, but otherwise ignored,
// because the server will eventually evict idle models on its own.
func (d *Detector) Close() {
	if d.modelID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := requests.RequestNoContent(ctx, d.httpClient, "DELETE", d.serverURL+"/api/v1/models/"+url.PathEscape(d.modelID)); err != nil {
		d.log.Warnf("Failed to unload model %v: %v", d.modelID, err)
	}
	d.modelID = ""
}

func (d *Detector) Config() *nn.ModelConfig {
	return &d.config
}

// How long the server says the most recent inference took
func (d *Detector) LastInferenceTime() time.Duration {
	return d.lastTiming
}

func (d *Detector) DetectObjects(ctx context.Context, img nn.EncodedImage, params *nn.DetectionParams) ([]nn.ObjectDetection, error) {
	if d.modelID == "" {
		return nil, errors.New("No model loaded")
	}
	req := InferenceRequest{
		ModelID: d.modelID,
		Image:   base64.StdEncoding.EncodeToString(img.Data),
		Format:  img.Format,
	}

	var resp *InferenceResponse
	var err error
	for attempt := 0; attempt <= d.retries; attempt++ {
		if attempt > 0 {
			d.log.Warnf("Inference attempt %v failed: %v", attempt, err)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(d.retryDelay):
			}
		}
		resp, err = requests.RequestJSON[InferenceResponse](ctx, d.httpClient, "POST", d.serverURL+"/api/v1/inference", req)
		if err == nil || ctx.Err() != nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("Inference failed: %w", err)
	}
	d.lastTiming = time.Duration(resp.InferenceTimeMs * float64(time.Millisecond))

	if params == nil {
		params = nn.NewDetectionParams()
	}
	objects := []nn.ObjectDetection{}
	for _, b := range resp.BoundingBoxes {
		if !params.WantClass(b.ClassID) {
			continue
		}
		objects = append(objects, nn.ObjectDetection{
			Class:      b.ClassID,
			Confidence: b.Confidence,
			Box:        nn.RectFromCorners(b.X1, b.Y1, b.X2, b.Y2),
		})
	}
	return objects, nil
}
