package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cyclopcam/framedet/pkg/nn"
	"github.com/cyclopcam/framedet/pkg/nnload"
)

const (
	DefaultDevice    = "cuda:0"
	DefaultServerURL = "http://localhost:8765"
	DefaultClass     = "person"
	DefaultModelDir  = "models"
)

// Config is everything that a batch run needs to know
type Config struct {
	DataDir        string  `json:"dataDir"`        // Root of the dataset. Annotation files are found anywhere below here, and frame folders are relative to it.
	AnnotationDir  string  `json:"annotationDir"`  // If set, search for annotation files here instead of DataDir
	DetectorConfig string  `json:"detectorConfig"` // Detector config file
	Checkpoint     string  `json:"checkpoint"`     // Detector weights, or an http(s) URL to download them from
	Device         string  `json:"device"`         // eg "cuda:0" or "cpu"
	Threshold      float64 `json:"threshold"`      // Keep detections with score strictly greater than this
	OutputDir      string  `json:"outputDir"`      // Where the detections files go
	OutputSubdir   string  `json:"outputSubdir"`   // Optional sub-folder of OutputDir, eg "val_detections"
	Class          string  `json:"class"`          // Detector class to keep, eg "person"
	MaxFrameHeight int     `json:"maxFrameHeight"` // Scale frames down to this height before detection (0 = no scaling)
	ServerURL      string  `json:"serverURL"`      // Inference server
	ModelDir       string  `json:"modelDir"`       // Cache for downloaded checkpoints
	TimeoutSeconds int     `json:"timeoutSeconds"` // Per-request timeout for the inference server (0 = default)
	Retries        int     `json:"retries"`        // Retries for a failed inference request
	Journal        string  `json:"journal"`        // If set, a SQLite file that records completed videos, so that runs can be resumed
}

// Return a config with all defaults filled in
func Default() *Config {
	return &Config{
		Device:    DefaultDevice,
		Threshold: nn.DefaultProbabilityThreshold,
		Class:     DefaultClass,
		ServerURL: DefaultServerURL,
		ModelDir:  DefaultModelDir,
	}
}

// Load a JSON config file on top of the defaults
func LoadConfig(filename string) (*Config, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("Error loading %v: %w", filename, err)
	}
	cfg := Default()
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("Error loading as JSON %v: %w", filename, err)
	}
	return cfg, nil
}

// The directory that detections files are written to
func (c *Config) OutputPath() string {
	if c.OutputSubdir == "" {
		return c.OutputDir
	}
	return filepath.Join(c.OutputDir, c.OutputSubdir)
}

// The directory that we search for annotation files
func (c *Config) AnnotationPath() string {
	if c.AnnotationDir != "" {
		return c.AnnotationDir
	}
	return c.DataDir
}

// Validate returns all of the problems with the config, joined together
func (c *Config) Validate() error {
	errs := []error{}
	if c.DataDir == "" {
		errs = append(errs, errors.New("dataDir is required"))
	}
	if c.DetectorConfig == "" {
		errs = append(errs, errors.New("detectorConfig is required"))
	}
	if c.Checkpoint == "" {
		errs = append(errs, errors.New("checkpoint is required"))
	}
	if c.OutputDir == "" {
		errs = append(errs, errors.New("outputDir is required"))
	}
	if filepath.IsAbs(c.OutputSubdir) {
		errs = append(errs, fmt.Errorf("outputSubdir must be relative, not '%v'", c.OutputSubdir))
	}
	if c.OutputDir != "" && c.AnnotationPath() != "" && samePath(c.OutputPath(), c.AnnotationPath()) {
		errs = append(errs, fmt.Errorf("output directory %v may not be the annotation directory", c.OutputPath()))
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		errs = append(errs, fmt.Errorf("threshold must be between 0 and 1, not %v", c.Threshold))
	}
	if _, err := nnload.ParseDevice(c.Device); err != nil {
		errs = append(errs, err)
	}
	if c.Class == "" {
		errs = append(errs, errors.New("class is required"))
	}
	if c.MaxFrameHeight < 0 {
		errs = append(errs, fmt.Errorf("maxFrameHeight may not be negative"))
	}
	if c.TimeoutSeconds < 0 || c.Retries < 0 {
		errs = append(errs, fmt.Errorf("timeoutSeconds and retries may not be negative"))
	}
	if c.ServerURL == "" {
		errs = append(errs, errors.New("serverURL is required"))
	}
	return errors.Join(errs...)
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
