package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	c := Default()
	c.DataDir = "/data/posetrack"
	c.DetectorConfig = "configs/faster_rcnn.py"
	c.Checkpoint = "checkpoints/faster_rcnn.pth"
	c.OutputDir = "/data/out"
	return c
}

func TestDefaults(t *testing.T) {
	c := Default()
	require.Equal(t, "cuda:0", c.Device)
	require.Equal(t, 0.3, c.Threshold)
	require.Equal(t, "person", c.Class)
	require.Error(t, c.Validate())
	require.NoError(t, validConfig().Validate())
}

func TestValidate(t *testing.T) {
	c := validConfig()
	c.Threshold = 1.5
	require.ErrorContains(t, c.Validate(), "threshold")

	c = validConfig()
	c.Device = "gpu0"
	require.ErrorContains(t, c.Validate(), "Invalid device")

	c = validConfig()
	c.OutputSubdir = "/abs"
	require.ErrorContains(t, c.Validate(), "outputSubdir")

	// Output may live inside the annotation directory, but may not be the annotation directory
	c = validConfig()
	c.OutputDir = c.DataDir
	c.OutputSubdir = "val_detections"
	require.NoError(t, c.Validate())
	c.OutputSubdir = ""
	require.ErrorContains(t, c.Validate(), "annotation directory")
	c.OutputDir = "/data/out"
	c.AnnotationDir = "/data/out/"
	require.ErrorContains(t, c.Validate(), "annotation directory")

	// All problems are reported at once
	c = Default()
	err := c.Validate()
	require.ErrorContains(t, err, "dataDir")
	require.ErrorContains(t, err, "checkpoint")
	require.ErrorContains(t, err, "outputDir")
}

func TestPaths(t *testing.T) {
	c := validConfig()
	require.Equal(t, "/data/out", c.OutputPath())
	c.OutputSubdir = "val_detections"
	require.Equal(t, filepath.Join("/data/out", "val_detections"), c.OutputPath())

	require.Equal(t, "/data/posetrack", c.AnnotationPath())
	c.AnnotationDir = "/data/posetrack/annotations/val"
	require.Equal(t, "/data/posetrack/annotations/val", c.AnnotationPath())
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "framedet.json")
	require.NoError(t, os.WriteFile(filename, []byte(`{
		"dataDir": "/data",
		"threshold": 0.4,
		"outputSubdir": "val_detections"
	}`), 0644))
	c, err := LoadConfig(filename)
	require.NoError(t, err)
	require.Equal(t, "/data", c.DataDir)
	require.Equal(t, 0.4, c.Threshold)
	require.Equal(t, "val_detections", c.OutputSubdir)
	// Defaults survive for fields that weren't mentioned
	require.Equal(t, "cuda:0", c.Device)

	_, err = LoadConfig(filepath.Join(dir, "missing.json"))
	require.Error(t, err)

	require.NoError(t, os.WriteFile(filename, []byte(`{`), 0644))
	_, err = LoadConfig(filename)
	require.Error(t, err)
}
