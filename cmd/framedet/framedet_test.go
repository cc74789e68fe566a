package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/akamensky/argparse"
	"github.com/stretchr/testify/require"
)

func parseFlags(t *testing.T, args ...string) *flags {
	parser := argparse.NewParser("framedet", "test")
	f := addFlags(parser)
	require.NoError(t, parser.Parse(append([]string{"framedet"}, args...)))
	return f
}

func TestBuildConfigFromFlags(t *testing.T) {
	f := parseFlags(t, "-d", "/data", "-c", "det.py", "-w", "det.pth", "-o", "/out", "--subdir", "val_detections", "-t", "0.5")
	cfg, err := f.buildConfig()
	require.NoError(t, err)
	require.Equal(t, "/data", cfg.DataDir)
	require.Equal(t, 0.5, cfg.Threshold)
	require.Equal(t, filepath.Join("/out", "val_detections"), cfg.OutputPath())
	// Unspecified flags keep their defaults
	require.Equal(t, "cuda:0", cfg.Device)
	require.Equal(t, 0, cfg.Retries)
	require.Equal(t, 0, cfg.MaxFrameHeight)
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "framedet.json")
	require.NoError(t, os.WriteFile(filename, []byte(`{
		"dataDir": "/data",
		"detectorConfig": "det.py",
		"checkpoint": "det.pth",
		"outputDir": "/out",
		"threshold": 0.4,
		"retries": 3,
		"device": "cpu"
	}`), 0644))

	f := parseFlags(t, "--cfg", filename, "--device", "cuda:1", "--threshold", "0")
	cfg, err := f.buildConfig()
	require.NoError(t, err)
	require.Equal(t, "cuda:1", cfg.Device)
	require.Equal(t, 0.0, cfg.Threshold)
	require.Equal(t, 3, cfg.Retries)

	_, err = parseFlags(t, "--cfg", filename, "--device", "tpu").buildConfig()
	require.Error(t, err)
}

func TestMissingRequiredSettings(t *testing.T) {
	_, err := parseFlags(t, "-d", "/data").buildConfig()
	require.ErrorContains(t, err, "checkpoint")
}
