// Package nnload wraps up our 'nn' interface layer, and has concrete references to our
// neural network implementation (a remote inference server), so that you can just call one
// function to load a model, and not need to know about the implementation details.
package nnload

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/cyclopcam/framedet/pkg/iox"
	"github.com/cyclopcam/framedet/pkg/nn"
	"github.com/cyclopcam/framedet/pkg/nnremote"
	"github.com/cyclopcam/logs"
)

// Setup is everything we need to know in order to load a detector
type Setup struct {
	ServerURL  string        // Inference server, eg "http://localhost:8765"
	Config     string        // Detector config file
	Checkpoint string        // Checkpoint file, or an http(s) URL to download it from
	Device     string        // eg "cuda:0" or "cpu"
	ModelDir   string        // Where downloaded checkpoints are cached
	Timeout    time.Duration // Per-request timeout for the inference server
	Retries    int           // Retries for a failed inference request
	RetryDelay time.Duration
}

var cudaDeviceRegex = regexp.MustCompile(`^cuda(:\d+)?$`)

// ParseDevice validates a device string, and returns it in canonical form.
// Valid devices are "cpu", "cuda", and "cuda:N".
func ParseDevice(device string) (string, error) {
	d := strings.ToLower(strings.TrimSpace(device))
	if d == "cpu" || cudaDeviceRegex.MatchString(d) {
		return d, nil
	}
	return "", fmt.Errorf("Invalid device '%v'. Expected 'cpu', 'cuda', or 'cuda:N'", device)
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func downloadFile(ctx context.Context, srcUrl, targetFile string) error {
	tempFile := targetFile + ".tmp"
	if err := os.MkdirAll(filepath.Dir(targetFile), 0755); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, "GET", srcUrl, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return fmt.Errorf("HTTP error %v", resp.Status)
	}
	if err := iox.WriteStreamToFile(tempFile, resp.Body); err != nil {
		return err
	}
	return os.Rename(tempFile, targetFile)
}

// If checkpoint is a URL, make sure it has been downloaded into modelDir, and return the local path.
// Returns checkpoint unmodified if it is already a local file.
// Returns immediately if the file has already been downloaded.
func DownloadCheckpoint(ctx context.Context, logs logs.Log, modelDir, checkpoint string) (string, error) {
	if !isURL(checkpoint) {
		return checkpoint, nil
	}
	u, err := url.Parse(checkpoint)
	if err != nil {
		return "", err
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." || name == "" {
		return "", fmt.Errorf("Can't determine checkpoint filename from '%v'", checkpoint)
	}
	diskPath := filepath.Join(modelDir, name)
	if _, err := os.Stat(diskPath); os.IsNotExist(err) {
		logs.Infof("Downloading %v to %v", checkpoint, diskPath)
		if err := downloadFile(ctx, checkpoint, diskPath); err != nil {
			return "", fmt.Errorf("Download failed: %w", err)
		}
	} else if err != nil {
		return "", err
	}
	return diskPath, nil
}

// LoadModel builds a detector from a config file and a checkpoint, on the given device.
func LoadModel(ctx context.Context, logs logs.Log, setup Setup) (nn.ObjectDetector, error) {
	device, err := ParseDevice(setup.Device)
	if err != nil {
		return nil, err
	}
	if setup.Config == "" {
		return nil, fmt.Errorf("No detector config file specified")
	}

	checkpoint, err := DownloadCheckpoint(ctx, logs, setup.ModelDir, setup.Checkpoint)
	if err != nil {
		return nil, err
	}

	client, err := nnremote.NewClient(logs, nnremote.ClientConfig{
		ServerURL:  setup.ServerURL,
		Timeout:    setup.Timeout,
		Retries:    setup.Retries,
		RetryDelay: setup.RetryDelay,
	})
	if err != nil {
		return nil, err
	}
	if err := client.HealthCheck(ctx); err != nil {
		return nil, err
	}

	// The server resolves relative paths against its own working directory, which is
	// not necessarily ours.
	config, err := filepath.Abs(setup.Config)
	if err != nil {
		return nil, err
	}
	if checkpoint, err = filepath.Abs(checkpoint); err != nil {
		return nil, err
	}

	err = client.LoadModel(ctx, nnremote.LoadModelRequest{
		Config:     config,
		Checkpoint: checkpoint,
		Device:     device,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}
