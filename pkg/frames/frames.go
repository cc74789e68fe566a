// Package frames loads video frames from disk, and prepares them for a detector.
package frames

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/cyclopcam/framedet/pkg/nn"
	"github.com/disintegration/imaging"
)

// JPEG quality used when we need to re-encode a frame
const JPEGQuality = 95

// Extensions of the frame images that we know how to load
var Extensions = []string{".jpg", ".jpeg", ".png"}

// Frame is a single frame, ready to be sent to a detector
type Frame struct {
	Path   string          // Full path to the frame on disk
	Name   string          // File name, eg "000000.jpg"
	Width  int             // Width of the frame on disk
	Height int             // Height of the frame on disk
	Image  nn.EncodedImage // What we send to the detector
	ScaleX float32         // Multiply detector x coordinates by ScaleX to get frame coordinates
	ScaleY float32         // Multiply detector y coordinates by ScaleY to get frame coordinates
}

// Load a frame from disk.
// If maxHeight is greater than zero, and the frame is taller than maxHeight, then the frame is
// scaled down to maxHeight (preserving aspect ratio) before it is handed to the detector.
// JPEG frames that don't need scaling are passed through byte-for-byte.
func Load(filename string, maxHeight int) (*Frame, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("Failed to read frame %v: %w", filename, err)
	}

	frame := &Frame{
		Path:   filename,
		Name:   filepath.Base(filename),
		Width:  cfg.Width,
		Height: cfg.Height,
		ScaleX: 1,
		ScaleY: 1,
	}

	needResize := maxHeight > 0 && cfg.Height > maxHeight
	if format == "jpeg" && !needResize {
		frame.Image = nn.EncodedImage{
			Format: nn.ImageFormatJPEG,
			Data:   raw,
			Width:  cfg.Width,
			Height: cfg.Height,
		}
		return frame, nil
	}

	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(false))
	if err != nil {
		return nil, fmt.Errorf("Failed to decode frame %v: %w", filename, err)
	}
	if needResize {
		aspect := float64(cfg.Width) / float64(cfg.Height)
		newHeight := maxHeight
		newWidth := max(1, int(float64(newHeight)*aspect+0.5))
		img = imaging.Resize(img, newWidth, newHeight, imaging.Lanczos)
		// Rounding the width makes the horizontal factor differ slightly from the vertical one
		frame.ScaleX = float32(cfg.Width) / float32(newWidth)
		frame.ScaleY = float32(cfg.Height) / float32(newHeight)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return nil, fmt.Errorf("Failed to encode frame %v: %w", filename, err)
	}
	b := img.Bounds()
	frame.Image = nn.EncodedImage{
		Format: nn.ImageFormatJPEG,
		Data:   buf.Bytes(),
		Width:  b.Dx(),
		Height: b.Dy(),
	}
	return frame, nil
}

// Map a box from detector coordinates back to frame coordinates
func (f *Frame) ToFrameCoords(r nn.Rect) nn.Rect {
	if f.ScaleX == 1 && f.ScaleY == 1 {
		return r
	}
	return r.Scale(f.ScaleX, f.ScaleY)
}

// Return true if the filename has one of the frame image extensions
func IsFrameFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}
