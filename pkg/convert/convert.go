// Package convert runs a detector over every video in a PoseTrack-style dataset, and writes
// one detections file per video, containing the human boxes of every frame.
package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cyclopcam/framedet/pkg/frames"
	"github.com/cyclopcam/framedet/pkg/journal"
	"github.com/cyclopcam/framedet/pkg/nn"
	"github.com/cyclopcam/framedet/pkg/perfstats"
	"github.com/cyclopcam/framedet/pkg/posetrack"
	"github.com/cyclopcam/logs"
)

type Options struct {
	DataDir        string  // Frame folders in annotation files are relative to this
	AnnotationDir  string  // Where to look for annotation files. Defaults to DataDir.
	OutputDir      string  // Where to write detections files
	Threshold      float64 // Keep candidates with score > Threshold
	Class          string  // Detector class to keep (eg "person")
	MaxFrameHeight int     // Scale frames down to this height before detection (0 = no scaling)
}

// VideoResult describes one processed (or skipped) video
type VideoResult struct {
	Annotation         string // Annotation file
	Output             string // Detections file
	Folder             string // Frame folder, as recorded in the annotation
	NumAnnotatedFrames int    // Number of frames listed in the annotation
	NumFrames          int    // Number of frame images that we ran through the detector
	NumCandidates      int    // Total candidates written
	Skipped            bool   // True if the video was already done, according to the journal
}

// Summary of a batch run
type Summary struct {
	Videos             int                        // Videos processed in this run
	Skipped            int                        // Videos skipped because the journal says they're done
	FramesPerVideo     perfstats.Int64Accumulator // Annotated frame counts of the processed videos
	Frames             int                        // Total frames run through the detector
	Candidates         int                        // Total candidates written
	Inference          perfstats.TimeAccumulator  // Wall time of DetectObjects calls
	ModelInference     perfstats.TimeAccumulator  // Model time, as reported by the detector (if it implements nn.InferenceTimer)
	CandidatesPerFrame perfstats.Int64Accumulator //
}

// Converter is the batch annotation converter.
// It is strictly sequential: one video at a time, one frame at a time.
type Converter struct {
	log      logs.Log
	detector nn.ObjectDetector
	journal  *journal.Journal // May be nil
	opts     Options
	class    int
	params   *nn.DetectionParams
	stats    Summary
}

// Create a converter. The journal is optional.
func NewConverter(log logs.Log, detector nn.ObjectDetector, jrnl *journal.Journal, opts Options) (*Converter, error) {
	if opts.OutputDir == "" {
		return nil, errors.New("No output directory")
	}
	if opts.AnnotationDir == "" {
		opts.AnnotationDir = opts.DataDir
	}
	if SamePath(opts.OutputDir, opts.AnnotationDir) {
		return nil, fmt.Errorf("Output directory %v may not be the annotation directory", opts.OutputDir)
	}
	class := detector.Config().ClassIndex(opts.Class)
	if class < 0 {
		return nil, fmt.Errorf("Class '%v' not found in model", opts.Class)
	}
	return &Converter{
		log:      log,
		detector: detector,
		journal:  jrnl,
		opts:     opts,
		class:    class,
		params:   &nn.DetectionParams{Classes: []int{class}},
	}, nil
}

// Run processes every annotation file, in sorted order.
// The first error aborts the run. Videos that were finished before the error keep their output files.
func (c *Converter) Run(ctx context.Context) (*Summary, error) {
	if _, err := MakeOutputDir(c.log, c.opts.OutputDir); err != nil {
		return nil, err
	}

	// The output directory may live inside the annotation directory, but its files are not annotations
	annotations, err := ListAnnotations(c.opts.AnnotationDir, c.opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("Failed to list annotation files in %v: %w", c.opts.AnnotationDir, err)
	}
	c.log.Infof("Found %v annotation files in %v", len(annotations), c.opts.AnnotationDir)

	if c.journal != nil {
		done, err := c.journal.List()
		if err != nil {
			return nil, fmt.Errorf("Failed to read journal: %w", err)
		}
		c.log.Infof("Journal has %v completed videos", len(done))
	}

	c.stats = Summary{}
	for _, annotation := range annotations {
		if err := ctx.Err(); err != nil {
			return &c.stats, err
		}
		res, err := c.processVideoWithJournal(ctx, annotation)
		if err != nil {
			return &c.stats, err
		}
		if res.Skipped {
			c.stats.Skipped++
			continue
		}
		c.stats.FramesPerVideo.AddSample(int64(res.NumAnnotatedFrames))
		c.stats.Videos++
		c.stats.Frames += res.NumFrames
		c.stats.Candidates += res.NumCandidates
	}

	c.log.Infof("#videos: %v (%v skipped)", c.stats.Videos, c.stats.Skipped)
	if c.stats.Videos != 0 {
		c.log.Infof("Frame range: %v - %v", c.stats.FramesPerVideo.Min, c.stats.FramesPerVideo.Max)
		c.log.Infof("Frames: %v, candidates: %v (%.2f per frame)", c.stats.Frames, c.stats.Candidates, c.stats.CandidatesPerFrame.Average())
		c.log.Infof("Inference: %v", c.stats.Inference.String())
		if c.stats.ModelInference.Samples != 0 {
			c.log.Infof("Model inference: %v", c.stats.ModelInference.String())
		}
	}
	return &c.stats, nil
}

func (c *Converter) outputFilename(annotation string) string {
	return filepath.Join(c.opts.OutputDir, filepath.Base(annotation))
}

func (c *Converter) processVideoWithJournal(ctx context.Context, annotation string) (*VideoResult, error) {
	output := c.outputFilename(annotation)
	if c.journal != nil {
		done, err := c.journal.IsComplete(annotation, c.opts.Threshold)
		if err != nil {
			return nil, err
		}
		if done {
			if _, err := os.Stat(output); err == nil {
				c.log.Infof("Skipping %v, already done", annotation)
				return &VideoResult{Annotation: annotation, Output: output, Skipped: true}, nil
			}
			c.log.Warnf("Journal says %v is done, but %v is missing. Processing again", annotation, output)
		}
	}

	res, err := c.ProcessVideo(ctx, annotation)
	if err != nil {
		return nil, err
	}

	if c.journal != nil {
		err := c.journal.MarkComplete(journal.Video{
			Annotation:    annotation,
			Output:        res.Output,
			NumFrames:     res.NumFrames,
			NumCandidates: res.NumCandidates,
			Threshold:     c.opts.Threshold,
		})
		if err != nil {
			return nil, fmt.Errorf("Failed to update journal: %w", err)
		}
	}
	return res, nil
}

// Resolve a frame folder from an annotation file into a path on disk
func (c *Converter) frameFolderOnDisk(folder string) string {
	if filepath.IsAbs(folder) {
		return folder
	}
	return filepath.Join(c.opts.DataDir, folder)
}

// ProcessVideo runs the detector over every frame of the video described by the annotation file,
// and writes the detections file.
func (c *Converter) ProcessVideo(ctx context.Context, annotation string) (*VideoResult, error) {
	c.log.Infof("Groundtruth annotation file: %v", annotation)
	anno, err := posetrack.LoadAnnotation(annotation)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", annotation, err)
	}
	c.log.Infof("#Frames: %v", anno.NumFrames())

	folder, err := anno.FrameFolder()
	if err != nil {
		return nil, fmt.Errorf("%v: %w", annotation, err)
	}
	c.log.Infof("Video: %v", folder)

	diskFolder := c.frameFolderOnDisk(folder)
	framePaths, err := ListFrames(diskFolder)
	if err != nil {
		return nil, fmt.Errorf("Failed to list frames of %v: %w", annotation, err)
	}
	if len(framePaths) == 0 {
		c.log.Warnf("No frame images found in %v", diskFolder)
	} else if len(framePaths) != anno.NumFrames() {
		c.log.Warnf("Annotation %v lists %v frames, but %v has %v images", annotation, anno.NumFrames(), diskFolder, len(framePaths))
	}

	res := &VideoResult{
		Annotation:         annotation,
		Output:             c.outputFilename(annotation),
		Folder:             folder,
		NumAnnotatedFrames: anno.NumFrames(),
	}

	doc := make([]posetrack.FrameDetections, 0, len(framePaths))
	for id, framePath := range framePaths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := c.processFrame(ctx, folder, framePath, id)
		if err != nil {
			return nil, err
		}
		doc = append(doc, rec)
	}
	res.NumFrames = len(doc)
	res.NumCandidates = posetrack.CountCandidates(doc)

	if err := posetrack.WriteDetections(res.Output, doc); err != nil {
		return nil, fmt.Errorf("Failed to write %v: %w", res.Output, err)
	}
	c.log.Infof("Wrote %v (%v frames, %v candidates)", res.Output, res.NumFrames, res.NumCandidates)
	return res, nil
}

func (c *Converter) processFrame(ctx context.Context, folder, framePath string, id int) (posetrack.FrameDetections, error) {
	frame, err := frames.Load(framePath, c.opts.MaxFrameHeight)
	if err != nil {
		return posetrack.FrameDetections{}, err
	}

	var objects []nn.ObjectDetection
	err = c.stats.Inference.Time(func() error {
		var err error
		objects, err = c.detector.DetectObjects(ctx, frame.Image, c.params)
		return err
	})
	if err != nil {
		return posetrack.FrameDetections{}, fmt.Errorf("Detection failed on %v: %w", framePath, err)
	}
	if timer, ok := c.detector.(nn.InferenceTimer); ok {
		c.stats.ModelInference.AddSample(timer.LastInferenceTime())
	}

	rec := posetrack.NewFrameDetections(folder, frame.Name, id)
	for _, obj := range nn.FilterClass(objects, c.class) {
		obj.Box = frame.ToFrameCoords(obj.Box)
		if cand, ok := posetrack.ConvertBox(obj.CornersAndConfidence(), c.opts.Threshold); ok {
			rec.Candidates = append(rec.Candidates, cand)
		}
	}
	c.stats.CandidatesPerFrame.AddSample(int64(len(rec.Candidates)))
	return rec, nil
}
