package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/framedet/pkg/config"
	"github.com/cyclopcam/framedet/pkg/convert"
	"github.com/cyclopcam/framedet/pkg/journal"
	"github.com/cyclopcam/framedet/pkg/nnload"
	"github.com/cyclopcam/logs"
)

// Values that mean "not specified on the command line"
const (
	unsetInt   = -1
	unsetFloat = -1.0
)

// Command line flags. Anything that was specified overrides the config file.
type flags struct {
	cfgFile        *string
	dataDir        *string
	annotationDir  *string
	detectorConfig *string
	checkpoint     *string
	outputDir      *string
	outputSubdir   *string
	device         *string
	threshold      *float64
	class          *string
	maxFrameHeight *int
	serverURL      *string
	modelDir       *string
	timeout        *int
	retries        *int
	journal        *string
}

func addFlags(parser *argparse.Parser) *flags {
	return &flags{
		cfgFile:        parser.String("", "cfg", &argparse.Options{Help: "JSON config file. Command line flags override values in this file"}),
		dataDir:        parser.String("d", "datadir", &argparse.Options{Help: "Dataset root. Frame folders in annotation files are relative to this"}),
		annotationDir:  parser.String("", "annotdir", &argparse.Options{Help: "Where to search for annotation files (default is datadir)"}),
		detectorConfig: parser.String("c", "config", &argparse.Options{Help: "Detector config file"}),
		checkpoint:     parser.String("w", "checkpoint", &argparse.Options{Help: "Detector checkpoint file, or http(s) URL"}),
		outputDir:      parser.String("o", "outdir", &argparse.Options{Help: "Output directory"}),
		outputSubdir:   parser.String("", "subdir", &argparse.Options{Help: "Sub-folder of the output directory, eg val_detections"}),
		device:         parser.String("", "device", &argparse.Options{Help: "Inference device, eg cuda:0 or cpu"}),
		threshold:      parser.Float("t", "threshold", &argparse.Options{Help: "Keep detections with a score above this", Default: unsetFloat}),
		class:          parser.String("", "class", &argparse.Options{Help: "Detector class to keep"}),
		maxFrameHeight: parser.Int("", "vheight", &argparse.Options{Help: "If frame height is larger than this, then scale it down to this size", Default: unsetInt}),
		serverURL:      parser.String("", "server", &argparse.Options{Help: "Inference server URL"}),
		modelDir:       parser.String("", "modeldir", &argparse.Options{Help: "Cache directory for downloaded checkpoints"}),
		timeout:        parser.Int("", "timeout", &argparse.Options{Help: "Inference request timeout, in seconds", Default: unsetInt}),
		retries:        parser.Int("", "retries", &argparse.Options{Help: "Number of retries for a failed inference request", Default: unsetInt}),
		journal:        parser.String("", "journal", &argparse.Options{Help: "SQLite file that records finished videos, so that a run can be resumed"}),
	}
}

func overrideString(dst *string, src *string) {
	if *src != "" {
		*dst = *src
	}
}

func overrideInt(dst *int, src *int) {
	if *src != unsetInt {
		*dst = *src
	}
}

// Build the final config from defaults, the optional config file, and the flags
func (f *flags) buildConfig() (*config.Config, error) {
	cfg := config.Default()
	if *f.cfgFile != "" {
		var err error
		if cfg, err = config.LoadConfig(*f.cfgFile); err != nil {
			return nil, err
		}
	}
	overrideString(&cfg.DataDir, f.dataDir)
	overrideString(&cfg.AnnotationDir, f.annotationDir)
	overrideString(&cfg.DetectorConfig, f.detectorConfig)
	overrideString(&cfg.Checkpoint, f.checkpoint)
	overrideString(&cfg.OutputDir, f.outputDir)
	overrideString(&cfg.OutputSubdir, f.outputSubdir)
	overrideString(&cfg.Device, f.device)
	overrideString(&cfg.Class, f.class)
	overrideString(&cfg.ServerURL, f.serverURL)
	overrideString(&cfg.ModelDir, f.modelDir)
	overrideString(&cfg.Journal, f.journal)
	overrideInt(&cfg.MaxFrameHeight, f.maxFrameHeight)
	overrideInt(&cfg.TimeoutSeconds, f.timeout)
	overrideInt(&cfg.Retries, f.retries)
	if *f.threshold != unsetFloat {
		cfg.Threshold = *f.threshold
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, logger logs.Log, cfg *config.Config) error {
	model, err := nnload.LoadModel(ctx, logger, nnload.Setup{
		ServerURL:  cfg.ServerURL,
		Config:     cfg.DetectorConfig,
		Checkpoint: cfg.Checkpoint,
		Device:     cfg.Device,
		ModelDir:   cfg.ModelDir,
		Timeout:    time.Duration(cfg.TimeoutSeconds) * time.Second,
		Retries:    cfg.Retries,
		RetryDelay: time.Second,
	})
	if err != nil {
		return fmt.Errorf("Failed to load detector: %w", err)
	}
	defer model.Close()

	var jrnl *journal.Journal
	if cfg.Journal != "" {
		if jrnl, err = journal.Open(logger, cfg.Journal); err != nil {
			return err
		}
		defer jrnl.Close()
	}

	converter, err := convert.NewConverter(logger, model, jrnl, convert.Options{
		DataDir:        cfg.DataDir,
		AnnotationDir:  cfg.AnnotationPath(),
		OutputDir:      cfg.OutputPath(),
		Threshold:      cfg.Threshold,
		Class:          cfg.Class,
		MaxFrameHeight: cfg.MaxFrameHeight,
	})
	if err != nil {
		return err
	}
	_, err = converter.Run(ctx)
	return err
}

func main() {
	parser := argparse.NewParser("framedet", "Run a person detector over every video of a PoseTrack-style dataset")
	f := addFlags(parser)
	if err := parser.Parse(os.Args); err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(2)
	}
	cfg, err := f.buildConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	logger, err := logs.NewLog()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, logger, cfg)
	stop()
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}
