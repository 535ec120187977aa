package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/kilobot-tracker/internal/calibrate"
	"github.com/ironsheep/kilobot-tracker/internal/config"
	"github.com/ironsheep/kilobot-tracker/internal/imaging"
	"github.com/ironsheep/kilobot-tracker/internal/server"
	"github.com/ironsheep/kilobot-tracker/internal/store"
	"github.com/ironsheep/kilobot-tracker/internal/tracker"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "--version", "-v", "version":
		fmt.Printf("kilobot-tracker %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
		return
	case "--help", "-h", "help":
		usage()
		return
	}

	// Logs go to stderr; stdout is for MCP protocol in serve mode
	logger := config.LoggerFromEnv()
	logger.WithFields(logrus.Fields{
		"version": Version,
		"commit":  GitCommit,
	}).Debug("Starting kilobot-tracker")

	var err error
	switch os.Args[1] {
	case "track":
		err = runTrack(os.Args[2:], logger)
	case "template":
		err = runTemplate(os.Args[2:], logger)
	case "annotate":
		err = runAnnotate(os.Args[2:], logger)
	case "serve":
		err = runServe(os.Args[2:], logger)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		logger.WithError(err).Fatal("Command failed")
	}
}

func usage() {
	fmt.Println("kilobot-tracker - locate kilobots in video frames")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  kilobot-tracker track [options] <frames-dir>")
	fmt.Println("  kilobot-tracker template [options] <calibration-still>")
	fmt.Println("  kilobot-tracker annotate [options] <base-image> <overlay-image>")
	fmt.Println("  kilobot-tracker serve [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Run 'kilobot-tracker <command> -h' for command options.")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  KILOBOT_LOG_LEVEL=debug    Enable debug logging")
	fmt.Println("  KILOBOT_PROFILE=leader     Select the calibration profile")
	fmt.Println()
	fmt.Println("In serve mode the tracker communicates via MCP protocol over stdin/stdout.")
}

// loadProfile reads the configuration file and selects a profile.
func loadProfile(path, name string) (*config.Config, config.Profile, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, config.Profile{}, err
	}
	p, err := cfg.Select(name)
	if err != nil {
		return nil, config.Profile{}, err
	}
	return cfg, p, nil
}

func runTrack(args []string, logger *logrus.Logger) error {
	fs := flag.NewFlagSet("track", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Calibration file (.yaml, .yml or .ini)")
	profile := fs.String("profile", "", "Calibration profile")
	tplPath := fs.String("template", "", "Template PNG (default: the profile's template)")
	debugDir := fs.String("debug-dir", "", "Directory for per-frame debug rasters")
	dbPath := fs.String("db", "", "SQLite file to record the run in")
	composite := fs.String("composite", "composite.png", "Composite output PNG")
	workers := fs.Int("workers", 0, "Frames processed in parallel (default: config or CPU count)")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("track needs exactly one frames directory")
	}

	cfg, p, err := loadProfile(*cfgPath, *profile)
	if err != nil {
		return err
	}
	if *tplPath == "" {
		*tplPath = p.TemplatePath
	}
	if *debugDir == "" {
		*debugDir = cfg.DebugDir
	}
	if *dbPath == "" {
		*dbPath = cfg.Database
	}
	if *workers == 0 {
		*workers = cfg.Workers
	}

	tpl, err := imaging.LoadTemplate(*tplPath)
	if err != nil {
		return err
	}
	d, err := p.Detector(tpl)
	if err != nil {
		return err
	}

	var db *store.DB
	if *dbPath != "" {
		if db, err = store.Open(*dbPath); err != nil {
			return err
		}
		defer db.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := tracker.Run(ctx, tracker.Options{
		Dir:           fs.Arg(0),
		Detector:      d,
		Profile:       p.Name,
		TemplatePath:  *tplPath,
		CanvasWidth:   p.Canvas.Width,
		CanvasHeight:  p.Canvas.Height,
		DebugDir:      *debugDir,
		CompositePath: *composite,
		Store:         db,
		Workers:       *workers,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	for _, fr := range summary.Frames {
		fmt.Printf("%s\t%d\n", fr.Frame, fr.Result.Count)
		for _, det := range fr.Result.Detections {
			fmt.Printf("\t%d\t%.2f\t%.2f\n", det.Label, det.Row, det.Col)
		}
	}
	return nil
}

func runTemplate(args []string, logger *logrus.Logger) error {
	fs := flag.NewFlagSet("template", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Calibration file (.yaml, .yml or .ini)")
	profile := fs.String("profile", "", "Calibration profile")
	out := fs.String("out", "", "Template output PNG (default: the profile's template)")
	preview := fs.String("preview", "", "Optional raw crop preview PNG")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("template needs exactly one calibration still")
	}

	_, p, err := loadProfile(*cfgPath, *profile)
	if err != nil {
		return err
	}
	if *out == "" {
		*out = p.TemplatePath
	}

	tpl, err := calibrate.AcquireFile(fs.Arg(0), p.CalibrateOptions(), *out, *preview)
	if err != nil {
		return err
	}
	rows, cols := tpl.Grid.Dims()
	logger.WithFields(logrus.Fields{
		"profile": p.Name,
		"out":     *out,
		"rows":    rows,
		"cols":    cols,
		"sigma":   tpl.Sigma,
	}).Info("Template acquired")
	return nil
}

func runAnnotate(args []string, logger *logrus.Logger) error {
	fs := flag.NewFlagSet("annotate", flag.ExitOnError)
	hex := fs.String("color", "#FF0000", "Marker colour")
	out := fs.String("out", "annotated.png", "Output PNG")
	fs.Parse(args)

	if fs.NArg() != 2 {
		return fmt.Errorf("annotate needs a base image and an overlay image")
	}
	marker, err := imaging.ParseColor(*hex)
	if err != nil {
		return err
	}
	base, err := imaging.LoadFrame(fs.Arg(0))
	if err != nil {
		return err
	}
	overlay, err := imaging.LoadFrame(fs.Arg(1))
	if err != nil {
		return err
	}

	result := imaging.Annotate(base, overlay, marker)
	if err := imaging.SavePNG(*out, result.Image); err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"out":    *out,
		"points": result.Points,
	}).Info("Annotated image saved")
	return nil
}

func runServe(args []string, logger *logrus.Logger) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Calibration file (.yaml, .yml or .ini)")
	fs.Parse(args)

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}

	server.Version = Version
	logger.WithField("version", Version).Info("Kilobot MCP server starting")
	srv := server.New(cfg, logger)
	return srv.Run()
}
