package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/ironsheep/scan-quiz/internal/acquire"
	"github.com/ironsheep/scan-quiz/internal/app"
	"github.com/ironsheep/scan-quiz/internal/camera"
	"github.com/ironsheep/scan-quiz/internal/config"
	"github.com/ironsheep/scan-quiz/internal/logging"
	"github.com/ironsheep/scan-quiz/internal/ocrapi"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "scan-quiz %s\n", Version)
	fmt.Fprintf(w, "  Build time: %s\n", BuildTime)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "scan-quiz - extract text from an image and quiz yourself on it")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: scan-quiz [options] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  select <image>         Submit an image file")
	fmt.Fprintln(w, "  drop <file>...         Submit the first of several dropped files")
	fmt.Fprintln(w, "  camera                 Capture a frame from the camera and submit it")
	fmt.Fprintln(w, "  health                 Check that the backend is reachable")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fmt.Fprintln(w, "  --config <file>        YAML config file")
	fmt.Fprintln(w, "  --base-url <url>       Backend base URL (default http://localhost:5000)")
	fmt.Fprintln(w, "  --timeout <duration>   Request timeout (default 2m0s)")
	fmt.Fprintln(w, "  --camera <device>      testpattern or none")
	fmt.Fprintln(w, "  --log-mode <mode>      debug or release")
	fmt.Fprintln(w, "  --log-level <level>    debug, info, warn, error")
	fmt.Fprintln(w, "  --no-interactive       Print the result and exit")
	fmt.Fprintln(w, "  --version, -v          Print version information")
	fmt.Fprintln(w, "  --help, -h             Print this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment variables:")
	fmt.Fprintln(w, "  SCAN_QUIZ_API_BASE_URL, SCAN_QUIZ_API_TIMEOUT, SCAN_QUIZ_LOG_MODE, ...")
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) > 0 {
		switch args[0] {
		case "--version", "-v", "version":
			printVersion(stdout)
			return 0
		case "--help", "-h", "help":
			printUsage(stdout)
			return 0
		}
	}

	fs := pflag.NewFlagSet("scan-quiz", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printUsage(stderr) }
	config.RegisterFlags(fs)
	noInteractive := fs.Bool("no-interactive", false, "print the result and exit")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfgPath, _ := fs.GetString("config")
	cfg, err := config.Load(cfgPath, fs)
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(stderr, "Logging error: %v\n", err)
		return 1
	}
	defer logging.Sync(logger)
	logger.Debug("scan-quiz starting",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("commit", GitCommit),
		zap.String("backend", cfg.API.BaseURL))

	rest := fs.Args()
	if len(rest) == 0 {
		printUsage(stderr)
		return 2
	}

	client, err := ocrapi.New(cfg.API.BaseURL, cfg.API.Timeout, ocrapi.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error: %v\n", err)
		return 1
	}

	if rest[0] == "health" {
		if err := client.Health(ctx); err != nil {
			fmt.Fprintf(stdout, "Backend %s is unavailable: %v\n", client.BaseURL(), err)
			return 1
		}
		fmt.Fprintf(stdout, "Backend %s is healthy\n", client.BaseURL())
		return 0
	}

	s := &session{
		in:          bufio.NewScanner(stdin),
		out:         stdout,
		errOut:      stderr,
		interactive: !*noInteractive,
		logger:      logger,
	}
	a := app.New(app.Options{
		Recognizer:  client,
		Device:      newDevice(cfg.Camera),
		Facing:      camera.FacingMode(cfg.Camera.Facing),
		JPEGQuality: cfg.Camera.JPEGQuality,
		Preview:     &terminalPreview{out: stdout},
		OnOutcome:   s.showStatus,
		Logger:      logger,
	})
	s.app = a
	defer a.Close()

	switch rest[0] {
	case "select":
		if len(rest) != 2 {
			fmt.Fprintln(stderr, "Usage: scan-quiz select <image>")
			return 2
		}
		return s.acquire(ctx, acquire.FileSelection{File: acquire.DiskFile{Path: rest[1]}})
	case "drop":
		files := make([]acquire.File, 0, len(rest)-1)
		for _, p := range rest[1:] {
			files = append(files, acquire.DiskFile{Path: p})
		}
		return s.acquire(ctx, acquire.DragDrop{Files: files})
	case "camera":
		return s.camera(ctx)
	default:
		fmt.Fprintf(stderr, "Unknown command %q\n\n", rest[0])
		printUsage(stderr)
		return 2
	}
}

// newDevice returns the configured camera, or nil when the camera is disabled.
func newDevice(c config.CameraConfig) camera.Device {
	if c.Device != "testpattern" {
		return nil
	}
	d := camera.NewTestPattern(c.Width, c.Height)
	d.Facing = camera.FacingMode(c.Facing)
	return d
}
