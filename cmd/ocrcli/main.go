package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/alexflint/go-arg"
	"github.com/sirupsen/logrus"

	"github.com/ef6/ocrcli/internal/config"
	"github.com/ef6/ocrcli/internal/engine/tesseract"
	apperrors "github.com/ef6/ocrcli/internal/errors"
	"github.com/ef6/ocrcli/internal/output"
	"github.com/ef6/ocrcli/internal/session"
)

// Version information - set by ldflags during build
var (
	Version      = "dev"
	BuildTime    = "unknown"
	GitCommit    = "unknown"
	ModelVersion = "v4"
)

type args struct {
	Path        string      `arg:"-p,--path" placeholder:"IMAGE_PATH" help:"image to recognize (required unless --server or --version-info)"`
	Mode        output.Mode `arg:"-m,--mode" default:"text" help:"output mode: json (text, confidence and position) or text (recognized text only)"`
	Verbose     bool        `arg:"-v,--verbose" help:"show detailed logs"`
	VersionInfo bool        `arg:"--version-info" help:"print the model version and exit"`
	Interactive bool        `arg:"-s,--server" help:"start interactive mode"`
	Config      string      `arg:"-c,--config,env:OCR_CONFIG" placeholder:"FILE" help:"engine configuration (YAML)"`
	Annotate    string      `arg:"--annotate" placeholder:"IMAGE" help:"json mode only: also write the input with detected regions outlined"`
}

func (args) Description() string {
	return "ocrcli - command line OCR for still images"
}

func (args) Version() string {
	return fmt.Sprintf("ocrcli %s (built %s, commit %s)", Version, BuildTime, GitCommit)
}

func main() {
	os.Exit(run())
}

func run() int {
	var a args
	arg.MustParse(&a)

	if a.VersionInfo {
		fmt.Printf("ocrcli - Model Version: %s (%s)\n", ModelVersion, tesseract.Backend)
		return 0
	}

	// .env must be applied before the logger reads OCR_LOG_LEVEL.
	envErr := config.LoadEnvFile(".env")
	log := newLogger(a.Verbose)
	if envErr != nil {
		log.WithError(envErr).Warn("Ignoring .env file")
	}

	log.Infof("Starting ocrcli %s", Version)

	cfg, err := config.Load(a.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	eng := tesseract.New(cfg, log)
	defer eng.Close()

	opts := session.Options{Mode: a.Mode, Verbose: a.Verbose, Annotate: a.Annotate}
	if a.Annotate != "" && !a.Mode.Structured() {
		log.Warn("--annotate has no effect in text mode")
	}
	proc := session.NewProcessor(eng, opts, os.Stdout, log)

	if a.Interactive {
		console := session.Console{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
		if err := session.NewController(eng, proc, console, log).Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	if err := session.NewRunner(eng, proc, log).Run(a.Path); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, apperrors.ErrNoPath) {
			fmt.Fprintln(os.Stderr, "Use --help for more information.")
		}
		return 1
	}
	return 0
}

// newLogger logs to stderr so stdout carries only results. Verbose raises
// the level to info; OCR_LOG_LEVEL overrides both.
func newLogger(verbose bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	log.SetLevel(logrus.ErrorLevel)
	if verbose {
		log.SetLevel(logrus.InfoLevel)
	}
	if v := os.Getenv("OCR_LOG_LEVEL"); v != "" {
		if level, err := logrus.ParseLevel(v); err == nil {
			log.SetLevel(level)
		}
	}
	return log
}
