package session

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ef6/ocrcli/internal/engine"
	apperrors "github.com/ef6/ocrcli/internal/errors"
	"github.com/ef6/ocrcli/internal/imaging"
	"github.com/ef6/ocrcli/internal/output"
	"github.com/ef6/ocrcli/internal/pipeline"
)

// State is a step of the interactive loop.
type State int

const (
	AwaitInput State = iota
	Validating
	Confirming
	Processing
	Reporting
	Exited
)

func (s State) String() string {
	switch s {
	case AwaitInput:
		return "AwaitInput"
	case Validating:
		return "Validating"
	case Confirming:
		return "Confirming"
	case Processing:
		return "Processing"
	case Reporting:
		return "Reporting"
	case Exited:
		return "Exited"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Console is the operator's terminal. Reports and prompts go to Out,
// validation messages to Err.
type Console struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// Session is the state that lives for the whole interactive run.
type Session struct {
	EngineInitialized bool
	OutputMode        output.Mode
	Verbose           bool
}

// Controller runs the interactive loop: read a path, validate it, process
// it, print the report, repeat until an exit directive or end of input.
// Failures while processing one image are logged and the loop continues.
type Controller struct {
	gw      engine.Gateway
	proc    *Processor
	console Console
	scanner *bufio.Scanner
	log     logrus.FieldLogger

	session Session
	state   State
	path    string
	result  *pipeline.Result
	readErr error
}

// NewController wires a controller around an engine handle and processor.
func NewController(gw engine.Gateway, proc *Processor, console Console, log logrus.FieldLogger) *Controller {
	scanner := bufio.NewScanner(console.In)
	// Paths can be long; allow up to 1MB per line.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	opts := proc.Options()
	return &Controller{
		gw:      gw,
		proc:    proc,
		console: console,
		scanner: scanner,
		log:     log,
		session: Session{OutputMode: opts.Mode, Verbose: opts.Verbose},
		state:   AwaitInput,
	}
}

// Session returns a copy of the session state.
func (c *Controller) Session() Session {
	return c.session
}

// Run initializes the engine and loops until the operator exits or input
// ends. A failed engine initialization or an unreadable input stream, such
// as a line longer than the scanner buffer, is returned as an error.
func (c *Controller) Run() error {
	fmt.Fprintln(c.console.Out, "Interactive mode started")
	fmt.Fprintln(c.console.Out, "Enter image file paths to process (type 'exit' or 'quit' to exit):")

	if err := c.initEngine(); err != nil {
		return err
	}

	for c.state != Exited {
		c.state = c.step()
	}

	fmt.Fprintln(c.console.Out, "Exiting interactive mode...")
	if c.readErr != nil {
		return apperrors.NewInputError("failed to read input", c.readErr)
	}
	return nil
}

func (c *Controller) initEngine() error {
	if c.session.EngineInitialized {
		return nil
	}
	c.log.Info("Initializing OCR engine")
	if err := c.gw.Initialize(); err != nil {
		return apperrors.Wrap(apperrors.KindEngine, "failed to initialize OCR engine", err)
	}
	c.session.EngineInitialized = true
	return nil
}

// step executes the current state and returns the next one.
func (c *Controller) step() State {
	switch c.state {
	case AwaitInput:
		return c.awaitInput()
	case Validating:
		return c.validate()
	case Confirming:
		return c.confirm()
	case Processing:
		return c.process()
	case Reporting:
		return c.report()
	}
	return Exited
}

func (c *Controller) awaitInput() State {
	c.path, c.result = "", nil

	fmt.Fprint(c.console.Out, "> ")
	line, ok := c.readLine()
	if !ok {
		return Exited
	}

	input := strings.TrimSpace(line)
	if IsExitDirective(input) {
		return Exited
	}
	if input == "" {
		return AwaitInput
	}
	c.path = input
	return Validating
}

func (c *Controller) validate() State {
	if _, err := os.Stat(c.path); err != nil {
		fmt.Fprintf(c.console.Err, "Error: File does not exist: %s\n", c.path)
		return AwaitInput
	}
	if !imaging.HasImageExtension(c.path) {
		return Confirming
	}
	return Processing
}

func (c *Controller) confirm() State {
	fmt.Fprintf(c.console.Err, "Warning: File does not appear to be an image: %s\n", c.path)
	fmt.Fprint(c.console.Out, "Do you want to continue? (y/N): ")

	answer, ok := c.readLine()
	if !ok || !IsAffirmative(answer) {
		return AwaitInput
	}
	return Processing
}

func (c *Controller) process() State {
	res, err := c.proc.Run(c.path)
	if err != nil {
		c.log.WithError(err).WithField("path", c.path).Error("Error processing image")
		return AwaitInput
	}
	c.result = res
	return Reporting
}

func (c *Controller) report() State {
	if err := c.proc.Report(c.result); err != nil {
		c.log.WithError(err).WithField("path", c.path).Error("Error writing results")
		return AwaitInput
	}
	c.log.WithField("path", c.path).Info("OCR processing completed successfully")
	return AwaitInput
}

// readLine blocks for one line of input. It returns false at end of input
// or when the stream can no longer be read; the latter is kept in readErr.
func (c *Controller) readLine() (string, bool) {
	if c.scanner.Scan() {
		return c.scanner.Text(), true
	}
	if err := c.scanner.Err(); err != nil {
		c.log.WithError(err).Error("Failed to read input")
		c.readErr = err
	}
	return "", false
}

// IsExitDirective reports whether input asks to leave the session.
func IsExitDirective(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "exit", "quit":
		return true
	}
	return false
}

// IsAffirmative reports whether a confirmation answer means yes.
func IsAffirmative(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}
