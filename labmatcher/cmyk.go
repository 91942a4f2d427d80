package labmatcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"
)

// CMYKMarker tags the output line carrying the converted ink values.
const CMYKMarker = "[CMYK]"

// Converter turns a Lab color into CMYK ink fractions.
type Converter interface {
	Convert(ctx context.Context, lab Lab) (CMYK, error)
}

// Runner executes an external program with stdin and returns what it wrote.
type Runner interface {
	Run(ctx context.Context, name string, args []string, stdin []byte) (stdout, stderr []byte, err error)
}

// waitDelay bounds how long Run waits for output pipes after the process is
// killed, e.g. when a wrapper script left a child holding stdout.
const waitDelay = time.Second

// ExecRunner runs programs with os/exec.
type ExecRunner struct{}

// Run starts name and waits for it to exit. The process is killed when ctx
// ends.
func (ExecRunner) Run(ctx context.Context, name string, args []string, stdin []byte) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = waitDelay
	cmd.Stdin = bytes.NewReader(stdin)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// ConversionErrorKind classifies conversion failures.
type ConversionErrorKind int

const (
	// ToolUnavailable means the tool could not be started or talked to.
	ToolUnavailable ConversionErrorKind = iota
	// ToolFailed means the tool exited with a non-zero status.
	ToolFailed
	// NoCMYKValue means the tool succeeded but printed no usable CMYK line.
	NoCMYKValue
)

func (k ConversionErrorKind) String() string {
	switch k {
	case ToolUnavailable:
		return "tool unavailable"
	case ToolFailed:
		return "external tool reported failure"
	case NoCMYKValue:
		return "no parseable CMYK value in tool output"
	}
	return "unknown"
}

// ConversionError reports a failed Lab to CMYK conversion.
type ConversionError struct {
	Kind    ConversionErrorKind
	Message string
	Err     error
}

func (e *ConversionError) Error() string {
	msg := "cmyk conversion: " + e.Kind.String()
	if e.Message != "" {
		msg += ": " + e.Message
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// XiccluConverter drives ArgyllCMS xicclu in Lab to device (-fb -ir) mode.
type XiccluConverter struct {
	// Command is the tool argv prefix, e.g. ["/opt/homebrew/bin/xicclu"].
	Command     []string
	ProfilePath string
	Runner      Runner
	// Timeout bounds one invocation; zero waits for the tool to exit.
	Timeout time.Duration
}

// NewXiccluConverter splits the configured tool command line.
func NewXiccluConverter(cfg ConversionConfig) (*XiccluConverter, error) {
	command, err := shellwords.Parse(cfg.Tool)
	if err != nil {
		return nil, fmt.Errorf("parse conversion tool %q: %w", cfg.Tool, err)
	}
	if len(command) == 0 {
		return nil, errors.New("conversion tool is not configured")
	}
	return &XiccluConverter{
		Command:     command,
		ProfilePath: cfg.ProfilePath,
		Runner:      ExecRunner{},
		Timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
	}, nil
}

// Args returns the argv passed after the command.
func (x *XiccluConverter) Args() []string {
	args := append([]string(nil), x.Command[1:]...)
	return append(args, "-fb", "-ir", "-pl", x.ProfilePath)
}

// Convert sends one "L A B" line to the tool and parses its reply.
func (x *XiccluConverter) Convert(ctx context.Context, lab Lab) (CMYK, error) {
	if len(x.Command) == 0 {
		return CMYK{}, &ConversionError{Kind: ToolUnavailable, Message: "no command configured"}
	}
	if x.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, x.Timeout)
		defer cancel()
	}
	runner := x.Runner
	if runner == nil {
		runner = ExecRunner{}
	}
	stdout, stderr, err := runner.Run(ctx, x.Command[0], x.Args(), []byte(FormatLabRequest(lab)))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return CMYK{}, &ConversionError{Kind: ToolUnavailable, Message: "tool did not finish", Err: ctxErr}
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return CMYK{}, &ConversionError{
				Kind:    ToolFailed,
				Message: strings.TrimSpace(string(stderr)),
				Err:     err,
			}
		}
		return CMYK{}, &ConversionError{Kind: ToolUnavailable, Err: err}
	}
	return ParseCMYK(string(stdout))
}

// FormatLabRequest renders the tool's input line.
func FormatLabRequest(lab Lab) string {
	return strings.Join([]string{
		strconv.FormatFloat(lab.L, 'f', -1, 64),
		strconv.FormatFloat(lab.A, 'f', -1, 64),
		strconv.FormatFloat(lab.B, 'f', -1, 64),
	}, " ") + "\n"
}

// ParseCMYK finds the first line holding the CMYK marker and reads the four
// fields before it.
func ParseCMYK(output string) (CMYK, error) {
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		idx := -1
		for i, f := range fields {
			if f == CMYKMarker {
				idx = i
				break
			}
		}
		if idx < 0 {
			continue
		}
		if idx < 4 {
			return CMYK{}, &ConversionError{Kind: NoCMYKValue, Message: strings.TrimSpace(line)}
		}
		var vals [4]float64
		for i, f := range fields[idx-4 : idx] {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return CMYK{}, &ConversionError{Kind: NoCMYKValue, Message: strings.TrimSpace(line), Err: err}
			}
			vals[i] = v
		}
		return CMYK{C: vals[0], M: vals[1], Y: vals[2], K: vals[3]}, nil
	}
	return CMYK{}, &ConversionError{Kind: NoCMYKValue}
}
