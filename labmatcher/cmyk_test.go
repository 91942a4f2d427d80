package labmatcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const helperModeEnv = "LABMATCH_HELPER_MODE"

// TestHelperProcess stands in for xicclu when re-executed by helperCommand.
func TestHelperProcess(t *testing.T) {
	mode := os.Getenv(helperModeEnv)
	if mode == "" {
		return
	}
	in, _ := io.ReadAll(os.Stdin)
	switch mode {
	case "ok":
		fmt.Fprintf(os.Stdout, "%s [Lab] -> Lut -> 0.1 0.25 0.5 0.05 [CMYK]\n", strings.TrimSpace(string(in)))
	case "fail":
		fmt.Fprint(os.Stderr, "profile not found\n")
		os.Exit(1)
	case "garbage":
		fmt.Fprintln(os.Stdout, "nothing useful here")
	case "hang":
		time.Sleep(time.Minute)
	}
	os.Exit(0)
}

func helperCommand(t *testing.T, mode string) []string {
	t.Helper()
	t.Setenv(helperModeEnv, mode)
	return []string{os.Args[0], "-test.run=^TestHelperProcess$", "--"}
}

type fakeRunner struct {
	stdout, stderr string
	err            error
	gotName        string
	gotArgs        []string
	gotStdin       string
}

func (f *fakeRunner) Run(ctx context.Context, name string, args []string, stdin []byte) ([]byte, []byte, error) {
	f.gotName, f.gotArgs, f.gotStdin = name, args, string(stdin)
	return []byte(f.stdout), []byte(f.stderr), f.err
}

func TestParseCMYK(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		want    CMYK
		wantErr bool
	}{
		{
			name:   "xicclu line",
			output: "50.000000 0.000000 0.000000 [Lab] -> Lut -> 0.000000 0.000000 0.000000 0.532100 [CMYK]\n",
			want:   CMYK{K: 0.5321},
		},
		{
			name:   "marker on later line",
			output: "banner\n\n1 2 3 [Lab] -> 0.1 0.2 0.3 0.4 [CMYK]\n0.9 0.9 0.9 0.9 [CMYK]\n",
			want:   CMYK{C: 0.1, M: 0.2, Y: 0.3, K: 0.4},
		},
		{name: "no marker", output: "0.1 0.2 0.3 0.4\n", wantErr: true},
		{name: "too few fields", output: "0.3 0.4 [CMYK]\n", wantErr: true},
		{name: "non numeric", output: "a 0.2 0.3 0.4 [CMYK]\n", wantErr: true},
		{name: "empty", output: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCMYK(tt.output)
			if tt.wantErr {
				var convErr *ConversionError
				require.ErrorAs(t, err, &convErr)
				assert.Equal(t, NoCMYKValue, convErr.Kind)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want.C, got.C, 1e-9)
			assert.InDelta(t, tt.want.M, got.M, 1e-9)
			assert.InDelta(t, tt.want.Y, got.Y, 1e-9)
			assert.InDelta(t, tt.want.K, got.K, 1e-9)
		})
	}
}

func TestCMYKString(t *testing.T) {
	assert.Equal(t, "C: 10%, M: 25%, Y: 50%, K: 5%", CMYK{C: 0.1, M: 0.25, Y: 0.5, K: 0.05}.String())
}

func TestFormatLabRequest(t *testing.T) {
	assert.Equal(t, "50 -2.5 10.125\n", FormatLabRequest(Lab{L: 50, A: -2.5, B: 10.125}))
}

func TestNewXiccluConverterSplitsCommand(t *testing.T) {
	x, err := NewXiccluConverter(ConversionConfig{Tool: `"/opt/argyll/bin/xicclu" -v0`, ProfilePath: "print.icc", TimeoutSeconds: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"/opt/argyll/bin/xicclu", "-v0"}, x.Command)
	assert.Equal(t, []string{"-v0", "-fb", "-ir", "-pl", "print.icc"}, x.Args())
	assert.Equal(t, 3*time.Second, x.Timeout)

	_, err = NewXiccluConverter(ConversionConfig{Tool: "  "})
	assert.Error(t, err)
}

func TestXiccluConverterWithFakeRunner(t *testing.T) {
	runner := &fakeRunner{stdout: "50 0 0 [Lab] -> Lut -> 0 0 0 0.5 [CMYK]\n"}
	x := &XiccluConverter{Command: []string{"xicclu"}, ProfilePath: "p.icc", Runner: runner}

	got, err := x.Convert(context.Background(), Lab{L: 50})
	require.NoError(t, err)
	assert.Equal(t, CMYK{K: 0.5}, got)
	assert.Equal(t, "xicclu", runner.gotName)
	assert.Equal(t, []string{"-fb", "-ir", "-pl", "p.icc"}, runner.gotArgs)
	assert.Equal(t, "50 0 0\n", runner.gotStdin)
}

func TestXiccluConverterErrorKinds(t *testing.T) {
	tests := []struct {
		name   string
		runner *fakeRunner
		kind   ConversionErrorKind
	}{
		{name: "non-zero exit", runner: &fakeRunner{stderr: "bad profile\n", err: &exec.ExitError{}}, kind: ToolFailed},
		{name: "cannot start", runner: &fakeRunner{err: exec.ErrNotFound}, kind: ToolUnavailable},
		{name: "no marker", runner: &fakeRunner{stdout: "hello\n"}, kind: NoCMYKValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := &XiccluConverter{Command: []string{"xicclu"}, ProfilePath: "p.icc", Runner: tt.runner}
			_, err := x.Convert(context.Background(), Lab{L: 50})
			var convErr *ConversionError
			require.ErrorAs(t, err, &convErr)
			assert.Equal(t, tt.kind, convErr.Kind)
		})
	}
}

func TestXiccluConverterTimeout(t *testing.T) {
	blocking := runnerFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	x := &XiccluConverter{Command: []string{"xicclu"}, ProfilePath: "p.icc", Runner: blocking, Timeout: 10 * time.Millisecond}
	_, err := x.Convert(context.Background(), Lab{})
	var convErr *ConversionError
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, ToolUnavailable, convErr.Kind)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestXiccluConverterKilledOnDeadlineIsNotToolFailure(t *testing.T) {
	killed := runnerFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return &exec.ExitError{}
	})
	x := &XiccluConverter{Command: []string{"xicclu"}, ProfilePath: "p.icc", Runner: killed, Timeout: 10 * time.Millisecond}
	_, err := x.Convert(context.Background(), Lab{})
	var convErr *ConversionError
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, ToolUnavailable, convErr.Kind)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

type runnerFunc func(ctx context.Context) error

func (f runnerFunc) Run(ctx context.Context, _ string, _ []string, _ []byte) ([]byte, []byte, error) {
	return nil, nil, f(ctx)
}

func TestXiccluConverterSubprocess(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		x := &XiccluConverter{Command: helperCommand(t, "ok"), ProfilePath: "print.icc"}
		got, err := x.Convert(context.Background(), Lab{L: 50, A: 1, B: -1})
		require.NoError(t, err)
		assert.Equal(t, "C: 10%, M: 25%, Y: 50%, K: 5%", got.String())
	})
	t.Run("tool reports failure", func(t *testing.T) {
		x := &XiccluConverter{Command: helperCommand(t, "fail"), ProfilePath: "missing.icc"}
		_, err := x.Convert(context.Background(), Lab{L: 50})
		var convErr *ConversionError
		require.ErrorAs(t, err, &convErr)
		assert.Equal(t, ToolFailed, convErr.Kind)
		assert.Equal(t, "profile not found", convErr.Message)
	})
	t.Run("unparseable output", func(t *testing.T) {
		x := &XiccluConverter{Command: helperCommand(t, "garbage"), ProfilePath: "print.icc"}
		_, err := x.Convert(context.Background(), Lab{L: 50})
		var convErr *ConversionError
		require.ErrorAs(t, err, &convErr)
		assert.Equal(t, NoCMYKValue, convErr.Kind)
	})
	t.Run("timeout kills the tool", func(t *testing.T) {
		x := &XiccluConverter{Command: helperCommand(t, "hang"), ProfilePath: "print.icc", Timeout: 200 * time.Millisecond}
		start := time.Now()
		_, err := x.Convert(context.Background(), Lab{L: 50})
		assert.Less(t, time.Since(start), 10*time.Second)
		var convErr *ConversionError
		require.ErrorAs(t, err, &convErr)
		assert.Equal(t, ToolUnavailable, convErr.Kind)
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
	})
	t.Run("missing executable", func(t *testing.T) {
		x := &XiccluConverter{Command: []string{"/nonexistent/labmatcher/xicclu"}, ProfilePath: "print.icc"}
		_, err := x.Convert(context.Background(), Lab{L: 50})
		var convErr *ConversionError
		require.ErrorAs(t, err, &convErr)
		assert.Equal(t, ToolUnavailable, convErr.Kind)
	})
}
