// Package ytd runs youtube-dl style downloaders as child processes.
//
// A YoutubeDL job is built from an existing output directory, a list of
// Arg values and a link. Download runs the executable synchronously with the
// output directory as working directory and classifies the outcome.
package ytd

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// Executable names of the supported downloaders
const (
	BinaryYoutubeDL  = "youtube-dl"
	BinaryYoutubeDLC = "youtube-dlc"
	BinaryYTDLP      = "yt-dlp"

	DefaultBinary = BinaryYoutubeDL
)

// ErrInvalidDirectory is returned when the output directory does not exist or is not a directory
var ErrInvalidDirectory = errors.New("invalid output directory")

// YoutubeDL represents a single downloader job.
//
// Every job needs a download location, a list of Arg that can be empty and
// a link to the desired source. A YoutubeDL is not modified after construction.
type YoutubeDL struct {
	outputDir string
	args      []Arg
	links     []string
	binary    string
	logger    *zap.Logger
}

// Option configures a YoutubeDL
type Option func(*YoutubeDL)

// WithBinary sets the downloader executable, resolved through PATH unless it contains a separator
func WithBinary(binary string) Option {
	return func(y *YoutubeDL) {
		if binary != "" {
			y.binary = binary
		}
	}
}

// WithLogger sets the logger used for command and result logging
func WithLogger(logger *zap.Logger) Option {
	return func(y *YoutubeDL) {
		if logger != nil {
			y.logger = logger
		}
	}
}

// New creates a downloader job for a single link.
// The link is passed through untouched and may be empty, e.g. for "--version".
func New(outputDir string, args []Arg, link string, opts ...Option) (*YoutubeDL, error) {
	return NewMultipleLinks(outputDir, args, []string{link}, opts...)
}

// NewMultipleLinks creates a downloader job passing several links after the arguments
func NewMultipleLinks(outputDir string, args []Arg, links []string, opts ...Option) (*YoutubeDL, error) {
	info, err := os.Stat(outputDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDirectory, outputDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidDirectory, outputDir)
	}

	y := &YoutubeDL{
		outputDir: outputDir,
		args:      append([]Arg(nil), args...),
		links:     append([]string(nil), links...),
		binary:    DefaultBinary,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(y)
	}
	return y, nil
}

// OutputDir returns the directory the downloader runs in
func (y *YoutubeDL) OutputDir() string {
	return y.outputDir
}

// Binary returns the downloader executable name
func (y *YoutubeDL) Binary() string {
	return y.binary
}

// Arguments returns a copy of the job's arguments
func (y *YoutubeDL) Arguments() []Arg {
	return append([]Arg(nil), y.args...)
}

// Links returns a copy of the job's links
func (y *YoutubeDL) Links() []string {
	return append([]string(nil), y.links...)
}

// Args builds the argument vector passed to the executable:
// every Arg in order, followed by the links.
func (y *YoutubeDL) Args() []string {
	argv := make([]string, 0, 2*len(y.args)+len(y.links))
	for _, arg := range y.args {
		argv = append(argv, arg.Tokens()...)
	}
	return append(argv, y.links...)
}

// CommandLine returns the shell-escaped command for display
func (y *YoutubeDL) CommandLine() string {
	return ShellEscapeCommand(y.binary, y.Args()...)
}

// Download runs the downloader and blocks until it exits.
// Failing to start the process or a non-zero exit status are reported in
// the Result, never as a panic.
func (y *YoutubeDL) Download() Result {
	y.logger.Debug("Running downloader",
		zap.String("dir", y.outputDir),
		zap.String("command", y.CommandLine()))

	// exec.Command passes args directly to the process, no shell quoting needed
	cmd := exec.Command(y.binary, y.Args()...)
	cmd.Dir = y.outputDir

	// stdout and stderr share one buffer, like 2>&1
	out, err := cmd.CombinedOutput()
	output := strings.ToValidUTF8(string(out), "\uFFFD")

	result := Result{
		resultType: ResultSuccess,
		output:     output,
		outputDir:  y.outputDir,
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.resultType = ResultFailure
		} else {
			result.resultType = ResultIOError
			result.output = fmt.Sprintf("failed to execute %s: %v", y.binary, err)
		}
	}

	y.logger.Info("Downloader finished",
		zap.String("dir", y.outputDir),
		zap.String("binary", y.binary),
		zap.String("result", string(result.resultType)))

	return result
}

// DownloadPath runs the downloader and returns the output directory on
// success, or the result converted to an error otherwise.
func (y *YoutubeDL) DownloadPath() (string, error) {
	result := y.Download()
	if err := result.Err(); err != nil {
		return "", err
	}
	return result.OutputDir(), nil
}
