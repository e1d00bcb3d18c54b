package ytd

import "fmt"

// ResultType classifies how a downloader run ended
type ResultType string

const (
	ResultSuccess ResultType = "SUCCESS" // Process exited with status 0
	ResultIOError ResultType = "IOERROR" // Process could not be spawned
	ResultFailure ResultType = "FAILURE" // Process ran and exited non-zero
)

// Result is the outcome of one downloader run.
// It is created by YoutubeDL.Download and never modified afterwards.
type Result struct {
	resultType ResultType
	output     string
	outputDir  string
}

// Type returns the classification of the run
func (r Result) Type() ResultType {
	return r.resultType
}

// Output returns the combined stdout and stderr of the process, or a
// description of the spawn failure for IOERROR results.
func (r Result) Output() string {
	return r.output
}

// OutputDir returns the directory the downloader was executed in
func (r Result) OutputDir() string {
	return r.outputDir
}

// Success reports whether the process exited successfully
func (r Result) Success() bool {
	return r.resultType == ResultSuccess
}

// Err converts a non-successful result into an error.
func (r Result) Err() error {
	switch r.resultType {
	case ResultSuccess:
		return nil
	case ResultIOError:
		return &SpawnError{Output: r.output}
	default:
		return &FailureError{Output: r.output}
	}
}

// SpawnError is returned by Result.Err when the downloader could not be started
type SpawnError struct {
	Output string
}

func (e *SpawnError) Error() string {
	return e.Output
}

// FailureError is returned by Result.Err when the downloader exited non-zero
type FailureError struct {
	Output string
}

func (e *FailureError) Error() string {
	return fmt.Sprintf("downloader exited with: %s", e.Output)
}
