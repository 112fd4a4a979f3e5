package launcher

import (
	"os"
	"path/filepath"
)

// Marker files written by the runner into the test result directory.
const (
	PassedMarker = "result.passed"
	FailedMarker = "result.failed"
)

// Exit codes of webdrive:test.
const (
	ExitPassed      = 0
	ExitFailed      = 1
	ExitLaunchError = -1
)

// Outcome is the aggregate result of a run, as told by the marker files.
type Outcome int

const (
	OutcomeUnknown Outcome = iota // no marker present
	OutcomePassed
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomePassed:
		return "passed"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ReadOutcome inspects dir for marker files. A failed marker wins over a
// passed one.
func ReadOutcome(dir string) Outcome {
	if exists(filepath.Join(dir, FailedMarker)) {
		return OutcomeFailed
	}
	if exists(filepath.Join(dir, PassedMarker)) {
		return OutcomePassed
	}
	return OutcomeUnknown
}

// ExitCode maps the outcome to the process exit code. Only an explicit
// failure is reported as such.
func (o Outcome) ExitCode() int {
	if o == OutcomeFailed {
		return ExitFailed
	}
	return ExitPassed
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// CleanDir removes path and everything below it. A missing directory is
// fine.
func CleanDir(path string) error {
	return os.RemoveAll(path)
}
