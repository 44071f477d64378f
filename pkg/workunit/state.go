// Package workunit drives a unit of work through the platform: writing the
// query source, compiling and running it through the command-line tools, and
// the legacy web-service create/submit/wait flow.
package workunit

import (
	"fmt"
	"regexp"
	"strings"
)

// State is a workunit state. Values match the platform's state ids.
type State int

const (
	StateUnknown State = iota
	StateCompiled
	StateRunning
	StateCompleted
	StateFailed
	StateArchived
	StateAborting
	StateAborted
	StateBlocked
	StateSubmitted
	StateScheduled
	StateCompiling
	StateWait
	StateUploadingFiles
	StateDebugPaused
	StateDebugRunning
	StatePaused

	// StateSize is the number of states, not a state.
	StateSize
)

var stateNames = [...]string{
	StateUnknown:        "unknown",
	StateCompiled:       "compiled",
	StateRunning:        "running",
	StateCompleted:      "completed",
	StateFailed:         "failed",
	StateArchived:       "archived",
	StateAborting:       "aborting",
	StateAborted:        "aborted",
	StateBlocked:        "blocked",
	StateSubmitted:      "submitted",
	StateScheduled:      "scheduled",
	StateCompiling:      "compiling",
	StateWait:           "wait",
	StateUploadingFiles: "uploadingFiles",
	StateDebugPaused:    "debugPaused",
	StateDebugRunning:   "debugRunning",
	StatePaused:         "paused",
}

func (s State) String() string {
	if s < 0 || s >= StateSize {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// ParseState maps a state name, case-insensitively, to its State.
func ParseState(name string) (State, error) {
	for i, n := range stateNames {
		if strings.EqualFold(n, name) {
			return State(i), nil
		}
	}
	return StateUnknown, fmt.Errorf("unknown workunit state: %q", name)
}

// IsFailed reports whether the workunit failed or is being aborted.
func (s State) IsFailed() bool {
	return s == StateFailed || s == StateAborting || s == StateAborted
}

// IsTerminal reports whether the workunit will not change state on its own.
func (s State) IsTerminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateAborted, StateArchived:
		return true
	default:
		return false
	}
}

var wuidPattern = regexp.MustCompile(`^W\d{8}-\d{6}(-\d+)?$`)

// ValidWuid reports whether wuid has the W<date>-<time>[-n] form.
func ValidWuid(wuid string) bool {
	return wuidPattern.MatchString(wuid)
}

// Phase is the progress of one Submitter through the compile-then-run flow.
type Phase string

const (
	PhaseNotStarted  Phase = "NOT_STARTED"
	PhaseFileWritten Phase = "FILE_WRITTEN"
	PhaseCompiled    Phase = "COMPILED"
	PhaseSubmitted   Phase = "SUBMITTED"
	PhaseCompleted   Phase = "COMPLETED"
	PhaseFailed      Phase = "FAILED"
)
