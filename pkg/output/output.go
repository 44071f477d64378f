// Package output turns the unstructured console output of the eclcc compiler
// and the ecl runner into structured results.
//
// Recognized lines are described by the exported pattern tables below. The
// tables are compiled once by NewParser; ParseCompile and ParseRun use a
// package-level parser built from the default tables.
package output

import (
	"regexp"
	"strings"
)

// Compile statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Pattern tables. Prefix patterns are anchored at the start of a trimmed
// line; middle and run error patterns may match anywhere in it.
var (
	// CompileErrorPrefixes detect compiler lines that report a failure.
	CompileErrorPrefixes = []string{
		`^Error: `,
		`^Failed to compile `,
	}

	// CompileErrorMiddlePatterns detect located diagnostics such as
	// "file.ecl(1,8): error C2195: ...".
	CompileErrorMiddlePatterns = []string{
		`\(\d+,\d+\): error C\d+`,
	}

	// RunNoisePatterns detect runner chatter that carries no information.
	RunNoisePatterns = []string{
		`(?i)^jsocket\(\d+,\d+\)\s*shutdown`,
		`(?i)^Using eclcc path`,
		`(?i)^Deploying `,
		`(?i)^Deployed$`,
		`(?i)^Running deployed workunit`,
	}

	// RunErrorPatterns detect runner lines that report a failed submission,
	// including lines such as "Error: 401: Unauthorized Access".
	RunErrorPatterns = []string{
		`(?i)\d{3}: Unauthorized`,
		`(?i)Error checking ESP configuration`,
		`(?i)Bad host name/ip`,
		`(?i)Could not connect`,
	}

	// WuidPattern captures the workunit id announced by the runner.
	WuidPattern = `^wuid:\s*(W\d{8}-\d{6}(?:-\d+)?)`

	// StateNames are the workunit state names the runner may announce.
	StateNames = []string{
		"unknown", "compiled", "running", "completed", "failed", "archived",
		"aborting", "aborted", "blocked", "submitted", "scheduled", "compiling",
		"wait", "uploadingFiles", "debugPaused", "debugRunning", "paused",
	}

	// StatePattern captures the workunit state announced by the runner. Only
	// names from StateNames match.
	StatePattern = `(?i)^state:\s*(` + strings.Join(StateNames, "|") + `)\b`

	// FailedStates are the state names after which collected error lines are
	// reported as the run error.
	FailedStates = []string{"failed", "aborting", "aborted"}
)

// Parser holds the compiled pattern tables. It is safe for concurrent use.
type Parser struct {
	compileErrorPrefixes []*regexp.Regexp
	compileErrorMiddle   []*regexp.Regexp
	runNoise             []*regexp.Regexp
	runErrors            []*regexp.Regexp
	wuid                 *regexp.Regexp
	state                *regexp.Regexp
	failedStates         map[string]struct{}
}

// NewParser creates a parser with pre-compiled patterns from the package tables.
func NewParser() *Parser {
	failed := make(map[string]struct{}, len(FailedStates))
	for _, s := range FailedStates {
		failed[strings.ToLower(s)] = struct{}{}
	}
	return &Parser{
		compileErrorPrefixes: compilePatterns(CompileErrorPrefixes),
		compileErrorMiddle:   compilePatterns(CompileErrorMiddlePatterns),
		runNoise:             compilePatterns(RunNoisePatterns),
		runErrors:            compilePatterns(RunErrorPatterns),
		wuid:                 regexp.MustCompile(WuidPattern),
		state:                regexp.MustCompile(StatePattern),
		failedStates:         failed,
	}
}

var defaultParser = NewParser()

// ParseCompile parses compiler output with the default parser.
func ParseCompile(raw []byte, command string) *CompileResult {
	return defaultParser.ParseCompile(raw, command)
}

// ParseRun parses runner output with the default parser.
func ParseRun(raw []byte) *RunResult {
	return defaultParser.ParseRun(raw)
}

func compilePatterns(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(p))
	}
	return compiled
}

func matchAny(patterns []*regexp.Regexp, line string) bool {
	for _, re := range patterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// lines splits raw output into trimmed, non-blank lines. Invalid UTF-8 is
// replaced rather than rejected.
func lines(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func decode(raw []byte) string {
	return strings.ToValidUTF8(string(raw), "�")
}
